package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	WeightView    float64
	WeightComment float64
	WeightLike    float64
	Offset        float64 // 时间偏移 (小时)
	Gravity       float64 // 时间重力
}

var DefaultRankConfig = RankConfig{
	WeightView:    1.0,
	WeightComment: 2.0,
	WeightLike:    3.0,
	Offset:        2.0,
	Gravity:       2.0,
}

// HotScore = (views + 2·comments + 3·likes) / (age_hours + 2)²
func HotScore(createdAt, now time.Time, views, comments, likes int64) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}

	weighted := float64(views)*DefaultRankConfig.WeightView +
		float64(comments)*DefaultRankConfig.WeightComment +
		float64(likes)*DefaultRankConfig.WeightLike

	return weighted / math.Pow(hours+DefaultRankConfig.Offset, DefaultRankConfig.Gravity)
}
