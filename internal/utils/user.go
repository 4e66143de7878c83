package utils

import (
	"time"
)

// OnlineWindow 最近活跃多久以内视为在线
const OnlineWindow = 300 * time.Second

// IsOnline 根据 last_active_at 判断在线状态，仅作展示提示
func IsOnline(lastActive *time.Time, now time.Time) bool {
	if lastActive == nil {
		return false
	}
	return now.Sub(*lastActive) < OnlineWindow
}
