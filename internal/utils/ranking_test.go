package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHotScoreFormula(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// 0h old: (10 + 2*2 + 3*1) / (0+2)^2 = 17/4
	assert.InDelta(t, 4.25, HotScore(now, now, 10, 2, 1), 1e-9)

	// 2h old: 17 / 16
	assert.InDelta(t, 17.0/16.0, HotScore(now.Add(-2*time.Hour), now, 10, 2, 1), 1e-9)
}

func TestHotScoreDecays(t *testing.T) {
	now := time.Now()
	fresh := HotScore(now.Add(-time.Hour), now, 5, 5, 5)
	old := HotScore(now.Add(-48*time.Hour), now, 5, 5, 5)
	assert.Greater(t, fresh, old)
}

func TestHotScoreFutureTimestampClamped(t *testing.T) {
	now := time.Now()
	assert.InDelta(t, 1.0/4.0, HotScore(now.Add(time.Hour), now, 1, 0, 0), 1e-9)
}

func TestHotScoreLikesOutweighViews(t *testing.T) {
	now := time.Now()
	created := now.Add(-3 * time.Hour)
	assert.Greater(t, HotScore(created, now, 0, 0, 1), HotScore(created, now, 2, 0, 0))
}
