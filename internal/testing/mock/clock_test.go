package mock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_Advance(t *testing.T) {
	start := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	clock := NewClock(start)
	assert.Equal(t, start, clock.Now())

	got := clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), got)
	assert.Equal(t, got, clock.Now())
}

func TestNewClock_ZeroStartsAtEpoch(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestClock_NowIsFrozen(t *testing.T) {
	clock := NewClock(time.Time{})
	first := clock.Now()
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, first, clock.Now())
}
