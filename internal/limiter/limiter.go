package limiter

import (
	"runtime"
	"time"
)

// CPULimiter spreads traversal work so a long walk stays near a CPU budget.
// The walker calls Throttle once per visited directory.
type CPULimiter struct {
	maxPercent float64
	workSlice  time.Duration
	lastSleep  time.Time
	sleep      func(time.Duration)
}

// NewCPULimiter creates a new CPU limiter. A budget of 0 or >= 100 disables
// throttling.
func NewCPULimiter(maxPercent float64) *CPULimiter {
	return &CPULimiter{
		maxPercent: maxPercent,
		workSlice:  10 * time.Millisecond,
		lastSleep:  time.Now(),
		sleep:      time.Sleep,
	}
}

// Enabled reports whether the limiter will ever pause.
func (l *CPULimiter) Enabled() bool {
	return l != nil && l.maxPercent > 0 && l.maxPercent < 100
}

// Pause returns how long Throttle sleeps after one work slice.
func (l *CPULimiter) Pause() time.Duration {
	if !l.Enabled() {
		return 0
	}
	return time.Duration(float64(l.workSlice) * ((100.0 - l.maxPercent) / l.maxPercent))
}

// Throttle sleeps once a work slice has elapsed since the last pause.
func (l *CPULimiter) Throttle() {
	if !l.Enabled() {
		return
	}

	if time.Since(l.lastSleep) > l.workSlice {
		l.sleep(l.Pause())
		l.lastSleep = time.Now()
	}

	runtime.Gosched()
}

// SetMaxPercent updates the maximum CPU percentage
func (l *CPULimiter) SetMaxPercent(maxPercent float64) {
	l.maxPercent = maxPercent
}
