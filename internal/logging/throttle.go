package logging

import "time"

// Throttle bounds how often a repeating event is reported. Every call inside
// the burst window after Reset is allowed; afterwards at most one call per
// interval is. A Throttle is not safe for concurrent use.
type Throttle struct {
	interval time.Duration
	burst    time.Duration
	started  time.Time
	last     time.Time
}

// NewThrottle returns a throttle with the given interval and initial burst window.
func NewThrottle(interval, burst time.Duration) *Throttle {
	if interval <= 0 {
		interval = time.Second
	}
	if burst < 0 {
		burst = 0
	}
	return &Throttle{interval: interval, burst: burst}
}

// Reset starts a new reporting window at now.
func (t *Throttle) Reset(now time.Time) {
	if t == nil {
		return
	}
	t.started = now
	t.last = time.Time{}
}

// Allow reports whether an event at now should be emitted.
func (t *Throttle) Allow(now time.Time) bool {
	if t == nil {
		return true
	}
	if t.started.IsZero() {
		t.started = now
	}
	if now.Sub(t.started) < t.burst {
		t.last = now
		return true
	}
	if t.last.IsZero() || now.Sub(t.last) >= t.interval {
		t.last = now
		return true
	}
	return false
}
