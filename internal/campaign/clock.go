package campaign

import (
	"sync/atomic"
	"time"
)

// Clock measures a campaign against its configured duration. It is started
// exactly once; before that it reports zero elapsed time.
//
// Clock is safe for one writer and any number of readers.
type Clock struct {
	duration  time.Duration
	startedAt atomic.Pointer[time.Time]
}

// NewClock returns an unstarted clock for a campaign of duration d.
func NewClock(d time.Duration) *Clock {
	return &Clock{duration: d}
}

// Start records now as the start time. Only the first call has an effect;
// it reports whether this call started the clock.
func (c *Clock) Start(now time.Time) bool {
	return c.startedAt.CompareAndSwap(nil, &now)
}

// Started reports whether Start has been called.
func (c *Clock) Started() bool {
	return c.startedAt.Load() != nil
}

// StartedAt returns the start time, or the zero time when not started.
func (c *Clock) StartedAt() time.Time {
	if t := c.startedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// Duration returns the configured campaign duration.
func (c *Clock) Duration() time.Duration {
	return c.duration
}

// Elapsed returns the time since start, or zero when not started.
func (c *Clock) Elapsed(now time.Time) time.Duration {
	t := c.startedAt.Load()
	if t == nil {
		return 0
	}
	if elapsed := now.Sub(*t); elapsed > 0 {
		return elapsed
	}
	return 0
}

// Remaining returns the duration minus the elapsed time. It goes negative
// once the campaign has overrun.
func (c *Clock) Remaining(now time.Time) time.Duration {
	return c.duration - c.Elapsed(now)
}

// Expired reports whether the clock has run for at least its duration.
func (c *Clock) Expired(now time.Time) bool {
	return c.Started() && c.Elapsed(now) >= c.duration
}
