// Package throttle caps the request rate of a whole campaign.
package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// LeakyBucket spaces requests evenly at a fixed rate.
//
// The bucket keeps the time of the last admitted request and credits
// elapsed time as fractional admissions, capped at the burst size. A caller
// with a full credit goes immediately; otherwise it is handed the instant
// its deficit is paid off. Every session shares one bucket, so the limit
// holds across the campaign rather than per session.
//
// LeakyBucket is safe for concurrent use.
type LeakyBucket struct {
	mu       sync.Mutex
	rate     float64
	burst    float64
	credit   float64
	lastDrip time.Time
	now      func() time.Time

	admitted atomic.Int64
	waited   atomic.Int64
}

// NewLeakyBucket returns a bucket admitting rps requests per second with
// no bursting. A non-positive rps is treated as 1.
func NewLeakyBucket(rps float64) *LeakyBucket {
	return newLeakyBucketWithBurst(rps, 1)
}

// newLeakyBucketWithBurst returns a bucket that lets up to burst requests
// through back to back after an idle period.
func newLeakyBucketWithBurst(rps, burst float64) *LeakyBucket {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &LeakyBucket{
		rate:     rps,
		burst:    burst,
		lastDrip: time.Now(),
		now:      time.Now,
	}
}

// Reserve admits one request and returns when it may be sent. The result
// is never before now.
func (b *LeakyBucket) Reserve() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if elapsed := now.Sub(b.lastDrip).Seconds(); elapsed > 0 {
		b.credit += elapsed * b.rate
	}
	if b.credit > b.burst {
		b.credit = b.burst
	}
	b.admitted.Add(1)

	if b.credit >= 1 {
		b.credit--
		b.lastDrip = now
		return now
	}

	// Reservations queue behind one another; lastDrip moves to the reserved
	// instant so the wait is not credited back to the next caller.
	base := now
	if b.lastDrip.After(base) {
		base = b.lastDrip
	}
	at := base.Add(time.Duration((1 - b.credit) / b.rate * float64(time.Second)))
	b.credit = 0
	b.lastDrip = at
	b.waited.Add(int64(at.Sub(now)))
	return at
}

// Wait blocks until the next request may be sent or ctx ends.
func (b *LeakyBucket) Wait(ctx context.Context) error {
	d := time.Until(b.Reserve())
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Rate returns the configured requests per second.
func (b *LeakyBucket) Rate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

// Stats reports the configured rate, how many requests were admitted and
// how long they were held back in total.
func (b *LeakyBucket) Stats() Stats {
	return Stats{
		Rate:     b.Rate(),
		Admitted: b.admitted.Load(),
		Waited:   time.Duration(b.waited.Load()),
	}
}

// Stats summarizes a bucket's activity.
type Stats struct {
	Rate     float64       `json:"rate"`
	Admitted int64         `json:"admitted"`
	Waited   time.Duration `json:"waited"`
}
