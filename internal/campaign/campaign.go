// Package campaign schedules simulated sessions over a fixed duration.
//
// A campaign ramps up a number of slots, one per ramp delay. Each slot runs
// sessions back to back: when one finishes and time remains, the slot
// immediately starts a replacement; otherwise the slot drains. The campaign
// ends by time expiry only, never by a session budget.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/applyload/internal/session"
	"github.com/wesleyorama2/applyload/internal/throttle"
)

// RampDownWindow is how much remaining time marks the start of ramp-down.
const RampDownWindow = time.Second

// ErrAlreadyStarted is returned by Start on a campaign that was started before.
var ErrAlreadyStarted = errors.New("campaign already started")

// Runner executes one simulated session. *session.Session implements it.
type Runner interface {
	Run(ctx context.Context) (*session.OfferDecision, error)
}

// Factory returns a fresh Runner for every launch.
type Factory func() Runner

// SessionFactory returns a Factory creating sessions with opts.
func SessionFactory(opts session.Options) Factory {
	return func() Runner {
		return session.New(opts)
	}
}

// Config sizes a campaign.
type Config struct {
	// Sessions is the number of slots launched during ramp-up.
	Sessions int

	// Duration is how long finished sessions are replaced.
	Duration time.Duration

	// RampDelay separates consecutive launches during ramp-up.
	RampDelay time.Duration
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.Sessions < 0 {
		return fmt.Errorf("sessions must be >= 0, got %d", c.Sessions)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be > 0, got %s", c.Duration)
	}
	if c.RampDelay < 0 {
		return fmt.Errorf("ramp delay must be >= 0, got %s", c.RampDelay)
	}
	return nil
}

// Option configures a Campaign.
type Option func(*Campaign)

// WithLogger sets the logger for lifecycle and session failure events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Campaign) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnStart registers fn to run right after the clock starts and before
// the first launch. The progress reporter is attached this way.
func WithOnStart(fn func(*Campaign)) Option {
	return func(c *Campaign) {
		c.onStart = append(c.onStart, fn)
	}
}

// WithThrottle reports the stats of the campaign-wide request limiter in
// snapshots. A nil bucket is ignored.
func WithThrottle(bucket *throttle.LeakyBucket) Option {
	return func(c *Campaign) {
		if bucket != nil {
			c.throttle = bucket
		}
	}
}

// Campaign owns the clock, the launch counters and every slot goroutine.
type Campaign struct {
	id      string
	cfg     Config
	factory Factory
	logger  *slog.Logger
	clock   *Clock
	onStart []func(*Campaign)

	throttle *throttle.LeakyBucket

	launched  atomic.Int64
	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64

	outcomesMu sync.Mutex
	outcomes   map[session.OfferStatus]int64

	started     atomic.Bool
	interrupted atomic.Bool
	ctxMu       sync.Mutex
	ctxDone     <-chan struct{}
	watched     chan struct{}
	rampDone atomic.Bool
	drained  atomic.Bool
	finished time.Time

	wg   sync.WaitGroup
	done chan struct{}
}

// New creates a campaign that launches sessions from factory.
func New(cfg Config, factory Factory, opts ...Option) (*Campaign, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, errors.New("campaign: nil session factory")
	}

	c := &Campaign{
		id:       uuid.NewString(),
		cfg:      cfg,
		factory:  factory,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    NewClock(cfg.Duration),
		outcomes: make(map[session.OfferStatus]int64),
		done:     make(chan struct{}),
		watched:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("campaign", c.id))
	return c, nil
}

// Start starts the clock, runs the OnStart hooks and launches the
// configured number of slots, one per ramp delay. It returns once every
// launch has been issued, without waiting for sessions to finish.
//
// Cancelling ctx stops further launches and relaunches and aborts the
// sessions in flight at their next request or pause.
func (c *Campaign) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	c.clock.Start(time.Now())
	c.logger.Info("campaign started",
		slog.Int("sessions", c.cfg.Sessions),
		slog.Duration("duration", c.cfg.Duration),
		slog.Duration("rampDelay", c.cfg.RampDelay))

	for _, fn := range c.onStart {
		fn(c)
	}

	c.ctxMu.Lock()
	c.ctxDone = ctx.Done()
	c.ctxMu.Unlock()
	go c.watchInterrupt(ctx)

	// A single-token bucket: the first launch is immediate, each later one
	// waits a full ramp delay.
	cadence := rate.NewLimiter(rate.Every(c.cfg.RampDelay), 1)

	for i := 0; i < c.cfg.Sessions; i++ {
		if err := cadence.Wait(ctx); err != nil {
			c.logger.Info("ramp-up interrupted", slog.Int("launched", i), slog.String("reason", err.Error()))
			break
		}

		c.launched.Add(1)
		c.wg.Add(1)
		go c.runSlot(ctx, i)
	}

	c.rampDone.Store(true)
	go c.awaitDrain()
	return nil
}

// Wait blocks until every slot has drained. It returns immediately on a
// campaign that was never started.
func (c *Campaign) Wait() {
	if !c.started.Load() {
		return
	}
	<-c.done
}

// Done is closed once every slot has drained.
func (c *Campaign) Done() <-chan struct{} {
	return c.done
}

// Run starts the campaign and waits for it to drain.
func (c *Campaign) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	c.Wait()
	return nil
}

// watchInterrupt marks the campaign interrupted when ctx ends before the
// clock expires.
func (c *Campaign) watchInterrupt(ctx context.Context) {
	defer close(c.watched)

	timer := time.NewTimer(c.clock.Remaining(time.Now()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		if !c.clock.Expired(time.Now()) {
			c.interrupted.Store(true)
		}
	case <-timer.C:
	}
}

// Interrupted reports whether the campaign was cancelled before its
// duration ran out.
func (c *Campaign) Interrupted() bool {
	c.ctxMu.Lock()
	ctxDone := c.ctxDone
	c.ctxMu.Unlock()
	if ctxDone == nil {
		return false
	}

	// Once ctx has ended, let the watcher record whether it beat the clock.
	select {
	case <-ctxDone:
		<-c.watched
	default:
	}
	return c.interrupted.Load()
}

func (c *Campaign) awaitDrain() {
	c.wg.Wait()
	c.finished = time.Now()
	c.drained.Store(true)
	c.logger.Info("campaign drained",
		slog.Int64("launched", c.launched.Load()),
		slog.Int64("completed", c.completed.Load()),
		slog.Int64("failed", c.failed.Load()))
	close(c.done)
}

// runSlot runs sessions back to back until time runs out or ctx ends. The
// first launch was already counted by Start.
func (c *Campaign) runSlot(ctx context.Context, slot int) {
	defer c.wg.Done()

	for {
		c.runOnce(ctx, slot)

		if ctx.Err() != nil || c.clock.Expired(time.Now()) {
			return
		}
		c.launched.Add(1)
	}
}

// runOnce runs one session, classifying its result. Failures and panics are
// contained to the session.
func (c *Campaign) runOnce(ctx context.Context, slot int) {
	c.active.Add(1)
	defer c.active.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			c.failed.Add(1)
			c.logger.Error("session panicked",
				slog.Int("slot", slot),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	runner := c.factory()
	decision, err := runner.Run(ctx)

	switch {
	case err != nil && ctx.Err() != nil:
		c.cancelled.Add(1)
	case err != nil:
		c.failed.Add(1)
		attrs := []any{slog.Int("slot", slot), slog.String("error", err.Error())}
		if id, ok := runner.(interface{ ID() string }); ok {
			attrs = append(attrs, slog.String("session", id.ID()))
		}
		c.logger.Warn("session failed", attrs...)
	default:
		c.completed.Add(1)
		if decision != nil {
			c.outcomesMu.Lock()
			c.outcomes[decision.Status]++
			c.outcomesMu.Unlock()
		}
	}
}

// ID returns the campaign's run identifier.
func (c *Campaign) ID() string {
	return c.id
}

// Clock returns the campaign clock.
func (c *Campaign) Clock() *Clock {
	return c.clock
}

// Elapsed returns the time since start, zero before Start.
func (c *Campaign) Elapsed() time.Duration {
	return c.clock.Elapsed(time.Now())
}

// Remaining returns the time left before sessions stop being replaced.
func (c *Campaign) Remaining() time.Duration {
	return c.clock.Remaining(time.Now())
}

// Launched returns the cumulative number of session launches. It never
// decreases; this is the "concurrency" shown by the progress line.
func (c *Campaign) Launched() int64 {
	return c.launched.Load()
}

// Active returns the number of sessions running right now.
func (c *Campaign) Active() int64 {
	return c.active.Load()
}

// Completed returns the number of sessions that reached a decision.
func (c *Campaign) Completed() int64 {
	return c.completed.Load()
}

// Failed returns the number of sessions that returned an error or panicked.
func (c *Campaign) Failed() int64 {
	return c.failed.Load()
}

// Phase returns the campaign's current phase.
func (c *Campaign) Phase() Phase {
	switch {
	case !c.clock.Started():
		return PhaseInit
	case c.drained.Load():
		return PhaseDone
	case c.Remaining() < RampDownWindow:
		return PhaseRampDown
	case !c.rampDone.Load():
		return PhaseRampUp
	default:
		return PhaseSteady
	}
}

// Snapshot is a point-in-time copy of the campaign's counters.
type Snapshot struct {
	ID        string                        `json:"id"`
	Phase     Phase                         `json:"phase"`
	StartedAt time.Time                     `json:"startedAt"`
	Elapsed   time.Duration                 `json:"elapsed"`
	Remaining time.Duration                 `json:"remaining"`
	WallTime  time.Duration                 `json:"wallTime"`
	Launched  int64                         `json:"launched"`
	Active    int64                         `json:"active"`
	Completed int64                         `json:"completed"`
	Failed    int64                         `json:"failed"`
	Cancelled int64                         `json:"cancelled"`
	Outcomes  map[session.OfferStatus]int64 `json:"outcomes"`

	// Interrupted is set when the campaign was cancelled before its
	// duration ran out.
	Interrupted bool `json:"interrupted"`

	// Throttle holds the request limiter stats, nil without a rate cap.
	Throttle *throttle.Stats `json:"throttle,omitempty"`
}

// Snapshot returns the current counters.
func (c *Campaign) Snapshot() Snapshot {
	now := time.Now()

	c.outcomesMu.Lock()
	outcomes := make(map[session.OfferStatus]int64, len(c.outcomes))
	for status, n := range c.outcomes {
		outcomes[status] = n
	}
	c.outcomesMu.Unlock()

	snap := Snapshot{
		ID:        c.id,
		Phase:     c.Phase(),
		StartedAt: c.clock.StartedAt(),
		Elapsed:   c.clock.Elapsed(now),
		Remaining: c.clock.Remaining(now),
		Launched:  c.launched.Load(),
		Active:    c.active.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
		Cancelled: c.cancelled.Load(),
		Outcomes:  outcomes,

		Interrupted: c.Interrupted(),
	}
	if c.throttle != nil {
		stats := c.throttle.Stats()
		snap.Throttle = &stats
	}
	if snap.Phase == PhaseDone {
		snap.WallTime = c.finished.Sub(snap.StartedAt)
	} else if c.clock.Started() {
		snap.WallTime = snap.Elapsed
	}
	return snap
}
