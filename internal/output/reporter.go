// Package output renders campaign progress and the final summary.
package output

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"
)

// RampDownMessage is printed once when less than a second remains.
const RampDownMessage = "Ramping Down - Waiting for active sessions to complete..."

const clearToEnd = "\033[K"

// Status is the campaign state the reporter reads.
type Status interface {
	Remaining() time.Duration
	Launched() int64
	Active() int64
}

// ReporterConfig configures a Reporter.
type ReporterConfig struct {
	Writer io.Writer

	// Interval between reports (default 1s).
	Interval time.Duration

	// RampDownWindow is the remaining time below which the ramp-down notice
	// replaces the progress line (default 1s).
	RampDownWindow time.Duration

	// ShowActive appends the live session count to the progress line.
	ShowActive bool

	// ForceTTY rewrites the progress line in place even when Writer is not
	// a terminal.
	ForceTTY bool

	Colors *ColorScheme
}

// Reporter prints the remaining time and the cumulative launch count once
// per interval. When less than the ramp-down window remains it prints the
// ramp-down notice exactly once and stops, whether or not sessions are
// still draining.
type Reporter struct {
	status Status
	cfg    ReporterConfig
	isTTY  bool

	mu         sync.Mutex
	lastSecs   int64
	rampedDown bool
	lineOpen   bool

	startOnce sync.Once
	done      chan struct{}
}

// NewReporter creates a Reporter reading status.
func NewReporter(status Status, cfg ReporterConfig) *Reporter {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.RampDownWindow <= 0 {
		cfg.RampDownWindow = time.Second
	}
	if cfg.Colors == nil {
		cfg.Colors = SchemeFor(cfg.Writer)
	}

	return &Reporter{
		status:   status,
		cfg:      cfg,
		isTTY:    cfg.ForceTTY || IsTerminal(cfg.Writer),
		lastSecs: math.MaxInt64,
		done:     make(chan struct{}),
	}
}

// Start begins reporting in the background. The first report comes one
// interval after Start. Cancelling ctx stops the reporter early.
func (r *Reporter) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.run(ctx)
	})
}

// Done is closed once the reporter has stopped.
func (r *Reporter) Done() <-chan struct{} {
	return r.done
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeLine()
			return
		case <-ticker.C:
			if !r.Tick() {
				return
			}
		}
	}
}

// Tick emits one report. It returns false once the ramp-down notice has
// been printed; later calls print nothing.
func (r *Reporter) Tick() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rampedDown {
		return false
	}

	remaining := r.status.Remaining()
	if remaining < r.cfg.RampDownWindow {
		r.rampedDown = true
		r.writeLine(r.cfg.Colors.Warn.Sprint(RampDownMessage), true)
		return false
	}

	// Displayed seconds never go up, even if the clock source jitters.
	secs := int64(math.Round(remaining.Seconds()))
	if secs > r.lastSecs {
		secs = r.lastSecs
	}
	r.lastSecs = secs

	line := fmt.Sprintf("%s %s %s %s",
		r.cfg.Colors.Label.Sprint("Time remaining:"),
		r.cfg.Colors.Value.Sprint(secs),
		r.cfg.Colors.Label.Sprint("-- Concurrency:"),
		r.cfg.Colors.Value.Sprint(r.status.Launched()))
	if r.cfg.ShowActive {
		line += r.cfg.Colors.Label.Sprintf(" (active: %d)", r.status.Active())
	}
	r.writeLine(line, false)
	return true
}

// writeLine prints s. On a terminal the progress line is rewritten in
// place and final lines end it.
func (r *Reporter) writeLine(s string, final bool) {
	if !r.isTTY {
		fmt.Fprintln(r.cfg.Writer, s)
		return
	}
	fmt.Fprint(r.cfg.Writer, "\r"+s+clearToEnd)
	r.lineOpen = !final
	if final {
		fmt.Fprintln(r.cfg.Writer)
	}
}

func (r *Reporter) closeLine() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lineOpen {
		fmt.Fprintln(r.cfg.Writer)
		r.lineOpen = false
	}
}
