// Package session runs one simulated applicant through the online form:
// authenticate, submit every page, request an offer decision and poll it
// until the service reaches a verdict.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wesleyorama2/applyload/internal/application"
	lhttp "github.com/wesleyorama2/applyload/internal/http"
)

// State is the position of a session in its workflow.
//
// The machine is strictly linear: Unauthenticated, Authenticated,
// SubmittingSteps, AwaitingDecision, then one of the terminal states.
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateSubmittingSteps
	StateAwaitingDecision
	StateSuccess
	StateNoOffers
	StateIneligible
	// StateFailed ends a run that returned an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateSubmittingSteps:
		return "submitting-steps"
	case StateAwaitingDecision:
		return "awaiting-decision"
	case StateSuccess:
		return "success"
	case StateNoOffers:
		return "no-offers"
	case StateIneligible:
		return "ineligible"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s >= StateSuccess
}

func stateFor(status OfferStatus) State {
	switch status {
	case StatusSuccess:
		return StateSuccess
	case StatusNoOffers:
		return StateNoOffers
	case StatusIneligible:
		return StateIneligible
	default:
		return StateFailed
	}
}

// Options configures a Session.
type Options struct {
	BaseURL    string
	Product    string
	Brand      string
	ArrivalURL string
	OfferType  string

	// StepDwell is the pause before and after each page submission.
	StepDwell time.Duration

	Poll PollPolicy

	// RequestTimeout bounds each request (0 = none). Ignored when
	// HTTPClient is set; the shared client carries its own timeout.
	RequestTimeout time.Duration

	ValidateResponses bool

	// HTTPClient is shared by sessions for connection pooling. Nil gets a
	// fresh client per session.
	HTTPClient *http.Client

	// Limiter, when set, paces every request of the session.
	Limiter lhttp.Limiter

	Logger *slog.Logger

	// Seed for the step generator (0 = random).
	Seed uint64
}

// DefaultOptions returns the options of the stock sandbox campaign.
func DefaultOptions() Options {
	return Options{
		BaseURL:           "https://api.sandbox.onthebarrelhead.com/api/v1",
		Product:           "PersonalLoanPro",
		Brand:             "PersonalLoanPro",
		ArrivalURL:        "https://loadtest",
		OfferType:         "PERSONAL_LOAN",
		StepDwell:         time.Second,
		Poll:              DefaultPollPolicy(),
		ValidateResponses: true,
	}
}

// Session is a single simulated applicant. A Session runs once; a new one
// is created for every run.
type Session struct {
	id        string
	opts      Options
	api       *API
	generator *application.Generator
	logger    *slog.Logger

	state    atomic.Int32
	handle   *Handle
	decision *OfferDecision

	// sleep pauses for d or until ctx ends.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Session in the Unauthenticated state.
func New(opts Options) *Session {
	id := uuid.NewString()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With(slog.String("session", id))

	clientOpts := []lhttp.ClientOption{
		lhttp.WithBaseURL(opts.BaseURL),
		lhttp.WithHTTPClient(opts.HTTPClient),
		lhttp.WithHeader("X-Load-Session", id),
		lhttp.WithLogger(logger),
	}
	if opts.HTTPClient == nil && opts.RequestTimeout > 0 {
		clientOpts = append(clientOpts, lhttp.WithTimeout(opts.RequestTimeout))
	}
	if opts.Limiter != nil {
		clientOpts = append(clientOpts, lhttp.WithLimiter(opts.Limiter))
	}

	if opts.Poll.Interval <= 0 {
		opts.Poll.Interval = DefaultPollPolicy().Interval
	}

	return &Session{
		id:        id,
		opts:      opts,
		api:       NewAPI(lhttp.NewClient(clientOpts...), opts.ValidateResponses),
		generator: application.NewGenerator(opts.Seed),
		logger:    logger,
		sleep:     sleepContext,
	}
}

// ID returns the run identifier used in logs and the X-Load-Session header.
func (s *Session) ID() string {
	return s.id
}

// State returns the current workflow state. Safe for concurrent use.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Handle returns the authenticated session handle, or nil before authentication.
func (s *Session) Handle() *Handle {
	return s.handle
}

// Decision returns the terminal decision, or nil if none was reached.
func (s *Session) Decision() *OfferDecision {
	return s.decision
}

// Run executes the whole workflow and returns the terminal decision.
//
// Requests are never retried: the first failure ends the run and is
// returned wrapped in ErrAuthentication or ErrSubmission. Only a PROCESSING
// decision is fetched again, as allowed by the poll policy.
func (s *Session) Run(ctx context.Context) (*OfferDecision, error) {
	if s.State() != StateUnauthenticated {
		return nil, fmt.Errorf("session %s already ran (state %s)", s.id, s.State())
	}

	decision, err := s.run(ctx)
	if err != nil {
		s.transition(StateFailed)
		return nil, err
	}

	s.decision = decision
	s.transition(stateFor(decision.Status))
	return decision, nil
}

func (s *Session) run(ctx context.Context) (*OfferDecision, error) {
	handle, err := s.api.CreateSession(ctx, CreateSessionRequest{
		Product:    s.opts.Product,
		Brand:      s.opts.Brand,
		ArrivalURL: s.opts.ArrivalURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	s.handle = handle
	s.transition(StateAuthenticated)

	steps := s.generator.Steps()
	s.transition(StateSubmittingSteps)
	for i, step := range steps {
		if err := s.submitStep(ctx, step); err != nil {
			return nil, fmt.Errorf("%w: step %d (%s): %w", ErrSubmission, i+1, step.PageView, err)
		}
	}

	merged, err := s.api.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch merged session: %w", ErrSubmission, err)
	}

	pending, err := s.api.RequestOffer(ctx, s.opts.OfferType, merged.Application)
	if err != nil {
		return nil, fmt.Errorf("%w: request offer: %w", ErrSubmission, err)
	}
	s.transition(StateAwaitingDecision)

	if err := s.api.Verify(ctx); err != nil {
		return nil, fmt.Errorf("%w: verify: %w", ErrSubmission, err)
	}

	return s.awaitDecision(ctx, pending.ID)
}

// submitStep reports the page view, dwells, posts the fragment, re-reads
// the session and dwells again. A fragment with a value outside its domain
// is never sent.
func (s *Session) submitStep(ctx context.Context, step application.Step) error {
	if err := step.Fragment.Validate(); err != nil {
		return err
	}
	event := Event{Event: "ui:pageView", Data: map[string]interface{}{"path": step.PageView}}
	if err := s.api.EmitEvent(ctx, event); err != nil {
		return err
	}
	if err := s.sleep(ctx, s.opts.StepDwell); err != nil {
		return err
	}
	if err := s.api.StoreApplication(ctx, step.Fragment); err != nil {
		return err
	}
	if _, err := s.api.GetSession(ctx); err != nil {
		return err
	}
	return s.sleep(ctx, s.opts.StepDwell)
}

// awaitDecision fetches the offer request until it leaves PROCESSING.
func (s *Session) awaitDecision(ctx context.Context, id int64) (*OfferDecision, error) {
	policy := s.opts.Poll
	started := time.Now()

	for attempt := 1; ; attempt++ {
		decision, err := s.api.GetOfferRequest(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: poll offer request %d: %w", ErrSubmission, id, err)
		}
		if decision.Status.Terminal() {
			s.logger.Debug("decision reached",
				slog.Int64("offerRequest", id),
				slog.String("status", string(decision.Status)),
				slog.Int("polls", attempt))
			return decision, nil
		}

		if policy.exhausted(attempt, started, time.Now()) {
			return nil, fmt.Errorf("%w: offer request %d still %s after %d polls in %s",
				ErrDecisionTimeout, id, decision.Status, attempt, time.Since(started).Round(time.Millisecond))
		}
		if err := s.sleep(ctx, policy.Interval); err != nil {
			return nil, fmt.Errorf("%w: poll offer request %d: %w", ErrSubmission, id, err)
		}
	}
}

func (s *Session) transition(next State) {
	prev := State(s.state.Swap(int32(next)))
	s.logger.Debug("state", slog.String("from", prev.String()), slog.String("to", next.String()))
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
