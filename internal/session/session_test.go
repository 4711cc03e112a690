package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/applyload/internal/application"
	"github.com/wesleyorama2/applyload/internal/mockapi"
)

// pauseRecorder replaces Session.sleep so tests observe dwell and poll
// pauses without waiting for them.
type pauseRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (p *pauseRecorder) sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.pauses = append(p.pauses, d)
	p.mu.Unlock()
	return ctx.Err()
}

func (p *pauseRecorder) count(d time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, pause := range p.pauses {
		if pause == d {
			n++
		}
	}
	return n
}

func newTestSession(t *testing.T, cfg mockapi.Config, modify func(*Options)) (*Session, *mockapi.Server, *pauseRecorder) {
	t.Helper()

	api := mockapi.New(cfg)
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	opts := DefaultOptions()
	opts.BaseURL = server.URL
	opts.Seed = 42
	if modify != nil {
		modify(&opts)
	}

	s := New(opts)
	recorder := &pauseRecorder{}
	s.sleep = recorder.sleep
	return s, api, recorder
}

func TestSession_Run(t *testing.T) {
	s, api, pauses := newTestSession(t, mockapi.Config{PendingPolls: 2, Outcome: "SUCCESS"}, nil)

	decision, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, decision.Status)
	assert.Equal(t, StateSuccess, s.State())
	assert.Equal(t, decision, s.Decision())
	require.NotNil(t, s.Handle())
	assert.NotEmpty(t, s.Handle().Token)

	steps := len(application.PageViews)
	assert.Equal(t, 1, api.Calls(mockapi.CreateSession))
	assert.Equal(t, steps, api.Calls(mockapi.PostEvent))
	assert.Equal(t, steps, api.Calls(mockapi.PostApplication))
	assert.Equal(t, steps+1, api.Calls(mockapi.GetSession))
	assert.Equal(t, 1, api.Calls(mockapi.PostOffer))
	assert.Equal(t, 1, api.Calls(mockapi.PostVerify))

	// PROCESSING twice then SUCCESS: three fetches, two poll pauses.
	assert.Equal(t, 3, api.Calls(mockapi.GetOffer))
	assert.Equal(t, 2, pauses.count(500*time.Millisecond))
	assert.Equal(t, 2*steps, pauses.count(time.Second))

	assert.Equal(t, application.PageViews, api.Events(s.Handle().Token))
}

func TestSession_RunSubmitsMergedApplication(t *testing.T) {
	s, api, _ := newTestSession(t, mockapi.Config{Outcome: "INELIGIBLE"}, nil)

	decision, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusIneligible, decision.Status)
	assert.Equal(t, StateIneligible, s.State())

	app := api.Application(s.Handle().Token)
	require.NotNil(t, app)
	assert.Equal(t, "MEDICAL", app["personalLoanPurpose"])
	assert.Contains(t, app, "requestAmount")

	applicant, ok := app["applicant"].(map[string]interface{})
	require.True(t, ok)
	for _, field := range []string{"firstName", "lastName", "email", "birthDate", "socialSecurityNumber", "address"} {
		assert.Contains(t, applicant, field)
	}
	address := applicant["address"].(map[string]interface{})
	assert.Contains(t, address, "zipCode")
	assert.Contains(t, address, "line1")
}

func TestSession_ImmediateDecisionDoesNotPause(t *testing.T) {
	s, api, pauses := newTestSession(t, mockapi.Config{Outcome: "NO_OFFERS"}, nil)

	decision, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusNoOffers, decision.Status)
	assert.Equal(t, StateNoOffers, s.State())
	assert.Equal(t, 1, api.Calls(mockapi.GetOffer))
	assert.Equal(t, 0, pauses.count(500*time.Millisecond))
}

func TestSession_AuthenticationFailure(t *testing.T) {
	s, api, _ := newTestSession(t, mockapi.Config{
		Fail: map[string]int{mockapi.CreateSession: http.StatusUnauthorized},
	}, nil)

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthentication))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	assert.Equal(t, StateFailed, s.State())
	assert.Nil(t, s.Handle())
	assert.Equal(t, 0, api.Calls(mockapi.PostEvent))
}

func TestSession_StepFailureIsNotRetried(t *testing.T) {
	s, api, _ := newTestSession(t, mockapi.Config{
		Fail: map[string]int{mockapi.PostApplication: http.StatusInternalServerError},
	}, nil)

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmission))
	assert.Contains(t, err.Error(), "step 1 (personal-loan-purpose)")

	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, 1, api.Calls(mockapi.PostApplication))
	assert.Equal(t, 0, api.Calls(mockapi.PostOffer))
}

func TestSession_VerifyFailure(t *testing.T) {
	s, api, _ := newTestSession(t, mockapi.Config{
		Fail: map[string]int{mockapi.PostVerify: http.StatusBadGateway},
	}, nil)

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmission))
	assert.Equal(t, 0, api.Calls(mockapi.GetOffer))
}

func TestSession_PollAttemptsExhausted(t *testing.T) {
	s, api, pauses := newTestSession(t, mockapi.Config{PendingPolls: 100}, func(o *Options) {
		o.Poll.MaxAttempts = 4
	})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecisionTimeout))
	assert.False(t, errors.Is(err, ErrSubmission))

	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, 4, api.Calls(mockapi.GetOffer))
	assert.Equal(t, 3, pauses.count(500*time.Millisecond))
}

func TestSession_Cancelled(t *testing.T) {
	s, api, _ := newTestSession(t, mockapi.Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, api.Calls(mockapi.CreateSession))
}

func TestSession_RunsOnce(t *testing.T) {
	s, _, _ := newTestSession(t, mockapi.Config{Outcome: "SUCCESS"}, nil)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateSuccess, s.State())
}

func TestSession_SendsSessionHeader(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}

	api := mockapi.New(mockapi.Config{Outcome: "SUCCESS"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Header.Get("X-Load-Session")] = true
		mu.Unlock()
		api.ServeHTTP(w, r)
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.BaseURL = server.URL
	s := New(opts)
	s.sleep = (&pauseRecorder{}).sleep

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]bool{s.ID(): true}, seen)
}

func TestState(t *testing.T) {
	tests := []struct {
		state    State
		name     string
		terminal bool
	}{
		{StateUnauthenticated, "unauthenticated", false},
		{StateAuthenticated, "authenticated", false},
		{StateSubmittingSteps, "submitting-steps", false},
		{StateAwaitingDecision, "awaiting-decision", false},
		{StateSuccess, "success", true},
		{StateNoOffers, "no-offers", true},
		{StateIneligible, "ineligible", true},
		{StateFailed, "failed", true},
		{State(99), "unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.state.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() error = %v, want context.Canceled", err)
	}
}

func TestSession_SubmitStepRejectsOutOfDomainValues(t *testing.T) {
	s, api, pauses := newTestSession(t, mockapi.Config{}, nil)

	step := application.Step{
		PageView: "personal-loan-purpose",
		Fragment: application.Application{PersonalLoanPurpose: application.Ptr(application.PersonalLoanPurpose("YACHT"))},
	}
	err := s.submitStep(context.Background(), step)

	var domainErr *application.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, []string{"personalLoanPurpose"}, domainErr.Fields)
	assert.Zero(t, api.Calls(mockapi.PostEvent))
	assert.Zero(t, api.Calls(mockapi.PostApplication))
	assert.Zero(t, pauses.count(time.Second))
}
