package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lhttp "github.com/wesleyorama2/applyload/internal/http"
)

func newStaticAPI(t *testing.T, status int, body string, validate bool) *API {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewAPI(lhttp.NewClient(lhttp.WithBaseURL(server.URL)), validate)
}

func TestAPI_CreateSessionStoresToken(t *testing.T) {
	var (
		mu   sync.Mutex
		auth []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 7, "token": "abc"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id": 7, "application": {}}`))
	}))
	defer server.Close()

	api := NewAPI(lhttp.NewClient(lhttp.WithBaseURL(server.URL)), true)

	handle, err := api.CreateSession(context.Background(), CreateSessionRequest{Product: "p", Brand: "b"})
	require.NoError(t, err)
	assert.Equal(t, &Handle{ID: 7, Token: "abc"}, handle)

	_, err = api.GetSession(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "Bearer abc"}, auth)
}

func TestAPI_SchemaValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		validate bool
		wantErr  string
	}{
		{
			name:     "valid processing",
			body:     `{"id": 1, "status": "PROCESSING"}`,
			validate: true,
		},
		{
			name:     "unknown status rejected by schema",
			body:     `{"id": 1, "status": "MAYBE"}`,
			validate: true,
			wantErr:  "/status",
		},
		{
			name:     "unknown status rejected without schema",
			body:     `{"id": 1, "status": "MAYBE"}`,
			validate: false,
			wantErr:  `unknown status "MAYBE"`,
		},
		{
			name:     "string id rejected by schema",
			body:     `{"id": "1", "status": "SUCCESS"}`,
			validate: true,
			wantErr:  "/id",
		},
		{
			name:     "missing fields",
			body:     `{}`,
			validate: false,
			wantErr:  "missing id or status",
		},
		{
			name:     "not JSON",
			body:     `<html>`,
			validate: true,
			wantErr:  "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newStaticAPI(t, http.StatusOK, tt.body, tt.validate)

			_, err := api.GetOfferRequest(context.Background(), 1)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			var protocolErr *ProtocolError
			require.True(t, errors.As(err, &protocolErr), "error = %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAPI_StatusError(t *testing.T) {
	api := newStaticAPI(t, http.StatusTooManyRequests, strings.Repeat("x", 300), false)

	err := api.Verify(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.MethodPost, statusErr.Method)
	assert.Equal(t, "session/verify", statusErr.Path)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Len(t, statusErr.Body, 203)
}

func TestAPI_CreateSessionMissingToken(t *testing.T) {
	api := newStaticAPI(t, http.StatusCreated, `{"id": 1, "token": ""}`, false)

	_, err := api.CreateSession(context.Background(), CreateSessionRequest{})

	var protocolErr *ProtocolError
	require.True(t, errors.As(err, &protocolErr))
	assert.Equal(t, []string{"missing token"}, protocolErr.Problems)
}

func TestPollPolicy_Exhausted(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		policy   PollPolicy
		attempts int
		elapsed  time.Duration
		want     bool
	}{
		{"unbounded", DefaultPollPolicy(), 1000, time.Hour, false},
		{"below max attempts", PollPolicy{Interval: time.Second, MaxAttempts: 3}, 2, 0, false},
		{"at max attempts", PollPolicy{Interval: time.Second, MaxAttempts: 3}, 3, 0, true},
		{"next fetch within timeout", PollPolicy{Interval: time.Second, Timeout: 5 * time.Second}, 1, 3 * time.Second, false},
		{"next fetch past timeout", PollPolicy{Interval: time.Second, Timeout: 5 * time.Second}, 1, 4500 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.exhausted(tt.attempts, start, start.Add(tt.elapsed))
			if got != tt.want {
				t.Errorf("exhausted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOfferStatus_Terminal(t *testing.T) {
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusNoOffers.Terminal())
	assert.True(t, StatusIneligible.Terminal())
	assert.False(t, OfferStatus("").Terminal())
}

func TestErrorMessages(t *testing.T) {
	statusErr := &StatusError{Method: "GET", Path: "session", StatusCode: 500}
	assert.Equal(t, "GET session: unexpected status 500", statusErr.Error())

	protocolErr := &ProtocolError{Path: "session", Problems: []string{"a", "b"}}
	assert.Equal(t, "session: malformed response: a; b", protocolErr.Error())
}
