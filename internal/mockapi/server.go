// Package mockapi is an in-memory stand-in for the loan form service. It
// implements the session, event, application, offer request and verify
// endpoints closely enough to drive complete simulated sessions locally and
// in tests.
package mockapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Endpoint names, as counted by Server.Calls and keyed in Config.Fail.
const (
	CreateSession   = "POST /session"
	GetSession      = "GET /session"
	PostEvent       = "POST /session/events"
	PostApplication = "POST /session/application"
	PostOffer       = "POST /session/offerRequests"
	PostVerify      = "POST /session/verify"
	GetOffer        = "GET /session/offerRequests/{id}"
)

var terminalStatuses = []string{"SUCCESS", "NO_OFFERS", "INELIGIBLE"}

// Config controls the fake service's behavior.
type Config struct {
	// PendingPolls is how many times an offer request answers PROCESSING
	// before it resolves.
	PendingPolls int

	// Outcome is the terminal status of every offer request. Empty picks
	// one of SUCCESS, NO_OFFERS, INELIGIBLE at random.
	Outcome string

	// Latency is added to every response.
	Latency time.Duration

	// Fail maps an endpoint to the status code it always answers with.
	Fail map[string]int

	// FailRate is the probability that any authenticated request answers 500.
	FailRate float64

	Logger *slog.Logger
}

type formSession struct {
	id          int64
	application map[string]interface{}
	events      []string
}

type offerRequest struct {
	id      int64
	token   string
	polls   int
	outcome string
}

// Server implements the fake service as an http.Handler.
type Server struct {
	cfg    Config
	router chi.Router
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*formSession
	offers   map[int64]*offerRequest
	calls    map[string]int
	rng      *rand.Rand

	nextID atomic.Int64
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		sessions: make(map[string]*formSession),
		offers:   make(map[int64]*offerRequest),
		calls:    make(map[string]int),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	s.router.Route("/session", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.authenticated(GetSession, s.handleGetSession))
		r.Post("/events", s.authenticated(PostEvent, s.handleEvent))
		r.Post("/application", s.authenticated(PostApplication, s.handleApplication))
		r.Post("/offerRequests", s.authenticated(PostOffer, s.handleOfferRequest))
		r.Get("/offerRequests/{id}", s.authenticated(GetOffer, s.handleGetOffer))
		r.Post("/verify", s.authenticated(PostVerify, s.handleVerify))
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Latency > 0 {
		time.Sleep(s.cfg.Latency)
	}
	s.router.ServeHTTP(w, r)
}

// Calls returns how many requests endpoint has received.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// Sessions returns how many sessions have been created.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Application returns a copy of the merged application of the session
// holding token, or nil if the token is unknown.
func (s *Server) Application(token string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	raw, _ := json.Marshal(sess.application)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return out
}

// Events returns the page views recorded for the session holding token.
func (s *Server) Events(token string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		return append([]string(nil), sess.events...)
	}
	return nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, token string, sess *formSession)

// authenticated resolves the bearer token and applies failure injection
// for endpoint.
func (s *Server) authenticated(endpoint string, next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.count(endpoint) {
			writeError(w, s.cfg.Fail[endpoint], "injected failure")
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		s.mu.Lock()
		sess, found := s.sessions[token]
		random := s.cfg.FailRate > 0 && s.rng.Float64() < s.cfg.FailRate
		s.mu.Unlock()

		if !found {
			writeError(w, http.StatusUnauthorized, "unknown session")
			return
		}
		if random {
			writeError(w, http.StatusInternalServerError, "random failure")
			return
		}

		next(w, r, token, sess)
	}
}

// count records a call and reports whether endpoint is configured to fail.
func (s *Server) count(endpoint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[endpoint]++
	_, fail := s.cfg.Fail[endpoint]
	return fail
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.count(CreateSession) {
		writeError(w, s.cfg.Fail[CreateSession], "injected failure")
		return
	}

	var body struct {
		Product    string `json:"product"`
		Brand      string `json:"brand"`
		ArrivalURL string `json:"arrivalUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Product == "" || body.Brand == "" {
		writeError(w, http.StatusBadRequest, "product and brand are required")
		return
	}

	token := uuid.NewString()
	sess := &formSession{id: s.nextID.Add(1), application: make(map[string]interface{})}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()

	s.logger.Debug("session created", slog.Int64("id", sess.id), slog.String("product", body.Product))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": sess.id, "token": token})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, token string, sess *formSession) {
	s.mu.Lock()
	raw, _ := json.Marshal(map[string]interface{}{"id": sess.id, "application": sess.application})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, token string, sess *formSession) {
	var body struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	if path, ok := body.Data["path"].(string); ok && body.Event == "ui:pageView" {
		s.mu.Lock()
		sess.events = append(sess.events, path)
		s.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApplication(w http.ResponseWriter, r *http.Request, token string, sess *formSession) {
	var fragment map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fragment); err != nil {
		writeError(w, http.StatusBadRequest, "application fragment must be a JSON object")
		return
	}

	s.mu.Lock()
	Merge(sess.application, fragment)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOfferRequest(w http.ResponseWriter, r *http.Request, token string, sess *formSession) {
	var body struct {
		Type        string                 `json:"type"`
		Application map[string]interface{} `json:"application"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Type == "" || body.Application == nil {
		writeError(w, http.StatusBadRequest, "type and application are required")
		return
	}

	s.mu.Lock()
	outcome := s.cfg.Outcome
	if outcome == "" {
		outcome = terminalStatuses[s.rng.Intn(len(terminalStatuses))]
	}
	offer := &offerRequest{id: s.nextID.Add(1), token: token, outcome: outcome}
	s.offers[offer.id] = offer
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": offer.id, "status": "PROCESSING"})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, token string, sess *formSession) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request, token string, sess *formSession) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offer request id")
		return
	}

	s.mu.Lock()
	offer, ok := s.offers[id]
	if !ok || offer.token != token {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "offer request not found")
		return
	}
	status := "PROCESSING"
	if offer.polls >= s.cfg.PendingPolls {
		status = offer.outcome
	} else {
		offer.polls++
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": status})
}

// Merge deep-merges src into dst: nested objects are merged key by key,
// any other value replaces the existing one.
func Merge(dst, src map[string]interface{}) {
	for key, value := range src {
		srcObj, srcIsObj := value.(map[string]interface{})
		dstObj, dstIsObj := dst[key].(map[string]interface{})
		if srcIsObj && dstIsObj {
			Merge(dstObj, srcObj)
			continue
		}
		if srcIsObj {
			fresh := make(map[string]interface{}, len(srcObj))
			Merge(fresh, srcObj)
			dst[key] = fresh
			continue
		}
		dst[key] = value
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
