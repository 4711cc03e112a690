package session

import (
	"time"
)

// OfferStatus is the lifecycle status of an offer decision.
type OfferStatus string

const (
	StatusProcessing OfferStatus = "PROCESSING"
	StatusSuccess    OfferStatus = "SUCCESS"
	StatusNoOffers   OfferStatus = "NO_OFFERS"
	StatusIneligible OfferStatus = "INELIGIBLE"
)

// Terminal reports whether the status ends the decision poll.
func (s OfferStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusNoOffers, StatusIneligible:
		return true
	default:
		return false
	}
}

// OfferDecision is the service's evaluation of a submitted application.
// It is created PROCESSING and moves to a terminal status asynchronously.
type OfferDecision struct {
	ID     int64       `json:"id"`
	Status OfferStatus `json:"status"`
}

// PollPolicy bounds the decision poll. Zero MaxAttempts and zero Timeout
// poll until the service resolves the decision.
type PollPolicy struct {
	// Interval between a PROCESSING answer and the next fetch.
	Interval time.Duration

	// MaxAttempts caps the number of fetches (0 = unbounded).
	MaxAttempts int

	// Timeout caps the time spent polling, measured from the first fetch
	// (0 = unbounded).
	Timeout time.Duration
}

// DefaultPollPolicy polls every 500ms without bound.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 500 * time.Millisecond}
}

// exhausted reports whether another fetch is disallowed after attempts
// fetches, given polling began at started.
func (p PollPolicy) exhausted(attempts int, started, now time.Time) bool {
	if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
		return true
	}
	if p.Timeout > 0 && now.Add(p.Interval).Sub(started) > p.Timeout {
		return true
	}
	return false
}
