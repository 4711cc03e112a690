package session

import (
	"errors"
	"fmt"
)

// Failure kinds of a session run. Errors returned by Session.Run wrap exactly
// one of these, so callers classify them with errors.Is.
var (
	// ErrAuthentication means the service rejected session creation.
	ErrAuthentication = errors.New("authentication failed")

	// ErrSubmission means a step, decision, verify or poll request failed,
	// either in transport, with a non-2xx status or with a malformed body.
	ErrSubmission = errors.New("submission failed")

	// ErrDecisionTimeout means the offer decision was still PROCESSING when
	// the poll policy ran out of attempts or time.
	ErrDecisionTimeout = errors.New("offer decision not reached")
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// ProtocolError is returned when a 2xx response body does not have the
// shape the workflow relies on.
type ProtocolError struct {
	Path     string
	Problems []string
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: malformed response", e.Path)
	for i, p := range e.Problems {
		if i == 0 {
			msg += ": " + p
		} else {
			msg += "; " + p
		}
	}
	return msg
}
