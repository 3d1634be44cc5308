package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a failed exchange with the Tally listener.
type Kind string

const (
	KindConnectionRefused Kind = "connection_refused"
	KindHTTPStatus        Kind = "http_status"
	KindNoResponse        Kind = "no_response"
	KindOther             Kind = "other"
)

// Error is returned by every Client call that did not yield a 2xx body.
type Error struct {
	Kind       Kind
	Host       string
	Port       string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConnectionRefused:
		return fmt.Sprintf("Cannot connect to Tally at %s. Make sure: 1. Tally is running 2. ODBC is enabled (F11 → F1 → Enable ODBC) 3. Tally is listening on port %s", e.Host, e.Port)
	case KindHTTPStatus:
		return fmt.Sprintf("Tally returned %d: %s", e.StatusCode, e.Body)
	case KindNoResponse:
		return "No response received from Tally"
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Tally request failed"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the listener may simply not have been up yet.
func (e *Error) Retryable() bool {
	return e.Kind == KindConnectionRefused || e.Kind == KindNoResponse
}

// KindOf returns the transport kind of err, or "" when err is not a transport error.
func KindOf(err error) Kind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return ""
}

// IsRetryable reports whether err is a transport error worth retrying.
func IsRetryable(err error) bool {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Retryable()
	}
	return false
}
