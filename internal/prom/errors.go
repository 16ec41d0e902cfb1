package prom

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the strict queries wraps exactly one
// of these inside a *QueryError.
var (
	// ErrNetwork covers transport failures, timeouts and cancellation.
	ErrNetwork = errors.New("backend unreachable")
	// ErrBackend covers non-2xx responses, non-success status and bodies
	// that cannot be decoded.
	ErrBackend = errors.New("backend error")
	// ErrNoData means a well-formed response with an empty result.
	ErrNoData = errors.New("no data")
)

// Request outcomes, as reported to an Observer.
const (
	OutcomeOK      = "ok"
	OutcomeNetwork = "network"
	OutcomeBackend = "backend"
	OutcomeNoData  = "nodata"
)

// QueryError describes a failed query.
type QueryError struct {
	Endpoint   string
	Query      string
	StatusCode int
	Kind       error
	Err        error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s %q: %v", e.Endpoint, e.Query, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *QueryError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Outcome classifies err for metrics and logging.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNoData):
		return OutcomeNoData
	case errors.Is(err, ErrNetwork):
		return OutcomeNetwork
	default:
		return OutcomeBackend
	}
}
