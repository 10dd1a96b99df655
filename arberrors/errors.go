// Package arberrors defines the closed, inspectable error taxonomy used
// across the arbitrage gateway. Callers distinguish error kinds by
// inspecting Kind, never by matching on error strings.
package arberrors

import (
	"errors"
	"fmt"
)

// Kind is a closed tag identifying why a call into the gateway failed.
type Kind string

const (
	// KindBudgetExceeded means the Budget collaborator explicitly denied
	// admission. Not retried.
	KindBudgetExceeded Kind = "BUDGET_EXCEEDED"
	// KindBudgetUnavailable means the Budget admission call itself raised.
	// The only fail-closed path in the system.
	KindBudgetUnavailable Kind = "BUDGET_UNAVAILABLE"
	// KindNoHealthyModel means the Router could not find a candidate for
	// the requested tier/domain. Counted as a retry step.
	KindNoHealthyModel Kind = "NO_HEALTHY_MODEL"
	// KindRateLimit, KindServiceUnavailable and KindConnection are the
	// "availability" errors from the upstream invoker: retriable, and
	// recorded against the Health Tracker.
	KindRateLimit          Kind = "RATE_LIMIT"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindConnection         Kind = "CONNECTION"
	// KindClient is any other invoker error (bad request, schema error,
	// auth failure, ...). Not recorded against the Health Tracker and does
	// not exclude the provider, but does consume a retry attempt.
	KindClient Kind = "CLIENT"
	// KindFailOpen wraps a failure of the terminal fail-open attempt.
	KindFailOpen Kind = "FAIL_OPEN"
	// KindCancelled means the caller's context was cancelled or its deadline
	// exceeded. Never retried and never followed by a fail-open attempt.
	KindCancelled Kind = "CANCELLED"
)

// Error is the tagged error type returned by the gateway's core packages.
type Error struct {
	Kind     Kind
	Message  string
	Provider string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error that chains an existing cause, preserving it for
// observability (errors.Unwrap / errors.Is keep working).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithProvider annotates the error with the provider that produced it.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsAvailability reports whether kind is one of the retriable
// "availability" kinds: rate-limit, service-unavailable, connection-error.
func IsAvailability(kind Kind) bool {
	switch kind {
	case KindRateLimit, KindServiceUnavailable, KindConnection:
		return true
	default:
		return false
	}
}
