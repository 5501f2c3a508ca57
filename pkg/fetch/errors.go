package fetch

import (
	"errors"
	"fmt"
)

// ErrTimeout marks a single attempt whose deadline elapsed before the
// upstream answered. Retryable until the key ring is exhausted.
var ErrTimeout = errors.New("fetch: attempt timed out")

// HTTPError is a non-2xx upstream status outside the retryable set.
// Fatal: surfaced on first occurrence without consuming a retry.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: upstream returned HTTP %d", e.Status)
}

// RateLimitError is an upstream status from the retryable set — the
// current credential is rate-limited or out of quota.
type RateLimitError struct {
	Status int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("fetch: credential rejected with HTTP %d", e.Status)
}

// TransportError wraps a network-level failure (connection refused,
// DNS, reset). Retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError wraps a 2xx response whose body was not valid JSON. Fatal.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fetch: invalid JSON in upstream response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExhaustionError reports that every configured credential was tried
// for one logical request without success. Cause holds the last
// retryable failure observed, so the message names which failure mode
// exhausted the ring.
type ExhaustionError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("fetch: all %d API keys exhausted, last failure: %v", e.Attempts, e.Cause)
}

func (e *ExhaustionError) Unwrap() error { return e.Cause }
