package stratz

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a 404 / empty result. Callers treat it as "no data",
// never as a failure.
var ErrNotFound = errors.New("not found")

// AuthError is fatal: the token is bad and no retry will fix it.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream rejected credentials (status %d)", e.Status)
}

// RateLimitError is returned when 429 responses persist past the cooldown
// retry allowance.
type RateLimitError struct {
	Waits int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d cooldown waits", e.Waits)
}

// TransportError covers network failures and edge-security blocks. It
// triggers endpoint failover before bubbling up.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	where := e.Endpoint
	if where == "" {
		where = "direct"
	}
	return fmt.Sprintf("transport failure via %s: %v", where, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// QueryError carries the field-level errors of a well-formed GraphQL
// response.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query errors: %v", e.Messages)
}
