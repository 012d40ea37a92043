package client

import (
	"fmt"
)

// BudgetExhaustedError reports that the shared error budget was red and
// the request was rejected without network contact. It is never retried
// automatically by this layer.
type BudgetExhaustedError struct {
	// ErrorCount is the error count observed at rejection time.
	ErrorCount int
}

// Error implements the error interface.
func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("esi error budget exhausted (%d/100 errors), requests blocked until reset", e.ErrorCount)
}

// UpstreamStatusError reports a non-2xx upstream response other than the
// hard-stop code. Retry policy is the caller's decision.
type UpstreamStatusError struct {
	StatusCode int
	Endpoint   string
}

// Error implements the error interface.
func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("esi status %d: %s", e.StatusCode, e.Endpoint)
}

// TransportError reports a connectivity or timeout failure before any
// response was obtained. The budget is not updated for this class since
// no headers were received.
type TransportError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("esi transport error: %s: %v", e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}
