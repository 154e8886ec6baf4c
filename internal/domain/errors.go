package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared between the source adapter and the orchestrator.
// RateLimited means retry-later: the cycle aborts and the cursor stays put.
// A TransportError also aborts the cycle but counts as an error.
var (
	ErrRateLimited   = errors.New("rate limited")
	ErrNotFound      = errors.New("not found")
	ErrWriteDisabled = errors.New("write credentials not configured")
)

// TransportError wraps a timeout, connection failure, or unexpected status
// from the source API.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
