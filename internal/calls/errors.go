package calls

import (
	"errors"
	"fmt"
)

// Error taxonomy for the lifecycle controller.
//
// Propagation policy: gateway-layer errors are caught at the Controller
// boundary and translated here; nothing propagates as a raw transport error
// past the Controller.

// ErrInvalidPhoneNumber rejects a malformed number before any side effect.
var ErrInvalidPhoneNumber = errors.New("calls: phone number must start with + (e.g., +15551234567)")

// ErrCallInProgress rejects a start for a room that already has a live call.
var ErrCallInProgress = errors.New("calls: a call for this number is already in progress")

// ErrNotFound is returned when a call or room is unknown.
var ErrNotFound = errors.New("calls: call not found")

// DispatchError wraps a worker-scheduling failure. No trunk action was taken.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("calls: worker dispatch failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
