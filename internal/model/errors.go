package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrPositionFull is returned when a position has no remaining slots.
var ErrPositionFull = errors.New("position is full")

// ErrAlreadySignedUp is returned when a user already holds a registration
// or waitlist entry for the position.
var ErrAlreadySignedUp = errors.New("user already signed up for this position")

// ValidationError reports user-correctable problems with submitted data.
// The message is surfaced verbatim to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// CapacityError reports that a batch promotion asked for more slots than
// the position has open. The message carries the exact shortfall.
type CapacityError struct {
	Available int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Only %d spot(s) available, but trying to add %d people",
		e.Available, e.Requested)
}

// ConflictError reports that a concurrent operation won a race this
// request lost; the client should retry or accept waitlist placement.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }
