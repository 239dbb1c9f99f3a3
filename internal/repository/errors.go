// Package repository implements data access against MySQL.  Sentinel
// error values defined here let handlers map failure scenarios to HTTP
// statuses with errors.Is instead of string matching.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as refunding an already refunded purchase or
// joining a waitlist twice with the same email.  Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrAlreadyHolding is returned from a claim when the buyer session
// already has an active hold.  The caller must route back to the
// existing hold instead of creating a second one.
var ErrAlreadyHolding = errors.New("session already has an active hold")

// InsufficientCapacityError is returned from a claim when the requested
// quantity exceeds what remains.  Remaining carries the actual count so
// the buyer can retry with a lower quantity.
type InsufficientCapacityError struct {
	Remaining uint32
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: %d remaining", e.Remaining)
}
