// Package booking contains the capacity-free core of the reservation
// flow: the hold lifecycle state machine, the countdown derived from a
// hold's expiry, and the exact price arithmetic applied at checkout.
// Everything in this package is pure; persistence and the atomic
// capacity claim live in the repository layer.
package booking

import "errors"

// State is the lifecycle state of a buyer session's hold.
type State string

// Hold lifecycle states.  HELD is the only non-terminal state after a
// claim; FINALIZED keeps the claimed quantity deducted (it became a
// purchase), while EXPIRED and RELEASED return it to availability.
const (
	StateNone      State = "NONE"
	StateHeld      State = "HELD"
	StateFinalized State = "FINALIZED"
	StateExpired   State = "EXPIRED"
	StateReleased  State = "RELEASED"
)

// ErrInvalidTransition is returned when a lifecycle transition is
// attempted from a state that does not permit it, e.g. finalizing a
// session that holds nothing.
var ErrInvalidTransition = errors.New("invalid hold state transition")

// Terminal reports whether the state ends the lifecycle of a hold.
func (s State) Terminal() bool {
	switch s {
	case StateFinalized, StateExpired, StateReleased:
		return true
	}
	return false
}

// canTransition encodes the allowed edges of the lifecycle:
// NONE → HELD → {FINALIZED | EXPIRED | RELEASED}.
func canTransition(from, to State) bool {
	switch from {
	case StateNone:
		return to == StateHeld
	case StateHeld:
		return to == StateFinalized || to == StateExpired || to == StateReleased
	}
	return false
}
