package booking

import (
	"sync"
	"time"

	"github.com/kulisserna/boxoffice/internal/model"
)

// Session is the explicit session-scoped state object carried through
// the reservation flow.  It tracks the lifecycle of the one hold a
// buyer session may have and guarantees that expiry is signaled
// exactly once.  The database remains the authority on capacity; a
// Session only mirrors the flow for the session that owns it.
type Session struct {
	Key string

	state   State
	hold    *model.Hold
	expired bool // expiry already signaled
}

// NewSession returns a session in the NONE state.
func NewSession(key string) *Session {
	return &Session{Key: key, state: StateNone}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Hold returns the hold owned by the session, or nil outside HELD.
func (s *Session) Hold() *model.Hold {
	if s.state != StateHeld {
		return nil
	}
	return s.hold
}

// Claim moves NONE → HELD.  A session already holding must release or
// finalize first; claiming twice returns ErrInvalidTransition so the
// caller can route back to the existing hold.
func (s *Session) Claim(h *model.Hold) error {
	if !canTransition(s.state, StateHeld) {
		return ErrInvalidTransition
	}
	s.state = StateHeld
	s.hold = h
	s.expired = false
	return nil
}

// Finalize moves HELD → FINALIZED after the payment provider confirmed
// payment (or the free-checkout path completed).
func (s *Session) Finalize() error {
	if !canTransition(s.state, StateFinalized) {
		return ErrInvalidTransition
	}
	s.state = StateFinalized
	s.hold = nil
	return nil
}

// Release moves HELD → RELEASED when the buyer cancels or navigates
// back from the contact-details step.
func (s *Session) Release() error {
	if !canTransition(s.state, StateReleased) {
		return ErrInvalidTransition
	}
	s.state = StateReleased
	s.hold = nil
	return nil
}

// Tick recomputes the countdown as of now.  When the hold has lapsed
// the session moves HELD → EXPIRED and the second return value is true
// for that call only; later ticks report the expired countdown without
// signaling again.
func (s *Session) Tick(now time.Time) (Countdown, bool) {
	if s.state != StateHeld && !s.expired {
		return Countdown{}, false
	}
	if s.expired {
		return Countdown{Expired: true}, false
	}
	cd := Remaining(now, s.hold.ExpiresAt)
	if cd.Expired {
		s.state = StateExpired
		s.hold = nil
		s.expired = true
		return cd, true
	}
	return cd, false
}

// Registry keeps the in-memory session for each buyer session key.
// Handlers use it to route a second claim back to the existing hold
// and to signal expiry exactly once; it is rebuilt lazily from the
// database after a restart.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session for the key, creating a fresh NONE session
// when the key is unknown.  Sessions in a terminal state are recycled
// so the buyer can start a new selection.
func (r *Registry) Get(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok || s.state.Terminal() {
		s = NewSession(key)
		r.sessions[key] = s
	}
	return s
}

// Drop removes the session for the key.  Used once a terminal state
// has been observed by the client so the map does not grow unbounded.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}
