package model

import "time"

// WaitlistEntry records a visitor who asked to be notified when a
// sold-out event frees up capacity.  One entry per email and event.
type WaitlistEntry struct {
	ID        uint64    // waitlist_entries.id
	EventID   uint64    // waitlist_entries.event_id
	Name      string    // waitlist_entries.name
	Email     string    // waitlist_entries.email
	Phone     string    // waitlist_entries.phone
	CreatedAt time.Time // waitlist_entries.created_at
}
