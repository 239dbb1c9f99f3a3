package model

import "time"

// Event kinds.  A SHOW is a single theater performance; a COURSE is a
// scheduled course offering.  Both are sold through the same booking
// flow and share the same capacity accounting.
const (
	EventKindShow   = "SHOW"
	EventKindCourse = "COURSE"
)

// Event represents an orderable performance or course instance.  Events
// are created by administrators, mutated by admin edits and purchases,
// and soft-deactivated (never hard-deleted) while purchases reference
// them.
//
// Fields:
//  ID                 – primary key identifier.
//  Kind               – SHOW or COURSE.
//  Title              – performance or course title.
//  StartsAt           – scheduled date and time.
//  Location           – venue or room description.
//  Capacity           – maximum sellable quantity; nil means unlimited.
//  PriceCents         – regular ticket price in cents.
//  DiscountPriceCents – reduced price (students, seniors) in cents.
//  Active             – false once soft-deactivated.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Event struct {
	ID                 uint64    // events.id
	Kind               string    // events.kind
	Title              string    // events.title
	StartsAt           time.Time // events.starts_at
	Location           string    // events.location
	Capacity           *uint32   // events.capacity (nullable)
	PriceCents         uint32    // events.price_cents
	DiscountPriceCents uint32    // events.discount_price_cents
	Active             bool      // events.active
	CreatedAt          time.Time // events.created_at
	UpdatedAt          time.Time // events.updated_at
}

// Unlimited reports whether the event has no configured capacity.  An
// event without a capacity is never sold out.
func (e *Event) Unlimited() bool { return e.Capacity == nil }
