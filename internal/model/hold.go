package model

import "time"

// Hold represents a time-boxed claim on event capacity made before
// payment.  A hold keeps the claimed quantity away from other buyers
// while the buyer fills in contact details and completes checkout.
// Holds expire automatically at their expires_at timestamp; expired
// holds are swept transactionally before every claim and finalize so
// that a buyer who closes their tab never locks capacity for good.
// At most one active hold exists per buyer session.
//
// Fields:
//  ID          – primary key identifier.
//  SessionKey  – opaque buyer session reference owning the hold.
//  EventID     – event whose capacity is claimed.
//  RegularQty  – number of regular-price tickets held.
//  DiscountQty – number of reduced-price tickets held.
//  Reference   – unique token returned to the client for correlation.
//  ExpiresAt   – when the hold lapses.
//  CreatedAt   – when the hold was created.
type Hold struct {
	ID          uint64    // holds.id
	SessionKey  string    // holds.session_key
	EventID     uint64    // holds.event_id
	RegularQty  uint32    // holds.regular_qty
	DiscountQty uint32    // holds.discount_qty
	Reference   string    // holds.reference
	ExpiresAt   time.Time // holds.expires_at
	CreatedAt   time.Time // holds.created_at
}

// Quantity returns the total number of units the hold claims.
func (h *Hold) Quantity() uint32 { return h.RegularQty + h.DiscountQty }
