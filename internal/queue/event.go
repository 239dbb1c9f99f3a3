// Package queue defines message payloads exchanged over the message broker.
package queue

// PurchaseConfirmedEvent is published when a hold is finalized into a
// paid (or free) purchase.  It carries everything the notification
// consumer needs to compose the confirmation email without querying
// the primary database.
type PurchaseConfirmedEvent struct {
	PurchaseID  uint64 `json:"purchase_id"`
	EventID     uint64 `json:"event_id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	StartsAt    string `json:"starts_at"`
	Location    string `json:"location"`
	BuyerName   string `json:"buyer_name"`
	BuyerEmail  string `json:"buyer_email"`
	RegularQty  uint32 `json:"regular_qty"`
	DiscountQty uint32 `json:"discount_qty"`
	TotalCents  uint32 `json:"total_cents"`
	TicketCode  string `json:"ticket_code"`
	ConfirmedAt string `json:"confirmed_at"`
}
