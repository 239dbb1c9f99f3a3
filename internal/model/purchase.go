package model

import "time"

// Payment states of a purchase.  A purchase is created PAID (free
// checkout or confirmed webhook) and may later move to REFUNDED by an
// admin action, which returns its quantity to availability.
const (
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

// Purchase records a finalized, paid (or free-checkout) transaction.
// It is created from a finalized hold and is never deleted except by
// explicit admin action.  While payment_status is PAID its quantity
// stays deducted from availability.
//
// Fields:
//  ID           – primary key identifier.
//  EventID      – event the tickets belong to.
//  BuyerName    – buyer's full name.
//  BuyerEmail   – buyer's email address.
//  BuyerPhone   – buyer's phone number (10 digits).
//  Address      – street address (ticket purchases, optional).
//  PostalCode   – postal code (optional).
//  City         – city (optional).
//  RegularQty   – regular-price tickets bought.
//  DiscountQty  – reduced-price tickets bought.
//  TotalCents   – final charged amount in cents, after any discount code.
//  DiscountCode – discount code applied, if any.
//  PaymentStatus – PAID or REFUNDED.
//  PaymentRef   – external payment provider reference, if any.
//  TicketCode   – unique code printed on the ticket and checked at the door.
//  ScannedQty   – admissions already scanned by door staff.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Purchase struct {
	ID            uint64    // purchases.id
	EventID       uint64    // purchases.event_id
	BuyerName     string    // purchases.buyer_name
	BuyerEmail    string    // purchases.buyer_email
	BuyerPhone    string    // purchases.buyer_phone
	Address       *string   // purchases.address (nullable)
	PostalCode    *string   // purchases.postal_code (nullable)
	City          *string   // purchases.city (nullable)
	RegularQty    uint32    // purchases.regular_qty
	DiscountQty   uint32    // purchases.discount_qty
	TotalCents    uint32    // purchases.total_cents
	DiscountCode  *string   // purchases.discount_code (nullable)
	PaymentStatus string    // purchases.payment_status
	PaymentRef    *string   // purchases.payment_ref (nullable)
	TicketCode    string    // purchases.ticket_code
	ScannedQty    uint32    // purchases.scanned_qty
	CreatedAt     time.Time // purchases.created_at
	UpdatedAt     time.Time // purchases.updated_at
}

// Quantity returns the total number of admissions on the purchase.
func (p *Purchase) Quantity() uint32 { return p.RegularQty + p.DiscountQty }

// FullyScanned reports whether every admission on the purchase has been
// scanned at the door.
func (p *Purchase) FullyScanned() bool { return p.ScannedQty >= p.Quantity() }
