package model

import "time"

// Discount code value forms.  An "amount" code subtracts a fixed number
// of cents from the base total; a "percentage" code reduces the base
// total by a whole-number percentage.
const (
	DiscountTypeAmount     = "amount"
	DiscountTypePercentage = "percentage"
)

// DiscountCode is a reusable coupon applied at checkout.  Codes can be
// capped to a maximum number of uses and restricted to a validity
// window; current_uses never exceeds max_uses when a cap is set.
//
// Fields:
//  ID             – primary key identifier.
//  Code           – the code string buyers type in.
//  DiscountType   – "amount" or "percentage".
//  DiscountAmount – cents for amount codes, whole percent for percentage codes.
//  MaxUses        – usage cap; nil means uncapped.
//  CurrentUses    – times the code has been applied to a finalized purchase.
//  ValidFrom      – start of the validity window (nil = no lower bound).
//  ValidTo        – end of the validity window (nil = no upper bound).
//  Active         – false once an admin disables the code.
//  CreatedAt      – creation timestamp.
type DiscountCode struct {
	ID             uint64     // discount_codes.id
	Code           string     // discount_codes.code
	DiscountType   string     // discount_codes.discount_type
	DiscountAmount uint32     // discount_codes.discount_amount
	MaxUses        *uint32    // discount_codes.max_uses (nullable)
	CurrentUses    uint32     // discount_codes.current_uses
	ValidFrom      *time.Time // discount_codes.valid_from (nullable)
	ValidTo        *time.Time // discount_codes.valid_to (nullable)
	Active         bool       // discount_codes.active
	CreatedAt      time.Time  // discount_codes.created_at
}

// Applicable reports whether the code may be applied at the given
// moment: it must be active, inside its validity window and not
// exhausted.
func (d *DiscountCode) Applicable(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidTo != nil && now.After(*d.ValidTo) {
		return false
	}
	if d.MaxUses != nil && d.CurrentUses >= *d.MaxUses {
		return false
	}
	return true
}
