package booking

import (
	"math"
	"time"

	"github.com/kulisserna/boxoffice/internal/model"
)

// vatRate is the Swedish cultural-event VAT rate (6%).  Prices are
// gross; the VAT share is back-computed from the final total.
const vatRate = 1.06

// MaxHoldQuantity caps the tickets claimable in one hold.  The booking
// page sells single-digit group sizes; the cap keeps one buyer from
// tying up a whole event and bounds the quote arithmetic.
const MaxHoldQuantity = 10

// Quote is the exact price breakdown for a checkout, all amounts in
// cents.  Free is set when the final total is zero, in which case the
// booking completes without a payment-provider session.
type Quote struct {
	RegularCents    uint32 `json:"regular_cents"`
	DiscountedCents uint32 `json:"discounted_cents"`
	BaseCents       uint32 `json:"base_cents"`
	DeductionCents  uint32 `json:"deduction_cents"`
	TotalCents      uint32 `json:"total_cents"`
	VATCents        uint32 `json:"vat_cents"`
	Free            bool   `json:"free"`
}

// ComputeQuote calculates the charged amount for a quantity selection
// against an event's prices, applying an optional discount code.
//
//	regularTotal = regularQty × price
//	discountedTotal = discountQty × discountPrice
//	base = regularTotal + discountedTotal
//	total = base − amount            (amount codes, floored at zero)
//	total = base × (100 − pct) / 100 (percentage codes)
//	vat = total − total/1.06
//
// A code outside its validity window, inactive or exhausted is ignored
// here; callers validate applicability first and pass nil for an
// unusable code.
//
// All arithmetic runs in uint64 so oversized quantities can never wrap
// a line total around to zero and read as free; amounts beyond the
// uint32 range saturate at the maximum instead.
func ComputeQuote(ev *model.Event, regularQty, discountQty uint32, code *model.DiscountCode) Quote {
	regular := uint64(regularQty) * uint64(ev.PriceCents)
	discounted := uint64(discountQty) * uint64(ev.DiscountPriceCents)
	base := regular + discounted
	total := base
	if code != nil {
		switch code.DiscountType {
		case model.DiscountTypeAmount:
			if uint64(code.DiscountAmount) >= base {
				total = 0
			} else {
				total = base - uint64(code.DiscountAmount)
			}
		case model.DiscountTypePercentage:
			pct := code.DiscountAmount
			if pct >= 100 {
				total = 0
			} else {
				total = base * uint64(100-pct) / 100
			}
		}
	}
	q := Quote{
		RegularCents:    clamp32(regular),
		DiscountedCents: clamp32(discounted),
		BaseCents:       clamp32(base),
		DeductionCents:  clamp32(base - total),
		TotalCents:      clamp32(total),
		Free:            total == 0,
	}
	q.VATCents = vatShare(q.TotalCents)
	return q
}

// clamp32 saturates a cent amount at the uint32 maximum.
func clamp32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// vatShare back-computes the VAT portion of a gross amount.
func vatShare(grossCents uint32) uint32 {
	if grossCents == 0 {
		return 0
	}
	net := math.Round(float64(grossCents) / vatRate)
	return grossCents - uint32(net)
}

// ApplicableCode returns the code when it may be applied at the given
// moment, nil otherwise.  Convenience for callers that already fetched
// the code and only need the quote to ignore an unusable one.
func ApplicableCode(code *model.DiscountCode, now time.Time) *model.DiscountCode {
	if code == nil || !code.Applicable(now) {
		return nil
	}
	return code
}
