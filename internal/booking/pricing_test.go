package booking

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kulisserna/boxoffice/internal/model"
)

func testEvent(price, discountPrice uint32) *model.Event {
	return &model.Event{
		ID:                 1,
		Kind:               model.EventKindShow,
		PriceCents:         price,
		DiscountPriceCents: discountPrice,
	}
}

func TestComputeQuoteBasePrice(t *testing.T) {
	// 2 × 175.00 + 1 × 145.00 = 495.00
	ev := testEvent(17500, 14500)
	q := ComputeQuote(ev, 2, 1, nil)

	assert.Equal(t, uint32(35000), q.RegularCents)
	assert.Equal(t, uint32(14500), q.DiscountedCents)
	assert.Equal(t, uint32(49500), q.BaseCents)
	assert.Equal(t, uint32(0), q.DeductionCents)
	assert.Equal(t, uint32(49500), q.TotalCents)
	assert.False(t, q.Free)
}

func TestComputeQuoteVAT(t *testing.T) {
	// 6% cultural VAT on a gross of 495.00: 49500 − round(49500/1.06) = 2802.
	ev := testEvent(17500, 14500)
	q := ComputeQuote(ev, 2, 1, nil)
	assert.Equal(t, uint32(2802), q.VATCents)

	// No VAT on a free total.
	free := ComputeQuote(testEvent(0, 0), 1, 0, nil)
	assert.Equal(t, uint32(0), free.VATCents)
}

func TestComputeQuoteAmountCode(t *testing.T) {
	ev := testEvent(10000, 8000)
	code := &model.DiscountCode{
		Code:           "SPRING",
		DiscountType:   model.DiscountTypeAmount,
		DiscountAmount: 5000,
		Active:         true,
	}

	q := ComputeQuote(ev, 1, 0, code)
	assert.Equal(t, uint32(5000), q.TotalCents)
	assert.Equal(t, uint32(5000), q.DeductionCents)

	// An amount larger than the base floors at zero and goes free.
	big := &model.DiscountCode{DiscountType: model.DiscountTypeAmount, DiscountAmount: 99999, Active: true}
	q = ComputeQuote(ev, 1, 0, big)
	assert.Equal(t, uint32(0), q.TotalCents)
	assert.True(t, q.Free)
	assert.Equal(t, uint32(0), q.VATCents)
}

func TestComputeQuotePercentageCode(t *testing.T) {
	ev := testEvent(1000, 500)
	tests := []struct {
		name  string
		pct   uint32
		total uint32
	}{
		{"ten percent off", 10, 900},
		{"half price", 50, 500},
		{"full discount", 100, 0},
		{"over one hundred clamps to free", 150, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := &model.DiscountCode{
				DiscountType:   model.DiscountTypePercentage,
				DiscountAmount: tt.pct,
				Active:         true,
			}
			q := ComputeQuote(ev, 1, 0, code)
			assert.Equal(t, tt.total, q.TotalCents)
			assert.Equal(t, uint32(1000)-tt.total, q.DeductionCents)
		})
	}
}

// A quantity large enough to wrap 32-bit cent arithmetic must never
// produce a zero total that reads as a free booking.
func TestComputeQuoteHugeQuantitySaturates(t *testing.T) {
	ev := testEvent(17500, 14500)

	q := ComputeQuote(ev, 1<<30, 0, nil)
	assert.Equal(t, uint32(math.MaxUint32), q.TotalCents)
	assert.Equal(t, uint32(math.MaxUint32), q.BaseCents)
	assert.False(t, q.Free)

	// Both quantity lines together overflow too.
	q = ComputeQuote(ev, math.MaxUint32, math.MaxUint32, nil)
	assert.Equal(t, uint32(math.MaxUint32), q.TotalCents)
	assert.False(t, q.Free)
}

func TestComputeQuoteZeroQuantityIsFree(t *testing.T) {
	q := ComputeQuote(testEvent(10000, 8000), 0, 0, nil)
	assert.Equal(t, uint32(0), q.TotalCents)
	assert.True(t, q.Free)
}

func TestApplicableCode(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	uses := uint32(5)

	tests := []struct {
		name string
		code *model.DiscountCode
		want bool
	}{
		{"nil code", nil, false},
		{"active unbounded", &model.DiscountCode{Active: true}, true},
		{"inactive", &model.DiscountCode{Active: false}, false},
		{"before window", &model.DiscountCode{Active: true, ValidFrom: &future}, false},
		{"after window", &model.DiscountCode{Active: true, ValidTo: &past}, false},
		{"inside window", &model.DiscountCode{Active: true, ValidFrom: &past, ValidTo: &future}, true},
		{"exhausted", &model.DiscountCode{Active: true, MaxUses: &uses, CurrentUses: 5}, false},
		{"one use left", &model.DiscountCode{Active: true, MaxUses: &uses, CurrentUses: 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplicableCode(tt.code, now)
			if tt.want {
				assert.Same(t, tt.code, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
