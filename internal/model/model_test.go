package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventUnlimited(t *testing.T) {
	cap := uint32(120)
	assert.False(t, (&Event{Capacity: &cap}).Unlimited())
	assert.True(t, (&Event{Capacity: nil}).Unlimited())
}

func TestHoldQuantity(t *testing.T) {
	h := Hold{RegularQty: 2, DiscountQty: 1}
	assert.Equal(t, uint32(3), h.Quantity())
}

func TestPurchaseScanning(t *testing.T) {
	p := Purchase{RegularQty: 2, DiscountQty: 2}
	assert.Equal(t, uint32(4), p.Quantity())
	assert.False(t, p.FullyScanned())

	p.ScannedQty = 3
	assert.False(t, p.FullyScanned())
	p.ScannedQty = 4
	assert.True(t, p.FullyScanned())
}
