package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/booking"
	"github.com/kulisserna/boxoffice/internal/repository"
)

// DiscountHandler exposes discount-code validation to the public
// checkout page so buyers see the adjusted price before they are sent
// to the payment provider.
type DiscountHandler struct {
	EventRepo    EventStore
	DiscountRepo DiscountStore
}

// NewDiscountHandler constructs a DiscountHandler.
func NewDiscountHandler(events EventStore, discounts DiscountStore) *DiscountHandler {
	if events == nil || discounts == nil {
		panic("nil dependency passed to NewDiscountHandler")
	}
	return &DiscountHandler{EventRepo: events, DiscountRepo: discounts}
}

type validateDiscountRequest struct {
	Code        string `json:"code"`
	EventID     uint64 `json:"event_id"`
	RegularQty  uint32 `json:"regular_qty"`
	DiscountQty uint32 `json:"discount_qty"`
}

// Validate handles POST /v1/discounts/validate.  It checks whether the
// code can be applied right now and returns the resulting quote for
// the given quantity selection.  The answer is advisory; the finalize
// transaction re-checks usage caps with a guarded update.
func (h *DiscountHandler) Validate(c echo.Context) error {
	var req validateDiscountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id is required"})
	}
	if req.RegularQty+req.DiscountQty == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one ticket is required"})
	}

	ctx := c.Request().Context()
	ev, err := h.EventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	code, err := h.DiscountRepo.GetByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"valid": false, "reason": "unknown code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !code.Applicable(time.Now().UTC()) {
		return c.JSON(http.StatusOK, echo.Map{"valid": false, "reason": "code is not valid"})
	}

	quote := booking.ComputeQuote(ev, req.RegularQty, req.DiscountQty, code)
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "quote": quote})
}
