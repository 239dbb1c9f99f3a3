package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
	"github.com/kulisserna/boxoffice/internal/validate"
)

// WaitlistHandler lets visitors sign up for a notification when a
// sold-out event frees capacity.  The list is consumed manually by the
// back office; there is no automatic offer flow.
type WaitlistHandler struct {
	EventRepo    EventStore
	HoldRepo     HoldStore
	PurchaseRepo PurchaseStore
	WaitlistRepo WaitlistStore
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(events EventStore, holds HoldStore, purchases PurchaseStore, waitlist WaitlistStore) *WaitlistHandler {
	if events == nil || holds == nil || purchases == nil || waitlist == nil {
		panic("nil dependency passed to NewWaitlistHandler")
	}
	return &WaitlistHandler{EventRepo: events, HoldRepo: holds, PurchaseRepo: purchases, WaitlistRepo: waitlist}
}

// Join handles POST /v1/events/:id/waitlist.  Signups are only
// accepted while the event actually has nothing left to sell; once
// capacity frees up the buyer is expected to book normally.
func (h *WaitlistHandler) Join(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var form validate.WaitlistForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if errs := form.Validate(); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": errs})
	}

	ctx := c.Request().Context()
	ev, err := h.EventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ev.Active {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	if ev.Unlimited() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is not sold out"})
	}

	sold, err := h.PurchaseRepo.SoldQty(ctx, ev.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	held, err := h.HoldRepo.ActiveQty(ctx, ev.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if sold+held < *ev.Capacity {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is not sold out"})
	}

	entry := &model.WaitlistEntry{
		EventID: ev.ID,
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
	}
	if err := h.WaitlistRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "you are already on the waitlist for this event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "joined", "id": entry.ID})
}
