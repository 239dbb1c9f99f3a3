package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
)

// ContentHandler serves the public, unauthenticated event listings.
// These routes sit behind the response cache; availability shown here
// may lag a few seconds and the claim transaction is the authority.
type ContentHandler struct {
	EventRepo    EventStore
	HoldRepo     HoldStore
	PurchaseRepo PurchaseStore
}

// NewContentHandler constructs a ContentHandler.
func NewContentHandler(events EventStore, holds HoldStore, purchases PurchaseStore) *ContentHandler {
	if events == nil || holds == nil || purchases == nil {
		panic("nil dependency passed to NewContentHandler")
	}
	return &ContentHandler{EventRepo: events, HoldRepo: holds, PurchaseRepo: purchases}
}

// eventView is the public shape of an event.
type eventView struct {
	ID                 uint64  `json:"id"`
	Kind               string  `json:"kind"`
	Title              string  `json:"title"`
	StartsAt           string  `json:"starts_at"`
	Location           string  `json:"location"`
	PriceCents         uint32  `json:"price_cents"`
	DiscountPriceCents uint32  `json:"discount_price_cents"`
	Unlimited          bool    `json:"unlimited"`
	Available          *uint32 `json:"available,omitempty"`
	SoldOut            bool    `json:"sold_out"`
}

// view computes the public availability for one event.  A count
// failure degrades to the nominal capacity instead of failing the
// whole listing.
func (h *ContentHandler) view(c echo.Context, ev *model.Event) eventView {
	v := eventView{
		ID:                 ev.ID,
		Kind:               ev.Kind,
		Title:              ev.Title,
		StartsAt:           ev.StartsAt.UTC().Format(time.RFC3339),
		Location:           ev.Location,
		PriceCents:         ev.PriceCents,
		DiscountPriceCents: ev.DiscountPriceCents,
		Unlimited:          ev.Unlimited(),
	}
	if ev.Unlimited() {
		return v
	}
	ctx := c.Request().Context()
	available := *ev.Capacity
	sold, err1 := h.PurchaseRepo.SoldQty(ctx, ev.ID)
	held, err2 := h.HoldRepo.ActiveQty(ctx, ev.ID)
	if err1 == nil && err2 == nil {
		taken := sold + held
		if taken >= available {
			available = 0
		} else {
			available -= taken
		}
	}
	v.Available = &available
	v.SoldOut = available == 0
	return v
}

// ListEvents handles GET /v1/events.
func (h *ContentHandler) ListEvents(c echo.Context) error {
	events, err := h.EventRepo.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	views := make([]eventView, 0, len(events))
	for i := range events {
		views = append(views, h.view(c, &events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": views})
}

// GetEvent handles GET /v1/events/:id.
func (h *ContentHandler) GetEvent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.EventRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ev.Active {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, h.view(c, ev))
}
