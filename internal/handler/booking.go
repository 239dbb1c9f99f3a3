package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/booking"
	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
	"github.com/kulisserna/boxoffice/internal/validate"
)

// BookingHandler serves the public reservation flow: availability
// reads, hold claims and releases, and the per-session hold status
// used to drive the checkout countdown.  All capacity-sensitive
// mutations run inside a transaction that first locks the event row,
// so concurrent buyers can never jointly overcommit capacity.
type BookingHandler struct {
	EventRepo    EventStore
	HoldRepo     HoldStore
	PurchaseRepo PurchaseStore
	Sessions     *booking.Registry
	HoldTTL      time.Duration
}

// NewBookingHandler constructs a BookingHandler.  All dependencies
// must be non-nil.
func NewBookingHandler(events EventStore, holds HoldStore, purchases PurchaseStore, sessions *booking.Registry, holdTTL time.Duration) *BookingHandler {
	if events == nil || holds == nil || purchases == nil || sessions == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	if holdTTL <= 0 {
		holdTTL = 5 * time.Minute
	}
	return &BookingHandler{
		EventRepo:    events,
		HoldRepo:     holds,
		PurchaseRepo: purchases,
		Sessions:     sessions,
		HoldTTL:      holdTTL,
	}
}

// Availability handles GET /v1/events/:id/availability.  It returns
// the units still claimable: capacity minus confirmed sales minus
// active holds, clamped at zero.  Events without a configured
// capacity are reported as unlimited.  When the counts cannot be
// read, the response conservatively falls back to the event's nominal
// capacity (flagged as estimated) instead of reporting unlimited.
func (h *BookingHandler) Availability(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
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
		return c.JSON(http.StatusOK, echo.Map{"event_id": ev.ID, "available": 0, "sold_out": true})
	}
	if ev.Unlimited() {
		return c.JSON(http.StatusOK, echo.Map{"event_id": ev.ID, "unlimited": true})
	}

	sold, errSold := h.PurchaseRepo.SoldQty(ctx, eventID)
	held, errHeld := h.HoldRepo.ActiveQty(ctx, eventID)
	if errSold != nil || errHeld != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"event_id":  ev.ID,
			"available": *ev.Capacity,
			"estimated": true,
		})
	}
	available := int64(*ev.Capacity) - int64(sold) - int64(held)
	if available < 0 {
		available = 0
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id":  ev.ID,
		"available": available,
		"sold_out":  available == 0,
	})
}

// CreateHold handles POST /v1/events/:id/hold.  It atomically claims
// regular_qty + discount_qty units against remaining capacity and
// creates a hold with a fixed expiry.  The event row is locked for
// the duration of the transaction; expired holds are swept first so
// lapsed claims never count against availability.  A session that
// already holds is routed back to its existing hold with 409.
func (h *BookingHandler) CreateHold(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing session key"})
	}
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		RegularQty  uint32 `json:"regular_qty"`
		DiscountQty uint32 `json:"discount_qty"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	qty := uint64(body.RegularQty) + uint64(body.DiscountQty)
	if qty == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be greater than zero"})
	}
	if qty > booking.MaxHoldQuantity {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("at most %d tickets per reservation", booking.MaxHoldQuantity),
		})
	}

	ctx := c.Request().Context()
	tx, err := h.EventRepo.BeginTx(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := h.EventRepo.GetForUpdateTx(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ev.Active {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is no longer on sale"})
	}

	// Sweep lapsed holds before counting availability.
	if _, err := h.HoldRepo.ExpireTx(ctx, tx, eventID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cleanup expired holds"})
	}

	// One active hold per buyer session; route back to the existing one.
	if existing, err := h.HoldRepo.ActiveBySessionTx(ctx, tx, key); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     repository.ErrAlreadyHolding.Error(),
			"reference": existing.Reference,
		})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if !ev.Unlimited() {
		sold, err := h.PurchaseRepo.SoldQtyTx(ctx, tx, eventID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		held, err := h.HoldRepo.ActiveQtyTx(ctx, tx, eventID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		remaining := int64(*ev.Capacity) - int64(sold) - int64(held)
		if remaining < 0 {
			remaining = 0
		}
		if int64(qty) > remaining {
			capErr := &repository.InsufficientCapacityError{Remaining: uint32(remaining)}
			return c.JSON(http.StatusConflict, echo.Map{
				"error":     capErr.Error(),
				"remaining": capErr.Remaining,
			})
		}
	}

	hold := h.newHold(key, eventID, body.RegularQty, body.DiscountQty)
	if err := h.HoldRepo.CreateTx(ctx, tx, hold); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create hold"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	// Mirror the claim into the in-memory session.
	_ = h.Sessions.Get(key).Claim(hold)

	cd := booking.Remaining(time.Now().UTC(), hold.ExpiresAt)
	return c.JSON(http.StatusCreated, echo.Map{
		"reference":    hold.Reference,
		"event_id":     hold.EventID,
		"regular_qty":  hold.RegularQty,
		"discount_qty": hold.DiscountQty,
		"expires_at":   hold.ExpiresAt.Format(time.RFC3339),
		"seconds_left": cd.Seconds,
		"urgent":       cd.Urgent,
	})
}

// ReleaseHold handles DELETE /v1/events/:id/hold.  Navigating back
// from the contact-details step releases the session's claim so the
// quantity returns to availability before a new selection is made.
func (h *BookingHandler) ReleaseHold(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing session key"})
	}
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	tx, err := h.EventRepo.BeginTx(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	freed, err := h.HoldRepo.ReleaseBySessionTx(ctx, tx, key, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release hold"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	sess := h.Sessions.Get(key)
	if sess.State() == booking.StateHeld {
		_ = sess.Release()
	}
	h.Sessions.Drop(key)

	return c.JSON(http.StatusOK, echo.Map{"released": freed})
}

// HoldStatus handles GET /v1/hold.  It reports the countdown for the
// session's active hold.  The countdown is recomputed from the hold's
// expiry on every call; when it reaches zero the session signals
// expiry exactly once and the buyer is told to choose again.
func (h *BookingHandler) HoldStatus(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing session key"})
	}
	ctx := c.Request().Context()
	sess := h.Sessions.Get(key)

	// After a restart the registry is empty; recover from the database.
	if sess.State() == booking.StateNone {
		if hold, err := h.HoldRepo.ActiveBySession(ctx, key); err == nil {
			_ = sess.Claim(hold)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	cd, expiredNow := sess.Tick(time.Now().UTC())
	if expiredNow || sess.State() == booking.StateExpired {
		h.Sessions.Drop(key)
		return c.JSON(http.StatusGone, echo.Map{
			"state": string(booking.StateExpired),
			"error": "your reservation has expired, please choose again",
		})
	}
	if sess.State() != booking.StateHeld {
		return c.JSON(http.StatusNotFound, echo.Map{"state": string(sess.State())})
	}
	hold := sess.Hold()
	return c.JSON(http.StatusOK, echo.Map{
		"state":        string(booking.StateHeld),
		"reference":    hold.Reference,
		"event_id":     hold.EventID,
		"regular_qty":  hold.RegularQty,
		"discount_qty": hold.DiscountQty,
		"expires_at":   hold.ExpiresAt.Format(time.RFC3339),
		"seconds_left": cd.Seconds,
		"urgent":       cd.Urgent,
	})
}

// DuplicateCheck handles GET /v1/events/:id/booked.  The site warns a
// visitor whose email already has a confirmed booking for the event
// before they pay twice.
func (h *BookingHandler) DuplicateCheck(c echo.Context) error {
	eventID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	email := c.QueryParam("email")
	if !validate.Email(email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email address"})
	}
	exists, err := h.PurchaseRepo.ExistsByEmail(c.Request().Context(), eventID, email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"already_booked": exists})
}

// newHold builds the hold record for a claim.
func (h *BookingHandler) newHold(key string, eventID uint64, regular, discount uint32) *model.Hold {
	return &model.Hold{
		SessionKey:  key,
		EventID:     eventID,
		RegularQty:  regular,
		DiscountQty: discount,
		ExpiresAt:   time.Now().UTC().Add(h.HoldTTL),
	}
}
