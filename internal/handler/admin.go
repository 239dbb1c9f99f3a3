package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kulisserna/boxoffice/internal/middleware"
	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
)

// AdminHandler is the back office: event management, per-event sales,
// refunds, discount codes and the waitlist.  Every route behind it is
// wrapped by the JWT and role middlewares.
type AdminHandler struct {
	EventRepo    EventStore
	HoldRepo     HoldStore
	PurchaseRepo PurchaseStore
	DiscountRepo DiscountStore
	WaitlistRepo WaitlistStore
	Redis        *redis.Client // response-cache invalidation, may be nil
}

// NewAdminHandler constructs an AdminHandler.  Redis may be nil when
// the response cache is disabled.
func NewAdminHandler(events EventStore, holds HoldStore, purchases PurchaseStore, discounts DiscountStore, waitlist WaitlistStore, rdb *redis.Client) *AdminHandler {
	if events == nil || holds == nil || purchases == nil || discounts == nil || waitlist == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		EventRepo:    events,
		HoldRepo:     holds,
		PurchaseRepo: purchases,
		DiscountRepo: discounts,
		WaitlistRepo: waitlist,
		Redis:        rdb,
	}
}

// invalidateListings drops cached public event responses after any
// event mutation so visitors never see stale availability or prices.
func (h *AdminHandler) invalidateListings(c echo.Context) {
	middleware.InvalidateContent(c.Request().Context(), h.Redis, "/v1/events")
}

// eventRequest is the body for creating and updating events.  Prices
// arrive in cents; a null capacity means unlimited admission.
type eventRequest struct {
	Kind               string    `json:"kind"`
	Title              string    `json:"title"`
	StartsAt           time.Time `json:"starts_at"`
	Location           string    `json:"location"`
	Capacity           *uint32   `json:"capacity"`
	PriceCents         uint32    `json:"price_cents"`
	DiscountPriceCents uint32    `json:"discount_price_cents"`
	Active             *bool     `json:"active"`
}

func (r *eventRequest) validate() (string, bool) {
	kind := strings.ToUpper(strings.TrimSpace(r.Kind))
	if kind != model.EventKindShow && kind != model.EventKindCourse {
		return "kind must be SHOW or COURSE", false
	}
	if strings.TrimSpace(r.Title) == "" {
		return "title is required", false
	}
	if r.StartsAt.IsZero() {
		return "starts_at is required", false
	}
	if r.Capacity != nil && *r.Capacity == 0 {
		return "capacity must be positive or omitted for unlimited", false
	}
	return "", true
}

// CreateEvent handles POST /v1/admin/events.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg, ok := req.validate(); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ev := &model.Event{
		Kind:               strings.ToUpper(strings.TrimSpace(req.Kind)),
		Title:              strings.TrimSpace(req.Title),
		StartsAt:           req.StartsAt.UTC(),
		Location:           strings.TrimSpace(req.Location),
		Capacity:           req.Capacity,
		PriceCents:         req.PriceCents,
		DiscountPriceCents: req.DiscountPriceCents,
	}
	if err := h.EventRepo.Create(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.invalidateListings(c)
	return c.JSON(http.StatusCreated, ev)
}

// UpdateEvent handles PUT /v1/admin/events/:id.  Capacity may be
// lowered below what is already sold; existing purchases are never
// touched and availability simply floors at zero.
func (h *AdminHandler) UpdateEvent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg, ok := req.validate(); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	ev, err := h.EventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	ev.Kind = strings.ToUpper(strings.TrimSpace(req.Kind))
	ev.Title = strings.TrimSpace(req.Title)
	ev.StartsAt = req.StartsAt.UTC()
	ev.Location = strings.TrimSpace(req.Location)
	ev.Capacity = req.Capacity
	ev.PriceCents = req.PriceCents
	ev.DiscountPriceCents = req.DiscountPriceCents
	if req.Active != nil {
		ev.Active = *req.Active
	}
	if err := h.EventRepo.Update(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.invalidateListings(c)
	return c.JSON(http.StatusOK, ev)
}

// DeleteEvent handles DELETE /v1/admin/events/:id.  An event with
// purchases is deactivated rather than deleted so ticket codes remain
// scannable and the sales history stays intact.
func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	has, err := h.EventRepo.HasPurchases(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if has {
		if err := h.EventRepo.Deactivate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		h.invalidateListings(c)
		return c.JSON(http.StatusOK, echo.Map{"status": "deactivated"})
	}
	if err := h.EventRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.invalidateListings(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
}

// ListEventPurchases handles GET /v1/admin/events/:id/purchases and
// returns every purchase for the event alongside a sales summary.
func (h *AdminHandler) ListEventPurchases(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	if _, err := h.EventRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	purchases, err := h.PurchaseRepo.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	var sold, revenue uint64
	for i := range purchases {
		if purchases[i].PaymentStatus == model.PaymentStatusPaid {
			sold += uint64(purchases[i].Quantity())
			revenue += uint64(purchases[i].TotalCents)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"purchases":     purchases,
		"sold_qty":      sold,
		"revenue_cents": revenue,
	})
}

// RefundPurchase handles POST /v1/admin/purchases/:id/refund.  The
// refunded quantity returns to availability immediately because sold
// counts only include PAID purchases.  The money side is handled at
// the payment provider's dashboard; this only flips the local state.
func (h *AdminHandler) RefundPurchase(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}
	ctx := c.Request().Context()
	p, err := h.PurchaseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	tx, err := h.EventRepo.BeginTx(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := h.EventRepo.GetForUpdateTx(ctx, tx, p.EventID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.PurchaseRepo.RefundTx(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is already refunded"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed = true
	h.invalidateListings(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "refunded", "freed_qty": p.Quantity()})
}

// discountRequest is the body for creating discount codes.
type discountRequest struct {
	Code           string     `json:"code"`
	DiscountType   string     `json:"discount_type"`
	DiscountAmount uint32     `json:"discount_amount"`
	MaxUses        *uint32    `json:"max_uses"`
	ValidFrom      *time.Time `json:"valid_from"`
	ValidTo        *time.Time `json:"valid_to"`
}

// CreateDiscount handles POST /v1/admin/discounts.
func (h *AdminHandler) CreateDiscount(c echo.Context) error {
	var req discountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if req.DiscountType != model.DiscountTypeAmount && req.DiscountType != model.DiscountTypePercentage {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount_type must be amount or percentage"})
	}
	if req.DiscountType == model.DiscountTypePercentage && req.DiscountAmount > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "percentage cannot exceed 100"})
	}
	if req.DiscountAmount == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount_amount must be positive"})
	}
	if req.ValidFrom != nil && req.ValidTo != nil && req.ValidTo.Before(*req.ValidFrom) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_to must be after valid_from"})
	}

	d := &model.DiscountCode{
		Code:           strings.TrimSpace(req.Code),
		DiscountType:   req.DiscountType,
		DiscountAmount: req.DiscountAmount,
		MaxUses:        req.MaxUses,
		ValidFrom:      req.ValidFrom,
		ValidTo:        req.ValidTo,
		Active:         true,
	}
	if err := h.DiscountRepo.Create(c.Request().Context(), d); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "a code with this name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, d)
}

// SetDiscountActive handles PATCH /v1/admin/discounts/:id with a body
// of {"active": bool}.
func (h *AdminHandler) SetDiscountActive(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid discount id"})
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active is required"})
	}
	if err := h.DiscountRepo.SetActive(c.Request().Context(), id, *req.Active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "discount code not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// ListDiscounts handles GET /v1/admin/discounts.
func (h *AdminHandler) ListDiscounts(c echo.Context) error {
	codes, err := h.DiscountRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"discounts": codes})
}

// ListWaitlist handles GET /v1/admin/events/:id/waitlist and returns
// signups in order so the back office can contact them when capacity
// frees up.
func (h *AdminHandler) ListWaitlist(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	entries, err := h.WaitlistRepo.ListByEvent(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"waitlist": entries})
}
