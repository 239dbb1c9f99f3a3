package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/booking"
	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/payment"
	qu "github.com/kulisserna/boxoffice/internal/queue"
	"github.com/kulisserna/boxoffice/internal/repository"
	queue_publisher "github.com/kulisserna/boxoffice/internal/service"
	"github.com/kulisserna/boxoffice/internal/validate"
)

// CheckoutHandler turns an active hold plus buyer details into either
// a payment-provider redirect or, for a zero total, a directly
// confirmed purchase.  It also receives the provider's completion
// webhook.  Nothing is written locally between checkout initiation and
// the webhook: buyer details travel through the provider session and
// come back with the confirmation, so an abandoned payment leaves only
// a hold that lapses on its own.
type CheckoutHandler struct {
	EventRepo    EventStore
	HoldRepo     HoldStore
	PurchaseRepo PurchaseStore
	DiscountRepo DiscountStore
	Payments     *payment.Client
	Sessions     *booking.Registry

	// WebhookSecret enables HMAC-SHA256 verification of provider
	// callbacks.  Empty skips the check, which is only acceptable
	// behind a provider IP allowlist.
	WebhookSecret string
}

// NewCheckoutHandler constructs a CheckoutHandler.  All dependencies
// must be non-nil.
func NewCheckoutHandler(events EventStore, holds HoldStore, purchases PurchaseStore, discounts DiscountStore, payments *payment.Client, sessions *booking.Registry) *CheckoutHandler {
	if events == nil || holds == nil || purchases == nil || discounts == nil || payments == nil || sessions == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{
		EventRepo:    events,
		HoldRepo:     holds,
		PurchaseRepo: purchases,
		DiscountRepo: discounts,
		Payments:     payments,
		Sessions:     sessions,
	}
}

// checkoutRequest is the body of POST /v1/checkout.  The contact
// fields follow the ticket variant; course checkouts simply leave the
// postal fields empty and are validated against the course schema.
type checkoutRequest struct {
	HoldReference string `json:"hold_reference"`
	DiscountCode  string `json:"discount_code"`
	validate.TicketForm
}

// Checkout handles POST /v1/checkout.  The hold must still be active
// and owned by the calling session.  Validation failures are returned
// per field and nothing is dispatched; a valid request either confirms
// a free booking directly or returns the provider redirect URL.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	key, err := sessionKey(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing session key"})
	}
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.HoldReference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold_reference is required"})
	}

	ctx := c.Request().Context()
	hold, err := h.HoldRepo.GetActiveByReference(ctx, req.HoldReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusGone, echo.Map{"error": "your reservation has expired, please choose again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if hold.SessionKey != key {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "hold belongs to another session"})
	}
	ev, err := h.EventRepo.GetByID(ctx, hold.EventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// Validate the contact fields against the schema for this event
	// kind before anything leaves the process.
	var form validate.Form = req.TicketForm
	if ev.Kind == model.EventKindCourse {
		form = validate.CourseForm{Name: req.Name, Email: req.Email, Phone: req.Phone}
	}
	if errs := form.Validate(); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": errs})
	}

	// Resolve the discount code, if any.  Unknown or unusable codes are
	// rejected up front so the buyer is never surprised at the provider.
	now := time.Now().UTC()
	var code *model.DiscountCode
	if req.DiscountCode != "" {
		code, err = h.DiscountRepo.GetByCode(ctx, req.DiscountCode)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid discount code"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if !code.Applicable(now) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount code is not valid"})
		}
	}

	quote := booking.ComputeQuote(ev, hold.RegularQty, hold.DiscountQty, code)

	// Free tickets bypass the payment provider entirely.
	if quote.Free {
		purchase, _, err := h.finalize(ctx, finalizeArgs{
			holdReference: hold.Reference,
			buyer:         req.TicketForm,
			discountCode:  req.DiscountCode,
			totalCents:    0,
		})
		if err != nil {
			return h.finalizeError(c, err)
		}
		h.afterFinalize(ctx, key, ev, purchase)
		return c.JSON(http.StatusCreated, echo.Map{
			"status":      "confirmed",
			"ticket_code": purchase.TicketCode,
			"quote":       quote,
		})
	}

	url, err := h.Payments.CreateSession(ctx, payment.SessionRequest{
		EventID:       ev.ID,
		Kind:          ev.Kind,
		Title:         ev.Title,
		Date:          ev.StartsAt.Format(time.RFC3339),
		Location:      ev.Location,
		RegularQty:    hold.RegularQty,
		DiscountQty:   hold.DiscountQty,
		DiscountCode:  req.DiscountCode,
		AmountCents:   quote.TotalCents,
		HoldReference: hold.Reference,
		BuyerName:     req.Name,
		BuyerEmail:    req.Email,
		BuyerPhone:    req.Phone,
		Address:       req.Address,
		PostalCode:    req.PostalCode,
		City:          req.City,
	})
	if err != nil {
		if errors.Is(err, payment.ErrMissingRedirect) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment session could not be started, please try again"})
		}
		log.Printf("checkout: create session failed: %v", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "something went wrong, please try again"})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url, "quote": quote})
}

// finalizeArgs carries everything needed to convert a hold into a
// purchase.
type finalizeArgs struct {
	holdReference string
	buyer         validate.TicketForm
	discountCode  string
	totalCents    uint32
	paymentRef    string
}

// errHoldGone distinguishes a lapsed or already-finalized hold from
// other finalize failures.
var errHoldGone = errors.New("hold gone")

// finalize converts an active hold into a PAID purchase inside one
// transaction: lock the event row, fetch the hold under lock, insert
// the purchase, delete the hold, and count the discount code use.
// The claimed quantity moves from "held" to "sold" without ever being
// visible as available in between.  The second return value is the
// session key that owned the hold, for in-memory session bookkeeping.
func (h *CheckoutHandler) finalize(ctx context.Context, args finalizeArgs) (*model.Purchase, string, error) {
	tx, err := h.EventRepo.BeginTx(ctx)
	if err != nil {
		return nil, "", err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	hold, err := h.HoldRepo.GetActiveByReferenceTx(ctx, tx, args.holdReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", errHoldGone
		}
		return nil, "", err
	}
	if _, err := h.EventRepo.GetForUpdateTx(ctx, tx, hold.EventID); err != nil {
		return nil, "", err
	}

	purchase := &model.Purchase{
		EventID:       hold.EventID,
		BuyerName:     args.buyer.Name,
		BuyerEmail:    args.buyer.Email,
		BuyerPhone:    args.buyer.Phone,
		RegularQty:    hold.RegularQty,
		DiscountQty:   hold.DiscountQty,
		TotalCents:    args.totalCents,
		PaymentStatus: model.PaymentStatusPaid,
		TicketCode:    uuid.NewString(),
	}
	if args.buyer.Address != "" {
		purchase.Address = &args.buyer.Address
	}
	if args.buyer.PostalCode != "" {
		purchase.PostalCode = &args.buyer.PostalCode
	}
	if args.buyer.City != "" {
		purchase.City = &args.buyer.City
	}
	if args.discountCode != "" {
		purchase.DiscountCode = &args.discountCode
	}
	if args.paymentRef != "" {
		purchase.PaymentRef = &args.paymentRef
	}

	if err := h.PurchaseRepo.CreateTx(ctx, tx, purchase); err != nil {
		return nil, "", err
	}
	if err := h.HoldRepo.DeleteTx(ctx, tx, hold.ID); err != nil {
		return nil, "", err
	}
	if args.discountCode != "" {
		if err := h.DiscountRepo.IncrementUsageTx(ctx, tx, args.discountCode); err != nil {
			// A capped code that ran out between checkout and webhook
			// still completes the purchase; the charge already happened.
			if !errors.Is(err, repository.ErrConflict) {
				return nil, "", err
			}
			log.Printf("finalize: discount code %q exhausted after charge", args.discountCode)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, "", err
	}
	committed = true
	return purchase, hold.SessionKey, nil
}

// finalizeError maps finalize failures onto user-facing responses.
func (h *CheckoutHandler) finalizeError(c echo.Context, err error) error {
	if errors.Is(err, errHoldGone) {
		return c.JSON(http.StatusGone, echo.Map{"error": "your reservation has expired, please choose again"})
	}
	if errors.Is(err, sql.ErrTxDone) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	log.Printf("checkout: finalize failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "something went wrong, please try again"})
}

// afterFinalize updates the in-memory session and publishes the
// confirmation event.  Publish failures are logged and ignored; the
// purchase is already durable.
func (h *CheckoutHandler) afterFinalize(ctx context.Context, sessionKey string, ev *model.Event, p *model.Purchase) {
	sess := h.Sessions.Get(sessionKey)
	if sess.State() == booking.StateHeld {
		_ = sess.Finalize()
	}
	h.Sessions.Drop(sessionKey)

	_ = queue_publisher.PublishPurchaseConfirmed(ctx, qu.PurchaseConfirmedEvent{
		PurchaseID:  p.ID,
		EventID:     ev.ID,
		Kind:        ev.Kind,
		Title:       ev.Title,
		StartsAt:    ev.StartsAt.UTC().Format(time.RFC3339),
		Location:    ev.Location,
		BuyerName:   p.BuyerName,
		BuyerEmail:  p.BuyerEmail,
		RegularQty:  p.RegularQty,
		DiscountQty: p.DiscountQty,
		TotalCents:  p.TotalCents,
		TicketCode:  p.TicketCode,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
