package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/booking"
	"github.com/kulisserna/boxoffice/internal/payment"
	"github.com/kulisserna/boxoffice/internal/repository"
	"github.com/kulisserna/boxoffice/internal/validate"
)

// webhookRequest is the provider's completion callback.  Metadata is
// the session payload handed to the provider at checkout, returned
// verbatim, so the purchase can be written without any local state
// having been kept between the two calls.
type webhookRequest struct {
	Status     string                 `json:"status"`
	PaymentRef string                 `json:"payment_ref"`
	Metadata   payment.SessionRequest `json:"metadata"`
}

// PaymentWebhook handles POST /v1/payments/webhook.  A completed
// payment finalizes the referenced hold into a purchase; any other
// terminal status releases the hold immediately instead of letting it
// run out the clock.  The endpoint is idempotent: a retry after the
// hold is gone answers 200 so the provider stops redelivering.
func (h *CheckoutHandler) PaymentWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	if h.WebhookSecret != "" && !verifySignature(body, c.Request().Header.Get("X-Webhook-Signature"), h.WebhookSecret) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}
	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if req.Metadata.HoldReference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing hold reference"})
	}

	ctx := c.Request().Context()
	if req.Status != "paid" && req.Status != "complete" {
		// Cancelled or failed payment.  Free the capacity now rather
		// than waiting for the hold to lapse.
		if err := h.releaseByReference(ctx, req.Metadata.HoldReference); err != nil {
			log.Printf("webhook: release hold %s: %v", req.Metadata.HoldReference, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "release failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "released"})
	}

	purchase, sessionKey, err := h.finalize(ctx, finalizeArgs{
		holdReference: req.Metadata.HoldReference,
		buyer: validate.TicketForm{
			Name:       req.Metadata.BuyerName,
			Email:      req.Metadata.BuyerEmail,
			Phone:      req.Metadata.BuyerPhone,
			Address:    req.Metadata.Address,
			PostalCode: req.Metadata.PostalCode,
			City:       req.Metadata.City,
		},
		discountCode: req.Metadata.DiscountCode,
		totalCents:   req.Metadata.AmountCents,
		paymentRef:   req.PaymentRef,
	})
	if err != nil {
		if errors.Is(err, errHoldGone) {
			// Duplicate delivery or a hold that lapsed mid-payment.
			// Answer 200 either way; the provider retries on anything
			// else and the money question is handled out of band.
			log.Printf("webhook: hold %s already gone", req.Metadata.HoldReference)
			return c.JSON(http.StatusOK, echo.Map{"status": "already processed"})
		}
		log.Printf("webhook: finalize failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "finalize failed"})
	}

	ev, err := h.EventRepo.GetByID(ctx, purchase.EventID)
	if err != nil {
		log.Printf("webhook: load event %d: %v", purchase.EventID, err)
	} else {
		h.afterFinalize(ctx, sessionKey, ev, purchase)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "confirmed", "ticket_code": purchase.TicketCode})
}

// releaseByReference drops an active hold after a failed payment.  It
// writes nothing to the response; the caller owns the HTTP reply.
func (h *CheckoutHandler) releaseByReference(ctx context.Context, reference string) error {
	tx, err := h.EventRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	hold, err := h.HoldRepo.GetActiveByReferenceTx(ctx, tx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil // already lapsed or released
		}
		return err
	}
	if err := h.HoldRepo.DeleteTx(ctx, tx, hold.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	sess := h.Sessions.Get(hold.SessionKey)
	if sess.State() == booking.StateHeld {
		_ = sess.Release()
	}
	h.Sessions.Drop(hold.SessionKey)
	return nil
}

// verifySignature checks an HMAC-SHA256 hex signature of the body.
func verifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
