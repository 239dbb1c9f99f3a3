package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
)

// ScanHandler validates ticket codes at the door.  Each purchase
// carries one code covering all of its admissions; staff scan the code
// once per person entering and the handler tracks how many admissions
// remain.
type ScanHandler struct {
	EventRepo    EventStore
	PurchaseRepo PurchaseStore
}

// NewScanHandler constructs a ScanHandler.
func NewScanHandler(events EventStore, purchases PurchaseStore) *ScanHandler {
	if events == nil || purchases == nil {
		panic("nil dependency passed to NewScanHandler")
	}
	return &ScanHandler{EventRepo: events, PurchaseRepo: purchases}
}

type scanRequest struct {
	TicketCode string `json:"ticket_code"`
	Count      uint32 `json:"count"`
}

// Scan handles POST /v1/admin/purchases/scan.  The purchase row is locked for
// the duration of the check so two door stations scanning the same
// code cannot both admit the last remaining person.  Count defaults
// to one admission.
func (h *ScanHandler) Scan(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.TicketCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_code is required"})
	}
	if req.Count == 0 {
		req.Count = 1
	}

	ctx := c.Request().Context()
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

	p, err := h.PurchaseRepo.GetByTicketCodeTx(ctx, tx, req.TicketCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown ticket code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if p.PaymentStatus == model.PaymentStatusRefunded {
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket has been refunded"})
	}
	remaining := p.Quantity() - p.ScannedQty
	if remaining == 0 {
		// Scanning an exhausted code again is not an error at the door;
		// report the state and let staff decide.
		return c.JSON(http.StatusOK, echo.Map{
			"status":     "already scanned",
			"quantity":   p.Quantity(),
			"scanned":    p.ScannedQty,
			"remaining":  0,
			"buyer_name": p.BuyerName,
		})
	}
	if req.Count > remaining {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "not enough admissions left on this ticket",
			"remaining": remaining,
		})
	}

	if err := h.PurchaseRepo.AddScannedTx(ctx, tx, p.ID, req.Count); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"status":     "admitted",
		"admitted":   req.Count,
		"quantity":   p.Quantity(),
		"scanned":    p.ScannedQty + req.Count,
		"remaining":  remaining - req.Count,
		"buyer_name": p.BuyerName,
	})
}
