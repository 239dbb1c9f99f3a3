package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulisserna/boxoffice/internal/booking"
	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/payment"
	"github.com/kulisserna/boxoffice/internal/repository"
)

// brokenTxEventStore refuses to open transactions, simulating a
// database outage mid-webhook.
type brokenTxEventStore struct {
	EventStore
}

func (s *brokenTxEventStore) BeginTx(context.Context) (repository.Tx, error) {
	return nil, errors.New("connection lost")
}

func newWebhookEnv(events EventStore, holds HoldStore, purchases PurchaseStore) *CheckoutHandler {
	return NewCheckoutHandler(
		events,
		holds,
		purchases,
		&fakeDiscountStore{},
		payment.NewClient("http://payments.invalid", "key", ""),
		booking.NewRegistry(),
	)
}

type fakeDiscountStore struct {
	DiscountStore
}

func doWebhook(t *testing.T, h *CheckoutHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.PaymentWebhook(c))
	return rec
}

// requireSingleJSONBody decodes the response and fails if a second
// JSON value follows the first one.
func requireSingleJSONBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	dec := json.NewDecoder(rec.Body)
	var first map[string]any
	require.NoError(t, dec.Decode(&first))
	var second map[string]any
	require.ErrorIs(t, dec.Decode(&second), io.EOF, "response must contain exactly one JSON value")
	return first
}

func TestPaymentWebhookCancelledReleasesHold(t *testing.T) {
	ledger := newCapacityLedger(testCapacityEvent(10))
	ledger.nextID = 1
	ledger.holds[1] = &model.Hold{
		ID:         1,
		SessionKey: "sess-a",
		EventID:    1,
		RegularQty: 2,
		Reference:  "ref-1",
		ExpiresAt:  time.Now().UTC().Add(5 * time.Minute),
	}
	h := newWebhookEnv(
		&fakeEventStore{ledger: ledger},
		&fakeHoldStore{ledger: ledger},
		&fakePurchaseStore{ledger: ledger},
	)

	rec := doWebhook(t, h, `{"status":"cancelled","metadata":{"hold_reference":"ref-1"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := requireSingleJSONBody(t, rec)
	assert.Equal(t, "released", body["status"])
	assert.Empty(t, ledger.holds, "the hold is gone")
	assert.Equal(t, uint32(10), ledger.available())
}

func TestPaymentWebhookCancelledUnknownHoldIsOK(t *testing.T) {
	ledger := newCapacityLedger(testCapacityEvent(10))
	h := newWebhookEnv(
		&fakeEventStore{ledger: ledger},
		&fakeHoldStore{ledger: ledger},
		&fakePurchaseStore{ledger: ledger},
	)

	rec := doWebhook(t, h, `{"status":"failed","metadata":{"hold_reference":"ref-lapsed"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := requireSingleJSONBody(t, rec)
	assert.Equal(t, "released", body["status"])
}

func TestPaymentWebhookReleaseFailureWritesOneResponse(t *testing.T) {
	ledger := newCapacityLedger(testCapacityEvent(10))
	h := newWebhookEnv(
		&brokenTxEventStore{},
		&fakeHoldStore{ledger: ledger},
		&fakePurchaseStore{ledger: ledger},
	)

	rec := doWebhook(t, h, `{"status":"cancelled","metadata":{"hold_reference":"ref-1"}}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := requireSingleJSONBody(t, rec)
	assert.Equal(t, "release failed", body["error"])
}

func TestPaymentWebhookRejectsMissingReference(t *testing.T) {
	ledger := newCapacityLedger(testCapacityEvent(10))
	h := newWebhookEnv(
		&fakeEventStore{ledger: ledger},
		&fakeHoldStore{ledger: ledger},
		&fakePurchaseStore{ledger: ledger},
	)

	rec := doWebhook(t, h, `{"status":"cancelled","metadata":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	requireSingleJSONBody(t, rec)
}
