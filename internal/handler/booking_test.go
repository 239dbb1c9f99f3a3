package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulisserna/boxoffice/internal/booking"
	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
)

// capacityLedger is the in-memory stand-in for the events, holds and
// purchases tables.  Its mutex plays the role of the event row lock: a
// fake transaction takes it on BeginTx and releases it on commit or
// rollback, so transactional capacity arithmetic is serialized exactly
// like it is behind SELECT ... FOR UPDATE.
type capacityLedger struct {
	mu     sync.Mutex
	event  *model.Event
	holds  map[uint64]*model.Hold
	sold   uint32
	nextID uint64
}

func newCapacityLedger(ev *model.Event) *capacityLedger {
	return &capacityLedger{event: ev, holds: make(map[uint64]*model.Hold)}
}

// heldQty sums the active holds.  Callers must hold the mutex or own
// the open transaction.
func (l *capacityLedger) heldQty() uint32 {
	var total uint32
	for _, h := range l.holds {
		total += h.RegularQty + h.DiscountQty
	}
	return total
}

// available reports capacity minus sold minus held, floored at zero.
func (l *capacityLedger) available() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	taken := l.sold + l.heldQty()
	if taken >= *l.event.Capacity {
		return 0
	}
	return *l.event.Capacity - taken
}

// fakeTx pairs with capacityLedger.  Commit and Rollback both just
// release the ledger lock; the ledger mutations have already happened
// in place, which is fine for tests that only drive committed paths.
type fakeTx struct {
	ledger *capacityLedger
	done   bool
}

func (t *fakeTx) Commit() error   { t.release(); return nil }
func (t *fakeTx) Rollback() error { t.release(); return nil }

func (t *fakeTx) release() {
	if !t.done {
		t.done = true
		t.ledger.mu.Unlock()
	}
}

func (t *fakeTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}
func (t *fakeTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

// The fake stores embed their interface so any method a test does not
// exercise panics loudly instead of silently returning zero values.

type fakeEventStore struct {
	EventStore
	ledger *capacityLedger
}

func (s *fakeEventStore) BeginTx(context.Context) (repository.Tx, error) {
	s.ledger.mu.Lock()
	return &fakeTx{ledger: s.ledger}, nil
}

func (s *fakeEventStore) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if s.ledger.event == nil || s.ledger.event.ID != id {
		return nil, repository.ErrNotFound
	}
	ev := *s.ledger.event
	return &ev, nil
}

func (s *fakeEventStore) GetForUpdateTx(_ context.Context, _ repository.Tx, id uint64) (*model.Event, error) {
	if s.ledger.event == nil || s.ledger.event.ID != id {
		return nil, repository.ErrNotFound
	}
	ev := *s.ledger.event
	return &ev, nil
}

type fakeHoldStore struct {
	HoldStore
	ledger *capacityLedger
}

func (s *fakeHoldStore) ExpireTx(_ context.Context, _ repository.Tx, eventID uint64) (uint32, error) {
	now := time.Now().UTC()
	var swept uint32
	for id, h := range s.ledger.holds {
		if h.EventID == eventID && !h.ExpiresAt.After(now) {
			swept += h.RegularQty + h.DiscountQty
			delete(s.ledger.holds, id)
		}
	}
	return swept, nil
}

func (s *fakeHoldStore) ActiveQty(_ context.Context, eventID uint64) (uint32, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.ledger.heldQty(), nil
}

func (s *fakeHoldStore) ActiveQtyTx(_ context.Context, _ repository.Tx, eventID uint64) (uint32, error) {
	return s.ledger.heldQty(), nil
}

func (s *fakeHoldStore) ActiveBySessionTx(_ context.Context, _ repository.Tx, sessionKey string) (*model.Hold, error) {
	for _, h := range s.ledger.holds {
		if h.SessionKey == sessionKey {
			cp := *h
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeHoldStore) GetActiveByReferenceTx(_ context.Context, _ repository.Tx, reference string) (*model.Hold, error) {
	for _, h := range s.ledger.holds {
		if h.Reference == reference {
			cp := *h
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeHoldStore) CreateTx(_ context.Context, _ repository.Tx, h *model.Hold) error {
	if h.Reference == "" {
		h.Reference = uuid.NewString()
	}
	s.ledger.nextID++
	h.ID = s.ledger.nextID
	cp := *h
	s.ledger.holds[h.ID] = &cp
	return nil
}

func (s *fakeHoldStore) DeleteTx(_ context.Context, _ repository.Tx, id uint64) error {
	delete(s.ledger.holds, id)
	return nil
}

func (s *fakeHoldStore) ReleaseBySessionTx(_ context.Context, _ repository.Tx, sessionKey string, eventID uint64) (uint32, error) {
	var freed uint32
	for id, h := range s.ledger.holds {
		if h.SessionKey == sessionKey && h.EventID == eventID {
			freed += h.RegularQty + h.DiscountQty
			delete(s.ledger.holds, id)
		}
	}
	return freed, nil
}

type fakePurchaseStore struct {
	PurchaseStore
	ledger *capacityLedger
}

func (s *fakePurchaseStore) SoldQty(_ context.Context, eventID uint64) (uint32, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.ledger.sold, nil
}

func (s *fakePurchaseStore) SoldQtyTx(_ context.Context, _ repository.Tx, eventID uint64) (uint32, error) {
	return s.ledger.sold, nil
}

func testCapacityEvent(capacity uint32) *model.Event {
	return &model.Event{
		ID:         1,
		Kind:       model.EventKindShow,
		Title:      "An Evening of Improv",
		StartsAt:   time.Now().UTC().Add(72 * time.Hour),
		Capacity:   &capacity,
		PriceCents: 17500,
		Active:     true,
	}
}

func newBookingEnv(ev *model.Event) (*BookingHandler, *capacityLedger) {
	ledger := newCapacityLedger(ev)
	h := NewBookingHandler(
		&fakeEventStore{ledger: ledger},
		&fakeHoldStore{ledger: ledger},
		&fakePurchaseStore{ledger: ledger},
		booking.NewRegistry(),
		5*time.Minute,
	)
	return h, ledger
}

func doCreateHold(t *testing.T, h *BookingHandler, sessionKey string, regular, discount uint32) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"regular_qty":%d,"discount_qty":%d}`, regular, discount)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/1/hold", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Session-Key", sessionKey)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/events/:id/hold")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.CreateHold(c))
	return rec
}

func doReleaseHold(t *testing.T, h *BookingHandler, sessionKey string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/events/1/hold", nil)
	req.Header.Set("X-Session-Key", sessionKey)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/events/:id/hold")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.ReleaseHold(c))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestCreateHoldDecrementsAvailability(t *testing.T) {
	h, ledger := newBookingEnv(testCapacityEvent(10))

	rec := doCreateHold(t, h, "sess-a", 2, 1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, uint32(7), ledger.available())

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["reference"])
	assert.Equal(t, float64(2), body["regular_qty"])
	assert.Equal(t, float64(1), body["discount_qty"])
}

func TestCreateHoldInsufficientCapacityLeavesAvailabilityUnchanged(t *testing.T) {
	h, ledger := newBookingEnv(testCapacityEvent(5))
	ledger.sold = 3

	rec := doCreateHold(t, h, "sess-a", 4, 0)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["remaining"])
	assert.Equal(t, uint32(2), ledger.available())
}

func TestCreateHoldSecondClaimRoutedBackToExisting(t *testing.T) {
	h, ledger := newBookingEnv(testCapacityEvent(10))

	first := doCreateHold(t, h, "sess-a", 2, 0)
	require.Equal(t, http.StatusCreated, first.Code)
	reference := decodeBody(t, first)["reference"]

	second := doCreateHold(t, h, "sess-a", 1, 0)
	require.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, reference, decodeBody(t, second)["reference"])

	// The rejected claim took nothing.
	assert.Equal(t, uint32(8), ledger.available())
}

func TestCreateHoldQuantityCap(t *testing.T) {
	h, ledger := newBookingEnv(testCapacityEvent(10))

	tests := []struct {
		name     string
		regular  uint32
		discount uint32
		want     int
	}{
		{"zero quantity", 0, 0, http.StatusBadRequest},
		{"at the cap", booking.MaxHoldQuantity, 0, http.StatusCreated},
		{"just over the cap", booking.MaxHoldQuantity, 1, http.StatusBadRequest},
		{"overflowing sum", 1 << 31, 1 << 31, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doCreateHold(t, h, "sess-"+tt.name, tt.regular, tt.discount)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
	// Only the at-the-cap claim landed.
	assert.Equal(t, uint32(0), ledger.available())
}

func TestReleaseHoldRestoresAvailability(t *testing.T) {
	h, ledger := newBookingEnv(testCapacityEvent(10))

	rec := doCreateHold(t, h, "sess-a", 3, 0)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, uint32(7), ledger.available())

	rel := doReleaseHold(t, h, "sess-a")
	require.Equal(t, http.StatusOK, rel.Code)
	assert.Equal(t, float64(3), decodeBody(t, rel)["released"])
	assert.Equal(t, uint32(10), ledger.available())

	// Releasing again is a no-op, not an error.
	rel = doReleaseHold(t, h, "sess-a")
	require.Equal(t, http.StatusOK, rel.Code)
	assert.Equal(t, float64(0), decodeBody(t, rel)["released"])
}

// A burst of buyers racing for the last unit must produce exactly one
// hold; everyone else leaves with a conflict and availability never
// goes negative.
func TestConcurrentClaimsLastUnitSingleWinner(t *testing.T) {
	h, ledger := newBookingEnv(testCapacityEvent(1))

	const racers = 16
	var wg sync.WaitGroup
	codes := make(chan int, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := doCreateHold(t, h, "sess-"+strconv.Itoa(i), 1, 0)
			codes <- rec.Code
		}(i)
	}
	wg.Wait()
	close(codes)

	var created, conflicts int
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, racers-1, conflicts)
	assert.Equal(t, uint32(0), ledger.available())
}

func TestAvailabilityEndpoint(t *testing.T) {
	h, ledger := newBookingEnv(testCapacityEvent(10))
	ledger.sold = 4
	doCreateHold(t, h, "sess-a", 2, 0)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/events/1/availability", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/events/:id/availability")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Availability(c))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(4), body["available"])
	assert.Equal(t, false, body["sold_out"])
}
