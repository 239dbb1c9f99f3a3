package handler

import (
	"context"

	"github.com/kulisserna/boxoffice/internal/model"
	"github.com/kulisserna/boxoffice/internal/repository"
)

// The handler layer reaches storage through these interfaces.  The
// concrete repositories in internal/repository satisfy them; tests
// substitute in-memory fakes so the capacity arithmetic behind each
// endpoint can be exercised without a database.

// EventStore is the event access the handlers need, including the
// transaction entry point for the multi-table claim and finalize flows.
type EventStore interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	GetForUpdateTx(ctx context.Context, tx repository.Tx, id uint64) (*model.Event, error)
	ListActive(ctx context.Context) ([]model.Event, error)
	Create(ctx context.Context, ev *model.Event) error
	Update(ctx context.Context, ev *model.Event) error
	HasPurchases(ctx context.Context, id uint64) (bool, error)
	Deactivate(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

// HoldStore covers the hold lifecycle: sweep, counting, lookup, claim
// and release.
type HoldStore interface {
	ExpireTx(ctx context.Context, tx repository.Tx, eventID uint64) (uint32, error)
	ActiveQty(ctx context.Context, eventID uint64) (uint32, error)
	ActiveQtyTx(ctx context.Context, tx repository.Tx, eventID uint64) (uint32, error)
	ActiveBySession(ctx context.Context, sessionKey string) (*model.Hold, error)
	ActiveBySessionTx(ctx context.Context, tx repository.Tx, sessionKey string) (*model.Hold, error)
	GetActiveByReference(ctx context.Context, reference string) (*model.Hold, error)
	GetActiveByReferenceTx(ctx context.Context, tx repository.Tx, reference string) (*model.Hold, error)
	CreateTx(ctx context.Context, tx repository.Tx, h *model.Hold) error
	DeleteTx(ctx context.Context, tx repository.Tx, id uint64) error
	ReleaseBySessionTx(ctx context.Context, tx repository.Tx, sessionKey string, eventID uint64) (uint32, error)
}

// PurchaseStore covers confirmed sales: counting against capacity,
// finalize inserts, door scanning and refunds.
type PurchaseStore interface {
	SoldQty(ctx context.Context, eventID uint64) (uint32, error)
	SoldQtyTx(ctx context.Context, tx repository.Tx, eventID uint64) (uint32, error)
	CreateTx(ctx context.Context, tx repository.Tx, p *model.Purchase) error
	ExistsByEmail(ctx context.Context, eventID uint64, email string) (bool, error)
	GetByID(ctx context.Context, id uint64) (*model.Purchase, error)
	GetByTicketCodeTx(ctx context.Context, tx repository.Tx, ticketCode string) (*model.Purchase, error)
	AddScannedTx(ctx context.Context, tx repository.Tx, id uint64, count uint32) error
	RefundTx(ctx context.Context, tx repository.Tx, id uint64) error
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Purchase, error)
}

// DiscountStore covers discount codes.
type DiscountStore interface {
	GetByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	IncrementUsageTx(ctx context.Context, tx repository.Tx, code string) error
	Create(ctx context.Context, d *model.DiscountCode) error
	SetActive(ctx context.Context, id uint64, active bool) error
	List(ctx context.Context) ([]model.DiscountCode, error)
}

// WaitlistStore covers waitlist signups.
type WaitlistStore interface {
	Create(ctx context.Context, e *model.WaitlistEntry) error
	ListByEvent(ctx context.Context, eventID uint64) ([]model.WaitlistEntry, error)
}

// UserStore covers the back-office accounts.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}
