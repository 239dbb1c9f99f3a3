package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/kulisserna/boxoffice/internal/model"
)

// HoldRepo provides data access to the holds table.  Holds are the
// time-boxed capacity claims made before checkout.  Expiry comparisons
// happen in SQL against UTC_TIMESTAMP() so the database clock is the
// single authority; a client that disappears never keeps capacity
// locked beyond its hold's expiry.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// ExpireTx deletes all lapsed holds for an event and returns how many
// units were returned to availability.  Callers run this inside the
// same transaction as a claim or finalize, after locking the event
// row, so availability arithmetic always sees a swept table.
func (r *HoldRepo) ExpireTx(ctx context.Context, tx Tx, eventID uint64) (uint32, error) {
	var freed sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(regular_qty + discount_qty), 0)
		 FROM holds WHERE event_id = ? AND expires_at <= UTC_TIMESTAMP()`,
		eventID).Scan(&freed)
	if err != nil {
		return 0, err
	}
	if freed.Int64 == 0 {
		return 0, nil
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM holds WHERE event_id = ? AND expires_at <= UTC_TIMESTAMP()`,
		eventID); err != nil {
		return 0, err
	}
	return uint32(freed.Int64), nil
}

// ActiveQtyTx sums the units claimed by all non-expired holds for an
// event.  Used together with the confirmed-sold count to compute what
// remains claimable.
func (r *HoldRepo) ActiveQtyTx(ctx context.Context, tx Tx, eventID uint64) (uint32, error) {
	var qty sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(regular_qty + discount_qty), 0)
		 FROM holds WHERE event_id = ? AND expires_at > UTC_TIMESTAMP()`,
		eventID).Scan(&qty)
	if err != nil {
		return 0, err
	}
	return uint32(qty.Int64), nil
}

// ActiveQty is the non-transactional variant used by the availability
// endpoint, where a slightly stale read is acceptable.
func (r *HoldRepo) ActiveQty(ctx context.Context, eventID uint64) (uint32, error) {
	var qty sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(regular_qty + discount_qty), 0)
		 FROM holds WHERE event_id = ? AND expires_at > UTC_TIMESTAMP()`,
		eventID).Scan(&qty)
	if err != nil {
		return 0, err
	}
	return uint32(qty.Int64), nil
}

const holdColumns = `id, session_key, event_id, regular_qty, discount_qty, reference, expires_at, created_at`

func scanHold(row interface{ Scan(...any) error }) (*model.Hold, error) {
	var h model.Hold
	err := row.Scan(&h.ID, &h.SessionKey, &h.EventID, &h.RegularQty, &h.DiscountQty,
		&h.Reference, &h.ExpiresAt, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ActiveBySessionTx returns the session's active hold for any event, or
// ErrNotFound.  At most one active hold exists per session key.
func (r *HoldRepo) ActiveBySessionTx(ctx context.Context, tx Tx, sessionKey string) (*model.Hold, error) {
	h, err := scanHold(tx.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM holds
		 WHERE session_key = ? AND expires_at > UTC_TIMESTAMP()
		 ORDER BY id DESC LIMIT 1`, sessionKey))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

// ActiveBySession is the non-transactional variant used by the hold
// status endpoint to recover a session's hold after a server restart.
func (r *HoldRepo) ActiveBySession(ctx context.Context, sessionKey string) (*model.Hold, error) {
	h, err := scanHold(r.db.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM holds
		 WHERE session_key = ? AND expires_at > UTC_TIMESTAMP()
		 ORDER BY id DESC LIMIT 1`, sessionKey))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

// GetActiveByReference loads a non-expired hold by its opaque
// reference.  Returns ErrNotFound when the reference is unknown or the
// hold has lapsed.
func (r *HoldRepo) GetActiveByReference(ctx context.Context, reference string) (*model.Hold, error) {
	h, err := scanHold(r.db.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM holds
		 WHERE reference = ? AND expires_at > UTC_TIMESTAMP()`, reference))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

// GetActiveByReferenceTx is GetActiveByReference inside a transaction,
// used by the finalize path so the hold cannot lapse between the check
// and the purchase insert.
func (r *HoldRepo) GetActiveByReferenceTx(ctx context.Context, tx Tx, reference string) (*model.Hold, error) {
	h, err := scanHold(tx.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM holds
		 WHERE reference = ? AND expires_at > UTC_TIMESTAMP() FOR UPDATE`, reference))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

// CreateTx inserts a new hold within the provided transaction and
// populates its generated ID and reference.  The caller must have
// locked the event row and verified remaining capacity first.
func (r *HoldRepo) CreateTx(ctx context.Context, tx Tx, h *model.Hold) error {
	if h.Reference == "" {
		h.Reference = uuid.NewString()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO holds (session_key, event_id, regular_qty, discount_qty, reference, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.SessionKey, h.EventID, h.RegularQty, h.DiscountQty, h.Reference, h.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// DeleteTx removes a hold by ID.  Used when a hold is finalized into a
// purchase or explicitly released.
func (r *HoldRepo) DeleteTx(ctx context.Context, tx Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM holds WHERE id = ?`, id)
	return err
}

// ReleaseBySessionTx removes all holds owned by the session for an
// event and returns the number of units returned to availability.
func (r *HoldRepo) ReleaseBySessionTx(ctx context.Context, tx Tx, sessionKey string, eventID uint64) (uint32, error) {
	var freed sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(regular_qty + discount_qty), 0)
		 FROM holds WHERE session_key = ? AND event_id = ?`,
		sessionKey, eventID).Scan(&freed)
	if err != nil {
		return 0, err
	}
	if freed.Int64 == 0 {
		return 0, nil
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM holds WHERE session_key = ? AND event_id = ?`,
		sessionKey, eventID); err != nil {
		return 0, err
	}
	return uint32(freed.Int64), nil
}
