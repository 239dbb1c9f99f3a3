package repository

import (
	"context"
	"database/sql"

	"github.com/kulisserna/boxoffice/internal/model"
)

// EventRepo provides data access to the events table.  Events are the
// shows and course instances sold through the booking flow.  All
// timestamps are stored in UTC.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// BeginTx opens a transaction for the handlers that span events, holds
// and purchases in one atomic step.
func (r *EventRepo) BeginTx(ctx context.Context) (Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

const eventColumns = `id, kind, title, starts_at, location, capacity,
	price_cents, discount_price_cents, active, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var ev model.Event
	var capacity sql.NullInt64
	if err := row.Scan(
		&ev.ID, &ev.Kind, &ev.Title, &ev.StartsAt, &ev.Location, &capacity,
		&ev.PriceCents, &ev.DiscountPriceCents, &ev.Active, &ev.CreatedAt, &ev.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if capacity.Valid {
		c := uint32(capacity.Int64)
		ev.Capacity = &c
	}
	return &ev, nil
}

// GetByID loads a single event.  Returns ErrNotFound when no event with
// the given ID exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	ev, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return ev, err
}

// GetForUpdateTx loads an event inside the transaction with a row lock.
// Claims, finalizations and refunds lock the event row first so that
// concurrent capacity arithmetic for the same event is serialized; two
// concurrent claims for the last unit can therefore never both succeed.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx Tx, id uint64) (*model.Event, error) {
	ev, err := scanEvent(tx.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return ev, err
}

// ListActive returns all active events ordered by start time.  Used by
// the public listing endpoints; deactivated events stay hidden.
func (r *EventRepo) ListActive(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE active = 1 ORDER BY starts_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Create inserts a new event and populates the generated ID and
// timestamps on the provided model.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	var capacity any
	if ev.Capacity != nil {
		capacity = *ev.Capacity
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (kind, title, starts_at, location, capacity, price_cents, discount_price_cents, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		ev.Kind, ev.Title, ev.StartsAt.UTC(), ev.Location, capacity,
		ev.PriceCents, ev.DiscountPriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	loaded, err := r.GetByID(ctx, ev.ID)
	if err != nil {
		return err
	}
	*ev = *loaded
	return nil
}

// Update rewrites the editable columns of an event.  Returns
// ErrNotFound when the event does not exist.
func (r *EventRepo) Update(ctx context.Context, ev *model.Event) error {
	var capacity any
	if ev.Capacity != nil {
		capacity = *ev.Capacity
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET kind = ?, title = ?, starts_at = ?, location = ?, capacity = ?,
		        price_cents = ?, discount_price_cents = ?, active = ?
		 WHERE id = ?`,
		ev.Kind, ev.Title, ev.StartsAt.UTC(), ev.Location, capacity,
		ev.PriceCents, ev.DiscountPriceCents, ev.Active, ev.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows for a no-op update as well,
		// so verify existence before reporting ErrNotFound.
		if _, err := r.GetByID(ctx, ev.ID); err != nil {
			return err
		}
	}
	return nil
}

// HasPurchases reports whether any purchase references the event.
// Events with purchases are soft-deactivated instead of deleted.
func (r *EventRepo) HasPurchases(ctx context.Context, id uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchases WHERE event_id = ?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Deactivate hides the event from public listings and blocks new
// claims without touching existing purchases.
func (r *EventRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an event outright.  Callers must first check
// HasPurchases; the foreign keys from purchases prevent deleting a
// referenced event, which surfaces as ErrConflict.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return ErrConflict
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
