package repository

import (
	"context"
	"strings"

	"database/sql"

	"github.com/kulisserna/boxoffice/internal/model"
)

// WaitlistRepo provides data access to the waitlist_entries table.  A
// unique index over (event_id, email) enforces one entry per visitor
// and event.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// Create inserts a waitlist entry.  A duplicate email for the same
// event surfaces as ErrConflict.
func (r *WaitlistRepo) Create(ctx context.Context, e *model.WaitlistEntry) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO waitlist_entries (event_id, name, email, phone) VALUES (?, ?, ?, ?)`,
		e.EventID, e.Name, strings.ToLower(strings.TrimSpace(e.Email)), e.Phone)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// ListByEvent returns the waitlist for an event in signup order.
func (r *WaitlistRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, name, email, phone, created_at
		 FROM waitlist_entries WHERE event_id = ? ORDER BY created_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.Name, &e.Email, &e.Phone, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
