package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kulisserna/boxoffice/internal/model"
)

// DiscountRepo provides data access to the discount_codes table.
// Usage counting happens with a guarded UPDATE so a capped code can
// never be applied past its maximum even under concurrent checkouts.
type DiscountRepo struct {
	db *sql.DB
}

// NewDiscountRepo returns a new DiscountRepo bound to the database.
func NewDiscountRepo(db *sql.DB) *DiscountRepo { return &DiscountRepo{db: db} }

const discountColumns = `id, code, discount_type, discount_amount, max_uses,
	current_uses, valid_from, valid_to, active, created_at`

func scanDiscount(row interface{ Scan(...any) error }) (*model.DiscountCode, error) {
	var d model.DiscountCode
	var maxUses sql.NullInt64
	var from, to sql.NullTime
	err := row.Scan(&d.ID, &d.Code, &d.DiscountType, &d.DiscountAmount, &maxUses,
		&d.CurrentUses, &from, &to, &d.Active, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if maxUses.Valid {
		m := uint32(maxUses.Int64)
		d.MaxUses = &m
	}
	if from.Valid {
		d.ValidFrom = &from.Time
	}
	if to.Valid {
		d.ValidTo = &to.Time
	}
	return &d, nil
}

// GetByCode loads a discount code by its (case-insensitive) code
// string.  Returns ErrNotFound for unknown codes.
func (r *DiscountRepo) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	code = strings.TrimSpace(code)
	d, err := scanDiscount(r.db.QueryRowContext(ctx,
		`SELECT `+discountColumns+` FROM discount_codes WHERE LOWER(code) = LOWER(?)`, code))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

// IncrementUsageTx bumps current_uses for a code as part of a finalize
// transaction.  The WHERE clause re-checks the cap so concurrent
// finalizations cannot push a capped code past max_uses; when the cap
// was reached in the meantime ErrConflict is returned.
func (r *DiscountRepo) IncrementUsageTx(ctx context.Context, tx Tx, code string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE discount_codes
		 SET current_uses = current_uses + 1
		 WHERE LOWER(code) = LOWER(?) AND (max_uses IS NULL OR current_uses < max_uses)`,
		strings.TrimSpace(code))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Create inserts a new discount code and populates its generated ID.
// A duplicate code string surfaces as ErrConflict.
func (r *DiscountRepo) Create(ctx context.Context, d *model.DiscountCode) error {
	var maxUses any
	if d.MaxUses != nil {
		maxUses = *d.MaxUses
	}
	var from, to any
	if d.ValidFrom != nil {
		from = d.ValidFrom.UTC()
	}
	if d.ValidTo != nil {
		to = d.ValidTo.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO discount_codes (code, discount_type, discount_amount, max_uses, valid_from, valid_to, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(d.Code), d.DiscountType, d.DiscountAmount, maxUses, from, to, d.Active)
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
	d.ID = uint64(id)
	return nil
}

// SetActive toggles a code without touching its usage history.
func (r *DiscountRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE discount_codes SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := scanDiscount(r.db.QueryRowContext(ctx,
			`SELECT `+discountColumns+` FROM discount_codes WHERE id = ?`, id)); err == sql.ErrNoRows {
			return ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// List returns all discount codes, newest first, for the admin
// back-office.
func (r *DiscountRepo) List(ctx context.Context) ([]model.DiscountCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+discountColumns+` FROM discount_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	codes := make([]model.DiscountCode, 0)
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}
