package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kulisserna/boxoffice/internal/model"
)

// PurchaseRepo provides data access to the purchases table.  Purchases
// are the finalized transactions created from holds; while PAID their
// quantity stays deducted from availability, and a refund returns it.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

const purchaseColumns = `id, event_id, buyer_name, buyer_email, buyer_phone,
	address, postal_code, city, regular_qty, discount_qty, total_cents,
	discount_code, payment_status, payment_ref, ticket_code, scanned_qty,
	created_at, updated_at`

func scanPurchase(row interface{ Scan(...any) error }) (*model.Purchase, error) {
	var p model.Purchase
	var address, postal, city, code, payRef sql.NullString
	err := row.Scan(
		&p.ID, &p.EventID, &p.BuyerName, &p.BuyerEmail, &p.BuyerPhone,
		&address, &postal, &city, &p.RegularQty, &p.DiscountQty, &p.TotalCents,
		&code, &p.PaymentStatus, &payRef, &p.TicketCode, &p.ScannedQty,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if address.Valid {
		p.Address = &address.String
	}
	if postal.Valid {
		p.PostalCode = &postal.String
	}
	if city.Valid {
		p.City = &city.String
	}
	if code.Valid {
		p.DiscountCode = &code.String
	}
	if payRef.Valid {
		p.PaymentRef = &payRef.String
	}
	return &p, nil
}

// SoldQtyTx sums the admissions of all PAID purchases for an event
// inside the transaction.  Refunded purchases no longer count against
// availability.
func (r *PurchaseRepo) SoldQtyTx(ctx context.Context, tx Tx, eventID uint64) (uint32, error) {
	var qty sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(regular_qty + discount_qty), 0)
		 FROM purchases WHERE event_id = ? AND payment_status = ?`,
		eventID, model.PaymentStatusPaid).Scan(&qty)
	if err != nil {
		return 0, err
	}
	return uint32(qty.Int64), nil
}

// SoldQty is the non-transactional variant used by the availability
// endpoint.
func (r *PurchaseRepo) SoldQty(ctx context.Context, eventID uint64) (uint32, error) {
	var qty sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(regular_qty + discount_qty), 0)
		 FROM purchases WHERE event_id = ? AND payment_status = ?`,
		eventID, model.PaymentStatusPaid).Scan(&qty)
	if err != nil {
		return 0, err
	}
	return uint32(qty.Int64), nil
}

// CreateTx inserts a purchase within the provided transaction and
// populates its generated ID.  The caller deletes the finalized hold
// in the same transaction so capacity accounting never double-counts.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx Tx, p *model.Purchase) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchases (event_id, buyer_name, buyer_email, buyer_phone,
		        address, postal_code, city, regular_qty, discount_qty, total_cents,
		        discount_code, payment_status, payment_ref, ticket_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.EventID, p.BuyerName, p.BuyerEmail, p.BuyerPhone,
		p.Address, p.PostalCode, p.City, p.RegularQty, p.DiscountQty, p.TotalCents,
		p.DiscountCode, p.PaymentStatus, p.PaymentRef, p.TicketCode)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ExistsByEmail reports whether a PAID purchase for the event already
// carries the given email.  Mirrors the duplicate-booking check the
// public site runs before checkout.
func (r *PurchaseRepo) ExistsByEmail(ctx context.Context, eventID uint64, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchases
		 WHERE event_id = ? AND LOWER(buyer_email) = ? AND payment_status = ?`,
		eventID, email, model.PaymentStatusPaid).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID loads a purchase by primary key.  Returns ErrNotFound when it
// does not exist.
func (r *PurchaseRepo) GetByID(ctx context.Context, id uint64) (*model.Purchase, error) {
	p, err := scanPurchase(r.db.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// GetByTicketCodeTx loads a purchase by its ticket code with a row
// lock.  The scan tool runs its read-check-update inside one
// transaction so two door staff scanning the same code concurrently
// cannot both admit the final admission.
func (r *PurchaseRepo) GetByTicketCodeTx(ctx context.Context, tx Tx, ticketCode string) (*model.Purchase, error) {
	p, err := scanPurchase(tx.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE ticket_code = ? FOR UPDATE`,
		ticketCode))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// AddScannedTx increments the scanned admission counter.  The caller
// has already verified, under the row lock, that count does not exceed
// the remaining unscanned admissions.
func (r *PurchaseRepo) AddScannedTx(ctx context.Context, tx Tx, id uint64, count uint32) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE purchases SET scanned_qty = scanned_qty + ? WHERE id = ?`, count, id)
	return err
}

// RefundTx marks a PAID purchase as REFUNDED, returning its quantity to
// availability.  Returns ErrConflict when the purchase was already
// refunded (or never paid), so refunds are not applied twice.
func (r *PurchaseRepo) RefundTx(ctx context.Context, tx Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE purchases SET payment_status = ? WHERE id = ? AND payment_status = ?`,
		model.PaymentStatusRefunded, id, model.PaymentStatusPaid)
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

// ListByEvent returns all purchases for an event, newest first.  Used
// by the admin back-office.
func (r *PurchaseRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Purchase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE event_id = ? ORDER BY created_at DESC`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	purchases := make([]model.Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}
