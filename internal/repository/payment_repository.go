package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRepo provides the payment-method registry and the payments ledger.
// The ledger gets one row per recorded payment; the "at most one successful
// payment per order" rule is enforced by the payment transaction, which
// checks the order's paid flag under a row lock before inserting.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// MethodRecord mirrors the payment_methods table.
type MethodRecord struct {
	ID          uint64
	Name        string
	Description *string
	IsActive    bool
}

// PaymentRecord mirrors the payments table.
type PaymentRecord struct {
	ID        uint64
	OrderID   uint64
	MethodID  uint64
	Amount    decimal.Decimal
	PaidAt    time.Time
	Reference *string
	State     string
	Notes     *string
}

// GetActiveMethodByName resolves a method name (cash, card, transfer) to
// its registry row.  Returns ErrMethodNotFound when the name is unknown or
// the method has been switched off.
func (r *PaymentRepo) GetActiveMethodByName(ctx context.Context, name string) (*MethodRecord, error) {
	const q = `SELECT id, name, description, is_active FROM payment_methods WHERE name = ? AND is_active = 1`
	var m MethodRecord
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(name))).
		Scan(&m.ID, &m.Name, &desc, &m.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMethodNotFound
		}
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		m.Description = &d
	}
	return &m, nil
}

// ListActiveMethods returns the active payment methods ordered by name.
func (r *PaymentRepo) ListActiveMethods(ctx context.Context) ([]MethodRecord, error) {
	const q = `SELECT id, name, description, is_active FROM payment_methods WHERE is_active = 1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MethodRecord, 0)
	for rows.Next() {
		var m MethodRecord
		var desc sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &desc, &m.IsActive); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			m.Description = &d
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertTx writes one payment row within the given transaction and
// populates the generated ID.
func (r *PaymentRepo) InsertTx(ctx context.Context, tx *sql.Tx, p *PaymentRecord) error {
	const q = `INSERT INTO payments (order_id, method_id, amount, reference, state, notes)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.OrderID, p.MethodID, p.Amount, p.Reference, p.State, p.Notes)
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

// PaymentDetail is a ledger entry with order, customer and method fields
// joined in for the admin payments listing.
type PaymentDetail struct {
	ID            uint64          `json:"id"`
	OrderID       uint64          `json:"order_id"`
	MethodName    string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
	Reference     *string         `json:"reference,omitempty"`
	State         string          `json:"state"`
	Notes         *string         `json:"notes,omitempty"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	OrderPlacedAt time.Time       `json:"order_placed_at"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
}

// ListAll returns every payment with order and customer context, newest
// first.
func (r *PaymentRepo) ListAll(ctx context.Context) ([]PaymentDetail, error) {
	const q = `SELECT pa.id, pa.order_id, m.name, pa.amount, pa.paid_at, pa.reference, pa.state, pa.notes,
	                  o.total, o.placed_at, u.name, u.email
	           FROM payments pa
	           JOIN payment_methods m ON m.id = pa.method_id
	           JOIN orders o ON o.id = pa.order_id
	           JOIN users u ON u.id = o.user_id
	           ORDER BY pa.paid_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PaymentDetail, 0)
	for rows.Next() {
		var d PaymentDetail
		var ref, notes sql.NullString
		if err := rows.Scan(&d.ID, &d.OrderID, &d.MethodName, &d.Amount, &d.PaidAt, &ref, &d.State, &notes,
			&d.OrderTotal, &d.OrderPlacedAt, &d.CustomerName, &d.CustomerEmail); err != nil {
			return nil, err
		}
		if ref.Valid {
			s := ref.String
			d.Reference = &s
		}
		if notes.Valid {
			s := notes.String
			d.Notes = &s
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
