package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderRepo provides CRUD operations for orders and their lines.  Orders
// group one or more product lines under a pickup slot for a user.  All
// timestamp fields are stored in UTC.  The *Tx methods participate in the
// order-creation and payment transactions; the caller owns commit/rollback.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span several repositories.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// OrderRecord mirrors the orders table.  It is used by the repository when
// constructing or scanning rows.
type OrderRecord struct {
	ID            uint64
	UserID        uint64
	SlotID        uint64
	StatusID      uint8
	PlacedAt      time.Time
	ScheduledAt   time.Time
	Total         decimal.Decimal
	Notes         *string
	Paid          bool
	PaymentMethod *string
	UpdatedAt     time.Time
}

// OrderLineRecord mirrors the order_lines table.  UnitPrice is the price
// snapshot taken at order time.
type OrderLineRecord struct {
	OrderID   uint64
	ProductID uint64
	Quantity  uint32
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// CreateTx inserts a new order within an existing transaction, populating
// the generated ID and the database-assigned timestamps on the record.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *OrderRecord) error {
	const q = `INSERT INTO orders (user_id, slot_id, status_id, placed_at, scheduled_at, total, notes, paid)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, o.UserID, o.SlotID, o.StatusID, o.PlacedAt, o.ScheduledAt, o.Total, o.Notes, o.Paid)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	// Query back the full row to populate defaults
	const sel = `SELECT id, user_id, slot_id, status_id, placed_at, scheduled_at, total, notes, paid, payment_method, updated_at
	             FROM orders WHERE id = ?`
	return scanOrder(tx.QueryRowContext(ctx, sel, o.ID), o)
}

// CreateLinesBulkTx inserts multiple order_lines rows in a single
// statement.  The caller must supply the order ID in each record.  Passing
// an empty slice has no effect and returns nil.
func (r *OrderRepo) CreateLinesBulkTx(ctx context.Context, tx *sql.Tx, lines []OrderLineRecord) error {
	if len(lines) == 0 {
		return nil
	}
	query := `INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal) VALUES `
	args := make([]interface{}, 0, len(lines)*5)
	for i, l := range lines {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, l.OrderID, l.ProductID, l.Quantity, l.UnitPrice, l.Subtotal)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func scanOrder(row interface {
	Scan(dest ...interface{}) error
}, o *OrderRecord) error {
	var notes, method sql.NullString
	if err := row.Scan(&o.ID, &o.UserID, &o.SlotID, &o.StatusID, &o.PlacedAt, &o.ScheduledAt,
		&o.Total, &notes, &o.Paid, &method, &o.UpdatedAt); err != nil {
		return err
	}
	if notes.Valid {
		n := notes.String
		o.Notes = &n
	}
	if method.Valid {
		m := method.String
		o.PaymentMethod = &m
	}
	return nil
}

// GetForUpdateTx loads an order inside a transaction and locks its row.
// The payment and status-change paths call this so that the paid flag and
// status checks cannot race with a concurrent mutation of the same order.
// Returns sql.ErrNoRows when the order does not exist.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, orderID uint64) (*OrderRecord, error) {
	const q = `SELECT id, user_id, slot_id, status_id, placed_at, scheduled_at, total, notes, paid, payment_method, updated_at
	           FROM orders WHERE id = ? FOR UPDATE`
	var o OrderRecord
	if err := scanOrder(tx.QueryRowContext(ctx, q, orderID), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkPaidTx sets the paid flag, payment method and resulting status on an
// order within the transaction, bumping updated_at.
func (r *OrderRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, orderID uint64, method string, statusID uint8) error {
	const q = `UPDATE orders SET paid = 1, payment_method = ?, status_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, method, statusID, orderID)
	return err
}

// UpdateStatusTx moves an order to a new status within the transaction,
// bumping updated_at.  The caller records the history entry.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID uint64, statusID uint8) error {
	const q = `UPDATE orders SET status_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, statusID, orderID)
	return err
}

// OrderLineDetail is one line of an order as shown to clients, with the
// product's display fields joined in.  UnitPrice is the frozen snapshot;
// CurrentPrice is the product's live menu price for comparison.
type OrderLineDetail struct {
	ProductID    uint64          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ImageURL     *string         `json:"image_url,omitempty"`
	Quantity     uint32          `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// OrderDetail encapsulates an order along with its slot, status and lines.
// It is returned by ListByUser and GetByIDForUser for display to customers.
type OrderDetail struct {
	ID            uint64            `json:"id"`
	UserID        uint64            `json:"user_id"`
	SlotID        uint64            `json:"slot_id"`
	SlotStartsAt  string            `json:"slot_starts_at"`
	SlotEndsAt    string            `json:"slot_ends_at"`
	StatusID      uint8             `json:"status_id"`
	StatusName    string            `json:"status_name"`
	StatusColor   string            `json:"status_color"`
	Total         decimal.Decimal   `json:"total"`
	Notes         *string           `json:"notes,omitempty"`
	Paid          bool              `json:"paid"`
	PaymentMethod *string           `json:"payment_method,omitempty"`
	PlacedAt      time.Time         `json:"placed_at"`
	ScheduledAt   time.Time         `json:"scheduled_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Lines         []OrderLineDetail `json:"lines"`
}

// AdminOrderDetail extends OrderDetail with the customer's identity and a
// compact line summary for list views.
type AdminOrderDetail struct {
	OrderDetail
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	LineSummary   string `json:"line_summary"`
}

const orderDetailCols = `o.id, o.user_id, o.slot_id, s.starts_at, s.ends_at,
	                  o.status_id, st.name, st.color_hex,
	                  o.total, o.notes, o.paid, o.payment_method,
	                  o.placed_at, o.scheduled_at, o.updated_at`

const orderDetailJoins = `FROM orders o
	           JOIN slots s ON s.id = o.slot_id
	           JOIN order_statuses st ON st.id = o.status_id`

func scanOrderDetail(row interface {
	Scan(dest ...interface{}) error
}, d *OrderDetail) error {
	var notes, method sql.NullString
	if err := row.Scan(&d.ID, &d.UserID, &d.SlotID, &d.SlotStartsAt, &d.SlotEndsAt,
		&d.StatusID, &d.StatusName, &d.StatusColor,
		&d.Total, &notes, &d.Paid, &method,
		&d.PlacedAt, &d.ScheduledAt, &d.UpdatedAt); err != nil {
		return err
	}
	if notes.Valid {
		n := notes.String
		d.Notes = &n
	}
	if method.Valid {
		m := method.String
		d.PaymentMethod = &m
	}
	d.Lines = []OrderLineDetail{}
	return nil
}

// GetByIDForUser returns a single order for the given user, with slot,
// status and line details.  Ownership is enforced in the query: when the
// order exists but belongs to someone else, sql.ErrNoRows is returned just
// as for a missing order.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, orderID, userID uint64) (*OrderDetail, error) {
	q := `SELECT ` + orderDetailCols + ` ` + orderDetailJoins + ` WHERE o.id = ? AND o.user_id = ?`
	var d OrderDetail
	if err := scanOrderDetail(r.db.QueryRowContext(ctx, q, orderID, userID), &d); err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, map[uint64]*OrderDetail{d.ID: &d}); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByID returns a single order without an ownership restriction.  Used by
// the admin path, which also attaches the status history.
func (r *OrderRepo) GetByID(ctx context.Context, orderID uint64) (*OrderDetail, error) {
	q := `SELECT ` + orderDetailCols + ` ` + orderDetailJoins + ` WHERE o.id = ?`
	var d OrderDetail
	if err := scanOrderDetail(r.db.QueryRowContext(ctx, q, orderID), &d); err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, map[uint64]*OrderDetail{d.ID: &d}); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByUser returns all orders for the given user, newest first, with
// lines populated in a single follow-up query.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
	q := `SELECT ` + orderDetailCols + ` ` + orderDetailJoins + ` WHERE o.user_id = ? ORDER BY o.placed_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]OrderDetail, 0)
	for rows.Next() {
		var d OrderDetail
		if err := scanOrderDetail(rows, &d); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	index := make(map[uint64]*OrderDetail, len(details))
	for i := range details {
		index[details[i].ID] = &details[i]
	}
	if err := r.loadLines(ctx, index); err != nil {
		return nil, err
	}
	return details, nil
}

// ListAll returns every order with customer, slot and status info for the
// admin listing, newest first.  Each entry carries a "2x Latte, 1x Scone"
// style summary built from its lines.
func (r *OrderRepo) ListAll(ctx context.Context) ([]AdminOrderDetail, error) {
	q := `SELECT ` + orderDetailCols + `, u.name, u.email ` + orderDetailJoins + `
	      JOIN users u ON u.id = o.user_id
	      ORDER BY o.placed_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]AdminOrderDetail, 0)
	for rows.Next() {
		var d AdminOrderDetail
		var notes, method sql.NullString
		if err := rows.Scan(&d.ID, &d.UserID, &d.SlotID, &d.SlotStartsAt, &d.SlotEndsAt,
			&d.StatusID, &d.StatusName, &d.StatusColor,
			&d.Total, &notes, &d.Paid, &method,
			&d.PlacedAt, &d.ScheduledAt, &d.UpdatedAt,
			&d.CustomerName, &d.CustomerEmail); err != nil {
			return nil, err
		}
		if notes.Valid {
			n := notes.String
			d.Notes = &n
		}
		if method.Valid {
			m := method.String
			d.PaymentMethod = &m
		}
		d.Lines = []OrderLineDetail{}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	index := make(map[uint64]*OrderDetail, len(details))
	for i := range details {
		index[details[i].ID] = &details[i].OrderDetail
	}
	if err := r.loadLines(ctx, index); err != nil {
		return nil, err
	}
	for i := range details {
		parts := make([]string, 0, len(details[i].Lines))
		for _, l := range details[i].Lines {
			parts = append(parts, strconv.Itoa(int(l.Quantity))+"x "+l.ProductName)
		}
		details[i].LineSummary = strings.Join(parts, ", ")
	}
	return details, nil
}

// loadLines populates the Lines slices of the given orders in one query.
func (r *OrderRepo) loadLines(ctx context.Context, index map[uint64]*OrderDetail) error {
	if len(index) == 0 {
		return nil
	}
	ids := make([]interface{}, 0, len(index))
	placeholders := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT ol.order_id, ol.product_id, p.name, p.image_url, ol.quantity, ol.unit_price, ol.subtotal, p.price
	      FROM order_lines ol
	      JOIN products p ON p.id = ol.product_id
	      WHERE ol.order_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY ol.order_id, ol.id`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID uint64
		var l OrderLineDetail
		var img sql.NullString
		if err := rows.Scan(&orderID, &l.ProductID, &l.ProductName, &img, &l.Quantity, &l.UnitPrice, &l.Subtotal, &l.CurrentPrice); err != nil {
			return err
		}
		if img.Valid {
			u := img.String
			l.ImageURL = &u
		}
		if d, ok := index[orderID]; ok {
			d.Lines = append(d.Lines, l)
		}
	}
	return rows.Err()
}

// OrderStatusView is the compact payload for customer status polling.
type OrderStatusView struct {
	ID            uint64          `json:"id"`
	StatusID      uint8           `json:"status_id"`
	StatusName    string          `json:"status_name"`
	StatusColor   string          `json:"status_color"`
	Paid          bool            `json:"paid"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Total         decimal.Decimal `json:"total"`
	PlacedAt      time.Time       `json:"placed_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// GetStatusForUser returns the polling view of an order owned by the user.
// sql.ErrNoRows covers both a missing order and someone else's order.
func (r *OrderRepo) GetStatusForUser(ctx context.Context, orderID, userID uint64) (*OrderStatusView, error) {
	const q = `SELECT o.id, o.status_id, st.name, st.color_hex, o.paid, o.payment_method, o.total, o.placed_at, o.updated_at
	           FROM orders o
	           JOIN order_statuses st ON st.id = o.status_id
	           WHERE o.id = ? AND o.user_id = ?`
	var v OrderStatusView
	var method sql.NullString
	err := r.db.QueryRowContext(ctx, q, orderID, userID).Scan(
		&v.ID, &v.StatusID, &v.StatusName, &v.StatusColor, &v.Paid, &method, &v.Total, &v.PlacedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if method.Valid {
		m := method.String
		v.PaymentMethod = &m
	}
	return &v, nil
}
