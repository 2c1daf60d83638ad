package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// ProductRepo provides catalog persistence for products plus the locked
// reads and stock decrements used inside the order-creation transaction.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// ProductRecord mirrors the products table, with the category name joined
// in for listing responses.
type ProductRecord struct {
	ID           uint64
	CategoryID   uint64
	CategoryName string
	Name         string
	Description  *string
	Price        decimal.Decimal
	ImageURL     *string
	Stock        *int64 // nil = stock not tracked
	IsActive     bool
}

func scanProduct(row interface {
	Scan(dest ...interface{}) error
}, p *ProductRecord) error {
	var desc, img sql.NullString
	var stock sql.NullInt64
	if err := row.Scan(&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &desc, &p.Price, &img, &stock, &p.IsActive); err != nil {
		return err
	}
	if desc.Valid {
		d := desc.String
		p.Description = &d
	}
	if img.Valid {
		u := img.String
		p.ImageURL = &u
	}
	if stock.Valid {
		s := stock.Int64
		p.Stock = &s
	}
	return nil
}

const productCols = `p.id, p.category_id, c.name, p.name, p.description, p.price, p.image_url, p.stock, p.is_active`

// ListActive returns the public menu: active products with their category
// name, ordered by category then name.
func (r *ProductRepo) ListActive(ctx context.Context) ([]ProductRecord, error) {
	const q = `SELECT ` + productCols + `
	           FROM products p
	           JOIN categories c ON c.id = p.category_id
	           WHERE p.is_active = 1
	           ORDER BY c.name, p.name`
	return r.list(ctx, q)
}

// ListAll returns every product including inactive ones, for the admin
// catalog view.
func (r *ProductRepo) ListAll(ctx context.Context) ([]ProductRecord, error) {
	const q = `SELECT ` + productCols + `
	           FROM products p
	           JOIN categories c ON c.id = p.category_id
	           ORDER BY c.name, p.name`
	return r.list(ctx, q)
}

func (r *ProductRepo) list(ctx context.Context, q string) ([]ProductRecord, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ProductRecord, 0)
	for rows.Next() {
		var p ProductRecord
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID retrieves a product regardless of its active flag.  Returns
// ErrProductNotFound when no row exists.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*ProductRecord, error) {
	const q = `SELECT ` + productCols + `
	           FROM products p
	           JOIN categories c ON c.id = p.category_id
	           WHERE p.id = ?`
	var p ProductRecord
	if err := scanProduct(r.db.QueryRowContext(ctx, q, id), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetActiveForOrderTx loads an active product inside a transaction and
// locks its row so the subsequent stock check and decrement cannot race
// with a concurrent order.  Returns ErrProductUnavailable when the product
// does not exist or is inactive.
func (r *ProductRepo) GetActiveForOrderTx(ctx context.Context, tx *sql.Tx, id uint64) (*ProductRecord, error) {
	const q = `SELECT id, name, price, stock
	           FROM products WHERE id = ? AND is_active = 1 FOR UPDATE`
	var p ProductRecord
	var stock sql.NullInt64
	err := tx.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Price, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if stock.Valid {
		s := stock.Int64
		p.Stock = &s
	}
	return &p, nil
}

// DecrementStockTx subtracts quantity from a tracked product's stock within
// the transaction.  Untracked products (NULL stock) are left alone.  The
// guard clause keeps stock from ever going negative even if a caller skips
// the availability check; in that case ErrInsufficientStock is returned and
// the caller must roll the transaction back.
func (r *ProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id uint64, qty uint32) error {
	const q = `UPDATE products SET stock = stock - ?
	           WHERE id = ? AND stock IS NOT NULL AND stock >= ?`
	res, err := tx.ExecContext(ctx, q, qty, id, qty)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}
	// Either the product is untracked (fine) or the stock guard failed.
	var stock sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, id).Scan(&stock); err != nil {
		return err
	}
	if stock.Valid {
		return ErrInsufficientStock
	}
	return nil
}

// Create inserts a product and populates the generated ID.
func (r *ProductRepo) Create(ctx context.Context, p *ProductRecord) error {
	const q = `INSERT INTO products (category_id, name, description, price, image_url, stock)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.CategoryID, p.Name, p.Description, p.Price, p.ImageURL, p.Stock)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.IsActive = true
	return nil
}

// Update rewrites a product's editable fields.  Returns ErrProductNotFound
// when no row matches.
func (r *ProductRepo) Update(ctx context.Context, p *ProductRecord) error {
	const q = `UPDATE products
	           SET category_id = ?, name = ?, description = ?, price = ?, image_url = ?, stock = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, p.CategoryID, p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SetActive toggles a product's active flag and reports the new value.
// Products are never deleted; order lines keep referencing them.
func (r *ProductRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE products SET is_active = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}
