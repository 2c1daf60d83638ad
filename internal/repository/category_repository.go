package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// CategoryRepo provides persistence for menu categories.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo returns a new CategoryRepo bound to the given database.
func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// CategoryRecord mirrors the categories table.
type CategoryRecord struct {
	ID          uint64
	Name        string
	Description *string
	IsActive    bool
}

var ErrCategoryExists = errors.New("category name already exists")

// ListActive returns active categories ordered by name.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]CategoryRecord, error) {
	const q = `SELECT id, name, description, is_active FROM categories WHERE is_active = 1 ORDER BY name`
	return r.list(ctx, q)
}

// ListAll returns every category for the admin view.
func (r *CategoryRepo) ListAll(ctx context.Context) ([]CategoryRecord, error) {
	const q = `SELECT id, name, description, is_active FROM categories ORDER BY name`
	return r.list(ctx, q)
}

func (r *CategoryRepo) list(ctx context.Context, q string) ([]CategoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]CategoryRecord, 0)
	for rows.Next() {
		var c CategoryRecord
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.IsActive); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			c.Description = &d
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID retrieves a category.  Returns ErrCategoryNotFound when missing.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*CategoryRecord, error) {
	const q = `SELECT id, name, description, is_active FROM categories WHERE id = ?`
	var c CategoryRecord
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &desc, &c.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		c.Description = &d
	}
	return &c, nil
}

// Create inserts a category and populates the generated ID.  The name
// column is unique; duplicates map to ErrCategoryExists.
func (r *CategoryRepo) Create(ctx context.Context, c *CategoryRecord) error {
	const q = `INSERT INTO categories (name, description) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Description)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrCategoryExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.IsActive = true
	return nil
}

// SetActive toggles a category's active flag.  Returns ErrCategoryNotFound
// when no row matches.
func (r *CategoryRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE categories SET is_active = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
