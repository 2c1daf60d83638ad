package repository

import (
	"context"
	"database/sql"
	"errors"
)

// StatusRepo reads the order_statuses catalog.  The catalog is seeded by
// migration and never mutated by the application.
type StatusRepo struct {
	db *sql.DB
}

// NewStatusRepo returns a new StatusRepo bound to the given database.
func NewStatusRepo(db *sql.DB) *StatusRepo { return &StatusRepo{db: db} }

// StatusRecord mirrors the order_statuses table.
type StatusRecord struct {
	ID          uint8
	Name        string
	ColorHex    string
	Description *string
}

// GetByID loads one status.  Returns ErrStatusNotFound for unknown IDs.
func (r *StatusRepo) GetByID(ctx context.Context, id uint8) (*StatusRecord, error) {
	const q = `SELECT id, name, color_hex, description FROM order_statuses WHERE id = ?`
	var s StatusRecord
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &s.ColorHex, &desc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusNotFound
		}
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		s.Description = &d
	}
	return &s, nil
}

// List returns the whole status catalog ordered by ID.
func (r *StatusRepo) List(ctx context.Context) ([]StatusRecord, error) {
	const q = `SELECT id, name, color_hex, description FROM order_statuses ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]StatusRecord, 0)
	for rows.Next() {
		var s StatusRecord
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.ColorHex, &desc); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			s.Description = &d
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
