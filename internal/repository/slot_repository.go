package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SlotRepo provides CRUD operations for pickup slots and the occupancy
// queries used by slot admission.  A slot's occupancy is the number of
// orders referencing it whose status is active (pending, confirmed, ready);
// delivered and cancelled orders do not count.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// SlotRecord mirrors the slots table.
type SlotRecord struct {
	ID          uint64
	StartsAt    string
	EndsAt      string
	MaxCapacity uint32
	IsActive    bool
}

// SlotOccupancy pairs a slot with its current active-order count.  It is
// produced by ListActiveWithOccupancy for the public availability endpoint.
type SlotOccupancy struct {
	SlotRecord
	ActiveOrders uint32
}

// GetByID retrieves a slot regardless of its active flag.  Returns
// ErrSlotNotFound when no row exists.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*SlotRecord, error) {
	const q = `SELECT id, starts_at, ends_at, max_capacity, is_active FROM slots WHERE id = ?`
	var s SlotRecord
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.StartsAt, &s.EndsAt, &s.MaxCapacity, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetActiveForUpdateTx loads an active slot inside a transaction and locks
// its row until commit.  Order creation calls this before counting
// occupancy so that two concurrent orders racing for the last space
// serialize on the lock instead of both passing the capacity check.
// Returns ErrSlotNotFound when the slot does not exist or is inactive.
func (r *SlotRepo) GetActiveForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*SlotRecord, error) {
	const q = `SELECT id, starts_at, ends_at, max_capacity, is_active
	           FROM slots WHERE id = ? AND is_active = 1 FOR UPDATE`
	var s SlotRecord
	err := tx.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.StartsAt, &s.EndsAt, &s.MaxCapacity, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// CountActiveOrdersTx counts orders in active statuses referencing the slot
// within the given transaction.  Must be called with the slot row locked.
func (r *SlotRepo) CountActiveOrdersTx(ctx context.Context, tx *sql.Tx, slotID uint64) (uint32, error) {
	const q = `SELECT COUNT(*) FROM orders WHERE slot_id = ? AND status_id IN (1, 2, 3)`
	var n uint32
	if err := tx.QueryRowContext(ctx, q, slotID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListActiveWithOccupancy returns all active slots together with their
// current active-order counts, ordered by start time.  The count is an
// unlocked snapshot; it feeds the public availability listing, not the
// admission decision.
func (r *SlotRepo) ListActiveWithOccupancy(ctx context.Context) ([]SlotOccupancy, error) {
	const q = `SELECT s.id, s.starts_at, s.ends_at, s.max_capacity, s.is_active, COUNT(o.id)
	           FROM slots s
	           LEFT JOIN orders o ON o.slot_id = s.id AND o.status_id IN (1, 2, 3)
	           WHERE s.is_active = 1
	           GROUP BY s.id, s.starts_at, s.ends_at, s.max_capacity, s.is_active
	           ORDER BY s.starts_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SlotOccupancy, 0)
	for rows.Next() {
		var s SlotOccupancy
		if err := rows.Scan(&s.ID, &s.StartsAt, &s.EndsAt, &s.MaxCapacity, &s.IsActive, &s.ActiveOrders); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every slot, active or not, for the admin listing.
func (r *SlotRepo) ListAll(ctx context.Context) ([]SlotRecord, error) {
	const q = `SELECT id, starts_at, ends_at, max_capacity, is_active FROM slots ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SlotRecord, 0)
	for rows.Next() {
		var s SlotRecord
		if err := rows.Scan(&s.ID, &s.StartsAt, &s.EndsAt, &s.MaxCapacity, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new slot and populates the generated ID.  Capacity must
// already be validated (>= 1) by the caller.
func (r *SlotRepo) Create(ctx context.Context, s *SlotRecord) error {
	const q = `INSERT INTO slots (starts_at, ends_at, max_capacity) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.StartsAt, s.EndsAt, s.MaxCapacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.IsActive = true
	return nil
}

// Update changes a slot's window and capacity.  Returns ErrSlotNotFound
// when no row matches.
func (r *SlotRepo) Update(ctx context.Context, s *SlotRecord) error {
	const q = `UPDATE slots SET starts_at = ?, ends_at = ?, max_capacity = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.StartsAt, s.EndsAt, s.MaxCapacity, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// SetActive toggles a slot's active flag.  Returns ErrSlotNotFound when no
// row matches.  Deactivating a slot does not touch its existing orders; it
// only stops new admissions.
func (r *SlotRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE slots SET is_active = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotNotFound
	}
	return nil
}
