package repository

import (
	"context"
	"database/sql"
	"time"
)

// HistoryRepo appends and reads the status_history audit trail.  Entries
// are append-only: one row per transition, never updated or deleted.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo returns a new HistoryRepo bound to the given database.
func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// HistoryRecord mirrors the status_history table.
type HistoryRecord struct {
	ID           uint64
	OrderID      uint64
	PrevStatusID *uint8 // nil for the entry written at order creation
	NewStatusID  uint8
	ChangedAt    time.Time
	ChangedBy    *uint64 // nil = system-initiated
	Note         *string
}

// InsertTx appends one history entry within the given transaction.
func (r *HistoryRepo) InsertTx(ctx context.Context, tx *sql.Tx, h *HistoryRecord) error {
	const q = `INSERT INTO status_history (order_id, prev_status_id, new_status_id, changed_by, note)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, h.OrderID, h.PrevStatusID, h.NewStatusID, h.ChangedBy, h.Note)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// HistoryDetail is one audit entry as shown to administrators, with the
// acting user's name joined in ("system" when the change was automatic).
type HistoryDetail struct {
	ID            uint64    `json:"id"`
	PrevStatusID  *uint8    `json:"prev_status_id,omitempty"`
	NewStatusID   uint8     `json:"new_status_id"`
	ChangedAt     time.Time `json:"changed_at"`
	ChangedBy     *uint64   `json:"changed_by,omitempty"`
	ChangedByName string    `json:"changed_by_name"`
	Note          *string   `json:"note,omitempty"`
}

// ListByOrder returns the audit trail of an order, newest first.
func (r *HistoryRepo) ListByOrder(ctx context.Context, orderID uint64) ([]HistoryDetail, error) {
	const q = `SELECT h.id, h.prev_status_id, h.new_status_id, h.changed_at, h.changed_by, u.name, h.note
	           FROM status_history h
	           LEFT JOIN users u ON u.id = h.changed_by
	           WHERE h.order_id = ?
	           ORDER BY h.changed_at DESC, h.id DESC`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]HistoryDetail, 0)
	for rows.Next() {
		var d HistoryDetail
		var prev sql.NullInt16
		var by sql.NullInt64
		var name, note sql.NullString
		if err := rows.Scan(&d.ID, &prev, &d.NewStatusID, &d.ChangedAt, &by, &name, &note); err != nil {
			return nil, err
		}
		if prev.Valid {
			p := uint8(prev.Int16)
			d.PrevStatusID = &p
		}
		if by.Valid {
			b := uint64(by.Int64)
			d.ChangedBy = &b
		}
		if name.Valid {
			d.ChangedByName = name.String
		} else {
			d.ChangedByName = "system"
		}
		if note.Valid {
			n := note.String
			d.Note = &n
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
