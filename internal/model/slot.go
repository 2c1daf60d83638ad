package model

// Slot is a bookable pickup window.  Each slot admits at most MaxCapacity
// concurrent orders in the active statuses (pending, confirmed, ready);
// admission is checked inside the order-creation transaction while the slot
// row is locked.
//
// Fields:
//
//	ID          – primary key identifier.
//	StartsAt    – window start, "HH:MM:SS" as stored in the TIME column.
//	EndsAt      – window end.
//	MaxCapacity – maximum concurrent active orders; always >= 1.
//	IsActive    – whether the slot is currently offered.
type Slot struct {
	ID          uint64 // slots.id
	StartsAt    string // slots.starts_at
	EndsAt      string // slots.ends_at
	MaxCapacity uint32 // slots.max_capacity
	IsActive    bool   // slots.is_active
}
