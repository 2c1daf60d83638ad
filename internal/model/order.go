package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Well-known order status IDs.  The order_statuses table is a small closed
// catalog seeded by migration; the engine references these IDs directly.
const (
	StatusPending   uint8 = 1
	StatusConfirmed uint8 = 2
	StatusReady     uint8 = 3
	StatusDelivered uint8 = 4
	StatusCancelled uint8 = 5
)

// ActiveStatusIDs are the statuses that count against a slot's capacity.
// Delivered and cancelled orders free their slot.
var ActiveStatusIDs = []uint8{StatusPending, StatusConfirmed, StatusReady}

// OrderStatus is a row of the order_statuses catalog.  The catalog is read
// by the engine but never mutated by it.
type OrderStatus struct {
	ID          uint8   // order_statuses.id
	Name        string  // order_statuses.name
	ColorHex    string  // order_statuses.color_hex
	Description *string // order_statuses.description (nullable)
}

// Order is a customer's pickup order.  Total always equals the sum of its
// line subtotals at creation time.  PaymentMethod stays nil until the order
// is paid.  Orders are never deleted; cancellation is a status change.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – placing customer.
//	SlotID        – pickup slot the order occupies.
//	StatusID      – current status (order_statuses.id).
//	PlacedAt      – creation timestamp.
//	ScheduledAt   – scheduled pickup timestamp.
//	Total         – sum of line subtotals, 2 decimal places.
//	Notes         – optional free-text note from the customer.
//	Paid          – whether payment has been recorded.
//	PaymentMethod – method name once paid (nullable before).
//	UpdatedAt     – last mutation timestamp.
type Order struct {
	ID            uint64          // orders.id
	UserID        uint64          // orders.user_id
	SlotID        uint64          // orders.slot_id
	StatusID      uint8           // orders.status_id
	PlacedAt      time.Time       // orders.placed_at
	ScheduledAt   time.Time       // orders.scheduled_at
	Total         decimal.Decimal // orders.total
	Notes         *string         // orders.notes (nullable)
	Paid          bool            // orders.paid
	PaymentMethod *string         // orders.payment_method (nullable until paid)
	UpdatedAt     time.Time       // orders.updated_at
}

// OrderLine is one product/quantity entry within an order.  UnitPrice is a
// snapshot of the product price at order time and never changes afterwards,
// regardless of later menu price updates.  Lines are immutable once written.
type OrderLine struct {
	ID        uint64          // order_lines.id
	OrderID   uint64          // order_lines.order_id
	ProductID uint64          // order_lines.product_id
	Quantity  uint32          // order_lines.quantity (>= 1)
	UnitPrice decimal.Decimal // order_lines.unit_price (frozen at order time)
	Subtotal  decimal.Decimal // order_lines.subtotal = quantity * unit_price
}

// StatusHistoryEntry is an append-only audit record of a status change.
// PrevStatusID is nil for the entry written at order creation.  ChangedBy is
// nil when the change was system-initiated.
type StatusHistoryEntry struct {
	ID           uint64    // status_history.id
	OrderID      uint64    // status_history.order_id
	PrevStatusID *uint8    // status_history.prev_status_id (nullable)
	NewStatusID  uint8     // status_history.new_status_id
	ChangedAt    time.Time // status_history.changed_at
	ChangedBy    *uint64   // status_history.changed_by (nullable = system)
	Note         *string   // status_history.note (nullable)
}
