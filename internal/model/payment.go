package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment method names accepted by the engine.  The payment_methods table
// carries the same set plus an is_active flag so a method can be switched
// off without code changes.
const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
)

// Payment states as stored in payments.state.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// PaymentMethod is a row of the payment_methods registry.
type PaymentMethod struct {
	ID          uint64  // payment_methods.id
	Name        string  // payment_methods.name (unique: cash, card, transfer)
	Description *string // payment_methods.description (nullable)
	IsActive    bool    // payment_methods.is_active
}

// Payment records money received for an order.  The engine enforces at most
// one non-failed payment per order; the schema itself does not.
type Payment struct {
	ID        uint64          // payments.id
	OrderID   uint64          // payments.order_id
	MethodID  uint64          // payments.method_id
	Amount    decimal.Decimal // payments.amount
	PaidAt    time.Time       // payments.paid_at
	Reference *string         // payments.reference (nullable)
	State     string          // payments.state
	Notes     *string         // payments.notes (nullable)
}
