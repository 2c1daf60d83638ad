// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderPlacedEvent is published when an order is successfully created. It
// carries enough detail for downstream consumers to log or notify without
// querying the primary database.
type OrderPlacedEvent struct {
	OrderID      uint64   `json:"order_id"`
	UserID       uint64   `json:"user_id"`
	CustomerName string   `json:"customer_name"`
	SlotID       uint64   `json:"slot_id"`
	SlotStartsAt string   `json:"slot_starts_at"`
	SlotEndsAt   string   `json:"slot_ends_at"`
	Items        []string `json:"items"`
	Total        string   `json:"total"`
	PlacedAt     string   `json:"placed_at"`
}
