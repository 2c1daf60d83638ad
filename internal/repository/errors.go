// Package repository defines error values that are reused across multiple
// repositories.  These sentinels let handlers distinguish failure scenarios
// with errors.Is and translate them into the right HTTP status: validation
// problems become 400, missing entities 404 and state conflicts 409.
// Anything else is an unexpected store failure and surfaces as a generic
// 500 without internal detail.
package repository

import "errors"

// ErrSlotNotFound is returned when a pickup slot does not exist or is not
// active for ordering.
var ErrSlotNotFound = errors.New("slot not found or inactive")

// ErrSlotFull is returned when a slot's active-order count has reached its
// maximum capacity.  The admission check runs while the slot row is locked,
// so two concurrent orders cannot both claim the last space.
var ErrSlotFull = errors.New("slot is full")

// ErrProductUnavailable is returned when an ordered product does not exist
// or has been deactivated.
var ErrProductUnavailable = errors.New("product unavailable")

// ErrInsufficientStock is returned when a stock-tracked product has fewer
// units left than the requested quantity.  It fires before any stock
// mutation happens.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrOrderNotFound is returned when an order does not exist, or when a
// customer asks for an order that belongs to someone else (ownership is
// enforced in the query, so the two cases are indistinguishable on purpose).
var ErrOrderNotFound = errors.New("order not found")

// ErrStatusNotFound is returned when a target status ID is not part of the
// order_statuses catalog.
var ErrStatusNotFound = errors.New("order status not found")

// ErrSameStatus is returned when a status change requests the status the
// order is already in.  Handlers translate this into HTTP 409.
var ErrSameStatus = errors.New("order already in requested status")

// ErrAlreadyPaid is returned when payment is recorded on an order whose
// paid flag is already set.
var ErrAlreadyPaid = errors.New("order already paid")

// ErrOrderCancelled is returned when payment is attempted on a cancelled
// order.
var ErrOrderCancelled = errors.New("order is cancelled")

// ErrMethodNotFound is returned when a payment method name is not in the
// registry or the method has been deactivated.
var ErrMethodNotFound = errors.New("payment method not found or inactive")

// ErrProductNotFound is returned by catalog lookups for a missing product.
var ErrProductNotFound = errors.New("product not found")

// ErrCategoryNotFound is returned by catalog lookups for a missing category.
var ErrCategoryNotFound = errors.New("category not found")
