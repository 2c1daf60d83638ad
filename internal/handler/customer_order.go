package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/cafetec/cafetec-backend/internal/model"
	"github.com/cafetec/cafetec-backend/internal/queue"
	"github.com/cafetec/cafetec-backend/internal/repository"
	queue_publisher "github.com/cafetec/cafetec-backend/internal/service"
	"github.com/cafetec/cafetec-backend/internal/utils"
)

// OrderHandler serves order placement, listing, status polling and payment
// recording. Creation and payment both run as single transactions: the slot
// or order row is locked first, every check happens under that lock, and
// either all writes land or none do.
type OrderHandler struct {
	Orders   *repository.OrderRepo
	Slots    *repository.SlotRepo
	Products *repository.ProductRepo
	Statuses *repository.StatusRepo
	History  *repository.HistoryRepo
	Payments *repository.PaymentRepo
	Users    *repository.UserRepo
}

func NewOrderHandler(orders *repository.OrderRepo, slots *repository.SlotRepo, products *repository.ProductRepo,
	statuses *repository.StatusRepo, history *repository.HistoryRepo, payments *repository.PaymentRepo,
	users *repository.UserRepo) *OrderHandler {
	return &OrderHandler{
		Orders: orders, Slots: slots, Products: products,
		Statuses: statuses, History: history, Payments: payments, Users: users,
	}
}

type orderItemRequest struct {
	ProductID uint64 `json:"product_id"`
	Quantity  uint32 `json:"quantity"`
}

type createOrderRequest struct {
	SlotID uint64             `json:"slot_id"`
	Notes  *string            `json:"notes"`
	Items  []orderItemRequest `json:"items"`
}

const maxLineQuantity = 50

// mergeItems collapses duplicate product IDs into one line each, summing
// quantities, while keeping the first-seen order of products.
func mergeItems(items []orderItemRequest) []orderItemRequest {
	merged := make([]orderItemRequest, 0, len(items))
	index := make(map[uint64]int, len(items))
	for _, it := range items {
		if pos, ok := index[it.ProductID]; ok {
			merged[pos].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}

// CreateOrder places a new order into a pickup slot.
//
// The whole operation is one transaction: the slot row is locked, occupancy
// is counted under that lock, every product is locked and checked, prices
// are snapshotted, and the order, its lines, the stock decrements and the
// first history entry all commit together. Two requests racing for a slot's
// last space serialize on the slot lock, so the capacity cap holds.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.SlotID == 0 || len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot_id and at least one item are required"})
	}
	for _, it := range req.Items {
		if it.ProductID == 0 || it.Quantity == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "each item needs a product_id and a quantity of at least 1"})
		}
	}
	// The cap applies to the merged line, so duplicate entries for one
	// product cannot smuggle in a larger quantity.
	items := mergeItems(req.Items)
	for _, it := range items {
		if it.Quantity > maxLineQuantity {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity per product is limited to 50"})
		}
	}

	ctx := c.Request().Context()
	tx, err := h.Orders.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not place order"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slot, err := h.Slots.GetActiveForUpdateTx(ctx, tx, req.SlotID)
	if err != nil {
		return mapRepoError(c, err, "could not place order")
	}
	active, err := h.Slots.CountActiveOrdersTx(ctx, tx, slot.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not place order"})
	}
	if active >= slot.MaxCapacity {
		return mapRepoError(c, repository.ErrSlotFull, "could not place order")
	}

	lines := make([]repository.OrderLineRecord, 0, len(items))
	subtotals := make([]decimal.Decimal, 0, len(items))
	names := make([]string, 0, len(items))
	for _, it := range items {
		p, err := h.Products.GetActiveForOrderTx(ctx, tx, it.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductUnavailable) {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"error":      repository.ErrProductUnavailable.Error(),
					"product_id": it.ProductID,
				})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not place order"})
		}
		if p.Stock != nil && *p.Stock < int64(it.Quantity) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":      repository.ErrInsufficientStock.Error(),
				"product_id": it.ProductID,
				"available":  *p.Stock,
			})
		}
		sub := utils.Round2(utils.LineSubtotal(p.Price, it.Quantity))
		lines = append(lines, repository.OrderLineRecord{
			ProductID: p.ID,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
			Subtotal:  sub,
		})
		subtotals = append(subtotals, sub)
		names = append(names, strconv.Itoa(int(it.Quantity))+"x "+p.Name)
	}

	now := time.Now().UTC()
	order := repository.OrderRecord{
		UserID:      userID,
		SlotID:      slot.ID,
		StatusID:    model.StatusPending,
		PlacedAt:    now,
		ScheduledAt: parseSlotTime(slot.StartsAt, now),
		Total:       utils.SumSubtotals(subtotals),
		Notes:       req.Notes,
	}
	if err := h.Orders.CreateTx(ctx, tx, &order); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not place order"})
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := h.Orders.CreateLinesBulkTx(ctx, tx, lines); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not place order"})
	}
	for _, l := range lines {
		if err := h.Products.DecrementStockTx(ctx, tx, l.ProductID, l.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock", "product_id": l.ProductID})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not place order"})
		}
	}
	placedNote := "order placed"
	if err := h.History.InsertTx(ctx, tx, &repository.HistoryRecord{
		OrderID:     order.ID,
		NewStatusID: model.StatusPending,
		ChangedBy:   &userID,
		Note:        &placedNote,
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not place order"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not place order"})
	}
	committed = true

	h.publishOrderPlaced(order, slot, names)

	detail, err := h.Orders.GetByIDForUser(ctx, order.ID, userID)
	if err != nil {
		// The order is committed; fall back to the minimal payload.
		return c.JSON(http.StatusCreated, echo.Map{"id": order.ID, "total": order.Total.StringFixed(2)})
	}
	return c.JSON(http.StatusCreated, detail)
}

// publishOrderPlaced fires the broker notification in the background. The
// order is already committed, so a publish failure is only logged.
func (h *OrderHandler) publishOrderPlaced(order repository.OrderRecord, slot *repository.SlotRecord, items []string) {
	customerName := ""
	if u, err := h.Users.GetByID(context.Background(), order.UserID); err == nil {
		customerName = u.Name
	}
	ev := queue.OrderPlacedEvent{
		OrderID:      order.ID,
		UserID:       order.UserID,
		CustomerName: customerName,
		SlotID:       slot.ID,
		SlotStartsAt: slot.StartsAt,
		SlotEndsAt:   slot.EndsAt,
		Items:        items,
		Total:        order.Total.StringFixed(2),
		PlacedAt:     order.PlacedAt.Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue_publisher.PublishOrderPlaced(ctx, ev); err != nil {
			log.Printf("order %d: publish order.placed failed: %v", ev.OrderID, err)
		}
	}()
}

// parseSlotTime turns the slot's stored start time back into a time.Time
// for the order's scheduled_at column.
func parseSlotTime(s string, fallback time.Time) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

// ListMyOrders returns the caller's orders, newest first, lines included.
func (h *OrderHandler) ListMyOrders(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.Orders.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load orders"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// GetOrder returns one order. Customers only see their own; an order that
// exists but belongs to someone else reads as not found. Administrators see
// any order, with the audit trail attached.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	ctx := c.Request().Context()

	if isAdmin(c) {
		detail, err := h.Orders.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return mapRepoError(c, repository.ErrOrderNotFound, "could not load order")
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load order"})
		}
		history, err := h.History.ListByOrder(ctx, orderID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load order"})
		}
		return c.JSON(http.StatusOK, echo.Map{"order": detail, "history": history})
	}

	userID, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	detail, err := h.Orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mapRepoError(c, repository.ErrOrderNotFound, "could not load order")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load order"})
	}
	return c.JSON(http.StatusOK, detail)
}

// GetOrderStatus is the lightweight polling endpoint customers hit while
// waiting for their pickup.
func (h *OrderHandler) GetOrderStatus(c echo.Context) error {
	userID, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	view, err := h.Orders.GetStatusForUser(c.Request().Context(), orderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mapRepoError(c, repository.ErrOrderNotFound, "could not load order status")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load order status"})
	}
	return c.JSON(http.StatusOK, view)
}

type payRequest struct {
	Method    string  `json:"method"`
	Reference *string `json:"reference"`
	Notes     *string `json:"notes"`
}

// Pay records payment on the caller's own order.
func (h *OrderHandler) Pay(c echo.Context) error {
	return h.recordPayment(c, false)
}

// RecordSale records payment on any order on behalf of an administrator,
// typically for cash handed over at the counter.
func (h *OrderHandler) RecordSale(c echo.Context) error {
	return h.recordPayment(c, true)
}

// recordPayment marks an order paid inside one transaction. The order row
// is locked first; the paid and cancelled checks run under that lock, so a
// double submit cannot record two payments. Non-cash payment confirms the
// order; cash stays pending until the counter sees the money.
func (h *OrderHandler) recordPayment(c echo.Context, asAdmin bool) error {
	actorID, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req payRequest
	if err := c.Bind(&req); err != nil || req.Method == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "method is required"})
	}

	ctx := c.Request().Context()
	method, err := h.Payments.GetActiveMethodByName(ctx, req.Method)
	if err != nil {
		if errors.Is(err, repository.ErrMethodNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown payment method"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
	}

	tx, err := h.Orders.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := h.Orders.GetForUpdateTx(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mapRepoError(c, repository.ErrOrderNotFound, "could not record payment")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
	}
	if !asAdmin && order.UserID != actorID {
		// Same response as a missing order so IDs cannot be guessed.
		return mapRepoError(c, repository.ErrOrderNotFound, "could not record payment")
	}
	if order.StatusID == model.StatusCancelled {
		return mapRepoError(c, repository.ErrOrderCancelled, "could not record payment")
	}
	if order.Paid {
		return mapRepoError(c, repository.ErrAlreadyPaid, "could not record payment")
	}

	// Cash is promised, not yet seen; everything else confirms immediately.
	newStatus := order.StatusID
	if method.Name != model.MethodCash && order.StatusID == model.StatusPending {
		newStatus = model.StatusConfirmed
	}

	if err := h.Orders.MarkPaidTx(ctx, tx, order.ID, method.Name, newStatus); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
	}
	if err := h.Payments.InsertTx(ctx, tx, &repository.PaymentRecord{
		OrderID:   order.ID,
		MethodID:  method.ID,
		Amount:    order.Total,
		Reference: req.Reference,
		State:     model.PaymentCompleted,
		Notes:     req.Notes,
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
	}
	// The audit trail records every status move plus any payment an
	// administrator takes on someone else's order, even when the status
	// stays put, so the counter's cash handling is always traceable.
	if newStatus != order.StatusID || (asAdmin && actorID != order.UserID) {
		prev := order.StatusID
		note := "payment recorded via " + method.Name
		if err := h.History.InsertTx(ctx, tx, &repository.HistoryRecord{
			OrderID:      order.ID,
			PrevStatusID: &prev,
			NewStatusID:  newStatus,
			ChangedBy:    &actorID,
			Note:         &note,
		}); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record payment"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":  order.ID,
		"paid":      true,
		"method":    method.Name,
		"status_id": newStatus,
		"amount":    order.Total.StringFixed(2),
	})
}
