package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cafetec/cafetec-backend/internal/repository"
)

// AdminOrderHandler serves the staff-facing order board and the status
// transition endpoint.
type AdminOrderHandler struct {
	Orders   *repository.OrderRepo
	Statuses *repository.StatusRepo
	History  *repository.HistoryRepo
	Payments *repository.PaymentRepo
}

func NewAdminOrderHandler(orders *repository.OrderRepo, statuses *repository.StatusRepo,
	history *repository.HistoryRepo, payments *repository.PaymentRepo) *AdminOrderHandler {
	return &AdminOrderHandler{Orders: orders, Statuses: statuses, History: history, Payments: payments}
}

// ListOrders returns every order with customer and line summaries, newest
// first.
func (h *AdminOrderHandler) ListOrders(c echo.Context) error {
	orders, err := h.Orders.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load orders"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

type changeStatusRequest struct {
	StatusID uint8   `json:"status_id"`
	Note     *string `json:"note"`
}

// ChangeStatus moves an order to a new status and appends the audit entry,
// both in one transaction under a row lock on the order. Any status can
// follow any other; staff correct mistakes by moving orders back, and the
// history records every hop either way.
func (h *AdminOrderHandler) ChangeStatus(c echo.Context) error {
	actorID, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req changeStatusRequest
	if err := c.Bind(&req); err != nil || req.StatusID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status_id is required"})
	}

	ctx := c.Request().Context()
	target, err := h.Statuses.GetByID(ctx, req.StatusID)
	if err != nil {
		if errors.Is(err, repository.ErrStatusNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change status"})
	}

	tx, err := h.Orders.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change status"})
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
			return mapRepoError(c, repository.ErrOrderNotFound, "could not change status")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change status"})
	}
	if order.StatusID == target.ID {
		return mapRepoError(c, repository.ErrSameStatus, "could not change status")
	}

	prev, err := h.Statuses.GetByID(ctx, order.StatusID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change status"})
	}

	if err := h.Orders.UpdateStatusTx(ctx, tx, order.ID, target.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change status"})
	}

	note := req.Note
	if note == nil || *note == "" {
		n := "status changed from " + prev.Name + " to " + target.Name
		note = &n
	}
	prevID := order.StatusID
	if err := h.History.InsertTx(ctx, tx, &repository.HistoryRecord{
		OrderID:      order.ID,
		PrevStatusID: &prevID,
		NewStatusID:  target.ID,
		ChangedBy:    &actorID,
		Note:         note,
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change status"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not change status"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":         order.ID,
		"prev_status_id":   prev.ID,
		"prev_status_name": prev.Name,
		"status_id":        target.ID,
		"status_name":      target.Name,
	})
}

// GetHistory returns the audit trail of one order, newest first.
func (h *AdminOrderHandler) GetHistory(c echo.Context) error {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Orders.GetByID(ctx, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mapRepoError(c, repository.ErrOrderNotFound, "could not load history")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load history"})
	}
	history, err := h.History.ListByOrder(ctx, orderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load history"})
	}
	return c.JSON(http.StatusOK, echo.Map{"order_id": orderID, "history": history})
}

// ListPayments returns the payments ledger with order and customer context.
func (h *AdminOrderHandler) ListPayments(c echo.Context) error {
	payments, err := h.Payments.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load payments"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": payments})
}
