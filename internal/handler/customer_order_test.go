package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafetec/cafetec-backend/internal/repository"
)

func newOrderHandler(t *testing.T) (sqlmock.Sqlmock, *OrderHandler, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := NewOrderHandler(
		repository.NewOrderRepo(db),
		repository.NewSlotRepo(db),
		repository.NewProductRepo(db),
		repository.NewStatusRepo(db),
		repository.NewHistoryRepo(db),
		repository.NewPaymentRepo(db),
		repository.NewUserRepo(db),
	)
	return mock, h, func() { db.Close() }
}

func authedContext(t *testing.T, method, path, body string, userID float64, role string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	c.Set("role", role)
	return c, rec
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	_, h, done := newOrderHandler(t)
	defer done()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders", `{"slot_id":1,"items":[]}`, 7, "customer")
	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderRejectsZeroQuantity(t *testing.T) {
	_, h, done := newOrderHandler(t)
	defer done()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders",
		`{"slot_id":1,"items":[{"product_id":2,"quantity":0}]}`, 7, "customer")
	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderSlotFull(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE id = ? AND is_active = 1 FOR UPDATE")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "starts_at", "ends_at", "max_capacity", "is_active"}).
			AddRow(1, "2026-09-01 10:00:00", "2026-09-01 10:15:00", 2, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders WHERE slot_id = ? AND status_id IN (1, 2, 3)")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders",
		`{"slot_id":1,"items":[{"product_id":2,"quantity":1}]}`, 7, "customer")
	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "slot is full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderUnknownSlot(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE id = ? AND is_active = 1 FOR UPDATE")).
		WithArgs(uint64(44)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "starts_at", "ends_at", "max_capacity", "is_active"}))
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders",
		`{"slot_id":44,"items":[{"product_id":2,"quantity":1}]}`, 7, "customer")
	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE id = ? AND is_active = 1 FOR UPDATE")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "starts_at", "ends_at", "max_capacity", "is_active"}).
			AddRow(1, "2026-09-01 10:00:00", "2026-09-01 10:15:00", 8, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ? AND is_active = 1 FOR UPDATE")).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
			AddRow(2, "Blueberry Muffin", "2.80", 1))
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders",
		`{"slot_id":1,"items":[{"product_id":2,"quantity":3}]}`, 7, "customer")
	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestMergeItemsCollapsesDuplicates(t *testing.T) {
	merged := mergeItems([]orderItemRequest{
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, uint64(2), merged[0].ProductID)
	assert.Equal(t, uint32(2), merged[0].Quantity)
	assert.Equal(t, uint64(3), merged[1].ProductID)
	assert.Equal(t, uint32(2), merged[1].Quantity)
}

func TestCreateOrderRejectsMergedQuantityOverCap(t *testing.T) {
	_, h, done := newOrderHandler(t)
	defer done()

	// Two lines for the same product merge into one, and the merged
	// quantity is what the cap applies to.
	c, rec := authedContext(t, http.MethodPost, "/v1/orders",
		`{"slot_id":1,"items":[{"product_id":2,"quantity":30},{"product_id":2,"quantity":30}]}`, 7, "customer")
	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limited to 50")
}

func TestCreateOrderPersistsLinesAndTotal(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE id = ? AND is_active = 1 FOR UPDATE")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "starts_at", "ends_at", "max_capacity", "is_active"}).
			AddRow(1, "2026-09-01 10:00:00", "2026-09-01 10:15:00", 8, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ? AND is_active = 1 FOR UPDATE")).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
			AddRow(2, "Latte", "3.50", 10))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ? AND is_active = 1 FOR UPDATE")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
			AddRow(3, "Croissant", "2.25", nil))

	// The inserted total is the sum of the line subtotals: 2x3.50 + 1x2.25.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(uint64(7), uint64(1), uint8(1), sqlmock.AnyArg(), sqlmock.AnyArg(),
			decimal.RequireFromString("9.25"), nil, false).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ?")).
		WithArgs(uint64(55)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "slot_id", "status_id", "placed_at", "scheduled_at",
			"total", "notes", "paid", "payment_method", "updated_at",
		}).AddRow(55, 7, 1, 1, now, now, "9.25", nil, false, nil, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_lines")).
		WithArgs(
			uint64(55), uint64(2), uint32(2), decimal.RequireFromString("3.50"), decimal.RequireFromString("7.00"),
			uint64(55), uint64(3), uint32(1), decimal.RequireFromString("2.25"), decimal.RequireFromString("2.25"),
		).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ?")).
		WithArgs(uint32(2), uint64(2), uint32(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Untracked product: the guarded update touches nothing and the
	// NULL-stock recheck says that is fine.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ?")).
		WithArgs(uint32(1), uint64(3), uint32(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO status_history")).
		WithArgs(uint64(55), nil, uint8(1), uint64(7), "order placed").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "phone", "is_active", "created_at"}).
			AddRow(7, "Dana", "dana@example.com", "x", nil, true, now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.id = ? AND o.user_id = ?")).
		WithArgs(uint64(55), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "slot_id", "starts_at", "ends_at", "status_id", "name", "color_hex",
			"total", "notes", "paid", "payment_method", "placed_at", "scheduled_at", "updated_at",
		}).AddRow(55, 7, 1, "2026-09-01 10:00:00", "2026-09-01 10:15:00", 1, "Pending", "#FFA500",
			"9.25", nil, false, nil, now, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_lines ol")).
		WithArgs(uint64(55)).
		WillReturnRows(sqlmock.NewRows([]string{
			"order_id", "product_id", "name", "image_url", "quantity", "unit_price", "subtotal", "price",
		}).AddRow(55, 2, "Latte", nil, 2, "3.50", "7.00", "3.50").
			AddRow(55, 3, "Croissant", nil, 1, "2.25", "2.25", "2.25"))

	c, rec := authedContext(t, http.MethodPost, "/v1/orders",
		`{"slot_id":1,"items":[{"product_id":2,"quantity":2},{"product_id":3,"quantity":1}]}`, 7, "customer")
	require.NoError(t, h.CreateOrder(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":"9.25"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectOrderForUpdate(mock sqlmock.Sqlmock, orderID, userID uint64, statusID uint8, paid bool) {
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "slot_id", "status_id", "placed_at", "scheduled_at",
			"total", "notes", "paid", "payment_method", "updated_at",
		}).AddRow(orderID, userID, 1, statusID, now, now, "9.50", nil, paid, nil, now))
}

func expectMethodLookup(mock sqlmock.Sqlmock, name string, id uint64) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_methods WHERE name = ? AND is_active = 1")).
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "is_active"}).
			AddRow(id, name, nil, true))
}

func TestPayRejectsDoublePayment(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	expectMethodLookup(mock, "card", 2)
	mock.ExpectBegin()
	expectOrderForUpdate(mock, 10, 7, 1, true)
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders/10/pay", `{"method":"card"}`, 7, "customer")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.Pay(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already paid")
}

func TestPayRejectsCancelledOrder(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	expectMethodLookup(mock, "card", 2)
	mock.ExpectBegin()
	expectOrderForUpdate(mock, 10, 7, 5, false)
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders/10/pay", `{"method":"card"}`, 7, "customer")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.Pay(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cancelled")
}

func TestPayHidesForeignOrders(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	expectMethodLookup(mock, "card", 2)
	mock.ExpectBegin()
	expectOrderForUpdate(mock, 10, 99, 1, false)
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders/10/pay", `{"method":"card"}`, 7, "customer")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.Pay(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayCardConfirmsOrder(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	expectMethodLookup(mock, "card", 2)
	mock.ExpectBegin()
	expectOrderForUpdate(mock, 10, 7, 1, false)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET paid = 1, payment_method = ?, status_id = ?")).
		WithArgs("card", uint8(2), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO status_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders/10/pay", `{"method":"card"}`, 7, "customer")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.Pay(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status_id":2`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayCashStaysPending(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	expectMethodLookup(mock, "cash", 1)
	mock.ExpectBegin()
	expectOrderForUpdate(mock, 10, 7, 1, false)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET paid = 1, payment_method = ?, status_id = ?")).
		WithArgs("cash", uint8(1), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders/10/pay", `{"method":"cash"}`, 7, "customer")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.Pay(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status_id":1`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSaleOnCustomersOrderWritesAuditEntry(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	// Cash leaves the order pending, but an administrator taking payment
	// on someone else's order still lands in the audit trail.
	expectMethodLookup(mock, "cash", 1)
	mock.ExpectBegin()
	expectOrderForUpdate(mock, 10, 7, 1, false)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET paid = 1, payment_method = ?, status_id = ?")).
		WithArgs("cash", uint8(1), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO status_history")).
		WithArgs(uint64(10), uint8(1), uint8(1), uint64(99), "payment recorded via cash").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := authedContext(t, http.MethodPost, "/v1/admin/orders/10/payments", `{"method":"cash"}`, 99, "administrator")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.RecordSale(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status_id":1`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayCardOnReadyOrderKeepsStatus(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	// Card confirms a pending order; an order already past pending keeps
	// its place on the board.
	expectMethodLookup(mock, "card", 2)
	mock.ExpectBegin()
	expectOrderForUpdate(mock, 10, 7, 3, false)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET paid = 1, payment_method = ?, status_id = ?")).
		WithArgs("card", uint8(3), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := authedContext(t, http.MethodPost, "/v1/orders/10/pay", `{"method":"card"}`, 7, "customer")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.Pay(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status_id":3`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayUnknownMethod(t *testing.T) {
	mock, h, done := newOrderHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_methods WHERE name = ? AND is_active = 1")).
		WithArgs("bitcoin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "is_active"}))

	c, rec := authedContext(t, http.MethodPost, "/v1/orders/10/pay", `{"method":"bitcoin"}`, 7, "customer")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.Pay(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
