package handler

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafetec/cafetec-backend/internal/repository"
)

func newAdminOrderHandler(t *testing.T) (sqlmock.Sqlmock, *AdminOrderHandler, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := NewAdminOrderHandler(
		repository.NewOrderRepo(db),
		repository.NewStatusRepo(db),
		repository.NewHistoryRepo(db),
		repository.NewPaymentRepo(db),
	)
	return mock, h, func() { db.Close() }
}

func expectStatusLookup(mock sqlmock.Sqlmock, id uint8, name string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, color_hex, description FROM order_statuses WHERE id = ?")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color_hex", "description"}).
			AddRow(id, name, "#888888", nil))
}

func TestChangeStatusUnknownTarget(t *testing.T) {
	mock, h, done := newAdminOrderHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("FROM order_statuses WHERE id = ?")).
		WithArgs(uint8(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color_hex", "description"}))

	c, rec := authedContext(t, http.MethodPut, "/v1/admin/orders/10/status", `{"status_id":9}`, 1, "administrator")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.ChangeStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown status")
}

func TestChangeStatusNoOp(t *testing.T) {
	mock, h, done := newAdminOrderHandler(t)
	defer done()

	expectStatusLookup(mock, 3, "Ready")
	mock.ExpectBegin()
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "slot_id", "status_id", "placed_at", "scheduled_at",
			"total", "notes", "paid", "payment_method", "updated_at",
		}).AddRow(10, 7, 1, 3, now, now, "9.50", nil, true, "card", now))
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPut, "/v1/admin/orders/10/status", `{"status_id":3}`, 1, "administrator")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.ChangeStatus(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in requested status")
}

func TestChangeStatusWritesHistory(t *testing.T) {
	mock, h, done := newAdminOrderHandler(t)
	defer done()

	expectStatusLookup(mock, 3, "Ready")
	mock.ExpectBegin()
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "slot_id", "status_id", "placed_at", "scheduled_at",
			"total", "notes", "paid", "payment_method", "updated_at",
		}).AddRow(10, 7, 1, 2, now, now, "9.50", nil, true, "card", now))
	expectStatusLookup(mock, 2, "Confirmed")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status_id = ?")).
		WithArgs(uint8(3), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO status_history")).
		WithArgs(uint64(10), uint8(2), uint8(3), uint64(1), "status changed from Confirmed to Ready").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	c, rec := authedContext(t, http.MethodPut, "/v1/admin/orders/10/status", `{"status_id":3}`, 1, "administrator")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.ChangeStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status_name":"Ready"`)
	assert.Contains(t, rec.Body.String(), `"prev_status_id":2`)
	assert.Contains(t, rec.Body.String(), `"prev_status_name":"Confirmed"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeStatusMissingOrder(t *testing.T) {
	mock, h, done := newAdminOrderHandler(t)
	defer done()

	expectStatusLookup(mock, 2, "Confirmed")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "slot_id", "status_id", "placed_at", "scheduled_at",
			"total", "notes", "paid", "payment_method", "updated_at",
		}))
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPut, "/v1/admin/orders/404/status", `{"status_id":2}`, 1, "administrator")
	c.SetParamNames("id")
	c.SetParamValues("404")
	require.NoError(t, h.ChangeStatus(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
