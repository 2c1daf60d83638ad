package handler

import (
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafetec/cafetec-backend/internal/config"
	"github.com/cafetec/cafetec-backend/internal/repository"
	"github.com/cafetec/cafetec-backend/internal/utils"
)

func newAuthHandler(t *testing.T) (sqlmock.Sqlmock, *AuthHandler, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 30,
		BcryptCost:     4,
	}
	h := NewAuthHandler(repository.NewUserRepo(db), repository.NewTokenRepo(db), cfg)
	return mock, h, func() { db.Close() }
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	_, h, done := newAuthHandler(t)
	defer done()

	c, rec := authedContext(t, http.MethodPost, "/v1/auth/register",
		`{"name":"Ada","email":"ada@example.com","password":"short"}`, 0, "")
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mock, h, done := newAuthHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))
	mock.ExpectRollback()

	c, rec := authedContext(t, http.MethodPost, "/v1/auth/register",
		`{"name":"Ada","email":"ada@example.com","password":"long-enough"}`, 0, "")
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already registered")
}

func TestRegisterCreatesCustomer(t *testing.T) {
	mock, h, done := newAuthHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles (user_id, role_id) SELECT ?, id FROM roles WHERE name = ?")).
		WithArgs(uint64(11), "customer").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := authedContext(t, http.MethodPost, "/v1/auth/register",
		`{"name":"Ada","email":"Ada@Example.com","password":"long-enough"}`, 0, "")
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ada@example.com"`)
	assert.Contains(t, rec.Body.String(), "access_token")
	assert.Contains(t, rec.Body.String(), `"role":"customer"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectUserByEmail(t *testing.T, mock sqlmock.Sqlmock, email, password string, active bool) {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "phone", "is_active", "created_at"}).
			AddRow(7, "Ada", email, hash, nil, active, time.Now().UTC()))
}

func TestLoginWrongPassword(t *testing.T) {
	mock, h, done := newAuthHandler(t)
	defer done()

	expectUserByEmail(t, mock, "ada@example.com", "right-password", true)

	c, rec := authedContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"ada@example.com","password":"wrong-password"}`, 0, "")
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginDisabledAccount(t *testing.T) {
	mock, h, done := newAuthHandler(t)
	defer done()

	expectUserByEmail(t, mock, "ada@example.com", "right-password", false)

	c, rec := authedContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"ada@example.com","password":"right-password"}`, 0, "")
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")
}

func TestLoginIssuesTokensWithRole(t *testing.T) {
	mock, h, done := newAuthHandler(t)
	defer done()

	expectUserByEmail(t, mock, "ada@example.com", "right-password", true)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("customer").AddRow("administrator"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := authedContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"ada@example.com","password":"right-password"}`, 0, "")
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"administrator"`)
	assert.Contains(t, rec.Body.String(), "access_token")
	assert.Contains(t, rec.Body.String(), "refresh_token")
	assert.NoError(t, mock.ExpectationsWereMet())
}
