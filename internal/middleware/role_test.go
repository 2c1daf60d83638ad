package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRole(t *testing.T, role interface{}, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	h := RequireRole(allowed...)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	rec := runRole(t, "administrator", "administrator")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleAllowsAnyOfSeveral(t *testing.T) {
	rec := runRole(t, "customer", "customer", "administrator")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleBlocksOtherRole(t *testing.T) {
	rec := runRole(t, "customer", "administrator")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleBlocksMissingRole(t *testing.T) {
	rec := runRole(t, nil, "administrator")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
