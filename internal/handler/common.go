package handler // handler implements the HTTP endpoints of the café backend

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cafetec/cafetec-backend/internal/model"
	"github.com/cafetec/cafetec-backend/internal/repository"
)

// getUserID extracts the authenticated user's ID from the context values
// set by the JWT middleware. JWT claims decode numbers as float64, but a
// string subject is tolerated too.
func getUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil
	case uint64:
		return v, true
	case int64:
		return uint64(v), true
	}
	return 0, false
}

// isAdmin reports whether the request carries the administrator role claim.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// mapRepoError translates repository sentinels into JSON error responses.
// Unknown errors fall through to a 500 with the given fallback message so
// store internals never leak to clients.
func mapRepoError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrSlotNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrSlotFull),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrSameStatus),
		errors.Is(err, repository.ErrAlreadyPaid),
		errors.Is(err, repository.ErrOrderCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrProductUnavailable),
		errors.Is(err, repository.ErrMethodNotFound),
		errors.Is(err, repository.ErrStatusNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}
