package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cafetec/cafetec-backend/internal/handler"
	"github.com/cafetec/cafetec-backend/internal/middleware"
	"github.com/cafetec/cafetec-backend/internal/model"
)

// RegisterCustomer registers the order endpoints available to any
// authenticated user. Administrators pass the role gate too, which is what
// lets GetOrder serve them any order with the audit trail attached.
func RegisterCustomer(e *echo.Echo, o *handler.OrderHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/orders", mw...)
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))

	g.POST("", o.CreateOrder)
	g.GET("", o.ListMyOrders)
	g.GET("/:id", o.GetOrder)
	g.GET("/:id/status", o.GetOrderStatus)
	g.POST("/:id/pay", o.Pay)
}
