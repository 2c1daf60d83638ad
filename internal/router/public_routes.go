package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cafetec/cafetec-backend/internal/handler"
)

// RegisterPublic registers the unauthenticated browse endpoints: the menu,
// categories, pickup-slot availability, payment methods and the status
// catalog. The caller passes the cache middleware so listings can be served
// from Redis; a nil slice of middleware is fine.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, slots *handler.SlotHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)
	g.GET("/products", cat.ListProducts)
	g.GET("/products/:id", cat.GetProduct)
	g.GET("/categories", cat.ListCategories)
	g.GET("/slots/available", slots.ListAvailable)
	g.GET("/payment-methods", cat.ListPaymentMethods)
	g.GET("/order-statuses", cat.ListStatuses)
}
