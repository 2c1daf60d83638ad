package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cafetec/cafetec-backend/internal/handler"
	"github.com/cafetec/cafetec-backend/internal/middleware"
	"github.com/cafetec/cafetec-backend/internal/model"
)

// RegisterAdmin registers the staff endpoints under /v1/admin. Everything
// here requires a valid access token carrying the administrator role.
func RegisterAdmin(e *echo.Echo, orders *handler.AdminOrderHandler, sales *handler.OrderHandler,
	cat *handler.AdminCatalogHandler, slots *handler.AdminSlotHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.GET("/orders", orders.ListOrders)
	g.PUT("/orders/:id/status", orders.ChangeStatus)
	g.GET("/orders/:id/history", orders.GetHistory)
	g.POST("/orders/:id/payments", sales.RecordSale)
	g.GET("/payments", orders.ListPayments)

	g.GET("/products", cat.ListProducts)
	g.POST("/products", cat.CreateProduct)
	g.PUT("/products/:id", cat.UpdateProduct)
	g.PATCH("/products/:id/active", cat.SetProductActive)

	g.GET("/categories", cat.ListCategories)
	g.POST("/categories", cat.CreateCategory)
	g.PATCH("/categories/:id/active", cat.SetCategoryActive)

	g.GET("/slots", slots.ListSlots)
	g.POST("/slots", slots.CreateSlot)
	g.PUT("/slots/:id", slots.UpdateSlot)
	g.PATCH("/slots/:id/active", slots.SetSlotActive)
}
