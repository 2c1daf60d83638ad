package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cafetec/cafetec-backend/internal/repository"
)

// CatalogHandler serves the public menu: products, categories and the
// payment-method registry. Responses here sit behind the Redis cache
// middleware, so listings are cheap to poll.
type CatalogHandler struct {
	Products   *repository.ProductRepo
	Categories *repository.CategoryRepo
	Payments   *repository.PaymentRepo
	Statuses   *repository.StatusRepo
}

func NewCatalogHandler(products *repository.ProductRepo, categories *repository.CategoryRepo, payments *repository.PaymentRepo, statuses *repository.StatusRepo) *CatalogHandler {
	return &CatalogHandler{Products: products, Categories: categories, Payments: payments, Statuses: statuses}
}

type productView struct {
	ID          uint64  `json:"id"`
	CategoryID  uint64  `json:"category_id"`
	Category    string  `json:"category"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       string  `json:"price"`
	ImageURL    *string `json:"image_url,omitempty"`
	Stock       *int64  `json:"stock,omitempty"`
	IsActive    bool    `json:"is_active"`
}

func toProductView(p repository.ProductRecord) productView {
	return productView{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Category:    p.CategoryName,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
	}
}

// ListProducts returns the active menu grouped flat, ordered by category
// then name.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	records, err := h.Products.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load products"})
	}
	views := make([]productView, 0, len(records))
	for _, p := range records {
		views = append(views, toProductView(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": views})
}

// GetProduct returns a single product. Inactive products stay visible by
// direct ID so old order lines can still link to them.
func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	p, err := h.Products.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load product"})
	}
	return c.JSON(http.StatusOK, toProductView(*p))
}

// ListCategories returns the active menu categories.
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	records, err := h.Categories.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load categories"})
	}
	type view struct {
		ID          uint64  `json:"id"`
		Name        string  `json:"name"`
		Description *string `json:"description,omitempty"`
	}
	views := make([]view, 0, len(records))
	for _, r := range records {
		views = append(views, view{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": views})
}

// ListPaymentMethods returns the active payment methods customers can pick
// from at checkout.
func (h *CatalogHandler) ListPaymentMethods(c echo.Context) error {
	methods, err := h.Payments.ListActiveMethods(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load payment methods"})
	}
	type view struct {
		ID          uint64  `json:"id"`
		Name        string  `json:"name"`
		Description *string `json:"description,omitempty"`
	}
	views := make([]view, 0, len(methods))
	for _, m := range methods {
		views = append(views, view{ID: m.ID, Name: m.Name, Description: m.Description})
	}
	return c.JSON(http.StatusOK, echo.Map{"payment_methods": views})
}

// ListStatuses returns the order-status catalog so clients can render
// status names and colors without hardcoding them.
func (h *CatalogHandler) ListStatuses(c echo.Context) error {
	statuses, err := h.Statuses.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load statuses"})
	}
	type view struct {
		ID          uint8   `json:"id"`
		Name        string  `json:"name"`
		ColorHex    string  `json:"color_hex"`
		Description *string `json:"description,omitempty"`
	}
	views := make([]view, 0, len(statuses))
	for _, s := range statuses {
		views = append(views, view{ID: s.ID, Name: s.Name, ColorHex: s.ColorHex, Description: s.Description})
	}
	return c.JSON(http.StatusOK, echo.Map{"statuses": views})
}
