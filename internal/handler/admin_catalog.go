package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/cafetec/cafetec-backend/internal/repository"
)

// AdminCatalogHandler serves product and category management. Every
// mutation invalidates the public catalog cache so customers never see a
// stale menu for longer than one request.
type AdminCatalogHandler struct {
	Products   *repository.ProductRepo
	Categories *repository.CategoryRepo
	Invalidate func(c echo.Context)
}

func NewAdminCatalogHandler(products *repository.ProductRepo, categories *repository.CategoryRepo, invalidate func(c echo.Context)) *AdminCatalogHandler {
	if invalidate == nil {
		invalidate = func(echo.Context) {}
	}
	return &AdminCatalogHandler{Products: products, Categories: categories, Invalidate: invalidate}
}

type productRequest struct {
	CategoryID  uint64  `json:"category_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       string  `json:"price"`
	ImageURL    *string `json:"image_url"`
	Stock       *int64  `json:"stock"`
}

func (r *productRequest) validate() (decimal.Decimal, error) {
	if r.CategoryID == 0 || r.Name == "" {
		return decimal.Zero, errors.New("category_id and name are required")
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil || price.IsNegative() {
		return decimal.Zero, errors.New("price must be a non-negative decimal string")
	}
	if r.Stock != nil && *r.Stock < 0 {
		return decimal.Zero, errors.New("stock cannot be negative")
	}
	return price.Round(2), nil
}

// ListProducts returns every product including inactive ones.
func (h *AdminCatalogHandler) ListProducts(c echo.Context) error {
	records, err := h.Products.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load products"})
	}
	views := make([]productView, 0, len(records))
	for _, p := range records {
		views = append(views, toProductView(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": views})
}

// CreateProduct adds a product to the menu.
func (h *AdminCatalogHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	price, err := req.validate()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	if _, err := h.Categories.GetByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create product"})
	}
	p := repository.ProductRecord{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	}
	if err := h.Products.Create(ctx, &p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create product"})
	}
	h.Invalidate(c)
	return c.JSON(http.StatusCreated, echo.Map{"id": p.ID})
}

// UpdateProduct rewrites a product's editable fields.
func (h *AdminCatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	price, err := req.validate()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	if _, err := h.Categories.GetByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update product"})
	}
	p := repository.ProductRecord{
		ID:          id,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	}
	if err := h.Products.Update(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update product"})
	}
	h.Invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

type activeRequest struct {
	IsActive bool `json:"is_active"`
}

// SetProductActive switches a product on or off the public menu. Products
// are never deleted; old order lines keep pointing at them.
func (h *AdminCatalogHandler) SetProductActive(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Products.SetActive(c.Request().Context(), id, req.IsActive); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update product"})
	}
	h.Invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": req.IsActive})
}

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// ListCategories returns every category including inactive ones.
func (h *AdminCatalogHandler) ListCategories(c echo.Context) error {
	records, err := h.Categories.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load categories"})
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": records})
}

// CreateCategory adds a menu category.
func (h *AdminCatalogHandler) CreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	cat := repository.CategoryRecord{Name: req.Name, Description: req.Description}
	if err := h.Categories.Create(c.Request().Context(), &cat); err != nil {
		if errors.Is(err, repository.ErrCategoryExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "category name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create category"})
	}
	h.Invalidate(c)
	return c.JSON(http.StatusCreated, echo.Map{"id": cat.ID})
}

// SetCategoryActive toggles a category's visibility.
func (h *AdminCatalogHandler) SetCategoryActive(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Categories.SetActive(c.Request().Context(), id, req.IsActive); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update category"})
	}
	h.Invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": req.IsActive})
}
