package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cafetec/cafetec-backend/internal/repository"
)

// AdminSlotHandler serves pickup-slot management.
type AdminSlotHandler struct {
	Slots      *repository.SlotRepo
	Invalidate func(c echo.Context)
}

func NewAdminSlotHandler(slots *repository.SlotRepo, invalidate func(c echo.Context)) *AdminSlotHandler {
	if invalidate == nil {
		invalidate = func(echo.Context) {}
	}
	return &AdminSlotHandler{Slots: slots, Invalidate: invalidate}
}

type slotRequest struct {
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	MaxCapacity uint32 `json:"max_capacity"`
}

func (r *slotRequest) validate() error {
	if r.StartsAt == "" || r.EndsAt == "" {
		return errors.New("starts_at and ends_at are required")
	}
	if r.MaxCapacity < 1 {
		return errors.New("max_capacity must be at least 1")
	}
	return nil
}

// ListSlots returns every slot including inactive ones.
func (h *AdminSlotHandler) ListSlots(c echo.Context) error {
	slots, err := h.Slots.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load slots"})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// CreateSlot opens a new pickup window.
func (h *AdminSlotHandler) CreateSlot(c echo.Context) error {
	var req slotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s := repository.SlotRecord{StartsAt: req.StartsAt, EndsAt: req.EndsAt, MaxCapacity: req.MaxCapacity}
	if err := h.Slots.Create(c.Request().Context(), &s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create slot"})
	}
	h.Invalidate(c)
	return c.JSON(http.StatusCreated, echo.Map{"id": s.ID})
}

// UpdateSlot changes a slot's window or capacity. Shrinking capacity below
// the current occupancy is allowed; existing orders stay, new admissions
// stop until occupancy drops under the new cap.
func (h *AdminSlotHandler) UpdateSlot(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req slotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s := repository.SlotRecord{ID: id, StartsAt: req.StartsAt, EndsAt: req.EndsAt, MaxCapacity: req.MaxCapacity}
	if err := h.Slots.Update(c.Request().Context(), &s); err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update slot"})
	}
	h.Invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// SetSlotActive opens or closes a slot for new orders without touching the
// orders already admitted to it.
func (h *AdminSlotHandler) SetSlotActive(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Slots.SetActive(c.Request().Context(), id, req.IsActive); err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update slot"})
	}
	h.Invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": req.IsActive})
}
