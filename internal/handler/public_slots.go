package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cafetec/cafetec-backend/internal/repository"
)

// SlotHandler serves the public pickup-slot availability listing.
type SlotHandler struct {
	Slots *repository.SlotRepo
}

func NewSlotHandler(slots *repository.SlotRepo) *SlotHandler {
	return &SlotHandler{Slots: slots}
}

// availabilityTier maps a remaining-space count onto the label shown to
// customers.
func availabilityTier(remaining int64) string {
	switch {
	case remaining <= 0:
		return "Full"
	case remaining <= 2:
		return "Few left"
	default:
		return "Available"
	}
}

type slotView struct {
	ID               uint64 `json:"id"`
	StartsAt         string `json:"starts_at"`
	EndsAt           string `json:"ends_at"`
	Remaining        int64  `json:"remaining"`
	OccupancyPercent int64  `json:"occupancy_percent"`
	Availability     string `json:"availability"`
}

// ListAvailable returns the active slots that still have space, with their
// remaining count and availability tier. Slots at capacity are dropped from
// the listing entirely. The occupancy snapshot is unlocked, so a "Few left"
// slot can still be full by the time the order lands; the admission
// transaction is what decides.
func (h *SlotHandler) ListAvailable(c echo.Context) error {
	slots, err := h.Slots.ListActiveWithOccupancy(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load slots"})
	}
	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		remaining := int64(s.MaxCapacity) - int64(s.ActiveOrders)
		if remaining <= 0 {
			continue
		}
		percent := int64(0)
		if s.MaxCapacity > 0 {
			percent = int64(s.ActiveOrders) * 100 / int64(s.MaxCapacity)
		}
		views = append(views, slotView{
			ID:               s.ID,
			StartsAt:         s.StartsAt,
			EndsAt:           s.EndsAt,
			Remaining:        remaining,
			OccupancyPercent: percent,
			Availability:     availabilityTier(remaining),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"slots":        views,
		"total":        len(views),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}
