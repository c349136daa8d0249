// Package handler exposes HTTP handlers over the core services.  Handlers
// stay thin: they parse IDs and bodies, call the service, and translate
// service outcomes into status codes.  All state decisions live below.
package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-inventory/internal/service"
)

// AvailabilityHandler serves seat availability reads.  Summary reads go
// through the short-TTL cache inside the service; section seat maps are
// always fresh.
type AvailabilityHandler struct {
    Reservations *service.ReservationService
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(reservations *service.ReservationService) *AvailabilityHandler {
    if reservations == nil {
        panic("nil service passed to NewAvailabilityHandler")
    }
    return &AvailabilityHandler{Reservations: reservations}
}

// eventIDParam parses the :id path parameter.
func eventIDParam(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
    }
    return id, nil
}

// GetAvailability handles GET /v1/events/:id/availability.  The optional
// ?section= query narrows the response to one section.  An unknown event
// simply yields an empty list.
func (h *AvailabilityHandler) GetAvailability(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    sections, err := h.Reservations.GetAvailability(c.Request().Context(), eventID, c.QueryParam("section"))
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "availability unavailable"})
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "sections": sections})
}

// GetSectionSeats handles GET /v1/events/:id/sections/:section/seats.  It
// returns the flat seat list for seat-map rendering, uncached.
func (h *AvailabilityHandler) GetSectionSeats(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    section := c.Param("section")
    if section == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "section is required"})
    }
    seats, err := h.Reservations.GetSectionSeats(c.Request().Context(), eventID, section)
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seat lookup unavailable"})
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "section": section, "seats": seats})
}
