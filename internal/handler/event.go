package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-inventory/internal/repository"
)

// EventHandler serves read-only event metadata.  Events are administered
// by the external catalog service; this surface only exposes what shoppers
// need before joining a queue: name, sale status and the live
// available-seat counter.
type EventHandler struct {
    Events *repository.EventRepo
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *repository.EventRepo) *EventHandler {
    if events == nil {
        panic("nil repository passed to NewEventHandler")
    }
    return &EventHandler{Events: events}
}

// GetEvent handles GET /v1/events/:id.
func (h *EventHandler) GetEvent(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetByID(c.Request().Context(), eventID)
    if err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "event lookup unavailable"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":              ev.ID,
        "name":            ev.Name,
        "status":          ev.Status,
        "available_seats": ev.AvailableSeats,
    })
}
