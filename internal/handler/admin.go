package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-inventory/internal/service"
)

// AdminHandler exposes the internal operator surface: queue processor
// lifecycle and the manual expiry sweep.  These routes live under
// /v1/internal and are expected to be reachable from the operations
// network only.
type AdminHandler struct {
    WaitingRoom   *service.WaitingRoomService
    Reservations  *service.ReservationService
    MaxConcurrent int
}

// NewAdminHandler constructs an AdminHandler.  maxConcurrent is the
// active-session ceiling handed to newly started queue processors.
func NewAdminHandler(waitingRoom *service.WaitingRoomService, reservations *service.ReservationService, maxConcurrent int) *AdminHandler {
    if waitingRoom == nil || reservations == nil {
        panic("nil service passed to NewAdminHandler")
    }
    return &AdminHandler{
        WaitingRoom:   waitingRoom,
        Reservations:  reservations,
        MaxConcurrent: maxConcurrent,
    }
}

// StartProcessor handles POST /v1/internal/events/:id/processor/start.
// Starting an already-running processor is a no-op and still returns 200.
func (h *AdminHandler) StartProcessor(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    h.WaitingRoom.StartQueueProcessor(eventID, h.MaxConcurrent)
    return c.JSON(http.StatusOK, echo.Map{
        "event_id": eventID,
        "running":  h.WaitingRoom.ProcessorRunning(eventID),
    })
}

// StopProcessor handles POST /v1/internal/events/:id/processor/stop.
func (h *AdminHandler) StopProcessor(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    h.WaitingRoom.StopQueueProcessor(eventID)
    return c.JSON(http.StatusOK, echo.Map{
        "event_id": eventID,
        "running":  h.WaitingRoom.ProcessorRunning(eventID),
    })
}

// Cleanup handles POST /v1/internal/cleanup: an on-demand run of the
// expired-hold sweep, useful when operators do not want to wait for the
// next scheduled pass.
func (h *AdminHandler) Cleanup(c echo.Context) error {
    released, err := h.Reservations.CleanupExpiredHolds(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{
            "error":          "cleanup incomplete",
            "seats_released": released,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"seats_released": released})
}
