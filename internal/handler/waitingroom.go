package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-inventory/internal/middleware"
    "github.com/iliyamo/ticket-inventory/internal/service"
)

// WaitingRoomHandler serves the queue endpoints a browser polls while the
// session waits for admission.
type WaitingRoomHandler struct {
    WaitingRoom *service.WaitingRoomService
}

// NewWaitingRoomHandler constructs a WaitingRoomHandler.
func NewWaitingRoomHandler(waitingRoom *service.WaitingRoomService) *WaitingRoomHandler {
    if waitingRoom == nil {
        panic("nil service passed to NewWaitingRoomHandler")
    }
    return &WaitingRoomHandler{WaitingRoom: waitingRoom}
}

// Join handles POST /v1/events/:id/queue.  Joining is idempotent: an
// already-waiting session gets its current position back, an active
// session gets its admission token back.
func (h *WaitingRoomHandler) Join(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    sessionID := middleware.SessionID(c)
    if sessionID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
    }
    status, err := h.WaitingRoom.JoinQueue(c.Request().Context(), eventID, sessionID)
    if err != nil {
        if errors.Is(err, service.ErrStoreUnavailable) {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "waiting room unavailable"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to join queue"})
    }
    return c.JSON(http.StatusOK, status)
}

// Status handles GET /v1/events/:id/queue.  Pure read; the poll endpoint.
func (h *WaitingRoomHandler) Status(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    sessionID := middleware.SessionID(c)
    if sessionID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
    }
    status, err := h.WaitingRoom.GetQueueStatus(c.Request().Context(), eventID, sessionID)
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "waiting room unavailable"})
    }
    return c.JSON(http.StatusOK, status)
}

// Leave handles DELETE /v1/events/:id/queue.  Removes the session from
// the waiting room in whatever state it was in; idempotent.
func (h *WaitingRoomHandler) Leave(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    sessionID := middleware.SessionID(c)
    if sessionID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
    }
    if err := h.WaitingRoom.LeaveQueue(c.Request().Context(), eventID, sessionID); err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "waiting room unavailable"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Stats handles GET /v1/events/:id/queue/stats: queue depth, active
// session count and the estimated wait for a new joiner.
func (h *WaitingRoomHandler) Stats(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    stats, err := h.WaitingRoom.GetQueueStats(c.Request().Context(), eventID)
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "waiting room unavailable"})
    }
    return c.JSON(http.StatusOK, stats)
}
