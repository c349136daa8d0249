package middleware

// admission.go gates inventory-touching endpoints behind the waiting room:
// only sessions whose active marker is alive may query detailed seats or
// reserve.  Everyone else is told to join the queue.  This is the sole
// coupling point between the two subsystems — the gate is what bounds the
// concurrency the reservation engine has to absorb.

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
)

// ActiveChecker is the waiting-room surface the gate needs.  The
// WaitingRoomService satisfies it.
type ActiveChecker interface {
    IsSessionActive(ctx context.Context, eventID uint64, sessionID string) (bool, error)
}

// RequireActiveSession rejects requests whose session has not been
// admitted for the event named by the :id path parameter.  The check reads
// the TTL'd marker, so an admitted session that idled past its session TTL
// is turned away exactly like one that never joined.
func RequireActiveSession(checker ActiveChecker) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            sessionID := SessionID(c)
            if sessionID == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
            }
            eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
            if err != nil || eventID == 0 {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
            }
            active, err := checker.IsSessionActive(c.Request().Context(), eventID, sessionID)
            if err != nil {
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "admission check unavailable"})
            }
            if !active {
                return c.JSON(http.StatusForbidden, echo.Map{
                    "error":   "not admitted",
                    "message": "join the waiting room before browsing inventory",
                })
            }
            return next(c)
        }
    }
}
