package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-inventory/internal/middleware"
    "github.com/iliyamo/ticket-inventory/internal/service"
)

// ReservationHandler serves seat holds and releases on behalf of admitted
// sessions.  The admission gate middleware has already verified the
// session is active for the event by the time these run.
type ReservationHandler struct {
    Reservations *service.ReservationService
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
    if reservations == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{Reservations: reservations}
}

type seatIDsBody struct {
    SeatIDs []uint64 `json:"seat_ids"`
}

// Reserve handles POST /v1/events/:id/reservations.  The body carries a
// "seat_ids" array.  Success returns 201 with the held seats and their
// expiry; contended seats return 409 naming exactly the seats that could
// not be taken so the client can re-select.
func (h *ReservationHandler) Reserve(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    sessionID := middleware.SessionID(c)
    if sessionID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
    }
    var body seatIDsBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.SeatIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
    }

    result, err := h.Reservations.ReserveSeats(c.Request().Context(), sessionID, eventID, body.SeatIDs)
    if err != nil {
        var unavailable *service.SeatsUnavailableError
        if errors.As(err, &unavailable) {
            return c.JSON(http.StatusConflict, echo.Map{
                "error":       "seats unavailable",
                "unavailable": unavailable.SeatIDs,
            })
        }
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "reservation unavailable"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "reference":  result.Reference,
        "seats":      result.Seats,
        "expires_at": result.ExpiresAt,
    })
}

// Release handles DELETE /v1/events/:id/reservations.  The body carries
// the "seat_ids" to give back; a session releasing seats it does not hold
// gets 403 and nothing changes.
func (h *ReservationHandler) Release(c echo.Context) error {
    eventID, err := eventIDParam(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    sessionID := middleware.SessionID(c)
    if sessionID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
    }
    var body seatIDsBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.SeatIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
    }

    if err := h.Reservations.ReleaseSeats(c.Request().Context(), sessionID, eventID, body.SeatIDs); err != nil {
        if errors.Is(err, service.ErrNotHoldOwner) {
            return c.JSON(http.StatusForbidden, echo.Map{"error": "seats not held by this session"})
        }
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "release unavailable"})
    }
    return c.NoContent(http.StatusNoContent)
}

// GetCurrent handles GET /v1/reservations/current.  It returns the
// session's live reservation with hydrated seat details, or 404 when the
// session holds nothing (including holds that already expired).
func (h *ReservationHandler) GetCurrent(c echo.Context) error {
    sessionID := middleware.SessionID(c)
    if sessionID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
    }
    detail, err := h.Reservations.GetReservation(c.Request().Context(), sessionID)
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "reservation lookup unavailable"})
    }
    if detail == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no active reservation"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": detail})
}
