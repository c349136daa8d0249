package middleware

// identity.go resolves the shopper session identity for a request.  Session
// issuance itself belongs to the external auth collaborator; this core only
// needs a stable opaque ID per shopper.  The ID arrives in the X-Session-ID
// header; when a request carries none, a fresh UUID is generated and echoed
// back so the client can keep using it.

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

// SessionHeader is the header carrying the shopper session ID.
const SessionHeader = "X-Session-ID"

const sessionContextKey = "session_id"

// SessionIdentity extracts the session ID from the request header, minting
// one when absent, and stores it in the request context for handlers.
func SessionIdentity() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            sid := c.Request().Header.Get(SessionHeader)
            if sid == "" {
                sid = uuid.NewString()
            }
            c.Set(sessionContextKey, sid)
            c.Response().Header().Set(SessionHeader, sid)
            return next(c)
        }
    }
}

// SessionID returns the session ID resolved for this request, or "" when
// the identity middleware did not run.
func SessionID(c echo.Context) string {
    if v := c.Get(sessionContextKey); v != nil {
        if s, ok := v.(string); ok {
            return s
        }
    }
    return ""
}
