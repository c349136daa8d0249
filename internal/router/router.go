package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ticket-inventory/internal/config"
    "github.com/iliyamo/ticket-inventory/internal/handler"
    "github.com/iliyamo/ticket-inventory/internal/middleware"
    "github.com/iliyamo/ticket-inventory/internal/service"
)

// RegisterRoutes registers the operational endpoints that sit outside the
// versioned API: the health check for load balancers and the Prometheus
// scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterWaitingRoom registers the queue endpoints.  Every session may
// join, poll and leave regardless of admission state, so the only gate
// here is the token-bucket rate limiter on the join route (the endpoint a
// flash crowd hammers hardest).
func RegisterWaitingRoom(e *echo.Echo, w *handler.WaitingRoomHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
    g := e.Group("/v1/events/:id/queue")
    if rlCfg.Enabled && rdb != nil {
        g.POST("", w.Join, middleware.NewTokenBucket(rlCfg, rdb))
    } else {
        g.POST("", w.Join)
    }
    g.GET("/status", w.Status)
    g.DELETE("", w.Leave)
    g.GET("/stats", w.Stats)
}

// RegisterInventory registers the seat-browsing and reservation
// endpoints.  Coarse availability is public — it is cheap and safe to
// serve to waiting sessions — while the detailed seat map and every
// reservation mutation require an admitted session.
func RegisterInventory(e *echo.Echo, ev *handler.EventHandler, a *handler.AvailabilityHandler, r *handler.ReservationHandler, waitingRoom *service.WaitingRoomService) {
    e.GET("/v1/events/:id", ev.GetEvent)
    e.GET("/v1/events/:id/availability", a.GetAvailability)

    admitted := e.Group("/v1/events/:id")
    admitted.Use(middleware.RequireActiveSession(waitingRoom))
    admitted.GET("/sections/:section/seats", a.GetSectionSeats)
    admitted.POST("/reservations", r.Reserve)
    admitted.DELETE("/reservations", r.Release)

    // The current-reservation lookup is keyed by session alone; checkout
    // reads it after admission lapsed, so it is not gated.
    e.GET("/v1/reservations/current", r.GetCurrent)
}

// RegisterInternal registers the operator surface under /v1/internal.
// Network policy, not application auth, restricts access to these.
func RegisterInternal(e *echo.Echo, adm *handler.AdminHandler) {
    g := e.Group("/v1/internal")
    g.POST("/events/:id/processor/start", adm.StartProcessor)
    g.POST("/events/:id/processor/stop", adm.StopProcessor)
    g.POST("/cleanup", adm.Cleanup)
}
