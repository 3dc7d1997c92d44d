// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
)

// Handlers bundles the HTTP handlers the router registers.
type Handlers struct {
	Events   *handler.EventHandler
	Holds    *handler.HoldHandler
	Bookings *handler.BookingHandler
}

// Register mounts all routes on the provided Echo instance.
//
// Three surfaces are exposed:
//
//   - unauthenticated: the health check and the public seat map, the
//     latter behind the short-TTL Redis response cache;
//   - authenticated (ADMIN or CUSTOMER): hold and booking operations,
//     with the token-bucket rate limiter on every mutation so request
//     storms over hot events are shed before they reach the database;
//   - admin only: event creation.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/events/:id/seats", h.Events.GetSeatMap, cache)

	auth := middleware.JWTAuth(cfg.JWTSecret)
	limit := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	admin := e.Group("/v1", auth, middleware.RequireRole("ADMIN"))
	admin.POST("/events", h.Events.CreateEvent, limit)

	v1 := e.Group("/v1", auth, middleware.RequireRole("ADMIN", "CUSTOMER"))

	v1.POST("/events/:id/hold", h.Holds.HoldSeats, limit)
	v1.POST("/events/:id/release", h.Holds.ReleaseSeats, limit)
	v1.POST("/events/:id/hold/extend", h.Holds.ExtendHold, limit)
	v1.GET("/holds", h.Holds.GetHoldStatus)

	v1.POST("/events/:id/bookings", h.Bookings.CreateBooking, limit)
	v1.POST("/bookings/:id/confirm", h.Bookings.ConfirmBooking, limit)
	v1.POST("/bookings/:id/cancel", h.Bookings.CancelBooking, limit)
	v1.GET("/bookings/:id", h.Bookings.GetBooking)
	v1.GET("/bookings", h.Bookings.ListBookings)
}
