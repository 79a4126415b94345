package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightbooking/internal/auth"
	"github.com/dharmasatrya/flightbooking/internal/ratelimit"
)

type Handlers struct {
	Search   *SearchHandler
	Cart     *CartHandler
	Bookings *BookingHandler
	Issuer   *auth.Issuer
	Throttle *ratelimit.KeyedLimiter
}

// Register mounts every route on e under /api/v1.
func Register(e *echo.Echo, h Handlers) {
	api := e.Group("/api/v1", auth.Middleware(h.Issuer))

	flights := api.Group("/flights")
	if h.Throttle != nil {
		flights.Use(ratelimit.Middleware(h.Throttle))
	}
	flights.POST("/search", h.Search.StartSearch)
	flights.GET("/search/:id/results", h.Search.Results)

	api.POST("/cart/checkout", h.Cart.Checkout)
	cart := api.Group("/cart", auth.RequireUser)
	cart.GET("", h.Cart.List)
	cart.POST("", h.Cart.Add)
	cart.PATCH("/:id", h.Cart.Update)
	cart.DELETE("/:id", h.Cart.Delete)

	api.GET("/bookings/:id", h.Bookings.Get)
	api.GET("/bookings/:id/confirmation", h.Bookings.Confirmation)

	e.GET("/health", HealthHandler)
	api.GET("/health", HealthHandler)
}
