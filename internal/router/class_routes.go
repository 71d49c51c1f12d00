package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/handler"
    "github.com/iliyamo/sports-class-booking/internal/middleware"
)

// registerClasses maps class browsing (public, cached), instructor
// management and admin review.
func registerClasses(e *echo.Echo, h *handler.ClassHandler, cache *middleware.ResponseCache, g guards) {
    cached := cache.Middleware()
    e.GET("/classes", h.Approved, cached)
    e.GET("/classes/popular", h.Popular, cached)

    e.GET("/allClasses", h.All, g.auth, g.admin)
    e.PATCH("/classes/:status/:id", h.SetStatus, g.auth, g.admin)

    e.POST("/classes", h.Create, g.auth, g.instructor)
    e.GET("/classes/myClass", h.Mine, g.auth, g.instructor, g.self)
    e.PUT("/classes/:id", h.Update, g.auth, g.instructor)
}
