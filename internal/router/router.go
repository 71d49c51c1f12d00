package router // package router defines how HTTP routes are registered for the API

import (
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/handler"
    "github.com/iliyamo/sports-class-booking/internal/middleware"
)

// Deps is everything the routes need, built once in main.
type Deps struct {
    JWTSecret string
    Roles     middleware.RoleStore
    DB        handler.Pinger
    Cache     *middleware.ResponseCache
    RateLimit echo.MiddlewareFunc

    Auth         *handler.AuthHandler
    Users        *handler.UserHandler
    Classes      *handler.ClassHandler
    Reservations *handler.ReservationHandler
    Payments     *handler.PaymentHandler
}

// guards are the per-route middleware chains.  Routes list them
// explicitly instead of sharing groups so two routes with the same prefix
// never inherit each other's guards.
type guards struct {
    auth       echo.MiddlewareFunc
    admin      echo.MiddlewareFunc
    instructor echo.MiddlewareFunc
    student    echo.MiddlewareFunc
    self       echo.MiddlewareFunc // :email path or ?email= query must be the caller
    limit      echo.MiddlewareFunc
}

func newGuards(d Deps) guards {
    limit := d.RateLimit
    if limit == nil {
        limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return guards{
        auth:       middleware.JWTAuth(d.JWTSecret),
        admin:      middleware.RequireRole(d.Roles, roleAdmin),
        instructor: middleware.RequireRole(d.Roles, roleInstructor),
        student:    middleware.RequireRole(d.Roles, roleStudent),
        self:       middleware.RequireSelf("email"),
        limit:      limit,
    }
}

// Register wires every route.  Guards run left to right and stop at the
// first rejection, so handlers only ever see authorised requests.
func Register(e *echo.Echo, d Deps) {
    g := newGuards(d)

    e.GET("/healthz", handler.Health(d.DB))
    e.POST("/jwt", d.Auth.Token, g.limit)

    registerUsers(e, d.Users, g)
    registerClasses(e, d.Classes, d.Cache, g)
    registerBooking(e, d.Reservations, d.Payments, g)
}

func lower(s string) string { return strings.ToLower(s) }
