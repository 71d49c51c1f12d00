package middleware

// identity.go holds the context keys the guards share and the JSON bodies
// they reply with.  JWTAuth stores the verified email; RequireRole stores the
// resolved role.  Handlers read them back through Email and Role.

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/model"
)

const (
    ctxEmail = "email"
    ctxRole  = "role"
)

// Email returns the verified email of the caller, or "" when the request
// did not pass JWTAuth.
func Email(c echo.Context) string {
    if s, ok := c.Get(ctxEmail).(string); ok {
        return s
    }
    return ""
}

// Role returns the caller's role as resolved by RequireRole.  Routes that
// are not role-guarded report RoleUnassigned.
func Role(c echo.Context) model.Role {
    if r, ok := c.Get(ctxRole).(model.Role); ok {
        return r
    }
    return model.RoleUnassigned
}

// rateIdentity is the caller identity used for rate-limit keys.
func rateIdentity(c echo.Context) string {
    if e := Email(c); e != "" {
        return e
    }
    return "guest"
}

func unauthorized(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": true, "message": "unauthorized access"})
}

func forbidden(c echo.Context) error {
    return c.JSON(http.StatusForbidden, echo.Map{"error": true, "message": "forbidden access"})
}
