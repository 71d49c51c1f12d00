package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/model"
    "github.com/iliyamo/sports-class-booking/internal/repository"
)

// RoleStore resolves the role of an account by email.  It returns
// repository.ErrNotFound for unknown accounts.
type RoleStore interface {
    RoleOf(ctx context.Context, email string) (model.Role, error)
}

// RequireRole returns a middleware that lets the request through only when
// the authenticated caller currently holds one of roles.  The role is read
// from the store on every request, so a demotion takes effect at once
// rather than when the token expires.  It must run after JWTAuth.
//
// Unknown accounts and role mismatches get 403; a failing store gets 503.
func RequireRole(store RoleStore, roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            email := Email(c)
            if email == "" {
                return unauthorized(c)
            }
            role, err := store.RoleOf(c.Request().Context(), email)
            if errors.Is(err, repository.ErrNotFound) {
                return forbidden(c)
            }
            if err != nil {
                c.Logger().Errorf("role lookup for %s: %v", email, err)
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": true, "message": "service unavailable"})
            }
            if !allowed[role] {
                return forbidden(c)
            }
            c.Set(ctxRole, role)
            return next(c)
        }
    }
}
