package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "strings" // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/sports-class-booking/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the verified email into the request context.  Handlers and
// the role guard read it via Email(c).  A missing header, a malformed
// header or any token the Token Service rejects ends the request with 401
// and the handler never runs.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            scheme, raw, ok := strings.Cut(auth, " ")
            if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
                return unauthorized(c)
            }

            claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
            if err != nil {
                c.Logger().Debugf("jwt rejected: %v", err)
                return unauthorized(c)
            }

            c.Set(ctxEmail, claims.Email)
            return next(c)
        }
    }
}
