package middleware

import (
    "net/url"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/model"
)

// RequireSelf rejects the request with 403 unless the email named by the
// path parameter, or failing that the query parameter, called name equals
// the authenticated caller's email.  It must run after JWTAuth.
func RequireSelf(name string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            caller := Email(c)
            if caller == "" {
                return unauthorized(c)
            }
            claimed := c.Param(name)
            if v, err := url.PathUnescape(claimed); err == nil {
                claimed = v
            }
            if claimed == "" {
                claimed = c.QueryParam(name)
            }
            if model.NormalizeEmail(claimed) != caller {
                return forbidden(c)
            }
            return next(c)
        }
    }
}
