package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/middleware"
    "github.com/iliyamo/sports-class-booking/internal/repository"
    "github.com/iliyamo/sports-class-booking/internal/service"
)

// fail writes err as {"error":true,"message":...} with the status its
// sentinel maps to.  Unclassified errors are store failures and are
// logged, never shown to the client.
func fail(c echo.Context, err error) error {
    status, msg := http.StatusServiceUnavailable, "service unavailable"
    switch {
    case errors.Is(err, service.ErrInvalidInput):
        status, msg = http.StatusBadRequest, err.Error()
    case errors.Is(err, service.ErrUnauthorized):
        status, msg = http.StatusUnauthorized, service.ErrUnauthorized.Error()
    case errors.Is(err, service.ErrForbidden), errors.Is(err, repository.ErrForbidden):
        status, msg = http.StatusForbidden, service.ErrForbidden.Error()
    case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
        status, msg = http.StatusNotFound, "not found"
    case errors.Is(err, service.ErrAlreadySelected),
        errors.Is(err, service.ErrAlreadyEnrolled),
        errors.Is(err, service.ErrSoldOut):
        status, msg = http.StatusConflict, rootMessage(err)
    case errors.Is(err, repository.ErrConflict):
        status, msg = http.StatusConflict, "seat count below enrolled students"
    case errors.Is(err, repository.ErrEmailExists):
        status, msg = http.StatusConflict, "email already exists"
    case errors.Is(err, service.ErrPaymentDeclined):
        status, msg = http.StatusPaymentRequired, service.ErrPaymentDeclined.Error()
    case errors.Is(err, context.DeadlineExceeded):
        status, msg = http.StatusGatewayTimeout, "request timed out"
    }
    if status >= http.StatusInternalServerError {
        c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
    }
    return c.JSON(status, echo.Map{"error": true, "message": msg})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": true, "message": msg})
}

// rootMessage returns the text of the first service sentinel err wraps.
func rootMessage(err error) string {
    for _, s := range []error{service.ErrAlreadySelected, service.ErrAlreadyEnrolled, service.ErrSoldOut} {
        if errors.Is(err, s) {
            return s.Error()
        }
    }
    return err.Error()
}

// withTimeout derives the per-request context used for store and gateway
// calls.
func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
    if d <= 0 {
        d = 10 * time.Second
    }
    return context.WithTimeout(c.Request().Context(), d)
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// callerEmail is the email JWTAuth verified for this request.
func callerEmail(c echo.Context) string { return middleware.Email(c) }
