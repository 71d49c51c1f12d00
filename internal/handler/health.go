package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Pinger is implemented by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health reports liveness and whether the database answers.  Load
// balancers take anything but 200 as "out of rotation".
func Health(db Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            c.Logger().Warnf("health: database ping failed: %v", err)
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "database": "down"})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "up"})
    }
}
