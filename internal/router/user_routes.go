package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/handler"
    "github.com/iliyamo/sports-class-booking/internal/model"
)

const (
    roleAdmin      = model.RoleAdmin
    roleInstructor = model.RoleInstructor
    roleStudent    = model.RoleStudent
)

// registerUsers maps account endpoints.  Registration is open; listing,
// role changes and deletion are admin only; role probes answer only for
// the caller's own email.
func registerUsers(e *echo.Echo, u *handler.UserHandler, g guards) {
    e.POST("/users", u.Register, g.limit)
    e.GET("/users", u.List, g.auth, g.admin)
    e.DELETE("/users/:id", u.Delete, g.auth, g.admin)

    e.GET("/users/admin/:email", u.IsAdmin, g.auth, g.self)
    e.GET("/users/instructor/:email", u.IsInstructor, g.auth, g.self)

    // lower-case role segments are static routes; anything else falls
    // through to the :role parameter
    for _, r := range []model.Role{roleStudent, roleInstructor, roleAdmin} {
        e.PATCH("/users/"+lower(r.String())+"/:id", u.SetRoleTo(r), g.auth, g.admin)
    }
    e.PATCH("/users/:role/:id", u.SetRole, g.auth, g.admin)
}
