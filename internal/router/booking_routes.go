package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/handler"
)

// registerBooking maps the student workflow: select a class, open a
// charge intent, settle, and read back selections and payments.
func registerBooking(e *echo.Echo, r *handler.ReservationHandler, p *handler.PaymentHandler, g guards) {
    e.POST("/selectedClass", r.Select, g.auth, g.limit, g.student)
    e.GET("/selectedClass", r.List, g.auth, g.self)
    e.DELETE("/selectedClass/:id", r.Cancel, g.auth)

    e.POST("/create-payment-intent", p.CreateIntent, g.auth, g.limit, g.student)
    e.POST("/payments", p.Settle, g.auth, g.limit, g.student)
    e.GET("/payments", p.History, g.auth, g.self)
}
