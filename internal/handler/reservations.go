package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/model"
)

// ReservationService is implemented by *service.Reservations.
type ReservationService interface {
    Select(ctx context.Context, email string, classID uint64) (model.Reservation, error)
    Cancel(ctx context.Context, email string, reservationID uint64) error
    ListFor(ctx context.Context, email string) ([]model.Reservation, error)
}

// ReservationHandler serves a student's selected classes.
type ReservationHandler struct {
    Svc     ReservationService
    Timeout time.Duration
}

func NewReservationHandler(svc ReservationService, timeout time.Duration) *ReservationHandler {
    if svc == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{Svc: svc, Timeout: timeout}
}

type reservationView struct {
    model.Reservation
    Price string `json:"price"`
}

func reservationOf(r model.Reservation) reservationView {
    return reservationView{Reservation: r, Price: model.FromMinorUnits(r.PriceCents).StringFixed(2)}
}

// Select handles POST /selectedClass {"class_id": N} (student).  The
// price is looked up server-side.
func (h *ReservationHandler) Select(c echo.Context) error {
    var body struct {
        ClassID uint64 `json:"class_id"`
    }
    if err := c.Bind(&body); err != nil || body.ClassID == 0 {
        return badRequest(c, "class_id required")
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    res, err := h.Svc.Select(ctx, callerEmail(c), body.ClassID)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, reservationOf(res))
}

// List handles GET /selectedClass?email= (self).
func (h *ReservationHandler) List(c echo.Context) error {
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    list, err := h.Svc.ListFor(ctx, callerEmail(c))
    if err != nil {
        return fail(c, err)
    }
    out := make([]reservationView, 0, len(list))
    for _, r := range list {
        out = append(out, reservationOf(r))
    }
    return c.JSON(http.StatusOK, out)
}

// Cancel handles DELETE /selectedClass/:id.  Absent reservations are not an
// error.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    if err := h.Svc.Cancel(ctx, callerEmail(c), id); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
