package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/model"
    "github.com/iliyamo/sports-class-booking/internal/payment"
    "github.com/iliyamo/sports-class-booking/internal/service"
)

// SettlementService is implemented by *service.Settlement.
type SettlementService interface {
    CreateIntent(ctx context.Context, email string, reservationID uint64) (payment.ChargeIntent, error)
    Settle(ctx context.Context, req service.SettleRequest) (service.SettleResult, error)
    History(ctx context.Context, email string, limit int) ([]model.PaymentRecord, error)
}

// PaymentHandler serves charge intents, settlement and payment history.
type PaymentHandler struct {
    Svc     SettlementService
    Cache   Purger
    Timeout time.Duration
}

func NewPaymentHandler(svc SettlementService, cache Purger, timeout time.Duration) *PaymentHandler {
    if svc == nil {
        panic("nil service passed to NewPaymentHandler")
    }
    return &PaymentHandler{Svc: svc, Cache: cache, Timeout: timeout}
}

type paymentView struct {
    model.PaymentRecord
    Amount string `json:"amount"`
}

func paymentOf(p model.PaymentRecord) paymentView {
    return paymentView{PaymentRecord: p, Amount: model.FromMinorUnits(p.AmountCents).StringFixed(2)}
}

// CreateIntent handles POST /create-payment-intent {"reservation_id": N}.
// The amount is the reservation's stored price; the client only learns it.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
    var body struct {
        ReservationID uint64 `json:"reservation_id"`
    }
    if err := c.Bind(&body); err != nil || body.ReservationID == 0 {
        return badRequest(c, "reservation_id required")
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    intent, err := h.Svc.CreateIntent(ctx, callerEmail(c), body.ReservationID)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, intent)
}

type settleReq struct {
    ReservationID uint64 `json:"reservation_id"`
    TransactionID string `json:"transaction_id"`
}

// Settle handles POST /payments (student).  A fresh settlement answers 201;
// repeating the request for a settled reservation answers 200 with the
// original record.
func (h *PaymentHandler) Settle(c echo.Context) error {
    var req settleReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    req.TransactionID = strings.TrimSpace(req.TransactionID)
    if req.ReservationID == 0 || req.TransactionID == "" {
        return badRequest(c, "reservation_id and transaction_id required")
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    out, err := h.Svc.Settle(ctx, service.SettleRequest{
        Email:         callerEmail(c),
        ReservationID: req.ReservationID,
        TransactionID: req.TransactionID,
    })
    if err != nil {
        return fail(c, err)
    }
    if out.Replayed {
        return c.JSON(http.StatusOK, paymentOf(out.Payment))
    }
    if h.Cache != nil {
        // seat counts in cached listings are now stale
        if err := h.Cache.Purge(context.WithoutCancel(ctx)); err != nil {
            c.Logger().Warnf("cache purge: %v", err)
        }
    }
    return c.JSON(http.StatusCreated, paymentOf(out.Payment))
}

// History handles GET /payments?email=&limit= (self), newest first.
func (h *PaymentHandler) History(c echo.Context) error {
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    list, err := h.Svc.History(ctx, callerEmail(c), limit)
    if err != nil {
        return fail(c, err)
    }
    out := make([]paymentView, 0, len(list))
    for _, p := range list {
        out = append(out, paymentOf(p))
    }
    return c.JSON(http.StatusOK, out)
}
