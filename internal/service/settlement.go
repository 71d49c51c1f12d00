package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sports-class-booking/internal/model"
	"github.com/iliyamo/sports-class-booking/internal/payment"
	"github.com/iliyamo/sports-class-booking/internal/queue"
	"github.com/iliyamo/sports-class-booking/internal/repository"
)

// SettlementStore runs the transactional half of a settlement.  See
// repository.SettlementRepo.SettleTx for the contract.
type SettlementStore interface {
	SettleTx(ctx context.Context, reservationID uint64, p *model.PaymentRecord, beforeCommit func(context.Context) error) error
}

// EventPublisher receives settled enrollments.  Publishing is best effort.
type EventPublisher interface {
	PublishEnrollmentSettled(ctx context.Context, ev queue.EnrollmentSettledEvent) error
}

// compensationTimeout bounds gateway calls made after the request context
// may already be gone.
const compensationTimeout = 10 * time.Second

// SettleRequest asks to settle one reservation with a charge intent the
// student already confirmed.
type SettleRequest struct {
	Email         string
	ReservationID uint64
	TransactionID string
}

// SettleResult is the payment record produced (or found) for a request.
// Replayed is true when the reservation had already been settled.
type SettleResult struct {
	Payment  model.PaymentRecord
	Replayed bool
}

// Settlement is the payment-settlement saga.  It turns a reservation with
// an authorised charge into a payment record and an enrollment:
//
//	probe → verify owner → intent unused → Authorize → [decrement, record, delete, Capture] → commit
//
// The bracketed steps are one database transaction, so the seat is taken
// before any money is captured and a crash leaves either all or none of
// them applied.  Replays are detected by the payment-record probe.  A
// charge intent pays for one reservation only; an intent already cited by
// another payment record is declined and never released, since releasing
// it would refund that other enrollment.
type Settlement struct {
	reservations ReservationStore
	payments     PaymentStore
	store        SettlementStore
	gateway      payment.Gateway
	events       EventPublisher
	currency     string
	log          echo.Logger
}

// NewSettlement wires the coordinator.  events may be nil.
func NewSettlement(reservations ReservationStore, payments PaymentStore, store SettlementStore, gateway payment.Gateway, events EventPublisher, currency string, logger echo.Logger) *Settlement {
	if reservations == nil || payments == nil || store == nil || gateway == nil || logger == nil {
		panic("nil dependency passed to NewSettlement")
	}
	if currency == "" {
		currency = "usd"
	}
	return &Settlement{
		reservations: reservations,
		payments:     payments,
		store:        store,
		gateway:      gateway,
		events:       events,
		currency:     strings.ToLower(currency),
		log:          logger,
	}
}

// CreateIntent opens a charge intent for the price of the caller's
// reservation.  The amount is always derived from the stored reservation.
func (s *Settlement) CreateIntent(ctx context.Context, email string, reservationID uint64) (payment.ChargeIntent, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return payment.ChargeIntent{}, storeErr(err)
	}
	if res.StudentEmail != model.NormalizeEmail(email) {
		return payment.ChargeIntent{}, ErrForbidden
	}
	intent, err := s.gateway.CreateChargeIntent(ctx, res.PriceCents, s.currency)
	if err != nil {
		return payment.ChargeIntent{}, fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
	}
	return intent, nil
}

// Settle runs the saga for req.  On success the returned record holds the
// reservation's price in minor units.  Errors: ErrInvalidInput,
// ErrForbidden, ErrNotFound, ErrPaymentDeclined, ErrSoldOut,
// ErrStoreUnavailable.  When anything fails after the gateway authorised
// the charge, the authorisation is released.
func (s *Settlement) Settle(ctx context.Context, req SettleRequest) (result SettleResult, err error) {
	defer func() {
		label := outcomeLabel(err, "settled")
		if err == nil && result.Replayed {
			label = "replayed"
		}
		settlementsTotal.WithLabelValues(label).Inc()
	}()

	req.Email = model.NormalizeEmail(req.Email)
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.ReservationID == 0 || req.TransactionID == "" {
		return SettleResult{}, fmt.Errorf("%w: reservation id and transaction id are required", ErrInvalidInput)
	}

	prior, err := s.payments.GetByReservation(ctx, req.ReservationID)
	switch {
	case err == nil:
		return s.replayed(req, prior)
	case !errors.Is(err, repository.ErrNotFound):
		return SettleResult{}, storeErr(err)
	}

	res, err := s.reservations.GetByID(ctx, req.ReservationID)
	if err != nil {
		return SettleResult{}, storeErr(err)
	}
	if res.StudentEmail != req.Email {
		return SettleResult{}, ErrForbidden
	}

	used, err := s.payments.GetByTransaction(ctx, req.TransactionID)
	switch {
	case err == nil && used.ReservationID == req.ReservationID:
		return s.replayed(req, used)
	case err == nil:
		return SettleResult{}, intentUsed(req.TransactionID)
	case !errors.Is(err, repository.ErrNotFound):
		return SettleResult{}, storeErr(err)
	}

	// nothing internal is touched until the gateway vouches for the charge
	if err := s.gateway.Authorize(ctx, req.TransactionID, res.PriceCents); err != nil {
		return SettleResult{}, fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
	}

	rec := &model.PaymentRecord{
		AmountCents:   res.PriceCents,
		Currency:      s.currency,
		TransactionID: req.TransactionID,
	}
	err = s.store.SettleTx(ctx, res.ID, rec, func(ctx context.Context) error {
		if err := s.gateway.Capture(ctx, req.TransactionID); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrAlreadySettled):
		// a concurrent request won; void our duplicate authorisation
		if rec.TransactionID != req.TransactionID {
			s.release(ctx, req.TransactionID)
		}
		return s.replayed(req, *rec)
	case errors.Is(err, repository.ErrIntentUsed):
		// another reservation committed with this intent first; it owns the charge
		return SettleResult{}, intentUsed(req.TransactionID)
	case errors.Is(err, ErrPaymentDeclined):
		s.release(ctx, req.TransactionID)
		return SettleResult{}, err
	case errors.Is(err, repository.ErrCommitFailed):
		// captured but not recorded: refund
		s.release(ctx, req.TransactionID)
		return SettleResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		s.release(ctx, req.TransactionID)
		return SettleResult{}, storeErr(err)
	}

	rec.ClassName = res.ClassName
	s.log.Infof("reservation %d settled: payment=%d email=%s class=%d amount=%d",
		res.ID, rec.ID, rec.StudentEmail, rec.ClassID, rec.AmountCents)
	s.publish(ctx, *rec)
	return SettleResult{Payment: *rec}, nil
}

// History returns the student's payment records, newest first.
func (s *Settlement) History(ctx context.Context, email string, limit int) ([]model.PaymentRecord, error) {
	email = model.NormalizeEmail(email)
	return retryRead(ctx, func(ctx context.Context) ([]model.PaymentRecord, error) {
		return s.payments.ListByStudent(ctx, email, limit)
	})
}

func (s *Settlement) replayed(req SettleRequest, prior model.PaymentRecord) (SettleResult, error) {
	if prior.StudentEmail != req.Email {
		return SettleResult{}, ErrForbidden
	}
	return SettleResult{Payment: prior, Replayed: true}, nil
}

func intentUsed(intentID string) error {
	return fmt.Errorf("%w: charge %s already paid for another reservation", ErrPaymentDeclined, intentID)
}

func (s *Settlement) release(ctx context.Context, intentID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := s.gateway.Release(ctx, intentID); err != nil {
		s.log.Errorf("release of charge %s failed, manual follow-up needed: %v", intentID, err)
	}
}

func (s *Settlement) publish(ctx context.Context, p model.PaymentRecord) {
	if s.events == nil {
		return
	}
	ev := queue.EnrollmentSettledEvent{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		StudentEmail:  p.StudentEmail,
		ClassID:       p.ClassID,
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		TransactionID: p.TransactionID,
		SettledAt:     p.CreatedAt.UTC().Format(time.RFC3339),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.PublishEnrollmentSettled(ctx, ev); err != nil {
		s.log.Warnf("publish enrollment %d failed: %v", p.ID, err)
	}
}
