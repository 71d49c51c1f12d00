// Package service holds the booking workflow: class selection
// (reservations) and payment settlement.  Services depend on narrow store
// interfaces implemented by package repository.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sports-class-booking/internal/model"
	"github.com/iliyamo/sports-class-booking/internal/repository"
)

// ReservationStore persists reservations.  Create must return
// repository.ErrConflict when a live reservation already exists for the
// same student and class, and repository.ErrAlreadyPaid when the student
// has a payment record for the class.  Both are enforced by the store and
// not only by the lookups in Select.
type ReservationStore interface {
	Find(ctx context.Context, email string, classID uint64) (model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	Create(ctx context.Context, res *model.Reservation) error
	Delete(ctx context.Context, id uint64) (bool, error)
	ListByStudent(ctx context.Context, email string) ([]model.Reservation, error)
}

// ClassStore reads class offerings.
type ClassStore interface {
	GetByID(ctx context.Context, id uint64) (model.ClassOffering, error)
}

// PaymentStore reads payment records.
type PaymentStore interface {
	GetByReservation(ctx context.Context, reservationID uint64) (model.PaymentRecord, error)
	GetByTransaction(ctx context.Context, transactionID string) (model.PaymentRecord, error)
	ExistsForClass(ctx context.Context, email string, classID uint64) (bool, error)
	ListByStudent(ctx context.Context, email string, limit int) ([]model.PaymentRecord, error)
}

// Reservations manages students' selected classes.
type Reservations struct {
	store    ReservationStore
	classes  ClassStore
	payments PaymentStore
	log      echo.Logger
}

// NewReservations wires the reservation manager.
func NewReservations(store ReservationStore, classes ClassStore, payments PaymentStore, logger echo.Logger) *Reservations {
	if store == nil || classes == nil || payments == nil || logger == nil {
		panic("nil dependency passed to NewReservations")
	}
	return &Reservations{store: store, classes: classes, payments: payments, log: logger}
}

// Select reserves a seat of classID for the student.  The price is copied
// from the class so the client cannot choose what it pays.  It fails with
// ErrAlreadySelected if a live reservation exists, ErrAlreadyEnrolled if
// the student already paid for the class, ErrNotFound if the class does
// not exist or is not approved, and ErrSoldOut if no seat is left.  The
// seat itself is only taken at settlement.
func (m *Reservations) Select(ctx context.Context, email string, classID uint64) (res model.Reservation, err error) {
	defer func() { reservationsTotal.WithLabelValues(outcomeLabel(err, "created")).Inc() }()

	email = model.NormalizeEmail(email)
	if email == "" || classID == 0 {
		return model.Reservation{}, fmt.Errorf("%w: email and class id are required", ErrInvalidInput)
	}
	class, err := m.classes.GetByID(ctx, classID)
	if err != nil {
		return model.Reservation{}, storeErr(err)
	}
	if class.Status != model.ClassApproved {
		return model.Reservation{}, ErrNotFound
	}
	if class.AvailableSeats == 0 {
		return model.Reservation{}, ErrSoldOut
	}
	paid, err := m.payments.ExistsForClass(ctx, email, classID)
	if err != nil {
		return model.Reservation{}, storeErr(err)
	}
	if paid {
		return model.Reservation{}, ErrAlreadyEnrolled
	}

	// optimistic check; the unique index is what actually enforces it
	if _, err := m.store.Find(ctx, email, classID); err == nil {
		return model.Reservation{}, ErrAlreadySelected
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Reservation{}, storeErr(err)
	}

	res = model.Reservation{StudentEmail: email, ClassID: classID, ClassName: class.Name, PriceCents: class.PriceCents}
	if err := m.store.Create(ctx, &res); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return model.Reservation{}, ErrAlreadySelected
		case errors.Is(err, repository.ErrAlreadyPaid):
			return model.Reservation{}, ErrAlreadyEnrolled
		}
		return model.Reservation{}, storeErr(err)
	}
	m.log.Infof("reservation %d created: email=%s class=%d", res.ID, email, classID)
	return res, nil
}

// Cancel removes the caller's reservation.  Cancelling a reservation that
// does not exist (never did, already cancelled, or already settled) is a
// successful no-op.  Cancelling someone else's reservation is ErrForbidden.
func (m *Reservations) Cancel(ctx context.Context, email string, reservationID uint64) error {
	res, err := m.store.GetByID(ctx, reservationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeErr(err)
	}
	if res.StudentEmail != model.NormalizeEmail(email) {
		return ErrForbidden
	}
	if _, err := m.store.Delete(ctx, reservationID); err != nil {
		return storeErr(err)
	}
	m.log.Infof("reservation %d cancelled by %s", reservationID, res.StudentEmail)
	return nil
}

// ListFor returns the student's live reservations, oldest first.
func (m *Reservations) ListFor(ctx context.Context, email string) ([]model.Reservation, error) {
	email = model.NormalizeEmail(email)
	return retryRead(ctx, func(ctx context.Context) ([]model.Reservation, error) {
		return m.store.ListByStudent(ctx, email)
	})
}
