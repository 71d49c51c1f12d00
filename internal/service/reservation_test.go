package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-class-booking/internal/model"
)

func newReservations(s *memStore) *Reservations {
	return NewReservations(memReservations{s}, s, memPayments{s}, quietLogger())
}

func TestSelectCopiesPriceAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	classID := s.addClass(3, 2500, model.ClassApproved)
	m := newReservations(s)

	res, err := m.Select(ctx, "Stu@Example.com", classID)
	require.NoError(t, err)
	assert.Equal(t, "stu@example.com", res.StudentEmail)
	assert.Equal(t, int64(2500), res.PriceCents)
	assert.NotZero(t, res.ID)

	_, err = m.Select(ctx, "stu@example.com", classID)
	assert.ErrorIs(t, err, ErrAlreadySelected)

	// selecting does not touch the ledger
	assert.Equal(t, uint32(3), s.class(classID).AvailableSeats)
}

func TestSelectRejectsUnavailableClasses(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	m := newReservations(s)

	pending := s.addClass(3, 1000, model.ClassPending)
	_, err := m.Select(ctx, "stu@example.com", pending)
	assert.ErrorIs(t, err, ErrNotFound)

	full := s.addClass(0, 1000, model.ClassApproved)
	_, err = m.Select(ctx, "stu@example.com", full)
	assert.ErrorIs(t, err, ErrSoldOut)

	_, err = m.Select(ctx, "stu@example.com", 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Select(ctx, "", pending)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSelectAfterPaymentIsAlreadyEnrolled(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	classID := s.addClass(3, 1000, model.ClassApproved)
	s.payments = append(s.payments, model.PaymentRecord{ID: 77, StudentEmail: "stu@example.com", ClassID: classID})

	_, err := newReservations(s).Select(ctx, "stu@example.com", classID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

// stalePayments misses a payment committed after the read, as a
// settlement racing with Select would.
type stalePayments struct{ memPayments }

func (stalePayments) ExistsForClass(context.Context, string, uint64) (bool, error) {
	return false, nil
}

func TestSelectRacingSettlementIsAlreadyEnrolled(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	classID := s.addClass(3, 1000, model.ClassApproved)
	s.payments = append(s.payments, model.PaymentRecord{ID: 77, StudentEmail: "stu@example.com", ClassID: classID})

	m := NewReservations(memReservations{s}, s, stalePayments{memPayments{s}}, quietLogger())
	_, err := m.Select(ctx, "stu@example.com", classID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	assert.Empty(t, s.reservations)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	classID := s.addClass(3, 1000, model.ClassApproved)
	m := newReservations(s)

	res, err := m.Select(ctx, "stu@example.com", classID)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Cancel(ctx, "other@example.com", res.ID), ErrForbidden)
	assert.True(t, s.hasReservation(res.ID))

	require.NoError(t, m.Cancel(ctx, "stu@example.com", res.ID))
	assert.False(t, s.hasReservation(res.ID))

	// second cancel and unknown ids are no-ops
	assert.NoError(t, m.Cancel(ctx, "stu@example.com", res.ID))
	assert.NoError(t, m.Cancel(ctx, "stu@example.com", 12345))
}

func TestListForRetriesStoreFailures(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	classID := s.addClass(3, 1000, model.ClassApproved)
	m := newReservations(s)
	_, err := m.Select(ctx, "stu@example.com", classID)
	require.NoError(t, err)

	s.readFailures = 2
	list, err := m.ListFor(ctx, "STU@example.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 3, s.readCalls)

	s.readCalls = 0
	s.readFailures = 5
	_, err = m.ListFor(ctx, "stu@example.com")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, readAttempts, s.readCalls)
}
