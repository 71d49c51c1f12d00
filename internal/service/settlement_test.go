package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-class-booking/internal/model"
	"github.com/iliyamo/sports-class-booking/internal/payment"
	"github.com/iliyamo/sports-class-booking/internal/repository"
)

type settleFixture struct {
	store   *memStore
	gateway *payment.Fake
	events  *recordingPublisher
	res     *Reservations
	settle  *Settlement
}

func newSettleFixture() *settleFixture {
	s := newMemStore()
	gw := payment.NewFake()
	pub := &recordingPublisher{}
	return &settleFixture{
		store:   s,
		gateway: gw,
		events:  pub,
		res:     newReservations(s),
		settle:  NewSettlement(memReservations{s}, memPayments{s}, s, gw, pub, "USD", quietLogger()),
	}
}

// reserve selects classID for email and opens an intent for it.
func (f *settleFixture) reserve(t *testing.T, email string, classID uint64) (model.Reservation, payment.ChargeIntent) {
	t.Helper()
	ctx := context.Background()
	res, err := f.res.Select(ctx, email, classID)
	require.NoError(t, err)
	intent, err := f.settle.CreateIntent(ctx, email, res.ID)
	require.NoError(t, err)
	require.Equal(t, res.PriceCents, intent.AmountMinor)
	return res, intent
}

func TestSettleHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(2, 4200, model.ClassApproved)
	res, intent := f.reserve(t, "stu@example.com", classID)

	out, err := f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: res.ID, TransactionID: intent.ID})
	require.NoError(t, err)
	assert.False(t, out.Replayed)
	assert.Equal(t, int64(4200), out.Payment.AmountCents)
	assert.Equal(t, "usd", out.Payment.Currency)
	assert.Equal(t, res.ID, out.Payment.ReservationID)
	assert.Equal(t, classID, out.Payment.ClassID)

	c := f.store.class(classID)
	assert.Equal(t, uint32(1), c.AvailableSeats)
	assert.Equal(t, uint32(1), c.EnrolledCount)
	assert.True(t, c.Balanced())
	assert.False(t, f.store.hasReservation(res.ID))
	assert.True(t, f.gateway.Captured(intent.ID))
	assert.Equal(t, 1, f.events.count())

	history, err := f.settle.History(ctx, "stu@example.com", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, out.Payment.ID, history[0].ID)
}

func TestSettleReplayReturnsSameRecord(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(5, 1000, model.ClassApproved)
	res, intent := f.reserve(t, "stu@example.com", classID)
	req := SettleRequest{Email: "stu@example.com", ReservationID: res.ID, TransactionID: intent.ID}

	first, err := f.settle.Settle(ctx, req)
	require.NoError(t, err)
	second, err := f.settle.Settle(ctx, req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, 1, f.store.paymentCount())
	assert.Equal(t, uint32(4), f.store.class(classID).AvailableSeats)
	assert.Equal(t, 1, f.events.count())

	// replay by someone else does not leak the record
	_, err = f.settle.Settle(ctx, SettleRequest{Email: "other@example.com", ReservationID: res.ID, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSettleLastSeatHasOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(1, 1500, model.ClassApproved)

	const n = 8
	reqs := make([]SettleRequest, n)
	for i := range reqs {
		email := string(rune('a'+i)) + "@example.com"
		res, intent := f.reserve(t, email, classID)
		reqs[i] = SettleRequest{Email: email, ReservationID: res.ID, TransactionID: intent.ID}
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.settle.Settle(ctx, reqs[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		if err == nil {
			wins++
			assert.True(t, f.gateway.Captured(reqs[i].TransactionID))
			continue
		}
		assert.ErrorIs(t, err, ErrSoldOut)
		assert.True(t, f.gateway.Released(reqs[i].TransactionID), "loser's authorisation must be voided")
		assert.True(t, f.store.hasReservation(reqs[i].ReservationID))
	}
	assert.Equal(t, 1, wins)
	c := f.store.class(classID)
	assert.Equal(t, uint32(0), c.AvailableSeats)
	assert.Equal(t, uint32(1), c.EnrolledCount)
	assert.Equal(t, 1, f.store.paymentCount())
}

func TestSettleDeclinedLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(2, 1000, model.ClassApproved)
	res, intent := f.reserve(t, "stu@example.com", classID)

	f.gateway.SetDecline(true)
	_, err := f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: res.ID, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	assert.Equal(t, uint32(2), f.store.class(classID).AvailableSeats)
	assert.True(t, f.store.hasReservation(res.ID))
	assert.Zero(t, f.store.paymentCount())
	assert.Zero(t, f.events.count())
}

func TestSettleWrongAmountIsDeclined(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(2, 1000, model.ClassApproved)
	res, _ := f.reserve(t, "stu@example.com", classID)

	cheap, err := f.gateway.CreateChargeIntent(ctx, 1, "usd")
	require.NoError(t, err)
	_, err = f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: res.ID, TransactionID: cheap.ID})
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.True(t, f.store.hasReservation(res.ID))
}

func TestSettleCaptureFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(2, 1000, model.ClassApproved)
	res, intent := f.reserve(t, "stu@example.com", classID)

	f.gateway.SetFailCapture(true)
	_, err := f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: res.ID, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	assert.Equal(t, uint32(2), f.store.class(classID).AvailableSeats)
	assert.True(t, f.store.hasReservation(res.ID))
	assert.Zero(t, f.store.paymentCount())
	assert.True(t, f.gateway.Released(intent.ID))
}

func TestSettleOwnershipAndMissingReservation(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(2, 1000, model.ClassApproved)
	res, intent := f.reserve(t, "stu@example.com", classID)

	_, err := f.settle.Settle(ctx, SettleRequest{Email: "thief@example.com", ReservationID: res.ID, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.False(t, f.gateway.Captured(intent.ID))

	_, err = f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: 4040, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: res.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.settle.CreateIntent(ctx, "thief@example.com", res.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, uint32(2), f.store.class(classID).AvailableSeats)
}

type failingSettleStore struct{ err error }

func (s failingSettleStore) SettleTx(ctx context.Context, _ uint64, _ *model.PaymentRecord, beforeCommit func(context.Context) error) error {
	return s.err
}

func TestSettleStoreFailureReleasesAuthorisation(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(2, 1000, model.ClassApproved)
	res, intent := f.reserve(t, "stu@example.com", classID)

	s := NewSettlement(memReservations{f.store}, memPayments{f.store}, failingSettleStore{errors.New("connection reset")}, f.gateway, nil, "usd", quietLogger())
	_, err := s.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: res.ID, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, f.gateway.Released(intent.ID))
}

func TestSettleRejectsIntentUsedForAnotherReservation(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classA := f.store.addClass(3, 1000, model.ClassApproved)
	classB := f.store.addClass(3, 1000, model.ClassApproved)

	resA, intent := f.reserve(t, "stu@example.com", classA)
	_, err := f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: resA.ID, TransactionID: intent.ID})
	require.NoError(t, err)

	resB, err := f.res.Select(ctx, "stu@example.com", classB)
	require.NoError(t, err)
	_, err = f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: resB.ID, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	assert.Equal(t, 1, f.store.paymentCount())
	assert.Equal(t, uint32(0), f.store.class(classB).EnrolledCount)
	assert.True(t, f.store.hasReservation(resB.ID))
	assert.True(t, f.gateway.Captured(intent.ID), "the charge still pays for the first enrollment")
}

func TestSettleFailedReuseDoesNotRefundEarlierEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classA := f.store.addClass(3, 1000, model.ClassApproved)
	classB := f.store.addClass(1, 1000, model.ClassApproved)

	resA, intent := f.reserve(t, "stu@example.com", classA)
	_, err := f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: resA.ID, TransactionID: intent.ID})
	require.NoError(t, err)

	resB, err := f.res.Select(ctx, "stu@example.com", classB)
	require.NoError(t, err)
	otherRes, otherIntent := f.reserve(t, "other@example.com", classB)
	_, err = f.settle.Settle(ctx, SettleRequest{Email: "other@example.com", ReservationID: otherRes.ID, TransactionID: otherIntent.ID})
	require.NoError(t, err)

	_, err = f.settle.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: resB.ID, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.False(t, f.gateway.Released(intent.ID))
	assert.True(t, f.gateway.Captured(intent.ID))
	assert.Equal(t, uint32(1), f.store.class(classA).EnrolledCount)
}

func TestSettleSameIntentConcurrentlyPaysOnce(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classA := f.store.addClass(3, 1000, model.ClassApproved)
	classB := f.store.addClass(3, 1000, model.ClassApproved)

	resA, intent := f.reserve(t, "stu@example.com", classA)
	resB, err := f.res.Select(ctx, "stu@example.com", classB)
	require.NoError(t, err)

	reqs := []SettleRequest{
		{Email: "stu@example.com", ReservationID: resA.ID, TransactionID: intent.ID},
		{Email: "stu@example.com", ReservationID: resB.ID, TransactionID: intent.ID},
	}
	errs := make([]error, len(reqs))
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.settle.Settle(ctx, reqs[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrPaymentDeclined)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, f.store.paymentCount())
	assert.Equal(t, uint32(1), f.store.class(classA).EnrolledCount+f.store.class(classB).EnrolledCount)
	assert.True(t, f.gateway.Captured(intent.ID))
	assert.False(t, f.gateway.Released(intent.ID))
}

func TestSettleIntentClaimedInsideTransactionIsNotReleased(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	classID := f.store.addClass(2, 1000, model.ClassApproved)
	res, intent := f.reserve(t, "stu@example.com", classID)

	s := NewSettlement(memReservations{f.store}, memPayments{f.store}, failingSettleStore{repository.ErrIntentUsed}, f.gateway, nil, "usd", quietLogger())
	_, err := s.Settle(ctx, SettleRequest{Email: "stu@example.com", ReservationID: res.ID, TransactionID: intent.ID})
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.False(t, f.gateway.Released(intent.ID))
}

func TestSelectPaySettleScenario(t *testing.T) {
	ctx := context.Background()
	f := newSettleFixture()
	price, err := model.ToMinorUnits(decimal.RequireFromString("50"))
	require.NoError(t, err)
	classID := f.store.addClass(10, price, model.ClassApproved)

	res, intent := f.reserve(t, "s@example.com", classID)
	assert.Equal(t, int64(5000), intent.AmountMinor)

	out, err := f.settle.Settle(ctx, SettleRequest{Email: "s@example.com", ReservationID: res.ID, TransactionID: intent.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), out.Payment.AmountCents)

	c := f.store.class(classID)
	assert.Equal(t, uint32(9), c.AvailableSeats)
	assert.Equal(t, uint32(1), c.EnrolledCount)
	assert.True(t, c.Balanced())

	list, err := f.res.ListFor(ctx, "s@example.com")
	require.NoError(t, err)
	assert.Empty(t, list)

	// paid students cannot select the class again
	_, err = f.res.Select(ctx, "s@example.com", classID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}
