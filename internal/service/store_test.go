package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/sports-class-booking/internal/model"
	"github.com/iliyamo/sports-class-booking/internal/queue"
	"github.com/iliyamo/sports-class-booking/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  A single
// mutex serialises every call, which gives SettleTx the same all-or-nothing
// behaviour as the row lock plus conditional UPDATE in the real store.
type memStore struct {
	mu           sync.Mutex
	classes      map[uint64]*model.ClassOffering
	reservations map[uint64]model.Reservation
	payments     []model.PaymentRecord
	nextID       uint64
	readFailures int
	readCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		classes:      make(map[uint64]*model.ClassOffering),
		reservations: make(map[uint64]model.Reservation),
	}
}

func (s *memStore) id() uint64 { s.nextID++; return s.nextID }

func (s *memStore) addClass(seats uint32, price int64, status model.ClassStatus) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.classes[id] = &model.ClassOffering{
		ID: id, Name: "Class", PriceCents: price, TotalSeats: seats,
		AvailableSeats: seats, Status: status,
	}
	return id
}

func (s *memStore) class(id uint64) model.ClassOffering {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.classes[id]
}

func (s *memStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *memStore) hasReservation(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reservations[id]
	return ok
}

// ClassStore

func (s *memStore) GetByID(_ context.Context, id uint64) (model.ClassOffering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[id]
	if !ok {
		return model.ClassOffering{}, repository.ErrNotFound
	}
	return *c, nil
}

// reservations are exposed through a thin wrapper so the method names do
// not collide with the class store.
type memReservations struct{ *memStore }

func (r memReservations) Find(_ context.Context, email string, classID uint64) (model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.StudentEmail == email && res.ClassID == classID {
			return res, nil
		}
	}
	return model.Reservation{}, repository.ErrNotFound
}

func (r memReservations) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return res, nil
}

func (r memReservations) Create(_ context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.reservations {
		if other.StudentEmail == res.StudentEmail && other.ClassID == res.ClassID {
			return repository.ErrConflict
		}
	}
	for _, rec := range r.payments {
		if rec.StudentEmail == res.StudentEmail && rec.ClassID == res.ClassID {
			return repository.ErrAlreadyPaid
		}
	}
	res.ID = r.id()
	res.CreatedAt = time.Now()
	r.reservations[res.ID] = *res
	return nil
}

func (r memReservations) Delete(_ context.Context, id uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.reservations[id]
	delete(r.reservations, id)
	return ok, nil
}

func (r memReservations) ListByStudent(_ context.Context, email string) ([]model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readCalls++
	if r.readFailures > 0 {
		r.readFailures--
		return nil, errors.New("connection refused")
	}
	var out []model.Reservation
	for _, res := range r.reservations {
		if res.StudentEmail == email {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PaymentStore

type memPayments struct{ *memStore }

func (p memPayments) GetByReservation(_ context.Context, reservationID uint64) (model.PaymentRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byReservation(reservationID)
}

func (s *memStore) byReservation(reservationID uint64) (model.PaymentRecord, error) {
	for _, rec := range s.payments {
		if rec.ReservationID == reservationID {
			return rec, nil
		}
	}
	return model.PaymentRecord{}, repository.ErrNotFound
}

func (p memPayments) GetByTransaction(_ context.Context, transactionID string) (model.PaymentRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.payments {
		if rec.TransactionID == transactionID {
			return rec, nil
		}
	}
	return model.PaymentRecord{}, repository.ErrNotFound
}

func (p memPayments) ExistsForClass(_ context.Context, email string, classID uint64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.payments {
		if rec.StudentEmail == email && rec.ClassID == classID {
			return true, nil
		}
	}
	return false, nil
}

func (p memPayments) ListByStudent(_ context.Context, email string, limit int) ([]model.PaymentRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.PaymentRecord
	for i := len(p.payments) - 1; i >= 0; i-- {
		if p.payments[i].StudentEmail == email {
			out = append(out, p.payments[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SettlementStore

func (s *memStore) SettleTx(ctx context.Context, reservationID uint64, p *model.PaymentRecord, beforeCommit func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[reservationID]
	if existing, err := s.byReservation(reservationID); err == nil {
		delete(s.reservations, reservationID)
		*p = existing
		return repository.ErrAlreadySettled
	}
	if !ok {
		return repository.ErrNotFound
	}
	c, ok := s.classes[res.ClassID]
	if !ok {
		return repository.ErrNotFound
	}
	if c.AvailableSeats == 0 {
		return repository.ErrSoldOut
	}
	for _, rec := range s.payments {
		if rec.TransactionID == p.TransactionID {
			return repository.ErrIntentUsed
		}
	}
	if beforeCommit != nil {
		if err := beforeCommit(ctx); err != nil {
			return err
		}
	}
	c.AvailableSeats--
	c.EnrolledCount++
	p.ID = s.id()
	p.StudentEmail = res.StudentEmail
	p.ClassID = res.ClassID
	p.ReservationID = res.ID
	p.CreatedAt = time.Now()
	s.payments = append(s.payments, *p)
	delete(s.reservations, reservationID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.EnrollmentSettledEvent
}

func (r *recordingPublisher) PublishEnrollmentSettled(_ context.Context, ev queue.EnrollmentSettledEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func quietLogger() echo.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}
