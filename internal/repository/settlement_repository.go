package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/iliyamo/sports-class-booking/internal/model"
)

// ErrCommitFailed wraps a failed COMMIT of the settlement transaction.
// Work done by the beforeCommit hook may already be visible outside the
// database when this is returned.
var ErrCommitFailed = errors.New("settlement commit failed")

// SettlementRepo runs the write half of a settlement (seat decrement,
// payment append, reservation removal) as one MySQL transaction.
type SettlementRepo struct {
    db           *sql.DB
    Classes      *ClassRepo
    Reservations *ReservationRepo
    Payments     *PaymentRepo
}

// NewSettlementRepo wires the repositories that share the transaction.
func NewSettlementRepo(db *sql.DB, classes *ClassRepo, reservations *ReservationRepo, payments *PaymentRepo) *SettlementRepo {
    return &SettlementRepo{db: db, Classes: classes, Reservations: reservations, Payments: payments}
}

// SettleTx converts reservation reservationID into the payment record p.
// p must carry AmountCents, Currency and TransactionID; the student, class
// and reservation fields are taken from the locked reservation row.
//
// Inside one transaction it
//  1. locks the reservation row (FOR UPDATE),
//  2. probes for a payment that already references it,
//  3. decrements the class inventory,
//  4. appends the payment record,
//  5. deletes the reservation,
//  6. runs beforeCommit (the gateway capture) and commits.
//
// Any failure before COMMIT rolls everything back.  When a payment record
// already exists, *p is overwritten with it and ErrAlreadySettled is
// returned.  ErrNotFound means the reservation is gone and was never
// settled; ErrSoldOut comes from the ledger.
func (r *SettlementRepo) SettleTx(ctx context.Context, reservationID uint64, p *model.PaymentRecord, beforeCommit func(context.Context) error) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := r.Reservations.GetForUpdateTx(ctx, tx, reservationID)
    if err != nil {
        if !errors.Is(err, ErrNotFound) {
            return err
        }
        // consumed by a concurrent settlement or cancelled
        existing, perr := r.Payments.GetByReservationTx(ctx, tx, reservationID)
        if perr != nil {
            return perr
        }
        *p = existing
        return ErrAlreadySettled
    }

    existing, err := r.Payments.GetByReservationTx(ctx, tx, reservationID)
    switch {
    case err == nil:
        // a record exists but the reservation survived: finish the cleanup
        if _, err := r.Reservations.DeleteTx(ctx, tx, reservationID); err != nil {
            return err
        }
        if err := tx.Commit(); err != nil {
            return fmt.Errorf("%w: %v", ErrCommitFailed, err)
        }
        committed = true
        *p = existing
        return ErrAlreadySettled
    case !errors.Is(err, ErrNotFound):
        return err
    }

    if err := r.Classes.DecrementSeatTx(ctx, tx, res.ClassID); err != nil {
        return err
    }
    p.StudentEmail = res.StudentEmail
    p.ClassID = res.ClassID
    p.ReservationID = res.ID
    if err := r.Payments.CreateTx(ctx, tx, p); err != nil {
        return err
    }
    if _, err := r.Reservations.DeleteTx(ctx, tx, res.ID); err != nil {
        return err
    }
    if beforeCommit != nil {
        if err := beforeCommit(ctx); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("%w: %v", ErrCommitFailed, err)
    }
    committed = true
    return nil
}
