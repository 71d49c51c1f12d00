package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/sports-class-booking/internal/model"
)

// PaymentRepo reads and appends payment records.  Records are never
// updated or deleted.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentsTransactionKey = "uq_payments_transaction"

const paymentColumns = `p.id, p.student_email, p.class_id, c.name, p.amount_cents, p.currency,
       p.transaction_id, p.reservation_id, p.created_at`

const paymentFrom = ` FROM payments p LEFT JOIN classes c ON c.id = p.class_id `

// GetByReservation returns the record that settled a reservation, or
// ErrNotFound.  This is the settlement saga's resumability probe.
func (r *PaymentRepo) GetByReservation(ctx context.Context, reservationID uint64) (model.PaymentRecord, error) {
    return paymentByReservation(ctx, r.db, reservationID)
}

// GetByReservationTx is GetByReservation inside tx.
func (r *PaymentRepo) GetByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (model.PaymentRecord, error) {
    return paymentByReservation(ctx, tx, reservationID)
}

func paymentByReservation(ctx context.Context, q querier, reservationID uint64) (model.PaymentRecord, error) {
    row := q.QueryRowContext(ctx,
        `SELECT `+paymentColumns+paymentFrom+`WHERE p.reservation_id = ? LIMIT 1`, reservationID)
    return scanPayment(row)
}

// GetByTransaction returns the record that cites a gateway charge intent,
// or ErrNotFound.
func (r *PaymentRepo) GetByTransaction(ctx context.Context, transactionID string) (model.PaymentRecord, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+paymentColumns+paymentFrom+`WHERE p.transaction_id = ? LIMIT 1`, transactionID)
    return scanPayment(row)
}

// ExistsForClass reports whether the student already paid for the class.
func (r *PaymentRepo) ExistsForClass(ctx context.Context, email string, classID uint64) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM payments WHERE student_email = ? AND class_id = ?`,
        model.NormalizeEmail(email), classID).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ListByStudent returns the student's payments, newest first, capped at
// limit rows.
func (r *PaymentRepo) ListByStudent(ctx context.Context, email string, limit int) ([]model.PaymentRecord, error) {
    if limit <= 0 {
        limit = 10
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+paymentColumns+paymentFrom+`WHERE p.student_email = ? ORDER BY p.created_at DESC, p.id DESC LIMIT ?`,
        model.NormalizeEmail(email), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.PaymentRecord, 0)
    for rows.Next() {
        p, err := scanPayment(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}

// CreateTx appends a payment record inside tx and populates its ID and
// CreatedAt.  A second record for the same reservation violates the
// UNIQUE(reservation_id) index and yields ErrAlreadySettled; reusing a
// charge intent violates UNIQUE(transaction_id) and yields ErrIntentUsed.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PaymentRecord) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO payments (student_email, class_id, amount_cents, currency, transaction_id, reservation_id)
         VALUES (?, ?, ?, ?, ?, ?)`,
        p.StudentEmail, p.ClassID, p.AmountCents, p.Currency, p.TransactionID, p.ReservationID)
    if err != nil {
        switch {
        case isDuplicateKey(err, paymentsTransactionKey):
            return ErrIntentUsed
        case isDuplicate(err):
            return ErrAlreadySettled
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    return tx.QueryRowContext(ctx, `SELECT created_at FROM payments WHERE id = ?`, p.ID).Scan(&p.CreatedAt)
}

func scanPayment(s scanner) (model.PaymentRecord, error) {
    var (
        p    model.PaymentRecord
        name sql.NullString
    )
    err := s.Scan(&p.ID, &p.StudentEmail, &p.ClassID, &name, &p.AmountCents, &p.Currency,
        &p.TransactionID, &p.ReservationID, &p.CreatedAt)
    if err != nil {
        return model.PaymentRecord{}, notFound(err)
    }
    p.ClassName = name.String
    return p, nil
}
