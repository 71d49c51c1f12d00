package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/sports-class-booking/internal/model"
)

// ReservationRepo provides CRUD operations for reservations (selected
// classes).  The reservations table carries a UNIQUE(student_email,
// class_id) index, so a duplicate insert fails even when two requests
// pass the preceding lookup at the same time.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `r.id, r.student_email, r.class_id, c.name, r.price_cents, r.created_at`

const reservationFrom = ` FROM reservations r LEFT JOIN classes c ON c.id = r.class_id `

// Find returns the live reservation for a student and class, or
// ErrNotFound.
func (r *ReservationRepo) Find(ctx context.Context, email string, classID uint64) (model.Reservation, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+reservationColumns+reservationFrom+`WHERE r.student_email = ? AND r.class_id = ? LIMIT 1`,
        model.NormalizeEmail(email), classID)
    return scanReservation(row)
}

// GetByID returns a reservation by id, or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+reservationFrom+`WHERE r.id = ?`, id)
    return scanReservation(row)
}

// Create inserts a reservation and populates its ID and CreatedAt.  It
// returns ErrConflict when the student already holds one for the class and
// ErrAlreadyPaid when a payment record for the class exists; the payment
// check runs inside the INSERT so a settlement committing in between is
// still seen.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    res.StudentEmail = model.NormalizeEmail(res.StudentEmail)
    result, err := r.db.ExecContext(ctx,
        `INSERT INTO reservations (student_email, class_id, price_cents)
         SELECT ?, ?, ? FROM DUAL
         WHERE NOT EXISTS (SELECT 1 FROM payments WHERE student_email = ? AND class_id = ?)`,
        res.StudentEmail, res.ClassID, res.PriceCents, res.StudentEmail, res.ClassID)
    if err != nil {
        if isDuplicate(err) {
            return ErrConflict
        }
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrAlreadyPaid
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    return r.db.QueryRowContext(ctx, `SELECT created_at FROM reservations WHERE id = ?`, res.ID).Scan(&res.CreatedAt)
}

// Delete removes a reservation.  Removing an absent row is not an error;
// the boolean reports whether a row was actually deleted.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) (bool, error) {
    return deleteReservation(ctx, r.db, id)
}

// ListByStudent returns the student's live reservations, oldest first.
func (r *ReservationRepo) ListByStudent(ctx context.Context, email string) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+reservationFrom+`WHERE r.student_email = ? ORDER BY r.created_at, r.id`,
        model.NormalizeEmail(email))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

// GetForUpdateTx loads a reservation and locks its row until tx ends.
// A concurrent settlement of the same reservation blocks here and then
// observes the row gone.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT r.id, r.student_email, r.class_id, '', r.price_cents, r.created_at
         FROM reservations r WHERE r.id = ? FOR UPDATE`, id)
    return scanReservation(row)
}

// DeleteTx removes a reservation inside tx.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    return deleteReservation(ctx, tx, id)
}

func deleteReservation(ctx context.Context, q querier, id uint64) (bool, error) {
    res, err := q.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

func scanReservation(s scanner) (model.Reservation, error) {
    var (
        res  model.Reservation
        name sql.NullString
    )
    if err := s.Scan(&res.ID, &res.StudentEmail, &res.ClassID, &name, &res.PriceCents, &res.CreatedAt); err != nil {
        return model.Reservation{}, notFound(err)
    }
    res.ClassName = name.String
    return res, nil
}
