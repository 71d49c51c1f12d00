package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/sports-class-booking/internal/model"
)

// ClassRepo provides persistence for class offerings and is the inventory
// ledger: it is the only code that writes available_seats and
// enrolled_count.  Every seat mutation is a single conditional UPDATE so
// concurrent callers can never push available_seats below zero or break
// available_seats + enrolled_count = total_seats.
type ClassRepo struct {
    db *sql.DB
}

// NewClassRepo returns a new ClassRepo bound to the given database.
func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{db: db} }

const classColumns = `id, instructor_email, instructor_name, name, image_url, price_cents,
       total_seats, available_seats, enrolled_count, status, feedback, created_at, updated_at`

// Create inserts a new class in Pending status with every seat available.
func (r *ClassRepo) Create(ctx context.Context, c *model.ClassOffering) error {
    c.Status = model.ClassPending
    c.AvailableSeats = c.TotalSeats
    c.EnrolledCount = 0
    const q = `INSERT INTO classes (instructor_email, instructor_name, name, image_url, price_cents,
                   total_seats, available_seats, enrolled_count, status)
               VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`
    res, err := r.db.ExecContext(ctx, q,
        c.InstructorEmail, c.InstructorName, c.Name, c.ImageURL, c.PriceCents,
        c.TotalSeats, c.AvailableSeats, string(c.Status))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    c.ID = uint64(id)
    return nil
}

// GetByID fetches a class by id.  It returns ErrNotFound when absent.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (model.ClassOffering, error) {
    return scanClass(r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = ?`, id))
}

// ListByStatus returns classes in the given status, oldest first.
func (r *ClassRepo) ListByStatus(ctx context.Context, status model.ClassStatus) ([]model.ClassOffering, error) {
    return r.list(ctx, `WHERE status = ? ORDER BY created_at, id`, string(status))
}

// ListPopular returns approved classes ordered by enrollment, most
// enrolled first.
func (r *ClassRepo) ListPopular(ctx context.Context, limit int) ([]model.ClassOffering, error) {
    if limit <= 0 {
        limit = 6
    }
    return r.list(ctx, `WHERE status = ? ORDER BY enrolled_count DESC, id LIMIT ?`, string(model.ClassApproved), limit)
}

// ListByInstructor returns every class owned by the instructor.
func (r *ClassRepo) ListByInstructor(ctx context.Context, email string) ([]model.ClassOffering, error) {
    return r.list(ctx, `WHERE instructor_email = ? ORDER BY created_at, id`, model.NormalizeEmail(email))
}

func (r *ClassRepo) list(ctx context.Context, tail string, args ...any) ([]model.ClassOffering, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+classColumns+` FROM classes `+tail, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.ClassOffering, 0)
    for rows.Next() {
        c, err := scanClass(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// SetStatus overwrites a class's moderation status and feedback.  Status
// changes are human-paced admin actions, so a plain overwrite is enough.
func (r *ClassRepo) SetStatus(ctx context.Context, id uint64, status model.ClassStatus, feedback string) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE classes SET status = ?, feedback = ? WHERE id = ?`, string(status), feedback, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}

// ClassUpdate carries the instructor-editable fields of a class.
type ClassUpdate struct {
    Name       string
    ImageURL   string
    PriceCents int64
    TotalSeats uint32
}

// Update applies an instructor edit.  Resizing recomputes available_seats
// from the enrolled count in the same statement and is refused when the
// new total would be smaller than the seats already sold.  It returns
// ErrNotFound, ErrForbidden (another instructor's class) or ErrConflict.
func (r *ClassRepo) Update(ctx context.Context, id uint64, instructorEmail string, u ClassUpdate) error {
    const q = `UPDATE classes
               SET name = ?, image_url = ?, price_cents = ?, total_seats = ?, available_seats = ? - enrolled_count
               WHERE id = ? AND instructor_email = ? AND enrolled_count <= ?`
    email := model.NormalizeEmail(instructorEmail)
    res, err := r.db.ExecContext(ctx, q,
        u.Name, u.ImageURL, u.PriceCents, u.TotalSeats, u.TotalSeats, id, email, u.TotalSeats)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    var owner string
    if err := r.db.QueryRowContext(ctx, `SELECT instructor_email FROM classes WHERE id = ?`, id).Scan(&owner); err != nil {
        return notFound(err)
    }
    if owner != email {
        return ErrForbidden
    }
    return ErrConflict
}

// DecrementSeatTx takes one seat out of inventory inside tx: it moves one
// seat from available_seats to enrolled_count only while available_seats
// is still positive.  The check and the write are the same statement, so
// two transactions racing for the last seat serialise on the row lock and
// the loser sees zero affected rows.  It returns ErrSoldOut when no seat
// was left and ErrNotFound when the class does not exist.
func (r *ClassRepo) DecrementSeatTx(ctx context.Context, tx *sql.Tx, classID uint64) error {
    return decrementSeat(ctx, tx, classID)
}

func decrementSeat(ctx context.Context, q querier, classID uint64) error {
    res, err := q.ExecContext(ctx,
        `UPDATE classes SET available_seats = available_seats - 1, enrolled_count = enrolled_count + 1
         WHERE id = ? AND available_seats > 0`, classID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    var one int
    if err := q.QueryRowContext(ctx, `SELECT 1 FROM classes WHERE id = ?`, classID).Scan(&one); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrNotFound
        }
        return err
    }
    return ErrSoldOut
}

func scanClass(s scanner) (model.ClassOffering, error) {
    var (
        c        model.ClassOffering
        status   string
        image    sql.NullString
        feedback sql.NullString
    )
    err := s.Scan(&c.ID, &c.InstructorEmail, &c.InstructorName, &c.Name, &image, &c.PriceCents,
        &c.TotalSeats, &c.AvailableSeats, &c.EnrolledCount, &status, &feedback, &c.CreatedAt, &c.UpdatedAt)
    if err != nil {
        return model.ClassOffering{}, notFound(err)
    }
    c.ImageURL = image.String
    c.Feedback = feedback.String
    c.Status = model.ClassStatus(status)
    return c, nil
}
