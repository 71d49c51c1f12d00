// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. Any other error returned by a repository is a storage
// failure (driver, network or constraint error not listed here).
package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state, such as a second live
// reservation for the same student and class, or shrinking a class
// below its enrolled count.
var ErrConflict = errors.New("conflict")

// ErrSoldOut is returned by the inventory ledger when a class has no
// available seat left at the moment the decrement is applied.
var ErrSoldOut = errors.New("sold out")

// ErrAlreadySettled is returned by the settlement transaction when a
// payment record already references the reservation.
var ErrAlreadySettled = errors.New("already settled")

// ErrIntentUsed is returned when the charge intent is already cited by a
// payment record for another reservation.
var ErrIntentUsed = errors.New("charge intent already used")

// ErrAlreadyPaid is returned when a reservation is inserted for a class
// the student already has a payment record for.
var ErrAlreadyPaid = errors.New("class already paid")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique-constraint violation.
func isDuplicate(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isDuplicateKey is isDuplicate narrowed to one named index.  MySQL 8
// reports the key as "table.key", older servers as "key".
func isDuplicateKey(err error, key string) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlDuplicateEntry && strings.Contains(me.Message, key)
}

// notFound converts sql.ErrNoRows into ErrNotFound and passes other
// errors through.
func notFound(err error) error {
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    return err
}

// querier is satisfied by both *sql.DB and *sql.Tx so that read helpers
// can run inside or outside a transaction.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
    Scan(dest ...any) error
}
