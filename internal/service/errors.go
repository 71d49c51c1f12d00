package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/sports-class-booking/internal/repository"
)

// Errors returned by the booking services.  Every failure path returns one
// of these (possibly wrapped), so handlers can map them with errors.Is.
var (
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden access")
	ErrAlreadySelected  = errors.New("class already selected")
	ErrAlreadyEnrolled  = errors.New("class already paid for")
	ErrSoldOut          = errors.New("class is sold out")
	ErrPaymentDeclined  = errors.New("payment declined")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)

// storeErr translates repository errors into service errors.  Anything the
// repository did not classify is an I/O failure of the store.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, repository.ErrSoldOut):
		return ErrSoldOut
	case errors.Is(err, repository.ErrConflict):
		return ErrAlreadySelected
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// retryable reports whether err is worth retrying for an idempotent read.
func retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
