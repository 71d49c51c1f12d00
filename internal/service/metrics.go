package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "settlements_total",
		Help:      "Settlement attempts by outcome.",
	}, []string{"outcome"})

	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "reservations_total",
		Help:      "Class selections by outcome.",
	}, []string{"outcome"})
)

// outcomeLabel reduces an error to a low-cardinality label.
func outcomeLabel(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case is(err, ErrSoldOut):
		return "sold_out"
	case is(err, ErrPaymentDeclined):
		return "declined"
	case is(err, ErrAlreadySelected), is(err, ErrAlreadyEnrolled):
		return "conflict"
	case is(err, ErrNotFound):
		return "not_found"
	case is(err, ErrForbidden):
		return "forbidden"
	case is(err, ErrInvalidInput):
		return "invalid"
	}
	return "error"
}

func is(err, target error) bool { return errors.Is(err, target) }
