// Package queue defines message payloads exchanged over the message broker.
package queue

// EnrollmentQueue is the durable queue settled enrollments are published to.
const EnrollmentQueue = "enrollment.settled"

// EnrollmentSettledEvent is published when a reservation is settled into a
// payment record.  It carries enough for downstream consumers to log,
// notify or feed analytics without querying the primary database.
type EnrollmentSettledEvent struct {
    PaymentID     uint64 `json:"payment_id"`
    ReservationID uint64 `json:"reservation_id"`
    StudentEmail  string `json:"email"`
    ClassID       uint64 `json:"class_id"`
    AmountCents   int64  `json:"amount_cents"`
    Currency      string `json:"currency"`
    TransactionID string `json:"transaction_id"`
    SettledAt     string `json:"settled_at"`
}
