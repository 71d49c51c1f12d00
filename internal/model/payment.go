package model

import "time"

// PaymentRecord is the append-only proof that a reservation was settled.
// ReservationID links back to the consumed reservation and is what the
// settlement saga probes to detect a replay.
type PaymentRecord struct {
    ID            uint64    `json:"id"`
    StudentEmail  string    `json:"email"`
    ClassID       uint64    `json:"class_id"`
    ClassName     string    `json:"class_name,omitempty"`
    AmountCents   int64     `json:"amount_cents"`
    Currency      string    `json:"currency"`
    TransactionID string    `json:"transaction_id"`
    ReservationID uint64    `json:"reservation_id"`
    CreatedAt     time.Time `json:"created_at"`
}
