package model

import "time"

// Reservation is a student's pending, unpaid claim on one seat of a class
// (the "selected class").  At most one exists per (StudentEmail, ClassID);
// it is destroyed by cancellation or consumed by settlement.
//
// Fields:
//  ID           – primary key identifier.
//  StudentEmail – owner of the reservation.
//  ClassID      – class being reserved.
//  PriceCents   – class price at selection time, in minor units.
//  CreatedAt    – creation timestamp.
type Reservation struct {
    ID           uint64    `json:"id"`
    StudentEmail string    `json:"email"`
    ClassID      uint64    `json:"class_id"`
    ClassName    string    `json:"class_name,omitempty"`
    PriceCents   int64     `json:"price_cents"`
    CreatedAt    time.Time `json:"created_at"`
}
