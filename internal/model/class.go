package model

import (
    "strings"
    "time"
)

// ClassStatus is the moderation state of a class offering.
type ClassStatus string

const (
    ClassPending  ClassStatus = "Pending"
    ClassApproved ClassStatus = "Approved"
    ClassDenied   ClassStatus = "Denied"
)

// ParseClassStatus maps a status name (case-insensitive) to a ClassStatus.
func ParseClassStatus(s string) (ClassStatus, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "pending":
        return ClassPending, true
    case "approved":
        return ClassApproved, true
    case "denied":
        return ClassDenied, true
    }
    return "", false
}

// ClassOffering mirrors the `classes` table.  The seat counters are only
// ever changed through the inventory ledger in the repository layer, which
// keeps AvailableSeats+EnrolledCount equal to TotalSeats.
type ClassOffering struct {
    ID              uint64      `json:"id"`
    InstructorEmail string      `json:"instructor_email"`
    InstructorName  string      `json:"instructor_name"`
    Name            string      `json:"name"`
    ImageURL        string      `json:"image_url,omitempty"`
    PriceCents      int64       `json:"price_cents"`
    TotalSeats      uint32      `json:"total_seats"`
    AvailableSeats  uint32      `json:"available_seats"`
    EnrolledCount   uint32      `json:"enrolled"`
    Status          ClassStatus `json:"status"`
    Feedback        string      `json:"feedback,omitempty"`
    CreatedAt       time.Time   `json:"created_at"`
    UpdatedAt       time.Time   `json:"updated_at"`
}

// Balanced reports whether the seat counters satisfy the ledger invariant.
func (c ClassOffering) Balanced() bool {
    return c.AvailableSeats+c.EnrolledCount == c.TotalSeats
}
