package model

import (
    "strings"
    "time"
)

// Role is the closed set of roles an account can hold.  Roles are stored
// in the `users.role` column by name.
type Role uint8

const (
    RoleUnassigned Role = iota
    RoleStudent
    RoleInstructor
    RoleAdmin
)

// String returns the persisted name of the role.
func (r Role) String() string {
    switch r {
    case RoleUnassigned:
        return "Unassigned"
    case RoleStudent:
        return "Student"
    case RoleInstructor:
        return "Instructor"
    case RoleAdmin:
        return "Admin"
    }
    return "Unknown"
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
    switch r {
    case RoleUnassigned, RoleStudent, RoleInstructor, RoleAdmin:
        return true
    }
    return false
}

// ParseRole maps a role name (case-insensitive) to a Role.  The empty
// string maps to RoleUnassigned so rows created before a role was chosen
// still scan.
func ParseRole(s string) (Role, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "unassigned":
        return RoleUnassigned, true
    case "student":
        return RoleStudent, true
    case "instructor":
        return RoleInstructor, true
    case "admin":
        return RoleAdmin, true
    }
    return RoleUnassigned, false
}

// MarshalText lets roles appear by name in JSON payloads.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Account represents a row of the `users` table.  Email is the identity
// carried in access tokens and is unique.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – normalized (trimmed, lower-cased) unique email.
//  Name         – display name.
//  PhotoURL     – optional avatar.
//  PasswordHash – bcrypt hash; empty for accounts registered through a
//                 federated provider.
//  Role         – authorization role; only an Admin may change it.
//  CreatedAt    – timestamp of creation.
type Account struct {
    ID           uint64    `json:"id"`
    Email        string    `json:"email"`
    Name         string    `json:"name"`
    PhotoURL     string    `json:"photo_url,omitempty"`
    PasswordHash string    `json:"-"`
    Role         Role      `json:"role"`
    CreatedAt    time.Time `json:"created_at"`
}

// NormalizeEmail trims and lower-cases an email so lookups are stable.
func NormalizeEmail(email string) string {
    return strings.ToLower(strings.TrimSpace(email))
}
