package domain

import "time"

// Role enumerates caller roles. Exactly one per user; the permission tables
// in the policy package are keyed on it exhaustively.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsReviewer reports whether the role may act on the review pipeline.
func (r Role) IsReviewer() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Caller is the resolved identity the auth boundary hands to the core for
// every request.
type Caller struct {
	ID   string
	Role Role
}

// User is the identity referenced by applications. Credential verification
// happens at the auth boundary; the core consumes only id and role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Phone        *string
	Address      *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
