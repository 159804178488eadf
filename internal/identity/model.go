package identity

import (
	"strings"
	"time"
)

// Role is the account kind stored on the user record.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Status tracks the administrative state of an account.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// User represents a registered account holder. PINHash is never serialized.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	Email     string    `json:"email"`
	PINHash   []byte    `json:"-"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegisterInput is the data a caller supplies to open an account.
type RegisterInput struct {
	Name   string
	PIN    string
	Mobile string
	Email  string
	Role   Role
}

// ListFilter narrows user listings. Zero values match everything.
type ListFilter struct {
	// Search is a case-insensitive substring matched against name, email and mobile.
	Search string
	Role   Role
	Status Status
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeIdentifier prepares an email-or-mobile login identifier for lookup.
func NormalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return NormalizeEmail(identifier)
	}
	return identifier
}
