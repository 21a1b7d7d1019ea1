package models

import "time"

// Roles a user account can hold. Authorization is a pure attribute check
// against this field; no identity is special-cased anywhere else.
const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

// User represents a user account in the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
