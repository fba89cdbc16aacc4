package account

import (
	"time"

	"github.com/google/uuid"
)

// Role is the account's global role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
)

// Account represents a row in the accounts table.
type Account struct {
	ID            uuid.UUID
	Email         string
	Username      string
	Name          *string
	PasswordHash  *string // nil for non-password providers
	Role          Role
	Provider      Provider
	EmailVerified bool
	AvatarURL     *string
	CreatedAt     time.Time
}
