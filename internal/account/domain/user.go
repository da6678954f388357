package domain

import "time"

// UserStatus tracks the account lifecycle. Accounts start INACTIVE and flip
// to ACTIVE once the owner proves control of the email address.
type UserStatus string

const (
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusActive   UserStatus = "ACTIVE"
)

type User struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string  // argon2 encoded
	Phone             *string // nullable, unique when set
	RoleID            string  // Foreign key to roles table
	Status            UserStatus
	Verified          bool
	VerificationToken *string // fingerprint (base64url SHA-256), nullable
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CanLogin reports whether the account has completed email verification.
func (u User) CanLogin() bool {
	return u.Verified && u.Status == UserStatusActive
}
