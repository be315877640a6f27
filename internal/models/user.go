package models

import (
	"time"
)

// User represents an OKDriver account.
// PasswordHash is empty for accounts created through federated sign-in,
// GoogleID is empty for accounts that only ever used credentials.
type User struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password"`
	Name          string    `json:"name" db:"name"`
	Picture       string    `json:"picture,omitempty" db:"picture"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	GoogleID      string    `json:"-" db:"google_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// HasPassword reports whether the user can sign in with credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicUser is the projection of a User that is safe to return to clients
type PublicUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Public returns the client-facing fields of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Picture:       u.Picture,
		EmailVerified: u.EmailVerified,
	}
}

// APIKey represents an API key for a user.
// Only the SHA-256 hash of the key is persisted; KeyPrefix is kept so the
// owner can tell keys apart in listings.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	UserEmail  string     `json:"user_email" db:"user_email"`
	KeyName    string     `json:"key_name" db:"key_name"`
	KeyHash    string     `json:"-" db:"key_hash"`
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	Revoked    bool       `json:"revoked" db:"revoked"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
}

// IsExpired checks if the key has passed its expiry date at the given instant.
func (k *APIKey) IsExpired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// Usable reports whether the key may authenticate a request at the given instant.
func (k *APIKey) Usable(now time.Time) bool {
	return k.IsActive && !k.Revoked && !k.IsExpired(now)
}
