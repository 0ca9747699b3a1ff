package models

import (
	"net/mail"
	"strings"
	"time"
)

// User is an account in the SQL-backed store
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an authenticated session returned by the store
type Session struct {
	Token     string    `json:"access_token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer usable at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials is the sign-in / sign-up payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize lower-cases and trims the email
func (c *Credentials) Normalize() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
}

// Validate returns field errors, empty when the credentials are usable
func (c *Credentials) Validate() map[string]string {
	errs := make(map[string]string)
	if c.Email == "" {
		errs["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(c.Email); err != nil {
		errs["email"] = "Invalid email format"
	}
	if c.Password == "" {
		errs["password"] = "Password is required"
	} else if len(c.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}
	return errs
}
