package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the claim set carried by a session token: a subject
// identifier, the issue instant, and the expiry instant. Nothing else goes
// on the wire; the token is opaque to clients.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject identifier.
func (c *SessionClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// IssuedTime returns the issue instant, zero if absent.
func (c *SessionClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// ExpiryTime returns the expiry instant, zero if absent.
func (c *SessionClaims) ExpiryTime() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}
