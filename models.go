package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned on signup.
	RoleUser UserRole = "user"
	// RoleGuide can be assigned to tour guides.
	RoleGuide UserRole = "guide"
	// RoleLeadGuide can manage guides and tour content.
	RoleLeadGuide UserRole = "lead-guide"
	// RoleAdmin has full access.
	RoleAdmin UserRole = "admin"
)

// DefaultPhoto is the avatar used when a user never uploaded one.
const DefaultPhoto = "default.jpg"

// IsValidRole checks the role against the closed role set.
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the identity record. Secret fields never serialize outward.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID    uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name  string    `bun:"name,notnull" json:"name,omitempty"`
	Email string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Photo string    `bun:"photo" json:"photo,omitempty"`
	Role  UserRole  `bun:"user_role,notnull" json:"role,omitempty"`

	PasswordHash        string     `bun:"password_hash" json:"-"`
	PasswordChangedAt   *time.Time `bun:"password_changed_at,nullzero" json:"-"`
	ResetTokenHash      string     `bun:"reset_token_hash,nullzero" json:"-"`
	ResetTokenExpiresAt *time.Time `bun:"reset_token_expires_at,nullzero" json:"-"`
	Active              bool       `bun:"active,notnull" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// PasswordChangedAfter reports whether the credential changed after the
// given instant. A token issued before the change is stale.
func (u *User) PasswordChangedAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(t)
}

// RoleIn checks membership in an allowed role set.
func (u *User) RoleIn(roles ...UserRole) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email before lookup or storage so
// no two identities can share an address by case alone.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
