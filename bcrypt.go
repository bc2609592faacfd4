package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor applied to stored credentials.
const DefaultBcryptCost = 12

// ResetTokenTTL is the fixed validity window of a password reset token,
// measured from generation.
const ResetTokenTTL = 10 * time.Minute

// resetTokenBytes is the entropy of a raw reset token.
const resetTokenBytes = 32

// Hasher owns credential hashing and reset token generation.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt work factor. Costs
// outside the bcrypt range fall back to DefaultBcryptCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return Hasher{cost: cost}
}

// HashPassword will generate a password hash. bcrypt embeds a random salt,
// so hashing the same password twice yields different outputs.
func (h Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	cost := h.cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(out), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password. The comparison is constant time.
func (h Hasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// GenerateResetToken returns a raw reset token and its digest. Only the
// digest may be persisted; the raw value goes out through the Notifier
// exactly once. A fast digest is enough here, the token's entropy is what
// protects it.
func (h Hasher) GenerateResetToken() (raw, digest string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", errors.Join(ErrEntropyFailure, err)
	}

	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken digests a raw reset token for storage or lookup.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
