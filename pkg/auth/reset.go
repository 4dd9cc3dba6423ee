package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = 10 * time.Minute

// NewResetToken returns the raw token to email and the digest to store.
func NewResetToken() (raw, digest string, err error) {
	b := make([]byte, 20)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashResetToken(raw), nil
}

// HashResetToken is the digest stored alongside the user.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
