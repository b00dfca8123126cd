// Package auth provides optional API key authentication for the
// classification gateway's POST /classify endpoint, backed by an embedded
// SQLite key store rather than an external database: a single self
// contained inference binary should not require provisioning PostgreSQL
// just to gate access to it.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// APIKey is a persisted API key record. The plaintext key is never stored;
// only its SHA256 hash is.
type APIKey struct {
	ID        string
	Name      string
	KeyHash   string
	Revoked   bool
	CreatedAt time.Time
	RevokedAt *time.Time
}

var hexKeyRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// GenerateKey creates a new random API key: a 64-character hex string from
// 32 random bytes, plus its SHA256 hash. The plaintext must be shown once
// and never persisted.
func GenerateKey() (plaintext string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("auth: generate random bytes: %w", err)
	}
	plaintext = hex.EncodeToString(b)
	return plaintext, HashKey(plaintext), nil
}

// HashKey returns the lowercase hex-encoded SHA256 hash of plaintext.
// API keys are high-entropy random strings, so a fast hash is sufficient
// for lookup; there is no password-guessing surface to slow down.
func HashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ValidateKeyFormat reports whether key looks like a key GenerateKey would
// have produced.
func ValidateKeyFormat(key string) bool {
	return hexKeyRegex.MatchString(key)
}
