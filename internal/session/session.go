// Package session maps opaque client-held tokens to authenticated user ids.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown, expired or empty tokens.
var ErrSessionNotFound = errors.New("session not found")

const tokenBytes = 32

// Record is the server-side state behind a session token.
type Record struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store persists sessions keyed by a hash of the token; the raw token is never stored.
type Store interface {
	Create(ctx context.Context, userID uint) (string, Record, error)
	Get(ctx context.Context, token string) (Record, error)
	Delete(ctx context.Context, token string) error
}

// GenerateToken returns 32 random bytes encoded as unpadded base64url.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex sha256 of token, used as the storage key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newRecord(userID uint, now time.Time, ttl time.Duration) Record {
	now = now.UTC()
	return Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
