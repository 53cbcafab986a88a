package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionToken is an opaque credential bound to a single user. Only the
// SHA-256 digest is persisted; the plaintext is shown to the client once
// at issuance and cannot be recovered afterwards.
type SessionToken struct {
	ID         string
	UserID     string
	Digest     []byte
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Issue generates a fresh session token for the user. The returned plaintext
// is the value sent to the client; the SessionToken carries its digest.
func Issue(userID string) (SessionToken, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return SessionToken{}, "", fmt.Errorf("generate token: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)

	tok := SessionToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Digest:    Digest(plaintext),
		CreatedAt: time.Now().UTC(),
	}
	return tok, plaintext, nil
}

// Digest returns the stored form of a plaintext token.
func Digest(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	return sum[:]
}
