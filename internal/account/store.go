package account

import (
	"context"
	"errors"

	"github.com/dhaka-pay/dhaka_pay/internal/token"
	"github.com/dhaka-pay/dhaka_pay/internal/user"
	"github.com/dhaka-pay/dhaka_pay/internal/wallet"
)

var (
	// ErrUserNotFound indicates no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrWalletNotFound indicates the user has no wallet row.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrTokenNotFound indicates the presented token digest is unknown.
	ErrTokenNotFound = errors.New("session token not found")
	// ErrEmailTaken surfaces a unique violation on users.email.
	ErrEmailTaken = errors.New("email already taken")
	// ErrPhoneTaken surfaces a unique violation on users.phone.
	ErrPhoneTaken = errors.New("phone already taken")
)

// Store persists accounts, their wallets and session tokens. Multi-row
// operations are atomic: CreateUserAndWallet never leaves a user without a
// wallet, and RotateToken never leaves a window with zero valid tokens for
// a user whose login succeeded.
type Store interface {
	// CreateUserAndWallet inserts both rows in one transaction. Unique
	// violations on email/phone map to ErrEmailTaken/ErrPhoneTaken.
	CreateUserAndWallet(ctx context.Context, u user.User, w wallet.Wallet) error

	UserByEmail(ctx context.Context, email string) (user.User, error)
	UserByID(ctx context.Context, id string) (user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	WalletForUser(ctx context.Context, userID string) (wallet.Wallet, error)

	// RotateToken atomically deletes every token belonging to the user and
	// inserts the replacement. It returns the revoked digests so callers can
	// purge caches.
	RotateToken(ctx context.Context, userID string, tok token.SessionToken) ([][]byte, error)

	// RevokeTokens deletes every token for the user, returning the revoked
	// digests.
	RevokeTokens(ctx context.Context, userID string) ([][]byte, error)

	// UserByTokenDigest resolves a presented token to its owner and marks
	// the token as used.
	UserByTokenDigest(ctx context.Context, digest []byte) (user.User, error)

	// TokenDigestExists reports whether the digest matches a live session
	// token. The auth path uses it to confirm cache hits against the store.
	TokenDigestExists(ctx context.Context, digest []byte) (bool, error)
}
