package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/dhaka-pay/dhaka_pay/internal/notification"
	"github.com/dhaka-pay/dhaka_pay/internal/token"
	"github.com/dhaka-pay/dhaka_pay/internal/user"
	"github.com/dhaka-pay/dhaka_pay/internal/wallet"
)

// ErrInvalidCredentials is returned for both unknown-email and wrong-password
// logins so the two causes stay indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is a well-formed bcrypt digest at the cost used for real
// credentials. The unknown-email branch compares against it so both failure
// causes spend the same hashing time, not just return the same response.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service owns the registration and authentication flow: it hashes secrets,
// provisions the user and wallet atomically, and manages session tokens with
// single-active-session semantics.
type Service struct {
	store    Store
	cache    *token.Cache
	notifier notification.Notifier
	currency string
}

// NewService builds the account service. The cache and notifier may be nil.
func NewService(store Store, cache *token.Cache, notifier notification.Notifier, currency string) *Service {
	if currency == "" {
		currency = wallet.DefaultCurrency
	}
	return &Service{store: store, cache: cache, notifier: notifier, currency: currency}
}

// Register provisions a new account. Precondition: in already passed the
// validator. The user and wallet rows are created in one transaction; a
// constraint race lost against a concurrent registration surfaces as
// ErrEmailTaken or ErrPhoneTaken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, wallet.Wallet, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, wallet.Wallet{}, fmt.Errorf("hash password: %w", err)
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(in.TransactionPIN), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, wallet.Wallet{}, fmt.Errorf("hash pin: %w", err)
	}

	role, err := user.ParseRole(in.Role)
	if err != nil {
		return user.User{}, wallet.Wallet{}, err
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: passwordHash,
		PINHash:      pinHash,
		Role:         role,
		CreatedAt:    now,
	}
	w := wallet.Wallet{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		Balance:   decimal.Zero,
		Currency:  s.currency,
		Type:      wallet.TypeForRole(role),
		Status:    wallet.StatusActive,
		CreatedAt: now,
	}

	if err := s.store.CreateUserAndWallet(ctx, u, w); err != nil {
		return user.User{}, wallet.Wallet{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWelcome,
			Destination: u.Email,
			Body:        fmt.Sprintf("Welcome to DhakaPay, %s", u.Name),
		})
	}

	return u, w, nil
}

// Login verifies credentials and issues a fresh session token, revoking all
// previously issued tokens for the user in the same transaction.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, user.User, wallet.Wallet, error) {
	u, err := s.store.UserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(in.Password))
			return "", user.User{}, wallet.Wallet{}, ErrInvalidCredentials
		}
		return "", user.User{}, wallet.Wallet{}, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)); err != nil {
		return "", user.User{}, wallet.Wallet{}, ErrInvalidCredentials
	}

	tok, plaintext, err := token.Issue(u.ID)
	if err != nil {
		return "", user.User{}, wallet.Wallet{}, err
	}

	revoked, err := s.store.RotateToken(ctx, u.ID, tok)
	if err != nil {
		return "", user.User{}, wallet.Wallet{}, err
	}

	// Cache maintenance is best-effort; the store remains authoritative.
	_ = s.cache.Invalidate(ctx, revoked...)
	_ = s.cache.Put(ctx, tok.Digest, u.ID)

	w, err := s.store.WalletForUser(ctx, u.ID)
	if err != nil {
		return "", user.User{}, wallet.Wallet{}, err
	}

	return plaintext, u, w, nil
}

// Authenticate resolves a presented session token to its owner. The Redis
// cache is a hint, never an authority: a hit must still match a live token
// in the store, so a rotation that raced this session's cache maintenance
// cannot keep a revoked token alive. Confirmed hits skip the last-used
// stamp, which is what the cache buys on the hot path.
func (s *Service) Authenticate(ctx context.Context, plaintext string) (user.User, error) {
	digest := token.Digest(plaintext)

	if userID, err := s.cache.Get(ctx, digest); err == nil {
		live, err := s.store.TokenDigestExists(ctx, digest)
		if err == nil && live {
			if u, err := s.store.UserByID(ctx, userID); err == nil {
				return u, nil
			}
		}
		// Revoked or stale entry; drop it and take the authoritative path.
		_ = s.cache.Invalidate(ctx, digest)
	}

	u, err := s.store.UserByTokenDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return user.User{}, ErrTokenNotFound
		}
		return user.User{}, err
	}
	_ = s.cache.Put(ctx, digest, u.ID)
	return u, nil
}

// Logout revokes every session token the user holds.
func (s *Service) Logout(ctx context.Context, userID string) error {
	revoked, err := s.store.RevokeTokens(ctx, userID)
	if err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, revoked...)
	return nil
}

// Wallet returns the user's wallet.
func (s *Service) Wallet(ctx context.Context, userID string) (wallet.Wallet, error) {
	return s.store.WalletForUser(ctx, userID)
}
