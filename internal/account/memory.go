package account

import (
	"context"
	"sync"
	"time"

	"github.com/dhaka-pay/dhaka_pay/internal/token"
	"github.com/dhaka-pay/dhaka_pay/internal/user"
	"github.com/dhaka-pay/dhaka_pay/internal/wallet"
)

type memoryStore struct {
	mu      sync.RWMutex
	users   map[string]user.User     // keyed by user ID
	wallets map[string]wallet.Wallet // keyed by owning user ID
	tokens  map[string]token.SessionToken

	failCreate error // when set, CreateUserAndWallet fails after validation
}

// NewMemoryStore builds an in-memory store for tests.
func NewMemoryStore() Store {
	return &memoryStore{
		users:   make(map[string]user.User),
		wallets: make(map[string]wallet.Wallet),
		tokens:  make(map[string]token.SessionToken),
	}
}

func (s *memoryStore) CreateUserAndWallet(_ context.Context, u user.User, w wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate != nil {
		return s.failCreate
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
		if existing.Phone == u.Phone {
			return ErrPhoneTaken
		}
	}

	// Both rows land under one lock, mirroring the transactional guarantee.
	s.users[u.ID] = u
	s.wallets[u.ID] = w
	return nil
}

func (s *memoryStore) UserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, ErrUserNotFound
}

func (s *memoryStore) UserByID(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return user.User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *memoryStore) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) PhoneExists(_ context.Context, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) WalletForUser(_ context.Context, userID string) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	if !ok {
		return wallet.Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *memoryStore) RotateToken(_ context.Context, userID string, tok token.SessionToken) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := s.deleteTokensLocked(userID)
	s.tokens[tok.ID] = tok
	return revoked, nil
}

func (s *memoryStore) RevokeTokens(_ context.Context, userID string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteTokensLocked(userID), nil
}

func (s *memoryStore) UserByTokenDigest(_ context.Context, digest []byte) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, tok := range s.tokens {
		if string(tok.Digest) == string(digest) {
			now := time.Now().UTC()
			tok.LastUsedAt = &now
			s.tokens[id] = tok
			u, ok := s.users[tok.UserID]
			if !ok {
				return user.User{}, ErrUserNotFound
			}
			return u, nil
		}
	}
	return user.User{}, ErrTokenNotFound
}

func (s *memoryStore) TokenDigestExists(_ context.Context, digest []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tok := range s.tokens {
		if string(tok.Digest) == string(digest) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) deleteTokensLocked(userID string) [][]byte {
	var revoked [][]byte
	for id, tok := range s.tokens {
		if tok.UserID == userID {
			revoked = append(revoked, tok.Digest)
			delete(s.tokens, id)
		}
	}
	return revoked
}
