package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dhaka-pay/dhaka_pay/internal/token"
	"github.com/dhaka-pay/dhaka_pay/internal/user"
	"github.com/dhaka-pay/dhaka_pay/internal/wallet"
)

const uniqueViolation = "23505"

// PostgresStore implements Store on top of PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed account store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateUserAndWallet inserts the user and wallet rows in a single
// transaction so a user row is never observable without its wallet.
func (s *PostgresStore) CreateUserAndWallet(ctx context.Context, u user.User, w wallet.Wallet) error {
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return err
	}
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	_, err = tx.Exec(ctx, `INSERT INTO users (id, name, email, phone, password_hash, pin_hash, role, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		userID, u.Name, u.Email, u.Phone, u.PasswordHash, u.PINHash, int(u.Role), u.CreatedAt.UTC())
	if err != nil {
		return mapUniqueViolation(err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO wallets (id, user_id, balance, currency, type, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		walletID, userID, w.Balance.String(), w.Currency, int(w.Type), int(w.Status), w.CreatedAt.UTC())
	if err != nil {
		return mapUniqueViolation(err)
	}

	return tx.Commit(ctx)
}

const userColumns = `id, name, email, phone, password_hash, pin_hash, role, created_at`

// UserByEmail fetches a user by exact email match.
func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// UserByID fetches a user by identifier.
func (s *PostgresStore) UserByID(ctx context.Context, id string) (user.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return user.User{}, ErrUserNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// EmailExists reports whether a user already claims the email.
func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// PhoneExists reports whether a user already claims the phone number.
func (s *PostgresStore) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1)`, phone).Scan(&exists)
	return exists, err
}

// WalletForUser fetches the user's wallet.
func (s *PostgresStore) WalletForUser(ctx context.Context, id string) (wallet.Wallet, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return wallet.Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, user_id, balance::text, currency, type, status, created_at
        FROM wallets WHERE user_id = $1 ORDER BY created_at LIMIT 1`, userID)

	var (
		w         wallet.Wallet
		wid, uid  uuid.UUID
		balance   string
		typ, st   int
		createdAt time.Time
	)
	if err := row.Scan(&wid, &uid, &balance, &w.Currency, &typ, &st, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.Wallet{}, ErrWalletNotFound
		}
		return wallet.Wallet{}, err
	}
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return wallet.Wallet{}, fmt.Errorf("parse balance: %w", err)
	}
	w.ID = wid.String()
	w.UserID = uid.String()
	w.Balance = bal
	w.Type = wallet.Type(typ)
	w.Status = wallet.Status(st)
	w.CreatedAt = createdAt.UTC()
	return w, nil
}

// RotateToken deletes every session token for the user and inserts the
// replacement inside one transaction, so two concurrent logins cannot leave
// the user with zero valid tokens.
func (s *PostgresStore) RotateToken(ctx context.Context, id string, tok token.SessionToken) ([][]byte, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	tokenID, err := uuid.Parse(tok.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	revoked, err := deleteTokens(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO session_tokens (id, user_id, digest, created_at)
        VALUES ($1, $2, $3, $4)`, tokenID, userID, tok.Digest, tok.CreatedAt.UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return revoked, nil
}

// RevokeTokens deletes every session token belonging to the user.
func (s *PostgresStore) RevokeTokens(ctx context.Context, id string) ([][]byte, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	revoked, err := deleteTokens(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return revoked, nil
}

// UserByTokenDigest resolves a presented token digest to its owner and
// stamps the token's last use.
func (s *PostgresStore) UserByTokenDigest(ctx context.Context, digest []byte) (user.User, error) {
	row := s.db.QueryRow(ctx, `UPDATE session_tokens SET last_used_at = now()
        WHERE digest = $1 RETURNING user_id`, digest)
	var userID uuid.UUID
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrTokenNotFound
		}
		return user.User{}, err
	}
	return s.UserByID(ctx, userID.String())
}

// TokenDigestExists reports whether a live session token matches the digest.
func (s *PostgresStore) TokenDigestExists(ctx context.Context, digest []byte) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM session_tokens WHERE digest = $1)`, digest).Scan(&exists)
	return exists, err
}

func deleteTokens(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([][]byte, error) {
	rows, err := tx.Query(ctx, `DELETE FROM session_tokens WHERE user_id = $1 RETURNING digest`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revoked [][]byte
	for rows.Next() {
		var digest []byte
		if err := rows.Scan(&digest); err != nil {
			return nil, err
		}
		revoked = append(revoked, digest)
	}
	return revoked, rows.Err()
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u         user.User
		id        uuid.UUID
		role      int
		createdAt time.Time
	)
	if err := row.Scan(&id, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.PINHash, &role, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	u.ID = id.String()
	u.Role = user.Role(role)
	u.CreatedAt = createdAt.UTC()
	return u, nil
}

// mapUniqueViolation translates a constraint race lost against a concurrent
// registration into the taken-field error the validator would have produced.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return ErrEmailTaken
	case "users_phone_key":
		return ErrPhoneTaken
	default:
		return err
	}
}
