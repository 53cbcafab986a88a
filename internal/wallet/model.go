package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dhaka-pay/dhaka_pay/internal/user"
)

// DefaultCurrency is the ISO 4217 code wallets are denominated in unless
// configured otherwise.
const DefaultCurrency = "BDT"

// Type distinguishes personal wallets from agent float wallets.
// Values match the wire contract (0=Personal, 1=Agent).
type Type int

const (
	TypePersonal Type = 0
	TypeAgent    Type = 1
)

// Label returns the display name for the wallet type.
func (t Type) Label() string {
	if t == TypeAgent {
		return "Agent"
	}
	return "Personal"
}

// TypeForRole derives the wallet type created alongside a new account:
// agents get an Agent wallet, everyone else a Personal one.
func TypeForRole(r user.Role) Type {
	if r == user.RoleAgent {
		return TypeAgent
	}
	return TypePersonal
}

// Status enumerates wallet lifecycle states.
type Status int

const (
	StatusInactive  Status = 0
	StatusActive    Status = 1
	StatusSuspended Status = 2
	StatusClosed    Status = 3
)

// Label returns the display name for the status.
func (s Status) Label() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusActive:
		return "active"
	case StatusSuspended:
		return "suspended"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Wallet is a stored-value account owned by exactly one user. At most one
// wallet may exist per (user, currency, type) triple; the database enforces
// this with a unique constraint.
type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	Currency  string
	Type      Type
	Status    Status
	CreatedAt time.Time
}

// Public is the client-facing representation of a Wallet.
type Public struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Type      int             `json:"type"`
	TypeLabel string          `json:"type_label"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Sanitize converts the wallet into its external representation.
func (w Wallet) Sanitize() Public {
	return Public{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   w.Balance,
		Currency:  w.Currency,
		Type:      int(w.Type),
		TypeLabel: w.Type.Label(),
		Status:    w.Status.Label(),
		CreatedAt: w.CreatedAt,
	}
}
