package account

import (
	"context"
	"net/mail"
	"strings"

	"github.com/dhaka-pay/dhaka_pay/internal/user"
)

// ValidationError reports the first violated rule for a submitted form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RegisterInput is the raw registration form.
type RegisterInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Password       string `json:"password"`
	TransactionPIN string `json:"transaction_pin"`
	Role           int    `json:"role"`
}

// LoginInput is the raw login form.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validator checks submitted fields before any state mutation. Uniqueness
// checks are read-only lookups; the store's constraints remain the backstop
// for races.
type Validator struct {
	store Store
}

// NewValidator builds a validator over the given store.
func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// ValidateRegister checks fields in declaration order and returns the first
// violation only.
func (v *Validator) ValidateRegister(ctx context.Context, in RegisterInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "The name field is required.")
	}
	if len(in.Name) > 255 {
		return invalid("name", "The name may not be greater than 255 characters.")
	}

	if strings.TrimSpace(in.Email) == "" {
		return invalid("email", "The email field is required.")
	}
	if !validEmail(in.Email) {
		return invalid("email", "The email must be a valid email address.")
	}
	if len(in.Email) > 255 {
		return invalid("email", "The email may not be greater than 255 characters.")
	}
	taken, err := v.store.EmailExists(ctx, in.Email)
	if err != nil {
		return err
	}
	if taken {
		return invalid("email", "The email has already been taken.")
	}

	if strings.TrimSpace(in.Phone) == "" {
		return invalid("phone", "The phone field is required.")
	}
	if len(in.Phone) > 20 {
		return invalid("phone", "The phone may not be greater than 20 characters.")
	}
	taken, err = v.store.PhoneExists(ctx, in.Phone)
	if err != nil {
		return err
	}
	if taken {
		return invalid("phone", "The phone has already been taken.")
	}

	if in.Password == "" {
		return invalid("password", "The password field is required.")
	}
	if len(in.Password) < 8 {
		return invalid("password", "The password must be at least 8 characters.")
	}

	if in.TransactionPIN == "" {
		return invalid("transaction_pin", "The transaction pin field is required.")
	}
	if !digitsExactly(in.TransactionPIN, 4) {
		return invalid("transaction_pin", "The transaction pin must be 4 digits.")
	}

	if in.Role == 0 {
		return invalid("role", "The role field is required.")
	}
	role, err := user.ParseRole(in.Role)
	if err != nil || role == user.RoleAdmin {
		// Admin accounts are provisioned out of band, never self-served.
		return invalid("role", "The selected role is invalid.")
	}

	return nil
}

// ValidateLogin shape-checks the login form. Passing here says nothing about
// whether the credentials are correct.
func (v *Validator) ValidateLogin(_ context.Context, in LoginInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return invalid("email", "The email field is required.")
	}
	if !validEmail(in.Email) {
		return invalid("email", "The email must be a valid email address.")
	}
	if in.Password == "" {
		return invalid("password", "The password field is required.")
	}
	if len(in.Password) < 8 {
		return invalid("password", "The password must be at least 8 characters.")
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func digitsExactly(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
