package account

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhaka-pay/dhaka_pay/internal/user"
)

func validRegister() RegisterInput {
	return RegisterInput{
		Name:           "Alice",
		Email:          "a@x.com",
		Phone:          "+8801000000000",
		Password:       "password1",
		TransactionPIN: "1234",
		Role:           int(user.RoleUser),
	}
}

func TestValidateRegisterAcceptsValidInput(t *testing.T) {
	v := NewValidator(NewMemoryStore())
	assert.NoError(t, v.ValidateRegister(context.Background(), validRegister()))
}

func TestValidateRegisterRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RegisterInput)
		field   string
		message string
	}{
		{"missing name", func(in *RegisterInput) { in.Name = "" }, "name", "The name field is required."},
		{"name too long", func(in *RegisterInput) { in.Name = strings.Repeat("a", 256) }, "name", "The name may not be greater than 255 characters."},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, "email", "The email field is required."},
		{"malformed email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email", "The email must be a valid email address."},
		{"email too long", func(in *RegisterInput) { in.Email = strings.Repeat("a", 250) + "@x.com" }, "email", "The email may not be greater than 255 characters."},
		{"missing phone", func(in *RegisterInput) { in.Phone = "" }, "phone", "The phone field is required."},
		{"phone too long", func(in *RegisterInput) { in.Phone = strings.Repeat("1", 21) }, "phone", "The phone may not be greater than 20 characters."},
		{"missing password", func(in *RegisterInput) { in.Password = "" }, "password", "The password field is required."},
		{"short password", func(in *RegisterInput) { in.Password = "short1" }, "password", "The password must be at least 8 characters."},
		{"missing pin", func(in *RegisterInput) { in.TransactionPIN = "" }, "transaction_pin", "The transaction pin field is required."},
		{"short pin", func(in *RegisterInput) { in.TransactionPIN = "123" }, "transaction_pin", "The transaction pin must be 4 digits."},
		{"alphabetic pin", func(in *RegisterInput) { in.TransactionPIN = "12a4" }, "transaction_pin", "The transaction pin must be 4 digits."},
		{"missing role", func(in *RegisterInput) { in.Role = 0 }, "role", "The role field is required."},
		{"unknown role", func(in *RegisterInput) { in.Role = 7 }, "role", "The selected role is invalid."},
		{"admin role rejected", func(in *RegisterInput) { in.Role = int(user.RoleAdmin) }, "role", "The selected role is invalid."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := NewValidator(NewMemoryStore())
			in := validRegister()
			tc.mutate(&in)

			err := v.ValidateRegister(context.Background(), in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, tc.message, verr.Message)
		})
	}
}

func TestValidateRegisterReportsFirstViolationOnly(t *testing.T) {
	v := NewValidator(NewMemoryStore())
	in := validRegister()
	in.Name = ""
	in.Email = "broken"
	in.Password = "x"

	err := v.ValidateRegister(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field, "first declared field wins")
}

func TestValidateRegisterUniqueness(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, nil, "")
	_, _, err := svc.Register(context.Background(), validRegister())
	require.NoError(t, err)

	v := NewValidator(store)

	in := validRegister()
	in.Phone = "+8801111111111"
	err = v.ValidateRegister(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "The email has already been taken.", verr.Message)

	in = validRegister()
	in.Email = "fresh@x.com"
	err = v.ValidateRegister(context.Background(), in)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "The phone has already been taken.", verr.Message)
}

func TestValidateRegisterIsPure(t *testing.T) {
	store := NewMemoryStore()
	v := NewValidator(store)
	require.NoError(t, v.ValidateRegister(context.Background(), validRegister()))

	exists, err := store.EmailExists(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, exists, "validation must not persist anything")
}

func TestValidateLogin(t *testing.T) {
	v := NewValidator(NewMemoryStore())
	ctx := context.Background()

	assert.NoError(t, v.ValidateLogin(ctx, LoginInput{Email: "a@x.com", Password: "password1"}))

	tests := []struct {
		name    string
		in      LoginInput
		message string
	}{
		{"missing email", LoginInput{Password: "password1"}, "The email field is required."},
		{"malformed email", LoginInput{Email: "nope", Password: "password1"}, "The email must be a valid email address."},
		{"missing password", LoginInput{Email: "a@x.com"}, "The password field is required."},
		{"short password", LoginInput{Email: "a@x.com", Password: "short"}, "The password must be at least 8 characters."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateLogin(ctx, tc.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.message, verr.Message)
		})
	}
}

func TestValidateLoginIsShapeCheckOnly(t *testing.T) {
	// A well-formed login for a nonexistent account passes validation; only
	// the provisioner decides whether the credentials are correct.
	v := NewValidator(NewMemoryStore())
	assert.NoError(t, v.ValidateLogin(context.Background(), LoginInput{
		Email:    "ghost@x.com",
		Password: "password1",
	}))
}
