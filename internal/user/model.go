package user

import (
	"fmt"
	"time"
)

// Role enumerates account roles. Values match the wire contract
// (1=User, 2=Agent, 3=Admin).
type Role int

const (
	RoleUser  Role = 1
	RoleAgent Role = 2
	RoleAdmin Role = 3
)

// ParseRole converts a wire value into a Role. Admin is a valid role but is
// never accepted at self-registration; callers enforce that separately.
func ParseRole(v int) (Role, error) {
	switch Role(v) {
	case RoleUser, RoleAgent, RoleAdmin:
		return Role(v), nil
	default:
		return 0, fmt.Errorf("unknown role %d", v)
	}
}

// Label returns the display name for the role.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAgent:
		return "Agent"
	case RoleAdmin:
		return "Admin"
	default:
		return "Unknown"
	}
}

// User is a registered account holder. PasswordHash and PINHash are bcrypt
// digests and must never appear in client-facing representations.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash []byte
	PINHash      []byte
	Role         Role
	CreatedAt    time.Time
}

// Public is the client-facing representation of a User. Secrets are excluded.
type Public struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      int       `json:"role"`
	RoleLabel string    `json:"role_label"`
	CreatedAt time.Time `json:"created_at"`
}

// Sanitize strips secret material for external responses.
func (u User) Sanitize() Public {
	return Public{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      int(u.Role),
		RoleLabel: u.Role.Label(),
		CreatedAt: u.CreatedAt,
	}
}
