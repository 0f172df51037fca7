package model

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies which role-entity table owns an account. Exactly one
// role-entity row references a given account id.
type Role string

const (
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
	RoleAdmin   Role = "Admin"
)

// ParseRole normalizes a stored role string. Matching is case-insensitive
// because legacy rows mix casing ("doctor", "DOCTOR", "Doctor").
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "doctor":
		return RoleDoctor, nil
	case "patient":
		return RolePatient, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IDPrefix is the leading character of account ids generated for this role,
// e.g. "D007" for a doctor.
func (r Role) IDPrefix() string {
	switch r {
	case RoleDoctor:
		return "D"
	case RolePatient:
		return "P"
	case RoleAdmin:
		return "A"
	}
	return ""
}

func (r Role) String() string { return string(r) }

type Account struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=Doctor Patient Admin doctor patient admin"`
	Name      string `json:"name" binding:"required,max=120"`
	Phone     string `json:"phone" binding:"max=32"`
	Specialty string `json:"specialty" binding:"max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	AccountID   string    `json:"account_id"`
	Role        Role      `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}
