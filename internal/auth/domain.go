package auth

import (
	"errors"
	"time"
)

// Role gates what a till user may do.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCashier Role = "CASHIER"
)

// User is a till operator account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// deactivated accounts, indistinguishably.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrNotFound indicates a missing user.
	ErrNotFound = errors.New("auth: user not found")
	// ErrValidation indicates bad input.
	ErrValidation = errors.New("auth: invalid input")
)
