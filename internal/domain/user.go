package domain

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognised by the platform
const (
	RoleCustomer          = "customer"
	RoleDeliveryPersonnel = "delivery_personnel"
	RoleAdmin             = "admin"
)

// ValidRole reports whether role is one of the recognised roles
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleDeliveryPersonnel, RoleAdmin:
		return true
	}
	return false
}

// User represents an account on the platform
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RefreshToken represents a stored refresh token
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}
