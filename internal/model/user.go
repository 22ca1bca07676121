package model

import "time"

// Role is the authorization level stored in users.role.
type Role string

const (
	RoleGuest      Role = "GUEST"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is an account. Username, Email and Phone are unique; Username and
// Email are stored lowercase.
type User struct {
	ID           uint64    `json:"id"`        // users.id
	Name         string    `json:"name"`      // users.name
	Username     string    `json:"username"`  // users.username
	Email        string    `json:"email"`     // users.email
	Phone        string    `json:"phone"`     // users.phone
	PasswordHash string    `json:"-"`         // users.password_hash
	ImageURL     string    `json:"imageUrl"`  // users.image_url
	Role         Role      `json:"role"`      // users.role
	CreatedAt    time.Time `json:"createdAt"` // users.created_at
}

// RefreshToken is a row of refresh_tokens. Only the SHA-256 hash of the raw
// token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
