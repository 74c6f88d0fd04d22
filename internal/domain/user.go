package domain

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a storefront account.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         *string   `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Image        *string   `json:"image" db:"image"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash *string   `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"-" db:"updated_at"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPassword reports whether the user can sign in with credentials.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// ProfileUpdate carries optional profile changes. Nil fields are left
// untouched; an empty Image removes the avatar.
type ProfileUpdate struct {
	Name  *string
	Image *string
	Role  *Role
}
