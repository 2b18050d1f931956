package user

import (
	"errors"
	"time"
)

// User is the credential shape shared by the admin and staff partitions.
// Email is unique within its own partition only; the same address may exist
// as an admin, a staff and a member at once, those are separate identities.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	NotifyEmail  string    `json:"notifyEmail,omitempty"` // staff only: secondary contact
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("user not found")

type CreateRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=120"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	NotifyEmail string `json:"notifyEmail" binding:"omitempty,email"`
}

// UpdateFlagsRequest covers the admin-only soft toggles.
type UpdateFlagsRequest struct {
	IsActive *bool `json:"isActive"`
}
