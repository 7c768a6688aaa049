package auth

import (
	"context"
	"time"
)

// User represents a user account
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name,omitempty"`
	HashedPassword string     `json:"-"`
	Disabled       bool       `json:"disabled"`
	IsAdmin        bool       `json:"is_admin"`
	CreationDate   time.Time  `json:"creation_date"`
	DisableDate    *time.Time `json:"disable_date,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// UserFinder looks up users for session resolution. Implemented by the
// storage layer; kept narrow so the resolver does not depend on it.
type UserFinder interface {
	// FindByUsername returns the user or ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*User, error)
}
