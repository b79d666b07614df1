package database

import (
	"context"
)

// SignReader provides read-only access to the reference store
type SignReader interface {
	// GetByName retrieves a sign by its exact name, returns nil if not found
	GetByName(ctx context.Context, name string) (*StoredSign, error)
	// GetByID retrieves a sign by ID, returns nil if not found
	GetByID(ctx context.Context, id int64) (*StoredSign, error)
	// List returns every sign, newest first
	List(ctx context.Context) ([]StoredSign, error)
	// Count returns the number of stored signs
	Count(ctx context.Context) (int, error)
}

// SignWriter provides write access to the reference store
type SignWriter interface {
	SignReader

	// Create inserts a new sign and fills in ID and CreatedAt.
	// Returns ErrSignExists when the name is already taken.
	Create(ctx context.Context, sign *StoredSign) error

	// Update replaces description and video of the sign with sign.ID.
	// Returns ErrNotFound when no such sign exists.
	Update(ctx context.Context, sign *StoredSign) error

	// Delete removes the sign with the given ID.
	// Returns ErrNotFound when no such sign exists.
	Delete(ctx context.Context, id int64) error
}

// UserReader provides read-only access to accounts
type UserReader interface {
	// GetByUsername retrieves a user, returns nil if not found
	GetByUsername(ctx context.Context, username string) (*User, error)
	// GetUserByID retrieves a user by ID, returns nil if not found
	GetUserByID(ctx context.Context, id int64) (*User, error)
	// ListUsers returns every account ordered by username
	ListUsers(ctx context.Context) ([]User, error)
}

// UserWriter provides write access to accounts
type UserWriter interface {
	UserReader

	// CreateUser inserts a new account and fills in ID and CreatedAt.
	// Returns ErrUserExists when the username is already taken.
	CreateUser(ctx context.Context, user *User) error

	// SetActive enables or disables an account.
	// Returns ErrNotFound when no such user exists.
	SetActive(ctx context.Context, id int64, active bool) error
}
