package database

import (
	"time"
)

// StoredSign is a reference sign as persisted in the reference store
type StoredSign struct {
	ID          int64
	Name        string // unique, also the stem of the default video filename
	Description string // movement description, may be empty
	VideoPath   string // filename inside the avatars directory
	CreatedAt   time.Time
}

// HasDescription reports whether the sign takes part in matching.
// Signs without a description are left out of the description cache.
func (s *StoredSign) HasDescription() bool {
	return s.Description != ""
}

// User is an account allowed to use the analyze API
type User struct {
	ID           int64
	Username     string
	PasswordHash string // bcrypt
	FullName     string
	Role         string // RoleStudent or RoleAdmin
	SchoolName   string
	IsActive     bool
	CreatedAt    time.Time
}

// IsAdmin reports whether the user may manage reference signs.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
