package database

import "errors"

var (
	// ErrSignExists is returned when creating a sign whose name is taken.
	ErrSignExists = errors.New("sign already exists")

	// ErrUserExists is returned when creating a user whose username is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrNotFound is returned by updates and deletes of a missing row.
	ErrNotFound = errors.New("not found")
)
