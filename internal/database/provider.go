package database

import (
	"context"
	"fmt"
)

var (
	postgresSignWriter  func() SignWriter
	postgresUserWriter  func() UserWriter
	postgresInitialized bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	signWriter func() SignWriter,
	userWriter func() UserWriter,
) {
	postgresSignWriter = signWriter
	postgresUserWriter = userWriter
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetSignWriter returns a SignWriter from the PostgreSQL backend
func GetSignWriter(ctx context.Context) (SignWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresSignWriter == nil {
		return nil, fmt.Errorf("PostgreSQL sign writer not registered")
	}
	return postgresSignWriter(), nil
}

// GetSignReader returns a SignReader from the PostgreSQL backend
func GetSignReader(ctx context.Context) (SignReader, error) {
	return GetSignWriter(ctx)
}

// GetUserWriter returns a UserWriter from the PostgreSQL backend
func GetUserWriter(ctx context.Context) (UserWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresUserWriter == nil {
		return nil, fmt.Errorf("PostgreSQL user writer not registered")
	}
	return postgresUserWriter(), nil
}
