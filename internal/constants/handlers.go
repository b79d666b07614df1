// Package constants provides shared constants used across the codebase.
package constants

import "time"

// File upload constants
const (
	// MaxUploadSize caps multipart bodies (64MB). It sits above MaxFileSizeMB
	// so oversized videos get the localized size error instead of a parse failure.
	MaxUploadSize = 64 << 20

	// MultipartMemory is the part of a multipart form kept in memory
	MultipartMemory = 32 << 20
)

// Server timeouts
const (
	// RequestTimeout bounds a whole request; analyze makes a describe call
	// and a match call back to back.
	RequestTimeout = 8 * time.Minute

	// ShutdownTimeout is the grace period for in-flight requests
	ShutdownTimeout = 30 * time.Second
)

// Background jobs
const (
	// EventChannelBuffer is the per-listener SSE event buffer
	EventChannelBuffer = 100

	// DefaultConcurrency is the number of parallel describe requests in batch jobs
	DefaultConcurrency = 3
)

// Job bookkeeping
const (
	// JobRetention is how long a finished job stays readable
	JobRetention = time.Hour
)
