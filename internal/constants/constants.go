// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Video limits
const (
	// MaxFileSizeMB is the largest video, in MiB, sent to the vision model
	MaxFileSizeMB = 20

	// DefaultVideoMIME is used for unknown file extensions
	DefaultVideoMIME = "video/mp4"

	// DefaultVideoFilename is assumed when an upload carries no filename
	DefaultVideoFilename = "video.mp4"
)

// Upstream response limits
const (
	// MaxErrorDetailRunes bounds the response excerpt kept on upstream errors
	MaxErrorDetailRunes = 500
)

// Storage layout
const (
	// AvatarsSubdir is the media subdirectory holding reference videos
	AvatarsSubdir = "avatars"

	// AvatarExt is the extension the bulk import and generator look for
	AvatarExt = ".mp4"
)

// Description cache
const (
	// CacheLockTimeout bounds the wait for another process rewriting the cache
	CacheLockTimeout = 30 * time.Second
)
