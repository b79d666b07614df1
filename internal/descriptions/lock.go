package descriptions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/kozaktomas/sign-vision/internal/constants"
)

const lockRetryDelay = 100 * time.Millisecond

// Lock takes an exclusive lock next to the cache at path, shared by every
// process that rewrites it (the server and the signs commands). It waits up
// to constants.CacheLockTimeout. Call the returned function to release it.
func Lock(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.CacheLockTimeout)
	defer cancel()

	l := flock.New(path + ".lock")
	locked, err := l.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking description cache: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("description cache %s is locked by another process", path)
	}
	return func() { _ = l.Unlock() }, nil
}
