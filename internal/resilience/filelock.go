package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout means another process held the store lock for the whole
// acquire window. The caller's run is abandoned, never silently skipped.
var ErrLockTimeout = errors.New("resilience: lock acquisition timed out")

// FileLock serializes the aggregate-write-then-commit sequence across
// processes with an advisory file lock.
type FileLock struct {
	path    string
	timeout time.Duration
}

func NewFileLock(path string, timeout time.Duration) *FileLock {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FileLock{path: path, timeout: timeout}
}

// WithLock acquires the lock, runs fn, and releases. Acquisition polls
// until the timeout elapses.
func (l *FileLock) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	fl := flock.New(l.path)
	lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ok, err := fl.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s held for over %s", ErrLockTimeout, l.path, l.timeout)
		}
		return fmt.Errorf("resilience: acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockTimeout, l.path)
	}
	defer fl.Unlock()
	return fn(ctx)
}
