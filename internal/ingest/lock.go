package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is created in the data directory while an ingest runs.
const LockFileName = "ingest.lock"

// FileLock serializes ingestion across processes sharing a data directory,
// e.g. a running server and a concurrent `persoqa ingest`.
type FileLock struct {
	path  string
	flock *flock.Flock
}

// NewFileLock returns an unlocked lock at <dir>/ingest.lock.
func NewFileLock(dir string) *FileLock {
	p := filepath.Join(dir, LockFileName)
	return &FileLock{path: p, flock: flock.New(p)}
}

// Lock waits for the lock until ctx is done.
func (l *FileLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.flock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire ingest lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to acquire ingest lock %s", l.path)
	}
	return nil
}

// TryLock takes the lock without waiting.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return l.flock.TryLock()
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}
	return l.flock.Unlock()
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}
