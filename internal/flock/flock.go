// Package flock provides a cross-process advisory file lock. The admin
// dataset cache uses one lock file per dataset so that a download happens at
// most once per machine regardless of how many processes race for it.
package flock

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Lock is an exclusive advisory lock backed by a lock file.
type Lock struct {
	path string
	f    *os.File
}

// New creates a Lock for the given lock-file path. The file is created on
// first acquisition and never removed: removing a lock file while another
// process holds it would split the lock.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Acquire takes the exclusive lock, blocking until it is available or ctx is
// done. Blocking is implemented as a non-blocking flock retried on a short
// interval so that cancellation is honored.
func (l *Lock) Acquire(ctx context.Context) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", l.path, err)
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			l.f = f
			return nil
		}
		if err != unix.EWOULDBLOCK {
			_ = f.Close()
			return fmt.Errorf("flock %s: %w", l.path, err)
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release drops the lock. Safe to call on a never-acquired lock.
func (l *Lock) Release() error {
	if l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	cerr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("funlock %s: %w", l.path, err)
	}
	return cerr
}
