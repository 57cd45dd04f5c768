//go:build !windows

package patterns

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLockTimeout is returned when the pattern file lock cannot be acquired
// within the configured timeout.
var ErrLockTimeout = errors.New("pattern file lock acquisition timed out")

// LockOptions configures lock acquisition.
type LockOptions struct {
	// Timeout is the maximum time to wait. Zero makes a single attempt.
	Timeout time.Duration
	// RetryInterval defaults to 50ms.
	RetryInterval time.Duration
}

// DefaultLockOptions returns the default lock options.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Timeout:       5 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// fileLock is an exclusive advisory flock held on a sidecar file.
type fileLock struct {
	file *os.File
}

func acquireLock(path string, opts LockOptions) (*fileLock, error) {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	deadline := time.Now().Add(opts.Timeout)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open lock file: %w", err)
		}
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &fileLock{file: f}, nil
		}
		f.Close()

		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}
		if opts.Timeout == 0 || time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		time.Sleep(opts.RetryInterval)
	}
}

// release is safe to call more than once. The lock file is left in place
// so that concurrent waiters keep locking the same inode.
func (l *fileLock) release() error {
	if l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
