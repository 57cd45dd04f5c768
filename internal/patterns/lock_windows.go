//go:build windows

package patterns

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows"
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
		ol := new(windows.Overlapped)
		err = windows.LockFileEx(windows.Handle(f.Fd()),
			windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ol)
		if err == nil {
			return &fileLock{file: f}, nil
		}
		f.Close()

		if !errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}
		if opts.Timeout == 0 || time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		time.Sleep(opts.RetryInterval)
	}
}

func (l *fileLock) release() error {
	if l.file == nil {
		return nil
	}
	ol := new(windows.Overlapped)
	err := windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, ol)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
