package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Backend is the persistence port of the store.
type Backend interface {
	// Load returns the persisted document. Missing or empty storage yields
	// an empty document, not an error.
	Load(ctx context.Context) (*Document, error)

	// Update loads the document, applies fn and persists the result as one
	// atomic step. If fn returns an error nothing is written and the error
	// is returned unchanged. Concurrent Updates are serialized.
	Update(ctx context.Context, fn func(*Document) error) error

	Close() error
}

// MemoryBackend keeps the document in process memory.
type MemoryBackend struct {
	mu  sync.RWMutex
	doc *Document
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{doc: NewDocument()}
}

func (m *MemoryBackend) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.Clone(), nil
}

func (m *MemoryBackend) Update(ctx context.Context, fn func(*Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.doc.Clone()
	if err := fn(work); err != nil {
		return err
	}
	m.doc = work
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// Backend kinds accepted by OpenBackend.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// OpenBackend opens the backend named by kind. path is ignored for the
// memory backend.
func OpenBackend(kind, path string, lockTimeout time.Duration, logger *slog.Logger) (Backend, error) {
	switch kind {
	case BackendSQLite, "":
		return NewSQLiteBackend(path, SQLiteOptions{BusyTimeout: lockTimeout, Logger: logger})
	case BackendFile:
		opts := DefaultLockOptions()
		if lockTimeout > 0 {
			opts.Timeout = lockTimeout
		}
		return NewFileBackend(path, opts)
	case BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown pattern store backend %q", kind)
	}
}
