package patterns

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// walCheckpointInterval bounds WAL growth for long-lived processes.
	walCheckpointInterval = 5 * time.Minute

	// DefaultDocumentKey names the row holding the pattern document.
	DefaultDocumentKey = "default"
)

// ErrSchemaVersionTooNew is returned when the database was written by a
// newer build.
var ErrSchemaVersionTooNew = errors.New("pattern database schema is newer than supported; upgrade psicoscore")

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{version: 1, sql: `
		CREATE TABLE IF NOT EXISTS schema_meta (
			version            INTEGER PRIMARY KEY,
			applied_at_unix_ms INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pattern_documents (
			key        TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_ms INTEGER NOT NULL
		);
	`},
}

// SQLiteOptions configures a SQLiteBackend.
type SQLiteOptions struct {
	// DocumentKey selects the document row. Defaults to DefaultDocumentKey.
	DocumentKey string
	// BusyTimeout is how long a writer waits for another process's
	// transaction. Defaults to 5s.
	BusyTimeout time.Duration
	Logger      *slog.Logger
}

// SQLiteBackend stores the document as a JSON row. Updates run inside
// BEGIN IMMEDIATE so writers in other processes serialize on the database
// write lock.
type SQLiteBackend struct {
	db     *sql.DB
	key    string
	logger *slog.Logger

	stopCh    chan struct{}
	stoppedCh chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewSQLiteBackend opens (creating if needed) the database at path and
// applies pending migrations.
func NewSQLiteBackend(path string, opts SQLiteOptions) (*SQLiteBackend, error) {
	if path == "" {
		return nil, errors.New("sqlite backend: empty database path")
	}
	if opts.DocumentKey == "" {
		opts.DocumentKey = DefaultDocumentKey
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	b := &SQLiteBackend{
		db:        db,
		key:       opts.DocumentKey,
		logger:    opts.Logger,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	if err := b.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	go b.walCheckpointLoop()
	return b, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (*Document, error) {
	var body string
	err := b.db.QueryRowContext(ctx,
		`SELECT body FROM pattern_documents WHERE key = ?`, b.key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern document: %w", err)
	}
	return decodeJSON(body)
}

func (b *SQLiteBackend) Update(ctx context.Context, fn func(*Document) error) (err error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var body string
	doc := NewDocument()
	err = conn.QueryRowContext(ctx,
		`SELECT body FROM pattern_documents WHERE key = ?`, b.key).Scan(&body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read pattern document: %w", err)
	default:
		if doc, err = decodeJSON(body); err != nil {
			return err
		}
	}

	if err := fn(doc); err != nil {
		return err
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode pattern document: %w", err)
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO pattern_documents (key, body, updated_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_ms = excluded.updated_ms
	`, b.key, string(out), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write pattern document: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit pattern document: %w", err)
	}
	committed = true
	return nil
}

// Close stops the checkpoint loop and closes the database. It is safe to
// call Close multiple times.
func (b *SQLiteBackend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.stoppedCh

		_, _ = b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		b.closeErr = b.db.Close()
	})
	return b.closeErr
}

func (b *SQLiteBackend) walCheckpointLoop() {
	defer close(b.stoppedCh)

	ticker := time.NewTicker(walCheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			if _, err := b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				b.logger.Warn("WAL checkpoint failed", "error", err)
			}
		}
	}
}

func (b *SQLiteBackend) migrate(ctx context.Context) error {
	current, err := b.schemaVersion(ctx)
	if err != nil {
		return err
	}
	latest := migrations[len(migrations)-1].version
	if current > latest {
		return fmt.Errorf("%w: database v%d, supported v%d", ErrSchemaVersionTooNew, current, latest)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := b.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		_, err := b.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO schema_meta (version, applied_at_unix_ms)
			VALUES (?, ?)
		`, m.version, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.version, err)
		}
	}
	return nil
}

func (b *SQLiteBackend) schemaVersion(ctx context.Context) (int, error) {
	var name string
	err := b.db.QueryRowContext(ctx, `
		SELECT name FROM sqlite_master WHERE type='table' AND name='schema_meta'
	`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check for schema_meta table: %w", err)
	}

	var version int
	if err := b.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_meta`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func decodeJSON(body string) (*Document, error) {
	doc := NewDocument()
	if body == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(body), doc); err != nil {
		return nil, fmt.Errorf("failed to decode pattern document: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	return doc, nil
}
