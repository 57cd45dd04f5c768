package patterns

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkantu/psicoscore/internal/scoretype"
)

func TestFileBackend_MissingAndEmptyFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	b, err := NewFileBackend(filepath.Join(dir, "nested", "patterns.yaml"), DefaultLockOptions())
	require.NoError(t, err)
	doc, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Patterns)
	assert.Equal(t, DocumentVersion, doc.Version)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	b, err = NewFileBackend(empty, DefaultLockOptions())
	require.NoError(t, err)
	doc, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Patterns)
}

func TestFileBackend_PersistsAcrossHandles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "patterns.yaml")

	b, err := NewFileBackend(path, DefaultLockOptions())
	require.NoError(t, err)
	s := NewStore(b, Config{})
	_, err = s.RecordFeedback(ctx, correct(6, "Decatipo", scoretype.Decatipo))
	require.NoError(t, err)
	_, err = s.RecordAnnotation(ctx, AnnotationInput{
		SelectedText: "PE 12", Type: typePtr(scoretype.PuntuacionEscalar), Abbreviation: "PE",
	})
	require.NoError(t, err)

	b2, err := NewFileBackend(path, DefaultLockOptions())
	require.NoError(t, err)
	doc, err := b2.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Patterns, 2)
	assert.Equal(t, scoretype.Decatipo, doc.Patterns[0].Type)
	assert.Equal(t, 12.0, doc.Patterns[1].ScoreMin)
	require.Len(t, doc.Annotations, 1)
	require.NotNil(t, doc.Annotations[0].Type)
	assert.Equal(t, scoretype.PuntuacionEscalar, *doc.Annotations[0].Type)
	assert.False(t, doc.Patterns[0].CreatedAt.IsZero())
}

func TestFileBackend_CorruptDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("patterns: [unterminated"), 0o644))

	b, err := NewFileBackend(path, DefaultLockOptions())
	require.NoError(t, err)
	s := NewStore(b, Config{})

	_, err = s.Snapshot(ctx)
	require.ErrorIs(t, err, ErrStoreIO)

	_, err = s.RecordFeedback(ctx, correct(50, "Percentil", scoretype.Percentil))
	require.ErrorIs(t, err, ErrStoreIO)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "patterns: [unterminated", string(data))
}

func TestFileBackend_LockTimeoutLeavesDocumentUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "patterns.yaml")

	b, err := NewFileBackend(path, LockOptions{Timeout: 50 * time.Millisecond, RetryInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	s := NewStore(b, Config{})
	_, err = s.RecordFeedback(ctx, correct(50, "Percentil", scoretype.Percentil))
	require.NoError(t, err)

	held, err := acquireLock(path+".lock", LockOptions{})
	require.NoError(t, err)

	_, err = s.RecordFeedback(ctx, correct(60, "Percentil", scoretype.Percentil))
	require.ErrorIs(t, err, ErrLockTimeout)
	require.ErrorIs(t, err, ErrStoreIO)
	require.NoError(t, held.release())

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].Confidence)
	assert.Equal(t, 50.0, snap[0].ScoreMax)
}

func TestSQLiteBackend_EmptyAndReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "patterns.db")

	b, err := NewSQLiteBackend(path, SQLiteOptions{})
	require.NoError(t, err)
	doc, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Patterns)

	s := NewStore(b, Config{})
	_, err = s.RecordFeedback(ctx, correct(132, "WISC CI", scoretype.Wechsler))
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	b, err = NewSQLiteBackend(path, SQLiteOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	doc, err = b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Patterns, 1)
	assert.Equal(t, "WISC CI", doc.Patterns[0].Label)
	assert.Len(t, doc.Feedback, 1)
}

func TestSQLiteBackend_FailedUpdateRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "patterns.db"), SQLiteOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	err = b.Update(ctx, func(doc *Document) error {
		doc.Patterns = append(doc.Patterns, LearnedPattern{Label: "x", Type: scoretype.Percentil})
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	doc, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Patterns)
}

func TestSQLiteBackend_SchemaTooNew(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "patterns.db")

	b, err := NewSQLiteBackend(path, SQLiteOptions{})
	require.NoError(t, err)
	_, err = b.db.Exec(`INSERT INTO schema_meta (version, applied_at_unix_ms) VALUES (99, 0)`)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = NewSQLiteBackend(path, SQLiteOptions{})
	require.ErrorIs(t, err, ErrSchemaVersionTooNew)
}

func TestSQLiteBackend_EmptyBodyIsEmptyDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "patterns.db"), SQLiteOptions{DocumentKey: "alt"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = b.db.Exec(`INSERT INTO pattern_documents (key, body, updated_ms) VALUES ('alt', '', 0)`)
	require.NoError(t, err)

	doc, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Patterns)
}

func TestOpenBackend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	for _, kind := range []string{BackendMemory, BackendFile, BackendSQLite} {
		b, err := OpenBackend(kind, filepath.Join(dir, kind+".store"), time.Second, nil)
		require.NoError(t, err, kind)
		require.NoError(t, b.Close(), kind)
	}

	_, err := OpenBackend("redis", "", 0, nil)
	require.Error(t, err)
}
