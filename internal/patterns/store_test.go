package patterns

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkantu/psicoscore/internal/scoretype"
)

// stepClock advances one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(NewMemoryBackend(), Config{Now: clock.Now})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func typePtr(t scoretype.ScoreType) *scoretype.ScoreType { return &t }

func correct(score float64, label string, t scoretype.ScoreType) FeedbackInput {
	return FeedbackInput{Score: score, Label: label, DetectedType: t, IsCorrect: true}
}

func TestRecordFeedback_ConfidenceAccumulates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordFeedback(ctx, correct(72, "CI Total", scoretype.Wechsler))
	require.NoError(t, err)
	out, err := s.RecordFeedback(ctx, correct(80, "ci total", scoretype.Wechsler))
	require.NoError(t, err)
	require.NotNil(t, out.Pattern)
	assert.Equal(t, 2, out.Pattern.Confidence)
	assert.Equal(t, 1, out.PatternCount)

	// Incorrect without a correct type resolves nothing.
	out, err = s.RecordFeedback(ctx, FeedbackInput{
		Score: 90, Label: "CI Total", DetectedType: scoretype.Wechsler,
	})
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Nil(t, out.Pattern)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].Confidence)
	assert.Equal(t, 72.0, snap[0].ScoreMin)
	assert.Equal(t, 80.0, snap[0].ScoreMax)
	assert.Equal(t, "CI Total", snap[0].Label)
	assert.Equal(t, OriginFeedback, snap[0].Origin)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Feedback)
	assert.Equal(t, 2, st.Correct)
	assert.Equal(t, 1, st.Incorrect)
}

func TestRecordFeedback_CorrectTypeCreatesPattern(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	out, err := s.RecordFeedback(ctx, FeedbackInput{
		Score:        55,
		Label:        "Ansiedad",
		DetectedType: scoretype.Percentil,
		CorrectType:  typePtr(scoretype.PuntuacionT),
	})
	require.NoError(t, err)
	require.NotNil(t, out.Pattern)
	assert.Equal(t, scoretype.PuntuacionT, out.Pattern.Type)
	assert.Equal(t, 1, out.Pattern.Confidence)
	assert.False(t, out.Pattern.HasRange())
}

func TestRecordFeedback_SameLabelDifferentTypes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordFeedback(ctx, correct(7, "Escala A", scoretype.Eneatipo))
	require.NoError(t, err)
	out, err := s.RecordFeedback(ctx, correct(7, "Escala A", scoretype.Decatipo))
	require.NoError(t, err)
	assert.Equal(t, 2, out.PatternCount)
}

func TestRecordFeedback_InvalidTypeRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordFeedback(ctx, FeedbackInput{
		Score: 10, Label: "X", DetectedType: scoretype.Percentil,
		CorrectType: typePtr("stanine"),
	})
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = s.RecordFeedback(ctx, correct(10, "X", "bogus"))
	require.ErrorIs(t, err, ErrInvalidType)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Feedback)
	assert.Zero(t, st.Patterns)
}

func TestRecordAnnotation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	out, err := s.RecordAnnotation(ctx, AnnotationInput{
		SelectedText: "ICV 112",
		Note:         "Índice de comprensión verbal",
		Type:         typePtr(scoretype.Wechsler),
		Abbreviation: "ICV",
		TestName:     "WISC-V",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Pattern)
	assert.Equal(t, 1, out.Pattern.Confidence)
	assert.Equal(t, 112.0, out.Pattern.ScoreMin)
	assert.Equal(t, 112.0, out.Pattern.ScoreMax)
	assert.Equal(t, OriginAnnotation, out.Pattern.Origin)
	assert.Equal(t, "WISC-V", out.Pattern.TestName)

	out, err = s.RecordAnnotation(ctx, AnnotationInput{
		SelectedText: "icv",
		Type:         typePtr(scoretype.Wechsler),
		Abbreviation: "icv",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Pattern.Confidence)
	assert.Equal(t, 1, out.PatternCount)
}

func TestRecordAnnotation_DefaultRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	out, err := s.RecordAnnotation(ctx, AnnotationInput{
		SelectedText: "rango percentil",
		Type:         typePtr(scoretype.Percentil),
		Abbreviation: "RP",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Pattern.ScoreMin)
	assert.Equal(t, 100.0, out.Pattern.ScoreMax)
	assert.True(t, out.Pattern.HasRange())
}

func TestRecordAnnotation_NoteOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	out, err := s.RecordAnnotation(ctx, AnnotationInput{SelectedText: "algo", Note: "revisar"})
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Nil(t, out.Pattern)
	assert.Zero(t, out.PatternCount)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Annotations)
}

func TestList_OrderedByUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	for _, in := range []FeedbackInput{
		correct(50, "Beta", scoretype.Percentil),
		correct(50, "Alpha", scoretype.Percentil),
		correct(110, "CI", scoretype.Wechsler),
		correct(112, "CI", scoretype.Wechsler),
		correct(6, "Gamma", scoretype.Decatipo),
	} {
		_, err := s.RecordFeedback(ctx, in)
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	got := make([]string, len(list))
	for i, p := range list {
		got[i] = p.Label
	}
	// CI has confidence 2; the rest tie on confidence and are ordered by
	// most recent update.
	assert.Equal(t, []string{"CI", "Gamma", "Alpha", "Beta"}, got)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	out, err := s.RecordFeedback(ctx, correct(87, "Percentil", scoretype.Percentil))
	require.NoError(t, err)
	_, err = s.RecordFeedback(ctx, correct(6, "Eneatipo", scoretype.Eneatipo))
	require.NoError(t, err)

	ok, err := s.Delete(ctx, out.Pattern.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, out.Pattern.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Delete(ctx, "ENEATIPO")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestDelete_IDPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ids := []string{"ab12f0e1-0001", "ab12f0e1-0002", "cd34aa00-0003"}
	next := 0
	s := NewStore(NewMemoryBackend(), Config{NewID: func() string {
		id := ids[next]
		next++
		return id
	}})
	t.Cleanup(func() { _ = s.Close() })

	for _, label := range []string{"CI Total", "Percentil", "Decatipo"} {
		_, err := s.RecordFeedback(ctx, correct(7, label, scoretype.Decatipo))
		require.NoError(t, err)
	}

	ok, err := s.Delete(ctx, "ab12f0e1")
	assert.ErrorIs(t, err, ErrAmbiguousID)
	assert.NotErrorIs(t, err, ErrStoreIO)
	assert.False(t, ok)

	ok, err = s.Delete(ctx, "cd34aa00")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, "ab12f0e1-0002")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, "ab12f0e1")
	require.NoError(t, err)
	assert.True(t, ok, "prefix is unique once the sibling is gone")

	ok, err = s.Delete(ctx, "zz")
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSnapshot_IsACopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RecordFeedback(ctx, correct(87, "Percentil", scoretype.Percentil))
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	snap[0].Confidence = 99

	again, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Confidence)
}

func TestStats_Accuracy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Accuracy)

	_, err = s.RecordFeedback(ctx, correct(87, "Percentil", scoretype.Percentil))
	require.NoError(t, err)
	_, err = s.RecordFeedback(ctx, FeedbackInput{
		Score: 4, Label: "Decatipo", DetectedType: scoretype.Eneatipo,
		CorrectType: typePtr(scoretype.Decatipo),
	})
	require.NoError(t, err)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, st.Accuracy, 1e-9)
	assert.Equal(t, 1, st.PatternsType[scoretype.Percentil])
	assert.Equal(t, 1, st.PatternsType[scoretype.Decatipo])
}

func TestCovers(t *testing.T) {
	t.Parallel()

	single := LearnedPattern{ScoreMin: 72, ScoreMax: 72}
	assert.True(t, single.Covers(75, 10))
	assert.True(t, single.Covers(62, 10))
	assert.False(t, single.Covers(83, 10))

	ranged := LearnedPattern{ScoreMin: 70, ScoreMax: 90}
	assert.True(t, ranged.Covers(70, 10))
	assert.False(t, ranged.Covers(95, 10))
}

func TestConcurrentFeedback_NoLostUpdates(t *testing.T) {
	t.Parallel()

	backends := map[string]func(t *testing.T) Backend{
		"memory": func(*testing.T) Backend { return NewMemoryBackend() },
		"sqlite": func(t *testing.T) Backend {
			b, err := NewSQLiteBackend(t.TempDir()+"/patterns.db", SQLiteOptions{})
			require.NoError(t, err)
			return b
		},
		"file": func(t *testing.T) Backend {
			b, err := NewFileBackend(t.TempDir()+"/patterns.yaml", DefaultLockOptions())
			require.NoError(t, err)
			return b
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := NewStore(open(t), Config{})
			t.Cleanup(func() { _ = s.Close() })

			const writers = 20
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := s.RecordFeedback(ctx, correct(float64(40+i), "Percentil", scoretype.Percentil))
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			snap, err := s.Snapshot(ctx)
			require.NoError(t, err)
			require.Len(t, snap, 1)
			assert.Equal(t, writers, snap[0].Confidence)
			assert.Equal(t, 40.0, snap[0].ScoreMin)
			assert.Equal(t, float64(40+writers-1), snap[0].ScoreMax)

			st, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, writers, st.Feedback)
		})
	}
}

func TestSQLite_TwoHandlesSerialize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := t.TempDir() + "/patterns.db"

	stores := make([]*Store, 2)
	for i := range stores {
		b, err := NewSQLiteBackend(path, SQLiteOptions{})
		require.NoError(t, err)
		stores[i] = NewStore(b, Config{})
		t.Cleanup(func() { _ = b.Close() })
	}

	const perStore = 10
	var wg sync.WaitGroup
	for _, s := range stores {
		for i := 0; i < perStore; i++ {
			wg.Add(1)
			go func(s *Store) {
				defer wg.Done()
				_, err := s.RecordFeedback(ctx, correct(7, "Eneatipo", scoretype.Eneatipo))
				assert.NoError(t, err)
			}(s)
		}
	}
	wg.Wait()

	snap, err := stores[0].Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 2*perStore, snap[0].Confidence)
}

func TestFile_HandlesSerialize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "patterns.yaml")

	stores := make([]*Store, 4)
	for i := range stores {
		b, err := NewFileBackend(path, LockOptions{Timeout: 30 * time.Second, RetryInterval: 5 * time.Millisecond})
		require.NoError(t, err)
		stores[i] = NewStore(b, Config{})
		t.Cleanup(func() { _ = b.Close() })
	}

	const perStore = 10
	var wg sync.WaitGroup
	for _, s := range stores {
		for i := 0; i < perStore; i++ {
			wg.Add(1)
			go func(s *Store) {
				defer wg.Done()
				_, err := s.RecordFeedback(ctx, correct(7, "Eneatipo", scoretype.Eneatipo))
				assert.NoError(t, err)
			}(s)
		}
	}
	wg.Wait()

	snap, err := stores[0].Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, len(stores)*perStore, snap[0].Confidence)
}

func ExampleStore_RecordFeedback() {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend(), Config{})
	defer s.Close()

	out, _ := s.RecordFeedback(ctx, FeedbackInput{
		Score: 72, Label: "CI Total", DetectedType: scoretype.Wechsler, IsCorrect: true,
	})
	fmt.Println(out.OK, out.PatternCount, out.Pattern.Confidence)
	// Output: true 1 1
}
