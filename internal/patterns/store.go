package patterns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arkantu/psicoscore/internal/scan"
	"github.com/arkantu/psicoscore/internal/scoretype"
)

var (
	// ErrInvalidType is returned when feedback or an annotation names a
	// score type outside the closed enumeration. Nothing is written.
	ErrInvalidType = errors.New("invalid score type")

	// ErrStoreIO wraps every persistence failure. Nothing is written.
	ErrStoreIO = errors.New("pattern store io failure")

	// ErrAmbiguousID is returned by Delete when a key is a prefix of more
	// than one pattern ID and matches no ID or label exactly.
	ErrAmbiguousID = errors.New("ambiguous pattern id prefix")
)

// errNoChange aborts an Update without writing.
var errNoChange = errors.New("no change")

// defaultAnnotationRange seeds annotation patterns whose selection carries
// no number.
var defaultAnnotationRange = [2]float64{0, 100}

var firstNumber = regexp.MustCompile(`[-+−]?\d+(?:[.,]\d+)?`)

// Config configures a Store.
type Config struct {
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Store owns the learned patterns and the feedback and annotation logs.
// Reads load a fresh document from the backend. Writes are serialized by
// the store and applied atomically by the backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	mu sync.Mutex
}

// NewStore creates a Store on top of backend.
func NewStore(backend Backend, cfg Config) *Store {
	s := &Store{
		backend: backend,
		logger:  cfg.Logger,
		now:     cfg.Now,
		newID:   cfg.NewID,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Outcome reports the result of a feedback or annotation ingestion.
type Outcome struct {
	OK           bool
	PatternCount int
	// Pattern is the created or updated pattern, nil when the event only
	// touched the audit log.
	Pattern *LearnedPattern
}

// FeedbackInput is a user verdict on one classified score.
type FeedbackInput struct {
	Score        float64
	Label        string
	DetectedType scoretype.ScoreType
	IsCorrect    bool
	CorrectType  *scoretype.ScoreType
	Context      string
}

// AnnotationInput is a user note on a text selection.
type AnnotationInput struct {
	SelectedText string
	Note         string
	Type         *scoretype.ScoreType
	Abbreviation string
	TestName     string
}

// Snapshot returns a copy of the current patterns in store order.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return Snapshot(doc.Patterns), nil
}

// RecordFeedback appends a feedback entry and, when the verdict resolves to
// a score type, creates or strengthens the matching pattern.
func (s *Store) RecordFeedback(ctx context.Context, in FeedbackInput) (Outcome, error) {
	if in.DetectedType != "" && !in.DetectedType.Valid() {
		return Outcome{}, fmt.Errorf("%w: detected type %q", ErrInvalidType, in.DetectedType)
	}
	if in.CorrectType != nil && !in.CorrectType.Valid() {
		return Outcome{}, fmt.Errorf("%w: correct type %q", ErrInvalidType, *in.CorrectType)
	}

	final := in.DetectedType
	if !in.IsCorrect && in.CorrectType != nil {
		final = *in.CorrectType
	}
	label := strings.TrimSpace(in.Label)
	resolved := (in.IsCorrect || in.CorrectType != nil) && final != "" && label != ""

	now := s.now().UTC()
	entry := FeedbackEntry{
		ID:           s.newID(),
		Timestamp:    now,
		Score:        in.Score,
		Label:        in.Label,
		DetectedType: in.DetectedType,
		IsCorrect:    in.IsCorrect,
		CorrectType:  in.CorrectType,
		Context:      in.Context,
	}

	var out Outcome
	err := s.update(ctx, "record feedback", func(doc *Document) error {
		doc.Feedback = append(doc.Feedback, entry)
		if resolved {
			p := upsert(doc, label, final, now, func() LearnedPattern {
				return LearnedPattern{
					ID:            s.newID(),
					Label:         label,
					Type:          final,
					Confidence:    1,
					ScoreMin:      in.Score,
					ScoreMax:      in.Score,
					CreatedAt:     now,
					LastUpdatedAt: now,
					Origin:        OriginFeedback,
				}
			}, func(p *LearnedPattern) {
				p.widen(in.Score)
			})
			out.Pattern = &p
		}
		out.PatternCount = len(doc.Patterns)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out.OK = true
	s.logMutation("feedback recorded", out)
	return out, nil
}

// RecordAnnotation appends an annotation and, when it names both an
// abbreviation and a score type, creates or strengthens the pattern keyed
// by the abbreviation.
func (s *Store) RecordAnnotation(ctx context.Context, in AnnotationInput) (Outcome, error) {
	if in.Type != nil && !in.Type.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidType, *in.Type)
	}

	abbr := strings.TrimSpace(in.Abbreviation)
	now := s.now().UTC()
	ann := Annotation{
		ID:           s.newID(),
		Timestamp:    now,
		SelectedText: in.SelectedText,
		Note:         in.Note,
		Type:         in.Type,
		Abbreviation: in.Abbreviation,
		TestName:     in.TestName,
	}

	var out Outcome
	err := s.update(ctx, "record annotation", func(doc *Document) error {
		doc.Annotations = append(doc.Annotations, ann)
		if abbr != "" && in.Type != nil {
			t := *in.Type
			p := upsert(doc, abbr, t, now, func() LearnedPattern {
				lo, hi := seedRange(in.SelectedText)
				return LearnedPattern{
					ID:            s.newID(),
					Label:         abbr,
					Type:          t,
					Confidence:    1,
					ScoreMin:      lo,
					ScoreMax:      hi,
					CreatedAt:     now,
					LastUpdatedAt: now,
					Origin:        OriginAnnotation,
					TestName:      in.TestName,
				}
			}, func(p *LearnedPattern) {
				if p.TestName == "" {
					p.TestName = in.TestName
				}
			})
			out.Pattern = &p
		}
		out.PatternCount = len(doc.Patterns)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out.OK = true
	s.logMutation("annotation recorded", out)
	return out, nil
}

// upsert strengthens the pattern for (label, t) or appends a new one, and
// returns a copy of the result.
func upsert(doc *Document, label string, t scoretype.ScoreType, now time.Time,
	create func() LearnedPattern, touch func(*LearnedPattern)) LearnedPattern {
	if i := doc.find(label, t); i >= 0 {
		p := &doc.Patterns[i]
		p.Confidence++
		touch(p)
		p.LastUpdatedAt = now
		return *p
	}
	p := create()
	doc.Patterns = append(doc.Patterns, p)
	return p
}

// seedRange returns a single-point range at the first number in text, or
// the default range when text has none.
func seedRange(text string) (float64, float64) {
	for _, raw := range firstNumber.FindAllString(text, -1) {
		if v, ok := scan.ParseNumber(raw); ok {
			return v, v
		}
	}
	return defaultAnnotationRange[0], defaultAnnotationRange[1]
}

// List returns all patterns ordered by usage: confidence descending, then
// most recently updated, then label.
func (s *Store) List(ctx context.Context) ([]LearnedPattern, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := doc.Patterns
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.LastUpdatedAt.Equal(b.LastUpdatedAt) {
			return a.LastUpdatedAt.After(b.LastUpdatedAt)
		}
		return strings.ToLower(a.Label) < strings.ToLower(b.Label)
	})
	return out, nil
}

// Delete removes the pattern whose ID is key, else the first pattern whose
// label equals key case-insensitively, else the one pattern whose ID starts
// with key. It reports false when nothing matched and ErrAmbiguousID when
// the prefix fits several IDs.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, nil
	}

	var (
		removed   LearnedPattern
		ambiguous bool
	)
	err := s.update(ctx, "delete pattern", func(doc *Document) error {
		idx, n := findPattern(doc.Patterns, key)
		if n > 1 {
			ambiguous = true
		}
		if idx < 0 {
			return errNoChange
		}
		removed = doc.Patterns[idx]
		doc.Patterns = append(doc.Patterns[:idx], doc.Patterns[idx+1:]...)
		return nil
	})
	if errors.Is(err, errNoChange) {
		if ambiguous {
			return false, fmt.Errorf("%w: %q", ErrAmbiguousID, key)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Debug("pattern deleted", "id", removed.ID, "label", removed.Label, "type", removed.Type)
	return true, nil
}

// findPattern resolves a Delete key to an index. n counts the ID prefix
// matches when neither an ID nor a label matched exactly; idx is -1 unless
// exactly one pattern was selected.
func findPattern(list []LearnedPattern, key string) (idx, n int) {
	for i, p := range list {
		if p.ID == key {
			return i, 1
		}
	}
	for i, p := range list {
		if strings.EqualFold(strings.TrimSpace(p.Label), key) {
			return i, 1
		}
	}
	idx = -1
	for i, p := range list {
		if strings.HasPrefix(p.ID, key) {
			idx = i
			n++
		}
	}
	if n != 1 {
		idx = -1
	}
	return idx, n
}

// Stats summarizes the learning state.
type Stats struct {
	Patterns     int                         `json:"patterns"`
	Feedback     int                         `json:"feedback"`
	Correct      int                         `json:"correct"`
	Incorrect    int                         `json:"incorrect"`
	Accuracy     float64                     `json:"accuracy"`
	Annotations  int                         `json:"annotations"`
	PatternsType map[scoretype.ScoreType]int `json:"patterns_by_type"`
}

// Stats returns counts over the current document. Accuracy is the share of
// feedback entries confirming the detected type, 0 when there is none.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Patterns:     len(doc.Patterns),
		Feedback:     len(doc.Feedback),
		Annotations:  len(doc.Annotations),
		PatternsType: make(map[scoretype.ScoreType]int),
	}
	for _, f := range doc.Feedback {
		if f.IsCorrect {
			st.Correct++
		} else {
			st.Incorrect++
		}
	}
	if st.Feedback > 0 {
		st.Accuracy = float64(st.Correct) / float64(st.Feedback)
	}
	for _, p := range doc.Patterns {
		st.PatternsType[p.Type]++
	}
	return st, nil
}

func (s *Store) load(ctx context.Context) (*Document, error) {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Error("pattern store load failed", "error", err)
		return nil, fmt.Errorf("load patterns: %w", errors.Join(ErrStoreIO, err))
	}
	if doc == nil {
		doc = NewDocument()
	}
	return doc, nil
}

func (s *Store) update(ctx context.Context, op string, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.Update(ctx, fn)
	if err == nil || errors.Is(err, errNoChange) {
		return err
	}
	s.logger.Error("pattern store update failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreIO, err))
}

func (s *Store) logMutation(msg string, out Outcome) {
	if out.Pattern == nil {
		s.logger.Debug(msg, "patterns", out.PatternCount)
		return
	}
	s.logger.Debug(msg,
		"label", out.Pattern.Label,
		"type", out.Pattern.Type,
		"confidence", out.Pattern.Confidence,
		"patterns", out.PatternCount,
	)
}
