// Package patterns owns the learned label→score-type associations and the
// append-only feedback and annotation logs that strengthen them.
//
// The whole store is persisted as a single Document through a Backend.
// Every mutation is a read-modify-write executed by Backend.Update, which
// must be atomic and serialized against concurrent writers.
package patterns

import (
	"strings"
	"time"

	"github.com/arkantu/psicoscore/internal/scoretype"
)

// DocumentVersion is the schema version written into new documents.
const DocumentVersion = 1

// Origin records which ingestion path created a pattern.
type Origin string

const (
	OriginFeedback   Origin = "feedback"
	OriginAnnotation Origin = "annotation"
)

// LearnedPattern associates a label with a score type. Confidence counts
// confirmations and never decreases.
type LearnedPattern struct {
	ID            string              `json:"id" yaml:"id"`
	Label         string              `json:"label" yaml:"label"`
	Type          scoretype.ScoreType `json:"score_type" yaml:"score_type"`
	Confidence    int                 `json:"confidence" yaml:"confidence"`
	ScoreMin      float64             `json:"score_min" yaml:"score_min"`
	ScoreMax      float64             `json:"score_max" yaml:"score_max"`
	CreatedAt     time.Time           `json:"created_at" yaml:"created_at"`
	LastUpdatedAt time.Time           `json:"last_updated_at" yaml:"last_updated_at"`
	Origin        Origin              `json:"origin" yaml:"origin"`
	TestName      string              `json:"test_name,omitempty" yaml:"test_name,omitempty"`
}

// HasRange reports whether the pattern carries an explicit value range.
// A pattern seeded from a single observation has ScoreMin == ScoreMax and
// is matched with a tolerance window instead.
func (p LearnedPattern) HasRange() bool {
	return p.ScoreMax > p.ScoreMin
}

// Covers reports whether v falls inside the pattern's range, or within
// tolerance of its single observed value when it has no explicit range.
func (p LearnedPattern) Covers(v, tolerance float64) bool {
	if p.HasRange() {
		return v >= p.ScoreMin && v <= p.ScoreMax
	}
	return v >= p.ScoreMin-tolerance && v <= p.ScoreMax+tolerance
}

// widen extends the range to include v.
func (p *LearnedPattern) widen(v float64) {
	if v < p.ScoreMin {
		p.ScoreMin = v
	}
	if v > p.ScoreMax {
		p.ScoreMax = v
	}
}

func (p LearnedPattern) matches(label string, t scoretype.ScoreType) bool {
	return p.Type == t && strings.EqualFold(strings.TrimSpace(p.Label), strings.TrimSpace(label))
}

// FeedbackEntry is an immutable audit record of a user verdict on a
// classification.
type FeedbackEntry struct {
	ID           string               `json:"id" yaml:"id"`
	Timestamp    time.Time            `json:"timestamp" yaml:"timestamp"`
	Score        float64              `json:"score" yaml:"score"`
	Label        string               `json:"label" yaml:"label"`
	DetectedType scoretype.ScoreType  `json:"detected_type,omitempty" yaml:"detected_type,omitempty"`
	IsCorrect    bool                 `json:"is_correct" yaml:"is_correct"`
	CorrectType  *scoretype.ScoreType `json:"correct_type,omitempty" yaml:"correct_type,omitempty"`
	Context      string               `json:"context,omitempty" yaml:"context,omitempty"`
}

// Annotation is an immutable record of a user note on a text selection.
type Annotation struct {
	ID           string               `json:"id" yaml:"id"`
	Timestamp    time.Time            `json:"timestamp" yaml:"timestamp"`
	SelectedText string               `json:"selected_text" yaml:"selected_text"`
	Note         string               `json:"note" yaml:"note"`
	Type         *scoretype.ScoreType `json:"score_type,omitempty" yaml:"score_type,omitempty"`
	Abbreviation string               `json:"abbreviation,omitempty" yaml:"abbreviation,omitempty"`
	TestName     string               `json:"test_name,omitempty" yaml:"test_name,omitempty"`
}

// Document is the persisted unit of the store.
type Document struct {
	Version     int              `json:"version" yaml:"version"`
	Patterns    []LearnedPattern `json:"patterns" yaml:"patterns"`
	Feedback    []FeedbackEntry  `json:"feedback" yaml:"feedback"`
	Annotations []Annotation     `json:"annotations" yaml:"annotations"`
}

// NewDocument returns an empty document at the current version.
func NewDocument() *Document {
	return &Document{Version: DocumentVersion}
}

// Clone returns a copy whose slices can be mutated independently.
func (d *Document) Clone() *Document {
	if d == nil {
		return NewDocument()
	}
	c := &Document{Version: d.Version}
	c.Patterns = append([]LearnedPattern(nil), d.Patterns...)
	c.Feedback = append([]FeedbackEntry(nil), d.Feedback...)
	c.Annotations = append([]Annotation(nil), d.Annotations...)
	if c.Version == 0 {
		c.Version = DocumentVersion
	}
	return c
}

func (d *Document) find(label string, t scoretype.ScoreType) int {
	for i := range d.Patterns {
		if d.Patterns[i].matches(label, t) {
			return i
		}
	}
	return -1
}

// Snapshot is a read-only view of the learned patterns in store order.
// Classification uses one snapshot per document so that confidence values
// stay consistent across a batch.
type Snapshot []LearnedPattern
