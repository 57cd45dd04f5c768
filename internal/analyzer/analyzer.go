// Package analyzer wires scanning, classification, normalization and chart
// rendering into a single document pipeline, and exposes the learning
// operations of the pattern store.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arkantu/psicoscore/internal/catalog"
	"github.com/arkantu/psicoscore/internal/chart"
	"github.com/arkantu/psicoscore/internal/classify"
	"github.com/arkantu/psicoscore/internal/logging"
	"github.com/arkantu/psicoscore/internal/normalize"
	"github.com/arkantu/psicoscore/internal/patterns"
	"github.com/arkantu/psicoscore/internal/scan"
	"github.com/arkantu/psicoscore/internal/scoretype"
	"github.com/arkantu/psicoscore/internal/textnorm"
)

// dedupeContextRunes is how much of the context participates in the
// duplicate key.
const dedupeContextRunes = 20

// Options configures an Engine.
type Options struct {
	Scanner    scan.Options
	Classifier classify.Options
	Chart      chart.Options
	// Dedupe drops classified scores repeating an earlier (value, type,
	// context prefix).
	Dedupe bool
	Logger *slog.Logger
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		Scanner:    scan.DefaultOptions(),
		Classifier: classify.DefaultOptions(),
		Chart:      chart.DefaultOptions(),
		Dedupe:     true,
	}
}

// Score is a classified candidate.
type Score struct {
	scan.Candidate
	Type           scoretype.ScoreType `json:"score_type"`
	Normalized     float64             `json:"normalized"`
	Rule           string              `json:"rule"`
	Interpretation string              `json:"interpretation"`
}

// Stats counts what happened to the candidates of one document.
type Stats struct {
	Candidates   int                         `json:"candidates"`
	Classified   int                         `json:"classified"`
	Unrecognized int                         `json:"unrecognized"`
	Duplicates   int                         `json:"duplicates"`
	ByType       map[scoretype.ScoreType]int `json:"by_type"`
}

// Result is the outcome of classifying one document. Spans refer to Text,
// the cleaned form of the input.
type Result struct {
	Text         string               `json:"-"`
	Scores       []Score              `json:"scores"`
	Unrecognized []scan.Candidate     `json:"unrecognized"`
	DominantType *scoretype.ScoreType `json:"dominant_type"`
	Chart        string               `json:"chart"`
	Stats        Stats                `json:"stats"`
	Tests        []catalog.Match      `json:"tests"`
}

// Engine classifies documents and records learning events.
type Engine struct {
	store      *patterns.Store
	scanner    *scan.Scanner
	classifier *classify.Classifier
	renderer   *chart.Renderer
	dedupe     bool
	logger     *slog.Logger
}

// New creates an Engine backed by store.
func New(store *patterns.Store, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		scanner:    scan.New(opts.Scanner),
		classifier: classify.New(opts.Classifier),
		renderer:   chart.New(opts.Chart),
		dedupe:     opts.Dedupe,
		logger:     logger,
	}
}

// ClassifyDocument scans text, classifies every candidate against one fresh
// snapshot of the learned patterns and renders the chart. Candidates no
// rule accepts are returned in Unrecognized. The only error is a failure to
// read the pattern store.
func (e *Engine) ClassifyDocument(ctx context.Context, text string) (*Result, error) {
	clean := textnorm.Clean(text)
	cands := e.scanner.Scan(clean)

	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("classify document: %w", err)
	}

	res := &Result{
		Text:  clean,
		Stats: Stats{Candidates: len(cands), ByType: make(map[scoretype.ScoreType]int)},
	}

	// Overlapping scanner patterns report the same number with the same
	// span start. Distinct numbers never share a key even when their
	// clamped context windows coincide.
	type key struct {
		value   float64
		typ     scoretype.ScoreType
		start   int
		context string
	}
	seen := make(map[key]bool)
	items := make([]classify.Item, 0, len(cands))
	var entries []chart.Entry

	for _, c := range cands {
		items = append(items, classify.Item{Value: c.Value, Label: c.Label})

		cr := e.classifier.Classify(c, snap)
		if !cr.OK {
			res.Unrecognized = append(res.Unrecognized, c)
			continue
		}
		if e.dedupe {
			k := key{c.Value, cr.Type, c.Span.Start, prefix(c.Context, dedupeContextRunes)}
			if seen[k] {
				res.Stats.Duplicates++
				continue
			}
			seen[k] = true
		}

		s := Score{
			Candidate:      c,
			Type:           cr.Type,
			Normalized:     normalize.Normalize(c.Value, cr.Type),
			Rule:           cr.Rule,
			Interpretation: cr.Type.Interpret(c.Value),
		}
		res.Scores = append(res.Scores, s)
		res.Stats.ByType[s.Type]++
		entries = append(entries, chart.Entry{
			Type: s.Type,
			Row:  chart.Row{Label: s.Label, Value: s.Value, Normalized: s.Normalized},
		})
	}

	if t, ok := classify.Vote(items); ok {
		res.DominantType = &t
	}
	res.Chart = e.renderer.Render(chart.GroupScores(entries))
	res.Tests = catalog.Detect(clean)
	res.Stats.Classified = len(res.Scores)
	res.Stats.Unrecognized = len(res.Unrecognized)

	logging.LogClassified(e.logger, res.Stats.Classified, res.Stats.Unrecognized, res.Stats.Duplicates)
	return res, nil
}

func prefix(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// RecordFeedback stores a user verdict. It returns the pattern count after
// the update.
func (e *Engine) RecordFeedback(ctx context.Context, in patterns.FeedbackInput) (bool, int, error) {
	out, err := e.store.RecordFeedback(ctx, in)
	if err != nil {
		return false, 0, err
	}
	return out.OK, out.PatternCount, nil
}

// RecordAnnotation stores a user note. It returns the pattern count after
// the update.
func (e *Engine) RecordAnnotation(ctx context.Context, in patterns.AnnotationInput) (bool, int, error) {
	out, err := e.store.RecordAnnotation(ctx, in)
	if err != nil {
		return false, 0, err
	}
	return out.OK, out.PatternCount, nil
}

// ListPatterns returns the learned patterns ordered by usage.
func (e *Engine) ListPatterns(ctx context.Context) ([]patterns.LearnedPattern, error) {
	return e.store.List(ctx)
}

// DeletePattern removes one pattern by ID, label or unique ID prefix.
func (e *Engine) DeletePattern(ctx context.Context, labelOrID string) (bool, error) {
	return e.store.Delete(ctx, labelOrID)
}

// LearningStats summarizes the feedback and pattern state.
func (e *Engine) LearningStats(ctx context.Context) (patterns.Stats, error) {
	return e.store.Stats(ctx)
}
