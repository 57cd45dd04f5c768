package classify

import (
	"github.com/arkantu/psicoscore/internal/patterns"
	"github.com/arkantu/psicoscore/internal/scan"
	"github.com/arkantu/psicoscore/internal/scoretype"
)

// Options configures a Classifier.
type Options struct {
	// MinConfidence is the confirmation count a learned pattern needs
	// before it overrides the built-in rules.
	MinConfidence int
	// Tolerance is the window around single-observation patterns.
	Tolerance float64
}

// DefaultOptions returns the default classifier options.
func DefaultOptions() Options {
	return Options{MinConfidence: 2, Tolerance: 10}
}

// Result is the outcome of classifying one candidate. Rule names the rule
// that fired and is empty when OK is false.
type Result struct {
	Type scoretype.ScoreType
	Rule string
	OK   bool
}

// Classifier applies the rule cascade. It never mutates the pattern store.
type Classifier struct {
	opts Options
}

// New creates a Classifier. Non-positive options fall back to defaults.
func New(opts Options) *Classifier {
	def := DefaultOptions()
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = def.MinConfidence
	}
	if opts.Tolerance < 0 {
		opts.Tolerance = def.Tolerance
	}
	return &Classifier{opts: opts}
}

// Rules returns the full cascade for snap.
func (c *Classifier) Rules(snap patterns.Snapshot) []Rule {
	rules := make([]Rule, 0, 1+len(keywordRules)+len(RangeRules))
	rules = append(rules, LearnedRule{
		Snapshot:      snap,
		MinConfidence: c.opts.MinConfidence,
		Tolerance:     c.opts.Tolerance,
	})
	rules = append(rules, keywordRules...)
	return append(rules, RangeRules...)
}

// Classify assigns a type to cand, consulting snap for learned patterns.
func (c *Classifier) Classify(cand scan.Candidate, snap patterns.Snapshot) Result {
	return c.ClassifyValue(cand.Value, cand.Label, snap)
}

// ClassifyValue is Classify for a bare (value, label) pair.
func (c *Classifier) ClassifyValue(value float64, label string, snap patterns.Snapshot) Result {
	t, rule, ok := Run(c.Rules(snap), NewInput(value, label))
	return Result{Type: t, Rule: rule, OK: ok}
}
