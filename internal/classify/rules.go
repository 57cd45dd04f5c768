// Package classify assigns a score type to a scanned number using an
// ordered rule cascade: learned patterns first, then label keywords, then
// value-range heuristics. The first rule that fires wins.
package classify

import (
	"regexp"
	"strings"

	"github.com/arkantu/psicoscore/internal/patterns"
	"github.com/arkantu/psicoscore/internal/scoretype"
	"github.com/arkantu/psicoscore/internal/textnorm"
)

// Input is one value to classify. Folded caches the normalized label.
type Input struct {
	Value  float64
	Label  string
	Folded string
}

// NewInput builds an Input and folds its label.
func NewInput(value float64, label string) Input {
	return Input{Value: value, Label: label, Folded: textnorm.Fold(label)}
}

// Rule is a single step of the cascade. Classify returns ok=false when the
// rule does not apply.
type Rule interface {
	Name() string
	Classify(in Input) (scoretype.ScoreType, bool)
}

// Run evaluates rules in order and returns the first match along with the
// name of the rule that produced it.
func Run(rules []Rule, in Input) (scoretype.ScoreType, string, bool) {
	for _, r := range rules {
		if t, ok := r.Classify(in); ok {
			return t, r.Name(), true
		}
	}
	return "", "", false
}

// LearnedRule matches labels users have confirmed often enough.
type LearnedRule struct {
	Snapshot      patterns.Snapshot
	MinConfidence int
	// Tolerance is the window around a single-observation pattern.
	Tolerance float64
}

func (r LearnedRule) Name() string { return "learned" }

func (r LearnedRule) Classify(in Input) (scoretype.ScoreType, bool) {
	if in.Folded == "" {
		return "", false
	}
	for _, p := range r.Snapshot {
		if p.Confidence < r.MinConfidence {
			continue
		}
		pl := textnorm.Fold(p.Label)
		if pl == "" {
			continue
		}
		if !strings.Contains(in.Folded, pl) && !strings.Contains(pl, in.Folded) {
			continue
		}
		if p.Covers(in.Value, r.Tolerance) {
			return p.Type, true
		}
	}
	return "", false
}

// KeywordSet lists the whole-word label keywords that identify a type.
// Keywords are written in folded form.
type KeywordSet struct {
	Type  scoretype.ScoreType
	Words []string
}

// Keywords is the keyword table in evaluation order. More specific
// vocabulary precedes single-letter abbreviations of later types.
var Keywords = []KeywordSet{
	{scoretype.Percentil, []string{"percentil", "percentile", "pc", "p"}},
	{scoretype.Wechsler, []string{"ci", "coeficiente", "iq", "wechsler"}},
	{scoretype.Eneatipo, []string{"eneatipo", "eneagrama"}},
	{scoretype.Decatipo, []string{"decatipo", "decil"}},
	{scoretype.PuntuacionEscalar, []string{"puntuacion escalar", "puntuacion-escalar", "escalar", "pe"}},
	{scoretype.PuntuacionT, []string{"t-score", "puntuacion t", "puntaje t", "pt"}},
	{scoretype.PuntuacionZ, []string{"z-score", "puntuacion z", "puntaje z", "z"}},
}

// KeywordRule fires when the folded label contains one of its words
// bounded by non-alphanumerics.
type KeywordRule struct {
	Type scoretype.ScoreType
	re   *regexp.Regexp
}

// NewKeywordRule compiles a KeywordRule for set.
func NewKeywordRule(set KeywordSet) KeywordRule {
	quoted := make([]string, len(set.Words))
	for i, w := range set.Words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`)
	return KeywordRule{Type: set.Type, re: re}
}

func (r KeywordRule) Name() string { return "keyword:" + string(r.Type) }

func (r KeywordRule) Classify(in Input) (scoretype.ScoreType, bool) {
	if in.Folded == "" || !r.re.MatchString(in.Folded) {
		return "", false
	}
	return r.Type, true
}

// RangeRule fires when the value has the numeric shape of its type.
type RangeRule struct {
	Type  scoretype.ScoreType
	Match func(v float64) bool
}

func (r RangeRule) Name() string { return "range:" + string(r.Type) }

func (r RangeRule) Classify(in Input) (scoretype.ScoreType, bool) {
	if r.Match(in.Value) {
		return r.Type, true
	}
	return "", false
}

func between(lo, hi float64) func(float64) bool {
	return func(v float64) bool { return v >= lo && v <= hi }
}

func intBetween(lo, hi float64) func(float64) bool {
	return func(v float64) bool { return v >= lo && v <= hi && scoretype.IsInteger(v) }
}

// RangeRules is the value-shape fallback in evaluation order, narrowest
// shape first. Positive integers are left to the integer scales so that a
// bare 1..9 is an eneatipo rather than a z-score.
var RangeRules = []Rule{
	RangeRule{scoretype.PuntuacionZ, func(v float64) bool {
		return v >= -4 && v <= 4 && !(v >= 1 && scoretype.IsInteger(v))
	}},
	RangeRule{scoretype.Eneatipo, intBetween(1, 9)},
	RangeRule{scoretype.Decatipo, intBetween(1, 10)},
	RangeRule{scoretype.PuntuacionEscalar, intBetween(1, 19)},
	RangeRule{scoretype.PuntuacionT, between(20, 80)},
	RangeRule{scoretype.Percentil, between(0, 100)},
	RangeRule{scoretype.Wechsler, between(40, 160)},
}

var keywordRules = func() []Rule {
	rules := make([]Rule, len(Keywords))
	for i, set := range Keywords {
		rules[i] = NewKeywordRule(set)
	}
	return rules
}()

// KeywordType runs only the keyword rules against label.
func KeywordType(label string) (scoretype.ScoreType, bool) {
	t, _, ok := Run(keywordRules, NewInput(0, label))
	return t, ok
}
