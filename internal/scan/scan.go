// Package scan extracts candidate (value, label) pairs from OCR'd report text.
package scan

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Span is a half-open byte range into the scanned text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Candidate is a number found in the text together with the label that
// accompanies it. Span covers the number itself.
type Candidate struct {
	Value   float64 `json:"value"`
	Label   string  `json:"label"`
	Span    Span    `json:"span"`
	Context string  `json:"context"`
	Pattern string  `json:"pattern"`
}

// Pattern is one line-level extraction rule. Each regex has exactly two
// capture groups: one numeric, one label, in either order.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

const number = `([-+−]?\d+(?:[.,]\d+)?)`

// Patterns are tried independently on every line, so a single line may
// yield several candidates.
var Patterns = []Pattern{
	{
		// Percentil: 87
		Name:  "label-colon",
		Regex: regexp.MustCompile(`([\p{L}][\p{L} ]*):\s*` + number),
	},
	{
		// 87 (percentil)
		Name:  "number-paren",
		Regex: regexp.MustCompile(number + `\s*\(([^()]+)\)`),
	},
	{
		// WISC CI 132
		Name:  "label-trailing",
		Regex: regexp.MustCompile(`([\p{L}][\p{L} ]{2,})\s+` + number + `\s*$`),
	},
}

var numericOnly = regexp.MustCompile(`^[-+−]?[\d.,]+$`)

// Options configures a Scanner.
type Options struct {
	// ContextRadius is the number of bytes kept on each side of the number.
	ContextRadius int

	// MinValue and MaxValue form the sanity band. Values outside it are
	// OCR noise (years, page numbers) and are dropped.
	MinValue float64
	MaxValue float64
}

// DefaultOptions returns the default scanner options.
func DefaultOptions() Options {
	return Options{
		ContextRadius: 50,
		MinValue:      -100,
		MaxValue:      200,
	}
}

// Scanner finds score candidates in text.
type Scanner struct {
	opts     Options
	patterns []Pattern
}

// New creates a Scanner. Zero-valued options fall back to defaults.
func New(opts Options) *Scanner {
	def := DefaultOptions()
	if opts.ContextRadius <= 0 {
		opts.ContextRadius = def.ContextRadius
	}
	if opts.MinValue == 0 && opts.MaxValue == 0 {
		opts.MinValue, opts.MaxValue = def.MinValue, def.MaxValue
	}
	return &Scanner{opts: opts, patterns: Patterns}
}

// Scan runs the default scanner over text.
func Scan(text string) []Candidate {
	return New(DefaultOptions()).Scan(text)
}

// Scan returns every candidate in text, in line order and, within a line,
// pattern order. Duplicates are kept.
func (s *Scanner) Scan(text string) []Candidate {
	var out []Candidate
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(line)

		trimmed := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		for _, p := range s.patterns {
			for _, m := range p.Regex.FindAllStringSubmatchIndex(trimmed, -1) {
				c, ok := s.candidate(text, trimmed, lineStart, m)
				if !ok {
					continue
				}
				c.Pattern = p.Name
				out = append(out, c)
			}
		}
	}
	return out
}

// candidate builds a Candidate from a submatch index slice. m holds the full
// match followed by two groups.
func (s *Scanner) candidate(text, line string, lineStart int, m []int) (Candidate, bool) {
	if len(m) < 6 || m[2] < 0 || m[4] < 0 {
		return Candidate{}, false
	}
	first, second := line[m[2]:m[3]], line[m[4]:m[5]]

	numStart, numEnd, raw, label := m[2], m[3], first, second
	if !numericOnly.MatchString(first) {
		numStart, numEnd, raw, label = m[4], m[5], second, first
	}

	v, ok := ParseNumber(raw)
	if !ok || v < s.opts.MinValue || v > s.opts.MaxValue {
		return Candidate{}, false
	}

	return Candidate{
		Value:   v,
		Label:   cleanLabel(label),
		Span:    Span{Start: lineStart + numStart, End: lineStart + numEnd},
		Context: window(text, lineStart+numStart, lineStart+numEnd, s.opts.ContextRadius),
	}, true
}

// ParseNumber converts a signed decimal with either '.' or ',' as the
// decimal separator.
func ParseNumber(raw string) (float64, bool) {
	raw = strings.ReplaceAll(raw, "−", "-")
	raw = strings.ReplaceAll(raw, ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cleanLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// window returns text[start-radius:end+radius], widened to rune boundaries
// and trimmed.
func window(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(text[lo:hi])
}
