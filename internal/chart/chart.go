// Package chart renders normalized scores as fixed-width horizontal bars,
// one block per score type.
package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/arkantu/psicoscore/internal/scoretype"
)

// EmptyMessage is rendered when there is nothing to chart.
const EmptyMessage = "No hay puntuaciones para graficar."

const unlabelled = "(sin etiqueta)"

// Row is one bar.
type Row struct {
	Label      string
	Value      float64
	Normalized float64
}

// Group is the block of rows sharing a type.
type Group struct {
	Type scoretype.ScoreType
	Rows []Row
}

// Entry is a classified row awaiting grouping.
type Entry struct {
	Type scoretype.ScoreType
	Row  Row
}

// GroupScores groups entries by type. Groups appear in the order their type
// is first seen and rows keep their input order.
func GroupScores(entries []Entry) []Group {
	var groups []Group
	index := make(map[scoretype.ScoreType]int)
	for _, e := range entries {
		i, ok := index[e.Type]
		if !ok {
			i = len(groups)
			index[e.Type] = i
			groups = append(groups, Group{Type: e.Type})
		}
		groups[i].Rows = append(groups[i].Rows, e.Row)
	}
	return groups
}

// SortOrder selects the row order within a group.
type SortOrder string

const (
	// SortClassified keeps the order in which scores were classified.
	SortClassified SortOrder = "classified"
	// SortValueDesc orders rows by raw value, highest first.
	SortValueDesc SortOrder = "value"
)

// ParseSortOrder accepts "classified" or "value". Empty means classified.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortClassified:
		return SortClassified, nil
	case SortValueDesc:
		return SortValueDesc, nil
	}
	return "", fmt.Errorf("invalid chart sort order %q (want classified or value)", s)
}

// Options configures a Renderer.
type Options struct {
	BarWidth   int
	LabelWidth int
	Sort       SortOrder
	Fill       rune
	Empty      rune
	// Styled colours headers and bars. Leave it off when the output is
	// not a terminal.
	Styled bool
}

// DefaultOptions returns the default chart layout.
func DefaultOptions() Options {
	return Options{
		BarWidth:   40,
		LabelWidth: 24,
		Sort:       SortClassified,
		Fill:       '█',
		Empty:      '░',
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	fillStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Renderer lays out groups as text.
type Renderer struct {
	opts Options
}

// New creates a Renderer. Zero-valued options fall back to defaults.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.BarWidth <= 0 {
		opts.BarWidth = def.BarWidth
	}
	if opts.LabelWidth <= 0 {
		opts.LabelWidth = def.LabelWidth
	}
	if opts.Sort == "" {
		opts.Sort = def.Sort
	}
	if opts.Fill == 0 {
		opts.Fill = def.Fill
	}
	if opts.Empty == 0 {
		opts.Empty = def.Empty
	}
	return &Renderer{opts: opts}
}

// Render returns the chart for groups, blocks separated by a blank line.
func (r *Renderer) Render(groups []Group) string {
	var blocks []string
	for _, g := range groups {
		if len(g.Rows) == 0 {
			continue
		}
		blocks = append(blocks, r.block(g))
	}
	if len(blocks) == 0 {
		return EmptyMessage
	}
	return strings.Join(blocks, "\n\n")
}

func (r *Renderer) block(g Group) string {
	rows := g.Rows
	if r.opts.Sort == SortValueDesc {
		rows = append([]Row(nil), rows...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
	}

	header := fmt.Sprintf("%s (n=%d)", g.Type.DisplayName(), len(rows))
	underline := strings.Repeat("─", runewidth.StringWidth(header))
	if r.opts.Styled {
		header = headerStyle.Render(header)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	b.WriteString(underline)
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(r.row(row))
	}
	return b.String()
}

func (r *Renderer) row(row Row) string {
	return fmt.Sprintf("%s %6.1f %s %3.0f%%",
		r.label(row.Label), row.Value, r.bar(row.Normalized), row.Normalized*100)
}

func (r *Renderer) label(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		s = unlabelled
	}
	s = runewidth.Truncate(s, r.opts.LabelWidth, "…")
	return runewidth.FillLeft(s, r.opts.LabelWidth)
}

// Cells returns the number of filled cells for a normalized value.
func (r *Renderer) Cells(norm float64) int {
	n := int(math.Round(norm * float64(r.opts.BarWidth)))
	return max(0, min(n, r.opts.BarWidth))
}

func (r *Renderer) bar(norm float64) string {
	n := r.Cells(norm)
	fill := strings.Repeat(string(r.opts.Fill), n)
	empty := strings.Repeat(string(r.opts.Empty), r.opts.BarWidth-n)
	if r.opts.Styled {
		return fillStyle.Render(fill) + emptyStyle.Render(empty)
	}
	return fill + empty
}
