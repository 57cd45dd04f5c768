package analyzer

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/arkantu/psicoscore/internal/scan"
)

type mark struct {
	span  scan.Span
	title string
	known bool
}

// Highlight returns res.Text as HTML with every classified number wrapped
// in a highlighted-score span titled with its type and interpretation, and
// every unrecognized number in a highlighted-number span. Where two
// candidates share a span the classified one wins.
func Highlight(res *Result) string {
	if res == nil {
		return ""
	}

	marks := make([]mark, 0, len(res.Scores)+len(res.Unrecognized))
	for _, s := range res.Scores {
		marks = append(marks, mark{
			span:  s.Span,
			title: fmt.Sprintf("%s: %s", s.Type, s.Interpretation),
			known: true,
		})
	}
	for _, c := range res.Unrecognized {
		marks = append(marks, mark{span: c.Span})
	}
	sort.SliceStable(marks, func(i, j int) bool {
		if marks[i].span.Start != marks[j].span.Start {
			return marks[i].span.Start < marks[j].span.Start
		}
		return marks[i].known && !marks[j].known
	})

	text := res.Text
	var b strings.Builder
	pos := 0
	for _, m := range marks {
		if m.span.Start < pos || m.span.End > len(text) || m.span.Start >= m.span.End {
			continue
		}
		b.WriteString(html.EscapeString(text[pos:m.span.Start]))
		num := html.EscapeString(text[m.span.Start:m.span.End])
		if m.known {
			fmt.Fprintf(&b, `<span class="highlighted-score" title="%s">%s</span>`, html.EscapeString(m.title), num)
		} else {
			fmt.Fprintf(&b, `<span class="highlighted-number">%s</span>`, num)
		}
		pos = m.span.End
	}
	b.WriteString(html.EscapeString(text[pos:]))
	return b.String()
}
