package classify

import "github.com/arkantu/psicoscore/internal/scoretype"

// Item is one (value, label) pair in a document-level vote.
type Item struct {
	Value float64
	Label string
}

// Vote picks one dominant type for a whole list. Keyword hits on labels
// win when present, ties going to the type seen first. Otherwise the shape
// of the values decides.
func Vote(items []Item) (scoretype.ScoreType, bool) {
	if len(items) == 0 {
		return "", false
	}

	var order []scoretype.ScoreType
	tally := make(map[scoretype.ScoreType]int)
	for _, it := range items {
		t, ok := KeywordType(it.Label)
		if !ok {
			continue
		}
		if _, seen := tally[t]; !seen {
			order = append(order, t)
		}
		tally[t]++
	}
	if len(order) > 0 {
		best := order[0]
		for _, t := range order[1:] {
			if tally[t] > tally[best] {
				best = t
			}
		}
		return best, true
	}

	values := make([]float64, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return voteByShape(values)
}

func voteByShape(vs []float64) (scoretype.ScoreType, bool) {
	switch {
	case allOf(vs, intBetween(1, 9)):
		return scoretype.Eneatipo, true
	case allOf(vs, intBetween(1, 10)):
		return scoretype.Decatipo, true
	case allOf(vs, between(0, 100)):
		return scoretype.Percentil, true
	case anyOf(vs, func(v float64) bool { return v > 100 }) && allOf(vs, between(40, 160)):
		return scoretype.Wechsler, true
	case allOf(vs, intBetween(1, 19)) && anyOf(vs, between(7, 13)):
		return scoretype.PuntuacionEscalar, true
	case allOf(vs, between(20, 80)) && anyOf(vs, between(40, 60)):
		return scoretype.PuntuacionT, true
	case allOf(vs, between(-4, 4)) && anyOf(vs, func(v float64) bool { return v < 0 }):
		return scoretype.PuntuacionZ, true
	}
	return "", false
}

func allOf(vs []float64, f func(float64) bool) bool {
	for _, v := range vs {
		if !f(v) {
			return false
		}
	}
	return true
}

func anyOf(vs []float64, f func(float64) bool) bool {
	for _, v := range vs {
		if f(v) {
			return true
		}
	}
	return false
}
