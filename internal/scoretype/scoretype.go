// Package scoretype defines the closed set of psychometric score scales the
// engine recognises, together with their nominal ranges and display names.
package scoretype

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownType is returned when a string does not name a known score type.
var ErrUnknownType = errors.New("unknown score type")

// ScoreType identifies a standardized psychometric scale.
type ScoreType string

const (
	Eneatipo          ScoreType = "eneatipo"
	Decatipo          ScoreType = "decatipo"
	Percentil         ScoreType = "percentil"
	Wechsler          ScoreType = "wechsler"
	PuntuacionT       ScoreType = "puntuacion_t"
	PuntuacionZ       ScoreType = "puntuacion_z"
	PuntuacionEscalar ScoreType = "puntuacion_escalar"

	// Direct is the fallback for unscaled (raw) scores.
	Direct ScoreType = "direct_score"
)

// Range is an inclusive numeric interval. Integer scales only admit whole
// numbers inside the interval.
type Range struct {
	Min     float64
	Max     float64
	Integer bool
}

// Contains reports whether v lies in the range, honouring the integer flag.
func (r Range) Contains(v float64) bool {
	if v < r.Min || v > r.Max {
		return false
	}
	return !r.Integer || IsInteger(v)
}

// IsInteger reports whether v has no fractional part.
func IsInteger(v float64) bool {
	return v == math.Trunc(v)
}

var ranges = map[ScoreType]Range{
	Eneatipo:          {Min: 1, Max: 9, Integer: true},
	Decatipo:          {Min: 1, Max: 10, Integer: true},
	Percentil:         {Min: 0, Max: 100},
	Wechsler:          {Min: 40, Max: 160},
	PuntuacionT:       {Min: 20, Max: 80},
	PuntuacionZ:       {Min: -4, Max: 4},
	PuntuacionEscalar: {Min: 1, Max: 19, Integer: true},
	Direct:            {Min: 0, Max: 100},
}

var displayNames = map[ScoreType]string{
	Eneatipo:          "Puntuaciones Eneatipo",
	Decatipo:          "Puntuaciones Decatipo",
	Percentil:         "Percentiles",
	Wechsler:          "CI Wechsler",
	PuntuacionT:       "Puntuaciones T",
	PuntuacionZ:       "Puntuaciones Z",
	PuntuacionEscalar: "Puntuaciones Escalares",
	Direct:            "Puntuaciones Directas",
}

// aliases maps historical names still found in stored data to canonical types.
var aliases = map[string]ScoreType{
	"wechsler_ci":      Wechsler,
	"wechsler_iq":      Wechsler,
	"t_score":          PuntuacionT,
	"z_score":          PuntuacionZ,
	"wechsler_subtest": PuntuacionEscalar,
	"direct":           Direct,
}

// All returns the seven scale types in declaration order. Direct is not
// included because it is a fallback, not a scale.
func All() []ScoreType {
	return []ScoreType{
		Eneatipo,
		Decatipo,
		Percentil,
		Wechsler,
		PuntuacionT,
		PuntuacionZ,
		PuntuacionEscalar,
	}
}

// Parse converts s into a ScoreType. Canonical names and legacy aliases are
// accepted case-insensitively.
func Parse(s string) (ScoreType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	t := ScoreType(key)
	if t.Valid() {
		return t, nil
	}
	if alias, ok := aliases[key]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Valid reports whether t is a member of the closed enumeration, including
// the Direct fallback.
func (t ScoreType) Valid() bool {
	_, ok := ranges[t]
	return ok
}

// Range returns the nominal range of t. Unknown types get the Direct range.
func (t ScoreType) Range() Range {
	if r, ok := ranges[t]; ok {
		return r
	}
	return ranges[Direct]
}

// Contains reports whether v is a valid value on scale t.
func (t ScoreType) Contains(v float64) bool {
	return t.Range().Contains(v)
}

// DisplayName returns the Spanish heading used in rendered charts.
func (t ScoreType) DisplayName() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return "Puntuaciones"
}

func (t ScoreType) String() string {
	return string(t)
}
