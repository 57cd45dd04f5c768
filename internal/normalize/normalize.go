// Package normalize maps raw scores onto [0,1] using each scale's nominal
// bounds.
package normalize

import "github.com/arkantu/psicoscore/internal/scoretype"

// affine is v ↦ (v - offset) / span.
type affine struct {
	offset float64
	span   float64
}

var maps = map[scoretype.ScoreType]affine{
	scoretype.Eneatipo:          {1, 8},
	scoretype.Decatipo:          {1, 9},
	scoretype.Percentil:         {0, 100},
	scoretype.Wechsler:          {40, 120},
	scoretype.PuntuacionT:       {20, 60},
	scoretype.PuntuacionZ:       {-3, 6},
	scoretype.PuntuacionEscalar: {1, 18},
}

// Unscaled is the fraction used for direct or unknown scores.
const Unscaled = 0.5

// Normalize returns v as a fraction of its scale, clamped to [0,1].
func Normalize(v float64, t scoretype.ScoreType) float64 {
	m, ok := maps[t]
	if !ok {
		return Unscaled
	}
	return clamp((v - m.offset) / m.span)
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
