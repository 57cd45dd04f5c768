package scoretype

// NotInterpretable is returned by Interpret when no band applies.
const NotInterpretable = "Puntuación no interpretable"

type band struct {
	lo, hi float64 // lo inclusive, hi exclusive
	label  string
}

var bands = map[ScoreType][]band{
	Percentil: {
		{0, 10, "Muy bajo (1-9 percentil)"},
		{10, 25, "Bajo (10-24 percentil)"},
		{25, 75, "Normal (25-74 percentil)"},
		{75, 90, "Alto (75-89 percentil)"},
		{90, 101, "Muy alto (90-99 percentil)"},
	},
	PuntuacionT: {
		{20, 30, "Muy bajo (T < 30)"},
		{30, 40, "Bajo (T 30-39)"},
		{40, 60, "Normal (T 40-59)"},
		{60, 70, "Alto (T 60-69)"},
		{70, 101, "Muy alto (T ≥ 70)"},
	},
	Wechsler: {
		{40, 70, "Deficiencia intelectual (CI < 70)"},
		{70, 85, "Límite (CI 70-84)"},
		{85, 115, "Normal (CI 85-114)"},
		{115, 130, "Superior (CI 115-129)"},
		{130, 161, "Muy superior (CI ≥ 130)"},
	},
	PuntuacionEscalar: {
		{1, 4, "Muy bajo (1-3)"},
		{4, 7, "Bajo (4-6)"},
		{7, 14, "Normal (7-13)"},
		{14, 17, "Alto (14-16)"},
		{17, 20, "Muy alto (17-19)"},
	},
}

var stanines = map[ScoreType][]string{
	Eneatipo: {"Muy bajo", "Bajo", "Bajo-medio", "Medio-bajo", "Medio", "Medio-alto", "Alto-medio", "Alto", "Muy alto"},
	Decatipo: {"Muy bajo", "Muy bajo", "Bajo", "Medio-bajo", "Medio", "Medio", "Medio-alto", "Alto", "Muy alto", "Muy alto"},
}

// Interpret returns the qualitative Spanish band for v on scale t.
func (t ScoreType) Interpret(v float64) string {
	switch t {
	case PuntuacionZ:
		switch {
		case v < -2:
			return "Muy bajo (z < -2)"
		case v < -1:
			return "Bajo (z -2 a -1)"
		case v <= 1:
			return "Normal (z -1 a 1)"
		case v <= 2:
			return "Alto (z 1 a 2)"
		default:
			return "Muy alto (z > 2)"
		}
	case Eneatipo, Decatipo:
		labels := stanines[t]
		i := int(v) - 1
		if !IsInteger(v) || i < 0 || i >= len(labels) {
			return NotInterpretable
		}
		return labels[i]
	}

	for _, b := range bands[t] {
		if v >= b.lo && v < b.hi {
			return b.label
		}
	}
	return NotInterpretable
}
