// Package catalog detects named psychometric instruments mentioned in a
// report. Variants include common OCR misreadings (l for I, lower-case c).
package catalog

import (
	"regexp"
)

// Test is one instrument and the expressions that identify it.
type Test struct {
	Name      string
	Publisher string
	Variants  []*regexp.Regexp
}

// Match is an instrument found in a text.
type Match struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

func variants(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

const (
	tea     = "TEA Ediciones"
	pearson = "Pearson Clinical"
	cop     = "COP"
)

// Tests is the instrument catalogue in detection order.
var Tests = []Test{
	{"WISC", tea, variants(`\bWISC[\s-]*[IVX]*\b`, `Wechsler.*Inteligencia.*Ni[nñ]os`, `WlSC`, `WISC-IV`, `WISC V`)},
	{"WAIS", tea, variants(`\bWAIS[\s-]*[IVX]*\b`, `Wechsler.*Inteligencia.*Adult[oa]s`, `WAlS`, `WAIS-III`, `WAIS IV`)},
	{"WPPSI", tea, variants(`\bWPPSI[\s-]*[IVX]*\b`, `Wechsler.*Preescolar.*Primaria`, `WPPSl`, `WPPSI-III`, `WPPSI IV`)},
	{"WASI", tea, variants(`\bWASI\b`, `Wechsler.*Abreviada`, `WASI-II`)},
	{"K-BIT", tea, variants(`\bK[-\s]?BIT\b`, `Kaufman.*brev[eé]`)},
	{"Raven", tea, variants(`\bRaven\b`, `Matrices.*Progresivas.*Raven`, `Raven Matric[ei]s`)},
	{"SENA", tea, variants(`\bSENA\b`, `Sistema.*Evaluaci[oó]n.*Ni[nñ]os.*Adolescentes`)},
	{"BASC", tea, variants(`\bBASC\b`, `BASC[\s-]*II`, `Sistema.*Evaluaci[oó]n.*Comportamiento`)},
	{"BDI", tea, variants(`\bBDI\b`, `Beck.*Depresi[oó]n.*Inventario`, `BDI-II`)},
	{"BAI", tea, variants(`\bBAI\b`, `Beck.*Ansiedad.*Inventario`)},
	{"STAI", tea, variants(`\bSTAI\b`, `Spielberger.*Ansiedad`)},
	{"STAXI", tea, variants(`\bSTAXI\b`, `Spielberger.*Expresi[oó]n.*Ira`)},
	{"MMPI", tea, variants(`\bMMPI[\s-]*[IVX]*\b`, `Minnesota.*Multiphasic.*Personality.*Inventory`, `MMPI-2`)},
	{"MCMI", tea, variants(`\bMCMI[\s-]*[IVX]*\b`, `Millon.*Clinical.*Multiaxial.*Inventory`, `MCMI-III`)},
	{"TPT", tea, variants(`\bTPT\b`, `Test.*Percepci[oó]n.*Tem[aá]tica`)},
	{"TDAH", tea, variants(`\bTDAH\b`, `Trastorno.*D[eé]ficit.*Atenci[oó]n.*Hiperactividad`)},
	{"PROLEC", tea, variants(`\bPROLEC\b`, `Proceso.*Lectura`)},
	{"PROESC", tea, variants(`\bPROESC\b`, `Proceso.*Escritura`)},
	{"PROLEXIA", tea, variants(`\bPROLEXIA\b`, `Proceso.*Lexia`)},
	{"PRODISCAT", tea, variants(`\bPRODISCAT[\s-]*2?\b`, `Proceso.*Discalculia`)},
	{"TAVEC", tea, variants(`\bTAVEC[\s-]*2?\b`, `Test.*Aprendizaje.*Verbal.*Espa[nñ]a.*Complutense`)},
	{"NEPSY", tea, variants(`\bNEPSY[\s-]*(?:II)?\b`, `Neuropsychological.*Assessment`)},
	{"D2", tea, variants(`\bD2[\s-]*R?\b`, `Test.*Atenci[oó]n.*D2`)},
	{"Luria", tea, variants(`\bLuria\b`, `Neuropsicol[oó]gico.*Luria`)},
	{"EFAI", tea, variants(`\bEFAI\b`, `Escala.*Funcionamiento.*Adaptativo`)},
	{"EFR", tea, variants(`\bEFR\b`, `Escala.*Funcionamiento.*Resiliencia`)},
	{"ENFEN", tea, variants(`\bENFEN\b`, `Evaluaci[oó]n.*Funciones.*Ejecutivas.*Ni[nñ]os`)},
	{"EPC", tea, variants(`\bEPC\b`, `Escala.*Pensamiento.*Creativo`)},
	{"Conners", tea, variants(`\bConners\b`, `Conners-[34]`)},

	{"CELF", pearson, variants(`\bCELF[\s-]*5?\b`, `Evaluaci[oó]n.*Cl[ií]nica.*Fundamentos.*Lenguaje`)},
	{"WIAT", pearson, variants(`\bWIAT\b`, `Wechsler.*Achievement.*Test`, `WIAT-III`)},
	{"WRAML", pearson, variants(`\bWRAML\b`, `Wechsler.*Memory.*Scale`)},
	{"WRAVMA", pearson, variants(`\bWRAVMA\b`, `Wide.*Range.*Assessment.*Visual.*Motor.*Abilities`)},
	{"K-ABC", pearson, variants(`\bK[-\s]?ABC\b`, `Kaufman.*Assessment.*Battery`, `KABC-II`)},
	{"KTEA", pearson, variants(`\bKTEA\b`, `Kaufman.*Test.*Educational.*Achievement`)},
	{"MABC", pearson, variants(`\bMABC\b`, `Movement.*Assessment.*Battery.*Children`, `MABC-2`)},
	{"Vineland", pearson, variants(`\bVineland\b`)},
	{"Bayley", pearson, variants(`\bBayley\b`)},
	{"PPVT", pearson, variants(`\bPPVT\b`, `Peabody.*Picture.*Vocabulary.*Test`)},
	{"EVT", pearson, variants(`\bEVT\b`, `Expressive.*Vocabulary.*Test`)},

	{"COP", cop, variants(`\bCOP\b`, `Consejo.*General.*Psicolog[ií]a`)},
}

// Detect returns the instruments mentioned in text in catalogue order. Each
// instrument is reported once, for the first variant that matches.
func Detect(text string) []Match {
	var out []Match
	for _, t := range Tests {
		for _, re := range t.Variants {
			loc := re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			out = append(out, Match{
				Name:    t.Name,
				Pattern: re.String(),
				Start:   loc[0],
				End:     loc[1],
			})
			break
		}
	}
	return out
}

// Names returns the instrument names in catalogue order.
func Names() []string {
	names := make([]string, len(Tests))
	for i, t := range Tests {
		names[i] = t.Name
	}
	return names
}
