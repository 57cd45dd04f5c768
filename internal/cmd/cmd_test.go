package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = "Percentil: 87\nWISC CI 132\n"

type jsonScore struct {
	Value     float64 `json:"value"`
	Label     string  `json:"label"`
	ScoreType string  `json:"score_type"`
	Rule      string  `json:"rule"`
}

type jsonResult struct {
	Scores       []jsonScore `json:"scores"`
	DominantType *string     `json:"dominant_type"`
	Tests        []struct {
		Name string `json:"name"`
	} `json:"tests"`
	Stats struct {
		Classified int `json:"classified"`
	} `json:"stats"`
}

func classifyJSONOutput(t *testing.T, stdin string, extra ...string) jsonResult {
	t.Helper()
	out := mustRun(t, stdin, append([]string{"classify", "--json"}, extra...)...)
	var res jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func TestVersion(t *testing.T) {
	isolate(t)
	out := mustRun(t, "", "version")
	assert.Contains(t, out, "psicoscore dev")
	assert.Contains(t, out, "commit:")
}

func TestClassify_Stdin(t *testing.T) {
	isolate(t)
	out := mustRun(t, sampleReport, "--store", "memory", "classify")

	assert.Contains(t, out, "Percentiles (n=1)")
	assert.Contains(t, out, "CI Wechsler (n=1)")
	assert.Contains(t, out, "Tipo dominante: Percentiles")
	assert.Contains(t, out, "Instrumentos: WISC")
	assert.Contains(t, out, "2 clasificadas, 0 sin clasificar, 0 duplicadas")
	assert.NotContains(t, out, "\x1b[", "NO_COLOR output must be plain")
}

func TestClassify_JSON(t *testing.T) {
	isolate(t)
	res := classifyJSONOutput(t, sampleReport, "--store", "memory")

	require.Len(t, res.Scores, 2)
	assert.Equal(t, "percentil", res.Scores[0].ScoreType)
	assert.Equal(t, 87.0, res.Scores[0].Value)
	assert.Equal(t, "wechsler", res.Scores[1].ScoreType)
	require.NotNil(t, res.DominantType)
	assert.Equal(t, "percentil", *res.DominantType)
	require.Len(t, res.Tests, 1)
	assert.Equal(t, "WISC", res.Tests[0].Name)
	assert.Equal(t, 2, res.Stats.Classified)
}

func TestClassify_HTMLFromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "informe.txt")
	require.NoError(t, os.WriteFile(path, []byte("Percentil: 87 <b>\n"), 0o644))

	out := mustRun(t, "", "--store", "memory", "classify", "--html", path)
	assert.Contains(t, out, `<span class="highlighted-score" title="percentil: Alto (75-89 percentil)">87</span>`)
	assert.Contains(t, out, "&lt;b&gt;")
}

func TestClassify_Errors(t *testing.T) {
	isolate(t)

	_, err := run(t, "", "--store", "memory", "classify", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = run(t, sampleReport, "--store", "memory", "classify", "--json", "--html")
	assert.Error(t, err)

	_, err = run(t, sampleReport, "--store", "memory", "classify", "--sort", "alphabetical")
	assert.Error(t, err)

	_, err = run(t, sampleReport, "--store", "postgres", "classify")
	assert.Error(t, err)
}

func TestFeedback_TeachesClassifier(t *testing.T) {
	for _, backend := range []string{"sqlite", "file"} {
		t.Run(backend, func(t *testing.T) {
			isolate(t)
			report := "Indice Memoria: 95\n"

			res := classifyJSONOutput(t, report, "--store", backend)
			require.Len(t, res.Scores, 1)
			assert.Equal(t, "percentil", res.Scores[0].ScoreType)

			for range 2 {
				out := mustRun(t, "", "--store", backend, "feedback",
					"--score", "95", "--label", "Indice Memoria",
					"--detected", "percentil", "--correct-type", "wechsler")
				assert.Contains(t, out, "Feedback registrado. Patrones aprendidos: 1")
			}

			res = classifyJSONOutput(t, report, "--store", backend)
			require.Len(t, res.Scores, 1)
			assert.Equal(t, "wechsler", res.Scores[0].ScoreType)
			assert.Equal(t, "learned", res.Scores[0].Rule)
		})
	}
}

func TestFeedback_Validation(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing score", []string{"feedback", "--label", "CI"}},
		{"unknown detected type", []string{"feedback", "--score", "1", "--detected", "stanine"}},
		{"unknown correct type", []string{"feedback", "--score", "1", "--correct-type", "stanine"}},
		{"both verdicts", []string{"feedback", "--score", "1", "--correct", "--correct-type", "percentil"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", append([]string{"--store", "memory"}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestAnnotateListDelete(t *testing.T) {
	isolate(t)

	out := mustRun(t, "", "annotate", "--text", "IRP 1.5", "--abbr", "IRP", "--type", "puntuacion_z", "--note", "razonamiento")
	assert.Contains(t, out, "Anotación registrada. Patrones aprendidos: 1")

	out = mustRun(t, "", "patterns", "list")
	assert.Contains(t, out, "IRP")
	assert.Contains(t, out, "puntuacion_z")
	assert.Contains(t, out, "annotation")

	out = mustRun(t, "", "patterns", "list", "--json")
	var list []struct {
		Label     string `json:"label"`
		ScoreType string `json:"score_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "IRP", list[0].Label)

	out = mustRun(t, "", "patterns", "delete", "irp")
	assert.Contains(t, out, "Patrón eliminado: irp")

	_, err := run(t, "", "patterns", "delete", "irp")
	assert.Error(t, err)

	out = mustRun(t, "", "patterns", "list")
	assert.Contains(t, out, "No hay patrones aprendidos.")
}

// listedID returns the ID cell of the table row whose label is label.
func listedID(t *testing.T, table, label string) string {
	t.Helper()
	for _, line := range strings.Split(table, "\n") {
		cells := strings.Split(line, "│")
		if len(cells) < 3 || strings.TrimSpace(cells[2]) != label {
			continue
		}
		return strings.TrimSpace(cells[1])
	}
	t.Fatalf("no row labelled %q in:\n%s", label, table)
	return ""
}

func TestPatternsDelete_ByListedID(t *testing.T) {
	isolate(t)

	mustRun(t, "", "annotate", "--text", "IRP 1.5", "--abbr", "IRP", "--type", "puntuacion_z")
	mustRun(t, "", "annotate", "--text", "PE 12", "--abbr", "PE", "--type", "puntuacion_escalar")

	id := listedID(t, mustRun(t, "", "patterns", "list"), "IRP")
	require.NotEmpty(t, id)

	var list []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "", "patterns", "list", "--json")), &list))
	require.Len(t, list, 2)
	for _, p := range list {
		if p.Label == "IRP" {
			assert.True(t, strings.HasPrefix(p.ID, id), "listed %q is not a prefix of %q", id, p.ID)
		}
	}

	out := mustRun(t, "", "patterns", "delete", id)
	assert.Contains(t, out, "Patrón eliminado: "+id)

	out = mustRun(t, "", "patterns", "list")
	assert.NotContains(t, out, "IRP")
	assert.Contains(t, out, "PE")
}

func TestAnnotate_Validation(t *testing.T) {
	isolate(t)

	_, err := run(t, "", "--store", "memory", "annotate", "--text", "IRP 1.5", "--abbr", "IRP")
	assert.Error(t, err, "--abbr requires --type")

	_, err = run(t, "", "--store", "memory", "annotate", "--note", "sin texto")
	assert.Error(t, err, "--text is required")
}

func TestStats(t *testing.T) {
	isolate(t)

	mustRun(t, "", "feedback", "--score", "72", "--label", "CI Total", "--detected", "wechsler", "--correct")
	mustRun(t, "", "feedback", "--score", "95", "--label", "Memoria", "--detected", "percentil")

	out := mustRun(t, "", "stats", "--json")
	var st struct {
		Patterns  int            `json:"patterns"`
		Feedback  int            `json:"feedback"`
		Correct   int            `json:"correct"`
		Accuracy  float64        `json:"accuracy"`
		ByPattern map[string]int `json:"patterns_by_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 1, st.Patterns)
	assert.Equal(t, 2, st.Feedback)
	assert.Equal(t, 1, st.Correct)
	assert.InDelta(t, 0.5, st.Accuracy, 1e-9)
	assert.Equal(t, 1, st.ByPattern["wechsler"])

	out = mustRun(t, "", "stats")
	assert.Contains(t, out, "Precisión:   50.0%")
	assert.Contains(t, out, "wechsler")
}
