package cmd

import (
	"github.com/spf13/cobra"

	"github.com/arkantu/psicoscore/internal/patterns"
	"github.com/arkantu/psicoscore/internal/scoretype"
)

var (
	annotateText   string
	annotateNote   string
	annotateType   string
	annotateAbbrev string
	annotateTest   string
)

var annotateCmd = &cobra.Command{
	Use:     "annotate",
	Short:   "Teach the meaning of an abbreviation",
	GroupID: groupLearning,
	Long: `Attach a note to a piece of report text.

With --abbr and --type the annotation also teaches a pattern: the
abbreviation becomes a label for that scale, seeded with the first number
in the selected text.

Examples:
  psicoscore annotate --text "IRP 1.5" --abbr IRP --type puntuacion_z --note "índice de razonamiento"
  psicoscore annotate --text "ver anexo" --note "puntuaciones en la página 3"`,
	Args: cobra.NoArgs,
	RunE: runAnnotate,
}

func init() {
	f := annotateCmd.Flags()
	f.StringVar(&annotateText, "text", "", "Selected report text")
	f.StringVar(&annotateNote, "note", "", "Free-form note")
	f.StringVar(&annotateType, "type", "", "Score type the abbreviation denotes")
	f.StringVar(&annotateAbbrev, "abbr", "", "Abbreviation to learn")
	f.StringVar(&annotateTest, "test", "", "Instrument the abbreviation belongs to")
	_ = annotateCmd.MarkFlagRequired("text")
	annotateCmd.MarkFlagsRequiredTogether("abbr", "type")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	in := patterns.AnnotationInput{
		SelectedText: annotateText,
		Note:         annotateNote,
		Abbreviation: annotateAbbrev,
		TestName:     annotateTest,
	}
	if annotateType != "" {
		t, err := scoretype.Parse(annotateType)
		if err != nil {
			return err
		}
		in.Type = &t
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, count, err := a.engine.RecordAnnotation(cmd.Context(), in)
	if err != nil {
		return err
	}
	printLearningOutcome(cmd, ok, "Anotación registrada.", count)
	return nil
}
