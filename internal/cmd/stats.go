package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arkantu/psicoscore/internal/scoretype"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show learning statistics",
	GroupID: groupLearning,
	Args:    cobra.NoArgs,
	RunE:    runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.engine.LearningStats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "%sAprendizaje%s\n", colorBold, colorReset)
	fmt.Fprintf(out, "  Patrones:    %d\n", st.Patterns)
	fmt.Fprintf(out, "  Feedback:    %d (%d correctos, %d incorrectos)\n", st.Feedback, st.Correct, st.Incorrect)
	fmt.Fprintf(out, "  Precisión:   %.1f%%\n", st.Accuracy*100)
	fmt.Fprintf(out, "  Anotaciones: %d\n", st.Annotations)
	for _, t := range scoretype.All() {
		if n := st.PatternsType[t]; n > 0 {
			fmt.Fprintf(out, "    %s%-20s%s %d\n", colorCyan, t, colorReset, n)
		}
	}
	return nil
}
