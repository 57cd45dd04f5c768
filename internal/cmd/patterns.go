package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/arkantu/psicoscore/internal/patterns"
	"github.com/arkantu/psicoscore/internal/picker"
)

var patternsJSON bool

var patternsCmd = &cobra.Command{
	Use:     "patterns",
	Short:   "Inspect and prune learned patterns",
	GroupID: groupLearning,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned patterns, most confirmed first",
	Args:  cobra.NoArgs,
	RunE:  runPatternsList,
}

var patternsDeleteCmd = &cobra.Command{
	Use:   "delete <id|label>",
	Short: "Delete a learned pattern",
	Long: `Delete one learned pattern. The argument is matched against pattern IDs
first, then case-insensitively against labels, then as an ID prefix such as
the short IDs shown by "patterns list". A prefix shared by several patterns
is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runPatternsDelete,
}

var patternsEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Browse patterns interactively and delete with d",
	Args:  cobra.NoArgs,
	RunE:  runPatternsEdit,
}

func init() {
	patternsListCmd.Flags().BoolVar(&patternsJSON, "json", false, "Output as JSON")
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsDeleteCmd)
	patternsCmd.AddCommand(patternsEditCmd)
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.engine.ListPatterns(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if patternsJSON {
		if list == nil {
			list = []patterns.LearnedPattern{}
		}
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "No hay patrones aprendidos.")
		return nil
	}
	fmt.Fprintln(out, patternTable(list))
	return nil
}

func patternTable(list []patterns.LearnedPattern) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "ETIQUETA", "TIPO", "CONF", "RANGO", "ORIGEN")
	for _, p := range list {
		rng := fmt.Sprintf("%g", p.ScoreMin)
		if p.HasRange() {
			rng = fmt.Sprintf("%g–%g", p.ScoreMin, p.ScoreMax)
		}
		t.Row(shortID(p.ID), picker.Sanitize(p.Label), string(p.Type),
			fmt.Sprintf("%d", p.Confidence), rng, string(p.Origin))
	}
	return t.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runPatternsDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.engine.DeletePattern(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no pattern matches %q", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sPatrón eliminado:%s %s\n", colorGreen, colorReset, args[0])
	return nil
}

func runPatternsEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).ColorProfile())
	p := tea.NewProgram(picker.NewModel(a.engine),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("pattern browser failed: %w", err)
	}
	if m, ok := final.(picker.Model); ok && m.Deleted() > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d patrones eliminados.\n", m.Deleted())
	}
	return nil
}
