package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arkantu/psicoscore/internal/analyzer"
	"github.com/arkantu/psicoscore/internal/catalog"
	"github.com/arkantu/psicoscore/internal/config"
)

var (
	classifyJSON bool
	classifyHTML bool
	classifySort string
)

var classifyCmd = &cobra.Command{
	Use:     "classify [file|-]",
	Short:   "Classify the scores in a report",
	GroupID: groupAnalysis,
	Long: `Find the numbers in a report, decide which psychometric scale each one
belongs to and chart them normalized by scale.

The report is read from the file argument, or from stdin when the argument
is "-" or missing. Learned patterns from earlier feedback take priority over
the built-in keyword and range rules.

Examples:
  psicoscore classify informe.txt
  pdftotext informe.pdf - | psicoscore classify
  psicoscore classify --json informe.txt
  psicoscore classify --html informe.txt > informe.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Output the full result as JSON")
	classifyCmd.Flags().BoolVar(&classifyHTML, "html", false, "Output the report as HTML with scores highlighted")
	classifyCmd.Flags().StringVar(&classifySort, "sort", "", "Chart row order: classified or value")
	classifyCmd.MarkFlagsMutuallyExclusive("json", "html")
}

func runClassify(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, func(cfg *config.Config) error {
		if classifySort != "" {
			cfg.Chart.Sort = classifySort
		}
		if classifyJSON || classifyHTML {
			cfg.Chart.Styled = false
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.ClassifyDocument(cmd.Context(), text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case classifyJSON:
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case classifyHTML:
		_, err := fmt.Fprintf(out, "<pre>%s</pre>\n", analyzer.Highlight(res))
		return err
	}
	printReport(out, res)
	return nil
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read report: %w", err)
	}
	return string(data), nil
}

func printReport(w io.Writer, res *analyzer.Result) {
	fmt.Fprintln(w, res.Chart)
	fmt.Fprintln(w)

	if res.DominantType != nil {
		fmt.Fprintf(w, "%sTipo dominante:%s %s\n", colorBold, colorReset, res.DominantType.DisplayName())
	}
	if len(res.Tests) > 0 {
		fmt.Fprintf(w, "%sInstrumentos:%s %s\n", colorBold, colorReset, strings.Join(testNames(res.Tests), ", "))
	}
	if len(res.Unrecognized) > 0 {
		fmt.Fprintf(w, "%sSin clasificar:%s\n", colorYellow, colorReset)
		for _, c := range res.Unrecognized {
			label := c.Label
			if label == "" {
				label = "sin etiqueta"
			}
			fmt.Fprintf(w, "  %g %s(%s)%s\n", c.Value, colorDim, label, colorReset)
		}
	}

	fmt.Fprintf(w, "%s%d clasificadas, %d sin clasificar, %d duplicadas%s\n",
		colorDim, res.Stats.Classified, res.Stats.Unrecognized, res.Stats.Duplicates, colorReset)
}

func testNames(ms []catalog.Match) []string {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name
	}
	return names
}
