package cmd

import (
	"github.com/spf13/cobra"
)

const (
	groupAnalysis = "analysis"
	groupLearning = "learning"
	groupSetup    = "setup"
)

var (
	configPath   string
	storeBackend string
	storePath    string
	debugLogging bool
)

var rootCmd = &cobra.Command{
	Use:   "psicoscore",
	Short: "Classify psychometric scores found in report text",
	Long: `psicoscore - psychometric score classification for report text
  - finds numbers in OCR'd reports and tells percentiles from CI, T, z...
  - learns from your corrections and annotations
  - draws a normalized bar chart per score type`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyColorMode()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupAnalysis, Title: "Analysis:"},
		&cobra.Group{ID: groupLearning, Title: "Learning:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default is the XDG config location)")
	flags.StringVar(&storeBackend, "store", "", "pattern store backend: sqlite, file, or memory")
	flags.StringVar(&storePath, "store-path", "", "pattern store location")
	flags.BoolVar(&debugLogging, "debug", false, "enable debug logging on stderr")
	flags.StringVar(&colorMode, "color", "auto", "color output: auto, always, or never")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
