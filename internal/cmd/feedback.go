package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arkantu/psicoscore/internal/patterns"
	"github.com/arkantu/psicoscore/internal/scoretype"
)

var (
	feedbackScore       float64
	feedbackLabel       string
	feedbackDetected    string
	feedbackCorrect     bool
	feedbackCorrectType string
	feedbackContext     string
)

var feedbackCmd = &cobra.Command{
	Use:     "feedback",
	Short:   "Confirm or correct a classification",
	GroupID: groupLearning,
	Long: `Record whether a classification was right.

A confirmed classification, or a correction naming the right scale,
creates or strengthens a learned pattern for the label. Once a pattern has
enough confirmations it overrides the built-in rules.

Examples:
  psicoscore feedback --score 72 --label "CI Total" --detected wechsler --correct
  psicoscore feedback --score 95 --label "Indice Memoria" --detected percentil --correct-type wechsler`,
	Args: cobra.NoArgs,
	RunE: runFeedback,
}

func init() {
	f := feedbackCmd.Flags()
	f.Float64Var(&feedbackScore, "score", 0, "Score value")
	f.StringVar(&feedbackLabel, "label", "", "Label next to the score")
	f.StringVar(&feedbackDetected, "detected", "", "Type the classifier chose")
	f.BoolVar(&feedbackCorrect, "correct", false, "The detected type was right")
	f.StringVar(&feedbackCorrectType, "correct-type", "", "The right type when the detected one was wrong")
	f.StringVar(&feedbackContext, "context", "", "Surrounding text, kept in the audit log")
	_ = feedbackCmd.MarkFlagRequired("score")
	feedbackCmd.MarkFlagsMutuallyExclusive("correct", "correct-type")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	in := patterns.FeedbackInput{
		Score:     feedbackScore,
		Label:     feedbackLabel,
		IsCorrect: feedbackCorrect,
		Context:   feedbackContext,
	}
	if feedbackDetected != "" {
		t, err := scoretype.Parse(feedbackDetected)
		if err != nil {
			return err
		}
		in.DetectedType = t
	}
	if feedbackCorrectType != "" {
		t, err := scoretype.Parse(feedbackCorrectType)
		if err != nil {
			return err
		}
		in.CorrectType = &t
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, count, err := a.engine.RecordFeedback(cmd.Context(), in)
	if err != nil {
		return err
	}
	printLearningOutcome(cmd, ok, "Feedback registrado.", count)
	return nil
}

func printLearningOutcome(cmd *cobra.Command, ok bool, msg string, count int) {
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintf(out, "%sNo se registró nada.%s\n", colorYellow, colorReset)
		return
	}
	fmt.Fprintf(out, "%s%s%s Patrones aprendidos: %d\n", colorGreen, msg, colorReset, count)
}
