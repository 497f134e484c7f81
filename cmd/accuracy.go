package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/adspend-cli/internal/feedback"
)

var accuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Show per-archetype decision accuracy from scored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		rows, err := feedback.NewTracker(e.Store).AccuracyByType(ctx)
		if err != nil {
			return err
		}

		p := message.NewPrinter(language.English)
		p.Fprintf(cmd.OutOrStdout(), "%-20s %8s %8s %8s %8s %10s\n",
			"archetype", "total", "correct", "wrong", "neutral", "accuracy")
		for _, r := range rows {
			acc := "n/a"
			if r.Accuracy != nil {
				acc = p.Sprintf("%.0f%%", *r.Accuracy*100)
			}
			p.Fprintf(cmd.OutOrStdout(), "%-20s %8d %8d %8d %8d %10s\n",
				string(r.StrategyType), r.Total, r.Correct, r.Wrong, r.Neutral, acc)
		}
		if len(rows) == 0 {
			cmd.Println("no scored snapshots yet")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accuracyCmd)
}
