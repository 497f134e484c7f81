package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adspend-cli/internal/feedback"
)

var outcomesHorizon int

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Score matured decision snapshots against realized performance",
	Long:  "Finds snapshots whose 7-day or 30-day horizon just matured and records how the decision played out. Horizon 0 scores both.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		tracker := feedback.NewTracker(e.Store)
		now := time.Now().UTC()

		horizons := []int{feedback.HorizonShort, feedback.HorizonLong}
		if outcomesHorizon != 0 {
			horizons = []int{outcomesHorizon}
		}

		for _, h := range horizons {
			scored, err := tracker.ScoreOutcomes(ctx, h, now)
			if err != nil {
				return err
			}
			zap.L().Info("horizon scored", zap.Int("horizon_days", h), zap.Int("scored", scored))
			cmd.Printf("%dd horizon: %d snapshots scored\n", h, scored)
		}
		return nil
	},
}

func init() {
	outcomesCmd.Flags().IntVar(&outcomesHorizon, "horizon", 0, "horizon to score: 7, 30, or 0 for both")
	rootCmd.AddCommand(outcomesCmd)
}
