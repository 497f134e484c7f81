package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adspend-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "adspend-cli",
	Short: "Campaign ad-spend decision engine",
	Long:  "Classifies campaigns into strategic archetypes, scores them against per-archetype thresholds, arbitrates evidence into one recommendation per campaign, and tracks how those recommendations played out.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
