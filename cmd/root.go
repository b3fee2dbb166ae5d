package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/callreport-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "callreport",
	Short: "Quarterly bank Call Report ingestion and peer analytics",
	Long:  "Fetches FFIEC CDR bulk archives, ingests quarterly Call Report schedules into canonical statements, validates accounting identities, derives annualized ratios, and builds asset-size peer comparisons.",
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
