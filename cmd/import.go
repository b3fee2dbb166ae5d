package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/callreport-cli/internal/callreport"
	"github.com/sells-group/callreport-cli/internal/model"
)

var (
	importDir        string
	importPeriod     string
	importDictionary string
	importStrict     bool
	importWorkers    int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import one quarter's bulk schedule files",
	Long:  "Locates the schedule files in an unpacked quarterly bulk directory, transforms them into canonical statements, validates accounting identities, derives annualized ratios, and persists the results. Re-running the same quarter is idempotent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		period, err := model.ParsePeriod(importPeriod)
		if err != nil {
			return err
		}

		files, err := callreport.FindRequiredFiles(importDir)
		if err != nil {
			return err
		}

		var dict callreport.Dictionary
		dictPath := importDictionary
		if dictPath == "" {
			dictPath = cfg.Import.Dictionary
		}
		if dictPath != "" {
			dict, err = callreport.LoadDictionary(dictPath)
			if err != nil {
				return err
			}
			zap.L().Info("loaded data dictionary",
				zap.String("path", dictPath),
				zap.Int("codes", len(dict)),
			)
		}

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		workers := importWorkers
		if workers == 0 {
			workers = cfg.Import.Workers
		}
		orch, err := callreport.NewOrchestrator(st, callreport.OrchestratorOptions{
			Workers:    workers,
			Strict:     importStrict || cfg.Import.Strict,
			Encoding:   cfg.Import.Encoding,
			Dictionary: dict,
		})
		if err != nil {
			return err
		}

		result, err := orch.ProcessImport(ctx, files, period)
		if err != nil {
			return err
		}

		fmt.Printf("Import %s complete (run %s)\n", period, result.RunID)
		fmt.Printf("  entities created:    %d\n", result.EntitiesCreated)
		fmt.Printf("  statements created:  %d\n", result.StatementsCreated)
		fmt.Printf("  statements skipped:  %d\n", result.StatementsSkipped)
		fmt.Printf("  validation errors:   %d\n", result.ValidationErrors)
		fmt.Printf("  row errors:          %d\n", result.RowErrors)

		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", "", "directory holding the unpacked schedule files (required)")
	importCmd.Flags().StringVar(&importPeriod, "period", "", "reporting period, YYYY-MM-DD quarter end (required)")
	importCmd.Flags().StringVar(&importDictionary, "dictionary", "", "MDRM data dictionary path (default from config)")
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "report canonical fields absent under every candidate code")
	importCmd.Flags().IntVar(&importWorkers, "workers", 0, "per-entity concurrency (default from config)")
	importCmd.MarkFlagRequired("dir")    //nolint:errcheck
	importCmd.MarkFlagRequired("period") //nolint:errcheck
	rootCmd.AddCommand(importCmd)
}
