package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/callreport-cli/internal/model"
	"github.com/sells-group/callreport-cli/internal/peer"
)

var (
	peersEntity  int64
	peersPeriod  string
	peersTop     int
	peersCount   int
	peersWorkers int
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Generate peer analysis for ingested statements",
	Long:  "Selects each entity's nearest asset-size peers, averages the group's metrics, ranks the entity in the period population, and attaches the result to its statement. Defaults to every entity in every ingested period.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var period model.Period
		if peersPeriod != "" {
			p, err := model.ParsePeriod(peersPeriod)
			if err != nil {
				return err
			}
			period = p
		}

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		count := peersCount
		if count == 0 {
			count = cfg.Peer.Count
		}
		top := peersTop
		if top == 0 {
			top = cfg.Peer.TopN
		}
		opts := peer.Options{
			EntityID:  peersEntity,
			Period:    period,
			TopN:      top,
			PeerCount: count,
			Workers:   peersWorkers,
		}

		analyzer := peer.NewAnalyzer(st, opts)
		written, err := analyzer.Generate(ctx, opts)
		if err != nil {
			return err
		}

		fmt.Printf("Peer analysis written for %d statements\n", written)
		return nil
	},
}

func init() {
	peersCmd.Flags().Int64Var(&peersEntity, "entity", 0, "single entity RSSD id (default all entities)")
	peersCmd.Flags().StringVar(&peersPeriod, "period", "", "reporting period, YYYY-MM-DD (default all ingested periods)")
	peersCmd.Flags().IntVar(&peersTop, "top", 0, "limit to the N largest entities by total assets (default from config)")
	peersCmd.Flags().IntVar(&peersCount, "count", 0, "peer group size on each side (default from config)")
	peersCmd.Flags().IntVar(&peersWorkers, "workers", 0, "per-entity concurrency")
	rootCmd.AddCommand(peersCmd)
}
