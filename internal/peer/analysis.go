package peer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/callreport-cli/internal/model"
	"github.com/sells-group/callreport-cli/internal/store"
)

// Options configures a peer analysis batch.
type Options struct {
	// EntityID limits the batch to a single entity; 0 means every entity
	// with a statement on file.
	EntityID int64
	// Period limits the batch to one period; empty means every ingested
	// period.
	Period model.Period
	// TopN limits the batch to the N largest entities by total assets;
	// 0 means no limit. Ignored when EntityID is set.
	TopN int
	// PeerCount is the peer group size on each side of the subject.
	PeerCount int
	// Workers bounds per-entity concurrency.
	Workers int
}

// Analyzer runs peer analysis batches: select each subject's asset-size
// peers, average the group's metrics and rank the subject in the period
// population, then attach the result to the subject's statement.
type Analyzer struct {
	store    store.Store
	selector *Selector
	agg      *Aggregator
	workers  int
}

// NewAnalyzer creates an Analyzer with the given batch options.
func NewAnalyzer(st store.Store, opts Options) *Analyzer {
	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}
	return &Analyzer{
		store:    st,
		selector: NewSelector(st, opts.PeerCount),
		agg:      NewAggregator(st),
		workers:  workers,
	}
}

// Generate runs the batch and returns the number of analyses written.
// Peer analysis is a pure overlay: a later statement re-import clears it
// and a re-run recreates it.
func (a *Analyzer) Generate(ctx context.Context, opts Options) (int, error) {
	var periods []model.Period
	if opts.Period != "" {
		periods = []model.Period{opts.Period}
	} else {
		var err error
		periods, err = a.store.ListPeriods(ctx)
		if err != nil {
			return 0, err
		}
	}
	if len(periods) == 0 {
		return 0, eris.New("peer: no ingested periods to analyze")
	}

	written := 0
	for _, period := range periods {
		n, err := a.generatePeriod(ctx, period, opts)
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

func (a *Analyzer) generatePeriod(ctx context.Context, period model.Period, opts Options) (int, error) {
	log := zap.L().With(zap.String("period", string(period)))

	topN := opts.TopN
	if opts.EntityID != 0 {
		topN = 0
	}
	refs, err := a.store.StatementRefs(ctx, period, topN)
	if err != nil {
		return 0, err
	}
	if opts.EntityID != 0 {
		var found []store.StatementRef
		for _, ref := range refs {
			if ref.EntityID == opts.EntityID {
				found = append(found, ref)
				break
			}
		}
		if len(found) == 0 {
			return 0, eris.Errorf("peer: entity %d has no statement for %s", opts.EntityID, period)
		}
		refs = found
	}

	rankings, err := BuildPeriodRankings(ctx, a.store, period)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for _, ref := range refs {
		g.Go(func() error {
			peers, err := a.selector.SelectPeers(gctx, period, ref.EntityID, ref.TotalAssets)
			if err != nil {
				return err
			}

			ids := make([]int64, 0, len(peers.Larger)+len(peers.Smaller))
			ids = append(ids, peers.Larger...)
			ids = append(ids, peers.Smaller...)
			averages, err := a.agg.Averages(gctx, period, ids)
			if err != nil {
				return err
			}

			pa := &model.PeerAnalysis{
				Peers:       peers,
				Averages:    averages,
				Rankings:    rankings.For(ref.EntityID),
				GeneratedAt: time.Now().UTC(),
			}
			return a.store.UpdatePeerAnalysis(gctx, ref.EntityID, period, pa)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	log.Info("peer analysis complete", zap.Int("entities", len(refs)))
	return len(refs), nil
}
