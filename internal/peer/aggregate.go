package peer

import (
	"context"

	"github.com/sells-group/callreport-cli/internal/model"
	"github.com/sells-group/callreport-cli/internal/store"
)

// Aggregator computes peer-group averages from metric projections.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Averages computes the mean of every tracked metric across the given
// peer ids for the period. Entities without a value for a metric are
// excluded from that metric's mean; a metric no peer has a value for
// averages to nil, not zero.
func (a *Aggregator) Averages(ctx context.Context, period model.Period, ids []int64) (map[model.Metric]*float64, error) {
	out := make(map[model.Metric]*float64, len(model.AllMetrics()))
	if len(ids) == 0 {
		for _, m := range model.AllMetrics() {
			out[m] = nil
		}
		return out, nil
	}

	for _, m := range model.AllMetrics() {
		vals, err := a.store.MetricValues(ctx, period, m, ids)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			out[m] = nil
			continue
		}
		var sum float64
		for _, v := range vals {
			sum += v.Value
		}
		mean := sum / float64(len(vals))
		out[m] = &mean
	}
	return out, nil
}
