package peer

import (
	"context"
	"math"
	"sort"

	"github.com/sells-group/callreport-cli/internal/model"
	"github.com/sells-group/callreport-cli/internal/store"
)

// metricOrder is one metric's sorted standing for a period.
type metricOrder struct {
	total  int
	ranks  map[int64]int
	values map[int64]float64
}

// PeriodRankings holds per-metric population orderings for one period.
// Built once per period from metric projections, then shared read-only
// across entity workers; ranking a whole quarter never loads a
// statement document.
type PeriodRankings struct {
	metrics map[model.Metric]*metricOrder
}

// BuildPeriodRankings sorts every tracked metric's population for the
// period. Higher values rank better except where the metric says lower
// is better; ties break toward the lower entity id.
func BuildPeriodRankings(ctx context.Context, st store.Store, period model.Period) (*PeriodRankings, error) {
	pr := &PeriodRankings{metrics: make(map[model.Metric]*metricOrder)}

	for _, m := range model.AllMetrics() {
		vals, err := st.MetricValues(ctx, period, m, nil)
		if err != nil {
			return nil, err
		}

		lower := m.LowerIsBetter()
		sort.Slice(vals, func(i, j int) bool {
			if vals[i].Value != vals[j].Value {
				if lower {
					return vals[i].Value < vals[j].Value
				}
				return vals[i].Value > vals[j].Value
			}
			return vals[i].EntityID < vals[j].EntityID
		})

		order := &metricOrder{
			total:  len(vals),
			ranks:  make(map[int64]int, len(vals)),
			values: make(map[int64]float64, len(vals)),
		}
		for i, v := range vals {
			order.ranks[v.EntityID] = i + 1
			order.values[v.EntityID] = v.Value
		}
		pr.metrics[m] = order
	}
	return pr, nil
}

// For returns the entity's standing for every tracked metric. Metrics the
// entity has no value for come back with all-nil fields.
func (p *PeriodRankings) For(entityID int64) map[model.Metric]model.Ranking {
	out := make(map[model.Metric]model.Ranking, len(p.metrics))
	for m, order := range p.metrics {
		rank, ok := order.ranks[entityID]
		if !ok {
			out[m] = model.Ranking{}
			continue
		}
		total := order.total
		value := order.values[entityID]
		percentile := int(math.Round(float64(total-rank+1) / float64(total) * 100))
		out[m] = model.Ranking{
			Rank:       &rank,
			Total:      &total,
			Percentile: &percentile,
			Value:      &value,
		}
	}
	return out
}
