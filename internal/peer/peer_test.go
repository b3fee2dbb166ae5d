package peer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/callreport-cli/internal/model"
	"github.com/sells-group/callreport-cli/internal/store"
)

const testPeriod = model.Period("2025-03-31")

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// seedPopulation writes one institution and statement per entry. Assets
// double as the net income figure's base so metric values stay distinct.
func seedPopulation(t *testing.T, st store.Store, entities map[int64]model.Statement) {
	t.Helper()
	ctx := context.Background()

	insts := make([]model.Institution, 0, len(entities))
	for id := range entities {
		insts = append(insts, model.Institution{ID: id, Name: "Bank"})
	}
	_, err := st.UpsertInstitutions(ctx, insts)
	require.NoError(t, err)

	for id, stmt := range entities {
		stmt.EntityID = id
		stmt.Period = testPeriod
		_, err := st.UpsertStatement(ctx, &stmt)
		require.NoError(t, err)
	}
}

func fp(v float64) *float64 { return &v }

func assetsOnly(assets float64) model.Statement {
	return model.Statement{
		BalanceSheet: model.BalanceSheet{TotalAssets: assets},
		Validation:   model.Validation{IsValid: true},
	}
}

func TestSelector_NearestOnBothSides(t *testing.T) {
	st := newTestStore(t)
	seedPopulation(t, st, map[int64]model.Statement{
		1: assetsOnly(100),
		2: assetsOnly(200),
		3: assetsOnly(300),
		4: assetsOnly(400),
		5: assetsOnly(500),
	})

	sel := NewSelector(st, 10)
	peers, err := sel.SelectPeers(context.Background(), testPeriod, 3, 300)
	require.NoError(t, err)

	assert.Equal(t, []int64{4, 5}, peers.Larger, "closest larger first")
	assert.Equal(t, []int64{2, 1}, peers.Smaller, "closest smaller first")
}

func TestSelector_CountLimitsEachSide(t *testing.T) {
	st := newTestStore(t)
	seedPopulation(t, st, map[int64]model.Statement{
		1: assetsOnly(100),
		2: assetsOnly(200),
		3: assetsOnly(300),
		4: assetsOnly(400),
		5: assetsOnly(500),
	})

	sel := NewSelector(st, 1)
	peers, err := sel.SelectPeers(context.Background(), testPeriod, 3, 300)
	require.NoError(t, err)

	assert.Equal(t, []int64{4}, peers.Larger)
	assert.Equal(t, []int64{2}, peers.Smaller)
}

func TestSelector_ExtremesAreOneSided(t *testing.T) {
	st := newTestStore(t)
	seedPopulation(t, st, map[int64]model.Statement{
		1: assetsOnly(100),
		2: assetsOnly(200),
		3: assetsOnly(300),
	})

	sel := NewSelector(st, 10)
	peers, err := sel.SelectPeers(context.Background(), testPeriod, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, peers.Larger)
	assert.Empty(t, peers.Smaller)
}

func TestAggregator_ExcludesMissingValues(t *testing.T) {
	st := newTestStore(t)

	withROA := assetsOnly(100)
	withROA.Ratios.ReturnOnAssets = fp(1.0)
	without := assetsOnly(200)

	seedPopulation(t, st, map[int64]model.Statement{1: withROA, 2: without})

	agg := NewAggregator(st)
	avgs, err := agg.Averages(context.Background(), testPeriod, []int64{1, 2})
	require.NoError(t, err)

	// Assets average over both peers; ROA only over the one that has it.
	require.NotNil(t, avgs[model.MetricTotalAssets])
	assert.Equal(t, 150.0, *avgs[model.MetricTotalAssets])
	require.NotNil(t, avgs[model.MetricReturnOnAssets])
	assert.Equal(t, 1.0, *avgs[model.MetricReturnOnAssets])

	// No peer has an efficiency ratio: nil, not zero.
	assert.Nil(t, avgs[model.MetricEfficiencyRatio])
}

func TestAggregator_EmptyPeerGroup(t *testing.T) {
	st := newTestStore(t)
	agg := NewAggregator(st)

	avgs, err := agg.Averages(context.Background(), testPeriod, nil)
	require.NoError(t, err)
	for _, m := range model.AllMetrics() {
		assert.Nil(t, avgs[m], string(m))
	}
}

func TestPeriodRankings_HigherIsBetter(t *testing.T) {
	st := newTestStore(t)
	pop := make(map[int64]model.Statement)
	for i, roa := range []float64{10, 20, 30, 40, 50} {
		stmt := assetsOnly(float64(100 * (i + 1)))
		stmt.Ratios.ReturnOnAssets = fp(roa)
		pop[int64(i+1)] = stmt
	}
	seedPopulation(t, st, pop)

	rankings, err := BuildPeriodRankings(context.Background(), st, testPeriod)
	require.NoError(t, err)

	r := rankings.For(4)[model.MetricReturnOnAssets] // value 40
	require.NotNil(t, r.Rank)
	assert.Equal(t, 2, *r.Rank)
	assert.Equal(t, 5, *r.Total)
	assert.Equal(t, 80, *r.Percentile)
	assert.Equal(t, 40.0, *r.Value)

	best := rankings.For(5)[model.MetricReturnOnAssets]
	assert.Equal(t, 1, *best.Rank)
	assert.Equal(t, 100, *best.Percentile)

	worst := rankings.For(1)[model.MetricReturnOnAssets]
	assert.Equal(t, 5, *worst.Rank)
	assert.Equal(t, 20, *worst.Percentile)
}

func TestPeriodRankings_LowerIsBetterForEfficiency(t *testing.T) {
	st := newTestStore(t)
	pop := make(map[int64]model.Statement)
	for i, eff := range []float64{10, 20, 30, 40, 50} {
		stmt := assetsOnly(float64(100 * (i + 1)))
		stmt.Ratios.EfficiencyRatio = fp(eff)
		pop[int64(i+1)] = stmt
	}
	seedPopulation(t, st, pop)

	rankings, err := BuildPeriodRankings(context.Background(), st, testPeriod)
	require.NoError(t, err)

	r := rankings.For(1)[model.MetricEfficiencyRatio] // value 10, leanest
	assert.Equal(t, 1, *r.Rank)
	assert.Equal(t, 100, *r.Percentile)

	r = rankings.For(5)[model.MetricEfficiencyRatio] // value 50
	assert.Equal(t, 5, *r.Rank)
	assert.Equal(t, 20, *r.Percentile)
}

func TestPeriodRankings_TiesBreakTowardLowerID(t *testing.T) {
	st := newTestStore(t)
	a := assetsOnly(100)
	a.Ratios.ReturnOnAssets = fp(1.0)
	b := assetsOnly(200)
	b.Ratios.ReturnOnAssets = fp(1.0)
	seedPopulation(t, st, map[int64]model.Statement{7: a, 3: b})

	rankings, err := BuildPeriodRankings(context.Background(), st, testPeriod)
	require.NoError(t, err)

	assert.Equal(t, 1, *rankings.For(3)[model.MetricReturnOnAssets].Rank)
	assert.Equal(t, 2, *rankings.For(7)[model.MetricReturnOnAssets].Rank)
}

func TestPeriodRankings_AbsentValueIsAllNil(t *testing.T) {
	st := newTestStore(t)
	withROA := assetsOnly(100)
	withROA.Ratios.ReturnOnAssets = fp(1.0)
	seedPopulation(t, st, map[int64]model.Statement{1: withROA, 2: assetsOnly(200)})

	rankings, err := BuildPeriodRankings(context.Background(), st, testPeriod)
	require.NoError(t, err)

	r := rankings.For(2)[model.MetricReturnOnAssets]
	assert.Nil(t, r.Rank)
	assert.Nil(t, r.Total)
	assert.Nil(t, r.Percentile)
	assert.Nil(t, r.Value)

	// The entity still ranks on metrics it does have.
	assert.NotNil(t, rankings.For(2)[model.MetricTotalAssets].Rank)
}

func TestAnalyzer_GenerateAttachesAnalysis(t *testing.T) {
	st := newTestStore(t)
	pop := make(map[int64]model.Statement)
	for i := 1; i <= 5; i++ {
		stmt := assetsOnly(float64(100 * i))
		stmt.Ratios.ReturnOnAssets = fp(float64(i))
		pop[int64(i)] = stmt
	}
	seedPopulation(t, st, pop)

	opts := Options{PeerCount: 2, Workers: 2}
	analyzer := NewAnalyzer(st, opts)
	written, err := analyzer.Generate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, written)

	stmt, err := st.GetStatement(context.Background(), 3, testPeriod)
	require.NoError(t, err)
	require.NotNil(t, stmt.PeerAnalysis)

	pa := stmt.PeerAnalysis
	assert.Equal(t, []int64{4, 5}, pa.Peers.Larger)
	assert.Equal(t, []int64{2, 1}, pa.Peers.Smaller)
	assert.False(t, pa.GeneratedAt.IsZero())

	// Peer average excludes the subject itself: (100+200+400+500)/4.
	require.NotNil(t, pa.Averages[model.MetricTotalAssets])
	assert.Equal(t, 300.0, *pa.Averages[model.MetricTotalAssets])

	r := pa.Rankings[model.MetricReturnOnAssets]
	require.NotNil(t, r.Rank)
	assert.Equal(t, 3, *r.Rank)
	assert.Equal(t, 5, *r.Total)
	assert.Equal(t, 60, *r.Percentile)
}

func TestAnalyzer_SingleEntity(t *testing.T) {
	st := newTestStore(t)
	seedPopulation(t, st, map[int64]model.Statement{
		1: assetsOnly(100),
		2: assetsOnly(200),
		3: assetsOnly(300),
	})

	opts := Options{EntityID: 2, Period: testPeriod, PeerCount: 5}
	written, err := NewAnalyzer(st, opts).Generate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	stmt, err := st.GetStatement(context.Background(), 1, testPeriod)
	require.NoError(t, err)
	assert.Nil(t, stmt.PeerAnalysis, "other entities untouched")
}

func TestAnalyzer_UnknownEntity(t *testing.T) {
	st := newTestStore(t)
	seedPopulation(t, st, map[int64]model.Statement{1: assetsOnly(100)})

	opts := Options{EntityID: 999, Period: testPeriod}
	_, err := NewAnalyzer(st, opts).Generate(context.Background(), opts)
	assert.Error(t, err)
}

func TestAnalyzer_NoPeriods(t *testing.T) {
	st := newTestStore(t)
	opts := Options{}
	_, err := NewAnalyzer(st, opts).Generate(context.Background(), opts)
	assert.Error(t, err)
}

func TestAnalyzer_ReimportClearsAnalysis(t *testing.T) {
	st := newTestStore(t)
	seedPopulation(t, st, map[int64]model.Statement{
		1: assetsOnly(100),
		2: assetsOnly(200),
	})

	opts := Options{Period: testPeriod, PeerCount: 5}
	_, err := NewAnalyzer(st, opts).Generate(context.Background(), opts)
	require.NoError(t, err)

	stmt, err := st.GetStatement(context.Background(), 1, testPeriod)
	require.NoError(t, err)
	require.NotNil(t, stmt.PeerAnalysis)

	// Re-importing the statement invalidates the attached analysis.
	fresh := assetsOnly(150)
	fresh.EntityID = 1
	fresh.Period = testPeriod
	_, err = st.UpsertStatement(context.Background(), &fresh)
	require.NoError(t, err)

	stmt, err = st.GetStatement(context.Background(), 1, testPeriod)
	require.NoError(t, err)
	assert.Nil(t, stmt.PeerAnalysis)
}
