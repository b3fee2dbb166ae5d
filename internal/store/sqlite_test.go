package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/callreport-cli/internal/model"
)

const testPeriod = model.Period("2025-03-31")

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedInstitutions(t *testing.T, st *SQLiteStore, ids ...int64) {
	t.Helper()
	insts := make([]model.Institution, len(ids))
	for i, id := range ids {
		insts[i] = model.Institution{ID: id, Name: "Bank"}
	}
	_, err := st.UpsertInstitutions(context.Background(), insts)
	require.NoError(t, err)
}

func testStatement(id int64, assets float64) *model.Statement {
	return &model.Statement{
		EntityID:     id,
		Period:       testPeriod,
		BalanceSheet: model.BalanceSheet{TotalAssets: assets},
		Validation:   model.Validation{IsValid: true},
	}
}

func TestSQLite_UpsertInstitutions_CreatedCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.UpsertInstitutions(ctx, []model.Institution{
		{ID: 1, Name: "First"},
		{ID: 2, Name: "Second"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Second pass updates in place: one new, one existing.
	created, err = st.UpsertInstitutions(ctx, []model.Institution{
		{ID: 2, Name: "Second Renamed"},
		{ID: 3, Name: "Third"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	inst, err := st.GetInstitution(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, "Second Renamed", inst.Name)
}

func TestSQLite_UpsertInstitutions_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	created, err := st.UpsertInstitutions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSQLite_GetInstitution_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	inst, err := st.GetInstitution(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, inst)
}

func TestSQLite_UpsertStatement_CreatedFlag(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedInstitutions(t, st, 1)

	created, err := st.UpsertStatement(ctx, testStatement(1, 1000))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = st.UpsertStatement(ctx, testStatement(1, 2000))
	require.NoError(t, err)
	assert.False(t, created)

	stmt, err := st.GetStatement(ctx, 1, testPeriod)
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.Equal(t, 2000.0, stmt.BalanceSheet.TotalAssets)
}

func TestSQLite_GetStatement_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	stmt, err := st.GetStatement(context.Background(), 1, testPeriod)
	require.NoError(t, err)
	assert.Nil(t, stmt)
}

func TestSQLite_UpdatePeerAnalysis_RoundTripAndInvalidation(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedInstitutions(t, st, 1)

	_, err := st.UpsertStatement(ctx, testStatement(1, 1000))
	require.NoError(t, err)

	avg := 42.0
	pa := &model.PeerAnalysis{
		Peers:    model.PeerSet{Larger: []int64{2}, Smaller: []int64{3}},
		Averages: map[model.Metric]*float64{model.MetricTotalAssets: &avg},
	}
	require.NoError(t, st.UpdatePeerAnalysis(ctx, 1, testPeriod, pa))

	stmt, err := st.GetStatement(ctx, 1, testPeriod)
	require.NoError(t, err)
	require.NotNil(t, stmt.PeerAnalysis)
	assert.Equal(t, []int64{2}, stmt.PeerAnalysis.Peers.Larger)
	assert.Equal(t, 42.0, *stmt.PeerAnalysis.Averages[model.MetricTotalAssets])

	// A statement re-import drops the stale analysis.
	_, err = st.UpsertStatement(ctx, testStatement(1, 1100))
	require.NoError(t, err)

	stmt, err = st.GetStatement(ctx, 1, testPeriod)
	require.NoError(t, err)
	assert.Nil(t, stmt.PeerAnalysis)
}

func TestSQLite_UpdatePeerAnalysis_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.UpdatePeerAnalysis(context.Background(), 404, testPeriod, &model.PeerAnalysis{})
	assert.Error(t, err)
}

func TestSQLite_ListPeriods(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedInstitutions(t, st, 1)

	for _, p := range []model.Period{"2025-06-30", "2025-03-31", "2025-06-30"} {
		stmt := testStatement(1, 1000)
		stmt.Period = p
		_, err := st.UpsertStatement(ctx, stmt)
		require.NoError(t, err)
	}

	periods, err := st.ListPeriods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Period{"2025-03-31", "2025-06-30"}, periods)
}

func TestSQLite_StatementRefs_OrderAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedInstitutions(t, st, 1, 2, 3)

	for id, assets := range map[int64]float64{1: 200, 2: 300, 3: 100} {
		_, err := st.UpsertStatement(ctx, testStatement(id, assets))
		require.NoError(t, err)
	}

	refs, err := st.StatementRefs(ctx, testPeriod, 0)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, int64(2), refs[0].EntityID, "largest first")
	assert.Equal(t, int64(3), refs[2].EntityID)

	top, err := st.StatementRefs(ctx, testPeriod, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].EntityID)
	assert.Equal(t, int64(1), top[1].EntityID)
}

func TestSQLite_AssetNeighbors(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedInstitutions(t, st, 1, 2, 3, 4, 5)

	for id, assets := range map[int64]float64{1: 100, 2: 200, 3: 300, 4: 400, 5: 500} {
		_, err := st.UpsertStatement(ctx, testStatement(id, assets))
		require.NoError(t, err)
	}

	larger, smaller, err := st.AssetNeighbors(ctx, testPeriod, 3, 300, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, larger)
	assert.Equal(t, []int64{2}, smaller)

	larger, smaller, err = st.AssetNeighbors(ctx, testPeriod, 5, 500, 10)
	require.NoError(t, err)
	assert.Empty(t, larger)
	assert.Equal(t, []int64{4, 3, 2, 1}, smaller)
}

func TestSQLite_MetricValues(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedInstitutions(t, st, 1, 2)

	withROA := testStatement(1, 1000)
	roa := 1.5
	withROA.Ratios.ReturnOnAssets = &roa
	_, err := st.UpsertStatement(ctx, withROA)
	require.NoError(t, err)
	_, err = st.UpsertStatement(ctx, testStatement(2, 2000))
	require.NoError(t, err)

	// NULL ratio rows are filtered out, not returned as zero.
	vals, err := st.MetricValues(ctx, testPeriod, model.MetricReturnOnAssets, nil)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, int64(1), vals[0].EntityID)
	assert.Equal(t, 1.5, vals[0].Value)

	vals, err = st.MetricValues(ctx, testPeriod, model.MetricTotalAssets, []int64{2})
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, 2000.0, vals[0].Value)

	_, err = st.MetricValues(ctx, testPeriod, model.Metric("bogus"), nil)
	assert.Error(t, err)
}

func TestSQLite_ImportRunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	runID, err := st.StartImportRun(ctx, testPeriod)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	require.NoError(t, st.CompleteImportRun(ctx, runID, ImportCounts{StatementsCreated: 7}))

	failed, err := st.StartImportRun(ctx, testPeriod)
	require.NoError(t, err)
	require.NoError(t, st.FailImportRun(ctx, failed, "schedule parse failed"))
}
