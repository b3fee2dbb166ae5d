// Package store persists institutions, statements and import runs behind a
// driver-agnostic interface. SQLite is the default driver and the test
// store; Postgres is for shared deployments.
package store

import (
	"context"

	"github.com/sells-group/callreport-cli/internal/model"
)

// StatementRef is a lightweight handle used to drive peer batches without
// loading full statements.
type StatementRef struct {
	EntityID    int64
	TotalAssets float64
}

// MetricValue is one projected (entity, value) pair. Metric projections
// deliberately never materialize full statements; ranking an entire
// quarter's population must stay O(population) scalars.
type MetricValue struct {
	EntityID int64
	Value    float64
}

// ImportCounts aggregates one import run's outcome for the audit log.
type ImportCounts struct {
	EntitiesCreated   int `json:"entities_created"`
	StatementsCreated int `json:"statements_created"`
	StatementsSkipped int `json:"statements_skipped"`
	ValidationErrors  int `json:"validation_errors"`
	RowErrors         int `json:"row_errors"`
}

// Store is the persistence interface for the ingestion and analytics core.
type Store interface {
	// Institutions
	UpsertInstitutions(ctx context.Context, insts []model.Institution) (created int, err error)
	GetInstitution(ctx context.Context, id int64) (*model.Institution, error)

	// Statements. Upserts are idempotent on (entity, period).
	UpsertStatement(ctx context.Context, st *model.Statement) (created bool, err error)
	GetStatement(ctx context.Context, entityID int64, period model.Period) (*model.Statement, error)
	UpdatePeerAnalysis(ctx context.Context, entityID int64, period model.Period, pa *model.PeerAnalysis) error

	// Population queries for peer selection and ranking.
	ListPeriods(ctx context.Context) ([]model.Period, error)
	StatementRefs(ctx context.Context, period model.Period, topN int) ([]StatementRef, error)
	AssetNeighbors(ctx context.Context, period model.Period, entityID int64, totalAssets float64, n int) (larger, smaller []int64, err error)
	MetricValues(ctx context.Context, period model.Period, metric model.Metric, onlyIDs []int64) ([]MetricValue, error)

	// Import run audit log.
	StartImportRun(ctx context.Context, period model.Period) (string, error)
	CompleteImportRun(ctx context.Context, runID string, counts ImportCounts) error
	FailImportRun(ctx context.Context, runID string, errMsg string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// metricColumns maps each tracked metric to its projected statement
// column. Ratio columns are nullable; balance and flow columns are not.
var metricColumns = map[model.Metric]string{
	model.MetricTotalAssets:        "total_assets",
	model.MetricTotalLoans:         "total_loans",
	model.MetricTotalDeposits:      "total_deposits",
	model.MetricTotalEquity:        "total_equity",
	model.MetricNetIncome:          "net_income",
	model.MetricNetInterestIncome:  "net_interest_income",
	model.MetricNoninterestIncome:  "noninterest_income",
	model.MetricNoninterestExpense: "noninterest_expense",
	model.MetricReturnOnAssets:     "roa",
	model.MetricReturnOnEquity:     "roe",
	model.MetricNetInterestMargin:  "nim",
	model.MetricEfficiencyRatio:    "efficiency_ratio",
	model.MetricLeverageRatio:      "leverage_ratio",
}

// MetricColumn resolves a metric to its projected statement column name.
func MetricColumn(m model.Metric) (string, bool) {
	col, ok := metricColumns[m]
	return col, ok
}

// metricColumnOrder fixes the column order both drivers use for statement
// upserts.
var metricColumnOrder = model.AllMetrics()

// metricColumnValues returns the projected column values for a statement
// in metricColumnOrder, nil for underivable ratios.
func metricColumnValues(st *model.Statement) []any {
	vals := make([]any, len(metricColumnOrder))
	for i, m := range metricColumnOrder {
		if v := st.MetricValue(m); v != nil {
			vals[i] = *v
		}
	}
	return vals
}
