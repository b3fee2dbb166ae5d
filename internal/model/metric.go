package model

import "time"

// Metric identifies one tracked figure used for peer averages and rankings.
type Metric string

const (
	MetricTotalAssets        Metric = "total_assets"
	MetricTotalLoans         Metric = "total_loans"
	MetricTotalDeposits      Metric = "total_deposits"
	MetricTotalEquity        Metric = "total_equity"
	MetricNetIncome          Metric = "net_income"
	MetricNetInterestIncome  Metric = "net_interest_income"
	MetricNoninterestIncome  Metric = "noninterest_income"
	MetricNoninterestExpense Metric = "noninterest_expense"
	MetricReturnOnAssets     Metric = "roa"
	MetricReturnOnEquity     Metric = "roe"
	MetricNetInterestMargin  Metric = "nim"
	MetricEfficiencyRatio    Metric = "efficiency_ratio"
	MetricLeverageRatio      Metric = "leverage_ratio"
)

// AllMetrics returns the tracked metric set in a stable order.
func AllMetrics() []Metric {
	return []Metric{
		MetricTotalAssets,
		MetricTotalLoans,
		MetricTotalDeposits,
		MetricTotalEquity,
		MetricNetIncome,
		MetricNetInterestIncome,
		MetricNoninterestIncome,
		MetricNoninterestExpense,
		MetricReturnOnAssets,
		MetricReturnOnEquity,
		MetricNetInterestMargin,
		MetricEfficiencyRatio,
		MetricLeverageRatio,
	}
}

// LowerIsBetter reports whether a smaller value ranks higher for the metric.
// Efficiency ratio is expense over revenue, so less is better.
func (m Metric) LowerIsBetter() bool {
	return m == MetricEfficiencyRatio
}

// MetricValue extracts the metric's value from a statement. Nil means the
// value is not derivable for this statement (for example a ratio whose
// denominator was non-positive).
func (s *Statement) MetricValue(m Metric) *float64 {
	f := func(v float64) *float64 { return &v }
	switch m {
	case MetricTotalAssets:
		return f(s.BalanceSheet.TotalAssets)
	case MetricTotalLoans:
		return f(s.BalanceSheet.Loans.Total)
	case MetricTotalDeposits:
		return f(s.BalanceSheet.TotalDeposits)
	case MetricTotalEquity:
		return f(s.BalanceSheet.TotalEquity)
	case MetricNetIncome:
		return f(s.IncomeStatement.NetIncome)
	case MetricNetInterestIncome:
		return f(s.IncomeStatement.NetInterestIncome)
	case MetricNoninterestIncome:
		return f(s.IncomeStatement.NoninterestIncome)
	case MetricNoninterestExpense:
		return f(s.IncomeStatement.NoninterestExpense)
	case MetricReturnOnAssets:
		return s.Ratios.ReturnOnAssets
	case MetricReturnOnEquity:
		return s.Ratios.ReturnOnEquity
	case MetricNetInterestMargin:
		return s.Ratios.NetInterestMargin
	case MetricEfficiencyRatio:
		return s.Ratios.EfficiencyRatio
	case MetricLeverageRatio:
		return s.Ratios.LeverageRatio
	}
	return nil
}

// PeerSet is the selected comparison group: nearest larger and smaller
// entities by total assets, closest first on both sides.
type PeerSet struct {
	Larger  []int64 `json:"larger"`
	Smaller []int64 `json:"smaller"`
}

// Ranking is one entity's standing in the population for one metric.
// All fields are nil when the entity had no value for the metric.
type Ranking struct {
	Rank       *int     `json:"rank"`
	Total      *int     `json:"total"`
	Percentile *int     `json:"percentile"`
	Value      *float64 `json:"value"`
}

// PeerAnalysis is attached to a statement by the peer batch once the
// period's population has been ingested.
type PeerAnalysis struct {
	Peers       PeerSet             `json:"peers"`
	Averages    map[Metric]*float64 `json:"averages"`
	Rankings    map[Metric]Ranking  `json:"rankings"`
	GeneratedAt time.Time           `json:"generated_at"`
}
