package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetric_LowerIsBetter(t *testing.T) {
	for _, m := range AllMetrics() {
		if m == MetricEfficiencyRatio {
			assert.True(t, m.LowerIsBetter())
		} else {
			assert.False(t, m.LowerIsBetter(), string(m))
		}
	}
}

func TestStatement_MetricValue(t *testing.T) {
	roa := 1.25
	st := &Statement{
		BalanceSheet: BalanceSheet{
			TotalAssets:   1_000_000,
			TotalDeposits: 800_000,
			TotalEquity:   100_000,
			Loans:         LoanPortfolio{Total: 600_000},
		},
		IncomeStatement: IncomeStatement{
			NetIncome:         2_500,
			NetInterestIncome: 9_000,
		},
		Ratios: Ratios{ReturnOnAssets: &roa},
	}

	assert.Equal(t, 1_000_000.0, *st.MetricValue(MetricTotalAssets))
	assert.Equal(t, 600_000.0, *st.MetricValue(MetricTotalLoans))
	assert.Equal(t, 2_500.0, *st.MetricValue(MetricNetIncome))
	assert.Equal(t, 1.25, *st.MetricValue(MetricReturnOnAssets))

	// Underivable ratios stay nil rather than becoming zero.
	assert.Nil(t, st.MetricValue(MetricReturnOnEquity))
	assert.Nil(t, st.MetricValue(MetricEfficiencyRatio))
}
