package callreport

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/callreport-cli/internal/model"
)

// AnnualizationFactor returns the multiplier that projects a year-to-date
// flow figure to a full-year equivalent, keyed to the quarter the period
// ends: Q1 x4, Q2 x2, Q3 x4/3, Q4 x1.
func AnnualizationFactor(m time.Month) (float64, error) {
	switch m {
	case time.March:
		return 4, nil
	case time.June:
		return 2, nil
	case time.September:
		return 4.0 / 3.0, nil
	case time.December:
		return 1, nil
	}
	return 0, eris.Errorf("callreport: no annualization factor for month %s", m)
}

// EarningAssets sums the point-in-time interest-earning positions used as
// the NIM denominator: net loans, all securities categories,
// interest-bearing bank balances, and fed funds sold / reverse repos.
// A known simplification versus a true average-balance NIM.
func EarningAssets(bs model.BalanceSheet) float64 {
	return bs.NetLoans + bs.SecuritiesHTM + bs.SecuritiesAFS + bs.EquitySecurities +
		bs.InterestBearingBalances + bs.FedFundsSold
}

// CalculateRatios derives the profitability and leverage ratios for one
// statement. Flow figures are annualized before division by point-in-time
// denominators. A ratio whose denominator is non-positive is left nil.
func CalculateRatios(bs model.BalanceSheet, is model.IncomeStatement, period model.Period) (model.Ratios, error) {
	factor, err := AnnualizationFactor(period.Month())
	if err != nil {
		return model.Ratios{}, err
	}

	var ratios model.Ratios

	// Efficiency ratio divides two year-to-date flows, so the
	// annualization factors cancel.
	if revenue := is.NetInterestIncome + is.NoninterestIncome; revenue > 0 {
		ratios.EfficiencyRatio = pct(is.NoninterestExpense / revenue)
	}
	if bs.TotalAssets > 0 {
		ratios.ReturnOnAssets = pct(is.NetIncome * factor / bs.TotalAssets)
		ratios.LeverageRatio = pct(bs.TotalEquity / bs.TotalAssets)
	}
	if bs.TotalEquity > 0 {
		ratios.ReturnOnEquity = pct(is.NetIncome * factor / bs.TotalEquity)
	}
	if earning := EarningAssets(bs); earning > 0 {
		ratios.NetInterestMargin = pct(is.NetInterestIncome * factor / earning)
	}

	return ratios, nil
}

func pct(v float64) *float64 {
	p := v * 100
	return &p
}
