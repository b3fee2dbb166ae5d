package callreport

import (
	"fmt"
	"math"

	"github.com/sells-group/callreport-cli/internal/model"
)

// IdentityTolerance is the largest absolute difference an accounting
// identity may show and still pass. Figures are reported in whole
// thousands, so anything under one unit is regulatory rounding.
const IdentityTolerance = 1.0

// CheckBalanceIdentity compares total assets against total liabilities
// plus equity.
func CheckBalanceIdentity(bs model.BalanceSheet) model.IdentityCheck {
	left := bs.TotalAssets
	right := bs.TotalLiabilities + bs.TotalEquity
	diff := math.Abs(left - right)
	return model.IdentityCheck{
		IsValid:    diff < IdentityTolerance,
		Left:       left,
		Right:      right,
		Difference: diff,
	}
}

// CheckIncomeIdentity compares net interest income as reported against
// interest income minus interest expense as separately summed.
func CheckIncomeIdentity(is model.IncomeStatement) model.IdentityCheck {
	left := is.NetInterestIncome
	right := is.InterestIncome - is.InterestExpense
	diff := math.Abs(left - right)
	return model.IdentityCheck{
		IsValid:    diff < IdentityTolerance,
		Left:       left,
		Right:      right,
		Difference: diff,
	}
}

// Validate runs both identity checks. Failures are recorded with a
// human-readable description; they never reject the statement.
func Validate(bs model.BalanceSheet, is model.IncomeStatement) model.Validation {
	v := model.Validation{
		Balance: CheckBalanceIdentity(bs),
		Income:  CheckIncomeIdentity(is),
	}
	v.IsValid = v.Balance.IsValid && v.Income.IsValid
	if !v.Balance.IsValid {
		v.Errors = append(v.Errors, fmt.Sprintf(
			"balance identity: assets %.0f != liabilities + equity %.0f (difference %.0f)",
			v.Balance.Left, v.Balance.Right, v.Balance.Difference))
	}
	if !v.Income.IsValid {
		v.Errors = append(v.Errors, fmt.Sprintf(
			"income identity: net interest income %.0f != interest income - expense %.0f (difference %.0f)",
			v.Income.Left, v.Income.Right, v.Income.Difference))
	}
	return v
}
