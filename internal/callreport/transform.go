package callreport

import "github.com/sells-group/callreport-cli/internal/model"

// TransformBalanceSheet maps a merged balance-sheet + loan-detail record
// into the canonical model. Pure; the returned slice lists canonical fields
// that were absent under every candidate code.
func TransformBalanceSheet(reg *Registry, rec Record) (model.BalanceSheet, []string) {
	r := NewResolver(reg, rec)

	re := model.RealEstateLoans{
		Construction:          r.Value("re_construction_residential") + r.Value("re_construction_other"),
		Farmland:              r.Value("re_farmland"),
		ResidentialRevolving:  r.Value("re_residential_revolving"),
		ResidentialFirstLien:  r.Value("re_residential_first_lien"),
		ResidentialJuniorLien: r.Value("re_residential_junior_lien"),
		Multifamily:           r.Value("re_multifamily"),
		OwnerOccupiedNonfarm:  r.Value("re_owner_occupied_nonfarm"),
		OtherNonfarm:          r.Value("re_other_nonfarm"),
	}
	re.Total = re.Construction + re.Farmland + re.ResidentialRevolving +
		re.ResidentialFirstLien + re.ResidentialJuniorLien + re.Multifamily +
		re.OwnerOccupiedNonfarm + re.OtherNonfarm

	consumer := model.ConsumerLoans{
		CreditCards:    r.Value("consumer_credit_cards"),
		OtherRevolving: r.Value("consumer_other_revolving"),
		Auto:           r.Value("consumer_auto"),
		Other:          r.Value("consumer_other"),
	}
	consumer.Total = consumer.CreditCards + consumer.OtherRevolving + consumer.Auto + consumer.Other

	loans := model.LoanPortfolio{
		RealEstate:         re,
		CommercialDomestic: r.Value("ci_domestic"),
		CommercialForeign:  r.Value("ci_foreign"),
		Consumer:           consumer,
		Leases:             r.Value("leases"),
		Other:              r.Value("loans_other"),
	}
	// Prefer the reported portfolio total; reconstruct it from the
	// taxonomy only when the filing omits it.
	if total, ok := r.Lookup("loans_net_unearned"); ok {
		loans.Total = total
	} else {
		loans.Total = re.Total + loans.CommercialDomestic + loans.CommercialForeign +
			consumer.Total + loans.Leases + loans.Other
	}

	bs := model.BalanceSheet{
		CashNoninterestBearing:   r.Value("cash_noninterest_bearing"),
		InterestBearingBalances:  r.Value("interest_bearing_balances"),
		SecuritiesHTM:            r.Value("securities_htm"),
		SecuritiesAFS:            r.Value("securities_afs"),
		EquitySecurities:         r.Value("equity_securities"),
		FedFundsSold:             r.Value("fed_funds_sold") + r.Value("reverse_repos"),
		Loans:                    loans,
		LoansHeldForSale:         r.Value("loans_held_for_sale"),
		AllowanceForCreditLosses: r.Value("allowance_for_credit_losses"),
		TradingAssets:            r.Value("trading_assets"),
		Premises:                 r.Value("premises"),
		OtherRealEstateOwned:     r.Value("other_real_estate_owned"),
		IntangibleAssets:         r.Value("intangible_assets"),
		OtherAssets:              r.Value("other_assets"),
		TotalAssets:              r.Value("total_assets"),

		FedFundsPurchased:  r.Value("fed_funds_purchased") + r.Value("repos_purchased"),
		TradingLiabilities: r.Value("trading_liabilities"),
		OtherBorrowedMoney: r.Value("other_borrowed_money"),
		SubordinatedDebt:   r.Value("subordinated_debt"),
		OtherLiabilities:   r.Value("other_liabilities"),
		TotalLiabilities:   r.Value("total_liabilities"),
		TotalEquity:        r.Value("total_equity"),
	}

	if net, ok := r.Lookup("net_loans"); ok {
		bs.NetLoans = net
	} else {
		bs.NetLoans = loans.Total - bs.AllowanceForCreditLosses
	}

	// The source schema has no single consolidated deposits figure; it must
	// be reconstructed from the domestic and foreign office components.
	bs.DepositsDomestic = r.Value("deposits_domestic")
	bs.DepositsForeign = r.Value("deposits_foreign")
	bs.TotalDeposits = bs.DepositsDomestic + bs.DepositsForeign

	return bs, r.Missing()
}

// TransformIncomeStatement maps an income-statement record into the
// canonical model. Flow fields are year-to-date figures; they are assumed
// present whenever a filing exists, with an explicit 0 fallback otherwise.
func TransformIncomeStatement(reg *Registry, rec Record) (model.IncomeStatement, []string) {
	r := NewResolver(reg, rec)

	is := model.IncomeStatement{
		InterestIncome:           r.Value("interest_income_total"),
		InterestExpense:          r.Value("interest_expense_total"),
		NetInterestIncome:        r.Value("net_interest_income"),
		ProvisionForCreditLosses: r.Value("provision_for_credit_losses"),
		NoninterestIncome:        r.Value("noninterest_income"),
		NoninterestExpense:       r.Value("noninterest_expense"),
		SalariesAndBenefits:      r.Value("salaries_and_benefits"),
		OccupancyExpense:         r.Value("occupancy_expense"),
		RealizedSecuritiesGains:  r.Value("securities_gains_htm") + r.Value("securities_gains_afs"),
		IncomeBeforeTaxes:        r.Value("income_before_taxes"),
		ApplicableTaxes:          r.Value("applicable_taxes"),
		NetIncome:                r.Value("net_income"),
	}
	return is, r.Missing()
}

// TransformCreditQuality maps an RC-N record into the optional
// credit-quality block.
func TransformCreditQuality(reg *Registry, rec Record) model.CreditQuality {
	r := NewResolver(reg, rec)
	return model.CreditQuality{
		PastDue30To89: r.Value("past_due_30_to_89"),
		PastDue90Plus: r.Value("past_due_90_plus"),
		Nonaccrual:    r.Value("nonaccrual"),
	}
}

// TransformChargeOffs maps an RI-B record into the optional charge-off
// block.
func TransformChargeOffs(reg *Registry, rec Record) model.ChargeOffs {
	r := NewResolver(reg, rec)
	co := model.ChargeOffs{
		ChargeOffs: r.Value("charge_offs"),
		Recoveries: r.Value("recoveries"),
	}
	co.NetChargeOffs = co.ChargeOffs - co.Recoveries
	return co
}
