package model

import "time"

// Statement is the canonical financial statement for one entity and one
// reporting period. Exactly one exists per (entity, period); a re-import
// overwrites it in place.
type Statement struct {
	EntityID int64  `json:"entity_id"`
	Period   Period `json:"period"`

	BalanceSheet    BalanceSheet    `json:"balance_sheet"`
	IncomeStatement IncomeStatement `json:"income_statement"`
	Ratios          Ratios          `json:"ratios"`
	Validation      Validation      `json:"validation"`

	CreditQuality *CreditQuality `json:"credit_quality,omitempty"`
	ChargeOffs    *ChargeOffs    `json:"charge_offs,omitempty"`
	PeerAnalysis  *PeerAnalysis  `json:"peer_analysis,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceSheet holds point-in-time positions, in thousands of dollars.
type BalanceSheet struct {
	CashNoninterestBearing   float64       `json:"cash_noninterest_bearing"`
	InterestBearingBalances  float64       `json:"interest_bearing_balances"`
	SecuritiesHTM            float64       `json:"securities_htm"`
	SecuritiesAFS            float64       `json:"securities_afs"`
	EquitySecurities         float64       `json:"equity_securities"`
	FedFundsSold             float64       `json:"fed_funds_sold"`
	Loans                    LoanPortfolio `json:"loans"`
	LoansHeldForSale         float64       `json:"loans_held_for_sale"`
	AllowanceForCreditLosses float64       `json:"allowance_for_credit_losses"`
	NetLoans                 float64       `json:"net_loans"`
	TradingAssets            float64       `json:"trading_assets"`
	Premises                 float64       `json:"premises"`
	OtherRealEstateOwned     float64       `json:"other_real_estate_owned"`
	IntangibleAssets         float64       `json:"intangible_assets"`
	OtherAssets              float64       `json:"other_assets"`
	TotalAssets              float64       `json:"total_assets"`

	DepositsDomestic  float64 `json:"deposits_domestic"`
	DepositsForeign   float64 `json:"deposits_foreign"`
	TotalDeposits     float64 `json:"total_deposits"`
	FedFundsPurchased float64 `json:"fed_funds_purchased"`
	TradingLiabilities float64 `json:"trading_liabilities"`
	OtherBorrowedMoney float64 `json:"other_borrowed_money"`
	SubordinatedDebt  float64 `json:"subordinated_debt"`
	OtherLiabilities  float64 `json:"other_liabilities"`
	TotalLiabilities  float64 `json:"total_liabilities"`
	TotalEquity       float64 `json:"total_equity"`
}

// LoanPortfolio decomposes loans and leases into the reporting taxonomy.
type LoanPortfolio struct {
	RealEstate         RealEstateLoans `json:"real_estate"`
	CommercialDomestic float64         `json:"commercial_domestic"`
	CommercialForeign  float64         `json:"commercial_foreign"`
	Consumer           ConsumerLoans   `json:"consumer"`
	Leases             float64         `json:"leases"`
	Other              float64         `json:"other"`
	Total              float64         `json:"total"`
}

// RealEstateLoans breaks out loans secured by real estate.
type RealEstateLoans struct {
	Construction          float64 `json:"construction"`
	Farmland              float64 `json:"farmland"`
	ResidentialRevolving  float64 `json:"residential_revolving"`
	ResidentialFirstLien  float64 `json:"residential_first_lien"`
	ResidentialJuniorLien float64 `json:"residential_junior_lien"`
	Multifamily           float64 `json:"multifamily"`
	OwnerOccupiedNonfarm  float64 `json:"owner_occupied_nonfarm"`
	OtherNonfarm          float64 `json:"other_nonfarm"`
	Total                 float64 `json:"total"`
}

// ConsumerLoans breaks out loans to individuals by product.
type ConsumerLoans struct {
	CreditCards    float64 `json:"credit_cards"`
	OtherRevolving float64 `json:"other_revolving"`
	Auto           float64 `json:"auto"`
	Other          float64 `json:"other"`
	Total          float64 `json:"total"`
}

// IncomeStatement holds year-to-date flows, in thousands of dollars.
type IncomeStatement struct {
	InterestIncome           float64 `json:"interest_income"`
	InterestExpense          float64 `json:"interest_expense"`
	NetInterestIncome        float64 `json:"net_interest_income"`
	ProvisionForCreditLosses float64 `json:"provision_for_credit_losses"`
	NoninterestIncome        float64 `json:"noninterest_income"`
	NoninterestExpense       float64 `json:"noninterest_expense"`
	SalariesAndBenefits      float64 `json:"salaries_and_benefits"`
	OccupancyExpense         float64 `json:"occupancy_expense"`
	RealizedSecuritiesGains  float64 `json:"realized_securities_gains"`
	IncomeBeforeTaxes        float64 `json:"income_before_taxes"`
	ApplicableTaxes          float64 `json:"applicable_taxes"`
	NetIncome                float64 `json:"net_income"`
}

// Ratios holds derived percentages. A nil field means the ratio could not
// be derived (non-positive denominator), which is distinct from zero.
type Ratios struct {
	EfficiencyRatio   *float64 `json:"efficiency_ratio,omitempty"`
	ReturnOnAssets    *float64 `json:"return_on_assets,omitempty"`
	ReturnOnEquity    *float64 `json:"return_on_equity,omitempty"`
	NetInterestMargin *float64 `json:"net_interest_margin,omitempty"`
	LeverageRatio     *float64 `json:"leverage_ratio,omitempty"`
}

// IdentityCheck is the outcome of a single accounting-identity comparison.
type IdentityCheck struct {
	IsValid    bool    `json:"is_valid"`
	Left       float64 `json:"left"`
	Right      float64 `json:"right"`
	Difference float64 `json:"difference"`
}

// Validation records accounting-identity results. Failures never reject the
// statement; they are written alongside it.
type Validation struct {
	IsValid bool          `json:"is_valid"`
	Balance IdentityCheck `json:"balance"`
	Income  IdentityCheck `json:"income"`
	Errors  []string      `json:"errors,omitempty"`
}

// CreditQuality holds optional past-due and nonaccrual balances (RC-N).
type CreditQuality struct {
	PastDue30To89 float64 `json:"past_due_30_to_89"`
	PastDue90Plus float64 `json:"past_due_90_plus"`
	Nonaccrual    float64 `json:"nonaccrual"`
}

// ChargeOffs holds optional year-to-date charge-off activity (RI-B).
type ChargeOffs struct {
	ChargeOffs    float64 `json:"charge_offs"`
	Recoveries    float64 `json:"recoveries"`
	NetChargeOffs float64 `json:"net_charge_offs"`
}
