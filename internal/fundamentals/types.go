// Package fundamentals serves company fundamentals, KPIs and profile text from the
// Yahoo Finance quoteSummary API, with Alpha Vantage as a fallback for the fields
// Yahoo leaves empty.
package fundamentals

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an upstream source has no record for a symbol
var ErrNotFound = errors.New("symbol not found")

// NotAvailable is shown for KPI fields no source could provide
const NotAvailable = "N/A"

// NoInformation is shown when a company has no business summary
const NoInformation = "No information available."

// Raw is Yahoo's {raw, fmt} number encoding
type Raw struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

// Value returns a pointer to the raw number, or nil when r is nil
func (r *Raw) Value() *float64 {
	if r == nil {
		return nil
	}
	v := r.Raw
	return &v
}

// SummaryResponse is the quoteSummary envelope
type SummaryResponse struct {
	QuoteSummary struct {
		Result []Summary `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Summary holds the quoteSummary modules the dashboard reads
type Summary struct {
	Price *struct {
		RegularMarketPrice *Raw   `json:"regularMarketPrice"`
		MarketCap          *Raw   `json:"marketCap"`
		Currency           string `json:"currency"`
		LongName           string `json:"longName"`
	} `json:"price"`
	SummaryDetail *struct {
		TrailingPE *Raw `json:"trailingPE"`
		MarketCap  *Raw `json:"marketCap"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics *struct {
		EnterpriseValue *Raw `json:"enterpriseValue"`
		TrailingEps     *Raw `json:"trailingEps"`
	} `json:"defaultKeyStatistics"`
	FinancialData *struct {
		ProfitMargins *Raw `json:"profitMargins"`
		TotalDebt     *Raw `json:"totalDebt"`
	} `json:"financialData"`
	QuoteType *struct {
		FirstTradeDateEpochUtc *int64 `json:"firstTradeDateEpochUtc"`
	} `json:"quoteType"`
	AssetProfile *struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		LongBusinessSummary string `json:"longBusinessSummary"`
	} `json:"assetProfile"`
	IncomeStatementHistory *struct {
		Statements []IncomeStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`
	BalanceSheetHistory *struct {
		Statements []BalanceSheet `json:"balanceSheetStatements"`
	} `json:"balanceSheetHistory"`
	CashflowStatementHistory *struct {
		Statements []CashflowStatement `json:"cashflowStatements"`
	} `json:"cashflowStatementHistory"`
}

// IncomeStatement is one annual income statement
type IncomeStatement struct {
	EndDate      *Raw `json:"endDate"`
	TotalRevenue *Raw `json:"totalRevenue"`
	NetIncome    *Raw `json:"netIncome"`
}

// BalanceSheet is one annual balance sheet
type BalanceSheet struct {
	EndDate                *Raw `json:"endDate"`
	TotalDebt              *Raw `json:"totalDebt"`
	LongTermDebt           *Raw `json:"longTermDebt"`
	ShortLongTermDebt      *Raw `json:"shortLongTermDebt"`
	TotalStockholderEquity *Raw `json:"totalStockholderEquity"`
}

// Debt returns total debt, summing long and short term debt when Yahoo omits the total
func (b BalanceSheet) Debt() *float64 {
	if b.TotalDebt != nil {
		return b.TotalDebt.Value()
	}
	if b.LongTermDebt == nil && b.ShortLongTermDebt == nil {
		return nil
	}
	var total float64
	if b.LongTermDebt != nil {
		total += b.LongTermDebt.Raw
	}
	if b.ShortLongTermDebt != nil {
		total += b.ShortLongTermDebt.Raw
	}
	return &total
}

// CashflowStatement is one annual cash flow statement
type CashflowStatement struct {
	EndDate           *Raw `json:"endDate"`
	OperatingCashflow *Raw `json:"totalCashFromOperatingActivities"`
}

// Fundamentals is one dated row of the fundamentals table. Nil means unknown.
type Fundamentals struct {
	Date            time.Time `json:"date"`
	MarketCap       *float64  `json:"market_cap"`
	EnterpriseValue *float64  `json:"enterprise_value"`
	PERatio         *float64  `json:"pe_ratio"`
	DebtToEquity    *float64  `json:"debt_to_equity"`
	TotalRevenue    *float64  `json:"total_revenue"`
	NetCashFlow     *float64  `json:"net_cash_flow"`
}

// KPISummary is the headline numbers card
type KPISummary struct {
	Symbol       string   `json:"symbol"`
	EPS          *float64 `json:"eps"`
	PERatio      *float64 `json:"pe_ratio"`
	IPODate      string   `json:"ipo_date"`
	KPI          string   `json:"kpi"`
	CurrentPrice float64  `json:"current_price"`
	// Fallback is set when IPO date and KPI came from Alpha Vantage
	Fallback bool `json:"fallback"`
}

// CompanyInfo is the "About" panel
type CompanyInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
	Summary  string `json:"summary"`
}
