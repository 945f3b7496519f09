package fundamentals

import (
	"slices"
	"time"
)

const dateLayout = "2006-01-02"

// statementDate resolves a statement's end date from its fmt string or epoch seconds
func statementDate(r *Raw) (time.Time, bool) {
	if r == nil {
		return time.Time{}, false
	}
	if r.Fmt != "" {
		if t, err := time.Parse(dateLayout, r.Fmt); err == nil {
			return t, true
		}
	}
	if r.Raw > 0 {
		y, m, d := time.Unix(int64(r.Raw), 0).UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// DebtToEquity divides debt by equity. It is nil when either is unknown or equity is zero.
func DebtToEquity(debt, equity *float64) *float64 {
	if debt == nil || equity == nil || *equity == 0 {
		return nil
	}
	v := *debt / *equity
	return &v
}

// BuildFundamentals produces one row per statement date inside [start, end], oldest first.
// Market cap, enterprise value and PE are current values and repeat on every row.
// With no statement in the window a single row dated end carries the current values.
func BuildFundamentals(s *Summary, start, end time.Time) []Fundamentals {
	var marketCap, ev, pe *float64
	if s.Price != nil {
		marketCap = s.Price.MarketCap.Value()
	}
	if s.SummaryDetail != nil {
		if marketCap == nil {
			marketCap = s.SummaryDetail.MarketCap.Value()
		}
		pe = s.SummaryDetail.TrailingPE.Value()
	}
	if s.DefaultKeyStatistics != nil {
		ev = s.DefaultKeyStatistics.EnterpriseValue.Value()
	}

	rows := make(map[time.Time]*Fundamentals)
	row := func(r *Raw) *Fundamentals {
		date, ok := statementDate(r)
		if !ok || date.Before(start) || date.After(end) {
			return nil
		}
		f, ok := rows[date]
		if !ok {
			f = &Fundamentals{Date: date, MarketCap: marketCap, EnterpriseValue: ev, PERatio: pe}
			rows[date] = f
		}
		return f
	}

	if s.IncomeStatementHistory != nil {
		for _, st := range s.IncomeStatementHistory.Statements {
			if f := row(st.EndDate); f != nil {
				f.TotalRevenue = st.TotalRevenue.Value()
			}
		}
	}
	if s.BalanceSheetHistory != nil {
		for _, st := range s.BalanceSheetHistory.Statements {
			if f := row(st.EndDate); f != nil {
				f.DebtToEquity = DebtToEquity(st.Debt(), st.TotalStockholderEquity.Value())
			}
		}
	}
	if s.CashflowStatementHistory != nil {
		for _, st := range s.CashflowStatementHistory.Statements {
			if f := row(st.EndDate); f != nil {
				f.NetCashFlow = st.OperatingCashflow.Value()
			}
		}
	}

	if len(rows) == 0 {
		return []Fundamentals{{Date: end, MarketCap: marketCap, EnterpriseValue: ev, PERatio: pe}}
	}

	out := make([]Fundamentals, 0, len(rows))
	for _, f := range rows {
		out = append(out, *f)
	}
	slices.SortFunc(out, func(a, b Fundamentals) int { return a.Date.Compare(b.Date) })
	return out
}
