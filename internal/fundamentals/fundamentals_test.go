package fundamentals

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bfm/internal/memo"
)

const summaryJSON = `{
  "quoteSummary": {
    "result": [{
      "price": {
        "regularMarketPrice": {"raw": 335.4, "fmt": "335.40"},
        "marketCap": {"raw": 3250000000000, "fmt": "3.25T"},
        "currency": "INR",
        "longName": "NTPC Limited"
      },
      "summaryDetail": {"trailingPE": {"raw": 14.2, "fmt": "14.20"}},
      "defaultKeyStatistics": {
        "enterpriseValue": {"raw": 5400000000000, "fmt": "5.4T"},
        "trailingEps": {"raw": 23.6, "fmt": "23.60"}
      },
      "financialData": {"profitMargins": {"raw": 0.1189, "fmt": "11.89%"}},
      "quoteType": {"firstTradeDateEpochUtc": 1131076800},
      "assetProfile": {
        "sector": "Utilities",
        "industry": "Utilities - Regulated Electric",
        "longBusinessSummary": "NTPC Limited generates and sells bulk power."
      },
      "incomeStatementHistory": {"incomeStatementHistory": [
        {"endDate": {"raw": 1711843200, "fmt": "2024-03-31"}, "totalRevenue": {"raw": 1780000000000}},
        {"endDate": {"raw": 1680220800, "fmt": "2023-03-31"}, "totalRevenue": {"raw": 1760000000000}},
        {"endDate": {"raw": 1553990400, "fmt": "2019-03-31"}, "totalRevenue": {"raw": 900000000000}}
      ]},
      "balanceSheetHistory": {"balanceSheetStatements": [
        {"endDate": {"fmt": "2024-03-31"}, "totalDebt": {"raw": 2000}, "totalStockholderEquity": {"raw": 1000}},
        {"endDate": {"fmt": "2023-03-31"}, "longTermDebt": {"raw": 1500}, "totalStockholderEquity": {"raw": 0}}
      ]},
      "cashflowStatementHistory": {"cashflowStatements": [
        {"endDate": {"fmt": "2024-03-31"}, "totalCashFromOperatingActivities": {"raw": 450000000000}}
      ]}
    }],
    "error": null
  }
}`

func newYahooServer(t *testing.T, body string, status int) *YahooClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return &YahooClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
}

func TestYahooSummary(t *testing.T) {
	c := newYahooServer(t, summaryJSON, http.StatusOK)

	s, err := c.Summary(context.Background(), "NTPC.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Price.LongName != "NTPC Limited" {
		t.Errorf("expected NTPC Limited, got %q", s.Price.LongName)
	}
	if got := *s.SummaryDetail.TrailingPE.Value(); got != 14.2 {
		t.Errorf("expected PE 14.2, got %f", got)
	}
	if len(s.IncomeStatementHistory.Statements) != 3 {
		t.Errorf("expected 3 income statements, got %d", len(s.IncomeStatementHistory.Statements))
	}
}

func TestYahooSummaryNotFound(t *testing.T) {
	body := `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for ticker symbol: NOPE"}}}`
	c := newYahooServer(t, body, http.StatusNotFound)

	_, err := c.Summary(context.Background(), "NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func shortRetries(t *testing.T) {
	t.Helper()
	prev := retryDelay
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = prev })
}

func TestYahooSummaryServerError(t *testing.T) {
	shortRetries(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("oops"))
	}))
	defer srv.Close()
	c := &YahooClient{BaseURL: srv.URL, HTTPClient: srv.Client()}

	if _, err := c.Summary(context.Background(), "NTPC.NS"); err == nil {
		t.Error("expected error for HTTP 500")
	}
	if calls != maxRetries {
		t.Errorf("expected %d attempts, got %d", maxRetries, calls)
	}
}

func TestYahooSummaryRetriesTransientErrors(t *testing.T) {
	shortRetries(t)
	statuses := []int{http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK}
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := statuses[calls]
		calls++
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(summaryJSON))
		}
	}))
	defer srv.Close()
	c := &YahooClient{BaseURL: srv.URL, HTTPClient: srv.Client()}

	s, err := c.Summary(context.Background(), "NTPC.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Price.LongName != "NTPC Limited" {
		t.Errorf("expected NTPC Limited, got %q", s.Price.LongName)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestYahooSummaryClientErrorNotRetried(t *testing.T) {
	shortRetries(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := &YahooClient{BaseURL: srv.URL, HTTPClient: srv.Client()}

	if _, err := c.Summary(context.Background(), "NTPC.NS"); err == nil {
		t.Error("expected error for HTTP 401")
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestBuildFundamentals(t *testing.T) {
	c := newYahooServer(t, summaryJSON, http.StatusOK)
	s, err := c.Summary(context.Background(), "NTPC.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := BuildFundamentals(s,
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC))

	// 2019 statement is outside the window
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Date.Year() != 2023 || rows[1].Date.Year() != 2024 {
		t.Errorf("expected rows oldest first, got %v then %v", rows[0].Date, rows[1].Date)
	}

	latest := rows[1]
	if latest.DebtToEquity == nil || *latest.DebtToEquity != 2 {
		t.Errorf("expected debt/equity 2, got %v", latest.DebtToEquity)
	}
	if latest.NetCashFlow == nil || *latest.NetCashFlow != 450000000000 {
		t.Errorf("expected operating cash flow, got %v", latest.NetCashFlow)
	}
	if latest.MarketCap == nil || *latest.MarketCap != 3250000000000 {
		t.Errorf("expected market cap, got %v", latest.MarketCap)
	}

	// Zero equity leaves the ratio unknown
	if rows[0].DebtToEquity != nil {
		t.Errorf("expected nil debt/equity for zero equity, got %f", *rows[0].DebtToEquity)
	}
	if rows[0].NetCashFlow != nil {
		t.Error("expected nil cash flow when no statement exists for the date")
	}
}

func TestBuildFundamentalsNoStatements(t *testing.T) {
	end := time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC)
	rows := BuildFundamentals(&Summary{}, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), end)
	if len(rows) != 1 {
		t.Fatalf("expected a single snapshot row, got %d", len(rows))
	}
	if !rows[0].Date.Equal(end) || rows[0].MarketCap != nil {
		t.Errorf("unexpected snapshot row: %+v", rows[0])
	}
}

func TestDebtToEquity(t *testing.T) {
	debt, equity, zero := 10.0, 4.0, 0.0

	if got := DebtToEquity(&debt, &equity); got == nil || *got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
	if DebtToEquity(nil, &equity) != nil {
		t.Error("expected nil for missing debt")
	}
	if DebtToEquity(&debt, nil) != nil {
		t.Error("expected nil for missing equity")
	}
	if DebtToEquity(&debt, &zero) != nil {
		t.Error("expected nil for zero equity")
	}
}

func TestAlphaVantageOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "OVERVIEW" {
			t.Errorf("expected OVERVIEW, got %s", r.URL.Query().Get("function"))
		}
		if r.URL.Query().Get("apikey") != "demo" {
			t.Errorf("expected apikey=demo, got %s", r.URL.Query().Get("apikey"))
		}
		switch r.URL.Query().Get("symbol") {
		case "NHPC.NS":
			w.Write([]byte(`{"Symbol":"NHPC.NS","IPODate":"2009-09-01","ProfitMargin":"0.32"}`))
		case "LIMIT":
			w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := NewAlphaVantageClient("demo")
	c.BaseURL = srv.URL

	ov, err := c.Overview(context.Background(), "NHPC.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.IPODate != "2009-09-01" || ov.ProfitMargin != "0.32" {
		t.Errorf("unexpected overview: %+v", ov)
	}

	if _, err := c.Overview(context.Background(), "UNKNOWN"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Overview(context.Background(), "LIMIT"); err == nil {
		t.Error("expected error for throttled response")
	}

	if _, err := NewAlphaVantageClient("").Overview(context.Background(), "NHPC.NS"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

type stubSummary struct {
	summary *Summary
	err     error
	calls   int
}

func (s *stubSummary) Summary(ctx context.Context, symbol string) (*Summary, error) {
	s.calls++
	return s.summary, s.err
}

type stubOverview struct {
	overview *Overview
	err      error
	calls    int
}

func (s *stubOverview) Overview(ctx context.Context, symbol string) (*Overview, error) {
	s.calls++
	return s.overview, s.err
}

type stubPrice float64

func (p stubPrice) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return float64(p), nil
}

func TestServiceKPI(t *testing.T) {
	c := newYahooServer(t, summaryJSON, http.StatusOK)
	av := &stubOverview{}
	svc := NewService(c, av, stubPrice(336.1), nil, nil)

	k, err := svc.KPI(context.Background(), "NTPC.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.EPS == nil || *k.EPS != 23.6 {
		t.Errorf("expected EPS 23.6, got %v", k.EPS)
	}
	if k.IPODate != "2005-11-04" {
		t.Errorf("expected IPO date 2005-11-04, got %s", k.IPODate)
	}
	if k.KPI != "11.89%" {
		t.Errorf("expected KPI 11.89%%, got %s", k.KPI)
	}
	if k.CurrentPrice != 336.1 {
		t.Errorf("expected current price 336.1, got %f", k.CurrentPrice)
	}
	if av.calls != 0 || k.Fallback {
		t.Error("expected no Alpha Vantage call when Yahoo has every field")
	}
}

func TestServiceKPIFallback(t *testing.T) {
	yahoo := &stubSummary{summary: &Summary{}}
	av := &stubOverview{overview: &Overview{Symbol: "NHPC.NS", IPODate: "2009-09-01", ProfitMargin: "None"}}
	svc := NewService(yahoo, av, stubPrice(82.5), nil, nil)

	k, err := svc.KPI(context.Background(), "NHPC.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !k.Fallback {
		t.Error("expected fallback to be used")
	}
	if k.IPODate != "2009-09-01" {
		t.Errorf("expected IPO date from overview, got %s", k.IPODate)
	}
	if k.KPI != NotAvailable {
		t.Errorf("expected %s, got %s", NotAvailable, k.KPI)
	}
}

func TestServiceKPIFallbackFails(t *testing.T) {
	yahoo := &stubSummary{summary: &Summary{}}
	av := &stubOverview{err: ErrNoAPIKey}
	svc := NewService(yahoo, av, stubPrice(1), nil, nil)

	k, err := svc.KPI(context.Background(), "NHPC.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.IPODate != NotAvailable || k.KPI != NotAvailable {
		t.Errorf("expected N/A fields, got %q and %q", k.IPODate, k.KPI)
	}
}

func TestServiceKPINoPrice(t *testing.T) {
	yahoo := &stubSummary{summary: &Summary{}}
	svc := NewService(yahoo, nil, nil, nil, nil)

	if _, err := svc.KPI(context.Background(), "X"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound without any price source, got %v", err)
	}
}

func TestServiceCompanyInfo(t *testing.T) {
	c := newYahooServer(t, summaryJSON, http.StatusOK)
	svc := NewService(c, nil, nil, nil, nil)

	info, err := svc.CompanyInfo(context.Background(), "NTPC.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(info.Summary, "bulk power") {
		t.Errorf("unexpected summary %q", info.Summary)
	}

	empty := NewService(&stubSummary{summary: &Summary{}}, nil, nil, nil, nil)
	info, _ = empty.CompanyInfo(context.Background(), "X")
	if info.Summary != NoInformation {
		t.Errorf("expected %q, got %q", NoInformation, info.Summary)
	}
}

func TestServiceMemoizesSummary(t *testing.T) {
	yahoo := &stubSummary{summary: &Summary{}}
	svc := NewService(yahoo, nil, stubPrice(1), memo.New(time.Minute), nil)

	ctx := context.Background()
	svc.CompanyInfo(ctx, "NTPC.NS")
	svc.KPI(ctx, "NTPC.NS")
	if yahoo.calls != 1 {
		t.Errorf("expected 1 summary call, got %d", yahoo.calls)
	}

	yahoo.err = errors.New("down")
	svc.memo.Flush()
	if _, err := svc.CompanyInfo(ctx, "NTPC.NS"); err == nil {
		t.Error("expected error after flush")
	}
	yahoo.err = nil
	if _, err := svc.CompanyInfo(ctx, "NTPC.NS"); err != nil {
		t.Errorf("expected errors not to be memoized, got %v", err)
	}
}
