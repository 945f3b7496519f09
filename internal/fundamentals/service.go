package fundamentals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"bfm/internal/memo"
)

// SummaryFetcher loads quoteSummary data
type SummaryFetcher interface {
	Summary(ctx context.Context, symbol string) (*Summary, error)
}

// OverviewFetcher loads the fallback company overview
type OverviewFetcher interface {
	Overview(ctx context.Context, symbol string) (*Overview, error)
}

// PriceSource returns the latest traded price
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Service combines the fundamentals sources behind memoized lookups
type Service struct {
	yahoo  SummaryFetcher
	alpha  OverviewFetcher
	prices PriceSource
	memo   *memo.Cache
	logger *log.Logger
}

// NewService creates a service. alpha and prices may be nil.
func NewService(yahoo SummaryFetcher, alpha OverviewFetcher, prices PriceSource, cache *memo.Cache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		yahoo:  yahoo,
		alpha:  alpha,
		prices: prices,
		memo:   cache,
		logger: logger,
	}
}

func (s *Service) summary(ctx context.Context, symbol string) (*Summary, error) {
	return memo.Get(s.memo, memo.NewKey("summary", symbol), func() (*Summary, error) {
		return s.yahoo.Summary(ctx, symbol)
	})
}

func (s *Service) overview(ctx context.Context, symbol string) (*Overview, error) {
	if s.alpha == nil {
		return nil, ErrNoAPIKey
	}
	return memo.Get(s.memo, memo.NewKey("overview", symbol), func() (*Overview, error) {
		return s.alpha.Overview(ctx, symbol)
	})
}

// Fundamentals returns the fundamentals table for statements dated within [start, end]
func (s *Service) Fundamentals(ctx context.Context, symbol string, start, end time.Time) ([]Fundamentals, error) {
	sum, err := s.summary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return BuildFundamentals(sum, start, end), nil
}

// CompanyInfo returns the business summary, or NoInformation when Yahoo has none
func (s *Service) CompanyInfo(ctx context.Context, symbol string) (*CompanyInfo, error) {
	sum, err := s.summary(ctx, symbol)
	if err != nil {
		return nil, err
	}

	info := &CompanyInfo{Symbol: symbol, Summary: NoInformation}
	if sum.Price != nil {
		info.Name = sum.Price.LongName
	}
	if p := sum.AssetProfile; p != nil {
		info.Sector = p.Sector
		info.Industry = p.Industry
		if strings.TrimSpace(p.LongBusinessSummary) != "" {
			info.Summary = p.LongBusinessSummary
		}
	}
	return info, nil
}

// KPI builds the KPI card. When Yahoo lacks the IPO date or the KPI, both are
// taken from the Alpha Vantage overview, falling back to NotAvailable.
func (s *Service) KPI(ctx context.Context, symbol string) (*KPISummary, error) {
	sum, err := s.summary(ctx, symbol)
	if err != nil {
		return nil, err
	}

	k := &KPISummary{Symbol: symbol}
	if sum.DefaultKeyStatistics != nil {
		k.EPS = sum.DefaultKeyStatistics.TrailingEps.Value()
	}
	if sum.SummaryDetail != nil {
		k.PERatio = sum.SummaryDetail.TrailingPE.Value()
	}
	if qt := sum.QuoteType; qt != nil && qt.FirstTradeDateEpochUtc != nil {
		k.IPODate = time.Unix(*qt.FirstTradeDateEpochUtc, 0).UTC().Format(dateLayout)
	}
	if fd := sum.FinancialData; fd != nil && fd.ProfitMargins != nil {
		k.KPI = fd.ProfitMargins.Fmt
		if k.KPI == "" {
			k.KPI = fmt.Sprintf("%.4f", fd.ProfitMargins.Raw)
		}
	}

	if k.IPODate == "" || k.KPI == "" {
		ov, err := s.overview(ctx, symbol)
		if err != nil {
			s.logger.Warn("kpi fallback unavailable", "symbol", symbol, "err", err)
			if k.IPODate == "" {
				k.IPODate = NotAvailable
			}
			if k.KPI == "" {
				k.KPI = NotAvailable
			}
		} else {
			k.IPODate = orNA(ov.IPODate)
			k.KPI = orNA(ov.ProfitMargin)
			k.Fallback = true
		}
	}

	price, err := s.currentPrice(ctx, symbol, sum)
	if err != nil {
		return nil, err
	}
	k.CurrentPrice = price
	return k, nil
}

// currentPrice prefers the last daily close and falls back to Yahoo's quote price
func (s *Service) currentPrice(ctx context.Context, symbol string, sum *Summary) (float64, error) {
	var priceErr error
	if s.prices != nil {
		p, err := s.prices.CurrentPrice(ctx, symbol)
		if err == nil {
			return p, nil
		}
		priceErr = err
	}
	if sum.Price != nil && sum.Price.RegularMarketPrice != nil {
		return sum.Price.RegularMarketPrice.Raw, nil
	}
	if priceErr != nil {
		return 0, fmt.Errorf("current price for %s: %w", symbol, priceErr)
	}
	return 0, fmt.Errorf("current price for %s: %w", symbol, ErrNotFound)
}
