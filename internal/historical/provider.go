package historical

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"bfm/internal/memo"
)

// ProviderOptions are the optional collaborators of a DataProvider
type ProviderOptions struct {
	// Fallback serves bars when the source fails, e.g. a SyntheticGenerator in offline mode
	Fallback Fetcher
	Memo     *memo.Cache
	Logger   *log.Logger
	// Now defaults to time.Now
	Now func() time.Time
	// PrefetchDelay spaces out upstream calls during Prefetch
	PrefetchDelay time.Duration
}

// DataProvider manages fetching and caching of price history
type DataProvider struct {
	source   Fetcher
	fallback Fetcher
	cache    *Cache
	memo     *memo.Cache
	logger   *log.Logger
	now      func() time.Time
	delay    time.Duration
}

// NewDataProvider creates a new data provider. cache may be nil.
func NewDataProvider(source Fetcher, cache *Cache, opts ProviderOptions) *DataProvider {
	dp := &DataProvider{
		source:   source,
		fallback: opts.Fallback,
		cache:    cache,
		memo:     opts.Memo,
		logger:   opts.Logger,
		now:      opts.Now,
		delay:    opts.PrefetchDelay,
	}
	if dp.logger == nil {
		dp.logger = log.Default()
	}
	if dp.now == nil {
		dp.now = time.Now
	}
	return dp
}

// Close closes the underlying cache
func (dp *DataProvider) Close() error {
	if dp.cache == nil {
		return nil
	}
	return dp.cache.Close()
}

// History returns daily bars from HistoryStart through Cutoff
func (dp *DataProvider) History(ctx context.Context, symbol string) (*PriceHistory, error) {
	return memo.Get(dp.memo, memo.NewKey("history", symbol), func() (*PriceHistory, error) {
		return dp.window(ctx, symbol, HistoryStart, Cutoff)
	})
}

// OpeningPrices returns the normalized opening price series, derived from the
// same HistoryStart..Cutoff window as History so both share one cached fetch
func (dp *DataProvider) OpeningPrices(ctx context.Context, symbol string) ([]OpeningPriceRow, error) {
	return memo.Get(dp.memo, memo.NewKey("openingPrices", symbol), func() ([]OpeningPriceRow, error) {
		h, err := dp.History(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return NormalizeOpening(h.Bars, Cutoff), nil
	})
}

// CurrentPrice returns the most recent close. It bypasses the sqlite cache so the
// price is only as old as the memo TTL.
func (dp *DataProvider) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return memo.Get(dp.memo, memo.NewKey("currentPrice", symbol), func() (float64, error) {
		end := dp.today()
		bars, err := dp.fetch(ctx, symbol, end.AddDate(0, 0, -7), end)
		if err != nil {
			return 0, err
		}
		return bars[len(bars)-1].Close, nil
	})
}

// window fetches one date window, using the cache if available
func (dp *DataProvider) window(ctx context.Context, symbol string, start, end time.Time) (*PriceHistory, error) {
	if dp.cache != nil {
		h, err := dp.cache.Get(symbol, start, end)
		if err != nil {
			return nil, err
		}
		if h != nil {
			dp.logger.Debug("history cache hit", "symbol", symbol, "bars", len(h.Bars))
			return h, nil
		}
	}

	bars, err := dp.source.FetchDaily(ctx, symbol, start, end)
	if err == nil {
		h := &PriceHistory{Symbol: symbol, Bars: bars}
		if dp.cache != nil {
			if err := dp.cache.Put(h, start, end); err != nil {
				// Log but don't fail - we have the data
				dp.logger.Warn("failed to cache history", "symbol", symbol, "err", err)
			}
		}
		dp.logger.Info("fetched history", "symbol", symbol, "bars", len(bars))
		return h, nil
	}

	if dp.fallback == nil {
		return nil, err
	}
	dp.logger.Warn("history source failed, using fallback", "symbol", symbol, "err", err)
	bars, err = dp.fallback.FetchDaily(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return &PriceHistory{Symbol: symbol, Bars: bars}, nil
}

// fetch goes straight to the source, then the fallback
func (dp *DataProvider) fetch(ctx context.Context, symbol string, start, end time.Time) ([]DailyBar, error) {
	bars, err := dp.source.FetchDaily(ctx, symbol, start, end)
	if err != nil && dp.fallback != nil {
		dp.logger.Warn("price source failed, using fallback", "symbol", symbol, "err", err)
		bars, err = dp.fallback.FetchDaily(ctx, symbol, start, end)
	}
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}
	return bars, nil
}

// Prefetch warms the cache with the full history of each symbol.
// Failures are logged and skipped.
func (dp *DataProvider) Prefetch(ctx context.Context, symbols []string) int {
	warmed := 0
	for i, symbol := range symbols {
		if i > 0 && dp.delay > 0 {
			select {
			case <-ctx.Done():
				return warmed
			case <-time.After(dp.delay):
			}
		}
		if _, err := dp.History(ctx, symbol); err != nil {
			dp.logger.Warn("prefetch failed", "symbol", symbol, "err", err)
			continue
		}
		warmed++
	}
	return warmed
}

// ClearCache drops cached history for symbol (all symbols when empty) from both
// the sqlite cache and the memo cache
func (dp *DataProvider) ClearCache(symbol string) (int64, error) {
	if symbol == "" {
		dp.memo.Invalidate("history")
		dp.memo.Invalidate("openingPrices")
		dp.memo.Invalidate("currentPrice")
	} else {
		for _, fn := range []string{"history", "openingPrices", "currentPrice"} {
			dp.memo.InvalidateKey(memo.NewKey(fn, symbol))
		}
	}
	if dp.cache == nil {
		return 0, nil
	}
	return dp.cache.Clear(symbol)
}

func (dp *DataProvider) today() time.Time {
	y, m, d := dp.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
