package historical

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// Fetcher retrieves daily bars for a symbol between start and end (inclusive)
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]DailyBar, error)
}

// YahooClient fetches daily history from the Yahoo Finance chart API
type YahooClient struct{}

// NewYahooClient creates a new Yahoo Finance history client
func NewYahooClient() *YahooClient {
	return &YahooClient{}
}

// FetchDaily fetches daily bars for symbol. Yahoo treats the end date as exclusive,
// so one day is added to keep end inclusive.
func (c *YahooClient) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]DailyBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exclusiveEnd := end.AddDate(0, 0, 1)
	params := &chart.Params{
		Symbol:   symbol,
		Interval: datetime.OneDay,
		Start: &datetime.Datetime{
			Year:  start.Year(),
			Month: int(start.Month()),
			Day:   start.Day(),
		},
		End: &datetime.Datetime{
			Year:  exclusiveEnd.Year(),
			Month: int(exclusiveEnd.Month()),
			Day:   exclusiveEnd.Day(),
		},
	}

	iter := chart.Get(params)

	var bars []DailyBar
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := iter.Bar()

		open, _ := bar.Open.Float64()
		high, _ := bar.High.Float64()
		low, _ := bar.Low.Float64()
		closePrice, _ := bar.Close.Float64()
		adjClose, _ := bar.AdjClose.Float64()

		// Yahoo emits null rows for halted days
		if open == 0 && closePrice == 0 {
			continue
		}

		bars = append(bars, DailyBar{
			Date:     time.Unix(int64(bar.Timestamp), 0).UTC(),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			AdjClose: adjClose,
			Volume:   int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart request for %s failed: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s between %s and %s", ErrNoData, symbol, start.Format(dateLayout), end.Format(dateLayout))
	}

	return bars, nil
}
