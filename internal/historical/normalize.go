package historical

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	// HistoryStart is the first day the dashboard loads
	HistoryStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	// Cutoff is the last day (inclusive) of the opening price series
	Cutoff = time.Date(2025, time.January, 25, 0, 0, 0, 0, time.UTC)
)

// OpeningPriceRow is a daily bar with explicit calendar fields
type OpeningPriceRow struct {
	Date         time.Time `json:"date"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Day          int       `json:"day"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       int64     `json:"volume"`
	OpeningPrice float64   `json:"opening_price"`
}

// MarshalJSON encodes NaN prices as null
func (r OpeningPriceRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date         time.Time `json:"date"`
		Year         int       `json:"year"`
		Month        int       `json:"month"`
		Day          int       `json:"day"`
		Open         *float64  `json:"open"`
		High         *float64  `json:"high"`
		Low          *float64  `json:"low"`
		Close        *float64  `json:"close"`
		Volume       int64     `json:"volume"`
		OpeningPrice *float64  `json:"opening_price"`
	}{
		Date:         r.Date,
		Year:         r.Year,
		Month:        r.Month,
		Day:          r.Day,
		Open:         nullable(r.Open),
		High:         nullable(r.High),
		Low:          nullable(r.Low),
		Close:        nullable(r.Close),
		Volume:       r.Volume,
		OpeningPrice: nullable(r.OpeningPrice),
	})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NormalizeOpening keeps bars dated on or before cutoff, preserving order, and
// derives the calendar and opening price fields. Dates compare by calendar day
// in their own location, so an intraday timestamp on the cutoff day is kept.
func NormalizeOpening(bars []DailyBar, cutoff time.Time) []OpeningPriceRow {
	last := civil(cutoff)

	rows := make([]OpeningPriceRow, 0, len(bars))
	for _, bar := range bars {
		if civil(bar.Date) > last {
			continue
		}
		y, m, d := bar.Date.Date()
		rows = append(rows, OpeningPriceRow{
			Date:         bar.Date,
			Year:         y,
			Month:        int(m),
			Day:          d,
			Open:         bar.Open,
			High:         bar.High,
			Low:          bar.Low,
			Close:        bar.Close,
			Volume:       bar.Volume,
			OpeningPrice: bar.Open,
		})
	}
	return rows
}

// FilterYear returns the rows of one calendar year
func FilterYear(rows []OpeningPriceRow, year int) []OpeningPriceRow {
	var out []OpeningPriceRow
	for _, row := range rows {
		if row.Year == year {
			out = append(out, row)
		}
	}
	return out
}

// civil packs a date into a comparable yyyymmdd integer
func civil(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// ParseDate accepts "2006-01-02", RFC 3339 and "2006-01-02 15:04:05-07:00" timestamps
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02 15:04:05-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed date %q", s)
}

// ParseDailyBars converts tabular rows (date, open, high, low, close, volume) into bars.
// A malformed date fails the whole table.
func ParseDailyBars(records [][]string) ([]DailyBar, error) {
	bars := make([]DailyBar, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("row %d: expected at least date and open", i+1)
		}
		date, err := ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		vals := make([]float64, 5)
		for j := 1; j < len(rec) && j <= 5; j++ {
			if strings.TrimSpace(rec[j]) == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			vals[j-1] = v
		}
		bars = append(bars, DailyBar{
			Date:   date,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: int64(vals[4]),
		})
	}
	return bars, nil
}
