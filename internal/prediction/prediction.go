// Package prediction reads precomputed actual vs predicted opening prices and
// renders them for the dashboard.
package prediction

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bfm/internal/historical"
)

// ErrMissingColumn is returned when a prediction file lacks a required column
var ErrMissingColumn = errors.New("missing column")

const (
	ColumnDate      = "Date"
	ColumnActual    = "Actual Price"
	ColumnPredicted = "Predicted Price"

	fileSuffix = "_opening_price_data_with_predictions.csv"
)

// EvaluationDate is the day the dashboard reports prediction error for
var EvaluationDate = time.Date(2025, time.January, 24, 0, 0, 0, 0, time.UTC)

// Point is one day of actual and predicted opening price. Missing prices are NaN.
type Point struct {
	Date      time.Time
	Actual    float64
	Predicted float64
}

// MarshalJSON encodes NaN prices as null
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date      string   `json:"date"`
		Actual    *float64 `json:"actual"`
		Predicted *float64 `json:"predicted"`
	}{
		Date:      p.Date.Format("2006-01-02"),
		Actual:    nullable(p.Actual),
		Predicted: nullable(p.Predicted),
	})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// FileName returns the prediction file path for a company display name
func FileName(dir, company string) string {
	return filepath.Join(dir, company+fileSuffix)
}

// Load reads the prediction file of company from dir
func Load(dir, company string) ([]Point, error) {
	f, err := os.Open(FileName(dir, company))
	if err != nil {
		return nil, fmt.Errorf("failed to open predictions for %s: %w", company, err)
	}
	defer f.Close()

	points, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("predictions for %s: %w", company, err)
	}
	return points, nil
}

// ReadCSV parses a prediction table. Timezones on dates are dropped and the
// calendar date kept. Empty prices become NaN.
func ReadCSV(r io.Reader) ([]Point, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, err
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{ColumnDate, ColumnActual, ColumnPredicted} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	var points []Point
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := historical.ParseDate(field(rec, idx[ColumnDate]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		actual, err := price(field(rec, idx[ColumnActual]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		predicted, err := price(field(rec, idx[ColumnPredicted]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		y, m, d := date.Date()
		points = append(points, Point{
			Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Actual:    actual,
			Predicted: predicted,
		})
	}
	return points, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func price(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ErrorPercentage returns |actual - predicted| / actual * 100 for day. ok is false
// when day is absent or its prices are missing or zero.
func ErrorPercentage(points []Point, day time.Time) (pct float64, ok bool) {
	y, m, d := day.Date()
	for _, p := range points {
		py, pm, pd := p.Date.Date()
		if py != y || pm != m || pd != d {
			continue
		}
		if math.IsNaN(p.Actual) || math.IsNaN(p.Predicted) || p.Actual == 0 {
			return 0, false
		}
		return math.Abs((p.Actual-p.Predicted)/p.Actual) * 100, true
	}
	return 0, false
}

// ErrorText renders the error percentage sentence for day
func ErrorText(points []Point, day time.Time) string {
	label := day.Format("January 2, 2006")
	pct, ok := ErrorPercentage(points, day)
	if !ok {
		return "No data for " + label
	}
	return fmt.Sprintf("Error percentage as on %s: %.2f%%", label, pct)
}
