package heatmap

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	companyColumn = "Company"
	weightColumn  = "Weight"
)

// ParseCSV reads (Company, Weight) rows in file order. Header names are trimmed.
// Rows with an empty or non-numeric weight keep their place with a NaN weight.
func ParseCSV(r io.Reader) ([]WeightedEntity, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty weights file", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	nameIdx, weightIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case companyColumn:
			nameIdx = i
		case weightColumn:
			weightIdx = i
		}
	}
	if nameIdx < 0 || weightIdx < 0 {
		return nil, fmt.Errorf("%w: header must contain %q and %q columns", ErrInvalidInput, companyColumn, weightColumn)
	}

	var entities []WeightedEntity
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		e := WeightedEntity{Weight: math.NaN()}
		if nameIdx < len(record) {
			e.Name = strings.TrimSpace(record[nameIdx])
		}
		if e.Name == "" {
			continue
		}
		if weightIdx < len(record) {
			if w, err := strconv.ParseFloat(strings.TrimSpace(record[weightIdx]), 64); err == nil {
				e.Weight = w
			}
		}
		entities = append(entities, e)
	}

	return entities, nil
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Load reads a weights CSV from a local path or an http(s) URL
func Load(ctx context.Context, source string) ([]WeightedEntity, error) {
	if source == "" {
		return nil, errors.New("no heatmap source configured")
	}

	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ParseCSV(f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weights request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weights source returned status %d", resp.StatusCode)
	}

	return ParseCSV(resp.Body)
}
