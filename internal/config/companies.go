package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCompany is returned for a ticker outside the configured list
var ErrUnknownCompany = errors.New("unknown company")

// Company is a display name and its exchange ticker
type Company struct {
	Name   string `yaml:"name" json:"name"`
	Ticker string `yaml:"ticker" json:"ticker"`
}

type companiesFile struct {
	Companies []Company `yaml:"companies"`
}

// DefaultCompanies returns the NSE power-sector companies
func DefaultCompanies() []Company {
	return []Company{
		{Name: "Adani Green Energy", Ticker: "ADANIGREEN.NS"},
		{Name: "Tata Power", Ticker: "TATAPOWER.NS"},
		{Name: "Jsw Energy", Ticker: "JSWENERGY.NS"},
		{Name: "NTPC", Ticker: "NTPC.NS"},
		{Name: "Power Grid Corp", Ticker: "POWERGRID.NS"},
		{Name: "NHPC", Ticker: "NHPC.NS"},
	}
}

// LoadCompanies reads a YAML company list from path
func LoadCompanies(path string) ([]Company, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	companies, err := ParseCompanies(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return companies, nil
}

// ParseCompanies decodes
//
//	companies:
//	  - name: NTPC
//	    ticker: NTPC.NS
//
// Every entry needs a name and a ticker, and tickers must be unique.
func ParseCompanies(data []byte) ([]Company, error) {
	var f companiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Companies) == 0 {
		return nil, errors.New("no companies listed")
	}

	seen := make(map[string]bool, len(f.Companies))
	for i, c := range f.Companies {
		c.Name = strings.TrimSpace(c.Name)
		c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
		if c.Name == "" || c.Ticker == "" {
			return nil, fmt.Errorf("company %d: name and ticker are required", i+1)
		}
		if seen[c.Ticker] {
			return nil, fmt.Errorf("company %d: duplicate ticker %s", i+1, c.Ticker)
		}
		seen[c.Ticker] = true
		f.Companies[i] = c
	}
	return f.Companies, nil
}

// FindCompany looks up a ticker, ignoring case
func FindCompany(companies []Company, ticker string) (Company, error) {
	for _, c := range companies {
		if strings.EqualFold(c.Ticker, ticker) {
			return c, nil
		}
	}
	return Company{}, fmt.Errorf("%w: %s", ErrUnknownCompany, ticker)
}

// Tickers returns the tickers in list order
func Tickers(companies []Company) []string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = c.Ticker
	}
	return out
}
