// Package config loads dashboard settings from the environment, an optional .env
// file, a YAML company list and AWS SSM parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort           = 8080
	DefaultCacheDB        = "bfm_cache.db"
	DefaultHeatmapSource  = "https://raw.githubusercontent.com/SpartanKurt051/BFM/main/Heatmap.csv"
	DefaultPredictionsDir = "."
	DefaultMemoTTL        = 15 * time.Minute
)

// Config holds runtime settings
type Config struct {
	Port           int
	CacheDB        string
	HeatmapSource  string
	PredictionsDir string
	CompaniesFile  string
	Offline        bool
	MemoTTL        time.Duration

	NewsAPIKey      string
	AlphaVantageKey string

	AWSRegion                string
	AWSNewsParameter         string
	AWSAlphaVantageParameter string

	Companies []Company
}

// Load reads envFile into the process environment when it exists, then builds the
// config from the environment. Variables already set are not overridden.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a config from getenv
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:           DefaultPort,
		CacheDB:        orDefault(getenv("BFM_CACHE_DB"), DefaultCacheDB),
		HeatmapSource:  orDefault(getenv("BFM_HEATMAP_SOURCE"), DefaultHeatmapSource),
		PredictionsDir: orDefault(getenv("BFM_PREDICTIONS_DIR"), DefaultPredictionsDir),
		CompaniesFile:  getenv("BFM_COMPANIES_FILE"),
		MemoTTL:        DefaultMemoTTL,

		NewsAPIKey:      getenv("NEWS_API_KEY"),
		AlphaVantageKey: getenv("ALPHA_VANTAGE_API_KEY"),

		AWSRegion:                getenv("AWS_REGION"),
		AWSNewsParameter:         getenv("AWS_NEWS_API_PARAMETER"),
		AWSAlphaVantageParameter: getenv("AWS_ALPHA_VANTAGE_PARAMETER"),
	}

	var errs []error
	if v := getenv("BFM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("invalid BFM_PORT %q", v))
		} else {
			cfg.Port = port
		}
	}
	if v := getenv("BFM_OFFLINE"); v != "" {
		offline, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid BFM_OFFLINE %q: %w", v, err))
		}
		cfg.Offline = offline
	}
	if v := getenv("BFM_MEMO_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			errs = append(errs, fmt.Errorf("invalid BFM_MEMO_TTL %q", v))
		} else {
			cfg.MemoTTL = ttl
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.CompaniesFile == "" {
		cfg.Companies = DefaultCompanies()
		return cfg, nil
	}
	companies, err := LoadCompanies(cfg.CompaniesFile)
	if err != nil {
		return nil, err
	}
	cfg.Companies = companies
	return cfg, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
