package historical

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// SyntheticConfig configures synthetic history generation
type SyntheticConfig struct {
	BasePrice      float64 // First open, e.g. 250.0
	Volatility     float64 // Annualized volatility as decimal (e.g., 0.30 = 30%)
	Drift          float64 // Annualized drift as decimal
	EventCount     int     // Number of sudden "news" gaps over the whole window
	EventMagnitude float64 // Size of events as % (e.g., 0.05 = 5%)
}

// DefaultSyntheticConfig returns a config resembling a mid-cap utility stock
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		BasePrice:      250,
		Volatility:     0.30,
		Drift:          0.08,
		EventCount:     6,
		EventMagnitude: 0.05,
	}
}

// SyntheticGenerator creates plausible daily histories when no data source is reachable
type SyntheticGenerator struct {
	config SyntheticConfig
}

// NewSyntheticGenerator creates a new generator
func NewSyntheticGenerator(config SyntheticConfig) *SyntheticGenerator {
	return &SyntheticGenerator{config: config}
}

// FetchDaily generates weekday bars between start and end. The same symbol always
// yields the same series, so offline dashboards are stable across restarts.
func (g *SyntheticGenerator) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]DailyBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Generate(seedFor(symbol), start, end), nil
}

// Generate creates a geometric random walk with occasional gaps
func (g *SyntheticGenerator) Generate(seed int64, start, end time.Time) []DailyBar {
	rng := rand.New(rand.NewSource(seed))
	cfg := g.config

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil
	}

	events := make(map[int]float64, cfg.EventCount)
	for i := 0; i < cfg.EventCount; i++ {
		direction := 1.0
		if rng.Float64() < 0.5 {
			direction = -1.0
		}
		events[rng.Intn(len(days))] = cfg.EventMagnitude * (0.5 + rng.Float64()) * direction
	}

	dailyVol := cfg.Volatility / math.Sqrt(252)
	dailyDrift := cfg.Drift / 252

	bars := make([]DailyBar, len(days))
	prevClose := cfg.BasePrice
	for i, day := range days {
		// Open gaps from the previous close
		gap := (rng.Float64() - 0.5) * 0.004
		if ev, ok := events[i]; ok {
			gap += ev
		}
		open := prevClose * (1 + gap)

		ret := dailyDrift + rng.NormFloat64()*dailyVol
		closePrice := open * math.Exp(ret)

		bars[i] = g.generateBar(rng, day, open, closePrice)
		prevClose = closePrice
	}

	return bars
}

// generateBar creates a full OHLCV bar from the open and close
func (g *SyntheticGenerator) generateBar(rng *rand.Rand, date time.Time, open, closePrice float64) DailyBar {
	lo := math.Min(open, closePrice)
	hi := math.Max(open, closePrice)

	// Wicks of up to ~1% of the open
	wick := open * 0.01
	high := hi + rng.Float64()*wick
	low := lo - rng.Float64()*wick
	if low < 0.01 {
		low = 0.01
	}

	// Volume varies with price movement
	move := math.Abs(closePrice-open) / open
	baseVolume := 2_000_000 + rng.Intn(3_000_000)
	volume := int64(float64(baseVolume) * (1.0 + move*20))

	return DailyBar{
		Date:     date,
		Open:     round2(open),
		High:     round2(high),
		Low:      round2(low),
		Close:    round2(closePrice),
		AdjClose: round2(closePrice),
		Volume:   volume,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func seedFor(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}
