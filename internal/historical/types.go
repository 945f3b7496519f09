package historical

import (
	"errors"
	"math"
	"time"
)

// ErrNoData is returned when a symbol has no bars in the requested window
var ErrNoData = errors.New("no price data")

// DailyBar represents OHLCV data for a single trading day
type DailyBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}

// PriceHistory is a chronological run of daily bars for one symbol
type PriceHistory struct {
	Symbol string     `json:"symbol"`
	Bars   []DailyBar `json:"bars"`
}

// Open returns the opening price of the first bar
func (h *PriceHistory) Open() float64 {
	if len(h.Bars) == 0 {
		return 0
	}
	return h.Bars[0].Open
}

// Close returns the closing price of the last bar
func (h *PriceHistory) Close() float64 {
	if len(h.Bars) == 0 {
		return 0
	}
	return h.Bars[len(h.Bars)-1].Close
}

// High returns the highest high
func (h *PriceHistory) High() float64 {
	if len(h.Bars) == 0 {
		return 0
	}
	high := h.Bars[0].High
	for _, bar := range h.Bars {
		if bar.High > high {
			high = bar.High
		}
	}
	return high
}

// Low returns the lowest low
func (h *PriceHistory) Low() float64 {
	if len(h.Bars) == 0 {
		return 0
	}
	low := h.Bars[0].Low
	for _, bar := range h.Bars {
		if bar.Low < low {
			low = bar.Low
		}
	}
	return low
}

// TotalVolume returns the summed volume of all bars
func (h *PriceHistory) TotalVolume() int64 {
	var total int64
	for _, bar := range h.Bars {
		total += bar.Volume
	}
	return total
}

// ForYear returns the bars whose date falls in year
func (h *PriceHistory) ForYear(year int) *PriceHistory {
	out := &PriceHistory{Symbol: h.Symbol}
	for _, bar := range h.Bars {
		if bar.Date.Year() == year {
			out.Bars = append(out.Bars, bar)
		}
	}
	return out
}

// VolumeRange summarizes traded volume for the volume slider
type VolumeRange struct {
	Min  int64 `json:"min"`
	Max  int64 `json:"max"`
	Mean int64 `json:"mean"`
}

// VolumeRange returns min, max and truncated mean volume. It is zero for an empty history.
func (h *PriceHistory) VolumeRange() VolumeRange {
	if len(h.Bars) == 0 {
		return VolumeRange{}
	}
	vr := VolumeRange{Min: math.MaxInt64, Max: math.MinInt64}
	for _, bar := range h.Bars {
		if bar.Volume < vr.Min {
			vr.Min = bar.Volume
		}
		if bar.Volume > vr.Max {
			vr.Max = bar.Volume
		}
	}
	vr.Mean = int64(float64(h.TotalVolume()) / float64(len(h.Bars)))
	return vr
}
