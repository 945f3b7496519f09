package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bfm/internal/config"
	"bfm/internal/heatmap"
	"bfm/internal/historical"
	"bfm/internal/memo"
	"bfm/internal/news"
	"bfm/internal/prediction"
)

// company resolves the {ticker} URL parameter, writing a 404 when it is unknown
func (s *Server) company(w http.ResponseWriter, r *http.Request) (config.Company, bool) {
	c, err := config.FindCompany(s.companies, chi.URLParam(r, "ticker"))
	if err != nil {
		s.writeError(w, r, err)
		return config.Company{}, false
	}
	return c, true
}

// yearParam parses the optional ?year= filter; 0 means no filter
func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return 0, true
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 1900 || year > 2100 {
		http.Error(w, fmt.Sprintf("invalid year %q", v), http.StatusBadRequest)
		return 0, false
	}
	return year, true
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.companies)
}

func (s *Server) getPrices(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeJSON(w, []PriceMessage{})
		return
	}
	quotes := s.feed.Latest()
	out := make([]PriceMessage, len(quotes))
	for i, q := range quotes {
		out[i] = priceMessage(q)
	}
	s.writeJSON(w, out)
}

type OpeningResponse struct {
	Symbol string                       `json:"symbol"`
	Name   string                       `json:"name"`
	Year   int                          `json:"year,omitempty"`
	Rows   []historical.OpeningPriceRow `json:"rows"`
}

func (s *Server) getOpening(w http.ResponseWriter, r *http.Request) {
	c, ok := s.company(w, r)
	if !ok {
		return
	}
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	rows, err := s.history.OpeningPrices(r.Context(), c.Ticker)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if year != 0 {
		rows = historical.FilterYear(rows, year)
	}
	if rows == nil {
		rows = []historical.OpeningPriceRow{}
	}

	s.writeJSON(w, OpeningResponse{Symbol: c.Ticker, Name: c.Name, Year: year, Rows: rows})
}

type HistoryResponse struct {
	Symbol string                 `json:"symbol"`
	Name   string                 `json:"name"`
	Year   int                    `json:"year,omitempty"`
	Bars   []historical.DailyBar  `json:"bars"`
	Volume historical.VolumeRange `json:"volume"`
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	c, ok := s.company(w, r)
	if !ok {
		return
	}
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	h, err := s.history.History(r.Context(), c.Ticker)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if year != 0 {
		h = h.ForYear(year)
	}
	bars := h.Bars
	if bars == nil {
		bars = []historical.DailyBar{}
	}

	s.writeJSON(w, HistoryResponse{
		Symbol: c.Ticker,
		Name:   c.Name,
		Year:   year,
		Bars:   bars,
		Volume: h.VolumeRange(),
	})
}

func (s *Server) getFundamentals(w http.ResponseWriter, r *http.Request) {
	c, ok := s.company(w, r)
	if !ok {
		return
	}
	rows, err := s.fundamentals.Fundamentals(r.Context(), c.Ticker, historical.HistoryStart, historical.Cutoff)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, rows)
}

func (s *Server) getKPI(w http.ResponseWriter, r *http.Request) {
	c, ok := s.company(w, r)
	if !ok {
		return
	}
	kpi, err := s.fundamentals.KPI(r.Context(), c.Ticker)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, kpi)
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	c, ok := s.company(w, r)
	if !ok {
		return
	}
	info, err := s.fundamentals.CompanyInfo(r.Context(), c.Ticker)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if info.Name == "" {
		info.Name = c.Name
	}
	s.writeJSON(w, info)
}

type NewsResponse struct {
	Query    string         `json:"query"`
	Articles []news.Article `json:"articles"`
	Text     string         `json:"text"`
}

func (s *Server) getNews(w http.ResponseWriter, r *http.Request) {
	c, ok := s.company(w, r)
	if !ok {
		return
	}
	articles, err := memo.Get(s.memo, memo.NewKey("news", c.Name), func() ([]news.Article, error) {
		return s.news.Everything(r.Context(), c.Name)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, NewsResponse{Query: c.Name, Articles: articles, Text: news.FormatText(articles)})
}

type PredictionResponse struct {
	Company   string             `json:"company"`
	Symbol    string             `json:"symbol"`
	Points    []prediction.Point `json:"points"`
	ErrorText string             `json:"error_text"`
}

func (s *Server) getPrediction(w http.ResponseWriter, r *http.Request) {
	c, ok := s.company(w, r)
	if !ok {
		return
	}
	points, err := prediction.Load(s.predictionsDir, c.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if points == nil {
		points = []prediction.Point{}
	}
	s.writeJSON(w, PredictionResponse{
		Company:   c.Name,
		Symbol:    c.Ticker,
		Points:    points,
		ErrorText: prediction.ErrorText(points, prediction.EvaluationDate),
	})
}

// HeatmapResponse is a grid with NaN weights encoded as null
type HeatmapResponse struct {
	Rows        int          `json:"rows"`
	Cols        int          `json:"cols"`
	Populated   int          `json:"populated"`
	Weights     [][]*float64 `json:"weights"`
	Names       [][]string   `json:"names"`
	Annotations [][]string   `json:"annotations"`
	Min         *float64     `json:"min"`
	Max         *float64     `json:"max"`
}

func (s *Server) heatmapEntities(ctx context.Context) ([]heatmap.WeightedEntity, error) {
	return memo.Get(s.memo, memo.NewKey("heatmap", s.heatmapSource), func() ([]heatmap.WeightedEntity, error) {
		entities, err := heatmap.Load(ctx, s.heatmapSource)
		if err != nil {
			return nil, fmt.Errorf("failed to load heatmap weights: %w", err)
		}
		return entities, nil
	})
}

// heatmapGrid builds the grid for the ?cols= parameter, writing errors itself
func (s *Server) heatmapGrid(w http.ResponseWriter, r *http.Request) (*heatmap.Grid, bool) {
	cols := heatmap.DefaultColumns
	if v := r.URL.Query().Get("cols"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid cols %q", v), http.StatusBadRequest)
			return nil, false
		}
		cols = n
	}
	// Reject before touching the source
	if cols <= 0 {
		s.writeError(w, r, fmt.Errorf("%w: cols must be positive, got %d", heatmap.ErrInvalidInput, cols))
		return nil, false
	}

	entities, err := s.heatmapEntities(r.Context())
	if err != nil {
		// A malformed source is an upstream problem, not a bad request
		s.logger.Error("heatmap source failed", "source", s.heatmapSource, "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return nil, false
	}

	g, err := heatmap.Build(entities, cols)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return g, true
}

func (s *Server) getHeatmap(w http.ResponseWriter, r *http.Request) {
	g, ok := s.heatmapGrid(w, r)
	if !ok {
		return
	}

	resp := HeatmapResponse{
		Rows:        g.Rows,
		Cols:        g.Cols,
		Populated:   g.Populated,
		Weights:     g.NullableWeights(),
		Names:       g.Names,
		Annotations: g.Annotations,
	}
	if min, max, ok := g.WeightRange(); ok {
		resp.Min, resp.Max = &min, &max
	}
	s.writeJSON(w, resp)
}

func (s *Server) invalidateCache(w http.ResponseWriter, r *http.Request) {
	fn := r.URL.Query().Get("func")
	symbol := r.URL.Query().Get("symbol")

	var n int
	switch {
	case fn == "" && symbol != "":
		http.Error(w, "symbol requires func", http.StatusBadRequest)
		return
	case fn == "":
		n = s.memo.Len()
		s.memo.Flush()
	case symbol != "":
		before := s.memo.Len()
		s.memo.InvalidateKey(memo.NewKey(fn, symbol))
		n = before - s.memo.Len()
	default:
		n = s.memo.Invalidate(fn)
	}

	s.logger.Info("memo cache invalidated", "func", fn, "symbol", symbol, "entries", n)
	s.writeJSON(w, map[string]int{"invalidated": n})
}

func (s *Server) heatmapChart(w http.ResponseWriter, r *http.Request) {
	g, ok := s.heatmapGrid(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := heatmap.Render(w, g, "Company Weightage Heatmap"); err != nil {
		s.logger.Error("failed to render heatmap", "err", err)
	}
}

func (s *Server) predictionChart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.company(w, r)
	if !ok {
		return
	}
	points, err := prediction.Load(s.predictionsDir, c.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := prediction.Render(w, c.Name, points); err != nil {
		s.logger.Error("failed to render prediction chart", "company", c.Name, "err", err)
	}
}
