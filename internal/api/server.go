package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"bfm/internal/config"
	"bfm/internal/fundamentals"
	"bfm/internal/heatmap"
	"bfm/internal/historical"
	"bfm/internal/market"
	"bfm/internal/memo"
	"bfm/internal/news"
	"bfm/internal/prediction"
)

// HistoryService serves daily price history
type HistoryService interface {
	History(ctx context.Context, symbol string) (*historical.PriceHistory, error)
	OpeningPrices(ctx context.Context, symbol string) ([]historical.OpeningPriceRow, error)
}

// FundamentalsService serves fundamentals, KPIs and company profiles
type FundamentalsService interface {
	Fundamentals(ctx context.Context, symbol string, start, end time.Time) ([]fundamentals.Fundamentals, error)
	KPI(ctx context.Context, symbol string) (*fundamentals.KPISummary, error)
	CompanyInfo(ctx context.Context, symbol string) (*fundamentals.CompanyInfo, error)
}

// NewsService searches news articles
type NewsService interface {
	Everything(ctx context.Context, query string) ([]news.Article, error)
}

// Options wires the server to its data sources
type Options struct {
	Companies      []config.Company
	History        HistoryService
	Fundamentals   FundamentalsService
	News           NewsService
	HeatmapSource  string
	PredictionsDir string
	Memo           *memo.Cache
	Feed           *market.PriceFeed
	StaticFS       fs.FS
	Logger         *log.Logger
	// NewsPerMinute limits news requests per client, default 30
	NewsPerMinute int
	// CORSOrigins lists allowed origins; empty allows all
	CORSOrigins []string
}

type Server struct {
	companies      []config.Company
	history        HistoryService
	fundamentals   FundamentalsService
	news           NewsService
	heatmapSource  string
	predictionsDir string
	memo           *memo.Cache
	feed           *market.PriceFeed
	feedCh         chan market.Quote
	hub            *Hub
	newsLimiter    *RateLimiter
	staticFS       fs.FS
	upgrader       websocket.Upgrader
	corsOrigins    []string
	logger         *log.Logger
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	perMinute := opts.NewsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}

	s := &Server{
		companies:      opts.Companies,
		history:        opts.History,
		fundamentals:   opts.Fundamentals,
		news:           opts.News,
		heatmapSource:  opts.HeatmapSource,
		predictionsDir: opts.PredictionsDir,
		memo:           opts.Memo,
		feed:           opts.Feed,
		hub:            NewHub(logger),
		newsLimiter:    NewRateLimiter(perMinute, time.Minute),
		staticFS:       opts.StaticFS,
		corsOrigins:    opts.CORSOrigins,
		logger:         logger,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.checkCORSOrigin(r.Header.Get("Origin"))
		},
	}

	if s.feed != nil {
		s.feedCh = s.feed.Subscribe()
		go s.forwardQuotes(s.feedCh)
	}
	return s
}

// checkCORSOrigin checks if an origin is allowed
func (s *Server) checkCORSOrigin(origin string) bool {
	// Empty list = allow all (development mode)
	if len(s.corsOrigins) == 0 {
		return true
	}
	// Empty origin header = same-origin request, always allow
	if origin == "" {
		return true
	}
	for _, allowed := range s.corsOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	allowedOrigins := s.corsOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"} // Allow all in development mode
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/companies", s.listCompanies)
		r.Get("/prices", s.getPrices)

		r.Route("/companies/{ticker}", func(r chi.Router) {
			r.Get("/opening", s.getOpening)
			r.Get("/history", s.getHistory)
			r.Get("/fundamentals", s.getFundamentals)
			r.Get("/kpi", s.getKPI)
			r.Get("/info", s.getInfo)
			r.With(s.newsLimiter.Middleware).Get("/news", s.getNews)
			r.Get("/prediction", s.getPrediction)
		})

		r.Get("/heatmap", s.getHeatmap)
		r.Post("/cache/invalidate", s.invalidateCache)
	})

	r.Route("/charts", func(r chi.Router) {
		r.Get("/heatmap", s.heatmapChart)
		r.Get("/prediction/{ticker}", s.predictionChart)
	})

	r.Get("/ws", s.handleWebSocket)

	// Serve static files (frontend)
	if s.staticFS != nil {
		fileServer := http.FileServer(http.FS(s.staticFS))
		r.Handle("/*", fileServer)
	}

	return r
}

// PriceMessage is the websocket payload for one quote
type PriceMessage struct {
	Type   string    `json:"type"`
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

func priceMessage(q market.Quote) PriceMessage {
	return PriceMessage{Type: "price", Symbol: q.Symbol, Price: q.Price, Time: q.Time}
}

func (s *Server) forwardQuotes(ch chan market.Quote) {
	for q := range ch {
		s.hub.Broadcast(priceMessage(q))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := s.hub.newClient(conn)
	s.hub.Register(client)

	// Send the latest known prices
	if s.feed != nil {
		for _, q := range s.feed.Latest() {
			client.Send(priceMessage(q))
		}
	}

	go client.WritePump()
	go client.ReadPump()
}

// writeJSON encodes v as the response body. Encoding happens before any byte is
// written so a failure still produces a 500.
func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", "err", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(data, '\n'))
}

// writeError maps domain errors to HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, heatmap.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, config.ErrUnknownCompany),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, historical.ErrNoData),
		errors.Is(err, fundamentals.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, news.ErrNoAPIKey):
		status = http.StatusServiceUnavailable
	case errors.Is(err, prediction.ErrMissingColumn):
		status = http.StatusInternalServerError
	case errors.Is(err, context.Canceled):
		// Client went away
		return
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	http.Error(w, err.Error(), status)
}

// Shutdown stops internal goroutines (feed forwarding, rate limiter, hub)
func (s *Server) Shutdown() {
	if s.feed != nil {
		s.feed.Unsubscribe(s.feedCh)
	}
	s.newsLimiter.Stop()
	s.hub.Stop()
}
