package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bfm/internal/api"
	"bfm/internal/config"
	"bfm/internal/fundamentals"
	"bfm/internal/historical"
	"bfm/internal/market"
	"bfm/internal/memo"
	"bfm/internal/news"
	"bfm/web"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port         int
		corsOrigins  string
		pollInterval time.Duration
		prefetch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			var origins []string
			if corsOrigins != "" {
				for _, o := range strings.Split(corsOrigins, ",") {
					origins = append(origins, strings.TrimSpace(o))
				}
			}
			return a.serve(cmd.Context(), origins, pollInterval, prefetch)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "server port (overrides BFM_PORT)")
	cmd.Flags().StringVar(&corsOrigins, "cors", "", "comma-separated allowed CORS origins (empty = allow all for dev)")
	cmd.Flags().DurationVar(&pollInterval, "poll", 30*time.Second, "live price poll interval")
	cmd.Flags().BoolVar(&prefetch, "prefetch", true, "warm the history cache for every company on startup")

	return cmd
}

func (a *app) serve(ctx context.Context, corsOrigins []string, pollInterval time.Duration, prefetch bool) error {
	cfg, logger := a.cfg, a.logger

	if cfg.NeedsSecrets() {
		store, err := config.NewSSMClient(ctx, cfg.AWSRegion)
		if err != nil {
			return err
		}
		if err := cfg.ResolveSecrets(ctx, store); err != nil {
			return err
		}
		logger.Info("resolved API keys from SSM")
	}

	memoCache := memo.New(cfg.MemoTTL)

	cache, err := historical.NewCache(cfg.CacheDB)
	if err != nil {
		return err
	}

	opts := historical.ProviderOptions{
		Memo:          memoCache,
		Logger:        logger,
		PrefetchDelay: 500 * time.Millisecond,
	}
	if cfg.Offline {
		opts.Fallback = historical.NewSyntheticGenerator(historical.DefaultSyntheticConfig())
		logger.Warn("offline mode: synthetic prices are served when Yahoo is unreachable")
	}
	provider := historical.NewDataProvider(historical.NewYahooClient(), cache, opts)
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Error("cache close error", "err", err)
		}
	}()

	fundamentalsSvc := fundamentals.NewService(
		fundamentals.NewYahooClient(),
		fundamentals.NewAlphaVantageClient(cfg.AlphaVantageKey),
		provider,
		memoCache,
		logger,
	)
	if cfg.AlphaVantageKey == "" {
		logger.Warn("no Alpha Vantage key - KPI fallback disabled")
	}
	if cfg.NewsAPIKey == "" {
		logger.Warn("no News API key - news endpoint disabled")
	}

	tickers := config.Tickers(cfg.Companies)
	feed := market.NewPriceFeed(provider, tickers, logger)

	staticFS, err := web.GetDistFS()
	if err != nil {
		return err
	}

	server := api.NewServer(api.Options{
		Companies:      cfg.Companies,
		History:        provider,
		Fundamentals:   fundamentalsSvc,
		News:           news.NewClient(cfg.NewsAPIKey),
		HeatmapSource:  cfg.HeatmapSource,
		PredictionsDir: cfg.PredictionsDir,
		Memo:           memoCache,
		Feed:           feed,
		StaticFS:       staticFS,
		Logger:         logger,
		CORSOrigins:    corsOrigins,
	})

	feed.Start(pollInterval)

	if prefetch {
		go func() {
			n := provider.Prefetch(ctx, tickers)
			logger.Info("history cache warmed", "symbols", n, "of", len(tickers))
		}()
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting dashboard", "url", "http://localhost:"+strconv.Itoa(cfg.Port), "companies", len(cfg.Companies))
		logger.Debug("settings", "cache", cfg.CacheDB, "heatmap", cfg.HeatmapSource, "predictions", cfg.PredictionsDir, "offline", cfg.Offline)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		feed.Stop()
		server.Shutdown()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	feed.Stop()
	server.Shutdown()

	// Graceful HTTP shutdown with 5 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("server shutdown complete")
	return nil
}
