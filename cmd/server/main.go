package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"funfeed/internal/config"
	"funfeed/internal/cron"
	"funfeed/internal/harvest"
	"funfeed/internal/ingest"
	"funfeed/internal/journal"
	"funfeed/internal/keywords"
	"funfeed/internal/report"
	"funfeed/internal/server"
	"funfeed/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	dict := keywords.NewCache(cfg.KeywordsPath)
	rng := keywords.NewLockedRand(time.Now().UnixNano())
	fetcher := harvest.NewFetcher(http.DefaultClient, cfg.FetchTimeout)

	ing := ingest.NewService(store, dict, rng, log)
	registerHarvesters(ing, fetcher, cfg, log)

	jw := journal.NewWriter(store, log)
	orch := cron.New(cfg.CronSecret, cfg.BaseURL, http.DefaultClient, jw, dict, rng,
		cfg.FetchTimeout+30*time.Second, log)
	reporter := report.NewReporter(store)

	srv := server.New(cfg.CronSecret, cfg.ReportTimezone, ing, orch, reporter, store, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.CronInterval > 0 {
		sched := cron.NewScheduler(orch, cfg.CronInterval, log)
		go sched.Run(ctx)
		log.Info("internal scheduler enabled", "interval", cfg.CronInterval)
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", "addr", cfg.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// registerHarvesters wires every provider. Per-type registration order is the
// fixed priority order for concatenating candidate lists.
func registerHarvesters(ing *ingest.Service, fetcher *harvest.Fetcher, cfg *config.Config, log *slog.Logger) {
	ing.Register(harvest.NewOpenverse(fetcher, log))
	ing.Register(harvest.NewWikimedia(fetcher, log))
	ing.Register(harvest.NewYouTube(fetcher, cfg.YouTubeAPIKey, log))
	ing.Register(harvest.NewQuotable(fetcher, log))
	ing.Register(harvest.NewJokeAPI(fetcher, log))
	ing.Register(harvest.NewUselessFacts(fetcher, log))
	ing.Register(harvest.NewRSSWeb(fetcher, cfg.WebFeeds, log))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
