// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr   string
	DatabasePath string
	LogLevel     string

	// CronSecret is the shared-secret credential required by trigger
	// endpoints. May be empty; cron runs then fail fast without calling out.
	CronSecret string

	// BaseURL is the self-referencing address cron jobs call back into.
	// Empty means derive it from the inbound request.
	BaseURL string

	ReportTimezone string
	KeywordsPath   string

	// CronInterval is the tick period of the built-in nightly scheduler.
	// Zero disables it; triggering is then purely external.
	CronInterval time.Duration

	// FetchTimeout bounds every outbound provider call.
	FetchTimeout time.Duration

	YouTubeAPIKey string
	WebFeeds      []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:     envOrDefault("LISTEN_ADDR", ":8080"),
		DatabasePath:   envOrDefault("DATABASE_PATH", "./data/funfeed.db"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		CronSecret:     os.Getenv("CRON_SECRET"),
		BaseURL:        strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		ReportTimezone: envOrDefault("REPORT_TZ", "UTC"),
		KeywordsPath:   envOrDefault("KEYWORDS_PATH", "./keywords.yaml"),
		FetchTimeout:   8 * time.Second,
		YouTubeAPIKey:  os.Getenv("YOUTUBE_API_KEY"),
	}

	if raw := os.Getenv("FETCH_TIMEOUT_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid FETCH_TIMEOUT_SECONDS %q", raw)
		}
		cfg.FetchTimeout = time.Duration(secs) * time.Second
	}

	if raw := os.Getenv("CRON_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CRON_INTERVAL %q: %w", raw, err)
		}
		cfg.CronInterval = d
	}

	if raw := os.Getenv("WEB_FEEDS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			cfg.WebFeeds = append(cfg.WebFeeds, s)
		}
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
