// Package server exposes the HTTP trigger surface: ingestion, cron jobs,
// usage tracking and the daily report, all behind a shared-secret gate.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"funfeed/internal/cron"
	"funfeed/internal/ingest"
	"funfeed/internal/model"
	"funfeed/internal/report"
)

// TriggerHeader carries the trigger source of a cron invocation.
const TriggerHeader = "X-Trigger-Source"

// SecretHeader is the header alternative to the ?secret query parameter.
const SecretHeader = "X-Cron-Secret"

// ErrUnauthorized is returned to callers failing the shared-secret gate.
var ErrUnauthorized = errors.New("unauthorized")

// UsageRecorder is the subset of storage the usage endpoint writes through.
type UsageRecorder interface {
	IncrementUsage(ctx context.Context, day, contentType, language, provider string) error
}

// Server wires the HTTP handlers to the application services.
type Server struct {
	secret   string
	tz       string
	ingest   *ingest.Service
	orch     *cron.Orchestrator
	reporter *report.Reporter
	usage    UsageRecorder
	log      *slog.Logger
}

// New creates a Server.
func New(secret, tz string, ing *ingest.Service, orch *cron.Orchestrator,
	rep *report.Reporter, usage UsageRecorder, log *slog.Logger) *Server {
	return &Server{
		secret:   secret,
		tz:       tz,
		ingest:   ing,
		orch:     orch,
		reporter: rep,
		usage:    usage,
		log:      log,
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSecret)
		r.Post("/api/ingest/{type}", s.handleIngest)
		r.Post("/api/cron/{job}", s.handleCron)
		r.Post("/api/usage", s.handleUsage)
		r.Get("/api/report/daily", s.handleReport)
	})

	return r
}

// requireSecret gates trigger endpoints on an exact shared-secret match. An
// unconfigured secret rejects everything.
func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		supplied := r.URL.Query().Get("secret")
		if supplied == "" {
			supplied = r.Header.Get(SecretHeader)
		}
		if s.secret == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(s.secret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": ErrUnauthorized.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ingestBody is the optional JSON request body of the ingestion endpoint.
// Every field can also arrive as a query parameter; the body wins.
type ingestBody struct {
	Queries    []string `json:"queries"`
	QueryCount int      `json:"queryCount"`
	PerPage    int      `json:"per"`
	Pages      int      `json:"pages"`
	Days       int      `json:"days"`
	DryRun     bool     `json:"dry"`
	Channel    string   `json:"channel"`
	Playlist   string   `json:"playlist"`
	Subreddit  string   `json:"subreddit"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctype := model.ContentType(chi.URLParam(r, "type"))
	if !ctype.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown content type"})
		return
	}

	params := ingestParamsFromQuery(r)
	params.Type = ctype

	if body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024)); err == nil && len(body) > 0 {
		var b ingestBody
		if err := json.Unmarshal(body, &b); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
			return
		}
		mergeBody(&params, b)
	}

	stats, err := s.ingest.Run(r.Context(), params)
	if err != nil {
		s.log.Error("ingestion run failed", "type", ctype, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"scanned":  stats.Scanned,
		"unique":   stats.Unique,
		"inserted": stats.Inserted,
		"updated":  stats.Updated,
		"dryRun":   stats.DryRun,
	})
}

func ingestParamsFromQuery(r *http.Request) ingest.Params {
	q := r.URL.Query()
	p := ingest.Params{
		PerPage:    atoiOr(q.Get("per"), 0),
		Pages:      atoiOr(q.Get("pages"), 0),
		Days:       atoiOr(q.Get("days"), 0),
		QueryCount: atoiOr(q.Get("n"), 0),
		DryRun:     q.Get("dry") == "1" || strings.EqualFold(q.Get("dry"), "true"),
		Channel:    q.Get("channel"),
		Playlist:   q.Get("playlist"),
		Subreddit:  q.Get("subreddit"),
	}
	if raw := q.Get("q"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				p.Queries = append(p.Queries, s)
			}
		}
	}
	return p
}

func mergeBody(p *ingest.Params, b ingestBody) {
	if len(b.Queries) > 0 {
		p.Queries = b.Queries
	}
	if b.QueryCount > 0 {
		p.QueryCount = b.QueryCount
	}
	if b.PerPage > 0 {
		p.PerPage = b.PerPage
	}
	if b.Pages > 0 {
		p.Pages = b.Pages
	}
	if b.Days > 0 {
		p.Days = b.Days
	}
	if b.DryRun {
		p.DryRun = true
	}
	if b.Channel != "" {
		p.Channel = b.Channel
	}
	if b.Playlist != "" {
		p.Playlist = b.Playlist
	}
	if b.Subreddit != "" {
		p.Subreddit = b.Subreddit
	}
}

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")

	trigger := model.TriggerManual
	switch r.Header.Get(TriggerHeader) {
	case "cron":
		trigger = model.TriggerCron
	case "manual", "":
	default:
		trigger = model.TriggerUnknown
	}

	inboundBase := requestBaseURL(r)
	outcome := s.orch.Run(r.Context(), job, trigger, inboundBase)

	status := http.StatusOK
	if !outcome.OK {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, outcome)
}

// requestBaseURL derives the self-referencing base address from the inbound
// request, used when no explicit base URL is configured.
func requestBaseURL(r *http.Request) string {
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

type usageBody struct {
	Type     string `json:"type"`
	Language string `json:"language"`
	Provider string `json:"provider"`
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	var b usageBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 16*1024)).Decode(&b); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if b.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "type is required"})
		return
	}

	loc, err := report.LoadZone(s.tz)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	day := report.LocalDay(time.Now().UTC(), loc)

	if err := s.usage.IncrementUsage(r.Context(), day, b.Type, b.Language, b.Provider); err != nil {
		s.log.Error("usage increment failed", "day", day, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "day": day})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		tz = s.tz
	}

	rep, err := s.reporter.Daily(r.Context(), time.Now().UTC(), tz)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrBadTimezone) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": rep})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
