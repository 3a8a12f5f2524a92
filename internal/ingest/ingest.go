// Package ingest runs the harvest pipeline for one content type: resolve
// queries, call the type's harvesters in priority order, and merge the
// candidates into the content store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"funfeed/internal/harvest"
	"funfeed/internal/keywords"
	"funfeed/internal/model"
	"funfeed/internal/storage"
)

const defaultQueryCount = 3

// Params describes one ingestion run.
type Params struct {
	Type model.ContentType

	// Queries is the explicit query list. Empty means synthesize.
	Queries    []string
	QueryCount int

	PerPage   int
	Pages     int
	Days      int
	Channel   string
	Playlist  string
	Subreddit string

	// DryRun harvests and maps without touching the store.
	DryRun bool
}

// Stats is the outcome of one ingestion run.
type Stats struct {
	Scanned  int  `json:"scanned"`
	Unique   int  `json:"unique"`
	Inserted int  `json:"inserted"`
	Updated  int  `json:"updated"`
	DryRun   bool `json:"dryRun,omitempty"`
}

// Sink is the subset of storage the pipeline writes through.
type Sink interface {
	UpsertContentBatch(ctx context.Context, batch []model.ContentRecord) (storage.UpsertResult, error)
}

// Service wires harvesters, the query dictionary and the content store.
type Service struct {
	harvesters map[model.ContentType][]harvest.Harvester
	sink       Sink
	dict       *keywords.Cache
	rng        *rand.Rand
	log        *slog.Logger
}

// NewService creates an ingestion Service. Harvesters must be registered
// afterwards; registration order per type is the fixed priority order.
func NewService(sink Sink, dict *keywords.Cache, rng *rand.Rand, log *slog.Logger) *Service {
	return &Service{
		harvesters: make(map[model.ContentType][]harvest.Harvester),
		sink:       sink,
		dict:       dict,
		rng:        rng,
		log:        log,
	}
}

// Register appends a harvester to its content type's priority list.
func (s *Service) Register(h harvest.Harvester) {
	s.harvesters[h.Type()] = append(s.harvesters[h.Type()], h)
}

// Run executes one ingestion run and returns its stats. Provider failures
// surface only as smaller counts; a store failure fails the run.
func (s *Service) Run(ctx context.Context, p Params) (*Stats, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("unknown content type %q", p.Type)
	}
	hs := s.harvesters[p.Type]
	if len(hs) == 0 {
		return nil, fmt.Errorf("no harvesters registered for type %q", p.Type)
	}

	queries := p.Queries
	if len(queries) == 0 {
		queries = s.synthesizeQueries(p.QueryCount)
	}

	hp := harvest.Params{
		PerPage:   p.PerPage,
		Pages:     p.Pages,
		Days:      p.Days,
		Channel:   p.Channel,
		Playlist:  p.Playlist,
		Subreddit: p.Subreddit,
	}

	var candidates []model.ContentRecord
	for _, h := range hs {
		batch := h.Harvest(ctx, queries, hp)
		s.log.Debug("harvested", "type", p.Type, "provider", h.Provider(), "candidates", len(batch))
		candidates = append(candidates, batch...)
	}

	collapsed := storage.CollapseBatch(candidates)
	stats := &Stats{
		Scanned: len(candidates),
		Unique:  len(collapsed),
		DryRun:  p.DryRun,
	}
	if p.DryRun {
		return stats, nil
	}

	res, err := s.sink.UpsertContentBatch(ctx, collapsed)
	if err != nil {
		return nil, fmt.Errorf("upsert batch: %w", err)
	}
	stats.Inserted = res.Inserted
	stats.Updated = res.Updated

	s.log.Info("ingestion run finished", "type", p.Type,
		"scanned", stats.Scanned, "unique", stats.Unique,
		"inserted", stats.Inserted, "updated", stats.Updated)
	return stats, nil
}

// synthesizeQueries builds queries from the cached dictionary. A dictionary
// load failure degrades to the synthesizer's built-in fallback list.
func (s *Service) synthesizeQueries(n int) []string {
	if n <= 0 {
		n = defaultQueryCount
	}
	dict, err := s.dict.Get()
	if err != nil {
		s.log.Warn("keyword dictionary unavailable, using fallback queries", "error", err)
		dict = nil
	}
	return keywords.Synthesize(dict, n, s.rng)
}
