package harvest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"funfeed/internal/model"
)

// routeTransport serves canned responses keyed by a substring of the request
// URL. Unmatched requests get a 404.
type routeTransport struct {
	routes map[string]string
	err    error
	status int
}

func (m *routeTransport) Do(req *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = 200
	}
	for substr, body := range m.routes {
		if strings.Contains(req.URL.String(), substr) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(bytes.NewBufferString(body)),
			}, nil
		}
	}
	return &http.Response{StatusCode: 404, Body: io.NopCloser(bytes.NewBufferString("not found"))}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(transport *routeTransport) *Fetcher {
	return NewFetcher(transport, 2*time.Second)
}

const openverseJSON = `{
	"results": [
		{"id": "ov1", "title": "Cat on a roof", "url": "https://img.example/cat.jpg",
		 "thumbnail": "https://img.example/cat_small.jpg", "foreign_landing_url": "https://site.example/cat", "creator": "ada"},
		{"id": "ov2", "title": "No direct URL", "url": "", "foreign_landing_url": "https://site.example/fallback", "thumbnail": ""},
		{"id": "ov3", "title": "Unusable", "url": "", "foreign_landing_url": ""}
	]
}`

func TestOpenverseHarvestMapsResults(t *testing.T) {
	h := NewOpenverse(newTestFetcher(&routeTransport{routes: map[string]string{"q=cats": openverseJSON}}), discardLogger())

	got := h.Harvest(context.Background(), []string{"cats"}, Params{PerPage: 10})

	want := []model.ContentRecord{
		{
			Type: model.TypeImage, NaturalKey: "https://img.example/cat.jpg", Provider: "openverse",
			Title: "Cat on a roof", Text: "ada", URL: "https://img.example/cat.jpg",
			Thumb: "https://img.example/cat_small.jpg",
		},
		{
			Type: model.TypeImage, NaturalKey: "https://site.example/fallback", Provider: "openverse",
			Title: "No direct URL", URL: "https://site.example/fallback",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestHarvestFailuresYieldZeroResults(t *testing.T) {
	tests := []struct {
		name      string
		transport *routeTransport
	}{
		{name: "server error", transport: &routeTransport{status: 500, routes: map[string]string{"q=": "boom"}}},
		{name: "transport error", transport: &routeTransport{err: io.ErrUnexpectedEOF}},
		{name: "invalid json", transport: &routeTransport{routes: map[string]string{"q=": "not json"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOpenverse(newTestFetcher(tt.transport), discardLogger())
			got := h.Harvest(context.Background(), []string{"cats", "robots"}, Params{})
			if len(got) != 0 {
				t.Errorf("expected zero results, got %d", len(got))
			}
		})
	}
}

func TestHarvestPartialQueryFailure(t *testing.T) {
	// First query name 404s, second query returns results: the failing query
	// must not abort the remaining ones.
	transport := &routeTransport{routes: map[string]string{"q=robots": openverseJSON}}
	h := NewOpenverse(newTestFetcher(transport), discardLogger())

	got := h.Harvest(context.Background(), []string{"cats", "robots"}, Params{})
	if len(got) != 2 {
		t.Fatalf("expected results from the surviving query, got %d records", len(got))
	}
}

const wikimediaJSON = `{
	"query": {"pages": {
		"10": {"title": "File:Skyline.jpg", "imageinfo": [{"url": "https://commons.example/skyline.jpg", "thumburl": "https://commons.example/skyline_320.jpg"}]},
		"11": {"title": "File:NoInfo.jpg", "imageinfo": []}
	}}
}`

func TestWikimediaHarvestMapsPages(t *testing.T) {
	h := NewWikimedia(newTestFetcher(&routeTransport{routes: map[string]string{"gsrsearch=": wikimediaJSON}}), discardLogger())

	got := h.Harvest(context.Background(), []string{"skyline"}, Params{PerPage: 5})
	want := []model.ContentRecord{{
		Type: model.TypeImage, NaturalKey: "https://commons.example/skyline.jpg", Provider: "wikimedia",
		Title: "File:Skyline.jpg", URL: "https://commons.example/skyline.jpg",
		Thumb: "https://commons.example/skyline_320.jpg",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

const youtubeJSON = `{
	"items": [
		{"id": {"videoId": "abc123"}, "snippet": {"title": "Cat video", "description": "A cat.",
		 "channelTitle": "CatTV", "thumbnails": {"medium": {"url": "https://yt.example/abc123/mq.jpg"}}}},
		{"id": {"videoId": ""}, "snippet": {"title": "Not a video"}}
	]
}`

func TestYouTubeHarvest(t *testing.T) {
	h := NewYouTube(newTestFetcher(&routeTransport{routes: map[string]string{"/search?": youtubeJSON}}), "test-key", discardLogger())

	got := h.Harvest(context.Background(), []string{"cats"}, Params{PerPage: 5})
	want := []model.ContentRecord{{
		Type: model.TypeVideo, NaturalKey: "abc123", Provider: "youtube",
		Title: "Cat video", Text: "A cat.",
		URL:   "https://www.youtube.com/watch?v=abc123",
		Thumb: "https://yt.example/abc123/mq.jpg",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestYouTubeWithoutKeyIsDisabled(t *testing.T) {
	h := NewYouTube(newTestFetcher(&routeTransport{}), "", discardLogger())
	if got := h.Harvest(context.Background(), []string{"cats"}, Params{}); got != nil {
		t.Errorf("expected nil without API key, got %v", got)
	}
}

const jokeJSON = `{
	"error": false,
	"jokes": [{"id": 42, "joke": "A joke about cats.", "category": "Misc", "lang": "en"}]
}`

func TestJokeAPIHarvest(t *testing.T) {
	h := NewJokeAPI(newTestFetcher(&routeTransport{routes: map[string]string{"contains=cats": jokeJSON}}), discardLogger())

	got := h.Harvest(context.Background(), []string{"cats"}, Params{})
	if len(got) != 1 {
		t.Fatalf("expected 1 joke, got %d", len(got))
	}
	if got[0].NaturalKey != "jokeapi/42" {
		t.Errorf("natural key = %q, want jokeapi/42", got[0].NaturalKey)
	}
	if got[0].Type != model.TypeJoke {
		t.Errorf("type = %q, want joke", got[0].Type)
	}
}

const quotableJSON = `{
	"results": [{"_id": "q9", "content": "Stay curious.", "author": "Anon"}]
}`

func TestQuotableHarvest(t *testing.T) {
	h := NewQuotable(newTestFetcher(&routeTransport{routes: map[string]string{"query=": quotableJSON}}), discardLogger())

	got := h.Harvest(context.Background(), []string{"curiosity"}, Params{})
	if len(got) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(got))
	}
	if got[0].NaturalKey != "quotable/q9" {
		t.Errorf("natural key = %q, want quotable/q9", got[0].NaturalKey)
	}
}

func TestRSSWebHarvestMatchesQueries(t *testing.T) {
	xml, err := os.ReadFile("../../testdata/sample.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	transport := &routeTransport{routes: map[string]string{"funlinks.example/feed": string(xml)}}
	h := NewRSSWeb(newTestFetcher(transport), []string{"https://funlinks.example/feed"}, discardLogger())

	tests := []struct {
		name      string
		queries   []string
		wantLinks []string
	}{
		{
			name:      "single token match",
			queries:   []string{"funny cats"},
			wantLinks: []string{"https://funlinks.example/posts/cats-container"},
		},
		{
			name:    "multiple queries",
			queries: []string{"robots", "iceland"},
			wantLinks: []string{
				"https://funlinks.example/posts/retro-robots",
				"https://funlinks.example/posts/iceland-knitting",
			},
		},
		{
			name:    "no match",
			queries: []string{"quantum finance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Harvest(context.Background(), tt.queries, Params{PerPage: 10})
			var links []string
			for _, r := range got {
				links = append(links, r.URL)
			}
			if diff := cmp.Diff(tt.wantLinks, links); diff != "" {
				t.Errorf("links mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRSSWebUnreachableFeedTolerated(t *testing.T) {
	h := NewRSSWeb(newTestFetcher(&routeTransport{err: io.ErrUnexpectedEOF}),
		[]string{"https://funlinks.example/feed"}, discardLogger())

	if got := h.Harvest(context.Background(), []string{"cats"}, Params{}); len(got) != 0 {
		t.Errorf("expected zero results from unreachable feed, got %d", len(got))
	}
}
