package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"funfeed/internal/model"
)

// Text-type harvesters. Their natural key is "source/externalID" rather than
// a URL so that mirror URLs of the same quote or joke stay deduplicated.

const (
	quotableEndpoint     = "https://api.quotable.io"
	jokeAPIEndpoint      = "https://v2.jokeapi.dev"
	uselessFactsEndpoint = "https://uselessfacts.jsph.pl"
)

// Quotable harvests quotes from the Quotable search API.
type Quotable struct {
	fetcher *Fetcher
	log     *slog.Logger
	base    string
}

// NewQuotable creates the quote harvester.
func NewQuotable(fetcher *Fetcher, log *slog.Logger) *Quotable {
	return &Quotable{fetcher: fetcher, log: log, base: quotableEndpoint}
}

// Type implements Harvester.
func (h *Quotable) Type() model.ContentType { return model.TypeQuote }

// Provider implements Harvester.
func (h *Quotable) Provider() string { return "quotable" }

type quotableResponse struct {
	Results []struct {
		ID      string `json:"_id"`
		Content string `json:"content"`
		Author  string `json:"author"`
	} `json:"results"`
}

// Harvest implements Harvester.
func (h *Quotable) Harvest(ctx context.Context, queries []string, p Params) []model.ContentRecord {
	limit := p.PerPage
	if limit <= 0 {
		limit = 20
	}

	var out []model.ContentRecord
	for _, q := range queries {
		u := fmt.Sprintf("%s/search/quotes?query=%s&limit=%d", h.base, url.QueryEscape(q), limit)

		var resp quotableResponse
		if err := h.fetcher.GetJSON(ctx, u, &resp); err != nil {
			logQueryFailure(h.log, h.Provider(), q, err)
			continue
		}

		for _, r := range resp.Results {
			if r.ID == "" {
				continue
			}
			out = append(out, model.ContentRecord{
				Type:       model.TypeQuote,
				NaturalKey: "quotable/" + r.ID,
				Provider:   h.Provider(),
				Title:      r.Author,
				Text:       r.Content,
				URL:        h.base + "/quotes/" + url.PathEscape(r.ID),
				Language:   "en",
			})
		}
	}
	return keepResolvable(out)
}

// JokeAPI harvests jokes from the JokeAPI v2 search endpoint.
type JokeAPI struct {
	fetcher *Fetcher
	log     *slog.Logger
	base    string
}

// NewJokeAPI creates the joke harvester.
func NewJokeAPI(fetcher *Fetcher, log *slog.Logger) *JokeAPI {
	return &JokeAPI{fetcher: fetcher, log: log, base: jokeAPIEndpoint}
}

// Type implements Harvester.
func (h *JokeAPI) Type() model.ContentType { return model.TypeJoke }

// Provider implements Harvester.
func (h *JokeAPI) Provider() string { return "jokeapi" }

type jokeAPIResponse struct {
	Error bool `json:"error"`
	Jokes []struct {
		ID       int    `json:"id"`
		Joke     string `json:"joke"`
		Category string `json:"category"`
		Lang     string `json:"lang"`
	} `json:"jokes"`
}

// Harvest implements Harvester.
func (h *JokeAPI) Harvest(ctx context.Context, queries []string, p Params) []model.ContentRecord {
	amount := p.PerPage
	if amount <= 0 {
		amount = 10
	}

	var out []model.ContentRecord
	for _, q := range queries {
		u := fmt.Sprintf("%s/joke/Any?type=single&amount=%d&contains=%s", h.base, amount, url.QueryEscape(q))

		var resp jokeAPIResponse
		if err := h.fetcher.GetJSON(ctx, u, &resp); err != nil {
			logQueryFailure(h.log, h.Provider(), q, err)
			continue
		}
		if resp.Error {
			continue
		}

		for _, j := range resp.Jokes {
			id := fmt.Sprintf("%d", j.ID)
			out = append(out, model.ContentRecord{
				Type:       model.TypeJoke,
				NaturalKey: "jokeapi/" + id,
				Provider:   h.Provider(),
				Title:      j.Category,
				Text:       j.Joke,
				URL:        h.base + "/joke/" + id,
				Language:   j.Lang,
			})
		}
	}
	return keepResolvable(out)
}

// UselessFacts harvests facts from the uselessfacts API. The API has no
// search parameter, so one random fact is drawn per requested query.
type UselessFacts struct {
	fetcher *Fetcher
	log     *slog.Logger
	base    string
}

// NewUselessFacts creates the fact harvester.
func NewUselessFacts(fetcher *Fetcher, log *slog.Logger) *UselessFacts {
	return &UselessFacts{fetcher: fetcher, log: log, base: uselessFactsEndpoint}
}

// Type implements Harvester.
func (h *UselessFacts) Type() model.ContentType { return model.TypeFact }

// Provider implements Harvester.
func (h *UselessFacts) Provider() string { return "uselessfacts" }

type uselessFactResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Source    string `json:"source"`
	Language  string `json:"language"`
	Permalink string `json:"permalink"`
}

// Harvest implements Harvester.
func (h *UselessFacts) Harvest(ctx context.Context, queries []string, _ Params) []model.ContentRecord {
	var out []model.ContentRecord
	for _, q := range queries {
		u := h.base + "/api/v2/facts/random"

		var resp uselessFactResponse
		if err := h.fetcher.GetJSON(ctx, u, &resp); err != nil {
			logQueryFailure(h.log, h.Provider(), q, err)
			continue
		}
		if resp.ID == "" {
			continue
		}

		out = append(out, model.ContentRecord{
			Type:       model.TypeFact,
			NaturalKey: "uselessfacts/" + resp.ID,
			Provider:   h.Provider(),
			Title:      resp.Source,
			Text:       resp.Text,
			URL:        resp.Permalink,
			Language:   resp.Language,
		})
	}
	return keepResolvable(out)
}
