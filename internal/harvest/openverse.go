package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"funfeed/internal/model"
)

const openverseEndpoint = "https://api.openverse.org/v1/images/"

// Openverse harvests openly licensed images from the Openverse search API.
type Openverse struct {
	fetcher *Fetcher
	log     *slog.Logger
	base    string
}

// NewOpenverse creates the Openverse image harvester.
func NewOpenverse(fetcher *Fetcher, log *slog.Logger) *Openverse {
	return &Openverse{fetcher: fetcher, log: log, base: openverseEndpoint}
}

// Type implements Harvester.
func (h *Openverse) Type() model.ContentType { return model.TypeImage }

// Provider implements Harvester.
func (h *Openverse) Provider() string { return "openverse" }

type openverseResponse struct {
	Results []struct {
		ID                string `json:"id"`
		Title             string `json:"title"`
		URL               string `json:"url"`
		Thumbnail         string `json:"thumbnail"`
		ForeignLandingURL string `json:"foreign_landing_url"`
		Creator           string `json:"creator"`
	} `json:"results"`
}

// Harvest implements Harvester.
func (h *Openverse) Harvest(ctx context.Context, queries []string, p Params) []model.ContentRecord {
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	pages := p.Pages
	if pages <= 0 {
		pages = 1
	}

	var out []model.ContentRecord
	for _, q := range queries {
		for page := 1; page <= pages; page++ {
			u := fmt.Sprintf("%s?q=%s&page_size=%d&page=%d", h.base, url.QueryEscape(q), perPage, page)

			var resp openverseResponse
			if err := h.fetcher.GetJSON(ctx, u, &resp); err != nil {
				logQueryFailure(h.log, h.Provider(), q, err)
				break
			}
			if len(resp.Results) == 0 {
				break
			}

			for _, r := range resp.Results {
				primary := r.URL
				if primary == "" {
					primary = r.ForeignLandingURL
				}
				out = append(out, model.ContentRecord{
					Type:       model.TypeImage,
					NaturalKey: primary,
					Provider:   h.Provider(),
					Title:      r.Title,
					Text:       r.Creator,
					URL:        primary,
					Thumb:      r.Thumbnail,
				})
			}
		}
	}
	return keepResolvable(out)
}
