package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"funfeed/internal/model"
)

const wikimediaEndpoint = "https://commons.wikimedia.org/w/api.php"

// Wikimedia harvests images from the Wikimedia Commons search API. It runs
// after Openverse in the image priority order.
type Wikimedia struct {
	fetcher *Fetcher
	log     *slog.Logger
	base    string
}

// NewWikimedia creates the Wikimedia Commons image harvester.
func NewWikimedia(fetcher *Fetcher, log *slog.Logger) *Wikimedia {
	return &Wikimedia{fetcher: fetcher, log: log, base: wikimediaEndpoint}
}

// Type implements Harvester.
func (h *Wikimedia) Type() model.ContentType { return model.TypeImage }

// Provider implements Harvester.
func (h *Wikimedia) Provider() string { return "wikimedia" }

type wikimediaResponse struct {
	Query struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			ImageInfo []struct {
				URL      string `json:"url"`
				ThumbURL string `json:"thumburl"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

// Harvest implements Harvester.
func (h *Wikimedia) Harvest(ctx context.Context, queries []string, p Params) []model.ContentRecord {
	limit := p.PerPage
	if limit <= 0 {
		limit = 20
	}

	var out []model.ContentRecord
	for _, q := range queries {
		u := fmt.Sprintf(
			"%s?action=query&format=json&generator=search&gsrnamespace=6&gsrsearch=%s&gsrlimit=%d&prop=imageinfo&iiprop=url&iiurlwidth=320",
			h.base, url.QueryEscape(q), limit,
		)

		var resp wikimediaResponse
		if err := h.fetcher.GetJSON(ctx, u, &resp); err != nil {
			logQueryFailure(h.log, h.Provider(), q, err)
			continue
		}

		for _, page := range resp.Query.Pages {
			if len(page.ImageInfo) == 0 {
				continue
			}
			info := page.ImageInfo[0]
			out = append(out, model.ContentRecord{
				Type:       model.TypeImage,
				NaturalKey: info.URL,
				Provider:   h.Provider(),
				Title:      page.Title,
				URL:        info.URL,
				Thumb:      info.ThumbURL,
			})
		}
	}
	return keepResolvable(out)
}
