package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"funfeed/internal/model"
)

// RSSWeb harvests web content from a fixed set of RSS/Atom feeds. Because
// feeds are not searchable, query tokens are matched against item titles and
// descriptions after fetching.
type RSSWeb struct {
	fetcher *Fetcher
	log     *slog.Logger
	feeds   []string
}

// NewRSSWeb creates the web harvester over the given feed URLs.
func NewRSSWeb(fetcher *Fetcher, feeds []string, log *slog.Logger) *RSSWeb {
	return &RSSWeb{fetcher: fetcher, feeds: feeds, log: log}
}

// Type implements Harvester.
func (h *RSSWeb) Type() model.ContentType { return model.TypeWeb }

// Provider implements Harvester.
func (h *RSSWeb) Provider() string { return "rss" }

// Harvest implements Harvester. A subreddit selector adds that subreddit's
// feed to the configured list for this run.
func (h *RSSWeb) Harvest(ctx context.Context, queries []string, p Params) []model.ContentRecord {
	feeds := h.feeds
	if p.Subreddit != "" {
		feeds = append(append([]string{}, feeds...),
			"https://www.reddit.com/r/"+url.PathEscape(p.Subreddit)+"/.rss")
	}

	limit := p.PerPage
	if limit <= 0 {
		limit = 20
	}

	var out []model.ContentRecord
	for _, feedURL := range feeds {
		feed, err := h.fetchFeed(ctx, feedURL)
		if err != nil {
			logQueryFailure(h.log, h.Provider(), feedURL, err)
			continue
		}

		matched := 0
		for _, item := range feed.Items {
			if matched == limit {
				break
			}
			if !matchesAnyQuery(item, queries) {
				continue
			}
			rec := model.ContentRecord{
				Type:       model.TypeWeb,
				NaturalKey: item.Link,
				Provider:   h.Provider(),
				Title:      item.Title,
				Text:       snippet(item.Description, 300),
				URL:        item.Link,
			}
			if item.Image != nil {
				rec.Thumb = item.Image.URL
			}
			out = append(out, rec)
			matched++
		}
	}
	return keepResolvable(out)
}

func (h *RSSWeb) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := h.fetcher.GetRaw(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// matchesAnyQuery reports whether any query has a token present in the item's
// title or description. No queries means every item matches.
func matchesAnyQuery(item *gofeed.Item, queries []string) bool {
	if len(queries) == 0 {
		return true
	}
	text := strings.ToLower(item.Title + " " + item.Description)
	for _, q := range queries {
		for _, tok := range strings.Fields(strings.ToLower(q)) {
			if strings.Contains(text, tok) {
				return true
			}
		}
	}
	return false
}

func snippet(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
