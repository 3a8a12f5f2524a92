package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"funfeed/internal/model"
)

const youtubeEndpoint = "https://www.googleapis.com/youtube/v3"

// YouTube harvests videos through the YouTube Data API v3. The natural key is
// the provider video ID, not the watch URL.
type YouTube struct {
	fetcher *Fetcher
	log     *slog.Logger
	apiKey  string
	base    string
}

// NewYouTube creates the YouTube video harvester.
func NewYouTube(fetcher *Fetcher, apiKey string, log *slog.Logger) *YouTube {
	return &YouTube{fetcher: fetcher, apiKey: apiKey, log: log, base: youtubeEndpoint}
}

// Type implements Harvester.
func (h *YouTube) Type() model.ContentType { return model.TypeVideo }

// Provider implements Harvester.
func (h *YouTube) Provider() string { return "youtube" }

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubePlaylistResponse struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			ResourceID  struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
			Thumbnails struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// Harvest implements Harvester. When a playlist ID is set the queries are
// ignored and the playlist items are pulled instead.
func (h *YouTube) Harvest(ctx context.Context, queries []string, p Params) []model.ContentRecord {
	if h.apiKey == "" {
		h.log.Warn("youtube harvester disabled: no API key")
		return nil
	}

	perPage := p.PerPage
	if perPage <= 0 {
		perPage = 25
	}

	if p.Playlist != "" {
		return keepResolvable(h.harvestPlaylist(ctx, p.Playlist, perPage))
	}

	var out []model.ContentRecord
	for _, q := range queries {
		u := fmt.Sprintf("%s/search?part=snippet&type=video&q=%s&maxResults=%d&key=%s",
			h.base, url.QueryEscape(q), perPage, url.QueryEscape(h.apiKey))
		if p.Channel != "" {
			u += "&channelId=" + url.QueryEscape(p.Channel)
		}
		if p.Days > 0 {
			after := time.Now().UTC().AddDate(0, 0, -p.Days).Format(time.RFC3339)
			u += "&publishedAfter=" + url.QueryEscape(after)
		}

		var resp youtubeSearchResponse
		if err := h.fetcher.GetJSON(ctx, u, &resp); err != nil {
			logQueryFailure(h.log, h.Provider(), q, err)
			continue
		}

		for _, item := range resp.Items {
			out = append(out, h.mapVideo(item.ID.VideoID, item.Snippet.Title,
				item.Snippet.Description, item.Snippet.Thumbnails.Medium.URL))
		}
	}
	return keepResolvable(out)
}

func (h *YouTube) harvestPlaylist(ctx context.Context, playlistID string, perPage int) []model.ContentRecord {
	u := fmt.Sprintf("%s/playlistItems?part=snippet&playlistId=%s&maxResults=%d&key=%s",
		h.base, url.QueryEscape(playlistID), perPage, url.QueryEscape(h.apiKey))

	var resp youtubePlaylistResponse
	if err := h.fetcher.GetJSON(ctx, u, &resp); err != nil {
		logQueryFailure(h.log, h.Provider(), "playlist:"+playlistID, err)
		return nil
	}

	var out []model.ContentRecord
	for _, item := range resp.Items {
		out = append(out, h.mapVideo(item.Snippet.ResourceID.VideoID, item.Snippet.Title,
			item.Snippet.Description, item.Snippet.Thumbnails.Medium.URL))
	}
	return out
}

func (h *YouTube) mapVideo(videoID, title, description, thumb string) model.ContentRecord {
	rec := model.ContentRecord{
		Type:       model.TypeVideo,
		NaturalKey: videoID,
		Provider:   h.Provider(),
		Title:      title,
		Text:       description,
		Thumb:      thumb,
	}
	if videoID != "" {
		rec.URL = "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
	}
	return rec
}
