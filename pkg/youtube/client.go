// Package youtube is a minimal YouTube Data API v3 client covering channel
// uploads, playlists, and captions.
package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Client performs YouTube Data API operations.
type Client interface {
	UploadsPlaylist(ctx context.Context, channelID string) (string, error)
	ListPlaylists(ctx context.Context, channelID string) ([]Playlist, error)
	ListPlaylistItems(ctx context.Context, playlistID string, limit int) ([]PlaylistItem, error)
	ListCaptions(ctx context.Context, videoID string) ([]Caption, error)
	DownloadCaption(ctx context.Context, captionID, format string) ([]byte, error)
}

// Playlist is a channel playlist.
type Playlist struct {
	ID    string
	Title string
}

// PlaylistItem is one video in a playlist.
type PlaylistItem struct {
	VideoID     string
	Title       string
	Description string
	PublishedAt time.Time
}

// Caption is a caption track. TrackKind is "asr" for auto-generated tracks.
type Caption struct {
	ID        string
	VideoID   string
	Language  string
	TrackKind string
	Name      string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client. Pass an OAuth client
// for caption operations.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Data API client. apiKey may be empty when the
// http.Client carries OAuth credentials.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "youtube: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "youtube: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "youtube: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("youtube: %s: unexpected status %d: %s", path, resp.StatusCode, truncate(string(body), 300))
	}
	return body, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "youtube: %s: unmarshal response", path)
	}
	return nil
}

type channelsResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *httpClient) UploadsPlaylist(ctx context.Context, channelID string) (string, error) {
	var resp channelsResponse
	q := url.Values{"part": {"contentDetails"}, "id": {channelID}}
	if err := c.getJSON(ctx, "/channels", q, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return "", eris.Errorf("youtube: channel %s not found", channelID)
	}
	return resp.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

type playlistsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *httpClient) ListPlaylists(ctx context.Context, channelID string) ([]Playlist, error) {
	var out []Playlist
	token := ""
	for {
		q := url.Values{"part": {"snippet"}, "channelId": {channelID}, "maxResults": {"50"}}
		if token != "" {
			q.Set("pageToken", token)
		}
		var resp playlistsResponse
		if err := c.getJSON(ctx, "/playlists", q, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			out = append(out, Playlist{ID: it.ID, Title: it.Snippet.Title})
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title       string    `json:"title"`
			Description string    `json:"description"`
			PublishedAt time.Time `json:"publishedAt"`
			ResourceID  struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID          string    `json:"videoId"`
			VideoPublishedAt time.Time `json:"videoPublishedAt"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// ListPlaylistItems pages through a playlist until limit items are collected
// (limit <= 0 means all).
func (c *httpClient) ListPlaylistItems(ctx context.Context, playlistID string, limit int) ([]PlaylistItem, error) {
	var out []PlaylistItem
	token := ""
	for {
		q := url.Values{
			"part":       {"snippet,contentDetails"},
			"playlistId": {playlistID},
			"maxResults": {"50"},
		}
		if token != "" {
			q.Set("pageToken", token)
		}
		var resp playlistItemsResponse
		if err := c.getJSON(ctx, "/playlistItems", q, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			id := it.ContentDetails.VideoID
			if id == "" {
				id = it.Snippet.ResourceID.VideoID
			}
			published := it.ContentDetails.VideoPublishedAt
			if published.IsZero() {
				published = it.Snippet.PublishedAt
			}
			out = append(out, PlaylistItem{
				VideoID:     id,
				Title:       it.Snippet.Title,
				Description: it.Snippet.Description,
				PublishedAt: published,
			})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

type captionsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			VideoID   string `json:"videoId"`
			Language  string `json:"language"`
			TrackKind string `json:"trackKind"`
			Name      string `json:"name"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *httpClient) ListCaptions(ctx context.Context, videoID string) ([]Caption, error) {
	var resp captionsResponse
	q := url.Values{"part": {"snippet"}, "videoId": {videoID}}
	if err := c.getJSON(ctx, "/captions", q, &resp); err != nil {
		return nil, err
	}
	out := make([]Caption, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, Caption{
			ID:        it.ID,
			VideoID:   it.Snippet.VideoID,
			Language:  it.Snippet.Language,
			TrackKind: it.Snippet.TrackKind,
			Name:      it.Snippet.Name,
		})
	}
	return out, nil
}

// DownloadCaption returns the caption body in format ("srt", "vtt", "sbv").
func (c *httpClient) DownloadCaption(ctx context.Context, captionID, format string) ([]byte, error) {
	q := url.Values{}
	if format != "" {
		q.Set("tfmt", format)
	}
	return c.get(ctx, "/captions/"+url.PathEscape(captionID), q)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
