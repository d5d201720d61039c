package discovery

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/pkg/youtube"
)

// APISource lists videos through the YouTube Data API.
type APISource struct {
	client youtube.Client
	limit  int
}

// NewAPISource creates a Data API source fetching at most limit items
// (limit <= 0 means the whole playlist).
func NewAPISource(c youtube.Client, limit int) *APISource {
	return &APISource{client: c, limit: limit}
}

// Name implements Source.
func (s *APISource) Name() string { return "data_api" }

// List implements Source. playlist matches a playlist id or, case
// insensitively, a playlist title.
func (s *APISource) List(ctx context.Context, channelID, playlist string) ([]model.VideoRef, error) {
	pid, err := s.resolvePlaylist(ctx, channelID, playlist)
	if err != nil {
		return nil, err
	}

	items, err := s.client.ListPlaylistItems(ctx, pid, s.limit)
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: list playlist %s", pid)
	}

	out := make([]model.VideoRef, 0, len(items))
	for _, it := range items {
		out = append(out, model.VideoRef{
			ID:          it.VideoID,
			Title:       it.Title,
			Description: it.Description,
			PublishedAt: it.PublishedAt,
			URL:         model.WatchURL(it.VideoID),
		})
	}
	return out, nil
}

func (s *APISource) resolvePlaylist(ctx context.Context, channelID, playlist string) (string, error) {
	playlist = strings.TrimSpace(playlist)
	if playlist == "" {
		pid, err := s.client.UploadsPlaylist(ctx, channelID)
		if err != nil {
			return "", eris.Wrap(err, "discovery: uploads playlist")
		}
		return pid, nil
	}

	lists, err := s.client.ListPlaylists(ctx, channelID)
	if err != nil {
		return "", eris.Wrap(err, "discovery: list playlists")
	}
	for _, p := range lists {
		if p.ID == playlist || strings.EqualFold(strings.TrimSpace(p.Title), playlist) {
			return p.ID, nil
		}
	}
	return "", eris.Errorf("discovery: playlist %q not found on channel %s", playlist, channelID)
}
