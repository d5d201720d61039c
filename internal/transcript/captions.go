package transcript

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/pkg/youtube"
)

// CaptionsAPI is the authenticated captions surface of the Data API.
type CaptionsAPI interface {
	ListCaptions(ctx context.Context, videoID string) ([]youtube.Caption, error)
	DownloadCaption(ctx context.Context, captionID, format string) ([]byte, error)
}

// CaptionsStage downloads the official caption track through an OAuth
// client. Channel owners can download any track of their own videos.
type CaptionsStage struct {
	api CaptionsAPI
}

// NewCaptionsStage creates the official captions stage.
func NewCaptionsStage(api CaptionsAPI) *CaptionsStage {
	return &CaptionsStage{api: api}
}

// Name implements Stage.
func (s *CaptionsStage) Name() model.TranscriptSource { return model.TranscriptSourceCaptions }

// Fetch implements Stage.
func (s *CaptionsStage) Fetch(ctx context.Context, videoID string) (string, error) {
	caps, err := s.api.ListCaptions(ctx, videoID)
	if err != nil {
		return "", eris.Wrap(err, "captions: list")
	}
	tracks := make([]Track, 0, len(caps))
	for _, c := range caps {
		tracks = append(tracks, Track{ID: c.ID, Language: c.Language, Kind: c.TrackKind, Name: c.Name})
	}
	track, ok := PickTrack(tracks)
	if !ok {
		return "", nil
	}

	srt, err := s.api.DownloadCaption(ctx, track.ID, "srt")
	if err != nil {
		return "", eris.Wrapf(err, "captions: download %s", track.ID)
	}
	return SRTToText(string(srt)), nil
}
