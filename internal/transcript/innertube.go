package transcript

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/model"
)

const (
	innertubePlayerURL = "https://www.youtube.com/youtubei/v1/player?prettyPrint=false"
	androidVersion     = "20.10.38"
	androidUserAgent   = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"
)

// DefaultLocales is the locale order tried by the player stage.
var DefaultLocales = []string{"en", "en-US", "en-GB", "en-CA", "en-AU", "en-IN"}

// InnertubeStage lists caption tracks through the Android player endpoint
// and tries each configured locale in order, manual track before
// auto-generated.
type InnertubeStage struct {
	http      HTTPClient
	locales   []string
	playerURL string
}

// NewInnertubeStage creates the player stage. Nil or empty locales select
// DefaultLocales.
func NewInnertubeStage(hc HTTPClient, locales []string) *InnertubeStage {
	if len(locales) == 0 {
		locales = DefaultLocales
	}
	return &InnertubeStage{http: hc, locales: locales, playerURL: innertubePlayerURL}
}

// Name implements Stage.
func (s *InnertubeStage) Name() model.TranscriptSource { return model.TranscriptSourceInnertube }

// Fetch implements Stage.
func (s *InnertubeStage) Fetch(ctx context.Context, videoID string) (string, error) {
	tracks, err := s.listTracks(ctx, videoID)
	if err != nil {
		return "", err
	}
	tracks = usableTracks(tracks)
	if len(tracks) == 0 {
		return "", nil
	}

	for _, locale := range s.locales {
		t, ok := trackForLocale(tracks, locale)
		if !ok {
			continue
		}
		text, err := fetchTrackText(ctx, s.http, t.BaseURL)
		if err != nil {
			zap.L().Debug("transcript: locale fetch failed",
				zap.String("video_id", videoID),
				zap.String("locale", locale),
				zap.Error(err),
			)
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	return "", nil
}

func (s *InnertubeStage) listTracks(ctx context.Context, videoID string) ([]Track, error) {
	payload := map[string]any{
		"videoId": videoID,
		"context": map[string]any{
			"client": map[string]any{
				"clientName":        "ANDROID",
				"clientVersion":     androidVersion,
				"androidSdkVersion": 30,
				"hl":                "en",
				"gl":                "US",
			},
		},
		"racyCheckOk":    true,
		"contentCheckOk": true,
	}
	header := http.Header{
		"User-Agent":               {androidUserAgent},
		"X-Youtube-Client-Name":    {"3"},
		"X-Youtube-Client-Version": {androidVersion},
	}

	body, err := s.http.PostJSON(ctx, s.playerURL, header, payload)
	if err != nil {
		return nil, eris.Wrap(err, "innertube: player request")
	}
	var pr playerResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, eris.Wrap(err, "innertube: decode player response")
	}
	if reason := pr.unplayableReason(); reason != "" && pr.Captions == nil {
		return nil, eris.Errorf("innertube: video not playable: %s", reason)
	}
	return pr.tracks(), nil
}
