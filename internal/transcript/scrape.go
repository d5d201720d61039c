package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/model"
)

const (
	embedURLPrefix = "https://www.youtube.com/embed/"
	watchURLPrefix = "https://www.youtube.com/watch?hl=en&v="

	// consentCookie pre-accepts the EU consent interstitial.
	consentCookie = "CONSENT=YES+cb.20210328-17-p0.en+FX+000; SOCS=CAI"
)

var (
	errConsentPage  = errors.New("consent interstitial")
	errBotCheckPage = errors.New("bot verification page")
	errNoPlayer     = errors.New("player response not found")
)

var (
	objectMarkers = []string{"ytInitialPlayerResponse = ", "ytInitialPlayerResponse="}
	stringMarkers = []string{`"embedded_player_response":`, `"player_response":`}
	botPhrases    = []string{"confirm you're not a bot", "confirm you\u2019re not a bot", "unusual traffic from your computer"}
)

// ScrapeStage reads caption tracks out of the public embed or watch page.
type ScrapeStage struct {
	http  HTTPClient
	pages []string
}

// NewScrapeStage creates the page scrape stage.
func NewScrapeStage(hc HTTPClient) *ScrapeStage {
	return &ScrapeStage{http: hc, pages: []string{embedURLPrefix, watchURLPrefix}}
}

// Name implements Stage.
func (s *ScrapeStage) Name() model.TranscriptSource { return model.TranscriptSourceScrape }

// Fetch implements Stage. The embed page is tried first; the watch page is
// used when the embed page is blocked or carries no tracks.
func (s *ScrapeStage) Fetch(ctx context.Context, videoID string) (string, error) {
	var errs []error
	for _, prefix := range s.pages {
		tracks, err := s.pageTracks(ctx, prefix+videoID)
		if err != nil {
			zap.L().Debug("scrape: page failed", zap.String("video_id", videoID), zap.String("page", prefix), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		track, ok := PickTrack(usableTracks(tracks))
		if !ok {
			continue
		}
		return fetchTrackText(ctx, s.http, track.BaseURL)
	}
	if len(errs) == len(s.pages) {
		return "", eris.Wrap(errors.Join(errs...), "scrape: all pages failed")
	}
	return "", nil
}

func (s *ScrapeStage) pageTracks(ctx context.Context, pageURL string) ([]Track, error) {
	header := http.Header{
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"en-US,en;q=0.9"},
		"Cookie":          {consentCookie},
	}
	body, err := s.http.Get(ctx, pageURL, header)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse page")
	}
	if err := checkInterstitial(doc); err != nil {
		return nil, err
	}

	pr, err := findPlayerResponse(doc)
	if err != nil {
		return nil, err
	}
	return pr.tracks(), nil
}

// checkInterstitial rejects consent and bot-check pages, which return 200
// with no player in them.
func checkInterstitial(doc *goquery.Document) error {
	if doc.Find(`form[action*="consent.youtube.com"], form[action*="consent.google.com"]`).Length() > 0 {
		return errConsentPage
	}
	if strings.Contains(strings.ToLower(doc.Find("title").Text()), "before you continue") {
		return errConsentPage
	}
	if doc.Find(`.g-recaptcha, #recaptcha, form[action*="/sorry/"]`).Length() > 0 {
		return errBotCheckPage
	}
	text := strings.ToLower(doc.Find("body").Text())
	for _, p := range botPhrases {
		if strings.Contains(text, p) {
			return errBotCheckPage
		}
	}
	return nil
}

func findPlayerResponse(doc *goquery.Document) (playerResponse, error) {
	var (
		pr    playerResponse
		found bool
	)
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := []byte(sel.Text())
		if obj := findMarkedObject(raw); obj != nil {
			if json.Unmarshal(obj, &pr) == nil {
				found = true
				return false
			}
		}
		if str, ok := findMarkedString(raw); ok {
			if json.Unmarshal([]byte(str), &pr) == nil {
				found = true
				return false
			}
		}
		return true
	})
	if !found {
		return playerResponse{}, errNoPlayer
	}
	return pr, nil
}

func findMarkedObject(script []byte) []byte {
	for _, m := range objectMarkers {
		if i := bytes.Index(script, []byte(m)); i >= 0 {
			if obj := extractObject(script, i+len(m)); obj != nil {
				return obj
			}
		}
	}
	return nil
}

func findMarkedString(script []byte) (string, bool) {
	for _, m := range stringMarkers {
		i := bytes.Index(script, []byte(m))
		if i < 0 {
			continue
		}
		rest := bytes.TrimLeft(script[i+len(m):], " ")
		if len(rest) == 0 || rest[0] != '"' {
			continue
		}
		if s, ok := extractQuoted(rest, 0); ok {
			return s, true
		}
	}
	return "", false
}
