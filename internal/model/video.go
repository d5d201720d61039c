package model

import "time"

const watchURLPrefix = "https://www.youtube.com/watch?v="

// VideoRef identifies a published video. Values are immutable once built by the
// enumerator and are keyed by ID for deduplication across playlists.
type VideoRef struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return watchURLPrefix + id
}

// TranscriptSource tags which cascade stage produced a transcript.
type TranscriptSource string

const (
	TranscriptSourceNone      TranscriptSource = ""
	TranscriptSourceCaptions  TranscriptSource = "captions"
	TranscriptSourceInnertube TranscriptSource = "innertube"
	TranscriptSourceScrape    TranscriptSource = "scrape"
	TranscriptSourceSpeech    TranscriptSource = "stt"
)

// TranscriptResult is the normalized, length-capped text for one video.
// An empty result means no stage produced usable text; that is a valid outcome.
type TranscriptResult struct {
	Text   string           `json:"text"`
	Source TranscriptSource `json:"source,omitempty"`
}

// Empty reports whether no transcript was found.
func (t TranscriptResult) Empty() bool {
	return t.Text == ""
}

// VideoResult bundles everything the site writer needs for one video.
type VideoResult struct {
	Video      VideoRef         `json:"video"`
	Transcript TranscriptResult `json:"-"`
	Summary    Summary          `json:"summary"`
}
