package model

// SummaryStatus marks whether a summary carries real content or is a terminal placeholder.
type SummaryStatus string

const (
	SummaryStatusOK          SummaryStatus = "ok"
	SummaryStatusSkipped     SummaryStatus = "skipped"     // no transcript found
	SummaryStatusUnavailable SummaryStatus = "unavailable" // transcript too short to summarize
	SummaryStatusError       SummaryStatus = "error"       // summarizer failed
)

// Key level roles.
const (
	RoleSupport     = "support"
	RoleResistance  = "resistance"
	RolePivot       = "pivot"
	RoleUnspecified = "unspecified"
)

// Summary is the per-video output: short bullets plus a long-form breakdown.
type Summary struct {
	VideoID          string           `json:"video_id"`
	Status           SummaryStatus    `json:"status"`
	Bullets          []string         `json:"bullets"`
	Long             LongForm         `json:"long"`
	Note             string           `json:"note,omitempty"`
	Summarizer       string           `json:"summarizer,omitempty"`
	TranscriptSource TranscriptSource `json:"transcript_source,omitempty"`
}

// LongForm is the detailed breakdown of a video.
type LongForm struct {
	Context        string       `json:"context"`
	KeyLevels      []KeyLevel   `json:"key_levels"`
	Setups         []TradeSetup `json:"setups"`
	Takeaways      []string     `json:"takeaways"`
	Catalysts      []string     `json:"catalysts"`
	NotableDetails []string     `json:"notable_details"`
}

// KeyLevel is a price point called out in the video.
type KeyLevel struct {
	Asset string `json:"asset"`
	Level string `json:"level"`
	Role  string `json:"role"`
	Notes string `json:"notes,omitempty"`
}

// TradeSetup is a trade idea discussed in the video.
type TradeSetup struct {
	Name         string   `json:"name"`
	Thesis       string   `json:"thesis"`
	Trigger      string   `json:"trigger"`
	Invalidation string   `json:"invalidation"`
	Targets      []string `json:"targets"`
}

// IsTerminal reports whether the summary is a placeholder that never enters grounding.
func (s *Summary) IsTerminal() bool {
	return s.Status != SummaryStatusOK
}

// TextFields returns pointers to every string in the summary, in a stable order.
// Grounding serializes and scrubs through this list, so adding a text field to
// the summary means adding it here.
func (s *Summary) TextFields() []*string {
	fields := make([]*string, 0, 16)
	for i := range s.Bullets {
		fields = append(fields, &s.Bullets[i])
	}
	fields = append(fields, &s.Long.Context)
	for i := range s.Long.KeyLevels {
		kl := &s.Long.KeyLevels[i]
		fields = append(fields, &kl.Asset, &kl.Level, &kl.Role, &kl.Notes)
	}
	for i := range s.Long.Setups {
		st := &s.Long.Setups[i]
		fields = append(fields, &st.Name, &st.Thesis, &st.Trigger, &st.Invalidation)
		for j := range st.Targets {
			fields = append(fields, &st.Targets[j])
		}
	}
	for _, list := range [][]string{s.Long.Takeaways, s.Long.Catalysts, s.Long.NotableDetails} {
		for i := range list {
			fields = append(fields, &list[i])
		}
	}
	return fields
}

// Clone returns a deep copy so filters never mutate their input.
func (s Summary) Clone() Summary {
	out := s
	out.Bullets = cloneStrings(s.Bullets)
	out.Long.KeyLevels = append([]KeyLevel(nil), s.Long.KeyLevels...)
	if s.Long.Setups != nil {
		out.Long.Setups = make([]TradeSetup, len(s.Long.Setups))
		for i, st := range s.Long.Setups {
			st.Targets = cloneStrings(st.Targets)
			out.Long.Setups[i] = st
		}
	}
	out.Long.Takeaways = cloneStrings(s.Long.Takeaways)
	out.Long.Catalysts = cloneStrings(s.Long.Catalysts)
	out.Long.NotableDetails = cloneStrings(s.Long.NotableDetails)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// SkippedSummary is the terminal summary for a video without any transcript.
func SkippedSummary(videoID string) Summary {
	return Summary{
		VideoID: videoID,
		Status:  SummaryStatusSkipped,
		Bullets: []string{"Transcript not available for this video yet."},
	}
}

// UnavailableSummary is the terminal summary for a transcript too short to summarize.
func UnavailableSummary(videoID string, source TranscriptSource) Summary {
	return Summary{
		VideoID:          videoID,
		Status:           SummaryStatusUnavailable,
		Bullets:          []string{"Transcript unavailable or too short to summarize."},
		TranscriptSource: source,
	}
}

// ErrorSummary is the terminal summary when the summarizer failed.
func ErrorSummary(videoID string, source TranscriptSource, summarizer string) Summary {
	return Summary{
		VideoID:          videoID,
		Status:           SummaryStatusError,
		Bullets:          []string{"Summary could not be generated due to a processing error."},
		Summarizer:       summarizer,
		TranscriptSource: source,
	}
}
