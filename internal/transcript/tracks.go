package transcript

import "strings"

// Track is a caption track offered for a video.
type Track struct {
	ID       string
	BaseURL  string
	Language string
	// Kind is "asr" for auto-generated tracks.
	Kind string
	Name string
}

// IsAuto reports whether the track was generated by speech recognition.
func (t Track) IsAuto() bool {
	return strings.EqualFold(t.Kind, "asr")
}

// IsEnglish reports whether the track language is any English variant.
func (t Track) IsEnglish() bool {
	lang := strings.ToLower(t.Language)
	return lang == "en" || strings.HasPrefix(lang, "en-") || strings.HasPrefix(lang, "en_")
}

// PickTrack chooses English auto-generated, then any English, then any
// auto-generated, then the first track.
func PickTrack(tracks []Track) (Track, bool) {
	if len(tracks) == 0 {
		return Track{}, false
	}
	preds := []func(Track) bool{
		func(t Track) bool { return t.IsEnglish() && t.IsAuto() },
		Track.IsEnglish,
		Track.IsAuto,
	}
	for _, p := range preds {
		for _, t := range tracks {
			if p(t) {
				return t, true
			}
		}
	}
	return tracks[0], true
}

// trackForLocale returns the manual track for locale, else the auto track.
func trackForLocale(tracks []Track, locale string) (Track, bool) {
	var auto *Track
	for i, t := range tracks {
		if !strings.EqualFold(t.Language, locale) {
			continue
		}
		if !t.IsAuto() {
			return t, true
		}
		if auto == nil {
			auto = &tracks[i]
		}
	}
	if auto != nil {
		return *auto, true
	}
	return Track{}, false
}

// needsPoToken reports whether a track URL only works with a browser proof
// of origin token.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

func usableTracks(tracks []Track) []Track {
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			out = append(out, t)
		}
	}
	return out
}

// playerResponse is the subset of the player JSON that lists caption tracks.
type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		Renderer struct {
			CaptionTracks []struct {
				BaseURL      string `json:"baseUrl"`
				LanguageCode string `json:"languageCode"`
				Kind         string `json:"kind"`
				VssID        string `json:"vssId"`
				Name         struct {
					SimpleText string `json:"simpleText"`
					Runs       []struct {
						Text string `json:"text"`
					} `json:"runs"`
				} `json:"name"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

func (p playerResponse) tracks() []Track {
	if p.Captions == nil {
		return nil
	}
	raw := p.Captions.Renderer.CaptionTracks
	out := make([]Track, 0, len(raw))
	for _, ct := range raw {
		name := ct.Name.SimpleText
		if name == "" && len(ct.Name.Runs) > 0 {
			name = ct.Name.Runs[0].Text
		}
		out = append(out, Track{
			ID:       ct.VssID,
			BaseURL:  ct.BaseURL,
			Language: ct.LanguageCode,
			Kind:     ct.Kind,
			Name:     name,
		})
	}
	return out
}

func (p playerResponse) unplayableReason() string {
	if p.PlayabilityStatus == nil || p.PlayabilityStatus.Status == "OK" {
		return ""
	}
	if p.PlayabilityStatus.Reason != "" {
		return p.PlayabilityStatus.Reason
	}
	return p.PlayabilityStatus.Status
}
