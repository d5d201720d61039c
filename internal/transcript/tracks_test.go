package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickTrack(t *testing.T) {
	enAuto := Track{ID: "en-asr", Language: "en", Kind: "asr"}
	enGB := Track{ID: "en-GB", Language: "en-GB"}
	esAuto := Track{ID: "es-asr", Language: "es", Kind: "asr"}
	de := Track{ID: "de", Language: "de"}

	tests := []struct {
		name   string
		tracks []Track
		want   string
		ok     bool
	}{
		{"none", nil, "", false},
		{"english auto first", []Track{de, enGB, esAuto, enAuto}, "en-asr", true},
		{"any english", []Track{de, esAuto, enGB}, "en-GB", true},
		{"any auto", []Track{de, esAuto}, "es-asr", true},
		{"first", []Track{de, {ID: "fr", Language: "fr"}}, "de", true},
		{"ASR kind case", []Track{enGB, {ID: "x", Language: "en-US", Kind: "ASR"}}, "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickTrack(tt.tracks)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestTrackForLocale(t *testing.T) {
	tracks := []Track{
		{ID: "us-asr", Language: "en-US", Kind: "asr"},
		{ID: "us", Language: "en-US"},
		{ID: "gb-asr", Language: "en-GB", Kind: "asr"},
	}

	got, ok := trackForLocale(tracks, "en-us")
	assert.True(t, ok)
	assert.Equal(t, "us", got.ID)

	got, ok = trackForLocale(tracks, "en-GB")
	assert.True(t, ok)
	assert.Equal(t, "gb-asr", got.ID)

	_, ok = trackForLocale(tracks, "en")
	assert.False(t, ok)
}

func TestUsableTracks(t *testing.T) {
	got := usableTracks([]Track{
		{ID: "a", BaseURL: "https://x/timedtext?v=1"},
		{ID: "b", BaseURL: "https://x/timedtext?v=1&exp=xpe"},
		{ID: "c"},
	})
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}
