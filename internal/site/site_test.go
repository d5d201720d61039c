package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recap-cli/internal/model"
)

func sampleResults() []model.VideoResult {
	return []model.VideoResult{
		{
			Video: model.VideoRef{ID: "abc123", Title: "BTC <weekly> outlook", PublishedAt: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
			Summary: model.Summary{
				VideoID:          "abc123",
				Status:           model.SummaryStatusOK,
				Bullets:          []string{"BTC holds 64000"},
				Summarizer:       "extractive",
				TranscriptSource: model.TranscriptSourceCaptions,
				Long: model.LongForm{
					Context:   "Range day",
					KeyLevels: []model.KeyLevel{{Asset: "BTC", Level: "64000", Role: model.RoleSupport}},
					Setups:    []model.TradeSetup{{Name: "Breakout", Targets: []string{"66000", "68000"}}},
					Takeaways: []string{"Be patient"},
				},
				Note: "Figures redacted",
			},
		},
		{
			Video:   model.VideoRef{ID: "skip1"},
			Summary: model.SkippedSummary("skip1"),
		},
		{
			Video:   model.VideoRef{ID: "../evil"},
			Summary: model.SkippedSummary("../evil"),
		},
	}
}

func newTestWriter(dir string) *Writer {
	w := NewWriter(dir, "Trading recaps")
	w.now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }
	return w
}

func TestWrite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public")
	w := newTestWriter(out)

	require.NoError(t, w.Write(sampleResults(), map[string]int{"videos": 3}))

	entries, err := ReadIndex(out)
	require.NoError(t, err)
	require.Len(t, entries, 2, "unsafe ids are skipped")
	assert.Equal(t, "abc123", entries[0].ID)
	assert.True(t, entries[0].Scrubbed)
	assert.Equal(t, model.TranscriptSourceCaptions, entries[0].TranscriptSource)
	assert.Equal(t, "skip1", entries[1].Title, "title falls back to the id")
	assert.Equal(t, model.WatchURL("skip1"), entries[1].URL)

	page, err := ReadVideo(out, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Range day", page.Summary.Long.Context)

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<h1>Trading recaps</h1>")
	assert.Contains(t, string(index), "BTC &lt;weekly&gt; outlook")
	assert.Contains(t, string(index), `href="videos/abc123.html"`)
	assert.Contains(t, string(index), "Mar 9, 2026")

	video, err := os.ReadFile(filepath.Join(out, "videos", "abc123.html"))
	require.NoError(t, err)
	html := string(video)
	assert.Contains(t, html, "<td>64000</td>")
	assert.Contains(t, html, "66000, 68000")
	assert.Contains(t, html, `class="note"`)
	assert.Contains(t, html, "transcript: captions")

	_, err = os.Stat(filepath.Join(out, "run.json"))
	assert.NoError(t, err)

	siblings, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, siblings, 1, "no staging or backup dirs left behind")
}

func TestWrite_ReplacesPreviousOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "videos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "videos", "stale.html"), []byte("old"), 0o644))

	require.NoError(t, newTestWriter(out).Write(sampleResults()[:1], nil))

	_, err := os.Stat(filepath.Join(out, "videos", "stale.html"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "run.json"))
	assert.True(t, os.IsNotExist(err))

	siblings, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, siblings, 1)
}

func TestWrite_FailureLeavesExistingOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public")
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("previous"), 0o644))

	err := newTestWriter(out).Write(sampleResults(), func() {})
	require.Error(t, err, "a func report cannot be marshaled")

	data, readErr := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, readErr)
	assert.Equal(t, "previous", string(data))

	siblings, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	for _, s := range siblings {
		assert.False(t, strings.Contains(s.Name(), ".staging-"), s.Name())
	}
}

func TestWrite_EmptyDir(t *testing.T) {
	require.Error(t, NewWriter("", "").Write(nil, nil))
}

func TestWrite_NoResults(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public")
	require.NoError(t, newTestWriter(out).Write(nil, nil))

	entries, err := ReadIndex(out)
	require.NoError(t, err)
	assert.Empty(t, entries)

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "No videos yet.")
}

func TestReadVideo_RejectsUnsafeID(t *testing.T) {
	_, err := ReadVideo(t.TempDir(), "../etc/passwd")
	require.Error(t, err)
}

func TestReaders_NotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadIndex(dir)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ReadVideo(dir, "missing1")
	assert.ErrorIs(t, err, ErrNotFound)
}
