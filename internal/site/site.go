// Package site renders processed videos into a static HTML and JSON site.
package site

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/model"
)

// IndexFile is the JSON index written at the site root.
const IndexFile = "summaries.json"

// ErrNotFound is returned by the readers when the site has no such file.
var ErrNotFound = errors.New("site: not found")

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))
	videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// Entry is one row of the JSON index.
type Entry struct {
	ID               string                 `json:"id"`
	Title            string                 `json:"title"`
	URL              string                 `json:"url"`
	PublishedAt      time.Time              `json:"published_at"`
	Status           model.SummaryStatus    `json:"status"`
	Bullets          []string               `json:"bullets"`
	Summarizer       string                 `json:"summarizer,omitempty"`
	TranscriptSource model.TranscriptSource `json:"transcript_source,omitempty"`
	Scrubbed         bool                   `json:"scrubbed,omitempty"`
}

// VideoPage is the per-video JSON document.
type VideoPage struct {
	Video   model.VideoRef `json:"video"`
	Summary model.Summary  `json:"summary"`
}

// Writer renders a site into dir.
type Writer struct {
	dir   string
	title string
	now   func() time.Time
}

// NewWriter creates a Writer for dir.
func NewWriter(dir, title string) *Writer {
	if title == "" {
		title = "Video summaries"
	}
	return &Writer{dir: dir, title: title, now: time.Now}
}

// Write renders every result plus an optional run report into a staging
// directory next to dir and swaps it into place. dir is left untouched when
// anything fails.
func (w *Writer) Write(results []model.VideoResult, report any) error {
	if w.dir == "" {
		return eris.New("site: output dir is empty")
	}
	parent := filepath.Dir(filepath.Clean(w.dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return eris.Wrapf(err, "site: create %s", parent)
	}

	staging, err := os.MkdirTemp(parent, filepath.Base(w.dir)+".staging-")
	if err != nil {
		return eris.Wrap(err, "site: create staging dir")
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging) //nolint:errcheck
		}
	}()
	if err := os.Chmod(staging, 0o755); err != nil {
		return eris.Wrap(err, "site: chmod staging dir")
	}

	if err := w.render(staging, results, report); err != nil {
		return err
	}
	if err := swap(staging, w.dir); err != nil {
		return err
	}
	committed = true

	zap.L().Info("site written", zap.String("dir", w.dir), zap.Int("videos", len(results)))
	return nil
}

func (w *Writer) render(root string, results []model.VideoResult, report any) error {
	generated := w.now().UTC().Format(time.RFC1123)
	videosDir := filepath.Join(root, "videos")
	if err := os.MkdirAll(videosDir, 0o755); err != nil {
		return eris.Wrap(err, "site: create videos dir")
	}

	entries := make([]Entry, 0, len(results))
	for _, res := range results {
		id := res.Video.ID
		if !videoIDRe.MatchString(id) {
			zap.L().Warn("site: skipping video with unsafe id", zap.String("video_id", id))
			continue
		}
		video := res.Video
		if video.URL == "" {
			video.URL = model.WatchURL(id)
		}
		if video.Title == "" {
			video.Title = id
		}

		page := VideoPage{Video: video, Summary: res.Summary}
		if err := writeJSON(filepath.Join(videosDir, id+".json"), page); err != nil {
			return err
		}
		data := struct {
			VideoPage
			Generated string
		}{page, generated}
		if err := writeTemplate(filepath.Join(videosDir, id+".html"), "video.html.tmpl", data); err != nil {
			return err
		}

		entries = append(entries, Entry{
			ID:               id,
			Title:            video.Title,
			URL:              video.URL,
			PublishedAt:      video.PublishedAt,
			Status:           res.Summary.Status,
			Bullets:          res.Summary.Bullets,
			Summarizer:       res.Summary.Summarizer,
			TranscriptSource: res.Summary.TranscriptSource,
			Scrubbed:         res.Summary.Note != "",
		})
	}

	if err := writeJSON(filepath.Join(root, IndexFile), entries); err != nil {
		return err
	}
	if report != nil {
		if err := writeJSON(filepath.Join(root, "run.json"), report); err != nil {
			return err
		}
	}
	index := struct {
		Title     string
		Entries   []Entry
		Generated string
	}{w.title, entries, generated}
	return writeTemplate(filepath.Join(root, "index.html"), "index.html.tmpl", index)
}

// swap replaces dst with src. An existing dst is moved aside first and
// removed only after src is in place.
func swap(src, dst string) error {
	old := ""
	if _, err := os.Stat(dst); err == nil {
		old = dst + ".old-" + time.Now().UTC().Format("20060102T150405.000000000")
		if err := os.Rename(dst, old); err != nil {
			return eris.Wrapf(err, "site: move aside %s", dst)
		}
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "site: stat %s", dst)
	}

	if err := os.Rename(src, dst); err != nil {
		if old != "" {
			os.Rename(old, dst) //nolint:errcheck
		}
		return eris.Wrapf(err, "site: move %s into place", src)
	}
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			zap.L().Warn("site: failed to remove previous output", zap.String("dir", old), zap.Error(err))
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "site: marshal %s", filepath.Base(path))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "site: write %s", path)
	}
	return nil
}

func writeTemplate(path, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return eris.Wrapf(err, "site: render %s", name)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "site: write %s", path)
	}
	return nil
}

// ReadIndex loads the JSON index from a rendered site.
func ReadIndex(dir string) ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "site: read index")
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "site: parse index")
	}
	return entries, nil
}

// ValidVideoID reports whether id is safe to use as a file name.
func ValidVideoID(id string) bool {
	return videoIDRe.MatchString(id)
}

// ReadVideo loads one per-video JSON document.
func ReadVideo(dir, id string) (*VideoPage, error) {
	if !ValidVideoID(id) {
		return nil, eris.Errorf("site: invalid video id %q", id)
	}
	data, err := os.ReadFile(filepath.Join(dir, "videos", id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "site: read video")
	}
	var page VideoPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, eris.Wrap(err, "site: parse video")
	}
	return &page, nil
}
