// Package discovery enumerates a channel's recent videos, optionally scoped
// to one playlist.
package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/model"
)

// Source lists videos for a channel or playlist. playlist may be empty.
type Source interface {
	Name() string
	List(ctx context.Context, channelID, playlist string) ([]model.VideoRef, error)
}

// Options bound the enumeration.
type Options struct {
	LookbackDays int
	MaxVideos    int
}

// Enumerator tries each source in order and post-processes the first
// successful listing.
type Enumerator struct {
	sources []Source
	opts    Options
	now     func() time.Time
}

// NewEnumerator creates an Enumerator. Nil sources are skipped.
func NewEnumerator(opts Options, sources ...Source) *Enumerator {
	e := &Enumerator{opts: opts, now: time.Now}
	for _, s := range sources {
		if s != nil {
			e.sources = append(e.sources, s)
		}
	}
	return e
}

// Recent returns deduplicated videos newest first, limited by lookback and
// max count.
func (e *Enumerator) Recent(ctx context.Context, channelID, playlist string) ([]model.VideoRef, error) {
	if len(e.sources) == 0 {
		return nil, eris.New("discovery: no video sources configured")
	}

	var lastErr error
	for _, src := range e.sources {
		videos, err := src.List(ctx, channelID, playlist)
		if err != nil {
			zap.L().Warn("video source failed",
				zap.String("source", src.Name()),
				zap.String("channel_id", channelID),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		out := e.filter(videos)
		zap.L().Info("discovered videos",
			zap.String("source", src.Name()),
			zap.Int("listed", len(videos)),
			zap.Int("selected", len(out)),
		)
		return out, nil
	}
	return nil, eris.Wrap(lastErr, "discovery: all video sources failed")
}

func (e *Enumerator) filter(videos []model.VideoRef) []model.VideoRef {
	var cutoff time.Time
	if e.opts.LookbackDays > 0 {
		cutoff = e.now().AddDate(0, 0, -e.opts.LookbackDays)
	}

	seen := make(map[string]bool, len(videos))
	out := make([]model.VideoRef, 0, len(videos))
	for _, v := range videos {
		if v.ID == "" || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		if !cutoff.IsZero() && !v.PublishedAt.IsZero() && v.PublishedAt.Before(cutoff) {
			continue
		}
		if v.URL == "" {
			v.URL = model.WatchURL(v.ID)
		}
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if e.opts.MaxVideos > 0 && len(out) > e.opts.MaxVideos {
		out = out[:e.opts.MaxVideos]
	}
	return out
}
