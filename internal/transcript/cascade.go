// Package transcript retrieves spoken transcripts for videos through an
// ordered cascade of independent sources.
package transcript

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/internal/resilience"
)

const (
	// DefaultMinChars is the shortest normalized text a stage may return.
	DefaultMinChars = 50
	// DefaultMaxChars caps transcript length to bound summarizer cost.
	DefaultMaxChars = 8000
)

// Stage is one transcript source. Fetch returns empty text with a nil error
// when the source simply has nothing for the video.
type Stage interface {
	Name() model.TranscriptSource
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Normalizer canonicalizes stage output.
type Normalizer interface {
	Normalize(s string) string
}

// HTTPClient is the subset of fetcher.Client the page and player stages use.
type HTTPClient interface {
	Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error)
	PostJSON(ctx context.Context, rawURL string, header http.Header, payload any) ([]byte, error)
}

// Cascade tries stages strictly in order and returns the first usable result.
type Cascade struct {
	stages   []Stage
	norm     Normalizer
	breakers *resilience.Breakers
	minChars int
	maxChars int
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithLimits sets the minimum usable and maximum kept transcript length in
// characters. Non-positive values keep the defaults.
func WithLimits(minChars, maxChars int) Option {
	return func(c *Cascade) {
		if minChars > 0 {
			c.minChars = minChars
		}
		if maxChars > 0 {
			c.maxChars = maxChars
		}
	}
}

// WithBreakers sets the per-stage circuit breaker registry.
func WithBreakers(b *resilience.Breakers) Option {
	return func(c *Cascade) { c.breakers = b }
}

// NewCascade creates a Cascade over stages, in priority order.
func NewCascade(norm Normalizer, stages []Stage, opts ...Option) *Cascade {
	c := &Cascade{
		stages:   stages,
		norm:     norm,
		breakers: resilience.NewBreakers(resilience.DefaultBreakerConfig()),
		minChars: DefaultMinChars,
		maxChars: DefaultMaxChars,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stages returns the configured stage names in priority order.
func (c *Cascade) Stages() []model.TranscriptSource {
	out := make([]model.TranscriptSource, len(c.stages))
	for i, s := range c.stages {
		out[i] = s.Name()
	}
	return out
}

// Fetch never fails: every stage error is logged and treated as "nothing
// found". An empty result means no stage produced usable text.
func (c *Cascade) Fetch(ctx context.Context, videoID string) model.TranscriptResult {
	log := zap.L().With(zap.String("video_id", videoID))

	for _, stage := range c.stages {
		if ctx.Err() != nil {
			log.Warn("transcript: context done, stopping cascade", zap.Error(ctx.Err()))
			break
		}

		name := stage.Name()
		raw, err := resilience.Call(ctx, c.breakers.Get(string(name)), func(ctx context.Context) (string, error) {
			return stage.Fetch(ctx, videoID)
		})
		if err != nil {
			log.Warn("transcript: stage failed", zap.String("stage", string(name)), zap.Error(err))
			continue
		}

		text := c.norm.Normalize(raw)
		if utf8.RuneCountInString(text) < c.minChars {
			log.Debug("transcript: stage returned too little text",
				zap.String("stage", string(name)),
				zap.Int("chars", utf8.RuneCountInString(text)),
			)
			continue
		}

		text = strings.TrimSpace(truncateRunes(text, c.maxChars))
		log.Info("transcript: found", zap.String("stage", string(name)), zap.Int("chars", utf8.RuneCountInString(text)))
		return model.TranscriptResult{Text: text, Source: name}
	}

	log.Info("transcript: no source produced text")
	return model.TranscriptResult{}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Timed bounds each Fetch of stage with timeout.
func Timed(stage Stage, timeout time.Duration) Stage {
	if timeout <= 0 {
		return stage
	}
	return timedStage{Stage: stage, timeout: timeout}
}

type timedStage struct {
	Stage
	timeout time.Duration
}

func (t timedStage) Fetch(ctx context.Context, videoID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Stage.Fetch(ctx, videoID)
}
