// Package pipeline runs transcript acquisition and summarization for a batch
// of videos with per-video failure isolation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/internal/summarize"
)

// TranscriptFetcher is the transcript cascade.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) model.TranscriptResult
}

// LevelFilter post-processes a grounded summary (the price plausibility check).
type LevelFilter interface {
	Apply(ctx context.Context, s model.Summary) model.Summary
}

// Budget reports whether paid summarization should stop for this run.
type Budget interface {
	Exceeded() bool
}

// Pipeline orchestrates transcript, summary, and price-check per video.
type Pipeline struct {
	transcripts TranscriptFetcher
	primary     summarize.Summarizer
	fallback    summarize.Summarizer
	budget      Budget
	levels      LevelFilter
	concurrency int
	runID       string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFallback switches to fallback once budget is exceeded.
func WithFallback(fallback summarize.Summarizer, budget Budget) Option {
	return func(p *Pipeline) {
		p.fallback = fallback
		p.budget = budget
	}
}

// WithLevelFilter applies f to every summary.
func WithLevelFilter(f LevelFilter) Option {
	return func(p *Pipeline) { p.levels = f }
}

// WithConcurrency bounds how many videos are processed at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRunID sets the run identifier used in logs.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.runID = id
		}
	}
}

// New creates a Pipeline. Videos are processed one at a time unless
// WithConcurrency says otherwise.
func New(transcripts TranscriptFetcher, primary summarize.Summarizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		transcripts: transcripts,
		primary:     primary,
		concurrency: 1,
		runID:       uuid.NewString(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RunID returns the run identifier.
func (p *Pipeline) RunID() string { return p.runID }

// Process runs one video end to end. It never fails: every problem ends up
// inside the returned summary.
func (p *Pipeline) Process(ctx context.Context, video model.VideoRef) (res model.VideoResult) {
	log := zap.L().With(zap.String("run_id", p.runID), zap.String("video_id", video.ID))
	start := time.Now()
	res.Video = video

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: video panicked", zap.Any("panic", r), zap.Stack("stack"))
			res.Summary = model.ErrorSummary(video.ID, res.Transcript.Source, "")
		}
	}()

	res.Transcript = p.transcripts.Fetch(ctx, video.ID)

	s := p.summarizer(log)
	summary := s.Summarize(ctx, video, res.Transcript)
	if p.levels != nil {
		summary = p.levels.Apply(ctx, summary)
	}
	summary.VideoID = video.ID
	res.Summary = summary

	log.Info("pipeline: video processed",
		zap.String("status", string(summary.Status)),
		zap.String("transcript_source", string(res.Transcript.Source)),
		zap.Int("transcript_chars", len(res.Transcript.Text)),
		zap.String("summarizer", s.Name()),
		zap.Bool("scrubbed", summary.Note != ""),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return res
}

func (p *Pipeline) summarizer(log *zap.Logger) summarize.Summarizer {
	if p.fallback != nil && p.budget != nil && p.budget.Exceeded() {
		log.Warn("pipeline: run cost budget reached, using fallback summarizer",
			zap.String("fallback", p.fallback.Name()))
		return p.fallback
	}
	return p.primary
}

// RunBatch processes videos with bounded concurrency and returns results in
// input order. Stage order within a video is unaffected by concurrency. The
// only error is cancellation of ctx.
func (p *Pipeline) RunBatch(ctx context.Context, videos []model.VideoRef) ([]model.VideoResult, error) {
	results := make([]model.VideoResult, len(videos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, v := range videos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Process(gctx, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: batch cancelled")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: batch cancelled")
	}
	return results, nil
}

// Report tallies a batch.
type Report struct {
	RunID      string         `json:"run_id"`
	Videos     int            `json:"videos"`
	ByStatus   map[string]int `json:"by_status"`
	BySource   map[string]int `json:"by_source"`
	Scrubbed   int            `json:"scrubbed"`
	FinishedAt time.Time      `json:"finished_at"`
}

// NewReport summarizes results.
func NewReport(runID string, results []model.VideoResult) Report {
	r := Report{
		RunID:      runID,
		Videos:     len(results),
		ByStatus:   make(map[string]int),
		BySource:   make(map[string]int),
		FinishedAt: time.Now().UTC(),
	}
	for _, res := range results {
		r.ByStatus[string(res.Summary.Status)]++
		src := string(res.Transcript.Source)
		if src == "" {
			src = "none"
		}
		r.BySource[src]++
		if res.Summary.Note != "" {
			r.Scrubbed++
		}
	}
	return r
}

// String renders a one-line summary for the terminal.
func (r Report) String() string {
	return fmt.Sprintf("%d videos: %d ok, %d skipped, %d unavailable, %d error, %d scrubbed",
		r.Videos,
		r.ByStatus[string(model.SummaryStatusOK)],
		r.ByStatus[string(model.SummaryStatusSkipped)],
		r.ByStatus[string(model.SummaryStatusUnavailable)],
		r.ByStatus[string(model.SummaryStatusError)],
		r.Scrubbed,
	)
}
