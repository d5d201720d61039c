package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/config"
	"github.com/sells-group/recap-cli/internal/cost"
	"github.com/sells-group/recap-cli/internal/discovery"
	"github.com/sells-group/recap-cli/internal/fetcher"
	"github.com/sells-group/recap-cli/internal/grounding"
	"github.com/sells-group/recap-cli/internal/pipeline"
	"github.com/sells-group/recap-cli/internal/pricecheck"
	"github.com/sells-group/recap-cli/internal/resilience"
	"github.com/sells-group/recap-cli/internal/summarize"
	"github.com/sells-group/recap-cli/internal/textnorm"
	"github.com/sells-group/recap-cli/internal/transcript"
	"github.com/sells-group/recap-cli/internal/vocab"
	"github.com/sells-group/recap-cli/internal/ytauth"
	anthropicpkg "github.com/sells-group/recap-cli/pkg/anthropic"
	"github.com/sells-group/recap-cli/pkg/coingecko"
	openaipkg "github.com/sells-group/recap-cli/pkg/openai"
	"github.com/sells-group/recap-cli/pkg/youtube"
)

// appEnv holds everything the build, transcript, and summarize commands
// share.
type appEnv struct {
	RunID      string
	Vocab      *vocab.Vocabulary
	Normalizer *textnorm.Normalizer
	Grounder   *grounding.Filter
	Fetcher    *fetcher.Client
	Cascade    *transcript.Cascade
	Breakers   *resilience.Breakers
	Tracker    *cost.Tracker
	Summarizer summarize.Summarizer
	Levels     pipeline.LevelFilter
	Pipeline   *pipeline.Pipeline
}

// initApp validates cfg for command and wires the pipeline. Any error here
// is fatal and happens before per-video work starts.
func initApp(ctx context.Context, c *config.Config, command string) (*appEnv, error) {
	if err := c.Validate(command); err != nil {
		return nil, err
	}

	v, err := loadVocab(c.Vocab.File)
	if err != nil {
		return nil, err
	}

	env := &appEnv{
		RunID:      uuid.NewString(),
		Vocab:      v,
		Normalizer: textnorm.New(v),
		Grounder:   newGrounder(c),
		Fetcher:    fetcher.New(fetcherOptions(c)),
		Breakers:   resilience.NewBreakers(breakerConfig(c)),
		Tracker:    cost.NewTracker(cost.NewCalculator(c.Pricing), c.Summarizer.MaxRunCostUSD),
	}

	stages := buildStages(ctx, c, env.Fetcher, env.RunID)
	env.Cascade = transcript.NewCascade(env.Normalizer, stages,
		transcript.WithLimits(c.Transcript.MinChars, c.Transcript.MaxChars),
		transcript.WithBreakers(env.Breakers),
	)

	env.Summarizer, err = buildSummarizer(c, env)
	if err != nil {
		return nil, err
	}
	env.Levels = buildLevelFilter(c, v)
	env.Pipeline = env.newPipeline(env.Cascade, c.Batch.MaxConcurrentVideos)

	zap.L().Info("recap: pipeline ready",
		zap.String("run_id", env.RunID),
		zap.String("summarizer", env.Summarizer.Name()),
		zap.Any("stages", env.Cascade.Stages()),
		zap.Bool("price_check", c.Prices.Enabled),
	)
	return env, nil
}

// newPipeline builds a pipeline over transcripts using the configured
// summarizer, budget fallback, and level filter.
func (env *appEnv) newPipeline(transcripts pipeline.TranscriptFetcher, concurrency int) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithRunID(env.RunID),
		pipeline.WithConcurrency(concurrency),
	}
	if env.Summarizer.Name() != summarize.NameExtractive {
		opts = append(opts, pipeline.WithFallback(summarize.NewExtractive(env.Vocab, env.Grounder), env.Tracker))
	}
	if env.Levels != nil {
		opts = append(opts, pipeline.WithLevelFilter(env.Levels))
	}
	return pipeline.New(transcripts, env.Summarizer, opts...)
}

func loadVocab(path string) (*vocab.Vocabulary, error) {
	if path == "" {
		return vocab.Default()
	}
	return vocab.Load(path)
}

func newGrounder(c *config.Config) *grounding.Filter {
	return grounding.New(
		grounding.WithTolerance(c.Grounding.Tolerance),
		grounding.WithMarker(c.Grounding.RedactionMarker),
	)
}

func fetcherOptions(c *config.Config) fetcher.Options {
	return fetcher.Options{
		HostRates: fetcher.DefaultHostRates(),
		Retry: resilience.RetryFromConfig(
			c.HTTP.RetryMaxAttempts,
			c.HTTP.RetryInitialBackoffMs,
			c.HTTP.RetryMaxBackoffMs,
		),
	}
}

func breakerConfig(c *config.Config) resilience.BreakerConfig {
	cfg := resilience.BreakerFromConfig(c.Transcript.BreakerFailureThreshold, c.Transcript.BreakerResetSecs)
	cfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
		zap.L().Warn("recap: stage breaker state changed",
			zap.String("stage", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return cfg
}

// breakerStates renders every stage breaker's state for logging.
func breakerStates(b *resilience.Breakers) map[string]string {
	states := b.States()
	out := make(map[string]string, len(states))
	for name, s := range states {
		out[name] = s.String()
	}
	return out
}

// buildStages assembles the cascade in priority order. The official
// captions stage needs a stored OAuth token; the speech stage needs a local
// model. Missing prerequisites drop the stage rather than fail the run.
func buildStages(ctx context.Context, c *config.Config, hc transcript.HTTPClient, runID string) []transcript.Stage {
	timeout := time.Duration(c.Transcript.StageTimeoutSecs) * time.Second
	var stages []transcript.Stage

	if c.OAuthEnabled() {
		captions, err := captionsStage(ctx, c)
		if err != nil {
			zap.L().Warn("recap: captions stage disabled", zap.Error(err))
		} else {
			stages = append(stages, captions)
		}
	}

	stages = append(stages,
		transcript.NewInnertubeStage(hc, c.Transcript.Locales),
		transcript.NewScrapeStage(hc),
	)

	if c.STT.ModelPath != "" {
		runner := transcript.ExecRunner{}
		stages = append(stages, transcript.NewSpeechStage(
			transcript.YTDLP{Runner: runner, Binary: c.STT.YTDLPBin},
			transcript.WhisperCLI{
				Runner:    runner,
				Binary:    c.STT.WhisperBin,
				ModelPath: c.STT.ModelPath,
				Language:  c.STT.Language,
				Threads:   c.STT.Threads,
			},
			c.STT.ScratchDir,
			runID,
		))
	}

	if timeout > 0 {
		for i, s := range stages {
			stages[i] = transcript.Timed(s, timeout)
		}
	}
	return stages
}

func captionsStage(ctx context.Context, c *config.Config) (transcript.Stage, error) {
	if _, err := os.Stat(c.YouTube.TokenFile); err != nil {
		return nil, eris.Wrapf(err, "token file %s (run `recap-cli auth`)", c.YouTube.TokenFile)
	}
	oauthCfg, err := ytauth.LoadClientSecrets(c.YouTube.OAuthClientFile)
	if err != nil {
		return nil, err
	}
	hc, err := ytauth.HTTPClient(ctx, oauthCfg, c.YouTube.TokenFile)
	if err != nil {
		return nil, err
	}
	return transcript.NewCaptionsStage(youtube.NewClient("", youtube.WithHTTPClient(hc))), nil
}

// buildSummarizer returns the configured summarizer. Paid summarizers
// record their usage on env.Tracker.
func buildSummarizer(c *config.Config, env *appEnv) (summarize.Summarizer, error) {
	groundedOpts := []summarize.GroundedOption{
		summarize.WithMinTranscriptChars(c.Summarizer.MinTranscriptChars),
		summarize.WithUsageRecorder(env.Tracker),
	}

	switch c.Summarizer.Mode {
	case config.ModeExtractive:
		return summarize.NewExtractive(env.Vocab, env.Grounder), nil
	case config.ModeOpenAI:
		var opts []openaipkg.Option
		if c.OpenAI.BaseURL != "" {
			opts = append(opts, openaipkg.WithBaseURL(c.OpenAI.BaseURL))
		}
		gen := summarize.NewOpenAIGenerator(openaipkg.NewClient(c.OpenAI.APIKey, opts...), generationSettings(c.OpenAI))
		return summarize.NewGrounded(summarize.NameOpenAI, gen, env.Vocab, env.Normalizer, env.Grounder, groundedOpts...), nil
	case config.ModeAnthropic:
		var opts []anthropicpkg.Option
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicpkg.WithBaseURL(c.Anthropic.BaseURL))
		}
		gen := summarize.NewAnthropicGenerator(anthropicpkg.NewClient(c.Anthropic.APIKey, opts...), generationSettings(c.Anthropic))
		return summarize.NewGrounded(summarize.NameAnthropic, gen, env.Vocab, env.Normalizer, env.Grounder, groundedOpts...), nil
	default:
		return nil, eris.Errorf("unknown summarizer mode %q", c.Summarizer.Mode)
	}
}

func generationSettings(l config.LLMConfig) summarize.GenerationSettings {
	return summarize.GenerationSettings{
		Model:       l.Model,
		MaxTokens:   l.MaxTokens,
		Temperature: l.Temperature,
	}
}

// buildLevelFilter returns nil when the price check is disabled.
func buildLevelFilter(c *config.Config, v *vocab.Vocabulary) pipeline.LevelFilter {
	if !c.Prices.Enabled {
		return nil
	}
	var opts []coingecko.Option
	if c.Prices.BaseURL != "" {
		opts = append(opts, coingecko.WithBaseURL(c.Prices.BaseURL))
	}
	return pricecheck.New(coingecko.NewClient(c.Prices.APIKey, opts...), v, c.Prices.Currency)
}

// buildEnumerator prefers the Data API when a key is configured and always
// keeps the public feed as a fallback.
func buildEnumerator(c *config.Config, hc discovery.Getter) *discovery.Enumerator {
	var sources []discovery.Source
	if c.YouTube.APIKey != "" {
		sources = append(sources, discovery.NewAPISource(youtube.NewClient(c.YouTube.APIKey), c.Channel.MaxVideos))
	}
	sources = append(sources, discovery.NewFeedSource(hc))
	return discovery.NewEnumerator(discovery.Options{
		LookbackDays: c.Channel.LookbackDays,
		MaxVideos:    c.Channel.MaxVideos,
	}, sources...)
}
