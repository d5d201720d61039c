package summarize

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/internal/vocab"
)

// DefaultMinTranscriptChars is the shortest transcript worth a paid call.
const DefaultMinTranscriptChars = 200

// Normalizer canonicalizes generated text.
type Normalizer interface {
	Normalize(s string) string
}

// UsageRecorder receives token usage for every successful generation.
type UsageRecorder interface {
	Record(provider, model string, inputTokens, outputTokens int64)
}

// Grounded asks a Generator for a structured summary, then normalizes,
// filters assets against the ticker whitelist, and grounds the result.
type Grounded struct {
	name     string
	gen      Generator
	vocab    *vocab.Vocabulary
	norm     Normalizer
	grounder Grounder
	minChars int
	usage    UsageRecorder
}

// GroundedOption configures a Grounded summarizer.
type GroundedOption func(*Grounded)

// WithMinTranscriptChars sets the short-transcript threshold.
func WithMinTranscriptChars(n int) GroundedOption {
	return func(g *Grounded) {
		if n > 0 {
			g.minChars = n
		}
	}
}

// WithUsageRecorder reports token usage after each call.
func WithUsageRecorder(r UsageRecorder) GroundedOption {
	return func(g *Grounded) { g.usage = r }
}

// NewGrounded creates a paid summarizer named after its provider.
func NewGrounded(name string, gen Generator, v *vocab.Vocabulary, norm Normalizer, g Grounder, opts ...GroundedOption) *Grounded {
	s := &Grounded{
		name:     name,
		gen:      gen,
		vocab:    v,
		norm:     norm,
		grounder: g,
		minChars: DefaultMinTranscriptChars,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements Summarizer.
func (g *Grounded) Name() string { return g.name }

// Summarize implements Summarizer.
func (g *Grounded) Summarize(ctx context.Context, video model.VideoRef, transcript model.TranscriptResult) model.Summary {
	if transcript.Empty() {
		return model.SkippedSummary(video.ID)
	}
	if utf8.RuneCountInString(transcript.Text) < g.minChars {
		return model.UnavailableSummary(video.ID, transcript.Source)
	}

	log := zap.L().With(zap.String("video_id", video.ID), zap.String("summarizer", g.name))

	gen, err := g.gen.Generate(ctx, systemPrompt(g.vocab.Tickers()), userPrompt(video, transcript.Text))
	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		return model.ErrorSummary(video.ID, transcript.Source, g.name)
	}
	if g.usage != nil {
		g.usage.Record(g.name, gen.Model, gen.InputTokens, gen.OutputTokens)
	}

	parsed, ok := parseResponse(gen.Text)
	if !ok {
		log.Warn("malformed generation, using empty summary", zap.Int("response_len", len(gen.Text)))
	}

	s := g.build(parsed)
	s.VideoID = video.ID
	s.TranscriptSource = transcript.Source

	out := g.grounder.Ground(s, transcript.Text)
	log.Debug("grounded summary",
		zap.String("model", gen.Model),
		zap.Int64("input_tokens", gen.InputTokens),
		zap.Int64("output_tokens", gen.OutputTokens),
		zap.Bool("scrubbed", out.Note != ""),
	)
	return out
}

func (g *Grounded) build(p llmSummary) model.Summary {
	long := p.long()
	s := model.Summary{
		Status:     model.SummaryStatusOK,
		Summarizer: g.name,
		Bullets:    capBullets(g.texts(p.Bullets)),
		Long: model.LongForm{
			Context:        g.text(long.Context),
			Takeaways:      g.texts(long.Takeaways),
			Catalysts:      g.texts(long.Catalysts),
			NotableDetails: g.texts(long.NotableDetails),
		},
	}

	for _, kl := range long.KeyLevels {
		level := g.text(kl.Level)
		if level == "" {
			continue
		}
		s.Long.KeyLevels = append(s.Long.KeyLevels, model.KeyLevel{
			Asset: g.asset(kl.Asset),
			Level: level,
			Role:  role(string(kl.Role)),
			Notes: g.text(kl.Notes),
		})
	}

	for _, st := range long.Setups {
		setup := model.TradeSetup{
			Name:         g.text(st.Name),
			Thesis:       g.text(st.Thesis),
			Trigger:      g.text(st.Trigger),
			Invalidation: g.text(st.Invalidation),
			Targets:      g.texts(st.Targets),
		}
		if setup.Name == "" && setup.Thesis == "" && setup.Trigger == "" && len(setup.Targets) == 0 {
			continue
		}
		s.Long.Setups = append(s.Long.Setups, setup)
	}

	fillEmpty(&s)
	return s
}

func (g *Grounded) text(f flexString) string {
	return g.norm.Normalize(string(f))
}

func (g *Grounded) texts(in flexStrings) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := g.norm.Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// asset returns the canonical ticker, or "" when the model named something
// outside the whitelist.
func (g *Grounded) asset(f flexString) string {
	sym := strings.ToUpper(strings.TrimSpace(string(f)))
	sym = strings.TrimPrefix(sym, "$")
	if g.vocab.IsTicker(sym) {
		return sym
	}
	return ""
}

func role(r string) string {
	switch r = strings.ToLower(strings.TrimSpace(r)); r {
	case model.RoleSupport, model.RoleResistance, model.RolePivot:
		return r
	default:
		return model.RoleUnspecified
	}
}
