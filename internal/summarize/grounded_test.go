package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recap-cli/internal/grounding"
	"github.com/sells-group/recap-cli/internal/model"
)

const groundedTranscript = "BTC tested 108000 support again this week and buyers defended it twice. " +
	"ETH is lagging but holding 3800 as the key pivot for now. " +
	"If BTC loses 108000 the next stop is 104500 where the prior breakout happened. " +
	"Funding stays neutral and volume is thin heading into the weekend."

func groundedInput() (model.VideoRef, model.TranscriptResult) {
	return model.VideoRef{ID: "abc123", Title: "Weekly levels", Description: "Levels for the week"},
		model.TranscriptResult{Text: groundedTranscript, Source: model.TranscriptSourceCaptions}
}

func newTestGrounded(t *testing.T, gen Generator, opts ...GroundedOption) *Grounded {
	d := testDeps(t)
	return NewGrounded(NameOpenAI, gen, d.vocab, d.norm, d.grounder, opts...)
}

func TestGrounded_ShortTranscriptSkipsCall(t *testing.T) {
	gen := &mockGenerator{}
	g := newTestGrounded(t, gen)

	short := model.TranscriptResult{Text: strings.Repeat("x", DefaultMinTranscriptChars-1), Source: model.TranscriptSourceScrape}
	s := g.Summarize(context.Background(), model.VideoRef{ID: "v1"}, short)

	assert.Equal(t, model.SummaryStatusUnavailable, s.Status)
	assert.Equal(t, "v1", s.VideoID)
	assert.Equal(t, model.TranscriptSourceScrape, s.TranscriptSource)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGrounded_MinCharsOption(t *testing.T) {
	gen := &mockGenerator{}
	g := newTestGrounded(t, gen, WithMinTranscriptChars(1000))

	video, tr := groundedInput()
	s := g.Summarize(context.Background(), video, tr)
	assert.Equal(t, model.SummaryStatusUnavailable, s.Status)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGrounded_EmptyTranscriptSkipped(t *testing.T) {
	gen := &mockGenerator{}
	g := newTestGrounded(t, gen)

	s := g.Summarize(context.Background(), model.VideoRef{ID: "v1"}, model.TranscriptResult{})
	assert.Equal(t, model.SummaryStatusSkipped, s.Status)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGrounded_Success(t *testing.T) {
	resp := "```json\n" + `{
	  "bullets": ["BTC held 108000 support", "eth pivot at 3800"],
	  "long": {
	    "context": "doge coin chatter aside, BTC leads",
	    "key_levels": [
	      {"asset": "btc", "level": 108000, "role": "Support", "notes": "defended twice"},
	      {"asset": "FAKECOIN", "level": "3800", "role": "floor"},
	      {"asset": "ETH", "level": "", "role": "pivot"}
	    ],
	    "setups": [{"name": "Breakdown", "thesis": "lose support", "trigger": "close below 108000", "invalidation": "reclaim", "targets": [104500]}],
	    "takeaways": "patience",
	    "catalysts": null,
	    "notable_details": ["volume is thin", ""]
	  }
	}` + "\n```"

	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything,
		mock.MatchedBy(func(s string) bool { return strings.Contains(s, "BTC") && strings.Contains(s, "JSON") }),
		mock.MatchedBy(func(s string) bool {
			return strings.Contains(s, "Title: Weekly levels") && strings.Contains(s, groundedTranscript)
		}),
	).Return(Generation{Text: resp, Model: "gpt-4o-mini", InputTokens: 900, OutputTokens: 120}, nil)

	spy := &usageSpy{}
	g := newTestGrounded(t, gen, WithUsageRecorder(spy))
	video, tr := groundedInput()
	s := g.Summarize(context.Background(), video, tr)

	gen.AssertExpectations(t)
	assert.Equal(t, model.SummaryStatusOK, s.Status)
	assert.Equal(t, "abc123", s.VideoID)
	assert.Equal(t, NameOpenAI, s.Summarizer)
	assert.Equal(t, model.TranscriptSourceCaptions, s.TranscriptSource)
	assert.Empty(t, s.Note)

	assert.Equal(t, []string{"BTC held 108000 support", "ETH pivot at 3800"}, s.Bullets)
	assert.Equal(t, "DOGE chatter aside, BTC leads", s.Long.Context)

	require.Len(t, s.Long.KeyLevels, 2)
	assert.Equal(t, model.KeyLevel{Asset: "BTC", Level: "108000", Role: model.RoleSupport, Notes: "defended twice"}, s.Long.KeyLevels[0])
	assert.Equal(t, "", s.Long.KeyLevels[1].Asset, "non-whitelisted asset is blanked")
	assert.Equal(t, model.RoleUnspecified, s.Long.KeyLevels[1].Role)

	require.Len(t, s.Long.Setups, 1)
	assert.Equal(t, []string{"104500"}, s.Long.Setups[0].Targets)
	assert.Equal(t, []string{"patience"}, s.Long.Takeaways)
	assert.Equal(t, []string{}, s.Long.Catalysts)
	assert.Equal(t, []string{"volume is thin"}, s.Long.NotableDetails)

	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, NameOpenAI, spy.provider)
	assert.Equal(t, "gpt-4o-mini", spy.model)
	assert.Equal(t, int64(900), spy.input)
	assert.Equal(t, int64(120), spy.output)
}

func TestGrounded_FabricatedNumberScrubsEverything(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(Generation{
		Text: `{"bullets":["BTC held 108000 and may reach 120000"],"long":{"context":"ETH pivot 3800"}}`,
	}, nil)

	g := newTestGrounded(t, gen)
	video, tr := groundedInput()
	s := g.Summarize(context.Background(), video, tr)

	assert.Equal(t, model.SummaryStatusOK, s.Status)
	assert.Equal(t, grounding.ScrubNote, s.Note)
	assert.Equal(t, []string{"BTC held [redacted] and may reach [redacted]"}, s.Bullets)
	assert.Equal(t, "ETH pivot [redacted]", s.Long.Context)
}

func TestGrounded_GenerationErrorIsTerminal(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(Generation{}, errors.New("429 rate limited"))

	spy := &usageSpy{}
	g := newTestGrounded(t, gen, WithUsageRecorder(spy))
	video, tr := groundedInput()
	s := g.Summarize(context.Background(), video, tr)

	assert.Equal(t, model.SummaryStatusError, s.Status)
	assert.Equal(t, NameOpenAI, s.Summarizer)
	assert.Equal(t, model.TranscriptSourceCaptions, s.TranscriptSource)
	assert.Zero(t, spy.calls)
}

func TestGrounded_MalformedResponseDegradesToEmpty(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(Generation{Text: "Sorry, I cannot help with that."}, nil)

	g := newTestGrounded(t, gen)
	video, tr := groundedInput()
	s := g.Summarize(context.Background(), video, tr)

	assert.Equal(t, model.SummaryStatusOK, s.Status)
	assert.Empty(t, s.Bullets)
	assert.NotNil(t, s.Bullets)
	assert.Empty(t, s.Long.Context)
	assert.Empty(t, s.Long.KeyLevels)
	assert.Empty(t, s.Note)
}

func TestGrounded_FlatLongFormAccepted(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(Generation{
		Text: `{"bullets":"single bullet","context":"flat context","catalysts":["FOMC"]}`,
	}, nil)

	g := newTestGrounded(t, gen)
	video, tr := groundedInput()
	s := g.Summarize(context.Background(), video, tr)

	assert.Equal(t, []string{"single bullet"}, s.Bullets)
	assert.Equal(t, "flat context", s.Long.Context)
	assert.Equal(t, []string{"FOMC"}, s.Long.Catalysts)
}

func TestGrounded_BulletLimits(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 50))
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(Generation{
		Text: `{"bullets":["` + long + `","` + long + `","c","d"]}`,
	}, nil)

	g := newTestGrounded(t, gen)
	video, tr := groundedInput()
	s := g.Summarize(context.Background(), video, tr)

	require.Len(t, s.Bullets, 2)
	words := 0
	for _, b := range s.Bullets {
		words += len(strings.Fields(b))
	}
	assert.Equal(t, MaxBulletWords, words)
}

func TestRole(t *testing.T) {
	tests := map[string]string{
		"support":     model.RoleSupport,
		" Resistance": model.RoleResistance,
		"PIVOT":       model.RolePivot,
		"":            model.RoleUnspecified,
		"floor":       model.RoleUnspecified,
	}
	for in, want := range tests {
		assert.Equal(t, want, role(in), in)
	}
}
