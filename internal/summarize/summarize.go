// Package summarize turns a transcript into a model.Summary, either by
// ranking transcript sentences or by asking a text-generation service, and
// always finishes with the grounding filter.
package summarize

import (
	"context"
	"strings"

	"github.com/sells-group/recap-cli/internal/model"
)

// Summarizer names, recorded on every summary they produce.
const (
	NameExtractive = "extractive"
	NameOpenAI     = "openai"
	NameAnthropic  = "anthropic"
)

// Bullet limits shared by both summarizers.
const (
	MaxBullets     = 3
	MaxBulletWords = 60
)

// Summarizer produces a summary for one video. It never returns an error:
// failures become terminal summaries.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, video model.VideoRef, transcript model.TranscriptResult) model.Summary
}

// Grounder is the numeric grounding step applied to every non-terminal summary.
type Grounder interface {
	Ground(s model.Summary, transcript string) model.Summary
}

// capBullets keeps at most MaxBullets non-empty bullets whose combined word
// count stays within MaxBulletWords. The bullet that crosses the limit is cut
// and ends in an ellipsis.
func capBullets(in []string) []string {
	out := make([]string, 0, MaxBullets)
	words := 0
	for _, b := range in {
		if len(out) == MaxBullets || words >= MaxBulletWords {
			break
		}
		fields := strings.Fields(b)
		if len(fields) == 0 {
			continue
		}
		if words+len(fields) > MaxBulletWords {
			fields = fields[:MaxBulletWords-words]
			last := len(fields) - 1
			fields[last] = strings.TrimRight(fields[last], ",;:-") + "\u2026"
		}
		words += len(fields)
		out = append(out, strings.Join(fields, " "))
	}
	return out
}

// fillEmpty replaces nil lists with empty ones so rendered JSON carries [] rather than null.
func fillEmpty(s *model.Summary) {
	if s.Bullets == nil {
		s.Bullets = []string{}
	}
	l := &s.Long
	if l.KeyLevels == nil {
		l.KeyLevels = []model.KeyLevel{}
	}
	if l.Setups == nil {
		l.Setups = []model.TradeSetup{}
	}
	for i := range l.Setups {
		if l.Setups[i].Targets == nil {
			l.Setups[i].Targets = []string{}
		}
	}
	if l.Takeaways == nil {
		l.Takeaways = []string{}
	}
	if l.Catalysts == nil {
		l.Catalysts = []string{}
	}
	if l.NotableDetails == nil {
		l.NotableDetails = []string{}
	}
}
