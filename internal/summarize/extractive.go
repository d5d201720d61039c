package summarize

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/internal/numeric"
	"github.com/sells-group/recap-cli/internal/vocab"
)

// Scoring weights.
const (
	numericBonus  = 0.5
	priceBonus    = 1.5
	currencyBoost = 1.15
	tickerBoost   = 1.2
	shortBoost    = 1.1
	shortLen      = 140

	bulletChars  = 160
	maxLevels    = 6
	maxTakeaways = 4
	maxNotable   = 6
)

var (
	priceShapeRe = regexp.MustCompile(`^\d{3,5}(?:\.\d+)?$`)
	levelShapeRe = regexp.MustCompile(`^\d{2,5}(?:\.\d+)?$`)
)

// Extractive ranks transcript sentences by term frequency with bonuses for
// numbers, prices, currency, and tickers. It makes no external calls.
type Extractive struct {
	vocab    *vocab.Vocabulary
	grounder Grounder
}

// NewExtractive creates the no-cost summarizer.
func NewExtractive(v *vocab.Vocabulary, g Grounder) *Extractive {
	return &Extractive{vocab: v, grounder: g}
}

// Name implements Summarizer.
func (e *Extractive) Name() string { return NameExtractive }

type scored struct {
	idx   int
	text  string
	score float64
}

// Summarize implements Summarizer.
func (e *Extractive) Summarize(_ context.Context, video model.VideoRef, transcript model.TranscriptResult) model.Summary {
	if transcript.Empty() {
		return model.SkippedSummary(video.ID)
	}

	sentences := splitSentences(transcript.Text)
	ranked := e.rank(sentences)

	s := model.Summary{
		VideoID:          video.ID,
		Status:           model.SummaryStatusOK,
		Summarizer:       NameExtractive,
		TranscriptSource: transcript.Source,
	}

	used := make(map[int]bool)
	top := topK(ranked, MaxBullets, used)
	sort.Slice(top, func(i, j int) bool { return top[i].idx < top[j].idx })
	bullets := make([]string, 0, len(top))
	for _, c := range top {
		used[c.idx] = true
		bullets = append(bullets, ellipsize(c.text, bulletChars))
	}
	s.Bullets = capBullets(bullets)

	if best := topK(ranked, 1, nil); len(best) == 1 {
		s.Long.Context = best[0].text
	}

	s.Long.KeyLevels = candidateLevels(transcript.Text)

	for _, c := range topK(ranked, maxTakeaways, used) {
		used[c.idx] = true
		s.Long.Takeaways = append(s.Long.Takeaways, c.text)
	}

	var notable []scored
	for _, c := range ranked {
		if len(notable) == maxNotable {
			break
		}
		if used[c.idx] || !e.mentionsFigure(c.text) {
			continue
		}
		used[c.idx] = true
		notable = append(notable, c)
	}
	sort.Slice(notable, func(i, j int) bool { return notable[i].idx < notable[j].idx })
	for _, c := range notable {
		s.Long.NotableDetails = append(s.Long.NotableDetails, c.text)
	}

	fillEmpty(&s)
	out := e.grounder.Ground(s, transcript.Text)

	zap.L().Debug("extractive summary",
		zap.String("video_id", video.ID),
		zap.Int("sentences", len(sentences)),
		zap.Int("levels", len(out.Long.KeyLevels)),
		zap.Bool("scrubbed", out.Note != ""),
	)
	return out
}

// rank scores every sentence and returns them best first. Ties keep
// transcript order.
func (e *Extractive) rank(sentences []string) []scored {
	tf := make(map[string]int)
	words := make([][]string, len(sentences))
	for i, sent := range sentences {
		words[i] = contentWords(sent)
		for _, w := range words[i] {
			tf[w]++
		}
	}

	out := make([]scored, len(sentences))
	for i, sent := range sentences {
		out[i] = scored{idx: i, text: sent, score: e.score(sent, words[i], tf)}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].score > out[b].score })
	return out
}

func (e *Extractive) score(sent string, words []string, tf map[string]int) float64 {
	var score float64
	for _, w := range words {
		score += float64(tf[w])
	}
	for _, tok := range numeric.Parse(sent) {
		score += numericBonus
		if priceShaped(tok) {
			score += priceBonus
		}
	}
	if strings.ContainsAny(sent, "$\u20ac\u00a3") {
		score *= currencyBoost
	}
	if e.vocab.ContainsTicker(sent) {
		score *= tickerBoost
	}
	if len(sent) < shortLen {
		score *= shortBoost
	}
	return score
}

func (e *Extractive) mentionsFigure(s string) bool {
	return strings.ContainsAny(s, "0123456789") || e.vocab.ContainsTicker(s)
}

// topK returns the k best sentences not in skip, in rank order.
func topK(ranked []scored, k int, skip map[int]bool) []scored {
	out := make([]scored, 0, k)
	for _, c := range ranked {
		if len(out) == k {
			break
		}
		if skip[c.idx] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// bareDigits strips currency markers and thousands separators from a token.
func bareDigits(tok numeric.Token) (string, bool) {
	if tok.Percent {
		return "", false
	}
	raw := strings.TrimLeft(tok.Raw, "$\u20ac\u00a3 ")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return "", false
	}
	switch raw[len(raw)-1] {
	case 'k', 'K', 'm', 'M':
		return "", false
	}
	return raw, true
}

func priceShaped(tok numeric.Token) bool {
	d, ok := bareDigits(tok)
	return ok && priceShapeRe.MatchString(d)
}

// candidateLevels returns up to maxLevels distinct 2 to 5 digit numbers in
// transcript order, unlabeled.
func candidateLevels(text string) []model.KeyLevel {
	var out []model.KeyLevel
	seen := make(map[string]bool)
	for _, tok := range numeric.Parse(text) {
		d, ok := bareDigits(tok)
		if !ok || !levelShapeRe.MatchString(d) || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, model.KeyLevel{Level: d, Role: model.RoleUnspecified})
		if len(out) == maxLevels {
			break
		}
	}
	return out
}
