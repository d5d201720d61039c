// Package pricecheck drops key levels that are wildly off the live spot price.
package pricecheck

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/internal/numeric"
	"github.com/sells-group/recap-cli/internal/vocab"
)

// Bound is the allowed ratio between a level and spot in either direction.
const Bound = 100.0

// PriceSource returns spot prices keyed by price-API id.
type PriceSource interface {
	SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]float64, error)
}

// Filter removes implausible key levels.
type Filter struct {
	source   PriceSource
	vocab    *vocab.Vocabulary
	currency string
}

// New creates a Filter quoting prices in currency (e.g. "usd").
func New(source PriceSource, v *vocab.Vocabulary, currency string) *Filter {
	if currency == "" {
		currency = "usd"
	}
	return &Filter{source: source, vocab: v, currency: currency}
}

// Plausible reports whether level is within two orders of magnitude of spot.
func Plausible(level, spot float64) bool {
	return spot/Bound < level && level < spot*Bound
}

// Apply returns s with implausible key levels removed. Lookup failures leave
// the summary untouched.
func (f *Filter) Apply(ctx context.Context, s model.Summary) model.Summary {
	if s.IsTerminal() || len(s.Long.KeyLevels) == 0 {
		return s
	}

	ids := f.priceIDs(s.Long.KeyLevels)
	if len(ids) == 0 {
		return s
	}

	idList := make([]string, 0, len(ids))
	for _, id := range ids {
		idList = append(idList, id)
	}
	quotes, err := f.source.SimplePrice(ctx, dedupe(idList), f.currency)
	if err != nil {
		zap.L().Warn("price lookup failed, levels not filtered",
			zap.String("video_id", s.VideoID),
			zap.Error(err),
		)
		return s
	}

	out := s.Clone()
	kept := out.Long.KeyLevels[:0]
	for _, kl := range out.Long.KeyLevels {
		if f.keep(kl, ids, quotes) {
			kept = append(kept, kl)
			continue
		}
		zap.L().Info("dropping implausible key level",
			zap.String("video_id", s.VideoID),
			zap.String("asset", kl.Asset),
			zap.String("level", kl.Level),
			zap.Float64("spot", quotes[ids[strings.ToUpper(kl.Asset)]]),
		)
	}
	out.Long.KeyLevels = kept
	return out
}

// priceIDs maps each whitelisted asset in levels to its price-API id.
func (f *Filter) priceIDs(levels []model.KeyLevel) map[string]string {
	ids := make(map[string]string)
	for _, kl := range levels {
		sym := strings.ToUpper(strings.TrimSpace(kl.Asset))
		if sym == "" || !f.vocab.IsTicker(sym) {
			continue
		}
		if id, ok := f.vocab.PriceID(sym); ok {
			ids[sym] = id
		}
	}
	return ids
}

func (f *Filter) keep(kl model.KeyLevel, ids map[string]string, quotes map[string]float64) bool {
	id, ok := ids[strings.ToUpper(strings.TrimSpace(kl.Asset))]
	if !ok {
		return true
	}
	spot, ok := quotes[id]
	if !ok || spot <= 0 {
		return true
	}
	tok, ok := numeric.ParseOne(kl.Level)
	if !ok || tok.Percent {
		return true
	}
	return Plausible(tok.Value, spot)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
