package cost

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Provider names match the summarizer names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	OpenAI    map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens computes the cost of one generation. Unknown providers and models
// cost 0. A dated model id ("gpt-4o-mini-2024-07-18") falls back to the
// longest configured prefix.
func (c *Calculator) Tokens(provider, model string, input, output int64) float64 {
	rate, ok := c.rate(provider, model)
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

func (c *Calculator) rate(provider, model string) (ModelRate, bool) {
	var table map[string]ModelRate
	switch provider {
	case ProviderOpenAI:
		table = c.rates.OpenAI
	case ProviderAnthropic:
		table = c.rates.Anthropic
	}
	if r, ok := table[model]; ok {
		return r, true
	}
	best := ""
	for name := range table {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelRate{}, false
	}
	return table[best], true
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		OpenAI: map[string]ModelRate{
			"gpt-4o-mini":  {Input: 0.15, Output: 0.60},
			"gpt-4o":       {Input: 2.50, Output: 10.00},
			"gpt-4.1-mini": {Input: 0.40, Output: 1.60},
			"gpt-4.1":      {Input: 2.00, Output: 8.00},
		},
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
	}
}

// Tracker accumulates spend for one run against an optional budget. It is
// safe for concurrent use.
type Tracker struct {
	calc   *Calculator
	budget float64

	mu     sync.Mutex
	total  float64
	calls  int
	input  int64
	output int64
}

// NewTracker creates a Tracker. budget <= 0 means unlimited.
func NewTracker(calc *Calculator, budget float64) *Tracker {
	return &Tracker{calc: calc, budget: budget}
}

// Record adds one generation's usage and logs its attributed cost.
func (t *Tracker) Record(provider, model string, input, output int64) {
	c := t.calc.Tokens(provider, model, input, output)

	t.mu.Lock()
	t.total += c
	t.calls++
	t.input += input
	t.output += output
	total := t.total
	t.mu.Unlock()

	zap.L().Info("cost attribution",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int64("input_tokens", input),
		zap.Int64("output_tokens", output),
		zap.Float64("estimated_cost_usd", c),
		zap.Float64("run_cost_usd", total),
	)
}

// Total returns the spend so far.
func (t *Tracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Exceeded reports whether the budget has been reached.
func (t *Tracker) Exceeded() bool {
	if t.budget <= 0 {
		return false
	}
	return t.Total() >= t.budget
}

// Usage is a snapshot of a tracker.
type Usage struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Snapshot returns the accumulated usage.
func (t *Tracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Usage{Calls: t.calls, InputTokens: t.input, OutputTokens: t.output, CostUSD: t.total}
}
