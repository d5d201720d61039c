package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		OpenAI: map[string]ModelRate{
			"mini":    {Input: 0.15, Output: 0.60},
			"mini-xl": {Input: 1.00, Output: 2.00},
		},
		Anthropic: map[string]ModelRate{
			"haiku": {Input: 0.80, Output: 4.00},
		},
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name     string
		provider string
		model    string
		input    int64
		output   int64
		want     float64
	}{
		{
			name:     "openai exact",
			provider: ProviderOpenAI, model: "mini",
			input: 1000000, output: 100000,
			want: 0.15 + 0.06,
		},
		{
			name:     "dated model uses longest prefix",
			provider: ProviderOpenAI, model: "mini-xl-2025-01-01",
			input: 1000000, output: 1000000,
			want: 1.00 + 2.00,
		},
		{
			name:     "anthropic",
			provider: ProviderAnthropic, model: "haiku",
			input: 500000, output: 100000,
			want: 0.40 + 0.40,
		},
		{
			name:     "unknown model returns 0",
			provider: ProviderOpenAI, model: "unknown",
			input: 1000000, output: 1000000,
			want: 0,
		},
		{
			name:     "unknown provider returns 0",
			provider: "other", model: "mini",
			input: 1000000, output: 1000000,
			want: 0,
		},
		{
			name:     "zero tokens returns 0",
			provider: ProviderAnthropic, model: "haiku",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Tokens(tt.provider, tt.model, tt.input, tt.output)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestTracker_Budget(t *testing.T) {
	t.Parallel()
	tr := NewTracker(NewCalculator(testRates()), 1.0)

	assert.False(t, tr.Exceeded())
	tr.Record(ProviderOpenAI, "mini-xl", 500000, 0) // 0.50
	assert.False(t, tr.Exceeded())
	tr.Record(ProviderOpenAI, "mini-xl", 500000, 0) // 1.00
	assert.True(t, tr.Exceeded())

	u := tr.Snapshot()
	assert.Equal(t, 2, u.Calls)
	assert.Equal(t, int64(1000000), u.InputTokens)
	assert.InDelta(t, 1.0, u.CostUSD, 0.0001)
}

func TestTracker_Unlimited(t *testing.T) {
	t.Parallel()
	tr := NewTracker(NewCalculator(testRates()), 0)
	tr.Record(ProviderAnthropic, "haiku", 100000000, 100000000)
	assert.False(t, tr.Exceeded())
	assert.Greater(t, tr.Total(), 0.0)
}

func TestTracker_Concurrent(t *testing.T) {
	t.Parallel()
	tr := NewTracker(NewCalculator(testRates()), 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(ProviderAnthropic, "haiku", 1000, 1000)
		}()
	}
	wg.Wait()

	u := tr.Snapshot()
	assert.Equal(t, 50, u.Calls)
	assert.Equal(t, int64(50000), u.OutputTokens)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()

	assert.Contains(t, rates.OpenAI, "gpt-4o-mini")
	assert.Contains(t, rates.Anthropic, "claude-haiku-4-5-20251001")
	calc := NewCalculator(rates)
	assert.InDelta(t, 0.15, calc.Tokens(ProviderOpenAI, "gpt-4o-mini-2024-07-18", 1000000, 0), 0.0001)
}
