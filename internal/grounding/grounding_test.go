package grounding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/internal/numeric"
)

func okSummary(bullets ...string) model.Summary {
	return model.Summary{VideoID: "v1", Status: model.SummaryStatusOK, Bullets: bullets}
}

func TestGround_AllOrNothing(t *testing.T) {
	f := New()
	transcript := "BTC tested 108000 support"

	got := f.Ground(okSummary("BTC held 108000 and may reach 120000"), transcript)

	assert.Equal(t, "BTC held [redacted] and may reach [redacted]", got.Bullets[0])
	assert.Equal(t, ScrubNote, got.Note)
	assert.Empty(t, numeric.Parse(got.Bullets[0]))
}

func TestGround_CleanPassThrough(t *testing.T) {
	f := New()
	in := okSummary("SOL broke 150")

	got := f.Ground(in, "SOL broke above 150 with volume confirmation")

	assert.Equal(t, in, got)
	assert.Empty(t, got.Note)
}

func TestGround_ScrubsEveryField(t *testing.T) {
	f := New(WithMarker("[n/a]"))
	in := model.Summary{
		VideoID: "v1",
		Status:  model.SummaryStatusOK,
		Bullets: []string{"ETH at 4200"},
		Long: model.LongForm{
			Context:        "ETH ranged between 4000 and 4200",
			KeyLevels:      []model.KeyLevel{{Asset: "ETH", Level: "4000", Role: model.RoleSupport, Notes: "held 3 times"}},
			Setups:         []model.TradeSetup{{Name: "Breakout", Trigger: "close over 4200", Invalidation: "below 3900", Targets: []string{"4500"}}},
			Takeaways:      []string{"4200 is the line"},
			Catalysts:      []string{"CPI at 8:30"},
			NotableDetails: []string{"funding at 0.01%"},
		},
	}

	got := f.Ground(in, "ETH between 4000 and 4200")

	require.Equal(t, ScrubNote, got.Note)
	for _, field := range got.TextFields() {
		assert.Empty(t, numeric.Parse(*field), "field %q still has numbers", *field)
	}
	assert.Equal(t, "[n/a]", got.Long.KeyLevels[0].Level)
	assert.Equal(t, "close over [n/a]", got.Long.Setups[0].Trigger)
	assert.Equal(t, "CPI at [n/a]:[n/a]", got.Long.Catalysts[0])

	// input is untouched
	assert.Equal(t, "4000", in.Long.KeyLevels[0].Level)
	assert.Empty(t, in.Note)
}

func TestGround_FormattingAndTolerance(t *testing.T) {
	transcript := "bitcoin is sitting at 108,000 and ETH at $4,200, up 3.5%"

	tests := []struct {
		name   string
		bullet string
		tol    float64
		scrub  bool
	}{
		{"thousands separators", "BTC at $108k", 0.01, false},
		{"within one percent", "ETH near 4,230", 0.01, false},
		{"outside one percent", "ETH near 4,300", 0.01, true},
		{"wider tolerance", "ETH near 4,300", 0.05, false},
		{"percent mismatch", "up 3.5 points", 0.01, true},
		{"percent match", "up 3.5%", 0.01, false},
		{"exact reformatted", "BTC at $108k", 0, false},
		{"exact rejects near value", "ETH near 4,230", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(WithTolerance(tt.tol))
			got := f.Ground(okSummary(tt.bullet), transcript)
			assert.Equal(t, tt.scrub, got.Note != "")
		})
	}
}

func TestGround_TerminalPassesThrough(t *testing.T) {
	f := New()
	in := model.SkippedSummary("v1")
	in.Bullets = append(in.Bullets, "999999")

	assert.Equal(t, in, f.Ground(in, ""))
}

func TestGround_Idempotent(t *testing.T) {
	f := New()
	once := f.Ground(okSummary("BTC 120000"), "BTC 108000")
	twice := f.Ground(once, "BTC 108000")
	assert.Equal(t, once, twice)
}

func TestUnverified(t *testing.T) {
	f := New()
	s := okSummary("BTC 108000 to 120000", "ETH 4200")
	assert.Equal(t, []string{"120000", "4200"}, f.Unverified(&s, "BTC 108000"))
}
