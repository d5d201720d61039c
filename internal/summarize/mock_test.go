package summarize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recap-cli/internal/grounding"
	"github.com/sells-group/recap-cli/internal/textnorm"
	"github.com/sells-group/recap-cli/internal/vocab"
	"github.com/sells-group/recap-cli/pkg/anthropic"
	"github.com/sells-group/recap-cli/pkg/openai"
)

// --- Generator Mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, system, user string) (Generation, error) {
	args := m.Called(ctx, system, user)
	return args.Get(0).(Generation), args.Error(1)
}

// --- OpenAI Mock ---

type mockOpenAIClient struct {
	mock.Mock
}

func (m *mockOpenAIClient) Complete(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.ChatResponse), args.Error(1)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Usage spy ---

type usageSpy struct {
	provider string
	model    string
	input    int64
	output   int64
	calls    int
}

func (u *usageSpy) Record(provider, model string, in, out int64) {
	u.provider, u.model, u.input, u.output = provider, model, in, out
	u.calls++
}

type deps struct {
	vocab    *vocab.Vocabulary
	norm     *textnorm.Normalizer
	grounder *grounding.Filter
}

func testDeps(t *testing.T) deps {
	t.Helper()
	v, err := vocab.Default()
	require.NoError(t, err)
	return deps{vocab: v, norm: textnorm.New(v), grounder: grounding.New()}
}
