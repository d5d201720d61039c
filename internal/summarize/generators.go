package summarize

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recap-cli/pkg/anthropic"
	"github.com/sells-group/recap-cli/pkg/openai"
)

// Generator is a text-generation service: one system instruction plus one
// user prompt in, one JSON payload out.
type Generator interface {
	Generate(ctx context.Context, system, user string) (Generation, error)
}

// Generation is the raw model output and its token usage.
type Generation struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// GenerationSettings are the request knobs shared by both providers.
type GenerationSettings struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// OpenAIGenerator adapts pkg/openai to Generator using the JSON-object
// response format.
type OpenAIGenerator struct {
	client   openai.Client
	settings GenerationSettings
}

// NewOpenAIGenerator wraps an OpenAI client.
func NewOpenAIGenerator(c openai.Client, s GenerationSettings) *OpenAIGenerator {
	return &OpenAIGenerator{client: c, settings: s}
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (Generation, error) {
	temp := g.settings.Temperature
	resp, err := g.client.Complete(ctx, openai.ChatRequest{
		Model:       g.settings.Model,
		System:      system,
		User:        user,
		MaxTokens:   g.settings.MaxTokens,
		Temperature: &temp,
		JSON:        true,
	})
	if err != nil {
		return Generation{}, eris.Wrap(err, "summarize: openai generate")
	}
	model := resp.Model
	if model == "" {
		model = g.settings.Model
	}
	return Generation{
		Text:         resp.Content,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// AnthropicGenerator adapts pkg/anthropic to Generator.
type AnthropicGenerator struct {
	client   anthropic.Client
	settings GenerationSettings
}

// NewAnthropicGenerator wraps an Anthropic client.
func NewAnthropicGenerator(c anthropic.Client, s GenerationSettings) *AnthropicGenerator {
	return &AnthropicGenerator{client: c, settings: s}
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, system, user string) (Generation, error) {
	temp := g.settings.Temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.settings.Model,
		MaxTokens:   g.settings.MaxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return Generation{}, eris.Wrap(err, "summarize: anthropic generate")
	}
	model := resp.Model
	if model == "" {
		model = g.settings.Model
	}
	return Generation{
		Text:         resp.Text(),
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
