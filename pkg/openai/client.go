package openai

import (
	"context"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rotisserie/eris"
)

// Client defines the chat-completion operation used by the summarizer.
type Client interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a single system + user exchange.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	MaxTokens   int64
	Temperature *float64
	// JSON requests the JSON-object response format.
	JSON bool
}

// ChatResponse carries the first choice and token usage.
type ChatResponse struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Option configures the SDK-backed client.
type Option func(*settings)

type settings struct {
	baseURL string
	retries int
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(s *settings) { s.baseURL = u }
}

// WithMaxRetries overrides the SDK's built-in retry count.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.retries = n }
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new OpenAI client backed by openai-go.
func NewClient(apiKey string, opts ...Option) Client {
	s := settings{retries: -1}
	for _, o := range opts {
		o(&s)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	if s.retries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(s.retries))
	}

	return &sdkClient{client: sdk.NewClient(reqOpts...)}
}

func (c *sdkClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, sdk.SystemMessage(req.System))
	}
	msgs = append(msgs, sdk.UserMessage(req.User))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.JSON {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: no choices in response")
	}

	choice := resp.Choices[0]
	return &ChatResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
