package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a client. An empty baseURL uses the SDK default.
func NewAnthropicClient(apiKey, baseURL string) (*AnthropicClient, error) {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(apiKey, opts...)}, nil
}

// Chat implements engine.ModelClient.
func (c *AnthropicClient) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error) {
	maxTokens := defaultAnthropicMaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	areq := anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		Messages:  toAnthropicMessages(req.Messages),
		MaxTokens: maxTokens,
	}
	if req.System != "" {
		areq.System = req.System
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		areq.Temperature = &temperature
	}

	resp, err := c.client.CreateMessages(ctx, areq)
	if err != nil {
		return engine.ChatResponse{}, wrapError(err, anthropicStatus(err))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	return engine.ChatResponse{
		Content: text.String(),
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finishReason(string(resp.StopReason)),
	}, nil
}

func toAnthropicMessages(msgs []engine.Message) []anthropic.Message {
	turns := toTurns(msgs)
	out := make([]anthropic.Message, 0, len(turns))
	for _, t := range turns {
		if t.assistant {
			out = append(out, anthropic.NewAssistantTextMessage(t.content))
		} else {
			out = append(out, anthropic.NewUserTextMessage(t.content))
		}
	}
	return out
}

func anthropicStatus(err error) int {
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
