package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIClient talks to OpenAI and OpenAI-compatible endpoints.
type OpenAIClient struct {
	client  *openai.Client
	baseURL string
}

// NewOpenAIClient creates a client. An empty baseURL uses api.openai.com.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		baseURL: baseURL,
	}, nil
}

// Chat implements engine.ModelClient.
func (c *OpenAIClient) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error) {
	oreq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.System, req.Messages),
	}
	if req.MaxTokens > 0 {
		oreq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		oreq.Temperature = &temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, oreq)
	if err != nil {
		return engine.ChatResponse{}, wrapError(err, openAIStatus(err))
	}
	if len(resp.Choices) == 0 {
		return engine.ChatResponse{}, wrapError(fmt.Errorf("empty response from OpenAI"), 0)
	}

	choice := resp.Choices[0]
	return engine.ChatResponse{
		Content: choice.Message.Content,
		Usage: engine.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
		FinishReason: finishReason(string(choice.FinishReason)),
	}, nil
}

func toOpenAIMessages(system string, msgs []engine.Message) []openai.ChatCompletionMessage {
	turns := toTurns(msgs)
	out := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.assistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.content})
	}
	return out
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
