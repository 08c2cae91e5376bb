package generate

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI API pricing per million tokens. Custom base URLs are assumed
// to be local or self-hosted endpoints and tracked at zero cost.
const (
	openaiInputPerM  = 2.5
	openaiOutputPerM = 10.0
)

// OpenAIClient generates completions through an OpenAI-compatible
// chat completions endpoint. A custom base URL points it at local
// servers such as LM Studio or vLLM.
type OpenAIClient struct {
	client  *openai.Client
	tracker *TokenTracker
}

// NewOpenAIClient creates a client for the given key and optional
// base URL. An empty base URL targets the OpenAI API.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	inputPerM, outputPerM := openaiInputPerM, openaiOutputPerM
	if baseURL != "" {
		cfg.BaseURL = baseURL
		inputPerM, outputPerM = 0, 0
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		tracker: NewTokenTracker(inputPerM, outputPerM),
	}
}

// Complete sends a single-turn chat completion and returns the first
// choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Generation, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            messages,
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxTokens,
	})
	if err != nil {
		return Generation{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Generation{}, fmt.Errorf("openai chat completion: no choices for model %s", req.Model)
	}

	c.tracker.Add(int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))

	return Generation{Artifact: resp.Choices[0].Message.Content, Model: req.Model}, nil
}

// Tracker returns the client's token usage tracker.
func (c *OpenAIClient) Tracker() *TokenTracker {
	return c.tracker
}
