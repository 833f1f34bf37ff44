// Package openai provides a ModelGateway for any OpenAI-compatible chat
// completions endpoint (vLLM, llama.cpp server, OpenAI itself).
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure Gateway implements the interface.
var _ driven.ModelGateway = (*Gateway)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8000/v1"
	DefaultModel   = "Qwen/Qwen2.5-7B-Instruct"
	DefaultTimeout = 120 * time.Second

	// placeholderKey satisfies servers that require a bearer token but ignore it.
	placeholderKey = "not-needed"
)

// Config holds configuration for the OpenAI-compatible gateway.
type Config struct {
	// BaseURL is the API base URL, including the /v1 suffix.
	BaseURL string

	// APIKey is optional for local servers.
	APIKey string

	// Model is the model to use.
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Gateway generates text through the chat completions API.
type Gateway struct {
	client *goopenai.Client
	model  string
}

// NewGateway creates a new OpenAI-compatible gateway.
func NewGateway(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = placeholderKey
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Gateway{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Generate sends one system+user exchange.
func (g *Gateway) Generate(ctx context.Context, system, user string, maxTokens int) (driven.GeneratedText, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: user,
	})

	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:     g.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return driven.GeneratedText{}, fmt.Errorf("openai error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return driven.GeneratedText{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return driven.GeneratedText{}, errors.New("openai: no choices returned")
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return driven.GeneratedText{
		Text:         resp.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// ModelName returns the name of the model being used.
func (g *Gateway) ModelName() string {
	return g.model
}

// Close releases resources.
func (g *Gateway) Close() error {
	return nil
}
