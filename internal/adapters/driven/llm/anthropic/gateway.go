// Package anthropic provides a ModelGateway backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure Gateway implements the interface.
var _ driven.ModelGateway = (*Gateway)(nil)

// Default configuration values.
const (
	DefaultModel          = "claude-sonnet-4-20250514"
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 1 * time.Second
	defaultMaxTokens      = 1024
)

// ErrAPIKeyRequired is returned when no API key is configured.
var ErrAPIKeyRequired = errors.New("anthropic: API key required")

// Config holds configuration for the Anthropic gateway.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string

	// Model is the model to use (default: claude-sonnet-4-20250514).
	Model string

	// MaxRetries bounds retries on rate limits and server errors.
	MaxRetries int

	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Gateway generates text with Claude.
type Gateway struct {
	client         anthropic.Client
	model          anthropic.Model
	maxRetries     int
	initialBackoff time.Duration
}

// NewGateway creates a new Anthropic gateway.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}

	// Retries are handled here so the SDK's own policy is switched off.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Gateway{
		client:         anthropic.NewClient(opts...),
		model:          anthropic.Model(cfg.Model),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}, nil
}

// Generate sends one system+user exchange and returns the concatenated text blocks.
func (g *Gateway) Generate(ctx context.Context, system, user string, maxTokens int) (driven.GeneratedText, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return driven.GeneratedText{}, ctx.Err()
			}
		}

		message, err := g.client.Messages.New(ctx, params)
		if err == nil {
			return toGenerated(message)
		}
		lastErr = err

		if ctx.Err() != nil {
			return driven.GeneratedText{}, ctx.Err()
		}
		if !isRetryable(err) {
			return driven.GeneratedText{}, fmt.Errorf("anthropic: %w", err)
		}
	}

	return driven.GeneratedText{}, fmt.Errorf("anthropic: failed after %d attempts: %w", g.maxRetries+1, lastErr)
}

func toGenerated(message *anthropic.Message) (driven.GeneratedText, error) {
	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return driven.GeneratedText{}, errors.New("anthropic: no text content returned")
	}
	return driven.GeneratedText{
		Text:         text.String(),
		Model:        string(message.Model),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// ModelName returns the name of the model being used.
func (g *Gateway) ModelName() string {
	return string(g.model)
}

// Close releases resources.
func (g *Gateway) Close() error {
	return nil
}
