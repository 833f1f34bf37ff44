// Package ratelimit provides a ModelGateway decorator that throttles calls
// with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure Gateway implements the interface.
var _ driven.ModelGateway = (*Gateway)(nil)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size (default: ceil of the rate, at least 1).
	BurstSize int
}

// Gateway waits for a token before delegating to the wrapped gateway.
// It is safe for concurrent use; every caller shares one bucket.
type Gateway struct {
	next    driven.ModelGateway
	limiter *rate.Limiter
}

// Wrap throttles next. A non-positive rate returns next unchanged.
func Wrap(next driven.ModelGateway, cfg Config) driven.ModelGateway {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}
	return New(next, cfg)
}

// New creates a throttled gateway.
func New(next driven.ModelGateway, cfg Config) *Gateway {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(cfg.RequestsPerSecond)))
	}
	return &Gateway{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// Generate blocks until the bucket allows a call, then delegates.
func (g *Gateway) Generate(ctx context.Context, system, user string, maxTokens int) (driven.GeneratedText, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return driven.GeneratedText{}, fmt.Errorf("rate limit wait: %w", err)
	}
	return g.next.Generate(ctx, system, user, maxTokens)
}

// ModelName returns the wrapped gateway's model name.
func (g *Gateway) ModelName() string {
	return g.next.ModelName()
}

// Close closes the wrapped gateway.
func (g *Gateway) Close() error {
	return g.next.Close()
}
