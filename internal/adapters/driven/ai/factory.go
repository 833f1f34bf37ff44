// Package ai provides factory functions for creating model gateways.
package ai

import (
	"fmt"

	anthropicllm "github.com/custodia-labs/qa-extract/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/qa-extract/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/qa-extract/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/qa-extract/internal/adapters/driven/llm/ratelimit"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Gateways holds the generation and judge gateways for a run.
type Gateways struct {
	Generation driven.ModelGateway
	Judge      driven.ModelGateway // nil when judging is disabled
}

// Close releases all gateways.
func (g *Gateways) Close() {
	if g.Generation != nil {
		g.Generation.Close()
	}
	if g.Judge != nil {
		g.Judge.Close()
	}
}

// CreateGateways builds both gateways from settings.
// The judge gateway is skipped when noJudge is set.
func CreateGateways(generation, judge domain.ModelSettings, noJudge bool) (*Gateways, error) {
	gen, err := CreateModelGateway(generation)
	if err != nil {
		return nil, fmt.Errorf("generation backend: %w", err)
	}
	result := &Gateways{Generation: gen}
	if noJudge {
		return result, nil
	}

	j, err := CreateModelGateway(judge)
	if err != nil {
		result.Close()
		return nil, fmt.Errorf("judge backend: %w", err)
	}
	result.Judge = j
	return result, nil
}

// CreateModelGateway creates the gateway for a backend, throttled when
// RequestsPerSecond is set.
func CreateModelGateway(settings domain.ModelSettings) (driven.ModelGateway, error) {
	var (
		gw  driven.ModelGateway
		err error
	)

	switch settings.Backend {
	case domain.LLMBackendAnthropic:
		gw, err = anthropicllm.NewGateway(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.LLMBackendLocal:
		gw = openaillm.NewGateway(openaillm.Config{
			BaseURL: settings.BaseURL,
			APIKey:  settings.APIKey,
			Model:   settings.Model,
		})
	case domain.LLMBackendOllama:
		gw = ollamallm.NewGateway(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, settings.Backend)
	}
	if err != nil {
		return nil, err
	}

	return ratelimit.Wrap(gw, ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond}), nil
}
