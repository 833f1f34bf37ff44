package driven

import "context"

// ModelGateway is the uniform contract over a text-generation backend.
// The same interface serves generation and judging; which backend and model
// sit behind it is decided by configuration.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - Any OpenAI-compatible endpoint (vLLM, llama.cpp server, OpenAI)
//   - Ollama (local models)
//
// Timeouts, rate limits and malformed responses surface as errors. Callers
// never retry; any retry policy belongs to the implementation.
type ModelGateway interface {
	// Generate produces text from a system and user prompt.
	Generate(ctx context.Context, system, user string, maxTokens int) (GeneratedText, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// GeneratedText is a successful model response.
type GeneratedText struct {
	// Text is the raw response text.
	Text string

	// Model is the model that produced the text, as reported by the backend.
	Model string

	// InputTokens and OutputTokens are usage counters when the backend reports them.
	InputTokens  int
	OutputTokens int
}
