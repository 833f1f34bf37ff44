package domain

import "time"

const unknownDescription = "Unknown"

// LLMBackend identifies a text-generation backend.
type LLMBackend string

// Available backends.
const (
	// LLMBackendAnthropic is the Anthropic Messages API.
	LLMBackendAnthropic LLMBackend = "anthropic"

	// LLMBackendLocal is any OpenAI-compatible endpoint (vLLM, llama.cpp, OpenAI).
	LLMBackendLocal LLMBackend = "local"

	// LLMBackendOllama is a local Ollama instance.
	LLMBackendOllama LLMBackend = "ollama"
)

// IsValid returns true if the backend is recognised.
func (b LLMBackend) IsValid() bool {
	switch b {
	case LLMBackendAnthropic, LLMBackendLocal, LLMBackendOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this backend needs an API key.
func (b LLMBackend) RequiresAPIKey() bool {
	return b == LLMBackendAnthropic
}

// String returns the string representation.
func (b LLMBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b LLMBackend) Description() string {
	switch b {
	case LLMBackendAnthropic:
		return "Anthropic (cloud)"
	case LLMBackendLocal:
		return "OpenAI-compatible (local or hosted)"
	case LLMBackendOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// AllLLMBackends returns every supported backend.
func AllLLMBackends() []LLMBackend {
	return []LLMBackend{
		LLMBackendAnthropic,
		LLMBackendLocal,
		LLMBackendOllama,
	}
}

// Default model names.
const (
	DefaultGenerationModel = "claude-sonnet-4-20250514"
	DefaultJudgeModel      = "claude-3-5-haiku-20241022"
	DefaultLocalModel      = "Qwen/Qwen2.5-7B-Instruct"
	DefaultOllamaModel     = "llama3.2"
	DefaultLocalURL        = "http://localhost:8000/v1"
	DefaultOllamaURL       = "http://localhost:11434"
)

// ModelSettings configures one ModelGateway instance.
type ModelSettings struct {
	// Backend selects the concrete gateway.
	Backend LLMBackend

	// Model is the model name passed to the backend.
	Model string

	// BaseURL is the API endpoint (local and ollama backends).
	BaseURL string

	// APIKey is the API key (anthropic, optionally local).
	APIKey string

	// RequestsPerSecond throttles calls; 0 disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the backend is set up.
func (m ModelSettings) IsConfigured() bool {
	if !m.Backend.IsValid() {
		return false
	}
	if m.Backend.RequiresAPIKey() && m.APIKey == "" {
		return false
	}
	return true
}

// SourceTransport selects how entity sources reach their tool servers.
type SourceTransport string

// Available transports.
const (
	// SourceTransportHTTP posts JSON to {url}/tools/{name}.
	SourceTransportHTTP SourceTransport = "http"

	// SourceTransportMCP speaks the Model Context Protocol over streamable HTTP.
	SourceTransportMCP SourceTransport = "mcp"
)

// IsValid returns true if the transport is recognised.
func (t SourceTransport) IsValid() bool {
	return t == SourceTransportHTTP || t == SourceTransportMCP
}

// CacheBackend selects the ExtractionCache persistence.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendFile  CacheBackend = "file"
	CacheBackendRedis CacheBackend = "redis"
)

// IsValid returns true if the cache backend is recognised.
func (c CacheBackend) IsValid() bool {
	return c == CacheBackendFile || c == CacheBackendRedis
}

// ExtractionSettings bound what a run fetches and generates.
type ExtractionSettings struct {
	// MaxEntities limits entities per domain; 0 means no limit.
	MaxEntities int

	// MaxQueries limits search queries for domains that fan out.
	MaxQueries int

	// SearchLimit is the page size passed to search tools.
	SearchLimit int

	// MaxTokens bounds each generation call.
	MaxTokens int

	// JudgeMaxTokens bounds each judge call.
	JudgeMaxTokens int

	// MaxDetailItems limits nested detail lists (events, topics).
	MaxDetailItems int

	// MaxRecordsPerEntity caps freeform output; 0 means uncapped.
	MaxRecordsPerEntity int

	// NoJudge disables scoring.
	NoJudge bool

	// Incremental enables the extraction cache.
	Incremental bool

	// EntityIDs restricts a run to these ids when non-empty.
	EntityIDs []string

	// ModelTimeout bounds each model call.
	ModelTimeout time.Duration

	// EntityConcurrency bounds entities in flight per domain.
	EntityConcurrency int

	// DomainConcurrency bounds domains in flight.
	DomainConcurrency int

	// ScrubFields are removed from entity fields before they reach a model.
	ScrubFields []string

	// ScrubEmails redacts e-mail addresses inside string fields.
	ScrubEmails bool
}

// DefaultExtractionSettings returns settings with sensible defaults.
func DefaultExtractionSettings() ExtractionSettings {
	return ExtractionSettings{
		MaxQueries:        10,
		SearchLimit:       20,
		MaxTokens:         2048,
		JudgeMaxTokens:    2048,
		MaxDetailItems:    5,
		Incremental:       true,
		ModelTimeout:      120 * time.Second,
		EntityConcurrency: 1,
		DomainConcurrency: 5,
	}
}

// Settings holds everything resolved at process start.
type Settings struct {
	Generation ModelSettings
	Judge      ModelSettings
	Extraction ExtractionSettings

	// ServerURLs maps a domain to its tool server base URL.
	ServerURLs map[string]string

	// Transport selects how sources are reached.
	Transport SourceTransport

	// OutputDir receives JSONL streams and the file cache.
	OutputDir string

	// CacheBackend selects cache persistence; RedisURL is used for CacheBackendRedis.
	CacheBackend CacheBackend
	RedisURL     string

	// ReviewDB is the SQLite review store path.
	ReviewDB string

	// LogFile enables a rotating log file when set.
	LogFile string
}

// DefaultServerURLs returns the default tool server URL per domain.
func DefaultServerURLs() map[string]string {
	return map[string]string{
		DomainComputeResources: "http://localhost:3002",
		DomainSoftware:         "http://localhost:3004",
		DomainAllocations:      "http://localhost:3006",
		DomainNSFAwards:        "http://localhost:3007",
		DomainAffinityGroups:   "http://localhost:3011",
	}
}

// DefaultSettings returns settings with sensible defaults.
// The generation backend is anthropic; the judge uses the cheaper model on
// the same backend.
func DefaultSettings() Settings {
	return Settings{
		Generation: ModelSettings{
			Backend: LLMBackendAnthropic,
			Model:   DefaultGenerationModel,
		},
		Judge: ModelSettings{
			Backend: LLMBackendAnthropic,
			Model:   DefaultJudgeModel,
		},
		Extraction:   DefaultExtractionSettings(),
		ServerURLs:   DefaultServerURLs(),
		Transport:    SourceTransportHTTP,
		OutputDir:    "data/output",
		CacheBackend: CacheBackendFile,
	}
}
