package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyGenBackend = "generation.backend"
	keyGenModel   = "generation.model"
	keyGenBaseURL = "generation.base_url"
	keyGenAPIKey  = "generation.api_key"
	keyGenRPS     = "generation.requests_per_second"

	keyJudgeBackend = "judge.backend"
	keyJudgeModel   = "judge.model"
	keyJudgeBaseURL = "judge.base_url"
	keyJudgeAPIKey  = "judge.api_key"
	keyJudgeRPS     = "judge.requests_per_second"

	keyMaxEntities       = "extraction.max_entities"
	keyMaxQueries        = "extraction.max_queries"
	keySearchLimit       = "extraction.search_limit"
	keyMaxTokens         = "extraction.max_tokens"
	keyJudgeMaxTokens    = "extraction.judge_max_tokens"
	keyMaxDetailItems    = "extraction.max_detail_items"
	keyMaxRecords        = "extraction.max_records_per_entity"
	keyNoJudge           = "extraction.no_judge"
	keyIncremental       = "extraction.incremental"
	keyEntityIDs         = "extraction.entity_ids"
	keyModelTimeout      = "extraction.model_timeout"
	keyEntityConcurrency = "extraction.entity_concurrency"
	keyDomainConcurrency = "extraction.domain_concurrency"
	keyScrubFields       = "extraction.scrub_fields"
	keyScrubEmails       = "extraction.scrub_emails"

	keyServersPrefix = "servers."
	keyTransport     = "sources.transport"
	keyOutputDir     = "output.dir"
	keyCacheBackend  = "cache.backend"
	keyRedisURL      = "cache.redis_url"
	keyReviewDB      = "review.db"
	keyLogFile       = "log.file"
)

// serverEnv maps each domain to the environment variable overriding its URL.
var serverEnv = map[string]string{
	domain.DomainComputeResources: "MCP_COMPUTE_RESOURCES_URL",
	domain.DomainSoftware:         "MCP_SOFTWARE_DISCOVERY_URL",
	domain.DomainAllocations:      "MCP_ALLOCATIONS_URL",
	domain.DomainNSFAwards:        "MCP_NSF_AWARDS_URL",
	domain.DomainAffinityGroups:   "MCP_AFFINITY_GROUPS_URL",
}

// LookupEnv reads an environment variable.
type LookupEnv func(key string) (string, bool)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   LookupEnv
}

// NewSettingsService creates a new settings service.
// A nil lookup reads the process environment.
func NewSettingsService(configStore driven.ConfigStore, lookup LookupEnv) *SettingsService {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   lookup,
	}
}

// Get resolves current settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Generation: s.resolveModel(
			modelKeys{keyGenBackend, keyGenModel, keyGenBaseURL, keyGenAPIKey, keyGenRPS},
			"LLM_BACKEND", "QA_EXTRACTION_MODEL",
			domain.ModelSettings{Backend: defaults.Generation.Backend},
			domain.DefaultGenerationModel,
		),
		Extraction:   s.resolveExtraction(defaults.Extraction),
		ServerURLs:   s.resolveServers(defaults.ServerURLs),
		Transport:    domain.SourceTransport(s.str(keyTransport, "MCP_TRANSPORT", string(defaults.Transport))),
		OutputDir:    s.str(keyOutputDir, "QA_OUTPUT_DIR", defaults.OutputDir),
		CacheBackend: domain.CacheBackend(s.str(keyCacheBackend, "QA_CACHE_BACKEND", string(defaults.CacheBackend))),
		RedisURL:     s.str(keyRedisURL, "REDIS_URL", ""),
		ReviewDB:     s.str(keyReviewDB, "QA_REVIEW_DB", ""),
		LogFile:      s.str(keyLogFile, "QA_LOG_FILE", ""),
	}

	// The judge follows the generation backend unless configured on its own.
	judgeDefault := domain.ModelSettings{
		Backend: settings.Generation.Backend,
		BaseURL: settings.Generation.BaseURL,
		APIKey:  settings.Generation.APIKey,
	}
	judgeModel := domain.DefaultJudgeModel
	if settings.Generation.Backend != domain.LLMBackendAnthropic {
		judgeModel = settings.Generation.Model
	}
	settings.Judge = s.resolveModel(
		modelKeys{keyJudgeBackend, keyJudgeModel, keyJudgeBaseURL, keyJudgeAPIKey, keyJudgeRPS},
		"QA_JUDGE_BACKEND", "QA_JUDGE_MODEL",
		judgeDefault,
		judgeModel,
	)

	return settings, nil
}

type modelKeys struct {
	backend, model, baseURL, apiKey, rps string
}

// resolveModel layers config and environment over base.
// anthropicModel is the model used when the backend is anthropic and nothing is set.
func (s *SettingsService) resolveModel(keys modelKeys, backendEnv, modelEnv string,
	base domain.ModelSettings, anthropicModel string) domain.ModelSettings {
	m := base

	backend := domain.LLMBackend(s.str(keys.backend, backendEnv, string(base.Backend)))
	if !backend.IsValid() {
		backend = base.Backend
	}
	if backend != base.Backend {
		// Credentials and endpoints do not carry across backends.
		m.BaseURL = ""
		m.APIKey = ""
	}
	m.Backend = backend

	var defaultModel, defaultURL, keyEnv, urlEnv string
	switch backend {
	case domain.LLMBackendAnthropic:
		defaultModel = anthropicModel
		keyEnv = "ANTHROPIC_API_KEY"
	case domain.LLMBackendLocal:
		defaultModel = domain.DefaultLocalModel
		defaultURL = domain.DefaultLocalURL
		keyEnv = "LOCAL_LLM_API_KEY"
		urlEnv = "LOCAL_LLM_URL"
	case domain.LLMBackendOllama:
		defaultModel = domain.DefaultOllamaModel
		defaultURL = domain.DefaultOllamaURL
		urlEnv = "OLLAMA_URL"
	}

	m.Model = s.str(keys.model, modelEnv, defaultModel)
	if m.Model == "" {
		m.Model = defaultModel
	}
	if m.BaseURL == "" {
		m.BaseURL = defaultURL
	}
	m.BaseURL = s.str(keys.baseURL, urlEnv, m.BaseURL)
	m.APIKey = s.str(keys.apiKey, keyEnv, m.APIKey)
	if v := s.configStore.GetFloat(keys.rps); v > 0 {
		m.RequestsPerSecond = v
	}
	return m
}

func (s *SettingsService) resolveExtraction(defaults domain.ExtractionSettings) domain.ExtractionSettings {
	e := defaults
	e.MaxEntities = s.num(keyMaxEntities, "EXTRACT_MAX_ENTITIES", e.MaxEntities)
	e.MaxQueries = s.num(keyMaxQueries, "EXTRACT_MAX_QUERIES", e.MaxQueries)
	e.SearchLimit = s.num(keySearchLimit, "EXTRACT_SEARCH_LIMIT", e.SearchLimit)
	e.MaxTokens = s.num(keyMaxTokens, "", e.MaxTokens)
	e.JudgeMaxTokens = s.num(keyJudgeMaxTokens, "", e.JudgeMaxTokens)
	e.MaxDetailItems = s.num(keyMaxDetailItems, "", e.MaxDetailItems)
	e.MaxRecordsPerEntity = s.num(keyMaxRecords, "", e.MaxRecordsPerEntity)
	e.EntityConcurrency = s.num(keyEntityConcurrency, "", e.EntityConcurrency)
	e.DomainConcurrency = s.num(keyDomainConcurrency, "", e.DomainConcurrency)
	e.NoJudge = s.flag(keyNoJudge, e.NoJudge)
	e.Incremental = s.flag(keyIncremental, e.Incremental)
	e.ScrubEmails = s.flag(keyScrubEmails, e.ScrubEmails)

	if ids := s.configStore.GetStringSlice(keyEntityIDs); len(ids) > 0 {
		e.EntityIDs = ids
	}
	if fields := s.configStore.GetStringSlice(keyScrubFields); len(fields) > 0 {
		e.ScrubFields = fields
	}
	if d := s.configStore.GetDuration(keyModelTimeout); d > 0 {
		e.ModelTimeout = d
	}
	return e
}

func (s *SettingsService) resolveServers(defaults map[string]string) map[string]string {
	urls := make(map[string]string, len(defaults))
	for d, url := range defaults {
		urls[d] = s.str(keyServersPrefix+d, serverEnv[d], url)
	}
	return urls
}

// str returns the env value, else the config value, else fallback.
func (s *SettingsService) str(key, env, fallback string) string {
	if env != "" {
		if v, ok := s.lookupEnv(env); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return fallback
}

func (s *SettingsService) num(key, env string, fallback int) int {
	if env != "" {
		if v, ok := s.lookupEnv(env); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
				return n
			}
		}
	}
	if _, ok := s.configStore.Get(key); ok {
		if n := s.configStore.GetInt(key); n >= 0 {
			return n
		}
	}
	return fallback
}

func (s *SettingsService) flag(key string, fallback bool) bool {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetBool(key)
	}
	return fallback
}

// Save persists settings in a single write.
func (s *SettingsService) Save(settings *domain.Settings) error {
	if settings == nil {
		return fmt.Errorf("save settings: %w", domain.ErrInvalidInput)
	}

	e := settings.Extraction
	values := map[string]any{
		keyMaxEntities:       e.MaxEntities,
		keyMaxQueries:        e.MaxQueries,
		keySearchLimit:       e.SearchLimit,
		keyMaxTokens:         e.MaxTokens,
		keyJudgeMaxTokens:    e.JudgeMaxTokens,
		keyMaxDetailItems:    e.MaxDetailItems,
		keyMaxRecords:        e.MaxRecordsPerEntity,
		keyNoJudge:           e.NoJudge,
		keyIncremental:       e.Incremental,
		keyModelTimeout:      e.ModelTimeout.String(),
		keyEntityConcurrency: e.EntityConcurrency,
		keyDomainConcurrency: e.DomainConcurrency,
		keyScrubEmails:       e.ScrubEmails,
		keyTransport:         string(settings.Transport),
		keyOutputDir:         settings.OutputDir,
		keyCacheBackend:      string(settings.CacheBackend),
	}
	modelValues(values, modelKeys{keyGenBackend, keyGenModel, keyGenBaseURL, keyGenAPIKey, keyGenRPS}, settings.Generation)
	modelValues(values, modelKeys{keyJudgeBackend, keyJudgeModel, keyJudgeBaseURL, keyJudgeAPIKey, keyJudgeRPS}, settings.Judge)
	if len(e.ScrubFields) > 0 {
		values[keyScrubFields] = e.ScrubFields
	}

	optional := map[string]string{
		keyRedisURL: settings.RedisURL,
		keyReviewDB: settings.ReviewDB,
		keyLogFile:  settings.LogFile,
	}
	for d, url := range settings.ServerURLs {
		optional[keyServersPrefix+d] = url
	}
	for key, value := range optional {
		if value != "" {
			values[key] = value
		}
	}

	if err := s.configStore.SetMany(values); err != nil {
		return fmt.Errorf("save settings to %s: %w", s.configStore.Location(), err)
	}
	return nil
}

// modelValues adds the config entries for one model backend to values.
func modelValues(values map[string]any, keys modelKeys, m domain.ModelSettings) {
	values[keys.backend] = m.Backend.String()
	values[keys.model] = m.Model
	values[keys.baseURL] = m.BaseURL
	if m.APIKey != "" {
		values[keys.apiKey] = m.APIKey
	}
	if m.RequestsPerSecond > 0 {
		values[keys.rps] = m.RequestsPerSecond
	}
}

// SetGenerationBackend configures the generation model.
func (s *SettingsService) SetGenerationBackend(backend domain.LLMBackend, model, apiKey string) error {
	return s.setBackend(modelKeys{keyGenBackend, keyGenModel, keyGenBaseURL, keyGenAPIKey, keyGenRPS},
		backend, model, apiKey)
}

// SetJudgeBackend configures the judge model.
func (s *SettingsService) SetJudgeBackend(backend domain.LLMBackend, model, apiKey string) error {
	return s.setBackend(modelKeys{keyJudgeBackend, keyJudgeModel, keyJudgeBaseURL, keyJudgeAPIKey, keyJudgeRPS},
		backend, model, apiKey)
}

func (s *SettingsService) setBackend(keys modelKeys, backend domain.LLMBackend, model, apiKey string) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownBackend, backend)
	}
	if backend.RequiresAPIKey() && apiKey == "" && s.configStore.GetString(keys.apiKey) == "" {
		return fmt.Errorf("%s requires an API key: %w", backend, domain.ErrInvalidInput)
	}

	values := map[string]any{keys.backend: backend.String()}
	if model != "" {
		values[keys.model] = model
	}
	if apiKey != "" {
		values[keys.apiKey] = apiKey
	}
	if err := s.configStore.SetMany(values); err != nil {
		return fmt.Errorf("save %s backend: %w", backend, err)
	}
	return nil
}

// Validate checks the resolved settings can drive a run.
//
//nolint:gocyclo // Flat list of independent checks.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Generation.IsConfigured() {
		return fmt.Errorf("generation backend %s is not configured: %w",
			settings.Generation.Backend, domain.ErrInvalidInput)
	}
	if !settings.Extraction.NoJudge && !settings.Judge.IsConfigured() {
		return fmt.Errorf("judge backend %s is not configured: %w",
			settings.Judge.Backend, domain.ErrInvalidInput)
	}
	if !settings.Transport.IsValid() {
		return fmt.Errorf("unknown source transport %q: %w", settings.Transport, domain.ErrInvalidInput)
	}
	if !settings.CacheBackend.IsValid() {
		return fmt.Errorf("unknown cache backend %q: %w", settings.CacheBackend, domain.ErrInvalidInput)
	}
	if settings.CacheBackend == domain.CacheBackendRedis && settings.RedisURL == "" {
		return fmt.Errorf("redis cache requires a redis url: %w", domain.ErrInvalidInput)
	}
	if settings.Extraction.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive: %w", domain.ErrInvalidInput)
	}
	for d, url := range settings.ServerURLs {
		if url == "" {
			return fmt.Errorf("no server url for %s: %w", d, domain.ErrInvalidInput)
		}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}
