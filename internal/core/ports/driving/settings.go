package driving

import "github.com/custodia-labs/qa-extract/internal/core/domain"

// SettingsService resolves and persists application settings.
type SettingsService interface {
	// Get resolves settings from defaults, the config file and the environment,
	// in that order of precedence (environment wins).
	Get() (*domain.Settings, error)

	// Save persists settings to the config file.
	// Empty API keys are not written.
	Save(settings *domain.Settings) error

	// SetGenerationBackend configures the generation model.
	SetGenerationBackend(backend domain.LLMBackend, model, apiKey string) error

	// SetJudgeBackend configures the judge model.
	SetJudgeBackend(backend domain.LLMBackend, model, apiKey string) error

	// Validate checks the resolved settings can drive a run.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
