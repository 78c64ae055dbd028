package driving

import "github.com/custodia-labs/parley/internal/core/domain"

// SettingsService reads and edits the config file.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	// Set parses value for one dotted key such as "search.engine" and
	// saves it.
	Set(key, value string) error

	// Keys lists every settable key in display order.
	Keys() []string

	// Validate reports the first setting that would stop an answer path.
	Validate() error

	// ValidateEmbeddingConfig and ValidateLLMConfig contact the configured
	// provider and fail if its model cannot be reached.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
