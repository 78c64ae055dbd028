package driven

// ConfigStore holds settings under dot-notation keys such as "llm.model".
// Typed getters return the zero value for missing or mistyped keys, so
// callers check Get when a zero value is meaningful.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns a string value.
	GetString(key string) string

	// GetInt returns an integer value.
	GetInt(key string) int

	// GetFloat returns a numeric value. Integers are converted.
	GetFloat(key string) float64

	// GetBool returns a boolean value.
	GetBool(key string) bool

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Save persists every value.
	Save() error
}
