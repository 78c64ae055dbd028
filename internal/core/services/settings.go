package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider      = "llm.provider"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMModel         = "llm.model"
	keyLLMAPIKey        = "llm.api_key"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedModel       = "embedding.model"
	keyEmbedAPIKey      = "embedding.api_key"
	keyKnowledgePath    = "knowledge.path"
	keyKnowledgeTopK    = "knowledge.top_k"
	keyKnowledgeChunk   = "knowledge.chunk_words"
	keySearchEngine     = "search.engine"
	keySearchResults    = "search.num_results"
	keySearchExtract    = "search.num_extract"
	keySearchRate       = "search.requests_per_second"
	keyScrapingDomain   = "scraping.allowed_domain"
	keyScrapingMaxChars = "scraping.max_chars"
	keyHistoryMaxTurns  = "history.max_turns"
	keyHTTPTimeout      = "http.timeout_seconds"
	keyTranscript       = "transcript.enabled"
)

type valueKind int

const (
	kindString valueKind = iota
	kindProvider
	kindEngine
	kindPositiveInt
	kindNonNegativeFloat
	kindBool
)

// settingKeys lists every key in display order.
var settingKeys = []struct {
	key  string
	kind valueKind
}{
	{keyLLMProvider, kindProvider},
	{keyLLMBaseURL, kindString},
	{keyLLMModel, kindString},
	{keyLLMAPIKey, kindString},
	{keyEmbedProvider, kindProvider},
	{keyEmbedBaseURL, kindString},
	{keyEmbedModel, kindString},
	{keyEmbedAPIKey, kindString},
	{keyKnowledgePath, kindString},
	{keyKnowledgeTopK, kindPositiveInt},
	{keyKnowledgeChunk, kindPositiveInt},
	{keySearchEngine, kindEngine},
	{keySearchResults, kindPositiveInt},
	{keySearchExtract, kindPositiveInt},
	{keySearchRate, kindNonNegativeFloat},
	{keyScrapingDomain, kindString},
	{keyScrapingMaxChars, kindPositiveInt},
	{keyHistoryMaxTurns, kindPositiveInt},
	{keyHTTPTimeout, kindPositiveInt},
	{keyTranscript, kindBool},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	probe       driven.ModelProbe
}

// NewSettingsService creates a new settings service.
// The probe may be nil, in which case model checks always pass.
func NewSettingsService(configStore driven.ConfigStore, probe driven.ModelProbe) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		probe:       probe,
	}
}

// Get retrieves current application settings. Missing or invalid values
// fall back to their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:  s.getString(keyLLMBaseURL, defaults.LLM.BaseURL),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:  s.getString(keyEmbedBaseURL, defaults.Embedding.BaseURL),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		Knowledge: domain.KnowledgeSettings{
			Path:       s.getString(keyKnowledgePath, defaults.Knowledge.Path),
			TopK:       s.getInt(keyKnowledgeTopK, defaults.Knowledge.TopK),
			ChunkWords: s.getInt(keyKnowledgeChunk, defaults.Knowledge.ChunkWords),
		},
		Search: domain.SearchSettings{
			Engine:            s.getEngine(defaults.Search.Engine),
			NumResults:        s.getInt(keySearchResults, defaults.Search.NumResults),
			NumExtract:        s.getInt(keySearchExtract, defaults.Search.NumExtract),
			RequestsPerSecond: s.getFloat(keySearchRate, defaults.Search.RequestsPerSecond),
		},
		Scraping: domain.ScrapingSettings{
			AllowedDomain: s.getString(keyScrapingDomain, defaults.Scraping.AllowedDomain),
			MaxChars:      s.getInt(keyScrapingMaxChars, defaults.Scraping.MaxChars),
		},
		MaxTurns:          s.getInt(keyHistoryMaxTurns, defaults.MaxTurns),
		HTTPTimeout:       time.Duration(s.getInt(keyHTTPTimeout, int(defaults.HTTPTimeout/time.Second))) * time.Second,
		TranscriptEnabled: s.getBool(keyTranscript, defaults.TranscriptEnabled),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMModel, settings.LLM.Model},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedModel, settings.Embedding.Model},
		{keyKnowledgePath, settings.Knowledge.Path},
		{keyKnowledgeTopK, settings.Knowledge.TopK},
		{keyKnowledgeChunk, settings.Knowledge.ChunkWords},
		{keySearchEngine, settings.Search.Engine},
		{keySearchResults, settings.Search.NumResults},
		{keySearchExtract, settings.Search.NumExtract},
		{keySearchRate, settings.Search.RequestsPerSecond},
		{keyScrapingDomain, settings.Scraping.AllowedDomain},
		{keyScrapingMaxChars, settings.Scraping.MaxChars},
		{keyHistoryMaxTurns, settings.MaxTurns},
		{keyHTTPTimeout, int(settings.HTTPTimeout / time.Second)},
		{keyTranscript, settings.TranscriptEnabled},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when set so that keys supplied through the
	// environment never land in the config file.
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	return nil
}

// Keys returns every supported config key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// Set parses value according to the key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	for _, k := range settingKeys {
		if k.key != key {
			continue
		}
		parsed, err := parseSetting(k.kind, strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := s.configStore.Set(key, parsed); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
}

func parseSetting(kind valueKind, value string) (any, error) {
	switch kind {
	case kindProvider:
		p := domain.AIProvider(strings.ToLower(value))
		if !p.IsValid() {
			return nil, fmt.Errorf("invalid provider %q: %w", value, domain.ErrInvalidInput)
		}
		return p.String(), nil
	case kindEngine:
		e := strings.ToLower(value)
		if !domain.IsKnownSearchEngine(e) {
			return nil, fmt.Errorf("unknown search engine %q: %w", value, domain.ErrInvalidInput)
		}
		return e, nil
	case kindPositiveInt:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("want a positive integer, got %q: %w", value, domain.ErrInvalidInput)
		}
		return n, nil
	case kindNonNegativeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("want a non-negative number, got %q: %w", value, domain.ErrInvalidInput)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("want true or false, got %q: %w", value, domain.ErrInvalidInput)
		}
		return b, nil
	default:
		return value, nil
	}
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("llm provider %q is not configured: %w", settings.LLM.Provider, domain.ErrInvalidInput)
	}
	if settings.Embedding.Provider != "" && !settings.Embedding.Provider.SupportsEmbeddings() {
		return fmt.Errorf("provider %s does not support embeddings: %w", settings.Embedding.Provider, domain.ErrInvalidInput)
	}
	if settings.Scraping.AllowedDomain == "" {
		return fmt.Errorf("scraping.allowed_domain must be set: %w", domain.ErrInvalidInput)
	}
	if settings.Search.NumExtract > settings.Search.NumResults {
		return fmt.Errorf("search.num_extract (%d) exceeds search.num_results (%d): %w",
			settings.Search.NumExtract, settings.Search.NumResults, domain.ErrInvalidInput)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig checks that the configured embedding model answers.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeEmbedding(context.Background(), settings.Embedding)
}

// ValidateLLMConfig checks that the configured chat model answers.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeLLM(context.Background(), settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	val := s.configStore.GetFloat(key)
	if val < 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getEngine(defaultVal string) string {
	val := strings.ToLower(s.configStore.GetString(keySearchEngine))
	if !domain.IsKnownSearchEngine(val) {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
