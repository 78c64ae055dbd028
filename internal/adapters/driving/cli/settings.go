package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/parley/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the language model, the embedding model, the knowledge
base, web search and page extraction.

Settings are stored in ~/.parley/config.toml. Environment variables such as
PARLEY_LLM_API_KEY override the file and may also come from a .env file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY [VALUE]",
	Short: "Set a single setting",
	Long: `Set a single setting by key, for example:

  parley settings set search.engine bing
  parley settings set knowledge.top_k 8

API keys may be omitted from the command line; you will be prompted for them.
Run 'parley settings keys' to list every key.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	RunE:  runSettingsKeys,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the language model",
	Long:  `Interactively choose the chat provider, endpoint, model and API key, then check the model responds.`,
	RunE:  runSettingsLLM,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding model",
	Long:  `Interactively choose the embedding provider, endpoint, model and API key, then check the model responds.`,
	RunE:  runSettingsEmbedding,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	printModelSettings(cmd, "LLM", settings.LLM.Provider, settings.LLM.BaseURL,
		settings.LLM.Model, settings.LLM.APIKey, settings.LLM.IsConfigured())
	printModelSettings(cmd, "Embedding", settings.Embedding.Provider, settings.Embedding.BaseURL,
		settings.Embedding.Model, settings.Embedding.APIKey, settings.Embedding.IsConfigured())

	cmd.Println("[Knowledge Base]")
	cmd.Printf("  Path: %s\n", settings.Knowledge.Path)
	cmd.Printf("  Top K: %d\n", settings.Knowledge.TopK)
	cmd.Printf("  Chunk words: %d\n", settings.Knowledge.ChunkWords)
	cmd.Println()

	cmd.Println("[Web Search]")
	cmd.Printf("  Engine: %s\n", settings.Search.Engine)
	cmd.Printf("  Results per query: %d\n", settings.Search.NumResults)
	cmd.Printf("  Pages read per query: %d\n", settings.Search.NumExtract)
	cmd.Printf("  Requests per second: %g\n", settings.Search.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[Page Extraction]")
	cmd.Printf("  Allowed domain: %s\n", settings.Scraping.AllowedDomain)
	cmd.Printf("  Max characters: %d\n", settings.Scraping.MaxChars)
	cmd.Println()

	cmd.Println("[Conversation]")
	cmd.Printf("  History turns: %d\n", settings.MaxTurns)
	cmd.Printf("  HTTP timeout: %s\n", settings.HTTPTimeout)
	cmd.Printf("  Transcripts: %s\n", enabledString(settings.TranscriptEnabled))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'parley settings llm' or 'parley settings set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printModelSettings(
	cmd *cobra.Command, title string, provider domain.AIProvider, baseURL, model, apiKey string, configured bool,
) {
	cmd.Printf("[%s]\n", title)
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Base URL: %s\n", baseURL)
	cmd.Printf("  Model: %s\n", model)
	if apiKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func enabledString(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case strings.HasSuffix(key, ".api_key"):
		cmd.Printf("Enter value for %s: ", key)
		value = readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()))
		cmd.Println()
	default:
		return fmt.Errorf("missing value for %s", key)
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if strings.HasSuffix(key, ".api_key") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	current, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	choice, err := promptModel(cmd, reader, "LLM", domain.AllLLMProviders(),
		current.LLM.Provider, current.LLM.BaseURL, current.LLM.Model)
	if err != nil {
		return err
	}
	if err := choice.save(settingsService.Set, "llm"); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", choice.provider.Description(), choice.model)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	current, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	choice, err := promptModel(cmd, reader, "Embedding", domain.AllEmbeddingProviders(),
		current.Embedding.Provider, current.Embedding.BaseURL, current.Embedding.Model)
	if err != nil {
		return err
	}
	if err := choice.save(settingsService.Set, "embedding"); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", choice.provider.Description(), choice.model)
	cmd.Println("Note: changing the embedding model requires 'parley kb clear' and re-ingesting.")
	return nil
}

// modelChoice is the result of an interactive provider prompt.
type modelChoice struct {
	provider domain.AIProvider
	baseURL  string
	model    string
	apiKey   string
}

// save writes the choice under prefix ("llm" or "embedding").
func (c modelChoice) save(set func(key, value string) error, prefix string) error {
	values := [][2]string{
		{prefix + ".provider", c.provider.String()},
		{prefix + ".base_url", c.baseURL},
		{prefix + ".model", c.model},
	}
	if c.apiKey != "" {
		values = append(values, [2]string{prefix + ".api_key", c.apiKey})
	}
	for _, kv := range values {
		if err := set(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func promptModel(
	cmd *cobra.Command,
	reader *bufio.Reader,
	title string,
	providers []domain.AIProvider,
	currentProvider domain.AIProvider,
	currentURL, currentModel string,
) (modelChoice, error) {
	defaultIdx := 1
	cmd.Printf("Select %s Provider\n", title)
	for i, p := range providers {
		if p == currentProvider {
			defaultIdx = i + 1
		}
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Printf("\nEnter choice [%d]: ", defaultIdx)
	idx := parseChoice(readLine(reader), len(providers), defaultIdx)
	choice := modelChoice{provider: providers[idx-1]}

	// Keep the current endpoint and model only when the provider is unchanged.
	if choice.provider != currentProvider {
		currentURL, currentModel = "", ""
	}

	cmd.Printf("Enter base URL [%s]: ", currentURL)
	if choice.baseURL = readLine(reader); choice.baseURL == "" {
		choice.baseURL = currentURL
	}

	cmd.Printf("Enter model name [%s]: ", currentModel)
	if choice.model = readLine(reader); choice.model == "" {
		choice.model = currentModel
	}
	if choice.model == "" {
		return modelChoice{}, errors.New("model name is required")
	}

	if choice.provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
	} else {
		cmd.Print("Enter API key (optional): ")
	}
	choice.apiKey = readPassword(cmd.InOrStdin(), reader)
	cmd.Println()
	if choice.apiKey == "" && choice.provider.RequiresAPIKey() {
		return modelChoice{}, errors.New("API key is required for this provider")
	}

	return choice, nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// parseChoice reads a 1-based menu choice, keeping defaultVal for blank
// or out-of-range input.
func parseChoice(input string, maxVal, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back
// to a plain line from reader otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newLineReader(cmd *cobra.Command) *bufio.Reader {
	return bufio.NewReader(cmd.InOrStdin())
}
