// Package cli provides the parley command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/parley/internal/core/ports/driving"
	"github.com/custodia-labs/parley/internal/logger"
)

var (
	// version is set by SetVersion from build flags.
	version = "dev"

	verbose bool

	orchestrator      driving.Orchestrator
	knowledgeService  driving.KnowledgeService
	settingsService   driving.SettingsService
	transcriptService driving.TranscriptService
)

// Services groups the driving ports the commands use. Any may be nil;
// commands that need a missing service report it as not configured.
type Services struct {
	Orchestrator driving.Orchestrator
	Knowledge    driving.KnowledgeService
	Settings     driving.SettingsService
	Transcripts  driving.TranscriptService
}

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Conversational assistant over your documents and the web",
	Long: `parley answers questions by routing each one to the right tool:
your local knowledge base, a web search, a page extraction on an allowed
site, or the language model itself. It remembers the last few turns of
the conversation for follow-up questions.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the driving ports used by the commands.
func SetServices(s Services) {
	orchestrator = s.Orchestrator
	knowledgeService = s.Knowledge
	settingsService = s.Settings
	transcriptService = s.Transcripts
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
