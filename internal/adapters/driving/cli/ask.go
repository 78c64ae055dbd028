package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askAttachments []string
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Long: `Ask one question and print the answer.

The question is routed to the knowledge base, a web search, a page
extraction or the language model. Attached files are read and provided
with the question, then added to the knowledge base.`,
	Example: `  parley ask "what does my lease say about pets?"
  parley ask --attach report.pdf "summarise this report"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVarP(&askAttachments, "attach", "a", nil, "file to provide with the question (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if orchestrator == nil {
		return errors.New("orchestrator not configured")
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return errors.New("question is empty")
	}

	session := orchestrator.NewSession()
	defer session.Close()

	answer := orchestrator.Handle(cmd.Context(), session, query, askAttachments)

	if askJSON {
		return writeJSON(cmd.OutOrStdout(), answer)
	}
	printAnswer(cmd.OutOrStdout(), answer)
	return nil
}
