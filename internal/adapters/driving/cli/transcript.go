package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var transcriptLimit int

var transcriptCmd = &cobra.Command{
	Use:   "transcript [SESSION_ID]",
	Short: "Show recorded conversations",
	Long: `Without arguments, list recent conversations. With a session id, print
every recorded turn of that conversation with the tool that answered it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTranscript,
}

func init() {
	transcriptCmd.Flags().IntVarP(&transcriptLimit, "limit", "n", 20, "maximum number of sessions to list")
	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	if transcriptService == nil {
		return errors.New("transcript service not configured")
	}

	if len(args) == 0 {
		return listSessions(cmd)
	}

	entries, err := transcriptService.List(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	if len(entries) == 0 {
		cmd.Printf("No turns recorded for session %s.\n", args[0])
		return nil
	}

	for i, e := range entries {
		route := e.Tool.Description()
		if e.FellBack {
			route += ", after fallback"
		}
		cmd.Printf("[%d] %s  %s\n", i+1, e.CreatedAt.Format(time.DateTime), route)
		cmd.Printf("You: %s\n", e.Query)
		cmd.Printf("Assistant: %s\n", e.Answer)
		for _, src := range e.Sources {
			cmd.Printf("  - %s\n", formatSource(src))
		}
		cmd.Println()
	}
	return nil
}

func listSessions(cmd *cobra.Command) error {
	sessions, err := transcriptService.Sessions(cmd.Context(), transcriptLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		cmd.Println("No conversations recorded.")
		return nil
	}

	cmd.Printf("%-36s  %5s  %s\n", "SESSION", "TURNS", "LAST ACTIVE")
	for _, s := range sessions {
		cmd.Printf("%-36s  %5d  %s\n", s.ID, s.Turns, s.LastAt.Format(time.DateTime))
	}
	return nil
}
