package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parley/internal/adapters/driving/tui"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start a conversation that remembers the last few turns.

In a terminal this opens the interactive chat UI. With --plain, or when
input is piped, questions are read one per line instead.

Line mode commands:
  /attach FILE  provide FILE with the next question
  /exit         end the conversation`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use line mode even in a terminal")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	if orchestrator == nil {
		return errors.New("orchestrator not configured")
	}

	if chatPlain || !isTerminal(cmd.InOrStdin()) {
		return runLineChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	}

	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in chat UI: %v\n%s", r, debug.Stack())
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(orchestrator, knowledgeService))
	if err != nil {
		return fmt.Errorf("failed to create chat UI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}

// runLineChat reads one question per line until EOF or /exit.
func runLineChat(ctx context.Context, in io.Reader, out io.Writer) error {
	session := orchestrator.NewSession()
	defer session.Close()

	if welcome := orchestrator.Welcome(); welcome != "" {
		fmt.Fprintln(out, welcome)
		fmt.Fprintln(out)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	var attachments []string
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case strings.HasPrefix(line, "/attach "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/attach "))
			attachments = append(attachments, path)
			fmt.Fprintf(out, "Attached %s to the next question.\n", path)
			continue
		}

		answer := orchestrator.Handle(ctx, session, line, attachments)
		attachments = nil
		printAnswer(out, answer)
		fmt.Fprintln(out)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}
