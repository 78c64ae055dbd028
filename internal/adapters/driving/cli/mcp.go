package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parley/internal/adapters/driving/mcp"
)

var (
	mcpPort        int
	mcpMaxSessions int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose parley to MCP clients",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server so other assistants can ask
parley questions and search its knowledge base.

The server exposes:
  ask               route a question and return the answer with its sources
  knowledge_search  list the knowledge-base chunks closest to a text
  knowledge://stats knowledge-base totals
  knowledge://files ingested files with chunk counts

Calls to ask that pass the same session_id share a conversation history.
At most --max-sessions conversations are kept; the least recently used
one is dropped first.

The server speaks JSON-RPC over stdio unless --port is given.

Examples:
  # Stdio mode (default)
  parley mcp serve

  # HTTP mode
  parley mcp serve --port 8080

Desktop assistant configuration:
  {
    "mcpServers": {
      "parley": {
        "command": "/path/to/parley",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().IntVar(&mcpMaxSessions, "max-sessions", mcp.DefaultMaxSessions,
		"named conversations kept in memory")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if orchestrator == nil {
		return errors.New("orchestrator not configured")
	}
	if mcpMaxSessions < 1 {
		return fmt.Errorf("--max-sessions must be at least 1, got %d", mcpMaxSessions)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Orchestrator: orchestrator,
		Knowledge:    knowledgeService,
	}, mcp.WithMaxSessions(mcpMaxSessions))
	if err != nil {
		return err
	}

	if mcpPort > 0 {
		addr := fmt.Sprintf(":%d", mcpPort)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
