package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server for AI assistants",
	Long: `Start a Model Context Protocol stdio server so an assistant can query
settings, problem periods and recommendations. The server exposes:

  resolve_segment            Segment in effect at an hour of a schedule
  identify_problem_periods   Problem periods with guidance
  generate_recommendation    Generate and offer one recommendation
  get_pending_recommendation The recommendation awaiting a decision
  apply_recommendation       Accept the pending recommendation
  dismiss_recommendation     Dismiss the pending recommendation
  get_settings               Current therapy settings
  get_applied_history        Recently applied recommendations

Add to your MCP client configuration:
  {"mcpServers":{"basalcoach":{"command":"basalcoach","args":["mcp"]}}}

Logs are written to stderr; stdout carries only protocol messages.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cmd.SetErr(os.Stderr)
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	srv := mcp.NewServer(e.svc, appVersion, e.log)
	return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
}
