package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/adapters/driving/mcp"
	"github.com/custodia-labs/clause/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC. Sessions live
in memory for the lifetime of the server and expire after the configured TTL.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default)
  clause mcp serve

  # HTTP mode
  clause mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "clause": {
        "command": "/path/to/clause",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	e, err := requireEngine(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Sessions:  e.Sessions,
		Ingestion: e.Ingestion,
		Retrieval: e.Retrieval,
		Defaults:  e.Settings.Retrieval.Options(),
	})
	if err != nil {
		return err
	}

	stopSweeper := startSweeper(cmd.Context(), e)
	defer stopSweeper()

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}

// startSweeper runs the session sweeper in the background and returns a
// function that stops it.
func startSweeper(ctx context.Context, e *Engine) func() {
	if e.Sweeper == nil {
		return func() {}
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := e.Sweeper.Start(sweepCtx); err != nil {
			logger.Warn("sweeper stopped: %v", err)
		}
	}()

	return func() {
		if err := e.Sweeper.Stop(); err != nil {
			logger.Warn("sweeper stop: %v", err)
		}
		cancel()
		<-done
	}
}
