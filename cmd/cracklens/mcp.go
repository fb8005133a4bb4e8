package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/cracklens/internal/cli"
	"github.com/aretw0/cracklens/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP Server, so AI agents can run plans, read metrics
and resolve visualization layers as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		a, err := loadApp(sigCtx, cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcp.NewServer(a.engine, mcp.WithLogger(a.logger))

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			a.logger.Info("Starting MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			if err := srv.ServeSSE(sigCtx, port); err != nil {
				return err
			}
			a.logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
