package cli

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/adapters/driving/mcp"
	"github.com/custodia-labs/intunesync/internal/logger"
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

Tools: list_devices, sync_devices, sync_platform, sync_all_platforms,
list_reports. Run history is also exposed as intunesync://reports resources.

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead. HTTP binds to 127.0.0.1 unless --host is
given; set --token (or INTUNESYNC_MCP_TOKEN) to require a bearer token.

Examples:
  # Stdio mode (default)
  intunesync mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  intunesync mcp serve --port 8080

  # HTTP on all interfaces with a bearer token
  INTUNESYNC_MCP_TOKEN=... intunesync mcp serve --host 0.0.0.0 --port 8080

Client configuration:
  {
    "mcpServers": {
      "intunesync": {
        "command": "/path/to/intunesync",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

// MCPTokenEnv supplies the default for --token.
const MCPTokenEnv = "INTUNESYNC_MCP_TOKEN"

var (
	mcpPort  int
	mcpHost  string
	mcpToken string
)

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "127.0.0.1", "HTTP bind address")
	mcpServeCmd.Flags().StringVar(&mcpToken, "token", "", "bearer token required on HTTP requests (default $"+MCPTokenEnv+")")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Sync:     syncOrchestrator,
		Devices:  deviceService,
		Reports:  reportService,
		Settings: settingsService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpPort <= 0 {
		return server.Run(cmd.Context())
	}

	token := mcpToken
	if token == "" {
		token = os.Getenv(MCPTokenEnv)
	}
	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)
	if token == "" && !isLoopback(mcpHost) {
		logger.Warn("MCP server on %s accepts unauthenticated requests; set --token", mcpHost)
	}

	return server.RunHTTP(cmd.Context(), mcp.HTTPConfig{
		Addr:  net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort)),
		Token: token,
		OnListen: func(addr net.Addr) {
			fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", addr)
		},
	})
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
