package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qa-extract/internal/adapters/driving/mcp"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server exposing record reports.

Tools:
  validate_citations  check citation markers in a JSONL stream
  report_records      summarise a JSONL stream
  cache_stats         extraction cache entries per domain

Resources:
  qa-extract://domains            configured extraction domains
  qa-extract://streams/{domain}   records in a domain's output stream

By default the server speaks JSON-RPC over stdio. Use --port for HTTP.

Examples:
  qa-extract mcp serve
  qa-extract mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().StringP("output", "o", "", "output directory holding the streams")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	dirFlag, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("getting output flag: %w", err)
	}

	ports := &mcp.Ports{
		Reports: reportService,
		Records: recordReader,
		Domains: domainInfos,
	}
	if streamPath != nil {
		dir := outputDir(dirFlag)
		ports.StreamPath = func(d string) string { return streamPath(dir, d) }
	}

	// The cache is optional: a misconfigured backend only disables cache_stats.
	if buildServices != nil && settingsService != nil {
		svc, _, release, err := openServices(cmd.Context(), Needs{Cache: true}, nil)
		if err != nil {
			logger.Warn("Cache statistics unavailable: %v", err)
		} else {
			defer release()
			ports.Cache = svc.Cache
		}
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
