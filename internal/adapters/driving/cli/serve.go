package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/adapters/driving/mcp"
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so an interpreter can retrieve
passages, classify text and read the theme vocabulary.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode
  reverie serve

  # HTTP mode, reloading the vocabulary file when it changes
  reverie serve --port 8080 --watch

Desktop client configuration:
  {
    "mcpServers": {
      "reverie": {
        "command": "/path/to/reverie",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	serveCmd.Flags().Bool("watch", false, "reload the theme vocabulary file when it changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	ports := &mcp.Ports{
		Retrieval:      retrievalService,
		Classification: classificationService,
		Themes:         themeService,
		Embedder:       embeddingService,
	}

	trackerSize := domain.DefaultTrackerSize
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			trackerSize = s.Retrieval.TrackerSize
		}
	}

	server, err := mcp.NewServer(ports, mcp.NewSessionRegistry(0, trackerSize))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if watch && themeService != nil {
		go func() {
			if err := themeService.Watch(ctx); err != nil {
				logger.Warn("vocabulary watch stopped: %v", err)
			}
		}()
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
