package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/adapters/driving/mcp"
)

var versionJSON bool

// buildInfo is the version command's report.
type buildInfo struct {
	Version   string `json:"version"`
	Go        string `json:"go"`
	Platform  string `json:"platform"`
	MCP       string `json:"mcp_server"`
	Embedding string `json:"embedding_model,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := buildInfo{
			Version:  version,
			Go:       runtime.Version(),
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
			MCP:      mcp.Version,
		}
		if embeddingService != nil {
			info.Embedding = embeddingService.ModelName()
		}

		if versionJSON {
			return printJSON(cmd, info)
		}
		cmd.Printf("reverie version %s\n", info.Version)
		cmd.Printf("  %s %s, mcp server %s\n", info.Go, info.Platform, info.MCP)
		if info.Embedding != "" {
			cmd.Printf("  embedding model %s\n", info.Embedding)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(versionCmd)
}
