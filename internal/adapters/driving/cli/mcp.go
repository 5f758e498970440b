package cli

import (
	"github.com/spf13/cobra"

	"github.com/JIWOOK23/LocalMind/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant
integration. The server communicates over stdio using JSON-RPC and
exposes the search and ask tools.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "localmind": {
        "command": "/path/to/localmind",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Retriever: retrieveService,
		Chat:      chatService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	return server.Run(cmd.Context())
}
