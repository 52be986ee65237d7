package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/lore/config"
	"github.com/teranos/lore/logger"
	"github.com/teranos/lore/server"
	"github.com/teranos/lore/workspace"
)

var mcpWatch bool

// McpCmd represents the mcp command
var McpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the query engine over the Model Context Protocol",
	Long: `Serve the query engine over MCP (stdio transport).

Exposes lore_query, lore_entity, lore_related, and lore_types to agent
tooling. With --watch the workspace is reloaded on record changes and
the served graph swapped in place.`,
	RunE: runMcpCommand,
}

func init() {
	McpCmd.Flags().BoolVarP(&mcpWatch, "watch", "w", true, "Reload the workspace when record files change")
}

func runMcpCommand(cmd *cobra.Command, args []string) error {
	cfg, g, err := loadGraph()
	if err != nil {
		return err
	}

	s := server.NewMCPServer(g)

	if mcpWatch {
		w, err := workspace.NewWatcher(cfg, config.WorkspaceRoot())
		if err != nil {
			return err
		}
		defer w.Stop()
		w.OnReload(s.SetGraph)
		w.Start()
	}

	logger.Infow("mcp server starting",
		"entities", g.Len(),
		"watch", mcpWatch)
	return s.Serve()
}
