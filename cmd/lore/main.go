package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/lore/cmd/lore/commands"
	"github.com/teranos/lore/logger"
)

var rootCmd = &cobra.Command{
	Use:   "lore",
	Short: "LORE - Plain-text personal knowledge base",
	Long: `LORE - Typed records, an entity graph, and a query language.

A workspace is a directory with a lore.toml manifest and TOML record
files. Records become typed entities; reference fields become graph
edges; queries filter, sort, traverse, and aggregate over the graph.

Examples:
  lore workspace init                                 # Scaffold a new workspace
  lore query "from task | where is_completed == false"
  lore query "from expense | sum amount"
  lore graph --format dot                             # Render reference edges
  lore types                                          # List entity types
  lore mcp                                            # Serve the engine over MCP`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(commands.QueryCmd)
	rootCmd.AddCommand(commands.GraphCmd)
	rootCmd.AddCommand(commands.TypesCmd)
	rootCmd.AddCommand(commands.McpCmd)
	rootCmd.AddCommand(commands.WorkspaceCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
