package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/workspace"
)

// WorkspaceCmd represents the workspace command group
var WorkspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage the workspace",
}

var workspaceInitCmd = &cobra.Command{
	Use:   "init [DIR]",
	Short: "Scaffold a new workspace",
	Long: `Create a lore.toml manifest and a records directory with a starter
record file. Defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := workspace.Init(dir); err != nil {
			return errors.Wrap(err, "workspace init failed")
		}
		fmt.Fprintf(os.Stdout, "initialized workspace in %s\n", dir)
		return nil
	},
}

func init() {
	WorkspaceCmd.AddCommand(workspaceInitCmd)
}
