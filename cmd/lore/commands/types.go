package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var typesFormat string

// TypesCmd represents the types command
var TypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List entity types in the workspace",
	RunE:  runTypesCommand,
}

func init() {
	TypesCmd.Flags().StringVarP(&typesFormat, "format", "f", "table", "Output format (table/json)")
}

func runTypesCommand(cmd *cobra.Command, args []string) error {
	_, g, err := loadGraph()
	if err != nil {
		return err
	}

	if typesFormat == "json" {
		counts := make(map[string]int)
		for _, t := range g.Types() {
			counts[string(t)] = len(g.ByType(t))
		}
		return printJSON(counts)
	}

	data := pterm.TableData{{"type", "entities"}}
	for _, t := range g.Types() {
		data = append(data, []string{string(t), strconv.Itoa(len(g.ByType(t)))})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
