package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/graph"
	"github.com/teranos/lore/logger"
)

var (
	graphFormat string
	graphOutput string
)

// GraphCmd represents the graph command
var GraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the reference graph",
	Long: `Export the workspace's reference graph for visualization.

Formats:
  gexf - Graph Exchange XML Format (Gephi and friends)
  dot  - Graphviz

Examples:
  lore graph --format dot | dot -Tsvg -o lore.svg
  lore graph --format gexf --output lore.gexf`,
	RunE: runGraphCommand,
}

func init() {
	GraphCmd.Flags().StringVarP(&graphFormat, "format", "f", "gexf", "Export format (gexf/dot)")
	GraphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "Output file (default: stdout)")
}

func runGraphCommand(cmd *cobra.Command, args []string) error {
	_, g, err := loadGraph()
	if err != nil {
		return err
	}

	out := os.Stdout
	if graphOutput != "" {
		f, err := os.Create(graphOutput)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", graphOutput)
		}
		defer f.Close()
		out = f
	}

	switch graphFormat {
	case "gexf":
		err = graph.WriteGEXF(g, out)
	case "dot":
		err = graph.WriteDOT(g, out)
	default:
		return errors.Newf("unknown graph format %q (expected gexf or dot)", graphFormat)
	}
	if err != nil {
		return errors.Wrap(err, "graph export failed")
	}

	if graphOutput != "" {
		logger.Infow("graph exported",
			"format", graphFormat,
			"output", graphOutput,
			"entities", g.Len())
	}
	return nil
}
