package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/lore/config"
	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/graph"
	"github.com/teranos/lore/kb"
	"github.com/teranos/lore/query"
	"github.com/teranos/lore/query/parser"
)

var queryFormat string

// QueryCmd represents the query command
var QueryCmd = &cobra.Command{
	Use:   "query QUERY",
	Short: "Run a query against the workspace",
	Long: `Run a query against the workspace.

Examples:
  lore query "from task"
  lore query "from task | where is_completed == false | order priority | limit 5"
  lore query "from expense | where amount > 100.00 USD | sum amount"
  lore query "from person | related(2) task"
  lore query "from * | select name, @type"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQueryCommand,
}

func init() {
	QueryCmd.Flags().StringVarP(&queryFormat, "format", "f", "table", "Output format (table/json)")
}

func runQueryCommand(cmd *cobra.Command, args []string) error {
	cfg, g, err := loadGraph()
	if err != nil {
		return err
	}
	return runQuery(cfg, g, strings.Join(args, " "))
}

// runQuery parses and executes a query against the loaded graph. Parse
// and execution failures are marked ErrInvalidQuery so callers can tell a
// bad query apart from a broken workspace.
func runQuery(cfg *config.Config, g *graph.Graph, text string) error {
	q, err := parser.Parse(text)
	if err != nil {
		return errors.Mark(err, errors.ErrInvalidQuery)
	}

	// Manifest default limit applies only when the query declares none
	if cfg.Query.DefaultLimit > 0 && q.Aggregation == nil && !hasLimit(q) {
		q.Operations = append(q.Operations, query.Limit{N: cfg.Query.DefaultLimit})
	}

	if q.Aggregation != nil {
		result, err := q.ExecuteAggregate(g)
		if err != nil {
			return errors.Mark(errors.Wrap(err, "query failed"), errors.ErrInvalidQuery)
		}
		return displayAggregate(result)
	}

	entities, err := q.Execute(g)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "query failed"), errors.ErrInvalidQuery)
	}
	return displayEntities(entities)
}

func hasLimit(q *query.Query) bool {
	for _, op := range q.Operations {
		if _, ok := op.(query.Limit); ok {
			return true
		}
	}
	return false
}

func displayEntities(entities []*kb.Entity) error {
	if queryFormat == "json" {
		docs := make([]map[string]interface{}, len(entities))
		for i, e := range entities {
			docs[i] = entityDoc(e)
		}
		return printJSON(docs)
	}

	if len(entities) == 0 {
		pterm.Info.Println("no results")
		return nil
	}

	columns := entityColumns(entities)
	data := pterm.TableData{columns}
	for _, e := range entities {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellFor(e, col)
		}
		data = append(data, row)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// entityColumns is @id, @type, then the sorted union of field ids.
func entityColumns(entities []*kb.Entity) []string {
	seen := make(map[string]bool)
	for _, e := range entities {
		for _, f := range e.FieldIDs() {
			seen[string(f)] = true
		}
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return append([]string{string(kb.MetaID), string(kb.MetaType)}, fields...)
}

func cellFor(e *kb.Entity, column string) string {
	switch column {
	case string(kb.MetaID):
		return string(e.ID())
	case string(kb.MetaType):
		return string(e.Type())
	}
	v, ok := e.Field(kb.FieldID(column))
	if !ok {
		return ""
	}
	return v.String()
}

func displayAggregate(result *query.AggregateResult) error {
	if result.Table == nil {
		if queryFormat == "json" {
			return printJSON(map[string]interface{}{"result": result.Value.String()})
		}
		fmt.Println(result.Value.String())
		return nil
	}

	if queryFormat == "json" {
		rows := make([]map[string]interface{}, len(result.Table.Rows))
		for i, row := range result.Table.Rows {
			doc := make(map[string]interface{}, len(row))
			for j, cell := range row {
				if cell == nil {
					doc[result.Table.Columns[j]] = nil
					continue
				}
				doc[result.Table.Columns[j]] = cell.String()
			}
			rows[i] = doc
		}
		return printJSON(rows)
	}

	data := pterm.TableData{result.Table.Columns}
	for _, row := range result.Table.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				cells[j] = cell.String()
			}
		}
		data = append(data, cells)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
