package commands

import (
	"encoding/json"
	"fmt"

	"github.com/teranos/lore/config"
	"github.com/teranos/lore/graph"
	"github.com/teranos/lore/kb"
	"github.com/teranos/lore/workspace"
)

// loadGraph locates the nearest workspace manifest and loads its records
// into a built graph.
func loadGraph() (*config.Config, *graph.Graph, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	g, err := workspace.Load(cfg, config.WorkspaceRoot())
	if err != nil {
		return nil, nil, err
	}
	return cfg, g, nil
}

// entityDoc renders an entity as a JSON-friendly document with display
// form field values.
func entityDoc(e *kb.Entity) map[string]interface{} {
	doc := map[string]interface{}{
		string(kb.MetaID):   string(e.ID()),
		string(kb.MetaType): string(e.Type()),
	}
	for _, f := range e.FieldIDs() {
		v, _ := e.Field(f)
		doc[string(f)] = v.String()
	}
	return doc
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
