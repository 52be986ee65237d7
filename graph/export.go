package graph

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/kb"
)

// Export metadata attached to every rendering of the graph.
type exportMeta struct {
	RunID       string
	GeneratedAt time.Time
}

func newExportMeta() exportMeta {
	return exportMeta{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}
}

// nodeLabel picks a display label for an entity: a string-valued "name" or
// "title" field when present, the local id part otherwise.
func nodeLabel(e *kb.Entity) string {
	for _, field := range []kb.FieldID{"name", "title"} {
		if v, ok := e.Field(field); ok && v.Kind() == kb.KindString {
			return v.Text()
		}
	}
	return e.ID().Name()
}

// WriteGEXF renders the built graph in GEXF 1.2 for Gephi and friends.
// Nodes and edges are emitted sorted by id for consistent output across runs.
// The graph must have been built; exporting before Build would silently
// drop every edge.
func WriteGEXF(g *Graph, w io.Writer) error {
	if !g.Built() {
		return errors.Wrap(errors.ErrNotBuilt, "cannot export")
	}
	meta := newExportMeta()

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<gexf xmlns="http://www.gexf.net/1.2draft" version="1.2">` + "\n")
	fmt.Fprintf(&b, "  <meta lastmodifieddate=%q>\n", meta.GeneratedAt.Format("2006-01-02"))
	b.WriteString("    <creator>lore</creator>\n")
	fmt.Fprintf(&b, "    <description>export %s</description>\n", meta.RunID)
	b.WriteString("  </meta>\n")
	b.WriteString(`  <graph mode="static" defaultedgetype="directed">` + "\n")

	b.WriteString("    <attributes class=\"node\">\n")
	b.WriteString(`      <attribute id="0" title="type" type="string"/>` + "\n")
	b.WriteString("    </attributes>\n")

	b.WriteString("    <nodes>\n")
	for _, e := range sortedByID(g.All()) {
		fmt.Fprintf(&b, "      <node id=%q label=%q>\n", xmlEscape(string(e.ID())), xmlEscape(nodeLabel(e)))
		fmt.Fprintf(&b, "        <attvalues><attvalue for=\"0\" value=%q/></attvalues>\n", xmlEscape(string(e.Type())))
		b.WriteString("      </node>\n")
	}
	b.WriteString("    </nodes>\n")

	b.WriteString("    <edges>\n")
	for i, edge := range g.Edges() {
		fmt.Fprintf(&b, "      <edge id=\"%d\" source=%q target=%q label=%q/>\n",
			i, xmlEscape(string(edge.From)), xmlEscape(string(edge.To)), xmlEscape(string(edge.Field)))
	}
	b.WriteString("    </edges>\n")

	b.WriteString("  </graph>\n</gexf>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteDOT renders the built graph in Graphviz DOT form, one directed edge
// per derived reference, labeled with the originating field id. Like
// WriteGEXF it refuses an un-built graph.
func WriteDOT(g *Graph, w io.Writer) error {
	if !g.Built() {
		return errors.Wrap(errors.ErrNotBuilt, "cannot export")
	}
	var b strings.Builder
	b.WriteString("digraph lore {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, fontname=\"sans-serif\"];\n\n")

	for _, e := range sortedByID(g.All()) {
		fmt.Fprintf(&b, "  %q [label=%q];\n", string(e.ID()),
			fmt.Sprintf("%s\\n(%s)", nodeLabel(e), e.Type()))
	}
	b.WriteString("\n")
	for _, edge := range g.Edges() {
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", string(edge.From), string(edge.To), string(edge.Field))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func sortedByID(entities []*kb.Entity) []*kb.Entity {
	sorted := make([]*kb.Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })
	return sorted
}

func xmlEscape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
