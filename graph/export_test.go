package graph

import (
	"strings"
	"testing"

	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/kb"
)

func exportGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	if err := g.AddEntities([]*kb.Entity{
		mustEntity(t, "person.jane", map[kb.FieldID]kb.Value{
			"name":     kb.NewString("Jane <Doe>"),
			"employer": ref("org.acme"),
		}),
		mustEntity(t, "org.acme", nil),
	}); err != nil {
		t.Fatalf("AddEntities failed: %v", err)
	}
	g.Build()
	return g
}

func TestWriteGEXF(t *testing.T) {
	g := exportGraph(t)
	var out strings.Builder
	if err := WriteGEXF(g, &out); err != nil {
		t.Fatalf("WriteGEXF failed: %v", err)
	}
	s := out.String()

	for _, want := range []string{
		`<node id="org.acme"`,
		`<node id="person.jane"`,
		`label="Jane &lt;Doe&gt;"`,
		`source="person.jane" target="org.acme" label="employer"`,
		`value="person"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("GEXF output missing %q", want)
		}
	}

	// Nodes sorted by id: org.acme before person.jane
	if strings.Index(s, "org.acme") > strings.Index(s, "person.jane") {
		t.Error("GEXF nodes should be sorted by id")
	}
}

func TestWriteDOT(t *testing.T) {
	g := exportGraph(t)
	var out strings.Builder
	if err := WriteDOT(g, &out); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	s := out.String()

	for _, want := range []string{
		"digraph lore {",
		`"person.jane" -> "org.acme" [label="employer"];`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("DOT output missing %q", want)
		}
	}
}

func TestExportRequiresBuiltGraph(t *testing.T) {
	g := New()
	if err := g.AddEntities([]*kb.Entity{mustEntity(t, "person.jane", nil)}); err != nil {
		t.Fatalf("AddEntities failed: %v", err)
	}

	var out strings.Builder
	if err := WriteGEXF(g, &out); !errors.Is(err, errors.ErrNotBuilt) {
		t.Errorf("WriteGEXF on un-built graph = %v, want ErrNotBuilt", err)
	}
	if err := WriteDOT(g, &out); !errors.Is(err, errors.ErrNotBuilt) {
		t.Errorf("WriteDOT on un-built graph = %v, want ErrNotBuilt", err)
	}
	if out.Len() != 0 {
		t.Errorf("un-built export wrote %d bytes, want none", out.Len())
	}
}

func TestExportDeterministic(t *testing.T) {
	g := exportGraph(t)
	var a, b strings.Builder
	if err := WriteDOT(g, &a); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	if err := WriteDOT(g, &b); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	if a.String() != b.String() {
		t.Error("DOT export should be byte-identical across runs")
	}
}
