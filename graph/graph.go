// Package graph maintains the in-memory entity graph: arena storage for
// all known entities, a type index, and the directed reference edges
// derived from their field values.
package graph

import (
	"sort"

	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/kb"
)

// Direction restricts adjacency lookups to one edge direction.
type Direction int

const (
	// DirectionBoth returns incoming and outgoing neighbors
	DirectionBoth Direction = iota
	// DirectionIncoming returns entities referencing the given one
	DirectionIncoming
	// DirectionOutgoing returns entities the given one references
	DirectionOutgoing
)

// Edge is a directed reference edge derived from a Reference field value.
// Direction follows "referencing field → referenced entity/field".
type Edge struct {
	From        kb.EntityID
	To          kb.EntityID
	Field       kb.FieldID // originating field on From
	TargetField kb.FieldID // set for field-level references
}

// Graph owns all known entities plus the derived type index and edge set.
// The index and edges are recomputed by an explicit Build() after any batch
// of entities is added; until then relationship queries yield no results
// while id/type lookup remains available. Once built, the graph is treated
// as an immutable shared-read snapshot; nothing here locks.
type Graph struct {
	entities map[kb.EntityID]*kb.Entity
	order    []kb.EntityID // insertion order, for deterministic scans

	byType     map[kb.EntityType][]*kb.Entity
	knownTypes map[kb.EntityType]bool

	outgoing map[kb.EntityID][]Edge
	incoming map[kb.EntityID][]Edge

	built bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		entities:   make(map[kb.EntityID]*kb.Entity),
		byType:     make(map[kb.EntityType][]*kb.Entity),
		knownTypes: make(map[kb.EntityType]bool),
		outgoing:   make(map[kb.EntityID][]Edge),
		incoming:   make(map[kb.EntityID][]Edge),
	}
}

// AddEntities appends a batch of entities. It fails if an id collides
// within the batch or with already-added content, leaving the graph
// unchanged. Adding entities invalidates a previous Build().
func (g *Graph) AddEntities(batch []*kb.Entity) error {
	inBatch := make(map[kb.EntityID]bool, len(batch))
	for _, e := range batch {
		if inBatch[e.ID()] {
			return errors.NewConflictError("duplicate entity id %q in batch", e.ID())
		}
		if _, exists := g.entities[e.ID()]; exists {
			return errors.NewConflictError("entity id %q already present in graph", e.ID())
		}
		inBatch[e.ID()] = true
	}

	for _, e := range batch {
		g.entities[e.ID()] = e
		g.order = append(g.order, e.ID())
	}
	g.built = false
	return nil
}

// RegisterType marks an entity type as known even when no entity of that
// type has been added. Workspace loaders register schema-declared types so
// queries over an empty type return an empty result instead of an
// unknown-type error.
func (g *Graph) RegisterType(t kb.EntityType) {
	g.knownTypes[t] = true
}

// Build recomputes the type index and the reference edge set by scanning
// every entity's fields for Reference values, including references nested
// inside Lists.
func (g *Graph) Build() {
	g.byType = make(map[kb.EntityType][]*kb.Entity)
	g.outgoing = make(map[kb.EntityID][]Edge)
	g.incoming = make(map[kb.EntityID][]Edge)

	for _, id := range g.order {
		e := g.entities[id]
		g.byType[e.Type()] = append(g.byType[e.Type()], e)
		g.knownTypes[e.Type()] = true

		for _, fieldID := range e.FieldIDs() {
			value, _ := e.Field(fieldID)
			switch value.Kind() {
			case kb.KindReference:
				g.addEdge(e.ID(), fieldID, value.Ref())
			case kb.KindList:
				for _, elem := range value.List() {
					if elem.Kind() == kb.KindReference {
						g.addEdge(e.ID(), fieldID, elem.Ref())
					}
				}
			}
		}
	}

	g.built = true
}

func (g *Graph) addEdge(from kb.EntityID, field kb.FieldID, ref kb.Reference) {
	edge := Edge{
		From:        from,
		To:          ref.Entity,
		Field:       field,
		TargetField: ref.Field,
	}
	g.outgoing[from] = append(g.outgoing[from], edge)
	g.incoming[ref.Entity] = append(g.incoming[ref.Entity], edge)
}

// Built reports whether the derived index and edges are current.
func (g *Graph) Built() bool { return g.built }

// Len returns the number of entities in the graph.
func (g *Graph) Len() int { return len(g.entities) }

// Entity looks up an entity by composite id.
func (g *Graph) Entity(id kb.EntityID) (*kb.Entity, error) {
	e, ok := g.entities[id]
	if !ok {
		return nil, errors.NewNotFoundError("entity %q", id)
	}
	return e, nil
}

// HasType reports whether the type is known to the graph, either through
// an added entity or an explicit RegisterType.
func (g *Graph) HasType(t kb.EntityType) bool {
	return g.knownTypes[t]
}

// ByType returns all entities of the given type in insertion order.
func (g *Graph) ByType(t kb.EntityType) []*kb.Entity {
	return g.byType[t]
}

// Types returns every known entity type in sorted order.
func (g *Graph) Types() []kb.EntityType {
	types := make([]kb.EntityType, 0, len(g.knownTypes))
	for t := range g.knownTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// All returns every entity in insertion order.
func (g *Graph) All() []*kb.Entity {
	all := make([]*kb.Entity, 0, len(g.order))
	for _, id := range g.order {
		all = append(all, g.entities[id])
	}
	return all
}

// Related returns the entities connected to id by one hop, restricted to
// the requested direction. Incoming edges into an entity are "things that
// reference it". Unknown ids are an error; references to entities that do
// not exist in the graph are skipped. Against an un-built graph the result
// is always empty.
func (g *Graph) Related(id kb.EntityID, dir Direction) ([]*kb.Entity, error) {
	if _, ok := g.entities[id]; !ok {
		return nil, errors.NewNotFoundError("entity %q", id)
	}
	if !g.built {
		return nil, nil
	}

	seen := make(map[kb.EntityID]bool)
	var neighborIDs []kb.EntityID

	collect := func(target kb.EntityID) {
		if target == id || seen[target] {
			return
		}
		if _, ok := g.entities[target]; !ok {
			return
		}
		seen[target] = true
		neighborIDs = append(neighborIDs, target)
	}

	if dir == DirectionBoth || dir == DirectionOutgoing {
		for _, edge := range g.outgoing[id] {
			collect(edge.To)
		}
	}
	if dir == DirectionBoth || dir == DirectionIncoming {
		for _, edge := range g.incoming[id] {
			collect(edge.From)
		}
	}

	sort.Slice(neighborIDs, func(i, j int) bool { return neighborIDs[i] < neighborIDs[j] })

	neighbors := make([]*kb.Entity, 0, len(neighborIDs))
	for _, nid := range neighborIDs {
		neighbors = append(neighbors, g.entities[nid])
	}
	return neighbors, nil
}

// Edges returns the full derived edge set sorted by (from, field, to) for
// deterministic export output.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, id := range g.order {
		edges = append(edges, g.outgoing[id]...)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.To < b.To
	})
	return edges
}
