// Package query implements the LORE query engine: filtering, sorting,
// aggregation, and the ordered execution pipeline over a built entity
// graph. The engine reacts only to observed value variants; it never
// consults a schema.
package query

import (
	"github.com/teranos/lore/graph"
	"github.com/teranos/lore/kb"
)

// Selector is the starting set of a query: a named entity type, or the
// wildcard union of every type.
type Selector struct {
	Type kb.EntityType
	All  bool
}

// Operation is one step of the execution pipeline. Each consumes the
// entity sequence produced by the previous step. Operations execute
// exactly in declared order; there is no reordering or optimization.
type Operation interface {
	apply(g *graph.Graph, entities []*kb.Entity) ([]*kb.Entity, error)
}

// Where filters the sequence through a compound condition. Any filter
// error aborts the whole query.
type Where struct {
	Filter Compound
}

func (op Where) apply(_ *graph.Graph, entities []*kb.Entity) ([]*kb.Entity, error) {
	filtered := entities[:0:0]
	for _, e := range entities {
		ok, err := op.Filter.Matches(e)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Order sorts the whole sequence by one field reference and direction.
type Order struct {
	Field     FieldRef
	Direction SortDirection
}

func (op Order) apply(_ *graph.Graph, entities []*kb.Entity) ([]*kb.Entity, error) {
	SortEntities(entities, op.Field, op.Direction)
	return entities, nil
}

// Related replaces the sequence with its bounded breadth-first expansion
// across the graph, optionally retaining only one entity type in the
// final set.
type Related struct {
	Degrees int
	Type    kb.EntityType
}

func (op Related) apply(g *graph.Graph, entities []*kb.Entity) ([]*kb.Entity, error) {
	return graph.Expand(g, entities, op.Degrees, op.Type), nil
}

// Limit truncates the sequence to its first N entities.
type Limit struct {
	N int
}

func (op Limit) apply(_ *graph.Graph, entities []*kb.Entity) ([]*kb.Entity, error) {
	if op.N < 0 {
		return entities[:0], nil
	}
	if op.N < len(entities) {
		return entities[:op.N], nil
	}
	return entities, nil
}

// Query is an ordered pipeline: an initial selector followed by zero or
// more operations, and optionally a trailing aggregation.
type Query struct {
	Selector    Selector
	Operations  []Operation
	Aggregation *Aggregation
}

// Execute runs the pipeline against a built graph and returns the final
// entity sequence. Selector resolution failures and filter errors abort
// the query; there is no partial result.
func (q *Query) Execute(g *graph.Graph) ([]*kb.Entity, error) {
	entities, err := q.selectInitial(g)
	if err != nil {
		return nil, err
	}

	for _, op := range q.Operations {
		entities, err = op.apply(g, entities)
		if err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// ExecuteAggregate runs the pipeline and then the trailing aggregation.
func (q *Query) ExecuteAggregate(g *graph.Graph) (*AggregateResult, error) {
	if q.Aggregation == nil {
		return nil, invalidAggregationf("query has no aggregation clause")
	}
	entities, err := q.Execute(g)
	if err != nil {
		return nil, err
	}
	return q.Aggregation.Execute(entities)
}

// selectInitial resolves the selector: the wildcard unions every known
// type in sorted type order; a named type must be known to the graph.
func (q *Query) selectInitial(g *graph.Graph) ([]*kb.Entity, error) {
	if q.Selector.All {
		var all []*kb.Entity
		for _, t := range g.Types() {
			all = append(all, g.ByType(t)...)
		}
		return all, nil
	}

	if !g.HasType(q.Selector.Type) {
		return nil, &UnknownEntityTypeError{Type: q.Selector.Type, Known: g.Types()}
	}
	// Copy so pipeline operations never alias the graph's own index slices
	entities := g.ByType(q.Selector.Type)
	out := make([]*kb.Entity, len(entities))
	copy(out, entities)
	return out, nil
}
