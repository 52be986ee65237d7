package graph

import (
	"sort"

	"github.com/teranos/lore/kb"
)

// Expand performs bounded breadth-first expansion from the starting
// entities across the graph's undirected one-hop adjacency.
//
// degrees below 1 return the starting set unchanged, bypassing the type
// filter; values above MaxTraversalDegrees are clamped. Each round
// computes the one-hop neighborhood of the current frontier in both
// directions, records ids never seen before, and stops early once a
// round discovers nothing new. Cycles terminate naturally through the
// seen set.
//
// typeFilter, when non-empty, is applied to the final set only — a path
// may pass through a foreign type en route to a typed result.
func Expand(g *Graph, start []*kb.Entity, degrees int, typeFilter kb.EntityType) []*kb.Entity {
	if degrees < 1 {
		return start
	}

	result := make([]*kb.Entity, 0, len(start))
	if degrees > MaxTraversalDegrees {
		degrees = MaxTraversalDegrees
	}

	seen := make(map[kb.EntityID]bool, len(start))
	frontier := make([]kb.EntityID, 0, len(start))
	for _, e := range start {
		if seen[e.ID()] {
			continue
		}
		seen[e.ID()] = true
		frontier = append(frontier, e.ID())
		result = append(result, e)
	}

	for round := 0; round < degrees && len(frontier) > 0; round++ {
		var next []kb.EntityID
		for _, id := range frontier {
			neighbors, err := g.Related(id, DirectionBoth)
			if err != nil {
				// Frontier ids come from the graph itself; an unknown id
				// here means the caller handed in foreign entities. Skip.
				continue
			}
			for _, n := range neighbors {
				if seen[n.ID()] {
					continue
				}
				seen[n.ID()] = true
				next = append(next, n.ID())
			}
		}

		// Sort each round's discoveries so expansion order is stable
		// regardless of frontier iteration order.
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, id := range next {
			if e, err := g.Entity(id); err == nil {
				result = append(result, e)
			}
		}
		frontier = next
	}

	return filterByType(result, typeFilter)
}

func filterByType(entities []*kb.Entity, typeFilter kb.EntityType) []*kb.Entity {
	if typeFilter == "" {
		return entities
	}
	filtered := entities[:0:0]
	for _, e := range entities {
		if e.Type() == typeFilter {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
