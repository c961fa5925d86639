// Package depgraph builds the per-atom/per-rule dependency graph (spec
// §4.3, component C4) and condenses it into strongly connected components.
//
// The SCC algorithm is Tarjan's, adapted directly from the teacher's
// SLGEngine.computeUndefinedSCCs (pkg/minikanren/slg_engine.go), which
// already runs Tarjan over a dependency graph with positive/negative edge
// polarity to find SCCs containing a negative edge — exactly the
// adjacency shape HEX's component analysis needs, generalized here from a
// single "undefined" boolean to the full edge-kind vocabulary §4.3 names.
package depgraph

import "github.com/gitrdm/hexeval/pkg/hex/ids"

// EdgeKind classifies a dependency edge.
type EdgeKind int

const (
	EdgePositiveRegular EdgeKind = iota
	EdgeNegativeRegular
	EdgePositiveExternal
	EdgeNegativeExternal
	EdgeDisjunctive
	EdgeAuxInput
)

// Node is either a rule or an atom; which is carried in the ID's main kind
// (ids.KindRule vs ids.KindAtom), so the graph itself just keys on ids.ID.
type Edge struct {
	From, To ids.ID
	Kind     EdgeKind
}

// Graph is the dependency graph: one node per rule and per atom appearing
// in a rule, with typed edges between them.
type Graph struct {
	nodes     map[ids.ID]struct{}
	adj       map[ids.ID]map[ids.ID]EdgeKind
	edgeKinds map[edgeKey][]EdgeKind
	order     []ids.ID // first-seen insertion order, for deterministic iteration
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[ids.ID]struct{}),
		adj:       make(map[ids.ID]map[ids.ID]EdgeKind),
		edgeKinds: make(map[edgeKey][]EdgeKind),
	}
}

func (g *Graph) addNode(id ids.ID) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	g.order = append(g.order, id)
}

// AddEdge inserts a typed edge from -> to, adding either endpoint as a node
// if not already present. Adding the same (from, to) pair again with a
// different kind records that kind too (an edge can simultaneously be,
// e.g., disjunctive and negative if multiple rules justify it): every kind
// added for the same pair is appended to a per-pair list, queried with
// AllEdgeKinds and HasNegativeEdgeBetween.
func (g *Graph) AddEdge(from, to ids.ID, kind EdgeKind) {
	g.addNode(from)
	g.addNode(to)
	m, ok := g.adj[from]
	if !ok {
		m = make(map[ids.ID]EdgeKind)
		g.adj[from] = m
	}
	// Merge: once an edge exists between from->to we keep the union of
	// polarity information by preferring to keep negative-marked kinds,
	// since negative dependency is the one safety/stratification cares
	// about; callers needing full multiplicity should use AllEdgeKinds.
	if _, has := m[to]; !has || kind == EdgeNegativeRegular || kind == EdgeNegativeExternal {
		m[to] = kind
	}
	g.edgeKinds[edgeKey{from, to}] = append(g.edgeKinds[edgeKey{from, to}], kind)
}

type edgeKey struct{ from, to ids.ID }

// Nodes returns all nodes in first-seen order.
func (g *Graph) Nodes() []ids.ID { return append([]ids.ID(nil), g.order...) }

// Successors returns the set of nodes `from` has an edge to.
func (g *Graph) Successors(from ids.ID) map[ids.ID]EdgeKind {
	return g.adj[from]
}

// HasNegativeEdgeBetween reports whether any edge from->to recorded is a
// negative-regular or negative-external edge.
func (g *Graph) HasNegativeEdgeBetween(from, to ids.ID) bool {
	for _, k := range g.edgeKinds[edgeKey{from, to}] {
		if k == EdgeNegativeRegular || k == EdgeNegativeExternal {
			return true
		}
	}
	return false
}

// AllEdgeKinds returns every kind recorded for the from->to pair (an edge
// can be justified by more than one rule with different polarities).
func (g *Graph) AllEdgeKinds(from, to ids.ID) []EdgeKind {
	return append([]EdgeKind(nil), g.edgeKinds[edgeKey{from, to}]...)
}
