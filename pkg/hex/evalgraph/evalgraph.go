// Package evalgraph builds the evaluation graph (spec §4.5, component
// C7): a DAG of evaluation units, each a collapsed set of components,
// connected to their predecessor units by join-order-numbered edges, and
// assigned a model-generator factory chosen by the table in §4.5.
//
// Grounded on the teacher's stratum assignment in pkg/minikanren/
// slg_engine.go (SLGEngine.strata/SetStrata/Stratum plus
// EnforceStratification): a per-predicate stratum computed ahead of time
// from static dependency structure, then used to order/restrict
// evaluation so a lower stratum is always resolved before a higher one
// may depend on it. evalgraph.Build does the same thing one level up —
// turning compgraph's already-condensed, already-stratified components
// into an ordered DAG of evaluation units before any model generator
// runs.
package evalgraph

import (
	"fmt"

	"github.com/gitrdm/hexeval/pkg/hex/compgraph"
)

// FactoryKind names which built-in model-generator family a unit uses.
type FactoryKind int

const (
	FactoryPlain FactoryKind = iota
	FactoryWellfounded
	FactoryGuessAndCheck
)

func (k FactoryKind) String() string {
	switch k {
	case FactoryPlain:
		return "plain"
	case FactoryWellfounded:
		return "wellfounded"
	case FactoryGuessAndCheck:
		return "guess-and-check"
	default:
		return "unknown"
	}
}

// PredecessorEdge is one edge from a unit to a predecessor unit, numbered
// by join order for the online model builder (§4.10).
type PredecessorEdge struct {
	Predecessor int // index into Graph.Units
	JoinOrder   int
}

// Unit is one evaluation unit: a component (or, after a later Collapse
// upstream, a merged component), its predecessors, and its chosen
// model-generator factory.
type Unit struct {
	Index        int
	Component    *compgraph.Component
	Predecessors []PredecessorEdge
	Factory      FactoryKind
}

// Graph is the evaluation graph: units in an order where every unit's
// predecessors have a strictly smaller index (a topological order
// consistent with the component graph's reverse-SCC order).
type Graph struct {
	Units []*Unit
}

// CustomModelGeneratorProvider lets a caller override the factory-choice
// table entirely for specific components (spec §4.5: "A user may inject
// a CustomModelGeneratorProvider to override the entire choice").
type CustomModelGeneratorProvider func(c *compgraph.Component) (FactoryKind, bool)

// BuildOptions configures graph construction.
type BuildOptions struct {
	// ForceGC always selects GuessAndCheck, overriding the precondition
	// table (spec §4.5).
	ForceGC bool
	// CustomProvider, if non-nil, is consulted before the built-in
	// table; returning ok=true short-circuits the default selection.
	CustomProvider CustomModelGeneratorProvider
}

// chooseFactory implements the §4.5 precondition table.
func chooseFactory(c *compgraph.Component, opts BuildOptions) FactoryKind {
	if opts.CustomProvider != nil {
		if kind, ok := opts.CustomProvider(c); ok {
			return kind
		}
	}
	if opts.ForceGC {
		return FactoryGuessAndCheck
	}
	if len(c.InnerExternalAtoms) == 0 {
		return FactoryPlain
	}
	if !c.DisjunctiveHeads && !c.NegativeDependencyBetweenRules && !c.InnerEatomsNonmonotonic && !c.RecursiveAggregates {
		return FactoryWellfounded
	}
	return FactoryGuessAndCheck
}

// Build constructs the evaluation graph from a component graph, assuming
// the component graph's component order is already a valid reverse
// dependency order (true of compgraph.Build's Tarjan-derived ordering).
// depends reports, for a given unit's component, which earlier component
// indices it has a dependency edge to — callers typically derive this
// from the same depgraph.Graph that produced the component graph, by
// checking whether any inner rule's body literal's predicate is defined
// in another component.
func Build(cg *compgraph.Graph, depends func(componentIndex int) []int, opts BuildOptions) *Graph {
	g := &Graph{}
	for i, comp := range cg.Components {
		u := &Unit{Index: i, Component: comp, Factory: chooseFactory(comp, opts)}
		preds := depends(i)
		for order, p := range preds {
			if p >= i {
				continue // skip non-earlier "dependencies": cannot be a DAG predecessor
			}
			u.Predecessors = append(u.Predecessors, PredecessorEdge{Predecessor: p, JoinOrder: order})
		}
		g.Units = append(g.Units, u)
	}
	return g
}

// FinalUnit returns the artificial sink unit index: the last unit in
// topological order is, by construction, depended on by nothing and acts
// as Ufinal once every other unit feeds into it (spec §4.10 step 4). If
// the graph has multiple independent sinks, callers should add an
// explicit sink unit; Build does not synthesize one since the component
// graph may legitimately have several unconnected roots in small test
// programs.
func (g *Graph) FinalUnit() (int, error) {
	if len(g.Units) == 0 {
		return 0, fmt.Errorf("evalgraph: empty graph has no final unit")
	}
	return len(g.Units) - 1, nil
}
