// Package compgraph condenses a dependency graph into components (spec
// §4.3, component C5): one node per SCC of the dependency graph, with
// metadata (monotonicity, stratification, disjunctive heads, recursive
// aggregates, fixed domain) computed per component.
//
// Grounded on the teacher's SLGEngine strata map (pkg/minikanren/
// slg_engine.go: "strata map[string]int") for the per-predicate
// stratification idea, generalized here to per-rule stratified-literal
// sets since HEX stratification is checked per rule, not per predicate.
package compgraph

import (
	"fmt"

	"github.com/gitrdm/hexeval/pkg/hex/depgraph"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// Component is one collapsed unit of the dependency graph's SCC
// condensation, carrying the metadata §4.3's calculateComponents derives.
type Component struct {
	Index int

	InnerRules         []ids.ID
	InnerConstraints   []ids.ID // subset of InnerRules with an empty head
	InnerExternalAtoms []ids.ID
	OuterExternalAtoms []ids.ID // external atoms depended on but defined in an earlier component
	DefinedPredicates  map[ids.ID]struct{}

	DisjunctiveHeads               bool
	NegativeDependencyBetweenRules bool
	InnerEatomsNonmonotonic        bool
	OuterEatomsNonmonotonic        bool
	ComponentIsMonotonic           bool
	FixedDomain                    bool
	RecursiveAggregates            bool

	// StratifiedLiterals[ruleID] is the subset of that rule's body
	// literals whose predicate is defined in a strictly earlier
	// component.
	StratifiedLiterals map[ids.ID][]registry.Literal
}

// Graph is the component graph: the SCC condensation of a dependency
// graph, in the same reverse-topological order Tarjan produced its SCCs.
type Graph struct {
	Components []*Component
	// indexOf maps a dependency-graph node to the component index that
	// contains it.
	indexOf map[ids.ID]int
}

// ExtPropsLookup resolves an external atom's declared source properties,
// supplied by whatever plugin-registration mechanism sits above this
// module (out of scope per spec §6).
type ExtPropsLookup func(externalAtomID ids.ID) plugin.ExtSourceProperties

// Build condenses dep into a component graph and computes metadata for
// every component, given the registry that owns the rules/atoms dep's
// nodes reference and a way to look up external atoms' declared
// properties.
func Build(dep *depgraph.Graph, reg *registry.Registry, extProps ExtPropsLookup) *Graph {
	sccs := depgraph.Tarjan(dep)
	g := &Graph{indexOf: make(map[ids.ID]int)}

	for i, scc := range sccs {
		comp := &Component{Index: i, DefinedPredicates: make(map[ids.ID]struct{}), StratifiedLiterals: make(map[ids.ID][]registry.Literal)}
		for _, n := range scc.Nodes {
			g.indexOf[n] = i
			if n.Main() == ids.KindRule {
				comp.InnerRules = append(comp.InnerRules, n)
			}
		}
		g.Components = append(g.Components, comp)
	}

	for i, comp := range g.Components {
		calculateComponent(g, i, comp, dep, reg, extProps)
	}
	return g
}

// IndexOf reports which component a dependency-graph node (rule or atom)
// was condensed into, for callers (cmd/hexeval's pipeline wiring) that
// need to derive evalgraph.Build's predecessor function from the same
// dependency graph that produced g.
func (g *Graph) IndexOf(id ids.ID) (int, bool) {
	i, ok := g.indexOf[id]
	return i, ok
}

func ruleHeadAtomsEmpty(rule registry.Rule) bool { return len(rule.Head) == 0 }

func isExternalAtomID(id ids.ID) bool {
	return id.Main() == ids.KindAtom && id.Sub() == ids.SubExternal
}

func calculateComponent(g *Graph, idx int, comp *Component, dep *depgraph.Graph, reg *registry.Registry, extProps ExtPropsLookup) {
	innerPredicates := make(map[ids.ID]struct{})
	seenExternal := make(map[ids.ID]struct{})

	for _, ruleID := range comp.InnerRules {
		rule, ok := reg.Rule(ruleID)
		if !ok {
			continue
		}
		if ruleHeadAtomsEmpty(rule) {
			comp.InnerConstraints = append(comp.InnerConstraints, ruleID)
		}
		if len(rule.Head) >= 2 {
			comp.DisjunctiveHeads = true
		}
		for _, h := range rule.Head {
			if atom, ok := reg.GroundAtom(h); ok {
				innerPredicates[atom.Tuple[0]] = struct{}{}
				comp.DefinedPredicates[atom.Tuple[0]] = struct{}{}
			} else if atom, ok := reg.NongroundAtom(h); ok {
				innerPredicates[atom.Tuple[0]] = struct{}{}
				comp.DefinedPredicates[atom.Tuple[0]] = struct{}{}
			}
		}

		var stratified []registry.Literal
		for _, lit := range rule.Body {
			if isExternalAtomID(lit.Atom) {
				if _, dup := seenExternal[lit.Atom]; !dup {
					seenExternal[lit.Atom] = struct{}{}
					if g.indexOf[lit.Atom] == idx {
						comp.InnerExternalAtoms = append(comp.InnerExternalAtoms, lit.Atom)
					} else {
						comp.OuterExternalAtoms = append(comp.OuterExternalAtoms, lit.Atom)
					}
				}
				props := extProps(lit.Atom)
				nonmono := false
				for i := range props.Monotonic {
					if props.IsNonmonotonicInput(i) {
						nonmono = true
						break
					}
				}
				if g.indexOf[lit.Atom] == idx {
					comp.InnerEatomsNonmonotonic = comp.InnerEatomsNonmonotonic || nonmono
				} else {
					comp.OuterEatomsNonmonotonic = comp.OuterEatomsNonmonotonic || nonmono
				}
				continue
			}

			// Negative dependency between rules in the same SCC: the
			// literal's predicate is defined by an inner rule and the
			// literal is negated.
			if lit.NAF && dep.HasNegativeEdgeBetween(ruleID, lit.Atom) && g.indexOf[lit.Atom] == idx {
				comp.NegativeDependencyBetweenRules = true
			}

			if g.indexOf[lit.Atom] != idx {
				// Literal's atom node sits in a different (and, by SCC
				// reverse-topological order, necessarily earlier)
				// component: record it as stratified for this rule.
				stratified = append(stratified, lit)
			}
		}
		if len(stratified) > 0 {
			comp.StratifiedLiterals[ruleID] = stratified
		}
	}

	comp.ComponentIsMonotonic = !comp.DisjunctiveHeads && !comp.NegativeDependencyBetweenRules && !comp.InnerEatomsNonmonotonic
	comp.FixedDomain = computeFixedDomain(comp, extProps)
	comp.RecursiveAggregates = computeRecursiveAggregates(comp, reg)
}

// computeFixedDomain reports whether no inner external atom can invent a
// value not already bound by its input (§4.3: "no inner external atom can
// invent new values (all output positions are domain-restricted via
// input)"). Since this module does not see grounding-time value
// invention directly, it approximates via ExtSourceProperties well
// ordering: an atom is treated as not fixed-domain if it declares zero
// well-ordering pairs constraining its output (a conservative default
// matching dlvhex's fixedDomain detection, which is itself a static
// approximation).
func computeFixedDomain(comp *Component, extProps ExtPropsLookup) bool {
	for _, ea := range comp.InnerExternalAtoms {
		if len(extProps(ea).WellOrdering) == 0 {
			return false
		}
	}
	return true
}

// computeRecursiveAggregates reports whether any aggregate body literal in
// an inner rule cyclically depends on an atom it aggregates over — i.e.
// one of the aggregate's own body literals' predicates is defined inside
// this same component.
func computeRecursiveAggregates(comp *Component, reg *registry.Registry) bool {
	for _, ruleID := range comp.InnerRules {
		rule, ok := reg.Rule(ruleID)
		if !ok {
			continue
		}
		for _, lit := range rule.Body {
			if lit.Atom.Main() != ids.KindTerm || lit.Atom.Sub() != ids.SubAggregate {
				continue
			}
			agg, ok := reg.Aggregate(lit.Atom)
			if !ok {
				continue
			}
			for _, bl := range agg.Body {
				var predID ids.ID
				if atom, ok := reg.GroundAtom(bl.Atom); ok {
					predID = atom.Tuple[0]
				} else if atom, ok := reg.NongroundAtom(bl.Atom); ok {
					predID = atom.Tuple[0]
				}
				if _, defined := comp.DefinedPredicates[predID]; defined {
					return true
				}
			}
		}
	}
	return false
}

// dependsOnIndices reports the component indices g.Components[idx]
// structurally depends on: components defining a predicate one of its
// rules reads via a stratified literal, plus components defining an
// external atom it reads as an outer external atom.
func dependsOnIndices(g *Graph, idx int) []int {
	c := g.Components[idx]
	seen := make(map[int]struct{})
	for _, lits := range c.StratifiedLiterals {
		for _, lit := range lits {
			if d, ok := g.indexOf[lit.Atom]; ok && d != idx {
				seen[d] = struct{}{}
			}
		}
	}
	for _, ea := range c.OuterExternalAtoms {
		if d, ok := g.indexOf[ea]; ok && d != idx {
			seen[d] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	return out
}

// collapseCreatesCycle reports whether merging originals into a single
// component would create a dependency cycle: some component reachable
// from the merged set (something the merged set depends on, directly or
// transitively, through components outside the merged set) itself
// depends back on one of the merged originals.
func collapseCreatesCycle(g *Graph, originals []int) bool {
	mergedSet := make(map[int]struct{}, len(originals))
	for _, o := range originals {
		mergedSet[o] = struct{}{}
	}

	reachable := make(map[int]struct{})
	var stack []int
	for _, o := range originals {
		stack = append(stack, o)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range dependsOnIndices(g, cur) {
			if _, inMerged := mergedSet[d]; inMerged {
				continue
			}
			if _, visited := reachable[d]; visited {
				continue
			}
			reachable[d] = struct{}{}
			stack = append(stack, d)
		}
	}

	for r := range reachable {
		for _, d := range dependsOnIndices(g, r) {
			if _, inMerged := mergedSet[d]; inMerged {
				return true
			}
		}
	}
	return false
}

// Collapse merges originals into one new component and copies shared
// (constraint-only) components into the merged result, rejecting any
// collapse that would create a cycle among the remaining components.
//
// "Copies" shared components rather than moving them, per spec §4.3,
// since a constraint-only component has no head atoms other units could
// depend on and is therefore safe to duplicate across units that both
// need to check it.
func Collapse(g *Graph, originals []int, shared []int) (*Component, error) {
	if collapseCreatesCycle(g, originals) {
		return nil, fmt.Errorf("compgraph: collapsing components %v would create a cycle", originals)
	}

	merged := &Component{DefinedPredicates: make(map[ids.ID]struct{}), StratifiedLiterals: make(map[ids.ID][]registry.Literal)}
	all := append(append([]int(nil), originals...), shared...)
	for _, idx := range all {
		c := g.Components[idx]
		merged.InnerRules = append(merged.InnerRules, c.InnerRules...)
		merged.InnerConstraints = append(merged.InnerConstraints, c.InnerConstraints...)
		merged.InnerExternalAtoms = append(merged.InnerExternalAtoms, c.InnerExternalAtoms...)
		merged.OuterExternalAtoms = append(merged.OuterExternalAtoms, c.OuterExternalAtoms...)
		for p := range c.DefinedPredicates {
			merged.DefinedPredicates[p] = struct{}{}
		}
		for r, lits := range c.StratifiedLiterals {
			merged.StratifiedLiterals[r] = lits
		}
		merged.DisjunctiveHeads = merged.DisjunctiveHeads || c.DisjunctiveHeads
		merged.NegativeDependencyBetweenRules = merged.NegativeDependencyBetweenRules || c.NegativeDependencyBetweenRules
		merged.InnerEatomsNonmonotonic = merged.InnerEatomsNonmonotonic || c.InnerEatomsNonmonotonic
		merged.OuterEatomsNonmonotonic = merged.OuterEatomsNonmonotonic || c.OuterEatomsNonmonotonic
		merged.RecursiveAggregates = merged.RecursiveAggregates || c.RecursiveAggregates
	}
	merged.ComponentIsMonotonic = !merged.DisjunctiveHeads && !merged.NegativeDependencyBetweenRules && !merged.InnerEatomsNonmonotonic
	merged.FixedDomain = true
	for _, idx := range all {
		merged.FixedDomain = merged.FixedDomain && g.Components[idx].FixedDomain
	}
	return merged, nil
}
