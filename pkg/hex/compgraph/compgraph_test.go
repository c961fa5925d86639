package compgraph

import (
	"testing"

	"github.com/gitrdm/hexeval/pkg/hex/depgraph"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

func noExtProps(ids.ID) plugin.ExtSourceProperties { return plugin.ExtSourceProperties{} }

// buildReachability constructs the scenario-2 program from spec.md §8:
// reach(X) :- edge(X,Y), reach(Y). reach(s). EDB edge(s,t). edge(t,u).
func buildReachability(t *testing.T) (*registry.Registry, *depgraph.Graph, ids.ID /*reach/1 rule*/) {
	t.Helper()
	reg := registry.New()
	reachP := reg.StoreConstant("reach", false)
	edgeP := reg.StoreConstant("edge", false)
	x := reg.StoreVariable("X", false)
	y := reg.StoreVariable("Y", false)

	headReachX, _ := reg.StoreOrdinaryNongroundAtom([]ids.ID{reachP, x})
	bodyEdgeXY, _ := reg.StoreOrdinaryNongroundAtom([]ids.ID{edgeP, x, y})
	bodyReachY, _ := reg.StoreOrdinaryNongroundAtom([]ids.ID{reachP, y})

	recRule := reg.StoreRule([]ids.ID{headReachX}, []registry.Literal{{Atom: bodyEdgeXY}, {Atom: bodyReachY}})

	dep := depgraph.New()
	dep.AddEdge(recRule, bodyEdgeXY, depgraph.EdgePositiveRegular)
	dep.AddEdge(recRule, bodyReachY, depgraph.EdgePositiveRegular)
	// reach(Y) in the body depends on the same predicate as the head, so
	// in a fully ground dependency graph bodyReachY and headReachX's
	// ground instances would form a cycle; here we approximate that by
	// adding an edge back from the body atom node to the rule,
	// reflecting "rule derives atoms of this predicate".
	dep.AddEdge(bodyReachY, recRule, depgraph.EdgePositiveRegular)

	return reg, dep, recRule
}

func TestBuildDetectsRecursiveComponent(t *testing.T) {
	reg, dep, recRule := buildReachability(t)
	g := Build(dep, reg, noExtProps)

	found := false
	for _, c := range g.Components {
		for _, r := range c.InnerRules {
			if r == recRule {
				found = true
				reachP := reg.StoreConstant("reach", false)
				y := reg.StoreVariable("Y", false)
				bodyReachY, _ := reg.StoreOrdinaryNongroundAtom([]ids.ID{reachP, y})
				if idx, ok := g.IndexOf(bodyReachY); !ok || idx != c.Index {
					t.Fatalf("expected the recursive rule to be grouped with its dependency")
				}
			}
		}
	}
	if !found {
		t.Fatalf("recursive rule not found in any component")
	}
}

func TestDisjunctiveHeadsFlag(t *testing.T) {
	reg := registry.New()
	planP := reg.StoreConstant("plan", false)
	a := reg.StoreConstant("a", false)
	b := reg.StoreConstant("b", false)
	ha, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{planP, a})
	hb, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{planP, b})
	rule := reg.StoreRule([]ids.ID{ha, hb}, nil)

	dep := depgraph.New()
	dep.AddEdge(rule, ha, depgraph.EdgeDisjunctive)
	dep.AddEdge(rule, hb, depgraph.EdgeDisjunctive)

	g := Build(dep, reg, noExtProps)
	var comp *Component
	for _, c := range g.Components {
		for _, r := range c.InnerRules {
			if r == rule {
				comp = c
			}
		}
	}
	if comp == nil {
		t.Fatal("component containing the disjunctive rule not found")
	}
	if !comp.DisjunctiveHeads {
		t.Fatalf("expected DisjunctiveHeads=true for a 2-atom head")
	}
	if comp.ComponentIsMonotonic {
		t.Fatalf("a disjunctive component must not be classified monotonic")
	}
}

func TestCollapseRejectsCycle(t *testing.T) {
	reg := registry.New()
	p := reg.StoreConstant("p", false)
	q := reg.StoreConstant("q", false)
	r := reg.StoreConstant("r", false)
	a := reg.StoreConstant("a", false)

	pAtom, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{p, a})
	qAtom, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{q, a})
	rAtom, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{r, a})

	// rA: p(a).
	rA := reg.StoreRule([]ids.ID{pAtom}, nil)
	// rC: r(a) :- p(a).
	rC := reg.StoreRule([]ids.ID{rAtom}, []registry.Literal{{Atom: pAtom}})
	// rB: q(a) :- r(a).
	rB := reg.StoreRule([]ids.ID{qAtom}, []registry.Literal{{Atom: rAtom}})

	dep := depgraph.BuildFromRules(reg, []ids.ID{rA, rC, rB})
	g := Build(dep, reg, noExtProps)

	idxA, ok := g.IndexOf(rA)
	if !ok {
		t.Fatalf("rA not assigned a component")
	}
	idxB, ok := g.IndexOf(rB)
	if !ok {
		t.Fatalf("rB not assigned a component")
	}
	idxC, ok := g.IndexOf(rC)
	if !ok {
		t.Fatalf("rC not assigned a component")
	}
	if idxA == idxC || idxC == idxB || idxA == idxB {
		t.Fatalf("expected rA, rC, rB in three distinct components, got %d %d %d", idxA, idxC, idxB)
	}

	// Collapsing rA's and rB's components skips over rC's component,
	// which sits between them in the dependency chain p -> r -> q: rB
	// depends on rC's component, and rC's component depends on rA's.
	// Merging rA and rB without rC closes that into a cycle.
	if _, err := Collapse(g, []int{idxA, idxB}, nil); err == nil {
		t.Fatalf("expected Collapse to reject a cycle-inducing merge")
	}
}

func TestCollapsePreservesOriginalsAndShared(t *testing.T) {
	reg := registry.New()
	p := reg.StoreConstant("p", false)
	q := reg.StoreConstant("q", false)
	a := reg.StoreConstant("a", false)
	hp, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{p, a})
	hq, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{q, a})
	r1 := reg.StoreRule([]ids.ID{hp}, nil)
	r2 := reg.StoreRule([]ids.ID{hq}, nil)
	constraintRule := reg.StoreRule(nil, []registry.Literal{{Atom: hp}})

	dep := depgraph.New()
	dep.AddEdge(r1, hp, depgraph.EdgePositiveRegular)
	dep.AddEdge(r2, hq, depgraph.EdgePositiveRegular)
	dep.AddEdge(constraintRule, hp, depgraph.EdgePositiveRegular)

	g := Build(dep, reg, noExtProps)
	merged, err := Collapse(g, []int{0}, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.InnerRules) == 0 {
		t.Fatalf("expected merged component to carry inner rules from both originals and shared")
	}
}
