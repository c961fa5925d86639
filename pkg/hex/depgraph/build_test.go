package depgraph

import (
	"testing"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// TestBuildFromRulesLinksRecursivePredicate reproduces
// compgraph_test.go's hand-built reachability scenario, checking that
// BuildFromRules derives the same back-edge a manual caller would add:
// reach(Y) in the body depends back on the rule defining reach/1.
func TestBuildFromRulesLinksRecursivePredicate(t *testing.T) {
	reg := registry.New()
	reachP := reg.StoreConstant("reach", false)
	edgeP := reg.StoreConstant("edge", false)
	x := reg.StoreVariable("X", false)
	y := reg.StoreVariable("Y", false)

	headReachX, _ := reg.StoreOrdinaryNongroundAtom([]ids.ID{reachP, x})
	bodyEdgeXY, _ := reg.StoreOrdinaryNongroundAtom([]ids.ID{edgeP, x, y})
	bodyReachY, _ := reg.StoreOrdinaryNongroundAtom([]ids.ID{reachP, y})
	recRule := reg.StoreRule([]ids.ID{headReachX}, []registry.Literal{{Atom: bodyEdgeXY}, {Atom: bodyReachY}})

	s := reg.StoreConstant("s", false)
	headReachS, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{reachP, s})
	baseRule := reg.StoreRule([]ids.ID{headReachS}, nil)

	g := BuildFromRules(reg, []ids.ID{recRule, baseRule})

	if kind, ok := g.Successors(recRule)[bodyReachY]; !ok || kind != EdgePositiveRegular {
		t.Fatalf("expected rule->body edge to bodyReachY, got ok=%v kind=%v", ok, kind)
	}
	if _, ok := g.Successors(bodyReachY)[recRule]; !ok {
		t.Fatal("expected bodyReachY to depend back on the recursive rule defining reach/1")
	}
	if _, ok := g.Successors(bodyReachY)[baseRule]; !ok {
		t.Fatal("expected bodyReachY to depend back on the base rule defining reach/1")
	}
}

func TestBuildFromRulesMarksDisjunctiveAndNegativeEdges(t *testing.T) {
	reg := registry.New()
	planP := reg.StoreConstant("plan", false)
	blockedP := reg.StoreConstant("blocked", false)
	a := reg.StoreConstant("a", false)
	b := reg.StoreConstant("b", false)
	ha, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{planP, a})
	hb, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{planP, b})
	blocked, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{blockedP, a})
	rule := reg.StoreRule([]ids.ID{ha, hb}, []registry.Literal{{Atom: blocked, NAF: true}})

	g := BuildFromRules(reg, []ids.ID{rule})

	if kind := g.Successors(rule)[ha]; kind != EdgeDisjunctive {
		t.Fatalf("expected disjunctive head edge, got %v", kind)
	}
	if kind := g.Successors(rule)[blocked]; kind != EdgeNegativeRegular {
		t.Fatalf("expected negative-regular body edge, got %v", kind)
	}
}
