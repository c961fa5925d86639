package online

import (
	"context"
	"testing"

	"github.com/gitrdm/hexeval/pkg/hex/compgraph"
	"github.com/gitrdm/hexeval/pkg/hex/evalgraph"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/modelgen"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// fixedFactory always yields the same fixed sequence of models,
// regardless of the input it is given, so join behavior can be pinned
// down precisely without involving a real solver.
type fixedFactory struct {
	models [][]*interp.Interpretation // one slice of models per Create call, consumed in order
	call   int
}

func (f *fixedFactory) Create(input *interp.Interpretation) (modelgen.ModelGenerator, error) {
	var ms []*interp.Interpretation
	if f.call < len(f.models) {
		ms = f.models[f.call]
	}
	f.call++
	return &fixedMG{models: ms}, nil
}

type fixedMG struct {
	models []*interp.Interpretation
	pos    int
}

func (g *fixedMG) NextModel(ctx context.Context) (*interp.Interpretation, bool, error) {
	if g.pos >= len(g.models) {
		return nil, false, nil
	}
	m := g.models[g.pos]
	g.pos++
	return m, true, nil
}

func withBit(addr uint32) *interp.Interpretation {
	m := interp.New()
	m.Set(addr)
	return m
}

func emptyComponent() *compgraph.Component {
	return &compgraph.Component{DefinedPredicates: make(map[ids.ID]struct{})}
}

// TestLeafUnitYieldsEachFactoryModelOnce: a leaf unit (no predecessors)
// has M_in = [∅], so its M_out is exactly its factory's own stream.
func TestLeafUnitYieldsEachFactoryModelOnce(t *testing.T) {
	reg := registry.New()
	p := reg.StoreConstant("p", false)
	q := reg.StoreConstant("q", false)
	pa, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{p})
	qa, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{q})

	graph := &evalgraph.Graph{Units: []*evalgraph.Unit{
		{Index: 0, Component: emptyComponent()},
	}}
	factory := &fixedFactory{models: [][]*interp.Interpretation{
		{withBit(pa.Address), withBit(qa.Address)},
	}}
	b := NewBuilder(reg, graph, []modelgen.Factory{factory}, true)

	m0, ok, err := b.NextAnswer(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected first answer, got ok=%v err=%v", ok, err)
	}
	if !m0.Test(pa.Address) {
		t.Fatalf("expected first model to contain p")
	}
	m1, ok, err := b.NextAnswer(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected second answer, got ok=%v err=%v", ok, err)
	}
	if !m1.Test(qa.Address) {
		t.Fatalf("expected second model to contain q")
	}
	_, ok, err = b.NextAnswer(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected the stream to be exhausted after two models")
	}
}

// TestTwoPredecessorsOdometerOrder: a unit with two predecessors (no
// CAU between them) should enumerate the Cartesian product in odometer
// order, rightmost predecessor cycling fastest.
func TestTwoPredecessorsOdometerOrder(t *testing.T) {
	reg := registry.New()
	x := reg.StoreConstant("x", false)
	y := reg.StoreConstant("y", false)
	x1, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{x, reg.StoreConstant("1", false)})
	x2, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{x, reg.StoreConstant("2", false)})
	y1, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{y, reg.StoreConstant("a", false)})
	y2, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{y, reg.StoreConstant("b", false)})

	leftUnit := &evalgraph.Unit{Index: 0, Component: emptyComponent()}
	rightUnit := &evalgraph.Unit{Index: 1, Component: emptyComponent()}
	joinUnit := &evalgraph.Unit{Index: 2, Component: emptyComponent(), Predecessors: []evalgraph.PredecessorEdge{
		{Predecessor: 0, JoinOrder: 0},
		{Predecessor: 1, JoinOrder: 1},
	}}
	graph := &evalgraph.Graph{Units: []*evalgraph.Unit{leftUnit, rightUnit, joinUnit}}

	leftFactory := &fixedFactory{models: [][]*interp.Interpretation{{withBit(x1.Address), withBit(x2.Address)}}}
	rightFactory := &fixedFactory{models: [][]*interp.Interpretation{{withBit(y1.Address), withBit(y2.Address)}}}
	joinFactory := &passthroughFactory{}

	b := NewBuilder(reg, graph, []modelgen.Factory{leftFactory, rightFactory, joinFactory}, true)

	var got []bool
	for i := 0; i < 4; i++ {
		m, ok, err := b.NextAnswer(context.Background())
		if err != nil || !ok {
			t.Fatalf("expected model %d, got ok=%v err=%v", i, ok, err)
		}
		got = append(got, m.Test(x1.Address), m.Test(y1.Address))
	}
	want := [][2]bool{
		{true, true},   // x1,y1
		{true, false},  // x1,y2
		{false, true},  // x2,y1
		{false, false}, // x2,y2
	}
	for i, w := range want {
		if got[2*i] != w[0] || got[2*i+1] != w[1] {
			t.Fatalf("combo %d: expected (x1=%v,y1=%v), got (x1=%v,y1=%v)", i, w[0], w[1], got[2*i], got[2*i+1])
		}
	}
	_, ok, err := b.NextAnswer(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected exactly 4 joined combinations")
	}
}

// passthroughFactory's model generator just unions whatever input it was
// given as its single model, letting tests observe the joined tuple fed
// to a downstream unit.
type passthroughFactory struct{}

func (passthroughFactory) Create(input *interp.Interpretation) (modelgen.ModelGenerator, error) {
	return &passthroughMG{input: input}, nil
}

type passthroughMG struct {
	input *interp.Interpretation
	done  bool
}

func (g *passthroughMG) NextModel(ctx context.Context) (*interp.Interpretation, bool, error) {
	if g.done {
		return nil, false, nil
	}
	g.done = true
	return g.input.Clone(), true, nil
}

// TestCAUMismatchSkipsCombination: when two predecessors share a common
// ancestor unit, only combinations agreeing on that ancestor's defined
// predicates should reach the downstream join.
func TestCAUMismatchSkipsCombination(t *testing.T) {
	reg := registry.New()
	shared := reg.StoreConstant("shared", false)
	tagA := reg.StoreConstant("a", false)
	tagB := reg.StoreConstant("b", false)
	sharedA, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{shared, tagA})
	sharedB, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{shared, tagB})

	ancestorComp := emptyComponent()
	ancestorComp.DefinedPredicates[shared] = struct{}{}
	ancestor := &evalgraph.Unit{Index: 0, Component: ancestorComp}

	// left and right each re-emit one of the ancestor's two facts,
	// simulating two branches that forked from a shared predecessor and
	// each only propagated one alternative forward.
	left := &evalgraph.Unit{Index: 1, Component: emptyComponent(), Predecessors: []evalgraph.PredecessorEdge{{Predecessor: 0, JoinOrder: 0}}}
	right := &evalgraph.Unit{Index: 2, Component: emptyComponent(), Predecessors: []evalgraph.PredecessorEdge{{Predecessor: 0, JoinOrder: 0}}}
	join := &evalgraph.Unit{Index: 3, Component: emptyComponent(), Predecessors: []evalgraph.PredecessorEdge{
		{Predecessor: 1, JoinOrder: 0},
		{Predecessor: 2, JoinOrder: 1},
	}}
	graph := &evalgraph.Graph{Units: []*evalgraph.Unit{ancestor, left, right, join}}

	ancestorFactory := &fixedFactory{models: [][]*interp.Interpretation{{withBit(sharedA.Address), withBit(sharedB.Address)}}}
	leftFactory := &passthroughFactory{}
	rightFactory := &passthroughFactory{}
	joinFactory := &passthroughFactory{}

	b := NewBuilder(reg, graph, []modelgen.Factory{ancestorFactory, leftFactory, rightFactory, joinFactory}, true)

	count := 0
	for {
		m, ok, err := b.NextAnswer(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		if m.Test(sharedA.Address) && m.Test(sharedB.Address) {
			t.Fatal("expected CAU agreement to forbid mixing sharedA and sharedB in one joined model")
		}
		count++
		if count > 10 {
			t.Fatal("runaway iteration: CAU filtering did not converge")
		}
	}
	if count != 2 {
		t.Fatalf("expected exactly 2 agreeing combinations (AA, BB), got %d", count)
	}
}
