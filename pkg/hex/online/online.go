// Package online implements the online (lazy) model builder (spec
// §4.10, component C10): given an evaluation graph and one
// ModelGeneratorFactory per unit, it builds the model graph on demand,
// joining predecessor output streams in odometer order and restricting
// the join to combinations that agree on every common-ancestor unit.
//
// Grounded on the teacher's ResultStream/LazyResultStream abstraction in
// pkg/minikanren/stream.go: Take(ctx, n) pulls the next n results
// on demand, computing (or, here, generating) them only when first
// requested rather than materializing a whole result set eagerly. The
// odometer join below is a novel extension of that pull-on-demand idea
// from a single stream to an n-ary join across predecessor units, each
// advanced only as far as the join currently needs.
package online

import (
	"context"

	"github.com/gitrdm/hexeval/pkg/hex/evalgraph"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/modelgen"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// Builder lazily computes model streams over an evaluation graph.
type Builder struct {
	Registry     *registry.Registry
	Graph        *evalgraph.Graph
	Factories    []modelgen.Factory // index-aligned with Graph.Units
	RetainModels bool

	shared       map[int]*unitRuntime
	finalRuntime *unitRuntime
	finalPos     int
}

func NewBuilder(reg *registry.Registry, graph *evalgraph.Graph, factories []modelgen.Factory, retainModels bool) *Builder {
	return &Builder{
		Registry:     reg,
		Graph:        graph,
		Factories:    factories,
		RetainModels: retainModels,
		shared:       make(map[int]*unitRuntime),
	}
}

// NextAnswer pulls the next global answer, i.e. the next model of the
// evaluation graph's artificial sink unit (spec §4.10 step 4).
func (b *Builder) NextAnswer(ctx context.Context) (*interp.Interpretation, bool, error) {
	if b.finalRuntime == nil {
		idx, err := b.Graph.FinalUnit()
		if err != nil {
			return nil, false, err
		}
		b.finalRuntime = b.runtimeFor(idx)
	}
	m, ok, err := b.finalRuntime.at(ctx, b.finalPos)
	if err != nil {
		return nil, false, err
	}
	if ok {
		b.finalPos++
	}
	return m, ok, nil
}

// NextModel pulls the next model of an arbitrary unit's own M_out
// stream, the primitive the online builder composes internally and
// which callers may also use directly (e.g. to inspect an intermediate
// unit while debugging).
func (b *Builder) NextModel(ctx context.Context, unitIdx, pos int) (*interp.Interpretation, bool, error) {
	return b.runtimeFor(unitIdx).at(ctx, pos)
}

func (b *Builder) runtimeFor(unitIdx int) *unitRuntime {
	if b.RetainModels {
		if rt, ok := b.shared[unitIdx]; ok {
			return rt
		}
	}
	rt := newUnitRuntime(b, unitIdx)
	if b.RetainModels {
		b.shared[unitIdx] = rt
	}
	return rt
}

type unitRuntime struct {
	builder *Builder
	unit    *evalgraph.Unit
	factory modelgen.Factory

	predRuntimes []*unitRuntime
	causUnits    map[int]bool
	ancestorsOf  []map[int]bool // per predecessor position, its ancestor unit set (including itself)

	results      []*interp.Interpretation
	exhausted    bool
	curGen       modelgen.ModelGenerator
	comboStarted bool
	comboIdx     []int
}

func newUnitRuntime(b *Builder, unitIdx int) *unitRuntime {
	unit := b.Graph.Units[unitIdx]
	rt := &unitRuntime{builder: b, unit: unit, factory: b.Factories[unitIdx]}
	for _, p := range unit.Predecessors {
		rt.predRuntimes = append(rt.predRuntimes, b.runtimeFor(p.Predecessor))
	}
	rt.causUnits = findCAUs(b.Graph, unitIdx)
	rt.ancestorsOf = make([]map[int]bool, len(unit.Predecessors))
	for i, p := range unit.Predecessors {
		anc := ancestors(b.Graph, p.Predecessor)
		anc[p.Predecessor] = true
		rt.ancestorsOf[i] = anc
	}
	return rt
}

// at returns the i-th model of this unit's M_out stream, computing and
// caching as many models as needed to reach it.
func (rt *unitRuntime) at(ctx context.Context, i int) (*interp.Interpretation, bool, error) {
	for len(rt.results) <= i {
		if rt.exhausted {
			return nil, false, nil
		}
		m, more, err := rt.produceOne(ctx)
		if err != nil {
			return nil, false, err
		}
		if !more {
			rt.exhausted = true
			return nil, false, nil
		}
		rt.results = append(rt.results, m)
	}
	return rt.results[i], true, nil
}

func (rt *unitRuntime) produceOne(ctx context.Context) (*interp.Interpretation, bool, error) {
	for {
		if rt.curGen != nil {
			m, more, err := rt.curGen.NextModel(ctx)
			if err != nil {
				return nil, false, err
			}
			if more {
				return m, true, nil
			}
			rt.curGen = nil
		}

		combo, ok, err := rt.nextCombo(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}

		predModels := make([]*interp.Interpretation, len(combo))
		for i, idx := range combo {
			m, ok, err := rt.predRuntimes[i].at(ctx, idx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				// nextCombo validated this index already; treat as
				// exhausted defensively rather than panic.
				return nil, false, nil
			}
			predModels[i] = m
		}
		if !rt.agreesOnCAUs(predModels) {
			continue
		}

		joined := joinInput(predModels)
		gen, err := rt.factory.Create(joined)
		if err != nil {
			return nil, false, err
		}
		rt.curGen = gen
	}
}

// nextCombo advances the odometer (rightmost position increments first)
// and returns the next combination of predecessor-stream indices that
// all resolve to a real model, or ok=false once every combination is
// exhausted.
func (rt *unitRuntime) nextCombo(ctx context.Context) ([]int, bool, error) {
	n := len(rt.predRuntimes)
	if n == 0 {
		if rt.comboStarted {
			return nil, false, nil
		}
		rt.comboStarted = true
		return nil, true, nil
	}
	if !rt.comboStarted {
		rt.comboStarted = true
		rt.comboIdx = make([]int, n)
		for _, pr := range rt.predRuntimes {
			if _, ok, err := pr.at(ctx, 0); err != nil {
				return nil, false, err
			} else if !ok {
				return nil, false, nil
			}
		}
		return append([]int(nil), rt.comboIdx...), true, nil
	}

	pos := n - 1
	for {
		if pos < 0 {
			return nil, false, nil
		}
		rt.comboIdx[pos]++
		if _, ok, err := rt.predRuntimes[pos].at(ctx, rt.comboIdx[pos]); err != nil {
			return nil, false, err
		} else if ok {
			break
		}
		rt.comboIdx[pos] = 0
		pos--
	}
	return append([]int(nil), rt.comboIdx...), true, nil
}

// agreesOnCAUs reports whether predModels (one per predecessor, in
// Predecessors order) project identically onto every common-ancestor
// unit's defined predicates.
func (rt *unitRuntime) agreesOnCAUs(predModels []*interp.Interpretation) bool {
	if len(rt.causUnits) == 0 {
		return true
	}
	for cau := range rt.causUnits {
		var ref *interp.Interpretation
		defined := rt.builder.Graph.Units[cau].Component.DefinedPredicates
		for i, anc := range rt.ancestorsOf {
			if !anc[cau] {
				continue
			}
			proj := projectOntoPredicates(rt.builder.Registry, predModels[i], defined)
			if ref == nil {
				ref = proj
				continue
			}
			if !ref.Equal(proj) {
				return false
			}
		}
	}
	return true
}

func joinInput(predModels []*interp.Interpretation) *interp.Interpretation {
	out := interp.New()
	for _, m := range predModels {
		out.Union(m)
	}
	return out
}

func projectOntoPredicates(reg *registry.Registry, m *interp.Interpretation, predicates map[ids.ID]struct{}) *interp.Interpretation {
	out := interp.New()
	m.Iterate(func(addr uint32) {
		pred, ok := reg.PredicateOf(addr)
		if !ok {
			return
		}
		if _, defined := predicates[pred]; defined {
			out.Set(addr)
		}
	})
	return out
}

// ancestors returns every unit index transitively reachable from idx via
// Predecessors edges (not including idx itself).
func ancestors(g *evalgraph.Graph, idx int) map[int]bool {
	seen := make(map[int]bool)
	var walk func(int)
	walk = func(i int) {
		for _, p := range g.Units[i].Predecessors {
			if !seen[p.Predecessor] {
				seen[p.Predecessor] = true
				walk(p.Predecessor)
			}
		}
	}
	walk(idx)
	return seen
}

// findCAUs computes the common-ancestor-unit set for unitIdx: every unit
// that is an ancestor (or is itself a direct predecessor) of at least
// two of unitIdx's predecessors (spec §4.10: "computed once per unit
// with findCAUs over the evaluation graph").
func findCAUs(g *evalgraph.Graph, unitIdx int) map[int]bool {
	preds := g.Units[unitIdx].Predecessors
	count := make(map[int]int)
	for _, p := range preds {
		anc := ancestors(g, p.Predecessor)
		anc[p.Predecessor] = true
		for u := range anc {
			count[u]++
		}
	}
	caus := make(map[int]bool)
	for u, c := range count {
		if c >= 2 {
			caus[u] = true
		}
	}
	return caus
}
