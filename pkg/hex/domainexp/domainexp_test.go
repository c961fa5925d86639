package domainexp

import (
	"context"
	"testing"

	"github.com/gitrdm/hexeval/pkg/hex/asp"
	"github.com/gitrdm/hexeval/pkg/hex/config"
	"github.com/gitrdm/hexeval/pkg/hex/external"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// lookupMembersAtom echoes back, as its single output position, every
// ground argument currently asserted under the predicate named by its
// sole input — a minimal stand-in for a "give me the current extension
// of this predicate" external atom.
type lookupMembersAtom struct {
	reg *registry.Registry
}

func (m *lookupMembersAtom) Predicate() string { return "members" }
func (m *lookupMembersAtom) InputArity() int   { return 1 }
func (m *lookupMembersAtom) OutputArity() int  { return 1 }
func (m *lookupMembersAtom) InputTypeAt(int) plugin.InputType {
	return plugin.InputPredicate
}
func (m *lookupMembersAtom) ExtSourceProperties() plugin.ExtSourceProperties {
	return plugin.ExtSourceProperties{Monotonic: []bool{true}}
}
func (m *lookupMembersAtom) Retrieve(ctx context.Context, q plugin.Query, answer *plugin.Answer, sink plugin.NogoodSink) error {
	predID := q.Inputs[0]
	q.ExtInterpretation.Iterate(func(addr uint32) {
		pred, ok := m.reg.PredicateOf(addr)
		if !ok || pred != predID {
			return
		}
		args, ok := m.reg.ArgsOf(addr)
		if !ok || len(args) < 2 {
			return
		}
		answer.Tuples = append(answer.Tuples, []ids.ID{args[1]})
	})
	return nil
}
func (m *lookupMembersAtom) LearnSupportSets(context.Context, plugin.Query, plugin.NogoodSink) error {
	return nil
}

func TestExploreConvertsObservedOutputsIntoDomainFacts(t *testing.T) {
	reg := registry.New()
	itemPred := reg.StoreConstant("item", false)
	a := reg.StoreConstant("a", false)
	itemA, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{itemPred, a})

	ea := registry.ExternalAtom{
		Predicate:         reg.StoreConstant("members", false),
		Inputs:            []ids.ID{itemPred},
		Outputs:           []ids.ID{reg.StoreVariable("X", false)},
		AuxInputPredicate: ids.IDFail,
	}
	eaID := reg.StoreExternalAtom(ea)

	pa := &lookupMembersAtom{reg: reg}
	lookup := func(id ids.ID) (plugin.PluginAtom, bool) {
		if id == eaID {
			return pa, true
		}
		return nil, false
	}
	props := func(id ids.ID) plugin.ExtSourceProperties { return pa.ExtSourceProperties() }

	edb := interp.New()
	edb.Set(itemA.Address)

	explorer := NewExplorer(reg, config.Default(), external.NewEvaluator(reg, config.Default()), asp.NewNaiveSolver(reg), lookup, props, false)
	result, err := explorer.Explore(context.Background(), []ids.ID{eaID}, nil, edb)
	if err != nil {
		t.Fatal(err)
	}
	if result.DomainAtoms.Count() == 0 {
		t.Fatal("expected at least one domain fact from the observed output")
	}

	dPred, err := reg.AuxConstant(registry.AuxDomainPredicate, eaID)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	result.DomainAtoms.Iterate(func(addr uint32) {
		pred, ok := reg.PredicateOf(addr)
		if ok && pred == dPred {
			found = true
		}
	})
	if !found {
		t.Fatal("expected the domain fact's predicate to be the minted d_members auxiliary")
	}
}

// TestExploreStripsAntimonotonicInputBeforeQuerying: members' sole input
// is declared antimonotonic, so the query interpretation handed to
// Retrieve should have every item(...) fact stripped, yielding no output
// and therefore no domain facts at all.
func TestExploreStripsAntimonotonicInputBeforeQuerying(t *testing.T) {
	reg := registry.New()
	itemPred := reg.StoreConstant("item", false)
	a := reg.StoreConstant("a", false)
	itemA, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{itemPred, a})

	ea := registry.ExternalAtom{
		Predicate:         reg.StoreConstant("members", false),
		Inputs:            []ids.ID{itemPred},
		Outputs:           []ids.ID{reg.StoreVariable("X", false)},
		AuxInputPredicate: ids.IDFail,
	}
	eaID := reg.StoreExternalAtom(ea)

	pa := &lookupMembersAtom{reg: reg}
	lookup := func(id ids.ID) (plugin.PluginAtom, bool) { return pa, true }
	props := func(id ids.ID) plugin.ExtSourceProperties {
		return plugin.ExtSourceProperties{Antimonotonic: []bool{true}}
	}

	edb := interp.New()
	edb.Set(itemA.Address)

	explorer := NewExplorer(reg, config.Default(), external.NewEvaluator(reg, config.Default()), asp.NewNaiveSolver(reg), lookup, props, false)
	result, err := explorer.Explore(context.Background(), []ids.ID{eaID}, nil, edb)
	if err != nil {
		t.Fatal(err)
	}
	if result.DomainAtoms.Count() != 0 {
		t.Fatalf("expected no domain facts once the antimonotonic input is stripped, got %d", result.DomainAtoms.Count())
	}
}
