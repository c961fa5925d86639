package modelgen

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

func noLookup(ids.ID) (plugin.PluginAtom, bool) { return nil, false }

// TestPlainMGWithNoRulesYieldsOnceProjectingInputMask: an empty unit
// (no inner rules) simply yields its projected input once, per §4.6 step
// 3's "no rule IDB -> yield I with the input mask removed".
func TestPlainMGWithNoRulesYieldsOnceProjectingInputMask(t *testing.T) {
	reg := registry.New()
	p := reg.StoreConstant("p", false)
	a := reg.StoreConstant("a", false)
	fact, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{p, a})

	mask := interp.New()
	mask.Set(fact.Address)

	factory := &PlainFactory{
		Registry:  reg,
		Evaluator: external.NewEvaluator(reg, config.Default()),
		Solver:    asp.NewNaiveSolver(reg),
		InputMask: mask,
	}
	input := interp.New()
	input.Set(fact.Address)

	mg, err := factory.Create(input)
	if err != nil {
		t.Fatal(err)
	}
	m, more, err := mg.NextModel(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !more {
		t.Fatal("expected one model")
	}
	if m.Test(fact.Address) {
		t.Fatalf("expected the input-fact mask to be stripped from the yielded model")
	}
	_, more, err = mg.NextModel(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if more {
		t.Fatal("expected exactly one model from a no-rule unit")
	}
}

// TestPlainMGSolvesIDBAgainstInput exercises the full plain path: a
// simple derivation rule over a fact already in the unit's input.
func TestPlainMGSolvesIDBAgainstInput(t *testing.T) {
	reg := registry.New()
	p := reg.StoreConstant("p", false)
	q := reg.StoreConstant("q", false)
	a := reg.StoreConstant("a", false)
	pa, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{p, a})
	qa, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{q, a})
	rule := reg.StoreRule([]ids.ID{qa}, []registry.Literal{{Atom: pa}})

	factory := &PlainFactory{
		Registry:  reg,
		Rules:     []ids.ID{rule},
		Evaluator: external.NewEvaluator(reg, config.Default()),
		Solver:    asp.NewNaiveSolver(reg),
	}
	input := interp.New()
	input.Set(pa.Address)

	mg, err := factory.Create(input)
	if err != nil {
		t.Fatal(err)
	}
	m, more, err := mg.NextModel(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !more {
		t.Fatal("expected a model")
	}
	if !m.Test(qa.Address) {
		t.Fatalf("expected q(a) derived from p(a), got %v", m)
	}
}

// TestGuessAndCheckDisjunctiveHeadYieldsTwoModels exercises §8 scenario
// 1 (plan(a) v plan(b)) through the general-case factory.
func TestGuessAndCheckDisjunctiveHeadYieldsTwoModels(t *testing.T) {
	reg := registry.New()
	plan := reg.StoreConstant("plan", false)
	a := reg.StoreConstant("a", false)
	b := reg.StoreConstant("b", false)
	pa, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{plan, a})
	pb, _ := reg.StoreOrdinaryGroundAtom([]ids.ID{plan, b})
	rule := reg.StoreRule([]ids.ID{pa, pb}, nil)

	cfg := config.Default()
	cfg.FLPCheck = config.FLPCheckNone // this scenario has no external atoms to exercise the FLP pair against
	factory := &GuessAndCheckFactory{
		Registry:  reg,
		Rules:     []ids.ID{rule},
		Evaluator: external.NewEvaluator(reg, config.Default()),
		Solver:    asp.NewNaiveSolver(reg),
		Config:    cfg,
	}
	mg, err := factory.Create(interp.New())
	if err != nil {
		t.Fatal(err)
	}
	var models []*interp.Interpretation
	for {
		m, more, err := mg.NextModel(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
		models = append(models, m)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
}
