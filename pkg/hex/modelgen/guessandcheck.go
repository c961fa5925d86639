package modelgen

import (
	"context"

	"github.com/gitrdm/hexeval/pkg/hex/asp"
	"github.com/gitrdm/hexeval/pkg/hex/config"
	"github.com/gitrdm/hexeval/pkg/hex/external"
	"github.com/gitrdm/hexeval/pkg/hex/herrors"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// GuessAndCheckFactory builds model generators for the general case: any
// combination of disjunctive heads, negative rule-rule dependencies, or
// nonmonotonic inner external atoms (spec §4.8).
type GuessAndCheckFactory struct {
	Registry           *registry.Registry
	Config             *config.Config
	Rules              []ids.ID
	InnerExternalAtoms []ids.ID
	OuterExternalAtoms []ids.ID
	PluginLookup       PluginLookup
	ExtProps           ExtPropsLookup
	Solver             asp.Solver
	Evaluator          *external.Evaluator
	InputMask          *interp.Interpretation
	IncludeAuxInput    bool
	NogoodSink         plugin.NogoodSink // optional; learning is skipped if nil

	// DomainAtoms, if set, is the d_p fact set produced by domain-predicate
	// exploration (package domainexp, spec §4.11). When an inner external
	// atom has a corresponding d_p atom for a given (input, output) pair,
	// its gidb guessing rule is guarded by that d_p literal instead of
	// guessing unconditionally; DomainAtoms itself is unioned into every
	// solve's EDB so the guard atoms are actually derivable.
	DomainAtoms *interp.Interpretation

	prepared     bool
	xidb         []ids.ID
	gidb         []ids.ID
	flpHeadRules []ids.ID
	flpBodyRules []ids.ID
	flpHeadAtomOf map[ids.ID]ids.ID // xidb rule ID -> its f_r atom
}

// prepare builds gidb/xidb/xidbflphead/xidbflpbody once, the way §4.8
// describes them as prepared "once per factory".
func (f *GuessAndCheckFactory) prepare() error {
	if f.prepared {
		return nil
	}
	xidb, err := rewriteRulesWithReplacements(f.Registry, f.Rules, f.IncludeAuxInput)
	if err != nil {
		return err
	}
	f.xidb = xidb

	for _, eaID := range f.InnerExternalAtoms {
		ea, ok := f.Registry.ExternalAtom(eaID)
		if !ok {
			continue
		}
		rAtom, err := replacementAtom(f.Registry, eaID, ea, true, ea.Inputs, ea.Outputs, f.IncludeAuxInput)
		if err != nil {
			return err
		}
		nAtom, err := replacementAtom(f.Registry, eaID, ea, false, ea.Inputs, ea.Outputs, f.IncludeAuxInput)
		if err != nil {
			return err
		}
		// When domain-predicate exploration (package domainexp, spec
		// §4.11) supplied a d_p fact set, the guess is guarded by the
		// matching d_p atom, and skipped entirely when exploration never
		// licensed this (input, output) pair. Without DomainAtoms the
		// guess stays unguarded, an over-approximation the compatibility
		// check in compatible() corrects for.
		if f.DomainAtoms != nil {
			dAtom, err := domainAtomFor(f.Registry, eaID, ea, f.IncludeAuxInput)
			if err != nil {
				return err
			}
			if !f.DomainAtoms.Test(dAtom.Address) {
				continue
			}
			gidbRule := f.Registry.StoreRule([]ids.ID{rAtom, nAtom}, []registry.Literal{{Atom: dAtom}})
			f.gidb = append(f.gidb, gidbRule)
			continue
		}
		gidbRule := f.Registry.StoreRule([]ids.ID{rAtom, nAtom}, nil)
		f.gidb = append(f.gidb, gidbRule)
	}

	f.flpHeadAtomOf = make(map[ids.ID]ids.ID)
	for i, xr := range f.xidb {
		rule, ok := f.Registry.Rule(xr)
		if !ok {
			continue
		}
		freeVars := f.Registry.GetVariablesInRule(rule, false, true)
		fPred, err := f.Registry.AuxConstant(registry.AuxFLPHead, f.Rules[i])
		if err != nil {
			return err
		}
		fTuple := append([]ids.ID{fPred}, freeVars...)
		fAtom, err := storeAtomAuto(f.Registry, fTuple)
		if err != nil {
			return err
		}
		f.flpHeadAtomOf[xr] = fAtom

		headRule := f.Registry.StoreRule([]ids.ID{fAtom}, rule.Body)
		f.flpHeadRules = append(f.flpHeadRules, headRule)

		bodyRule := f.Registry.StoreRule(rule.Head, append(append([]registry.Literal(nil), rule.Body...), registry.Literal{Atom: fAtom}))
		f.flpBodyRules = append(f.flpBodyRules, bodyRule)
	}

	f.prepared = true
	return nil
}

func (f *GuessAndCheckFactory) Create(input *interp.Interpretation) (ModelGenerator, error) {
	if err := f.prepare(); err != nil {
		return nil, err
	}
	return &guessAndCheckMG{factory: f, input: input}, nil
}

type guessAndCheckMG struct {
	factory *GuessAndCheckFactory
	input   *interp.Interpretation
	mask    *interp.Interpretation
	models  []*interp.Interpretation
	pos     int
	started bool
}

func (g *guessAndCheckMG) NextModel(ctx context.Context) (*interp.Interpretation, bool, error) {
	if !g.started {
		g.started = true
		if err := g.run(ctx); err != nil {
			return nil, false, err
		}
	}
	for g.pos < len(g.models) {
		m := g.models[g.pos]
		g.pos++
		ok, err := g.accept(ctx, m)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		return g.project(m), true, nil
	}
	return nil, false, nil
}

func (g *guessAndCheckMG) project(m *interp.Interpretation) *interp.Interpretation {
	reg := g.factory.Registry
	out := interp.New()
	m.Iterate(func(addr uint32) {
		pred, ok := reg.PredicateOf(addr)
		if ok {
			if typ, isAux := reg.TypeOfAux(pred); isAux && (typ == registry.AuxReplacementPos || typ == registry.AuxReplacementNeg || typ == registry.AuxFLPHead) {
				return
			}
		}
		out.Set(addr)
	})
	if g.factory.InputMask != nil {
		out.Diff(g.factory.InputMask)
	}
	return out
}

func (g *guessAndCheckMG) run(ctx context.Context) error {
	f := g.factory
	I := interp.New()
	if g.input != nil {
		I.Union(g.input)
	}
	if err := evaluateOuterExternals(ctx, f.Evaluator, f.PluginLookup, f.OuterExternalAtoms, I, f.IncludeAuxInput); err != nil {
		return err
	}
	if f.DomainAtoms != nil {
		I.Union(f.DomainAtoms)
	}

	idb := append(append([]ids.ID(nil), f.xidb...), f.gidb...)
	models, err := solveOnce(ctx, f.Solver, asp.OrdinaryASPProgram{EDB: I, IDB: idb})
	if err != nil {
		return herrors.WrapFatal("modelgen.guessandcheck", err, "solving EDB ∪ xidb ∪ gidb failed")
	}
	g.models = models
	return nil
}

// accept runs the compatibility check (always) and the FLP minimality
// check (if enabled) against candidate guess M.
func (g *guessAndCheckMG) accept(ctx context.Context, m *interp.Interpretation) (bool, error) {
	f := g.factory
	ok, err := g.compatible(ctx, m)
	if err != nil || !ok {
		return false, err
	}
	if f.Config.FLPCheck != config.FLPCheckExplicit {
		return true, nil
	}
	return g.flpMinimal(ctx, m)
}

// compatible re-evaluates every inner external atom under m and checks
// its observed output exactly matches m's guessed r-auxiliaries, with
// n-auxiliaries disjoint (spec §4.8 step 3a).
func (g *guessAndCheckMG) compatible(ctx context.Context, m *interp.Interpretation) (bool, error) {
	f := g.factory
	for _, eaID := range f.InnerExternalAtoms {
		ea, ok := f.Registry.ExternalAtom(eaID)
		if !ok {
			continue
		}
		pa, ok := f.PluginLookup(eaID)
		if !ok {
			continue
		}
		rAtomID, err := replacementAtom(f.Registry, eaID, ea, true, ea.Inputs, ea.Outputs, f.IncludeAuxInput)
		if err != nil {
			return false, err
		}
		nAtomID, err := replacementAtom(f.Registry, eaID, ea, false, ea.Inputs, ea.Outputs, f.IncludeAuxInput)
		if err != nil {
			return false, err
		}
		guessedPositive := m.Test(rAtomID.Address)
		guessedNegative := m.Test(nAtomID.Address)
		if guessedPositive == guessedNegative {
			return false, nil // a well-formed guess picks exactly one of r/n
		}

		cb := &compatibilityCheckCallback{}
		if err := f.Evaluator.Evaluate(ctx, eaID, pa, nil, m, nil, nil, nil, nil, f.NogoodSink, cb); err != nil {
			return false, err
		}
		actuallyProduced := cb.produced
		if actuallyProduced != guessedPositive {
			if f.NogoodSink != nil {
				premise := []plugin.Literal{}
				if actuallyProduced {
					f.Evaluator.LearnFromInputOutputBehavior(premise, rAtomID.Address, nil, f.NogoodSink)
				} else {
					f.Evaluator.LearnFromNegativeAtoms(premise, rAtomID.Address, f.NogoodSink)
				}
			}
			return false, nil
		}
	}
	return true, nil
}

// compatibilityCheckCallback just records whether the external atom
// produced at least one output tuple under m, the minimal signal
// `compatible` needs to compare against the guessed r/n bit.
type compatibilityCheckCallback struct{ produced bool }

func (c *compatibilityCheckCallback) EAtom(ids.ID)      {}
func (c *compatibilityCheckCallback) Input([]ids.ID)    {}
func (c *compatibilityCheckCallback) Output([]ids.ID) error {
	c.produced = true
	return nil
}

// flpMinimal implements the §4.8 step 3b two-solve FLP check.
func (g *guessAndCheckMG) flpMinimal(ctx context.Context, m *interp.Interpretation) (bool, error) {
	f := g.factory

	headModels, err := solveOnce(ctx, f.Solver, asp.OrdinaryASPProgram{EDB: m, IDB: f.flpHeadRules})
	if err != nil {
		return false, herrors.WrapFatal("modelgen.guessandcheck", err, "solving xidbflphead failed")
	}
	fSet := interp.New()
	if len(headModels) > 0 {
		fSet = headModels[0]
	}

	guessAux := interp.New()
	m.Iterate(func(addr uint32) {
		pred, ok := f.Registry.PredicateOf(addr)
		if !ok {
			return
		}
		if typ, isAux := f.Registry.TypeOfAux(pred); isAux && (typ == registry.AuxReplacementPos || typ == registry.AuxReplacementNeg) {
			guessAux.Set(addr)
		}
	})

	bodyEDB := interp.New()
	bodyEDB.Union(guessAux)
	bodyEDB.Union(fSet)
	bodyModels, err := solveOnce(ctx, f.Solver, asp.OrdinaryASPProgram{EDB: bodyEDB, IDB: f.flpBodyRules})
	if err != nil {
		return false, herrors.WrapFatal("modelgen.guessandcheck", err, "solving xidbflpbody failed")
	}
	for _, mPrime := range bodyModels {
		reduced := mPrime.Clone()
		reduced.Diff(fSet)
		if reduced.Equal(m) {
			return true, nil
		}
	}
	return false, nil
}

// domainAtomFor builds the d_p ground atom for eaID's declared (ground)
// inputs/outputs, in exactly the shape package domainexp's exploration
// callback builds it, so DomainAtoms lookups agree on the same address.
func domainAtomFor(reg *registry.Registry, eaID ids.ID, ea registry.ExternalAtom, includeAuxInput bool) (ids.ID, error) {
	pred, err := reg.AuxConstant(registry.AuxDomainPredicate, eaID)
	if err != nil {
		return ids.IDFail, err
	}
	tuple := []ids.ID{pred}
	if includeAuxInput && ea.HasAuxInput() {
		tuple = append(tuple, ea.AuxInputPredicate)
	}
	tuple = append(tuple, ea.Inputs...)
	tuple = append(tuple, ea.Outputs...)
	return storeAtomAuto(reg, tuple)
}
