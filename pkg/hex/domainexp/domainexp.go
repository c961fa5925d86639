// Package domainexp implements domain-predicate exploration (spec
// §4.11, component C11): when the liberal safety checker (package
// safety) marks an external atom as necessary for domain expansion, this
// package grounds a bounded, iterative over-approximation of its
// possible output tuples so the guess-and-check model generator (package
// modelgen) has a finite domain to guess over instead of guessing
// against the (possibly infinite) full Herbrand universe.
//
// Grounded on the teacher's bounded fixpoint iteration in
// pkg/minikanren/slg_engine.go (SLG tabling re-runs a goal against a
// growing answer table until a round adds nothing new); the exploration
// loop below is the same shape, with LiberalSafetyNullFreezeCount
// standing in for SLG's iteration cap.
package domainexp

import (
	"context"

	"github.com/gitrdm/hexeval/pkg/hex/asp"
	"github.com/gitrdm/hexeval/pkg/hex/config"
	"github.com/gitrdm/hexeval/pkg/hex/external"
	"github.com/gitrdm/hexeval/pkg/hex/herrors"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/modelgen"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// Explorer runs domain-predicate exploration for one program.
type Explorer struct {
	Registry        *registry.Registry
	Config          *config.Config
	Evaluator       *external.Evaluator
	Solver          asp.Solver
	PluginLookup    modelgen.PluginLookup
	ExtProps        modelgen.ExtPropsLookup
	IncludeAuxInput bool
}

func NewExplorer(reg *registry.Registry, cfg *config.Config, ev *external.Evaluator, solver asp.Solver, lookup modelgen.PluginLookup, props modelgen.ExtPropsLookup, includeAuxInput bool) *Explorer {
	return &Explorer{Registry: reg, Config: cfg, Evaluator: ev, Solver: solver, PluginLookup: lookup, ExtProps: props, IncludeAuxInput: includeAuxInput}
}

// Result is the exploration's output: the ground d_p facts to feed as
// EDB into the main solve's guess-and-check gidb guard, and how many
// rounds the fixpoint took.
type Result struct {
	DomainAtoms *interp.Interpretation
	Rounds      int
}

// Explore grounds and evaluates necessary's external atoms against a
// growing Herbrand base seeded from edb, converting every newly observed
// output tuple into a d_p domain fact, until a round adds nothing new or
// LiberalSafetyNullFreezeCount rounds have elapsed (spec §4.11, §8
// "domain exploration termination": at most k+1 outer rounds).
func (e *Explorer) Explore(ctx context.Context, necessary []ids.ID, idb []ids.ID, edb *interp.Interpretation) (*Result, error) {
	cur := interp.New()
	cur.Union(edb)
	domainAtoms := interp.New()
	evaluated := interp.New() // aux-input ground atoms already evaluated, across all rounds (homomorphic-exclusion simplification: dedup by address rather than modulo-null unification)

	xidb, err := modelgen.RewriteRulesWithReplacements(e.Registry, idb, e.IncludeAuxInput)
	if err != nil {
		return nil, err
	}

	roundCap := e.Config.LiberalSafetyNullFreezeCount
	if roundCap <= 0 {
		roundCap = config.Default().LiberalSafetyNullFreezeCount
	}

	rounds := 0
	for round := 0; round <= roundCap; round++ {
		rounds = round + 1
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		grown := false

		// Step 1: derive ordinary consequences of the domain-exploration
		// program (xidb, whose external-atom bodies are already replaced
		// by r_p literals) under the current Herbrand base plus whatever
		// d_p/r_p atoms exploration has observed so far.
		base := cur.Clone()
		base.Union(domainAtoms)
		models, err := solveOnce(ctx, e.Solver, asp.OrdinaryASPProgram{EDB: base, IDB: xidb})
		if err != nil {
			return nil, herrors.WrapFatal("domainexp", err, "solving the domain-exploration program failed")
		}
		if len(models) > 0 {
			m := models[0]
			diff := m.Clone()
			diff.Diff(base)
			if diff.Count() > 0 {
				grown = true
			}
			cur.Union(m)
		}

		// Step 2: evaluate every necessary external atom, treating each
		// newly-observed output tuple as a candidate domain element.
		for _, eaID := range necessary {
			ea, ok := e.Registry.ExternalAtom(eaID)
			if !ok {
				continue
			}
			pa, ok := e.PluginLookup(eaID)
			if !ok {
				continue
			}
			props := e.ExtProps(eaID)

			queryI := stripAntimonotonicPredicates(e.Registry, cur, pa, ea, props)

			newAux := interp.New()
			if ea.HasAuxInput() {
				cur.Iterate(func(addr uint32) {
					pred, ok := e.Registry.PredicateOf(addr)
					if ok && pred == ea.AuxInputPredicate && !evaluated.Test(addr) {
						newAux.Set(addr)
						evaluated.Set(addr)
					}
				})
				if newAux.Count() == 0 {
					continue // nothing new to explore for this atom this round
				}
			}

			cb := &domainCallback{
				reg:             e.Registry,
				eaID:            eaID,
				ea:              ea,
				domainAtoms:     domainAtoms,
				includeAuxInput: e.IncludeAuxInput,
				grown:           &grown,
			}
			if err := e.Evaluator.Evaluate(ctx, eaID, pa, nil, queryI, nil, newAux, nil, nil, nil, cb); err != nil {
				return nil, err
			}
		}

		if !grown {
			break
		}
	}

	return &Result{DomainAtoms: domainAtoms, Rounds: rounds}, nil
}

// domainCallback turns every observed (input, output) pair into a d_p
// ground fact (spec §4.11: "converts newly observed r_p atoms into d_p
// facts").
type domainCallback struct {
	reg             *registry.Registry
	eaID            ids.ID
	ea              registry.ExternalAtom
	inputs          []ids.ID
	domainAtoms     *interp.Interpretation
	includeAuxInput bool
	grown           *bool
}

func (c *domainCallback) EAtom(ids.ID) {}
func (c *domainCallback) Input(tuple []ids.ID) { c.inputs = tuple }
func (c *domainCallback) Output(tuple []ids.ID) error {
	pred, err := c.reg.AuxConstant(registry.AuxDomainPredicate, c.eaID)
	if err != nil {
		return err
	}
	full := []ids.ID{pred}
	if c.includeAuxInput && c.ea.HasAuxInput() {
		full = append(full, c.ea.AuxInputPredicate)
	}
	full = append(full, c.inputs...)
	full = append(full, tuple...)
	id, err := modelgen.StoreAtomAuto(c.reg, full)
	if err != nil {
		return err
	}
	if !c.domainAtoms.Test(id.Address) {
		c.domainAtoms.Set(id.Address)
		*c.grown = true
	}
	return nil
}

// stripAntimonotonicPredicates removes, from a clone of cur, every
// ground atom whose predicate backs a declared-antimonotonic predicate
// input position of ea (spec §4.11: "antimonotonic inputs stripped").
// Nonmonotonic positions are left as-is: instead of combinatorially
// enumerating subsets within one round (a grounding-time search out of
// this package's scope), each round's growing Herbrand base itself
// supplies successive approximations, converging the same way the outer
// fixpoint does.
func stripAntimonotonicPredicates(reg *registry.Registry, cur *interp.Interpretation, pa plugin.PluginAtom, ea registry.ExternalAtom, props plugin.ExtSourceProperties) *interp.Interpretation {
	strip := make(map[ids.ID]struct{})
	for i := 0; i < pa.InputArity() && i < len(ea.Inputs); i++ {
		if pa.InputTypeAt(i) == plugin.InputPredicate && props.IsAntimonotonicInput(i) {
			strip[ea.Inputs[i]] = struct{}{}
		}
	}
	if len(strip) == 0 {
		return cur.Clone()
	}
	out := interp.New()
	cur.Iterate(func(addr uint32) {
		pred, ok := reg.PredicateOf(addr)
		if ok {
			if _, stripped := strip[pred]; stripped {
				return
			}
		}
		out.Set(addr)
	})
	return out
}

func solveOnce(ctx context.Context, solver asp.Solver, program asp.OrdinaryASPProgram) ([]*interp.Interpretation, error) {
	results, err := solver.Solve(ctx, program)
	if err != nil {
		return nil, err
	}
	var models []*interp.Interpretation
	for {
		m, more, err := results.NextAnswerSet(ctx)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		models = append(models, m)
	}
	return models, nil
}
