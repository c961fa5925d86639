// Package modelgen implements the three model-generator families
// selected by the evaluation graph (spec §4.6-§4.8, component C8): Plain
// (no inner external atoms), Wellfounded (monotonic fixpoint), and
// GuessAndCheck (the general case, with an FLP minimality check).
//
// Grounded on the teacher's LazyResultStream in pkg/minikanren/stream.go:
// results are computed only once the caller first asks (Take), not
// eagerly up front — the same on-demand shape ModelGenerator.NextModel
// gives the online builder here, one model per call instead of one
// batch per Take.
package modelgen

import (
	"context"
	"fmt"

	"github.com/gitrdm/hexeval/pkg/hex/asp"
	"github.com/gitrdm/hexeval/pkg/hex/external"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// ModelGenerator yields the models of one unit's program against a fixed
// input interpretation, one at a time.
type ModelGenerator interface {
	NextModel(ctx context.Context) (*interp.Interpretation, bool, error)
}

// Factory builds a ModelGenerator for a given input interpretation (spec
// §6's "create_model_generator(input) -> ModelGenerator").
type Factory interface {
	Create(input *interp.Interpretation) (ModelGenerator, error)
}

// PluginLookup resolves an external atom's registered PluginAtom
// implementation. Registration itself is out of scope (spec §6); this
// type only names the resolution function every factory needs.
type PluginLookup func(externalAtomID ids.ID) (plugin.PluginAtom, bool)

// ExtPropsLookup mirrors compgraph.ExtPropsLookup / safety.ExtPropsLookup,
// redeclared here so this package does not need to import compgraph.
type ExtPropsLookup func(externalAtomID ids.ID) plugin.ExtSourceProperties

// integrateReplacements is the built-in IntegrationCallback that stores
// an `r`-replacement ground atom per produced output tuple directly into
// the target interpretation (spec §4.9: "the built-in 'integrate'
// callback stores an r-replacement atom").
type integrateReplacements struct {
	reg     *registry.Registry
	target  *interp.Interpretation
	current registry.ExternalAtom
	atomID  ids.ID
	cfg     bool // IncludeAuxInputInAuxiliaries
	inputs  []ids.ID
}

func (c *integrateReplacements) EAtom(ea ids.ID) {
	c.atomID = ea
	c.current, _ = c.reg.ExternalAtom(ea)
}
func (c *integrateReplacements) Input(tuple []ids.ID) { c.inputs = tuple }
func (c *integrateReplacements) Output(tuple []ids.ID) error {
	atomID, err := replacementAtom(c.reg, c.atomID, c.current, true, c.inputs, tuple, c.cfg)
	if err != nil {
		return err
	}
	c.target.Set(atomID.Address)
	return nil
}

// replacementAtom builds (minting the predicate if needed) the ground
// r/n replacement atom for one produced (input, output) pair, per the
// layout in spec §6: `r_p([auxInputPred,] i1..ik, o1..om)`.
func replacementAtom(reg *registry.Registry, eaID ids.ID, ea registry.ExternalAtom, positive bool, inputs, outputs []ids.ID, includeAuxInput bool) (ids.ID, error) {
	typ := byte(registry.AuxReplacementPos)
	if !positive {
		typ = registry.AuxReplacementNeg
	}
	pred, err := reg.AuxConstant(typ, eaID)
	if err != nil {
		return ids.IDFail, err
	}
	tuple := []ids.ID{pred}
	if includeAuxInput && ea.HasAuxInput() {
		tuple = append(tuple, ea.AuxInputPredicate)
	}
	tuple = append(tuple, inputs...)
	tuple = append(tuple, outputs...)
	return storeAtomAuto(reg, tuple)
}

// storeAtomAuto interns tuple as a ground atom if every argument is
// ground, falling back to a nonground atom otherwise.
func storeAtomAuto(reg *registry.Registry, tuple []ids.ID) (ids.ID, error) {
	id, err := reg.StoreOrdinaryGroundAtom(tuple)
	if err == nil {
		return id, nil
	}
	return reg.StoreOrdinaryNongroundAtom(tuple)
}

// evaluateOuterExternals runs every outer external atom of a unit against
// I, integrating replacement atoms back into I (spec §4.6 step 2, §4.7's
// "outer-eatom augmentation, once").
func evaluateOuterExternals(ctx context.Context, ev *external.Evaluator, lookup PluginLookup, atoms []ids.ID, I *interp.Interpretation, cfg bool) error {
	for _, eaID := range atoms {
		pa, ok := lookup(eaID)
		if !ok {
			continue // unresolved outer external atoms are a registration-time concern, out of scope here
		}
		cb := &integrateReplacements{reg: ev.Registry, target: I, cfg: cfg}
		if err := ev.Evaluate(ctx, eaID, pa, nil, I, nil, nil, nil, nil, nil, cb); err != nil {
			return err
		}
	}
	return nil
}

// rewriteRuleWithReplacements builds the xidb form of one rule: every
// external-atom body literal is replaced by its positive `r`-replacement
// literal, preserving the literal's NAF bit (spec §4.8 xidb).
func rewriteRuleWithReplacements(reg *registry.Registry, ruleID ids.ID, includeAuxInput bool) (ids.ID, error) {
	rule, ok := reg.Rule(ruleID)
	if !ok {
		return ids.IDFail, fmt.Errorf("modelgen: unknown rule %v", ruleID)
	}
	newBody := make([]registry.Literal, len(rule.Body))
	for i, lit := range rule.Body {
		if lit.Atom.Main() == ids.KindAtom && lit.Atom.Sub() == ids.SubExternal {
			ea, ok := reg.ExternalAtom(lit.Atom)
			if !ok {
				return ids.IDFail, fmt.Errorf("modelgen: unknown external atom %v", lit.Atom)
			}
			rAtom, err := replacementAtom(reg, lit.Atom, ea, true, ea.Inputs, ea.Outputs, includeAuxInput)
			if err != nil {
				return ids.IDFail, err
			}
			newBody[i] = registry.Literal{Atom: rAtom, NAF: lit.NAF}
			continue
		}
		newBody[i] = lit
	}
	return reg.StoreRule(rule.Head, newBody), nil
}

func rewriteRulesWithReplacements(reg *registry.Registry, ruleIDs []ids.ID, includeAuxInput bool) ([]ids.ID, error) {
	out := make([]ids.ID, len(ruleIDs))
	for i, r := range ruleIDs {
		xr, err := rewriteRuleWithReplacements(reg, r, includeAuxInput)
		if err != nil {
			return nil, err
		}
		out[i] = xr
	}
	return out, nil
}

// RewriteRulesWithReplacements is the exported form of
// rewriteRulesWithReplacements, used by package domainexp to build its
// domain-exploration program: per spec §4.11 that program is exactly the
// original IDB with external-atom bodies deleted and their r-replacement
// substituted in, which is the same xidb construction the model
// generators use.
func RewriteRulesWithReplacements(reg *registry.Registry, ruleIDs []ids.ID, includeAuxInput bool) ([]ids.ID, error) {
	return rewriteRulesWithReplacements(reg, ruleIDs, includeAuxInput)
}

// ReplacementAtom is the exported form of replacementAtom, used by
// package domainexp to build the same r_p/n_p ground atoms its choice
// rules guess over, so addresses agree with the main solve's xidb/gidb.
func ReplacementAtom(reg *registry.Registry, eaID ids.ID, ea registry.ExternalAtom, positive bool, inputs, outputs []ids.ID, includeAuxInput bool) (ids.ID, error) {
	return replacementAtom(reg, eaID, ea, positive, inputs, outputs, includeAuxInput)
}

// StoreAtomAuto is the exported form of storeAtomAuto.
func StoreAtomAuto(reg *registry.Registry, tuple []ids.ID) (ids.ID, error) {
	return storeAtomAuto(reg, tuple)
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
