package external

import (
	"context"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// NogoodTester checks whether a candidate (possibly shrunk) nogood still
// reflects a real conflict, the oracle a minimizer needs to decide
// whether a literal it dropped was actually redundant.
type NogoodTester func(candidate plugin.Nogood) bool

// Minimize shrinks ng using the configured strategy. With NogoodMinimizerNone
// (or a nil tester) it returns ng unchanged.
func (e *Evaluator) Minimize(ng plugin.Nogood, test NogoodTester) plugin.Nogood {
	if test == nil {
		return ng
	}
	switch e.Config.NogoodMinimizer {
	case "quickexplain":
		return quickExplain(ng, test)
	default:
		return ng
	}
}

// quickExplain greedily drops literals one at a time, keeping the drop
// only when the tester confirms the shrunk nogood still conflicts. This
// is the single-pass variant of the quickexplain family referenced in
// spec §4.9; a full quickexplain additionally bisects the remaining set,
// which is unnecessary for the tuple-sized nogoods this evaluator
// produces.
func quickExplain(ng plugin.Nogood, test NogoodTester) plugin.Nogood {
	kept := append([]plugin.Literal(nil), ng.Literals...)
	for i := 0; i < len(kept); {
		candidate := append(append([]plugin.Literal(nil), kept[:i]...), kept[i+1:]...)
		if len(candidate) > 0 && test(plugin.Nogood{Literals: candidate}) {
			kept = candidate
			continue
		}
		i++
	}
	return plugin.Nogood{Literals: kept}
}

func isMonotonicityExempt(cfg bool, props plugin.ExtSourceProperties, pos int, litTrue bool) bool {
	if !cfg {
		return false
	}
	// A literal bound to a monotonic input position can only ever help
	// (not hurt) deriving a larger output set, so asserting it true can
	// never flip a "this input forces this output" conclusion; such a
	// literal is safe to omit from the learned nogood. Symmetric
	// reasoning applies to antimonotonic positions and a false literal.
	if props.IsMonotonicInput(pos) && litTrue {
		return true
	}
	if props.IsAntimonotonicInput(pos) && !litTrue {
		return true
	}
	return false
}

// filterMonotone drops premise literals the ExternalLearningMonotonicity
// switch declares safe to omit, given which input position each premise
// literal corresponds to (posOf may return -1 for literals with no
// corresponding declared input position, which are never filtered).
func filterMonotone(cfg bool, props plugin.ExtSourceProperties, premise []plugin.Literal, posOf func(plugin.Literal) int) []plugin.Literal {
	if !cfg {
		return premise
	}
	out := make([]plugin.Literal, 0, len(premise))
	for _, lit := range premise {
		pos := posOf(lit)
		if pos >= 0 && isMonotonicityExempt(cfg, props, pos, !lit.Negative) {
			continue
		}
		out = append(out, lit)
	}
	return out
}

// LearnFromInputOutputBehavior derives "this input forces this output":
// {premise true..., replAddr false} is a nogood, i.e. whenever the
// premise holds the replacement atom must be true.
func (e *Evaluator) LearnFromInputOutputBehavior(premise []plugin.Literal, replAddr uint32, test NogoodTester, sink plugin.NogoodSink) {
	ng := plugin.Nogood{Literals: append(append([]plugin.Literal(nil), premise...), plugin.Literal{Addr: replAddr, Negative: true})}
	sink.Add(e.Minimize(ng, test))
}

// LearnFromNegativeAtoms derives "this input forbids this output":
// {premise true..., replAddr true} is a nogood for an output tuple the
// plugin did not produce.
func (e *Evaluator) LearnFromNegativeAtoms(premise []plugin.Literal, replAddr uint32, sink plugin.NogoodSink) {
	sink.Add(plugin.Nogood{Literals: append(append([]plugin.Literal(nil), premise...), plugin.Literal{Addr: replAddr})})
}

func tuplePrefixEqual(a, b []ids.ID, k int) bool {
	if k > len(a) || k > len(b) {
		return false
	}
	for i := 0; i < k; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tupleEqual(a, b []ids.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// OutputBinding pairs an observed output tuple with the ground address of
// its replacement atom, what LearnFromFunctionality needs to compare
// outputs pairwise.
type OutputBinding struct {
	Tuple []ids.ID
	Addr  uint32
}

// LearnFromFunctionality excludes two distinct outputs that share a
// declared-functional atom's non-functional prefix from being true
// together.
func (e *Evaluator) LearnFromFunctionality(props plugin.ExtSourceProperties, outputs []OutputBinding, sink plugin.NogoodSink) {
	if !props.Functional {
		return
	}
	for i := 0; i < len(outputs); i++ {
		for j := i + 1; j < len(outputs); j++ {
			if tupleEqual(outputs[i].Tuple, outputs[j].Tuple) {
				continue
			}
			if tuplePrefixEqual(outputs[i].Tuple, outputs[j].Tuple, props.FunctionalFrom) {
				sink.Add(plugin.Nogood{Literals: []plugin.Literal{{Addr: outputs[i].Addr}, {Addr: outputs[j].Addr}}})
			}
		}
	}
}

// substituteTuple applies subst to every top-level argument of atom's
// tuple (sufficient for the flat, variable-in-argument-position learning
// rules spec §4.9 describes; nested-term substitution goes through
// Registry.ReplaceVariablesInTerm when an argument is itself a compound
// term containing a substituted variable).
func (e *Evaluator) substituteTuple(tuple []ids.ID, subst map[ids.ID]ids.ID) ([]ids.ID, error) {
	out := make([]ids.ID, len(tuple))
	for i, a := range tuple {
		if v, ok := subst[a]; ok {
			out[i] = v
			continue
		}
		if a.Main() == ids.KindTerm && a.Sub() == ids.SubNested {
			replaced := a
			for v, by := range subst {
				nid, err := e.Registry.ReplaceVariablesInTerm(replaced, v, by)
				if err != nil {
					return nil, err
				}
				replaced = nid
			}
			out[i] = replaced
			continue
		}
		out[i] = a
	}
	return out, nil
}

func (e *Evaluator) groundAtomAddress(atomID ids.ID, subst map[ids.ID]ids.ID) (uint32, bool, error) {
	atom, ok := e.Registry.GroundAtom(atomID)
	if ok {
		return atom.ID.Address, true, nil
	}
	atom, ok = e.Registry.NongroundAtom(atomID)
	if !ok {
		return 0, false, nil
	}
	tuple, err := e.substituteTuple(atom.Tuple, subst)
	if err != nil {
		return 0, false, err
	}
	groundID, err := e.Registry.StoreOrdinaryGroundAtom(tuple)
	if err != nil {
		return 0, false, err
	}
	return groundID.Address, true, nil
}

// LearnFromRule instantiates a user-supplied learning rule (e.g.
// `out(X) :- in1(X), not in2(X).`) under subst into a nogood: the body's
// ground literals (each asserted in the sign the rule requires) plus the
// head asserted false.
func (e *Evaluator) LearnFromRule(rule registry.Rule, subst map[ids.ID]ids.ID, sink plugin.NogoodSink) error {
	if len(rule.Head) != 1 {
		return nil // learning rules carry a single derived atom (the replacement or guard atom)
	}
	var lits []plugin.Literal
	for _, bl := range rule.Body {
		addr, ok, err := e.groundAtomAddress(bl.Atom, subst)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		lits = append(lits, plugin.Literal{Addr: addr, Negative: bl.NAF})
	}
	headAddr, ok, err := e.groundAtomAddress(rule.Head[0], subst)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	lits = append(lits, plugin.Literal{Addr: headAddr, Negative: true})
	sink.Add(plugin.Nogood{Literals: lits})
	return nil
}

// LearnFromGroundRule is LearnFromRule for a rule whose body and head are
// already fully ground (the empty substitution).
func (e *Evaluator) LearnFromGroundRule(rule registry.Rule, sink plugin.NogoodSink) error {
	return e.LearnFromRule(rule, nil, sink)
}

// GuardResolver evaluates an ontology/guard atom (spec §4.9 support-set
// learning) against whatever external knowledge source backs it; out of
// scope to implement concretely (the knowledge source is a collaborator),
// so this module only defines the interface the core calls through.
type GuardResolver interface {
	EvaluateGuard(ctx context.Context, guardAtomID ids.ID) (bool, error)
}

type collectingSink struct{ nogoods []plugin.Nogood }

func (c *collectingSink) Add(ng plugin.Nogood) { c.nogoods = append(c.nogoods, ng) }

// LearnSupportSets calls the plugin's support-set learning hook (once
// per external atom, as required by PluginAtom's contract) and filters
// each emitted nogood against guard atoms: a satisfied guard is dropped
// from the nogood (it is now a known background fact and need not be
// represented); a support set with an unsatisfied guard is dropped
// entirely, as is one left empty once its satisfied guards are removed.
func (e *Evaluator) LearnSupportSets(ctx context.Context, atomID ids.ID, pa plugin.PluginAtom, query plugin.Query, guards GuardResolver, sink plugin.NogoodSink) error {
	if !pa.ExtSourceProperties().ProvidesSupportSets {
		return nil
	}
	collector := &collectingSink{}
	if err := pa.LearnSupportSets(ctx, query, collector); err != nil {
		return err
	}
	for _, ng := range collector.nogoods {
		filtered, drop, err := e.filterByGuards(ctx, ng, guards)
		if err != nil {
			return err
		}
		if drop {
			continue
		}
		sink.Add(filtered)
	}
	return nil
}

func (e *Evaluator) filterByGuards(ctx context.Context, ng plugin.Nogood, guards GuardResolver) (plugin.Nogood, bool, error) {
	if guards == nil {
		return ng, false, nil
	}
	var kept []plugin.Literal
	for _, lit := range ng.Literals {
		predID, ok := e.Registry.PredicateOf(lit.Addr)
		if !ok {
			kept = append(kept, lit)
			continue
		}
		typ, isAux := e.Registry.TypeOfAux(predID)
		if !isAux || typ != registry.AuxOntologyGuard {
			kept = append(kept, lit)
			continue
		}
		guardAtomID := ids.New(ids.KindAtom, ids.SubOrdinaryGround, 0, lit.Addr)
		satisfied, err := guards.EvaluateGuard(ctx, guardAtomID)
		if err != nil {
			return ng, false, err
		}
		if satisfied {
			continue // guard proven true: remove it from the nogood
		}
		return ng, true, nil // guard false: the support set can never apply
	}
	if len(kept) == 0 {
		return ng, true, nil
	}
	return plugin.Nogood{Literals: kept}, false, nil
}
