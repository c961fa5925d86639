package depgraph

import (
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// predicateOf returns the predicate term of an ordinary (ground or
// nonground) or external atom.
func predicateOf(reg *registry.Registry, atom ids.ID) (ids.ID, bool) {
	if atom.Main() == ids.KindAtom && atom.Sub() == ids.SubExternal {
		ea, ok := reg.ExternalAtom(atom)
		if !ok {
			return ids.IDFail, false
		}
		return ea.Predicate, true
	}
	if ga, ok := reg.GroundAtom(atom); ok {
		return ga.Tuple[0], true
	}
	if na, ok := reg.NongroundAtom(atom); ok {
		return na.Tuple[0], true
	}
	return ids.IDFail, false
}

// BuildFromRules constructs the per-atom/per-rule dependency graph for a
// rule set (spec §4.3): one node per rule and per body/head atom, with
// rule->atom edges typed by polarity and external-ness, plus atom->rule
// back-edges linking every ordinary body atom to the rules that define its
// predicate (head atoms get no back-edge) —
// the same "defines, therefore cycles back" linkage compgraph_test.go's
// buildReachability constructs by hand for a single recursive rule,
// generalized here to an arbitrary rule set.
func BuildFromRules(reg *registry.Registry, ruleIDs []ids.ID) *Graph {
	g := New()

	definers := make(map[ids.ID][]ids.ID) // predicate -> rules whose head defines it
	for _, rid := range ruleIDs {
		rule, ok := reg.Rule(rid)
		if !ok {
			continue
		}
		for _, h := range rule.Head {
			pred, ok := predicateOf(reg, h)
			if !ok {
				continue
			}
			definers[pred] = append(definers[pred], rid)
		}
	}

	for _, rid := range ruleIDs {
		rule, ok := reg.Rule(rid)
		if !ok {
			continue
		}

		headKind := EdgePositiveRegular
		if len(rule.Head) > 1 {
			headKind = EdgeDisjunctive
		}
		for _, h := range rule.Head {
			g.AddEdge(rid, h, headKind)
		}

		for _, lit := range rule.Body {
			external := lit.Atom.Main() == ids.KindAtom && lit.Atom.Sub() == ids.SubExternal

			kind := EdgePositiveRegular
			switch {
			case external && lit.NAF:
				kind = EdgeNegativeExternal
			case external:
				kind = EdgePositiveExternal
			case lit.NAF:
				kind = EdgeNegativeRegular
			}
			g.AddEdge(rid, lit.Atom, kind)

			if external {
				ea, ok := reg.ExternalAtom(lit.Atom)
				if ok && ea.HasAuxInput() {
					for _, defRule := range definers[ea.AuxInputPredicate] {
						g.AddEdge(lit.Atom, defRule, EdgeAuxInput)
					}
				}
				continue
			}

			pred, ok := predicateOf(reg, lit.Atom)
			if !ok {
				continue
			}
			for _, defRule := range definers[pred] {
				g.AddEdge(lit.Atom, defRule, EdgePositiveRegular)
			}
		}
	}

	return g
}
