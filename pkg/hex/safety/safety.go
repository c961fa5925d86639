// Package safety implements the liberal safety checker (spec §4.4,
// component C6): a fixpoint over a rule's body literals that grows a set
// of "bounded" variables until every head variable is covered, or until
// the fixpoint stalls with unbound variables remaining.
//
// Grounded on the teacher's fixpoint-over-dependency-graph shape
// (pkg/minikanren/slg_engine.go's stratum-assignment loop, which
// iterates "while changed" over a worklist until no new facts are
// derived); here the worklist carries variable IDs instead of stratum
// numbers.
package safety

import (
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// ExtPropsLookup resolves an external atom's declared source properties.
// Mirrors compgraph.ExtPropsLookup; kept as its own type so this package
// does not need to import compgraph.
type ExtPropsLookup func(externalAtomID ids.ID) plugin.ExtSourceProperties

// LiberalSafetyPlugin lets a domain extend the fixpoint with its own
// bounding rule, run once per fixpoint iteration alongside the built-in
// ones (spec §4.4: "pluggable hooks run in each fixpoint iteration").
type LiberalSafetyPlugin interface {
	// Bind is given the rule and the variables bound so far; it returns
	// any additional variables it can establish as bound given that
	// state. Returning none when called with a stable `bound` set is
	// required for the fixpoint to terminate.
	Bind(rule registry.Rule, bound map[ids.ID]struct{}) []ids.ID
}

// Checker runs the liberal safety fixpoint over rules of a registry.
type Checker struct {
	Registry *registry.Registry
	ExtProps ExtPropsLookup
	Plugins  []LiberalSafetyPlugin
}

func New(reg *registry.Registry, extProps ExtPropsLookup, plugins ...LiberalSafetyPlugin) *Checker {
	return &Checker{Registry: reg, ExtProps: extProps, Plugins: plugins}
}

// Result is the outcome of checking one rule.
type Result struct {
	Bounded                map[ids.ID]struct{}
	Safe                   bool
	UnboundHeadVariables    []ids.ID
	NecessaryExternalAtoms []ids.ID // external atoms whose output bound at least one variable
}

// argPosition names one argument slot of an atom's tuple (position 0 is
// always the predicate itself and is never a variable).
type argPosition struct {
	atom ids.ID
	pos  int
}

// CheckRule runs the attribute-graph fixpoint for a single rule and
// reports whether every head variable ends up bounded.
func (c *Checker) CheckRule(rule registry.Rule) Result {
	bound := make(map[ids.ID]struct{})
	var necessary []ids.ID
	necessarySeen := make(map[ids.ID]struct{})

	for {
		changed := false

		for _, lit := range rule.Body {
			if lit.NAF {
				continue // negative literals never bind (spec §4.4)
			}
			switch lit.Atom.Main() {
			case ids.KindAtom:
				switch lit.Atom.Sub() {
				case ids.SubOrdinaryNonground, ids.SubOrdinaryGround:
					atom, ok := c.Registry.NongroundAtom(lit.Atom)
					if !ok {
						atom, ok = c.Registry.GroundAtom(lit.Atom)
					}
					if !ok {
						continue
					}
					for _, arg := range atom.Tuple[1:] {
						if arg.Main() == ids.KindTerm && arg.Sub() == ids.SubVariable {
							if _, already := bound[arg]; !already {
								bound[arg] = struct{}{}
								changed = true
							}
						}
					}
				case ids.SubExternal:
					ea, ok := c.Registry.ExternalAtom(lit.Atom)
					if !ok {
						continue
					}
					props := c.ExtProps(lit.Atom)
					// An output position is bound once every input
					// position it is well-ordered against is bound (a
					// value-inventing external atom's outputs are only
					// safe once their governing inputs are fixed).
					for outIdx, out := range ea.Outputs {
						if out.Main() != ids.KindTerm || out.Sub() != ids.SubVariable {
							continue
						}
						if _, already := bound[out]; already {
							continue
						}
						if c.outputGoverned(props, outIdx, ea.Inputs, bound) {
							bound[out] = struct{}{}
							changed = true
							if _, seen := necessarySeen[lit.Atom]; !seen {
								necessarySeen[lit.Atom] = struct{}{}
								necessary = append(necessary, lit.Atom)
							}
						}
					}
				}
			case ids.KindTerm:
				if lit.Atom.Sub() == ids.SubAggregate {
					agg, ok := c.Registry.Aggregate(lit.Atom)
					if !ok {
						continue
					}
					for _, v := range agg.BoundVars {
						if v.Main() != ids.KindTerm || v.Sub() != ids.SubVariable {
							continue
						}
						if _, already := bound[v]; !already {
							bound[v] = struct{}{}
							changed = true
						}
					}
				}
			}
		}

		for _, p := range c.Plugins {
			for _, v := range p.Bind(rule, bound) {
				if _, already := bound[v]; !already {
					bound[v] = struct{}{}
					changed = true
				}
			}
		}

		if !changed {
			break
		}
	}

	headVars := c.Registry.GetVariablesInRule(rule, false, true)
	var unbound []ids.ID
	for _, v := range headVars {
		if !c.isHeadVariable(rule, v) {
			continue
		}
		if _, ok := bound[v]; !ok {
			unbound = append(unbound, v)
		}
	}

	return Result{Bounded: bound, Safe: len(unbound) == 0, UnboundHeadVariables: unbound, NecessaryExternalAtoms: necessary}
}

// isHeadVariable reports whether v occurs in any head atom of rule.
func (c *Checker) isHeadVariable(rule registry.Rule, v ids.ID) bool {
	for _, h := range rule.Head {
		atom, ok := c.Registry.NongroundAtom(h)
		if !ok {
			atom, ok = c.Registry.GroundAtom(h)
		}
		if !ok {
			continue
		}
		for _, arg := range atom.Tuple[1:] {
			if arg == v {
				return true
			}
		}
	}
	return false
}

// outputGoverned reports whether every input position the external
// atom's declared well-ordering pairs map to outIdx is itself a bound
// variable or a ground term.
func (c *Checker) outputGoverned(props plugin.ExtSourceProperties, outIdx int, inputs []ids.ID, bound map[ids.ID]struct{}) bool {
	governing := 0
	for _, wp := range props.WellOrdering {
		if wp.OutIdx != outIdx {
			continue
		}
		governing++
		if wp.InIdx < 0 || wp.InIdx >= len(inputs) {
			return false
		}
		in := inputs[wp.InIdx]
		if in.Main() == ids.KindTerm && in.Sub() == ids.SubVariable {
			if _, ok := bound[in]; !ok {
				return false
			}
		}
	}
	// No declared well-ordering pair governs this output: it cannot be
	// bound by this external atom alone.
	return governing > 0
}
