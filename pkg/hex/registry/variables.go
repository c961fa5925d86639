package registry

import "github.com/gitrdm/hexeval/pkg/hex/ids"

// GetVariablesInTerm recursively collects the variable IDs occurring in a
// term. includeAnonymous controls whether variables whose stored name is
// "_" are included (anonymous variables are usually excluded from safety
// analysis but included when substituting).
func (r *Registry) GetVariablesInTerm(id ids.ID, includeAnonymous bool) []ids.ID {
	seen := make(map[ids.ID]struct{})
	var out []ids.ID
	r.collectTermVars(id, includeAnonymous, seen, &out)
	return out
}

func (r *Registry) collectTermVars(id ids.ID, includeAnonymous bool, seen map[ids.ID]struct{}, out *[]ids.ID) {
	t, ok := r.Term(id)
	if !ok {
		return
	}
	switch t.Sub {
	case ids.SubVariable:
		if !includeAnonymous && t.Text == "_" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		*out = append(*out, id)
	case ids.SubNested:
		for _, a := range t.Args {
			r.collectTermVars(a, includeAnonymous, seen, out)
		}
	}
}

// GetVariablesInAtom collects the variables occurring across an ordinary
// atom's full tuple (including the predicate position, which is never a
// variable in a well-formed atom but is walked uniformly for simplicity).
func (r *Registry) GetVariablesInAtom(atom OrdinaryAtom, includeAnonymous bool) []ids.ID {
	seen := make(map[ids.ID]struct{})
	var out []ids.ID
	for _, arg := range atom.Tuple {
		r.collectTermVars(arg, includeAnonymous, seen, &out)
	}
	return out
}

// GetVariablesInRule collects the variables occurring anywhere in a rule's
// head or body, optionally walking into aggregate bound variables and
// bodies when includeLocalAgg is true.
func (r *Registry) GetVariablesInRule(rule Rule, includeAnonymous, includeLocalAgg bool) []ids.ID {
	seen := make(map[ids.ID]struct{})
	var out []ids.ID

	collectAtom := func(atomID ids.ID) {
		switch atomID.Sub() {
		case ids.SubOrdinaryGround, ids.SubOrdinaryNonground:
			var atom OrdinaryAtom
			var ok bool
			if atomID.Sub() == ids.SubOrdinaryGround {
				atom, ok = r.GroundAtom(atomID)
			} else {
				atom, ok = r.NongroundAtom(atomID)
			}
			if !ok {
				return
			}
			for _, arg := range atom.Tuple {
				r.collectTermVars(arg, includeAnonymous, seen, &out)
			}
		case ids.SubExternal:
			ea, ok := r.ExternalAtom(atomID)
			if !ok {
				return
			}
			for _, in := range ea.Inputs {
				r.collectTermVars(in, includeAnonymous, seen, &out)
			}
			for _, o := range ea.Outputs {
				r.collectTermVars(o, includeAnonymous, seen, &out)
			}
		}
	}

	for _, h := range rule.Head {
		collectAtom(h)
	}
	for _, lit := range rule.Body {
		collectAtom(lit.Atom)
		if includeLocalAgg && lit.Atom.Main() == ids.KindTerm && lit.Atom.Sub() == ids.SubAggregate {
			agg, ok := r.Aggregate(lit.Atom)
			if !ok {
				continue
			}
			for _, bv := range agg.BoundVars {
				r.collectTermVars(bv, includeAnonymous, seen, &out)
			}
			for _, bl := range agg.Body {
				collectAtom(bl.Atom)
			}
		}
	}
	return out
}

// ReplaceVariablesInTerm substitutes every occurrence of variable v with
// term by inside term, returning the interned ID of the substituted form.
// Ground subterms and unrelated variables are returned unchanged (by ID);
// only nested terms that actually contain v along some path are rebuilt
// and re-interned.
func (r *Registry) ReplaceVariablesInTerm(term, v, by ids.ID) (ids.ID, error) {
	if term == v {
		return by, nil
	}
	t, ok := r.Term(term)
	if !ok || t.Sub != ids.SubNested {
		return term, nil
	}
	changed := false
	newArgs := make([]ids.ID, len(t.Args))
	for i, a := range t.Args {
		na, err := r.ReplaceVariablesInTerm(a, v, by)
		if err != nil {
			return ids.IDFail, err
		}
		newArgs[i] = na
		if na != a {
			changed = true
		}
	}
	if !changed {
		return term, nil
	}
	return r.StoreNestedTerm(t.Functor, newArgs)
}
