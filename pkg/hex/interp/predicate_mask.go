package interp

import "github.com/gitrdm/hexeval/pkg/hex/ids"

// PredicateMask holds a set of predicate IDs and a lazily-updated bitset
// such that bit a is set iff the ground atom at address a has a predicate
// in the set. The watermark avoids rescanning addresses already accounted
// for; AddPredicate resets it because a newly added predicate might match
// atoms stored before it was added.
type PredicateMask struct {
	predicates map[ids.ID]struct{}
	mask       *Interpretation
	watermark  int
	lookup     PredicateLookup
}

// NewPredicateMask creates a mask over lookup's ground atoms.
func NewPredicateMask(lookup PredicateLookup) *PredicateMask {
	return &PredicateMask{
		predicates: make(map[ids.ID]struct{}),
		mask:       New(),
		lookup:     lookup,
	}
}

// AddPredicate adds p to the watched predicate set and resets the
// watermark to force a full rescan on the next Update, since atoms stored
// before p was added were never tested against it.
func (m *PredicateMask) AddPredicate(p ids.ID) {
	if _, ok := m.predicates[p]; ok {
		return
	}
	m.predicates[p] = struct{}{}
	m.watermark = 0
}

// Update scans all ground-atom addresses from the watermark forward and
// sets bits for every atom whose predicate is in the set, then advances
// the watermark past the scanned range.
func (m *PredicateMask) Update() {
	n := m.lookup.GroundAtomCount()
	for a := m.watermark; a < n; a++ {
		pred, ok := m.lookup.PredicateOf(uint32(a))
		if !ok {
			continue
		}
		if _, want := m.predicates[pred]; want {
			m.mask.Set(uint32(a))
		}
	}
	m.watermark = n
}

// Mask returns the current bitset. Callers should Update() first if new
// atoms may have been stored since the last call.
func (m *PredicateMask) Mask() *Interpretation { return m.mask }

// Contains reports whether addr is currently included in the mask.
func (m *PredicateMask) Contains(addr uint32) bool { return m.mask.Test(addr) }

// rescanFull recomputes the mask from scratch, used by tests to check
// incrementality against a known-good baseline.
func (m *PredicateMask) rescanFull() *Interpretation {
	full := New()
	n := m.lookup.GroundAtomCount()
	for a := 0; a < n; a++ {
		pred, ok := m.lookup.PredicateOf(uint32(a))
		if !ok {
			continue
		}
		if _, want := m.predicates[pred]; want {
			full.Set(uint32(a))
		}
	}
	return full
}

// MatchFunc decides whether a replacement atom's ground argument tuple
// could unify with an external atom's declared input pattern. Supplied by
// the external-atom evaluator, which owns unification logic.
type MatchFunc func(tuple []ids.ID) bool

// ExternalAtomMask specialises PredicateMask to track the replacement atoms
// ("r"/"n" auxiliaries) of one external atom instance as its auxiliary-input
// bindings become known.
type ExternalAtomMask struct {
	*PredicateMask
	outputAtoms   map[uint32]struct{}
	auxInputMask  *PredicateMask
	matchFunc     MatchFunc
	lastAuxWmark  int
	collectedOnce bool
}

// NewExternalAtomMask creates a mask that watches replPredicates (the r/n
// auxiliary predicates of one external atom) and auxInputPred (that atom's
// auxiliary-input predicate, or ids.IDFail if it has none), re-testing
// output atoms with match whenever new aux-input atoms appear.
func NewExternalAtomMask(lookup PredicateLookup, replPredicates []ids.ID, auxInputPred ids.ID, match MatchFunc) *ExternalAtomMask {
	pm := NewPredicateMask(lookup)
	for _, p := range replPredicates {
		pm.AddPredicate(p)
	}
	eam := &ExternalAtomMask{
		PredicateMask: pm,
		outputAtoms:   make(map[uint32]struct{}),
		matchFunc:     match,
	}
	if !auxInputPred.IsFail() {
		eam.auxInputMask = NewPredicateMask(lookup)
		eam.auxInputMask.AddPredicate(auxInputPred)
	}
	return eam
}

// Update rescans replacement-predicate atoms (via the embedded
// PredicateMask) and, once per call, checks any newly-true aux-input atom
// against every replacement-predicate atom collected so far, growing
// outputAtoms with those that now match.
func (e *ExternalAtomMask) Update() {
	e.PredicateMask.Update()

	auxGrew := e.auxInputMask == nil // no aux-input predicate: treat as always "grown" once
	if e.auxInputMask != nil {
		before := e.auxInputMask.Mask().Count()
		e.auxInputMask.Update()
		auxGrew = e.auxInputMask.Mask().Count() != before
	}

	if !e.collectedOnce || auxGrew {
		e.collectedOnce = true
		e.PredicateMask.Mask().Iterate(func(addr uint32) {
			tuple, ok := e.lookup.ArgsOf(addr)
			if !ok {
				return
			}
			if e.matchFunc == nil || e.matchFunc(tuple) {
				e.outputAtoms[addr] = struct{}{}
			} else {
				delete(e.outputAtoms, addr)
			}
		})
	}
}

// OutputAtoms returns the set of replacement-atom addresses currently
// believed to belong to this external atom instance.
func (e *ExternalAtomMask) OutputAtoms() map[uint32]struct{} { return e.outputAtoms }
