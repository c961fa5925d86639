// Package registry implements the symbol registry (spec §4.1, component
// C1): interning of terms, ordinary atoms, rules, and external atoms,
// plus minting and inverse lookup of auxiliary symbols.
//
// Grounded on the teacher's pkg/minikanren/pldb.go (canonical, indexed
// interning of ground facts behind a single lock) and primitives.go
// (monotone-counter ID minting). Where the teacher makes a Database an
// immutable copy-on-write value for cheap backtracking snapshots, this
// registry is process-lifetime and append-only instead (spec §3
// "Lifecycles: Registry entries live for the whole run"), so a single
// sync.RWMutex held briefly on writes is enough.
package registry

import (
	"fmt"
	"sync"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
)

// Registry is the sole cross-component shared mutable state (spec §5).
// Reads (lookups) take the read lock; writes (interning, minting) take
// the write lock briefly and never hold it across a caller-supplied
// callback.
type Registry struct {
	mu sync.RWMutex

	terms       []Term
	constIndex  map[string]ids.ID
	varIndex    map[string]ids.ID
	intIndex    map[int64]ids.ID
	nestedIndex map[string]ids.ID

	groundAtoms    []OrdinaryAtom
	groundIndex    map[string]ids.ID
	nongroundAtoms []OrdinaryAtom
	nongroundIndex map[string]ids.ID

	externalAtoms []ExternalAtom

	rules      []Rule
	ruleIndex  map[string]ids.ID

	aggregates []Aggregate

	auxForward map[auxKey]ids.ID
	auxReverse map[ids.ID]auxSource
	auxType    map[ids.ID]byte
	auxMask    *interp.PredicateMask
	auxInputArity map[int]ids.ID // arity -> minted aux_in_<arity> constant id
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{
		constIndex:     make(map[string]ids.ID),
		varIndex:       make(map[string]ids.ID),
		intIndex:       make(map[int64]ids.ID),
		nestedIndex:    make(map[string]ids.ID),
		groundIndex:    make(map[string]ids.ID),
		nongroundIndex: make(map[string]ids.ID),
		ruleIndex:      make(map[string]ids.ID),
		auxForward:     make(map[auxKey]ids.ID),
		auxReverse:     make(map[ids.ID]auxSource),
		auxType:        make(map[ids.ID]byte),
		auxInputArity:  make(map[int]ids.ID),
	}
	r.auxMask = interp.NewPredicateMask(r)
	return r
}

// --- interp.PredicateLookup implementation, used by aux_ground_atom_mask
// and by any PredicateMask/ExternalAtomMask callers built on this registry.

func (r *Registry) PredicateOf(addr uint32) (ids.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(addr) >= len(r.groundAtoms) {
		return ids.IDFail, false
	}
	return r.groundAtoms[addr].Tuple[0], true
}

func (r *Registry) GroundAtomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groundAtoms)
}

func (r *Registry) ArgsOf(addr uint32) ([]ids.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(addr) >= len(r.groundAtoms) {
		return nil, false
	}
	return r.groundAtoms[addr].Tuple, true
}

// Term returns the term stored at id, if any.
func (r *Registry) Term(id ids.ID) (Term, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id.Main() != ids.KindTerm || int(id.Address) >= len(r.terms) {
		return Term{}, false
	}
	return r.terms[id.Address], true
}

// GroundAtom returns the ground ordinary atom stored at id.
func (r *Registry) GroundAtom(id ids.ID) (OrdinaryAtom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id.Address) >= len(r.groundAtoms) {
		return OrdinaryAtom{}, false
	}
	return r.groundAtoms[id.Address], true
}

// NongroundAtom returns the nonground ordinary atom stored at id.
func (r *Registry) NongroundAtom(id ids.ID) (OrdinaryAtom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id.Address) >= len(r.nongroundAtoms) {
		return OrdinaryAtom{}, false
	}
	return r.nongroundAtoms[id.Address], true
}

// ExternalAtom returns the external atom descriptor stored at id.
func (r *Registry) ExternalAtom(id ids.ID) (ExternalAtom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id.Address) >= len(r.externalAtoms) {
		return ExternalAtom{}, false
	}
	return r.externalAtoms[id.Address], true
}

// Rule returns the rule stored at id.
func (r *Registry) Rule(id ids.ID) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id.Address) >= len(r.rules) {
		return Rule{}, false
	}
	return r.rules[id.Address], true
}

// --- term interning ---

// StoreConstant interns a constant symbol, returning the existing ID if an
// equal one was already stored.
func (r *Registry) StoreConstant(s string, aux bool) ids.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.constIndex[s]; ok {
		return id
	}
	flags := ids.Flag(0)
	if aux {
		flags |= ids.FlagAux
	}
	id := ids.New(ids.KindTerm, ids.SubConstant, flags, uint32(len(r.terms)))
	r.terms = append(r.terms, Term{ID: id, Sub: ids.SubConstant, Text: s, Aux: aux})
	r.constIndex[s] = id
	return id
}

// StoreInteger interns an integer term.
func (r *Registry) StoreInteger(v int64) ids.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.intIndex[v]; ok {
		return id
	}
	id := ids.New(ids.KindTerm, ids.SubInteger, 0, uint32(len(r.terms)))
	r.terms = append(r.terms, Term{ID: id, Sub: ids.SubInteger, IntValue: v})
	r.intIndex[v] = id
	return id
}

// StoreVariable interns a variable symbol (capitalised name by HEX
// convention; the registry does not itself enforce capitalisation).
func (r *Registry) StoreVariable(s string, aux bool) ids.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.varIndex[s]; ok {
		return id
	}
	flags := ids.Flag(0)
	if aux {
		flags |= ids.FlagAux
	}
	id := ids.New(ids.KindTerm, ids.SubVariable, flags, uint32(len(r.terms)))
	r.terms = append(r.terms, Term{ID: id, Sub: ids.SubVariable, Text: s, Aux: aux})
	r.varIndex[s] = id
	return id
}

// StoreNestedTerm interns a function-symbol application. Its printed form
// is derived from functor and args and re-interned as the secondary key,
// so two structurally equal nested terms intern to the same ID.
func (r *Registry) StoreNestedTerm(functor ids.ID, args []ids.ID) (ids.ID, error) {
	text, err := r.printedForm(functor, args)
	if err != nil {
		return ids.IDFail, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.nestedIndex[text]; ok {
		return id, nil
	}
	id := ids.New(ids.KindTerm, ids.SubNested, 0, uint32(len(r.terms)))
	argsCopy := append([]ids.ID(nil), args...)
	r.terms = append(r.terms, Term{ID: id, Sub: ids.SubNested, Text: text, Functor: functor, Args: argsCopy})
	r.nestedIndex[text] = id
	return id, nil
}

// StoreTerm is a convenience dispatcher matching spec.md's generic
// `store_term(t) -> ID`, for callers building terms from a generic
// parsed representation rather than calling the specific Store* method.
type TermSpec struct {
	Kind     ids.SubKind
	Text     string
	IntValue int64
	Functor  ids.ID
	Args     []ids.ID
	Aux      bool
}

func (r *Registry) StoreTerm(spec TermSpec) (ids.ID, error) {
	switch spec.Kind {
	case ids.SubConstant:
		return r.StoreConstant(spec.Text, spec.Aux), nil
	case ids.SubInteger:
		return r.StoreInteger(spec.IntValue), nil
	case ids.SubVariable:
		return r.StoreVariable(spec.Text, spec.Aux), nil
	case ids.SubNested:
		return r.StoreNestedTerm(spec.Functor, spec.Args)
	default:
		return ids.IDFail, fmt.Errorf("registry: unsupported term kind %v", spec.Kind)
	}
}

// --- ordinary atom interning ---

// StoreOrdinaryGroundAtom canonicalises and interns a ground atom. tuple[0]
// must be the predicate term; every term in tuple must be ground.
func (r *Registry) StoreOrdinaryGroundAtom(tuple []ids.ID) (ids.ID, error) {
	if !r.atomIsGround(tuple) {
		return ids.IDFail, fmt.Errorf("registry: StoreOrdinaryGroundAtom called with a non-ground tuple")
	}
	text, err := r.atomText(tuple)
	if err != nil {
		return ids.IDFail, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.groundIndex[text]; ok {
		return id, nil
	}
	id := ids.New(ids.KindAtom, ids.SubOrdinaryGround, 0, uint32(len(r.groundAtoms)))
	tupleCopy := append([]ids.ID(nil), tuple...)
	r.groundAtoms = append(r.groundAtoms, OrdinaryAtom{ID: id, Tuple: tupleCopy, Ground: true, Text: text})
	r.groundIndex[text] = id
	return id, nil
}

// StoreOrdinaryNongroundAtom canonicalises and interns a nonground atom.
func (r *Registry) StoreOrdinaryNongroundAtom(tuple []ids.ID) (ids.ID, error) {
	text, err := r.atomText(tuple)
	if err != nil {
		return ids.IDFail, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.nongroundIndex[text]; ok {
		return id, nil
	}
	id := ids.New(ids.KindAtom, ids.SubOrdinaryNonground, 0, uint32(len(r.nongroundAtoms)))
	tupleCopy := append([]ids.ID(nil), tuple...)
	r.nongroundAtoms = append(r.nongroundAtoms, OrdinaryAtom{ID: id, Tuple: tupleCopy, Ground: false, Text: text})
	r.nongroundIndex[text] = id
	return id, nil
}

// StoreExternalAtom stores an external-atom descriptor under a fresh ID.
// Every call appends a new ExternalAtom entry; identical descriptors are
// not deduplicated, unlike ordinary-atom interning.
func (r *Registry) StoreExternalAtom(ea ExternalAtom) ids.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := ids.New(ids.KindAtom, ids.SubExternal, 0, uint32(len(r.externalAtoms)))
	ea.ID = id
	r.externalAtoms = append(r.externalAtoms, ea)
	return id
}

// --- rule interning ---

// StoreRule interns a rule by structural equality of its head set,
// ordered body, and kind flags.
func (r *Registry) StoreRule(head []ids.ID, body []Literal) ids.ID {
	key := ruleKey(head, body)
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ruleIndex[key]; ok {
		return id
	}
	dedupedHead := dedupSorted(head)
	containsExt := false
	for _, l := range body {
		if l.Atom.Main() == ids.KindAtom && l.Atom.Sub() == ids.SubExternal {
			containsExt = true
			break
		}
	}
	rule := Rule{
		Head:                  dedupedHead,
		Body:                  append([]Literal(nil), body...),
		Disjunctive:           len(dedupedHead) > 1,
		Constraint:            len(dedupedHead) == 0,
		ContainsExternalAtoms: containsExt,
	}
	id := ids.New(ids.KindRule, ids.SubNone, 0, uint32(len(r.rules)))
	rule.ID = id
	r.rules = append(r.rules, rule)
	r.ruleIndex[key] = id
	return id
}

// Aggregate is a minimal representation of an aggregate term: an
// aggregate function applied to a set of bound variables ranging over a
// body of atoms. Aggregates are a collaborator concern in full generality
// (arbitrary aggregate functions); the registry stores only what §4.3's
// recursive-aggregate detection and §4.1's GetVariablesIn need.
type Aggregate struct {
	ID        ids.ID
	Function  string
	BoundVars []ids.ID
	Body      []Literal
}

// StoreAggregate interns an aggregate term, returning an ID of kind
// KindTerm/SubAggregate addressing the aggregates table.
func (r *Registry) StoreAggregate(agg Aggregate) ids.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := ids.New(ids.KindTerm, ids.SubAggregate, 0, uint32(len(r.aggregates)))
	agg.ID = id
	r.aggregates = append(r.aggregates, agg)
	return id
}

func (r *Registry) Aggregate(id ids.ID) (Aggregate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id.Address) >= len(r.aggregates) {
		return Aggregate{}, false
	}
	return r.aggregates[id.Address], true
}
