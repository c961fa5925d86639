package registry

import (
	"fmt"

	"github.com/gitrdm/hexeval/pkg/hex/herrors"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
)

// auxKey identifies a minted auxiliary constant by its type character and
// source ID, per spec §3 "Auxiliary symbols... minted on demand via
// (char type, ID source) -> ID constant".
type auxKey struct {
	Type   byte
	Source ids.ID
}

type auxSource struct {
	Source ids.ID
}

// Auxiliary symbol type characters (spec §3).
const (
	AuxReplacementPos  = 'r' // positive external-atom replacement predicate
	AuxReplacementNeg  = 'n' // negative external-atom replacement predicate
	AuxInputPredicate  = 'i' // auxiliary-input predicate
	AuxFLPHead         = 'f' // FLP-check head
	AuxDomainPredicate = 'd' // domain predicate
	AuxOntologyGuard   = 'o' // ontology/guard
)

// auxName renders the on-wire text form aux_<type>_<kindhex>_<addrhex>
// (spec §6 "Auxiliary-symbol on-wire format").
func auxName(typ byte, source ids.ID) string {
	kindWord := uint32(source.Main()) | uint32(source.Sub())<<4 | uint32(source.Flags())<<12
	return fmt.Sprintf("aux_%c_%x_%x", typ, kindWord, source.Address)
}

// AuxConstant mints (idempotently) the auxiliary constant of the given
// type for source. A second call with the same (type, source) returns the
// same ID; it never re-derives the name or touches the reverse maps
// twice.
func (r *Registry) AuxConstant(typ byte, source ids.ID) (ids.ID, error) {
	key := auxKey{Type: typ, Source: source}

	r.mu.Lock()
	if id, ok := r.auxForward[key]; ok {
		r.mu.Unlock()
		return id, nil
	}
	name := auxName(typ, source)
	if _, collision := r.constIndex[name]; collision {
		r.mu.Unlock()
		return ids.IDFail, herrors.NewFatal("registry", "auxiliary symbol name collision for %q: a constant with this exact name already exists", name)
	}
	r.mu.Unlock()

	// StoreConstant takes its own lock; minting flags are applied below.
	id := r.StoreConstant(name, true)
	flags := ids.FlagAux
	if typ == AuxReplacementPos || typ == AuxReplacementNeg {
		flags |= ids.FlagExternalAux
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.terms[id.Address].ID = r.terms[id.Address].ID.WithFlags(flags)
	id = r.terms[id.Address].ID
	r.auxForward[key] = id
	r.auxReverse[id] = auxSource{Source: source}
	r.auxType[id] = typ
	r.auxMask.AddPredicate(id)
	return id, nil
}

// IDFromAuxConstant reverse-maps an auxiliary constant to its source ID.
func (r *Registry) IDFromAuxConstant(id ids.ID) (ids.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.auxReverse[id]
	if !ok {
		return ids.IDFail, false
	}
	return src.Source, true
}

// TypeOfAux returns the type character an auxiliary constant was minted
// with.
func (r *Registry) TypeOfAux(id ids.ID) (byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typ, ok := r.auxType[id]
	return typ, ok
}

// AuxGroundAtomMask returns the bitset of ground-atom addresses whose
// predicate is any auxiliary constant, rescanning from the watermark.
func (r *Registry) AuxGroundAtomMask() *interp.Interpretation {
	r.auxMask.Update()
	return r.auxMask.Mask()
}

// AuxInputConstant mints (idempotently, per distinct arity) an
// auxiliary-input predicate name arity-suffixed as aux_in_<arity>, the
// original source's scheme for avoiding accidental unification between
// auxiliary-input atoms of different external atoms that happen to share
// an arity-insensitive name (SPEC_FULL.md supplemented feature 4).
func (r *Registry) AuxInputConstant(arity int) ids.ID {
	r.mu.Lock()
	if id, ok := r.auxInputArity[arity]; ok {
		r.mu.Unlock()
		return id
	}
	r.mu.Unlock()
	name := fmt.Sprintf("aux_in_%d", arity)
	id := r.StoreConstant(name, true)
	r.mu.Lock()
	r.terms[id.Address].ID = r.terms[id.Address].ID.WithFlags(ids.FlagAux | ids.FlagExternalInputAux)
	id = r.terms[id.Address].ID
	r.auxInputArity[arity] = id
	r.auxMask.AddPredicate(id)
	r.mu.Unlock()
	return id
}

// SwapExternalAux returns the replacement atom over the opposite polarity
// of a given ground r/n replacement atom, minting the counterpart
// external-atom replacement constant if this is the first time it is
// needed. The resulting atom carries the original's kind flags and the
// same argument tuple (spec §3 invariant, §8 "Replacement-swap
// involution").
func (r *Registry) SwapExternalAux(atomID ids.ID) (ids.ID, error) {
	atom, ok := r.GroundAtom(atomID)
	if !ok {
		return ids.IDFail, fmt.Errorf("registry: SwapExternalAux: unknown ground atom %v", atomID)
	}
	predID := atom.Tuple[0]
	typ, ok := r.TypeOfAux(predID)
	if !ok || (typ != AuxReplacementPos && typ != AuxReplacementNeg) {
		return ids.IDFail, fmt.Errorf("registry: SwapExternalAux: atom's predicate is not an r/n replacement auxiliary")
	}
	source, _ := r.IDFromAuxConstant(predID)

	otherType := byte(AuxReplacementNeg)
	if typ == AuxReplacementNeg {
		otherType = AuxReplacementPos
	}
	otherPred, err := r.AuxConstant(otherType, source)
	if err != nil {
		return ids.IDFail, err
	}

	newTuple := append([]ids.ID{otherPred}, atom.Tuple[1:]...)
	newID, err := r.StoreOrdinaryGroundAtom(newTuple)
	if err != nil {
		return ids.IDFail, err
	}
	return newID.WithFlags(atomID.Flags()), nil
}
