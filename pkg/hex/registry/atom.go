package registry

import (
	"fmt"
	"strings"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
)

// OrdinaryAtom is a tuple of term IDs; Tuple[0] is the predicate. Ground
// iff no variable occurs anywhere in the tuple. The canonicalised text
// form is the atom's secondary key for interning.
type OrdinaryAtom struct {
	ID     ids.ID
	Tuple  []ids.ID
	Ground bool
	Text   string
}

func (r *Registry) atomText(tuple []ids.ID) (string, error) {
	if len(tuple) == 0 {
		return "", fmt.Errorf("registry: atom must have at least a predicate term")
	}
	predTerm, ok := r.Term(tuple[0])
	if !ok {
		return "", fmt.Errorf("registry: unknown predicate id %v", tuple[0])
	}
	parts := make([]string, len(tuple)-1)
	for i, a := range tuple[1:] {
		t, ok := r.Term(a)
		if !ok {
			return "", fmt.Errorf("registry: unknown argument id %v at position %d", a, i)
		}
		parts[i] = r.termText(t)
	}
	if len(parts) == 0 {
		return predTerm.Text, nil
	}
	return fmt.Sprintf("%s(%s)", predTerm.Text, strings.Join(parts, ",")), nil
}

func (r *Registry) atomIsGround(tuple []ids.ID) bool {
	for _, a := range tuple {
		t, ok := r.Term(a)
		if !ok || !t.IsGround(r) {
			return false
		}
	}
	return true
}

// ExternalAtom is a call `&p[inputs](outputs)` with an optional
// auxiliary-input predicate and mapping describing, for each position of
// the auxiliary-input tuple, which input positions it feeds.
type ExternalAtom struct {
	ID                ids.ID
	Predicate         ids.ID // constant term naming the external predicate
	Inputs            []ids.ID
	Outputs           []ids.ID
	AuxInputPredicate ids.ID   // ids.IDFail if this atom needs no aux-input grounding
	AuxInputMapping   [][]int  // per aux-input position, feeding input positions
}

// HasAuxInput reports whether this external atom requires an
// auxiliary-input predicate to ground variable inputs.
func (e ExternalAtom) HasAuxInput() bool { return !e.AuxInputPredicate.IsFail() }
