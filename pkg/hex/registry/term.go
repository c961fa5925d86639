package registry

import (
	"fmt"
	"strings"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
)

// Term is one of: constant symbol, integer, variable, or nested term
// (functor applied to argument IDs). Address is the term's index inside
// the registry's term table.
type Term struct {
	ID       ids.ID
	Sub      ids.SubKind
	Text     string  // constant/variable name; derived+cached for nested
	IntValue int64   // meaningful iff Sub == SubInteger
	Functor  ids.ID  // meaningful iff Sub == SubNested
	Args     []ids.ID // meaningful iff Sub == SubNested
	Aux      bool
}

// IsGround reports whether the term contains no variable, recursively.
func (t Term) IsGround(r *Registry) bool {
	switch t.Sub {
	case ids.SubVariable:
		return false
	case ids.SubNested:
		for _, a := range t.Args {
			at, ok := r.Term(a)
			if !ok || !at.IsGround(r) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// printedForm derives the canonical textual form of a nested term from its
// functor and argument IDs, looking up each argument's own printed form.
// Re-interning this text is how the source canonicalises nested terms.
func (r *Registry) printedForm(functor ids.ID, args []ids.ID) (string, error) {
	fTerm, ok := r.Term(functor)
	if !ok {
		return "", fmt.Errorf("registry: unknown functor id %v", functor)
	}
	parts := make([]string, len(args))
	for i, a := range args {
		aTerm, ok := r.Term(a)
		if !ok {
			return "", fmt.Errorf("registry: unknown argument id %v at position %d", a, i)
		}
		parts[i] = r.termText(aTerm)
	}
	return fmt.Sprintf("%s(%s)", fTerm.Text, strings.Join(parts, ",")), nil
}

func (r *Registry) termText(t Term) string {
	switch t.Sub {
	case ids.SubInteger:
		return fmt.Sprintf("%d", t.IntValue)
	case ids.SubNested:
		return t.Text
	default:
		return t.Text
	}
}
