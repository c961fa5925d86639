package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
)

// Literal is an atom ID paired with a negation-as-failure bit.
type Literal struct {
	Atom ids.ID
	NAF  bool
}

func (l Literal) String() string {
	if l.NAF {
		return fmt.Sprintf("not %v", l.Atom)
	}
	return fmt.Sprintf("%v", l.Atom)
}

// Rule is a head disjunction (set semantics) over an ordered body (list
// semantics, since order can matter for grounding and for join-order
// heuristics upstream of this module).
type Rule struct {
	ID                    ids.ID
	Head                  []ids.ID // deduplicated, sorted for canonical form
	Body                  []Literal
	Disjunctive           bool
	Constraint            bool
	ContainsExternalAtoms bool
}

// ruleKey returns the structural-equality key used to intern rules:
// a sorted, deduplicated head set and the ordered body, so that two rules
// differing only in head-atom order or duplicate head atoms intern to the
// same Rule.
func ruleKey(head []ids.ID, body []Literal) string {
	h := dedupSorted(head)
	var sb strings.Builder
	sb.WriteString("H:")
	for i, id := range h {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%v", id)
	}
	sb.WriteString("|B:")
	for i, l := range body {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(l.String())
	}
	return sb.String()
}

func dedupSorted(head []ids.ID) []ids.ID {
	h := append([]ids.ID(nil), head...)
	sort.Slice(h, func(i, j int) bool { return h[i].Less(h[j]) })
	out := h[:0]
	for i, id := range h {
		if i == 0 || id != h[i-1] {
			out = append(out, id)
		}
	}
	return out
}
