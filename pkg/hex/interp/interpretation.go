// Package interp provides the dense ground-atom bitset ("Interpretation")
// and the incrementally-updated predicate masks built on top of it.
//
// The bitset here plays the same role BitSetDomain plays for finite-domain
// variables in the teacher package: a packed []uint64 word array with
// popcount-based cardinality and ascending-order iteration, sized to the
// largest address ever observed rather than a fixed value range.
package interp

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
)

const wordBits = 64

// Interpretation is a mutable, dense bitset over ordinary ground atom
// addresses. Bit i is set iff the ground atom at address i is true under
// this interpretation.
type Interpretation struct {
	words []uint64
}

// New returns an empty interpretation.
func New() *Interpretation {
	return &Interpretation{}
}

func wordIndex(addr uint32) (word int, bit uint) {
	return int(addr / wordBits), uint(addr % wordBits)
}

func (in *Interpretation) ensure(word int) {
	if word < len(in.words) {
		return
	}
	grown := make([]uint64, word+1)
	copy(grown, in.words)
	in.words = grown
}

// Set marks addr as true.
func (in *Interpretation) Set(addr uint32) {
	w, b := wordIndex(addr)
	in.ensure(w)
	in.words[w] |= 1 << b
}

// Clear marks addr as false.
func (in *Interpretation) Clear(addr uint32) {
	w, b := wordIndex(addr)
	if w >= len(in.words) {
		return
	}
	in.words[w] &^= 1 << b
}

// Test reports whether addr is set.
func (in *Interpretation) Test(addr uint32) bool {
	w, b := wordIndex(addr)
	if w >= len(in.words) {
		return false
	}
	return in.words[w]&(1<<b) != 0
}

// Count returns the number of true bits.
func (in *Interpretation) Count() int {
	n := 0
	for _, w := range in.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Clone returns an independent copy.
func (in *Interpretation) Clone() *Interpretation {
	cp := make([]uint64, len(in.words))
	copy(cp, in.words)
	return &Interpretation{words: cp}
}

func (in *Interpretation) alignedWith(other *Interpretation) []uint64 {
	n := len(in.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	out := make([]uint64, n)
	return out
}

// Union sets in = in ∪ other, in place.
func (in *Interpretation) Union(other *Interpretation) {
	if other == nil {
		return
	}
	if len(other.words) > len(in.words) {
		in.ensure(len(other.words) - 1)
	}
	for i, w := range other.words {
		in.words[i] |= w
	}
}

// Intersect sets in = in ∩ other, in place.
func (in *Interpretation) Intersect(other *Interpretation) {
	for i := range in.words {
		if i < len(other.words) {
			in.words[i] &= other.words[i]
		} else {
			in.words[i] = 0
		}
	}
}

// Diff sets in = in \ other, in place.
func (in *Interpretation) Diff(other *Interpretation) {
	for i := range in.words {
		if i < len(other.words) {
			in.words[i] &^= other.words[i]
		}
	}
}

// Equal reports whether two interpretations have identical true-bit sets.
func (in *Interpretation) Equal(other *Interpretation) bool {
	n := len(in.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(in.words) {
			a = in.words[i]
		}
		if i < len(other.words) {
			b = other.words[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

// Iterate calls f for every true bit, in ascending address order.
func (in *Interpretation) Iterate(f func(addr uint32)) {
	for wi, w := range in.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			f(uint32(wi*wordBits + tz))
			w &^= 1 << uint(tz)
		}
	}
}

func (in *Interpretation) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	first := true
	in.Iterate(func(addr uint32) {
		if !first {
			sb.WriteString(",")
		}
		first = false
		fmt.Fprintf(&sb, "%d", addr)
	})
	sb.WriteString("}")
	return sb.String()
}

// PredicateLookup is implemented by the registry to let predicate masks
// rescan ground atoms without interp importing the registry package (which
// would create an import cycle, since the registry stores the aux ground
// atom mask defined here).
type PredicateLookup interface {
	// PredicateOf returns the predicate term ID of the ground atom at addr,
	// and false if addr is not a valid ground atom address.
	PredicateOf(addr uint32) (ids.ID, bool)
	// GroundAtomCount returns the number of ground atoms currently stored.
	GroundAtomCount() int
	// ArgsOf returns the full argument tuple of the ground atom at addr.
	ArgsOf(addr uint32) ([]ids.ID, bool)
}
