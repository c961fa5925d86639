// Package ids defines the identifier scheme shared by every registry-owned
// entity in the evaluator: terms, atoms, literals, and rules.
//
// Rather than bare pointers into owned containers (the pattern the dlvhex
// core uses, complete with explicit destructor calls on entities other code
// still references), every cross-reference in this module is a copyable
// ID(kind, address) value. Kind is a bit-packed tag carrying a main kind, a
// sub-kind, and a handful of property flags; address is the index of the
// entity inside the table that owns it. Nothing outside a registry ever
// holds a long-lived pointer into registry storage.
package ids

import "fmt"

// MainKind is the coarse classification of an ID: what kind of table its
// address indexes into.
type MainKind uint32

const (
	KindTerm MainKind = iota
	KindAtom
	KindLiteral
	KindRule
)

// SubKind further classifies an ID within its MainKind.
type SubKind uint32

const (
	SubNone SubKind = iota

	// Term sub-kinds.
	SubConstant
	SubInteger
	SubVariable
	SubNested

	// Atom sub-kinds.
	SubOrdinaryGround
	SubOrdinaryNonground
	SubBuiltin
	SubAggregate
	SubExternal
	SubModule
)

// Flag bits are OR-ed into an ID's packed kind word alongside MainKind and
// SubKind. They never affect address interpretation.
type Flag uint32

const (
	FlagNAF Flag = 1 << iota
	FlagAux
	FlagExternalAux
	FlagExternalInputAux
	FlagDisjunctive
	FlagExtAtomsInBody
)

const (
	mainShift = 0
	mainBits  = 4
	mainMask  = (1 << mainBits) - 1

	subShift = mainBits
	subBits  = 8
	subMask  = (1 << subBits) - 1

	flagShift = mainBits + subBits
)

// ID is a totally ordered, copyable reference to a registry-owned entity.
// Two IDs are equal iff their (kind, address) pair is equal; flags are part
// of kind and therefore participate in equality and ordering, matching the
// source's packed-word identifier.
type ID struct {
	kind    uint32 // packed MainKind | SubKind<<mainBits | flags<<(mainBits+subBits)
	Address uint32
}

// IDFail is a sentinel distinguishable from every real ID: no valid address
// ever pairs with it because its packed kind field uses a reserved all-ones
// pattern no constructor below ever produces.
var IDFail = ID{kind: 0xFFFFFFFF, Address: 0xFFFFFFFF}

// New packs a main kind, sub kind, and flag set into an ID at the given
// address.
func New(main MainKind, sub SubKind, flags Flag, address uint32) ID {
	k := (uint32(main) & mainMask) << mainShift
	k |= (uint32(sub) & subMask) << subShift
	k |= uint32(flags) << flagShift
	return ID{kind: k, Address: address}
}

// Main returns the ID's main kind.
func (id ID) Main() MainKind { return MainKind((id.kind >> mainShift) & mainMask) }

// Sub returns the ID's sub kind.
func (id ID) Sub() SubKind { return SubKind((id.kind >> subShift) & subMask) }

// Flags returns the ID's property flags.
func (id ID) Flags() Flag { return Flag(id.kind >> flagShift) }

// HasFlag reports whether every bit of f is set on the ID.
func (id ID) HasFlag(f Flag) bool { return id.kind>>flagShift&uint32(f) == uint32(f) }

// WithFlags returns a copy of id with f OR-ed into its flag set.
func (id ID) WithFlags(f Flag) ID {
	id.kind |= uint32(f) << flagShift
	return id
}

// IsFail reports whether id is the ID_FAIL sentinel.
func (id ID) IsFail() bool { return id == IDFail }

// Less gives the total order over IDs: first by kind word (main, sub, and
// flags together), then by address. This matches the source's
// (kind, address) lexicographic ordering used for deterministic iteration
// and as a map/BTree key.
func (id ID) Less(other ID) bool {
	if id.kind != other.kind {
		return id.kind < other.kind
	}
	return id.Address < other.Address
}

func (id ID) String() string {
	if id.IsFail() {
		return "ID_FAIL"
	}
	return fmt.Sprintf("ID(main=%d,sub=%d,flags=%#x,addr=%d)", id.Main(), id.Sub(), id.Flags(), id.Address)
}
