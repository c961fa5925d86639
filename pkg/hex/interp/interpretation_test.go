package interp

import (
	"testing"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
)

func TestSetClearTest(t *testing.T) {
	in := New()
	in.Set(3)
	in.Set(130)
	if !in.Test(3) || !in.Test(130) {
		t.Fatalf("expected bits 3 and 130 set")
	}
	if in.Test(4) {
		t.Fatalf("bit 4 should not be set")
	}
	in.Clear(3)
	if in.Test(3) {
		t.Fatalf("bit 3 should be cleared")
	}
}

func TestUnionIntersectDiff(t *testing.T) {
	a := New()
	a.Set(1)
	a.Set(2)
	b := New()
	b.Set(2)
	b.Set(3)

	union := a.Clone()
	union.Union(b)
	if union.Count() != 3 {
		t.Fatalf("union count = %d, want 3", union.Count())
	}

	inter := a.Clone()
	inter.Intersect(b)
	if inter.Count() != 1 || !inter.Test(2) {
		t.Fatalf("intersect should contain only bit 2")
	}

	diff := a.Clone()
	diff.Diff(b)
	if diff.Count() != 1 || !diff.Test(1) {
		t.Fatalf("diff should contain only bit 1")
	}
}

func TestIterateAscending(t *testing.T) {
	in := New()
	for _, b := range []uint32{70, 1, 200, 64} {
		in.Set(b)
	}
	var seen []uint32
	in.Iterate(func(addr uint32) { seen = append(seen, addr) })
	want := []uint32{1, 64, 70, 200}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
}

// fakeLookup implements PredicateLookup over an in-memory slice of
// (predicate, args) ground atoms, for exercising PredicateMask/ExternalAtomMask
// without a full registry.
type fakeLookup struct {
	atoms [][]ids.ID // args[0] is the predicate
}

func (f *fakeLookup) PredicateOf(addr uint32) (ids.ID, bool) {
	if int(addr) >= len(f.atoms) {
		return ids.IDFail, false
	}
	return f.atoms[addr][0], true
}

func (f *fakeLookup) GroundAtomCount() int { return len(f.atoms) }

func (f *fakeLookup) ArgsOf(addr uint32) ([]ids.ID, bool) {
	if int(addr) >= len(f.atoms) {
		return nil, false
	}
	return f.atoms[addr], true
}

func constID(addr uint32) ids.ID { return ids.New(ids.KindTerm, ids.SubConstant, 0, addr) }

func TestPredicateMaskIncrementalMatchesFullRescan(t *testing.T) {
	p1, p2 := constID(100), constID(101)
	lookup := &fakeLookup{atoms: [][]ids.ID{
		{p1, constID(1)},
		{p2, constID(2)},
	}}
	mask := NewPredicateMask(lookup)
	mask.AddPredicate(p1)
	mask.Update()

	lookup.atoms = append(lookup.atoms, []ids.ID{p1, constID(3)}, []ids.ID{p2, constID(4)})
	mask.Update()

	full := mask.rescanFull()
	if !mask.Mask().Equal(full) {
		t.Fatalf("incremental mask %v diverged from full rescan %v", mask.Mask(), full)
	}
	if mask.Mask().Count() != 2 {
		t.Fatalf("expected 2 atoms with predicate p1, got %d", mask.Mask().Count())
	}
}

func TestPredicateMaskAddPredicateResetsWatermark(t *testing.T) {
	p1, p2 := constID(100), constID(101)
	lookup := &fakeLookup{atoms: [][]ids.ID{{p1, constID(1)}, {p2, constID(2)}}}
	mask := NewPredicateMask(lookup)
	mask.AddPredicate(p1)
	mask.Update()
	if mask.Mask().Count() != 1 {
		t.Fatalf("expected 1 match before adding p2")
	}

	mask.AddPredicate(p2)
	mask.Update()
	if mask.Mask().Count() != 2 {
		t.Fatalf("expected watermark reset to re-test atom 1 against p2, got count=%d", mask.Mask().Count())
	}
}

func TestExternalAtomMaskTracksOutputsAsAuxInputsAppear(t *testing.T) {
	rPred := constID(200)
	auxIn := constID(201)
	lookup := &fakeLookup{}
	calls := 0
	match := func(tuple []ids.ID) bool {
		calls++
		return true
	}
	eam := NewExternalAtomMask(lookup, []ids.ID{rPred}, auxIn, match)
	eam.Update()
	if len(eam.OutputAtoms()) != 0 {
		t.Fatalf("expected no output atoms yet")
	}

	lookup.atoms = append(lookup.atoms, []ids.ID{auxIn, constID(1)}, []ids.ID{rPred, auxIn, constID(1)})
	eam.Update()
	if len(eam.OutputAtoms()) != 1 {
		t.Fatalf("expected 1 output atom once aux-input and replacement atom are present, got %d", len(eam.OutputAtoms()))
	}
}
