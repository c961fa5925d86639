package ids

import "testing"

func TestNewAndAccessors(t *testing.T) {
	id := New(KindAtom, SubOrdinaryGround, FlagAux|FlagExternalAux, 42)

	if id.Main() != KindAtom {
		t.Fatalf("Main() = %v, want %v", id.Main(), KindAtom)
	}
	if id.Sub() != SubOrdinaryGround {
		t.Fatalf("Sub() = %v, want %v", id.Sub(), SubOrdinaryGround)
	}
	if !id.HasFlag(FlagAux) || !id.HasFlag(FlagExternalAux) {
		t.Fatalf("expected both FlagAux and FlagExternalAux set")
	}
	if id.HasFlag(FlagDisjunctive) {
		t.Fatalf("did not expect FlagDisjunctive set")
	}
	if id.Address != 42 {
		t.Fatalf("Address = %d, want 42", id.Address)
	}
}

func TestIDFailSentinel(t *testing.T) {
	real := New(KindTerm, SubConstant, 0, 0)
	if real.IsFail() {
		t.Fatalf("a freshly constructed ID must never equal ID_FAIL")
	}
	if !IDFail.IsFail() {
		t.Fatalf("IDFail.IsFail() must be true")
	}
}

func TestOrderingByKindThenAddress(t *testing.T) {
	a := New(KindTerm, SubConstant, 0, 5)
	b := New(KindTerm, SubConstant, 0, 7)
	c := New(KindAtom, SubOrdinaryGround, 0, 1)

	if !a.Less(b) {
		t.Fatalf("expected %v < %v by address", a, b)
	}
	if !a.Less(c) {
		t.Fatalf("expected term kind to sort before atom kind: %v vs %v", a, c)
	}
}

func TestWithFlagsIsAdditive(t *testing.T) {
	base := New(KindAtom, SubExternal, 0, 1)
	withNAF := base.WithFlags(FlagNAF)

	if base.HasFlag(FlagNAF) {
		t.Fatalf("WithFlags must not mutate the receiver")
	}
	if !withNAF.HasFlag(FlagNAF) {
		t.Fatalf("expected FlagNAF set on the derived ID")
	}
	if withNAF.Main() != base.Main() || withNAF.Sub() != base.Sub() || withNAF.Address != base.Address {
		t.Fatalf("WithFlags must preserve main, sub, and address")
	}
}
