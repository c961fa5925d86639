package registry

import (
	"testing"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
)

func TestConstantInterningRoundTrip(t *testing.T) {
	r := New()
	a := r.StoreConstant("alice", false)
	b := r.StoreConstant("alice", false)
	if a != b {
		t.Fatalf("re-storing an equal constant must return the same ID, got %v != %v", a, b)
	}
	term, ok := r.Term(a)
	if !ok || term.Text != "alice" {
		t.Fatalf("lookup(store(t)) must round-trip the text form, got %+v", term)
	}
}

func TestOrdinaryGroundAtomInterningIsCanonical(t *testing.T) {
	r := New()
	edge := r.StoreConstant("edge", false)
	s := r.StoreConstant("s", false)
	tt := r.StoreConstant("t", false)

	a1, err := r.StoreOrdinaryGroundAtom([]ids.ID{edge, s, tt})
	if err != nil {
		t.Fatal(err)
	}
	a2, err := r.StoreOrdinaryGroundAtom([]ids.ID{edge, s, tt})
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Fatalf("storing the same ground atom twice must intern to one ID")
	}
	if r.GroundAtomCount() != 1 {
		t.Fatalf("expected exactly one ground atom stored, got %d", r.GroundAtomCount())
	}
}

func TestStoreOrdinaryGroundAtomRejectsNonGround(t *testing.T) {
	r := New()
	p := r.StoreConstant("p", false)
	x := r.StoreVariable("X", false)
	if _, err := r.StoreOrdinaryGroundAtom([]ids.ID{p, x}); err == nil {
		t.Fatalf("expected an error storing a non-ground tuple as a ground atom")
	}
}

func TestAuxConstantBijection(t *testing.T) {
	r := New()
	src := r.StoreConstant("member", false)

	aux, err := r.AuxConstant(AuxReplacementPos, src)
	if err != nil {
		t.Fatal(err)
	}
	gotSrc, ok := r.IDFromAuxConstant(aux)
	if !ok || gotSrc != src {
		t.Fatalf("id_from_aux_constant(aux_constant(type,src)) = (%v,%v), want (%v,true)", gotSrc, ok, src)
	}
	typ, ok := r.TypeOfAux(aux)
	if !ok || typ != AuxReplacementPos {
		t.Fatalf("type_of_aux(aux_constant(type,src)) = (%c,%v), want (%c,true)", typ, ok, AuxReplacementPos)
	}

	again, err := r.AuxConstant(AuxReplacementPos, src)
	if err != nil {
		t.Fatal(err)
	}
	if again != aux {
		t.Fatalf("AuxConstant must be idempotent for the same (type, source)")
	}
}

func TestAuxGroundAtomMaskMonotonicity(t *testing.T) {
	r := New()
	src := r.StoreConstant("p", false)

	before := r.AuxGroundAtomMask().Count()

	auxPred, err := r.AuxConstant(AuxDomainPredicate, src)
	if err != nil {
		t.Fatal(err)
	}
	arg := r.StoreConstant("a", false)
	if _, err := r.StoreOrdinaryGroundAtom([]ids.ID{auxPred, arg}); err != nil {
		t.Fatal(err)
	}

	after := r.AuxGroundAtomMask().Count()
	if after < before {
		t.Fatalf("aux ground atom mask must never lose bits: before=%d after=%d", before, after)
	}
	if after == 0 {
		t.Fatalf("expected the newly stored aux-predicate atom to be reflected in the mask")
	}
}

func TestSwapExternalAuxIsAnInvolution(t *testing.T) {
	r := New()
	src := r.StoreConstant("member", false)
	rPred, err := r.AuxConstant(AuxReplacementPos, src)
	if err != nil {
		t.Fatal(err)
	}
	arg := r.StoreConstant("x", false)
	rAtom, err := r.StoreOrdinaryGroundAtom([]ids.ID{rPred, arg})
	if err != nil {
		t.Fatal(err)
	}

	nAtom, err := r.SwapExternalAux(rAtom)
	if err != nil {
		t.Fatal(err)
	}
	back, err := r.SwapExternalAux(nAtom)
	if err != nil {
		t.Fatal(err)
	}
	if back != rAtom {
		t.Fatalf("swap(swap(a)) must equal a: got %v, want %v", back, rAtom)
	}

	nTerm, _ := r.GroundAtom(nAtom)
	nTyp, _ := r.TypeOfAux(nTerm.Tuple[0])
	if nTyp != AuxReplacementNeg {
		t.Fatalf("expected the swapped atom's predicate to be the n-auxiliary, got type %c", nTyp)
	}
}

func TestAuxConstantCollisionIsFatal(t *testing.T) {
	r := New()
	src := r.StoreConstant("q", false)
	// Pre-seed a constant with exactly the name AuxConstant would mint.
	name := auxName(AuxReplacementPos, src)
	r.StoreConstant(name, false)

	if _, err := r.AuxConstant(AuxReplacementPos, src); err == nil {
		t.Fatalf("expected a fatal error on auxiliary-name collision")
	}
}

func TestReplaceVariablesInTerm(t *testing.T) {
	r := New()
	f := r.StoreConstant("f", false)
	x := r.StoreVariable("X", false)
	a := r.StoreConstant("a", false)
	nested, err := r.StoreNestedTerm(f, []ids.ID{x, x})
	if err != nil {
		t.Fatal(err)
	}

	replaced, err := r.ReplaceVariablesInTerm(nested, x, a)
	if err != nil {
		t.Fatal(err)
	}
	rt, ok := r.Term(replaced)
	if !ok {
		t.Fatal("replaced term not found")
	}
	if rt.Text != "f(a,a)" {
		t.Fatalf("ReplaceVariablesInTerm: got %q, want f(a,a)", rt.Text)
	}
}

func TestGetVariablesInRule(t *testing.T) {
	r := New()
	reach := r.StoreConstant("reach", false)
	edge := r.StoreConstant("edge", false)
	x := r.StoreVariable("X", false)
	y := r.StoreVariable("Y", false)

	headAtom, _ := r.StoreOrdinaryNongroundAtom([]ids.ID{reach, x})
	bodyAtom1, _ := r.StoreOrdinaryNongroundAtom([]ids.ID{edge, x, y})
	bodyAtom2, _ := r.StoreOrdinaryNongroundAtom([]ids.ID{reach, y})

	rule := Rule{
		Head: []ids.ID{headAtom},
		Body: []Literal{{Atom: bodyAtom1}, {Atom: bodyAtom2}},
	}
	vars := r.GetVariablesInRule(rule, true, true)
	if len(vars) != 2 {
		t.Fatalf("expected 2 distinct variables, got %d: %v", len(vars), vars)
	}
}

func TestStoreRuleStructuralEquality(t *testing.T) {
	r := New()
	p := r.StoreConstant("p", false)
	q := r.StoreConstant("q", false)
	a := r.StoreConstant("a", false)

	h, _ := r.StoreOrdinaryGroundAtom([]ids.ID{p, a})
	h2, _ := r.StoreOrdinaryGroundAtom([]ids.ID{q, a})
	b, _ := r.StoreOrdinaryGroundAtom([]ids.ID{q, a})

	r1 := r.StoreRule([]ids.ID{h, h2}, []Literal{{Atom: b}})
	r2 := r.StoreRule([]ids.ID{h2, h}, []Literal{{Atom: b}}) // head order swapped

	if r1 != r2 {
		t.Fatalf("rules differing only in head order must intern to the same rule ID")
	}
	rule, ok := r.Rule(r1)
	if !ok {
		t.Fatal("rule not found")
	}
	if !rule.Disjunctive {
		t.Fatalf("expected a 2-atom head to be flagged disjunctive")
	}
}
