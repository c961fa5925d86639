// Package asp defines the ASP solver back-end interface consumed by the
// model generators (spec §4.6-4.8, §6) and a small reference solver used
// by this module's own tests and examples.
//
// Solving a ground disjunctive program is itself a collaborator concern
// (spec §1 lists "specific external-predicate implementations" as out of
// scope; an off-the-shelf ASP solver is the same kind of pluggable
// dependency). NaiveSolver below is a brute-force reference
// implementation — not a production solver — so the rest of the pipeline
// has something concrete to drive without depending on an external
// process. It enumerates candidate models by brute force and is only
// suitable for the small ground programs this repository's own tests
// and examples use.
package asp

import (
	"context"
	"sort"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// OrdinaryASPProgram is a ground program: an EDB (fact bitset), an IDB
// (rule IDs, already ground), an optional mask of atoms to project away
// from returned answer sets, and an optional integer domain bound.
type OrdinaryASPProgram struct {
	EDB    *interp.Interpretation
	IDB    []ids.ID
	Mask   *interp.Interpretation
	MaxInt int
}

// Results streams answer sets one at a time.
type Results interface {
	NextAnswerSet(ctx context.Context) (*interp.Interpretation, bool, error)
}

// Solver is the pluggable ASP back-end interface.
type Solver interface {
	Solve(ctx context.Context, program OrdinaryASPProgram) (Results, error)
	// SetOptimumBound informs solvers that support cost functions of a
	// known optimum to prune against; solvers that don't support
	// optimization silently ignore it (spec §1 Non-goals: "no
	// optimisation search beyond passing a known optimum bound down").
	SetOptimumBound(bound int)
}

// relevantAtoms returns every ground atom address mentioned by the
// program's EDB or by any rule's head/body, sorted ascending.
func relevantAtoms(reg *registry.Registry, program OrdinaryASPProgram) []uint32 {
	set := make(map[uint32]struct{})
	program.EDB.Iterate(func(a uint32) { set[a] = struct{}{} })
	for _, rid := range program.IDB {
		rule, ok := reg.Rule(rid)
		if !ok {
			continue
		}
		for _, h := range rule.Head {
			if h.Sub() == ids.SubOrdinaryGround {
				set[h.Address] = struct{}{}
			}
		}
		for _, lit := range rule.Body {
			if lit.Atom.Sub() == ids.SubOrdinaryGround {
				set[lit.Atom.Address] = struct{}{}
			}
		}
	}
	out := make([]uint32, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ruleSatisfied(reg *registry.Registry, rid ids.ID, model *interp.Interpretation) bool {
	rule, _ := reg.Rule(rid)
	for _, lit := range rule.Body {
		true_ := lit.Atom.Sub() == ids.SubOrdinaryGround && model.Test(lit.Atom.Address)
		if lit.NAF == true_ {
			return true // body not satisfied, rule vacuously holds
		}
	}
	if len(rule.Head) == 0 {
		return false // constraint: body satisfied, no head atom can save it
	}
	for _, h := range rule.Head {
		if h.Sub() == ids.SubOrdinaryGround && model.Test(h.Address) {
			return true
		}
	}
	return false
}

func isModel(reg *registry.Registry, program OrdinaryASPProgram, model *interp.Interpretation) bool {
	ok := true
	program.EDB.Iterate(func(a uint32) {
		if !model.Test(a) {
			ok = false
		}
	})
	if !ok {
		return false
	}
	for _, rid := range program.IDB {
		if !ruleSatisfied(reg, rid, model) {
			return false
		}
	}
	return true
}

// reductSatisfiedPositively reports whether rule rid holds in candidate
// under the Gelfond-Lifschitz reduct against model: a rule with a negative
// body literal that model makes true is not part of the reduct (reported
// as satisfied); otherwise its negative literals are dropped and its
// positive body and head are checked against candidate.
func reductSatisfiedPositively(reg *registry.Registry, rid ids.ID, model, candidate *interp.Interpretation) bool {
	rule, _ := reg.Rule(rid)
	for _, lit := range rule.Body {
		if lit.NAF {
			if model.Test(lit.Atom.Address) {
				return true // negative literal false under model's reduct test: rule discarded from reduct
			}
			continue
		}
		if lit.Atom.Sub() == ids.SubOrdinaryGround && !candidate.Test(lit.Atom.Address) {
			return true // positive body not satisfied by candidate: vacuous
		}
	}
	if len(rule.Head) == 0 {
		return false
	}
	for _, h := range rule.Head {
		if h.Sub() == ids.SubOrdinaryGround && candidate.Test(h.Address) {
			return true
		}
	}
	return false
}

// isMinimalModelOfReduct reports whether model is ⊆-minimal among models
// of its own GL-reduct w.r.t. program's IDB — the answer-set minimality
// condition for normal (non-disjunctive) and disjunctive programs alike
// when FLP and GL coincide (no external atoms in the reduct).
func isMinimalModelOfReduct(reg *registry.Registry, program OrdinaryASPProgram, model *interp.Interpretation, atoms []uint32) bool {
	// model itself must satisfy its own reduct.
	for _, rid := range program.IDB {
		if !reductSatisfiedPositively(reg, rid, model, model) {
			return false
		}
	}
	// No proper subset of model (still a superset of EDB) may also
	// satisfy the reduct.
	var trueBits []uint32
	for _, a := range atoms {
		if model.Test(a) {
			trueBits = append(trueBits, a)
		}
	}
	n := len(trueBits)
	if n > 20 {
		// Degenerate safeguard for the brute-force reference solver: it is
		// only meant to drive small test/example programs.
		return true
	}
	for mask := 0; mask < (1 << n); mask++ {
		candidate := interp.New()
		program.EDB.Iterate(func(a uint32) { candidate.Set(a) })
		for i, a := range trueBits {
			if mask&(1<<i) != 0 {
				candidate.Set(a)
			}
		}
		if candidate.Equal(model) {
			continue
		}
		isSubset := true
		candidate.Iterate(func(a uint32) {
			if !model.Test(a) {
				isSubset = false
			}
		})
		if !isSubset {
			continue
		}
		allSatisfied := true
		for _, rid := range program.IDB {
			if !reductSatisfiedPositively(reg, rid, model, candidate) {
				allSatisfied = false
				break
			}
		}
		if allSatisfied {
			return false // a proper subset also models the reduct: not minimal
		}
	}
	return true
}

// NaiveSolver enumerates every subset of the program's relevant atoms,
// keeping those that are models and are ⊆-minimal models of their own
// GL-reduct.
type NaiveSolver struct {
	Registry *registry.Registry
}

func NewNaiveSolver(reg *registry.Registry) *NaiveSolver { return &NaiveSolver{Registry: reg} }

func (s *NaiveSolver) SetOptimumBound(int) {} // no optimization support

type naiveResults struct {
	models []*interp.Interpretation
	pos    int
}

func (r *naiveResults) NextAnswerSet(ctx context.Context) (*interp.Interpretation, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}
	if r.pos >= len(r.models) {
		return nil, false, nil
	}
	m := r.models[r.pos]
	r.pos++
	return m, true, nil
}

func (s *NaiveSolver) Solve(ctx context.Context, program OrdinaryASPProgram) (Results, error) {
	atoms := relevantAtoms(s.Registry, program)
	n := len(atoms)
	var models []*interp.Interpretation

	// atoms already forced true by EDB are fixed; only the remaining
	// atoms are guessed.
	var free []uint32
	for _, a := range atoms {
		if !program.EDB.Test(a) {
			free = append(free, a)
		}
	}
	for mask := 0; mask < (1 << len(free)); mask++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		cand := interp.New()
		program.EDB.Iterate(func(a uint32) { cand.Set(a) })
		for i, a := range free {
			if mask&(1<<i) != 0 {
				cand.Set(a)
			}
		}
		if !isModel(s.Registry, program, cand) {
			continue
		}
		if !isMinimalModelOfReduct(s.Registry, program, cand, atoms) {
			continue
		}
		models = append(models, cand)
	}
	_ = n
	return &naiveResults{models: models}, nil
}
