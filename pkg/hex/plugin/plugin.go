// Package plugin defines the PluginAtom interface (spec §6) and the
// supporting types external-atom evaluation (component C9) and component
// analysis (C5, C6) both need: input/output type tags, declared
// monotonicity/functionality properties, and the query/answer/nogood
// shapes exchanged with a plugin's Retrieve call.
//
// Registration of concrete plugins (by (name, version) pair) is out of
// scope per spec §6; this package only defines the interface plugins
// implement and the core calls through, the same division the teacher
// draws with SolverPlugin in pkg/minikanren/hybrid.go: the core
// (HybridSolver) dispatches to whatever plugin claims a constraint via
// CanHandle, never enumerating concrete plugin types itself.
package plugin

import (
	"context"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
)

// InputType classifies one position of a PluginAtom's declared input
// list.
type InputType int

const (
	InputConstant InputType = iota
	InputPredicate
	InputTuple
)

// WellOrderingPair records that output position OutIdx is well-ordered
// (e.g. strictly shorter as a string) relative to input position InIdx,
// information the liberal safety fixpoint (§4.4) uses to bound variables
// introduced by value-inventing external atoms.
type WellOrderingPair struct {
	InIdx, OutIdx int
}

// ExtSourceProperties declares, per external atom instance, the
// properties the component/safety/learning analyses need and cannot
// infer from syntax alone.
type ExtSourceProperties struct {
	// Monotonic[i]/Antimonotonic[i] describe input position i. An input
	// can be neither (general nonmonotonic dependence).
	Monotonic      []bool
	Antimonotonic  []bool
	Functional     bool
	FunctionalFrom int // prefix length after which functionality holds
	ProvidesPartialAnswer bool
	ProvidesSupportSets   bool
	WellOrdering          []WellOrderingPair
}

// IsMonotonicInput reports whether position i is declared monotonic.
func (p ExtSourceProperties) IsMonotonicInput(i int) bool {
	return i >= 0 && i < len(p.Monotonic) && p.Monotonic[i]
}

// IsAntimonotonicInput reports whether position i is declared antimonotonic.
func (p ExtSourceProperties) IsAntimonotonicInput(i int) bool {
	return i >= 0 && i < len(p.Antimonotonic) && p.Antimonotonic[i]
}

// IsNonmonotonicInput reports whether position i is neither monotonic nor
// antimonotonic, the condition §4.3 tests for innerEatomsNonmonotonic.
func (p ExtSourceProperties) IsNonmonotonicInput(i int) bool {
	return !p.IsMonotonicInput(i) && !p.IsAntimonotonicInput(i)
}

// Query carries everything a Retrieve call needs to evaluate one external
// atom instance against one input tuple.
type Query struct {
	Interpretation     *interp.Interpretation // full current interpretation
	ExtInterpretation  *interp.Interpretation // I ∩ predicate-input-mask
	Inputs             []ids.ID               // the atom's declared input tuple, after substitution
	OutputPattern      []ids.ID
	ExternalAtomID     ids.ID
	PredicateInputMask *interp.Interpretation
	Assigned           *interp.Interpretation // nil if not a partial-interpretation evaluation
	Changed            *interp.Interpretation // nil if not a partial-interpretation evaluation
}

// Answer accumulates the output tuples a Retrieve call produces.
type Answer struct {
	Tuples [][]ids.ID
}

// Literal is a signed ground atom address, the unit nogoods are built
// from: Negative=false means the literal must be true, Negative=true
// means it must be false.
type Literal struct {
	Addr     uint32
	Negative bool
}

// Nogood is a set of signed literals that must never be jointly true.
type Nogood struct {
	Literals []Literal
}

// NogoodSink is implemented by the learner/solver boundary that accepts
// nogoods emitted by LearnSupportSets or by the core's own learners.
type NogoodSink interface {
	Add(ng Nogood)
}

// PluginAtom is the interface every external predicate implementation
// satisfies (spec §6). Parsing, registration, and concrete predicate
// logic are out of scope; the core only calls through this interface.
type PluginAtom interface {
	Predicate() string
	InputArity() int
	OutputArity() int
	InputTypeAt(i int) InputType
	ExtSourceProperties() ExtSourceProperties

	// Retrieve evaluates the atom for one input tuple already bound into
	// query.Inputs, appending any output tuples to answer and any
	// derived nogoods to nogoods (nogoods may be nil if the caller has no
	// solver nogood container attached).
	Retrieve(ctx context.Context, query Query, answer *Answer, nogoods NogoodSink) error

	// LearnSupportSets is called once per external atom instance if the
	// plugin declares ProvidesSupportSets; the plugin emits nogoods the
	// core filters against ontology guard atoms (spec §4.9).
	LearnSupportSets(ctx context.Context, query Query, nogoods NogoodSink) error
}
