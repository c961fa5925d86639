// Package external evaluates external atoms against an interpretation
// and integrates their results back (spec §4.9, component C9): building
// the input tuples a plugin's Retrieve call is invoked with, verifying
// returned output tuples against the atom's declared output pattern, and
// handing the result to a pluggable integration callback.
//
// Grounded on the teacher's indexed query path in pkg/minikanren/pldb.go:
// Database.Query selects candidate facts (selectFacts) and then unifies
// each one against the caller's pattern (unifyFactGoal), which tracks
// repeated pattern variables in a varPositions map and rejects a
// candidate unless every occurrence agrees — the same "select candidates,
// then verify each one against a pattern that may repeat a variable"
// structure verifyOutputTuple below applies to a plugin's returned output
// tuples instead of a relation's stored facts.
//
// Retrieval across an aux-input fan-out is farmed out to the teacher's
// internal/parallel.StaticWorkerPool, bounded by Config's
// MaxParallelPluginCalls: one &p[X](Y) atom with many true aux-input
// tuples means many independent PluginAtom::retrieve calls, which is the
// same "fixed pool, bounded fan-out" shape the teacher built the pool
// for.
package external

import (
	"context"
	"fmt"
	"sync"

	"github.com/gitrdm/hexeval/internal/parallel"
	"github.com/gitrdm/hexeval/pkg/hex/config"
	"github.com/gitrdm/hexeval/pkg/hex/herrors"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// EAInputTupleCache memoizes the substituted input tuple reconstructed
// from a ground auxiliary-input atom's address, since the same
// aux-input atom can back many queries across a run (spec §4.9 step 3:
// "tuples are built once and reused globally").
type EAInputTupleCache struct {
	mu   sync.RWMutex
	byID map[uint32][]ids.ID
}

func NewEAInputTupleCache() *EAInputTupleCache {
	return &EAInputTupleCache{byID: make(map[uint32][]ids.ID)}
}

func (c *EAInputTupleCache) Get(addr uint32) ([]ids.ID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[addr]
	return t, ok
}

func (c *EAInputTupleCache) Put(addr uint32, tuple []ids.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[addr] = tuple
}

// IntegrationCallback receives an external atom's evaluation results one
// output tuple at a time. Evaluate calls EAtom once at the start, then
// Input/Output once per produced tuple.
type IntegrationCallback interface {
	EAtom(ea ids.ID)
	Input(tuple []ids.ID)
	Output(tuple []ids.ID) error
}

// Evaluator runs PluginAtom::retrieve calls and integrates their
// results.
type Evaluator struct {
	Registry *registry.Registry
	Config   *config.Config
	Cache    *EAInputTupleCache

	pool *parallel.StaticWorkerPool
}

func NewEvaluator(reg *registry.Registry, cfg *config.Config) *Evaluator {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Evaluator{
		Registry: reg,
		Config:   cfg,
		Cache:    NewEAInputTupleCache(),
		pool:     parallel.NewStaticWorkerPool(cfg.MaxParallelPluginCalls),
	}
}

// Close shuts down the evaluator's worker pool. Safe to call once a
// Evaluator is no longer needed; not calling it just leaks the pool's
// goroutines for the process lifetime, same as never closing any other
// long-lived worker pool.
func (e *Evaluator) Close() {
	e.pool.Shutdown()
}

// buildInputTuples enumerates the input tuples an external atom must be
// retrieved for (spec §4.9 step 3): the atom's own declared inputs if it
// has no aux-input predicate, or one substituted tuple per true bit of
// auxInputAtoms otherwise.
func (e *Evaluator) buildInputTuples(ea registry.ExternalAtom, auxInputAtoms *interp.Interpretation) ([][]ids.ID, error) {
	if !ea.HasAuxInput() {
		return [][]ids.ID{ea.Inputs}, nil
	}
	var tuples [][]ids.ID
	var rangeErr error
	auxInputAtoms.Iterate(func(addr uint32) {
		if rangeErr != nil {
			return
		}
		if cached, ok := e.Cache.Get(addr); ok {
			tuples = append(tuples, cached)
			return
		}
		args, ok := e.Registry.ArgsOf(addr)
		if !ok {
			rangeErr = fmt.Errorf("external: aux-input atom at address %d not found", addr)
			return
		}
		// args[0] is the aux-input predicate itself; args[1:] are the
		// bound values, one per auxInputMapping row.
		values := args[1:]
		substituted := append([]ids.ID(nil), ea.Inputs...)
		for auxPos, feeds := range ea.AuxInputMapping {
			if auxPos >= len(values) {
				continue
			}
			for _, inputPos := range feeds {
				if inputPos >= 0 && inputPos < len(substituted) {
					substituted[inputPos] = values[auxPos]
				}
			}
		}
		e.Cache.Put(addr, substituted)
		tuples = append(tuples, substituted)
	})
	return tuples, rangeErr
}

// verifyOutputTuple checks a returned tuple against the atom's declared
// output pattern by position-wise unification: a pattern variable may
// repeat and must bind consistently; a pattern constant/integer must
// match exactly; a pattern nested term is not checked further (spec
// §4.9 step 5).
func verifyOutputTuple(atomID ids.ID, pattern, tuple []ids.ID) error {
	atomName := fmt.Sprintf("ext:%v", atomID)
	if len(tuple) != len(pattern) {
		return herrors.NewPluginError(fmt.Sprintf("returned tuple of incompatible size: got %d, want %d", len(tuple), len(pattern))).WithAtom(atomName)
	}
	bindings := make(map[ids.ID]ids.ID)
	for i, p := range pattern {
		v := tuple[i]
		if v.Main() == ids.KindTerm && v.Sub() == ids.SubVariable {
			return herrors.NewPluginError(fmt.Sprintf("returned variable %v at output position %d", v, i)).WithAtom(atomName)
		}
		if p.Main() == ids.KindTerm && p.Sub() == ids.SubVariable {
			if bound, ok := bindings[p]; ok {
				if bound != v {
					return herrors.NewPluginError(fmt.Sprintf("output position %d conflicts with an earlier binding of the same pattern variable", i)).WithAtom(atomName)
				}
				continue
			}
			bindings[p] = v
			continue
		}
		if p.Main() == ids.KindTerm && p.Sub() == ids.SubNested {
			continue // nested-term patterns are not checked further
		}
		if p != v {
			return herrors.NewPluginError(fmt.Sprintf("output position %d does not match the declared constant pattern", i)).WithAtom(atomName)
		}
	}
	return nil
}

// Evaluate runs the full §4.9 retrieval pipeline for one external atom.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	atomID ids.ID,
	pa plugin.PluginAtom,
	mask *interp.ExternalAtomMask,
	I, predicateInputMask *interp.Interpretation,
	auxInputAtoms *interp.Interpretation,
	assigned, changed *interp.Interpretation,
	sink plugin.NogoodSink,
	cb IntegrationCallback,
) error {
	ea, ok := e.Registry.ExternalAtom(atomID)
	if !ok {
		return fmt.Errorf("external: unknown external atom %v", atomID)
	}
	if mask != nil {
		mask.Update()
	}

	iext := I.Clone()
	if predicateInputMask != nil {
		iext.Intersect(predicateInputMask)
	}

	var tuples [][]ids.ID
	var err error
	if auxInputAtoms != nil {
		tuples, err = e.buildInputTuples(ea, auxInputAtoms)
	} else {
		tuples, err = e.buildInputTuples(ea, interp.New())
	}
	if err != nil {
		return err
	}

	cb.EAtom(atomID)
	retrieve := func(inputs []ids.ID) (plugin.Answer, error) {
		query := plugin.Query{
			Interpretation:     I,
			ExtInterpretation:  iext,
			Inputs:             inputs,
			OutputPattern:      ea.Outputs,
			ExternalAtomID:     atomID,
			PredicateInputMask: predicateInputMask,
			Assigned:           assigned,
			Changed:            changed,
		}
		var answer plugin.Answer
		if retrieveErr := pa.Retrieve(ctx, query, &answer, sink); retrieveErr != nil {
			return answer, herrors.NewPluginError(retrieveErr.Error()).WithAtom(pa.Predicate())
		}
		return answer, nil
	}

	answers := make([]plugin.Answer, len(tuples))
	errs := make([]error, len(tuples))
	if len(tuples) > 1 {
		var wg sync.WaitGroup
		for i, inputs := range tuples {
			i, inputs := i, inputs
			wg.Add(1)
			if submitErr := e.pool.Submit(ctx, func() {
				defer wg.Done()
				answers[i], errs[i] = retrieve(inputs)
			}); submitErr != nil {
				wg.Done()
				errs[i] = submitErr
			}
		}
		wg.Wait()
	} else if len(tuples) == 1 {
		answers[0], errs[0] = retrieve(tuples[0])
	}

	for i, inputs := range tuples {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if errs[i] != nil {
			return errs[i]
		}
		cb.Input(inputs)
		for _, out := range answers[i].Tuples {
			if verr := verifyOutputTuple(atomID, ea.Outputs, out); verr != nil {
				return verr
			}
			if oerr := cb.Output(out); oerr != nil {
				return oerr
			}
		}
	}
	return nil
}
