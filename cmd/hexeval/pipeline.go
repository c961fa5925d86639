package main

import (
	"sort"

	"github.com/gitrdm/hexeval/pkg/hex/asp"
	"github.com/gitrdm/hexeval/pkg/hex/compgraph"
	"github.com/gitrdm/hexeval/pkg/hex/depgraph"
	"github.com/gitrdm/hexeval/pkg/hex/evalgraph"
	"github.com/gitrdm/hexeval/pkg/hex/external"
	"github.com/gitrdm/hexeval/pkg/hex/hexctx"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/modelgen"
	"github.com/gitrdm/hexeval/pkg/hex/online"
	"github.com/gitrdm/hexeval/pkg/hex/plugin"
)

// noPluginLookup and noExtProps are the PluginLookup/ExtPropsLookup the
// CLI wires everywhere: programDoc never produces external atoms (spec
// §6 treats plugin registration as a library, not a CLI, concern), so
// every lookup legitimately finds nothing.
func noPluginLookup(ids.ID) (plugin.PluginAtom, bool)       { return nil, false }
func noExtProps(ids.ID) plugin.ExtSourceProperties          { return plugin.ExtSourceProperties{} }

// pipeline is every analysis phase's output for one loaded program, kept
// together so solve/explain/graph can each print the slice they care
// about without re-running earlier phases.
type pipeline struct {
	Dep  *depgraph.Graph
	Comp *compgraph.Graph
	Eval *evalgraph.Graph
	EDB  *interp.Interpretation
}

// buildPipeline runs C4 through C7 over prog's rule set against pctx's
// registry, deriving the eval graph's predecessor edges directly from
// every cross-component dependency-graph edge (evalgraph.Build's own doc
// comment: "callers typically derive this from the same depgraph.Graph
// that produced the component graph").
func buildPipeline(pctx *hexctx.ProgramCtx, prog *program) *pipeline {
	log := pctx.With("pipeline")

	dep := depgraph.BuildFromRules(pctx.Registry, prog.Rules)
	log.Debugw("dependency graph built", "nodes", len(dep.Nodes()))

	cg := compgraph.Build(dep, pctx.Registry, noExtProps)
	log.Debugw("component graph built", "components", len(cg.Components))

	edgesBetween := make(map[int]map[int]struct{})
	for _, u := range dep.Nodes() {
		iu, ok := cg.IndexOf(u)
		if !ok {
			continue
		}
		for v := range dep.Successors(u) {
			iv, ok := cg.IndexOf(v)
			if !ok || iv == iu {
				continue
			}
			if edgesBetween[iu] == nil {
				edgesBetween[iu] = make(map[int]struct{})
			}
			edgesBetween[iu][iv] = struct{}{}
		}
	}
	depends := func(i int) []int {
		out := make([]int, 0, len(edgesBetween[i]))
		for j := range edgesBetween[i] {
			out = append(out, j)
		}
		sort.Ints(out)
		return out
	}

	eg := evalgraph.Build(cg, depends, evalgraph.BuildOptions{ForceGC: pctx.Config.ForceGC})
	log.Debugw("evaluation graph built", "units", len(eg.Units))

	return &pipeline{Dep: dep, Comp: cg, Eval: eg, EDB: prog.EDB}
}

// factoriesFor builds one modelgen.Factory per evaluation unit, matching
// the FactoryKind evalgraph.Build already chose per spec §4.5's
// precondition table.
func factoriesFor(pctx *hexctx.ProgramCtx, eg *evalgraph.Graph) []modelgen.Factory {
	solver := asp.NewNaiveSolver(pctx.Registry)
	ev := external.NewEvaluator(pctx.Registry, pctx.Config)

	factories := make([]modelgen.Factory, len(eg.Units))
	for i, u := range eg.Units {
		comp := u.Component
		switch u.Factory {
		case evalgraph.FactoryWellfounded:
			factories[i] = &modelgen.WellfoundedFactory{
				Registry:           pctx.Registry,
				Config:             pctx.Config,
				Rules:              comp.InnerRules,
				InnerExternalAtoms: comp.InnerExternalAtoms,
				OuterExternalAtoms: comp.OuterExternalAtoms,
				PluginLookup:       noPluginLookup,
				Solver:             solver,
				Evaluator:          ev,
				IncludeAuxInput:    pctx.Config.IncludeAuxInputInAuxiliaries,
			}
		case evalgraph.FactoryGuessAndCheck:
			factories[i] = &modelgen.GuessAndCheckFactory{
				Registry:           pctx.Registry,
				Config:             pctx.Config,
				Rules:              comp.InnerRules,
				InnerExternalAtoms: comp.InnerExternalAtoms,
				OuterExternalAtoms: comp.OuterExternalAtoms,
				PluginLookup:       noPluginLookup,
				ExtProps:           noExtProps,
				Solver:             solver,
				Evaluator:          ev,
				IncludeAuxInput:    pctx.Config.IncludeAuxInputInAuxiliaries,
			}
		default:
			factories[i] = &modelgen.PlainFactory{
				Registry:           pctx.Registry,
				Rules:              comp.InnerRules,
				OuterExternalAtoms: comp.OuterExternalAtoms,
				PluginLookup:       noPluginLookup,
				Solver:             solver,
				Evaluator:          ev,
				IncludeAuxInput:    pctx.Config.IncludeAuxInputInAuxiliaries,
			}
		}
	}
	return factories
}

// newBuilder wires the online lazy model builder (C10) on top of a
// pipeline's evaluation graph and per-unit factories.
func newBuilder(pctx *hexctx.ProgramCtx, p *pipeline) *online.Builder {
	factories := factoriesFor(pctx, p.Eval)
	return online.NewBuilder(pctx.Registry, p.Eval, factories, pctx.Config.RetainModels)
}
