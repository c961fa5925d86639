package modelgen

import (
	"context"

	"github.com/gitrdm/hexeval/pkg/hex/asp"
	"github.com/gitrdm/hexeval/pkg/hex/config"
	"github.com/gitrdm/hexeval/pkg/hex/external"
	"github.com/gitrdm/hexeval/pkg/hex/herrors"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// WellfoundedFactory builds model generators for strictly monotonic
// components with inner external atoms (spec §4.7).
type WellfoundedFactory struct {
	Registry           *registry.Registry
	Config             *config.Config
	Rules              []ids.ID // inner rules; rewritten to xidb form lazily, once
	InnerExternalAtoms []ids.ID
	OuterExternalAtoms []ids.ID
	PluginLookup       PluginLookup
	Solver             asp.Solver
	Evaluator          *external.Evaluator
	InputMask          *interp.Interpretation
	IncludeAuxInput    bool

	xidb     []ids.ID
	prepared bool
}

func (f *WellfoundedFactory) prepare() error {
	if f.prepared {
		return nil
	}
	xidb, err := rewriteRulesWithReplacements(f.Registry, f.Rules, f.IncludeAuxInput)
	if err != nil {
		return err
	}
	f.xidb = xidb
	f.prepared = true
	return nil
}

func (f *WellfoundedFactory) Create(input *interp.Interpretation) (ModelGenerator, error) {
	if err := f.prepare(); err != nil {
		return nil, err
	}
	return &wellfoundedMG{factory: f, input: input}, nil
}

type wellfoundedMG struct {
	factory *WellfoundedFactory
	input   *interp.Interpretation
	done    bool
	result  *interp.Interpretation
	ran     bool
}

func (g *wellfoundedMG) NextModel(ctx context.Context) (*interp.Interpretation, bool, error) {
	if g.done {
		return nil, false, nil
	}
	if !g.ran {
		g.ran = true
		m, err := g.run(ctx)
		if err != nil {
			return nil, false, err
		}
		g.result = m
	}
	g.done = true
	out := g.result.Clone()
	if g.factory.InputMask != nil {
		out.Diff(g.factory.InputMask)
	}
	return out, true, nil
}

func (g *wellfoundedMG) run(ctx context.Context) (*interp.Interpretation, error) {
	f := g.factory
	cur := interp.New()
	if g.input != nil {
		cur.Union(g.input)
	}
	if err := evaluateOuterExternals(ctx, f.Evaluator, f.PluginLookup, f.OuterExternalAtoms, cur, f.IncludeAuxInput); err != nil {
		return nil, err
	}

	iterCap := f.Config.WellfoundedIterationCap
	if iterCap <= 0 {
		iterCap = config.Default().WellfoundedIterationCap
	}

	for iter := 0; iter < iterCap; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		newint := cur.Clone()
		for _, eaID := range f.InnerExternalAtoms {
			pa, ok := f.PluginLookup(eaID)
			if !ok {
				continue
			}
			cb := &integrateReplacements{reg: f.Registry, target: newint, cfg: f.IncludeAuxInput}
			if err := f.Evaluator.Evaluate(ctx, eaID, pa, nil, newint, nil, nil, nil, nil, nil, cb); err != nil {
				return nil, err
			}
		}

		models, err := solveOnce(ctx, f.Solver, asp.OrdinaryASPProgram{EDB: newint, IDB: f.xidb})
		if err != nil {
			return nil, herrors.WrapFatal("modelgen.wellfounded", err, "solving the rewritten IDB failed")
		}
		if len(models) == 0 {
			return nil, herrors.NewFatal("modelgen.wellfounded", "unit is inconsistent: rewritten IDB has no answer set")
		}
		if len(models) > 1 {
			return nil, herrors.NewFatal("modelgen.wellfounded", "rewritten IDB of a monotonic unit produced %d answer sets, expected exactly one", len(models))
		}
		m := models[0]
		if m.Equal(newint) {
			return m, nil
		}
		cur = m
	}
	return nil, herrors.NewFatal("modelgen.wellfounded", "fixpoint did not converge within %d iterations", iterCap)
}
