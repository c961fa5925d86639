package modelgen

import (
	"context"

	"github.com/gitrdm/hexeval/pkg/hex/asp"
	"github.com/gitrdm/hexeval/pkg/hex/external"
	"github.com/gitrdm/hexeval/pkg/hex/herrors"
	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// PlainFactory builds model generators for units with no inner external
// atoms (spec §4.6).
type PlainFactory struct {
	Registry           *registry.Registry
	Rules              []ids.ID // the unit's IDB, already ground
	OuterExternalAtoms []ids.ID
	PluginLookup       PluginLookup
	Solver             asp.Solver
	Evaluator          *external.Evaluator
	InputMask          *interp.Interpretation // facts projected away from yielded models
	IncludeAuxInput    bool
}

func (f *PlainFactory) Create(input *interp.Interpretation) (ModelGenerator, error) {
	return &plainMG{factory: f, input: input}, nil
}

type plainMG struct {
	factory *PlainFactory
	input   *interp.Interpretation
	models  []*interp.Interpretation
	pos     int
	started bool
	noRules bool
}

func (g *plainMG) NextModel(ctx context.Context) (*interp.Interpretation, bool, error) {
	if !g.started {
		g.started = true
		if err := g.run(ctx); err != nil {
			return nil, false, err
		}
	}
	if g.noRules {
		if g.pos > 0 {
			return nil, false, nil
		}
		g.pos++
		return g.project(g.input), true, nil
	}
	if g.pos >= len(g.models) {
		return nil, false, nil
	}
	m := g.models[g.pos]
	g.pos++
	return g.project(m), true, nil
}

func (g *plainMG) project(m *interp.Interpretation) *interp.Interpretation {
	out := m.Clone()
	if g.factory.InputMask != nil {
		out.Diff(g.factory.InputMask)
	}
	return out
}

func (g *plainMG) run(ctx context.Context) error {
	f := g.factory
	I := interp.New()
	if g.input != nil {
		I.Union(g.input)
	}

	if err := evaluateOuterExternals(ctx, f.Evaluator, f.PluginLookup, f.OuterExternalAtoms, I, f.IncludeAuxInput); err != nil {
		return err
	}

	if len(f.Rules) == 0 {
		g.noRules = true
		g.input = I
		return nil
	}

	models, err := solveOnce(ctx, f.Solver, asp.OrdinaryASPProgram{EDB: I, IDB: f.Rules})
	if err != nil {
		return herrors.WrapFatal("modelgen.plain", err, "solving the rewritten IDB failed")
	}
	g.models = models
	return nil
}
