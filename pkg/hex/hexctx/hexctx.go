// Package hexctx defines ProgramCtx, the value threaded through every
// evaluation phase (component analysis, safety checking, eval-graph
// construction, model generation, online building): the registry that
// owns every interned entity, the effective configuration, a structured
// logger, and a per-run correlation ID.
//
// Grounded on the teacher's ContextMonitor in
// pkg/minikanren/context_utils.go, which bundles a per-session
// correlation id (operationID) with a logger and hands the pair down
// through an operation's lifetime rather than threading each as its own
// parameter; ProgramCtx generalizes that pairing to also carry the
// registry and config every evaluation phase needs.
package hexctx

import (
	"github.com/gitrdm/hexeval/pkg/hex/config"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProgramCtx is the shared evaluation context. Phases take a *ProgramCtx
// instead of individually threading *registry.Registry, *config.Config,
// and a logger.
type ProgramCtx struct {
	Registry *registry.Registry
	Config   *config.Config
	Logger   *zap.SugaredLogger
	RunID    uuid.UUID
}

// New builds a ProgramCtx for one evaluation run, generating a fresh
// RunID for log correlation across the CLI's subcommands.
func New(reg *registry.Registry, cfg *config.Config, logger *zap.Logger) *ProgramCtx {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.New()
	return &ProgramCtx{
		Registry: reg,
		Config:   cfg,
		Logger:   logger.Sugar().With("run_id", runID.String()),
		RunID:    runID,
	}
}

// With returns a derived logger tagged with an extra "phase" field, the
// way each evaluation phase (safety, evalgraph, modelgen, external,
// online, domainexp) identifies its own log lines.
func (p *ProgramCtx) With(phase string) *zap.SugaredLogger {
	return p.Logger.With("phase", phase)
}
