// Command hexeval is the thin CLI front end for the pkg/hex evaluator
// library, following the teacher's pkg/minikanren + cmd/example split:
// the core stays a library, and this binary wires a registry, a loaded
// program, and a configuration together for the solve/explain/graph
// subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/gitrdm/hexeval/pkg/hex/config"
	"github.com/gitrdm/hexeval/pkg/hex/hexctx"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:   "hexeval",
		Short: "hexeval — a disjunctive ASP + external-atom (HEX) evaluator",
		Long: `hexeval drives the pkg/hex evaluation pipeline over a ground
ordinary-ASP program: dependency analysis, component condensation,
evaluation-graph construction, and the online lazy model builder.

External atoms are a library concern (registering a PluginAtom is not
exposed here); this CLI exercises the ordinary-ASP path end to end.`,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults applied otherwise)")

	root.AddCommand(solveCmd(), explainCmd(), graphCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger mirrors codenerd's cmd/nerd verbosity-selected zap
// construction: production config normally, debug level under -v.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

// loadConfig reads --config if given, else returns config.Default().
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("hexeval: reading config %s: %w", configPath, err)
	}
	return config.Load(data)
}

// newProgramCtx builds the ProgramCtx every subcommand runs its pipeline
// through: a fresh registry, the effective config, and a zap logger
// carrying the run's correlation id.
func newProgramCtx() (*hexctx.ProgramCtx, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("hexeval: building logger: %w", err)
	}
	pctx := hexctx.New(registry.New(), cfg, logger)
	pctx.Logger.Debugw("program context initialized", "run_id", pctx.RunID.String())
	return pctx, nil
}

func readProgramFile(path string) (*program, *hexctx.ProgramCtx, error) {
	pctx, err := newProgramCtx()
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("hexeval: reading %s: %w", path, err)
	}
	prog, err := loadProgram(pctx.Registry, data)
	if err != nil {
		return nil, nil, err
	}
	return prog, pctx, nil
}
