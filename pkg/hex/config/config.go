// Package config defines the evaluator's solve-time options, loadable
// from YAML (grounded on ehrlich-b-wingthing and storbeck-augustus, both
// of which load their runtime config from YAML via gopkg.in/yaml.v3),
// with defaults applied in code.
package config

import "gopkg.in/yaml.v3"

// FLPCheckMode selects whether guess-and-check verifies FLP minimality,
// and how (SPEC_FULL.md supplemented feature 3, from the original
// dlvhex CLI's --flpcheck flag).
type FLPCheckMode string

const (
	FLPCheckNone     FLPCheckMode = "none"
	FLPCheckExplicit FLPCheckMode = "explicit"
)

// NogoodMinimizerKind selects the minimization strategy
// learnFromInputOutputBehavior applies before handing a nogood to the
// solver (SPEC_FULL.md supplemented feature 5).
type NogoodMinimizerKind string

const (
	NogoodMinimizerNone         NogoodMinimizerKind = "none"
	NogoodMinimizerQuickExplain NogoodMinimizerKind = "quickexplain"
)

// Config groups every solve-time option named across spec.md §4.5-§4.11.
type Config struct {
	// ForceGC always selects GuessAndCheck as a unit's model generator,
	// overriding the Plain/Wellfounded preconditions (spec §4.5).
	ForceGC bool `yaml:"force_gc"`

	// RetainModels caches successful per-unit model-generator outputs in
	// the online builder rather than recomputing on revisit (spec
	// §4.10). Must be false when external atoms are nondeterministic or
	// when learning would otherwise be wasted by replaying a cached
	// result without re-deriving its nogoods.
	RetainModels bool `yaml:"retain_models"`

	// WellfoundedIterationCap bounds the wellfounded model generator's
	// fixpoint loop (spec §4.7); exceeding it is a FatalError.
	WellfoundedIterationCap int `yaml:"wellfounded_iteration_cap"`

	// FLPCheck selects whether/how guess-and-check verifies subset
	// minimality of accepted guesses (spec §4.8 step 3b).
	FLPCheck FLPCheckMode `yaml:"flp_check"`

	// IncludeAuxInputInAuxiliaries controls whether replacement atoms
	// prefix the auxiliary-input predicate into their argument tuple
	// (spec §6).
	IncludeAuxInputInAuxiliaries bool `yaml:"include_aux_input_in_auxiliaries"`

	// ExternalLearningMonotonicity skips learned literals whose
	// predicate is declared monotonic/antimonotonic in a direction that
	// cannot flip the learned nogood's outcome (spec §4.9).
	ExternalLearningMonotonicity bool `yaml:"external_learning_monotonicity"`

	// NogoodMinimizer selects the minimization strategy applied to
	// learned input-output nogoods (spec §4.9, SPEC_FULL.md feature 5).
	NogoodMinimizer NogoodMinimizerKind `yaml:"nogood_minimizer"`

	// LiberalSafetyNullFreezeCount bounds the domain-predicate
	// exploration saturation loop (spec §4.11).
	LiberalSafetyNullFreezeCount int `yaml:"liberal_safety_null_freeze_count"`

	// OnlineBuilderBufferSize sizes the channel-backed result streams
	// the online model builder uses between units (spec §4.10).
	OnlineBuilderBufferSize int `yaml:"online_builder_buffer_size"`

	// MaxParallelPluginCalls bounds how many PluginAtom::retrieve calls
	// the external-atom evaluator may have in flight at once.
	MaxParallelPluginCalls int `yaml:"max_parallel_plugin_calls"`
}

// Default returns the configuration the CLI and library entry points use
// unless overridden.
func Default() *Config {
	return &Config{
		ForceGC:                      false,
		RetainModels:                 true,
		WellfoundedIterationCap:      10000,
		FLPCheck:                     FLPCheckExplicit,
		IncludeAuxInputInAuxiliaries: true,
		ExternalLearningMonotonicity: true,
		NogoodMinimizer:              NogoodMinimizerQuickExplain,
		LiberalSafetyNullFreezeCount: 10,
		OnlineBuilderBufferSize:      64,
		MaxParallelPluginCalls:       4,
	}
}

// Load parses YAML config data, starting from Default() so any field the
// document omits keeps its default value.
func Load(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg back to YAML, e.g. for `hexeval` to print the
// effective configuration.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
