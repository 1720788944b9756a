package rules

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edgerank/edgerank/internal/data"
)

// Func computes a per-session boolean signal from a price table
type Func func(table *data.PriceTable, params Params) ([]bool, error)

// Registry maps rule type tags to library functions. It is built once at
// startup so an unknown type in configuration fails fast instead of at
// some point mid-run.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns a registry preloaded with the built-in rule library
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	for tag, fn := range builtins() {
		r.funcs[tag] = fn
	}
	return r
}

// Register adds a rule function under a type tag
func (r *Registry) Register(tag string, fn Func) error {
	if _, exists := r.funcs[tag]; exists {
		return fmt.Errorf("rule type %q already registered", tag)
	}
	r.funcs[tag] = fn
	return nil
}

// Known reports whether a type tag has a registered function
func (r *Registry) Known(tag string) bool {
	_, ok := r.funcs[tag]
	return ok
}

// Evaluate dispatches a definition to its library function and returns the
// boolean signal series aligned to the table's calendar. Parameter errors
// propagate so the caller can skip the combination.
func (r *Registry) Evaluate(def Definition, table *data.PriceTable) ([]bool, error) {
	fn, ok := r.funcs[def.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q (rule %q)", ErrUnknownRuleType, def.Type, def.Name)
	}
	return fn(table, def.Params)
}

// EvaluateSafe wraps Evaluate with panic recovery and fail-closed
// semantics: any error or panic inside the rule function yields an
// all-false series for that predicate only, logged with the rule name and
// instrument.
func (r *Registry) EvaluateSafe(logger zerolog.Logger, def Definition, table *data.PriceTable) (signal []bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Str("rule", def.Name).
				Str("type", def.Type).
				Str("symbol", table.Symbol).
				Interface("params", def.Params).
				Interface("panic", rec).
				Msg("rule evaluation panicked, treating signal as all-false")
			signal = make([]bool, table.Len())
		}
	}()

	signal, err := r.Evaluate(def, table)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("rule", def.Name).
			Str("type", def.Type).
			Str("symbol", table.Symbol).
			Msg("rule evaluation failed, treating signal as all-false")
		return make([]bool, table.Len())
	}
	return signal
}
