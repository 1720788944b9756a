package rules

import (
	"errors"
	"fmt"
)

// Definition describes one configured rule: a unique name, a type tag that
// selects the library function, and its parameters. Definitions are loaded
// once from configuration and shared read-only across all instruments.
type Definition struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type" json:"type"`
	Params Params `yaml:"params" json:"params"`
}

// Params holds the loosely-typed parameter mapping from configuration.
// Accessors validate on read so bad values surface as ErrInvalidParameter
// at combination-build time rather than deep inside evaluation.
type Params map[string]interface{}

var (
	// ErrInvalidParameter marks a non-positive period/multiplier or a
	// missing required parameter. The combination carrying the rule is
	// skipped; other combinations proceed.
	ErrInvalidParameter = errors.New("invalid rule parameter")

	// ErrUnknownRuleType marks a type tag with no registered function
	ErrUnknownRuleType = errors.New("unknown rule type")
)

// Int reads a required positive integer parameter
func (p Params) Int(key string) (int, error) {
	raw, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidParameter, key)
	}
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	default:
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidParameter, key)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive, got %d", ErrInvalidParameter, key, n)
	}
	return n, nil
}

// Float reads a required positive float parameter
func (p Params) Float(key string) (float64, error) {
	raw, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidParameter, key)
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidParameter, key)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive, got %v", ErrInvalidParameter, key, f)
	}
	return f, nil
}

// FloatOr reads an optional positive float parameter with a default
func (p Params) FloatOr(key string, def float64) (float64, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Float(key)
}

// IntOr reads an optional positive integer parameter with a default
func (p Params) IntOr(key string, def int) (int, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Int(key)
}

// Names flattens a list of definitions into their names
func Names(defs []Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}
