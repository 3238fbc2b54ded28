package rulepack

import (
	"fmt"
	"math"

	"github.com/google/cel-go/cel"
)

// sizeBiasProgram is the compiled form of the configured size-bias expression.
// Compilation happens once per pack load; evaluation is bounded by a CEL cost
// limit so a pathological policy expression cannot stall scoring.
type sizeBiasProgram struct {
	prg cel.Program
	min float64
	max float64
}

func compileSizeBias(cfg SizeBias) (*sizeBiasProgram, error) {
	env, err := cel.NewEnv(
		cel.Variable("size", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("size bias environment: %w", err)
	}

	ast, issues := env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", cfg.Expression, issues.Err())
	}

	prg, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", cfg.Expression, err)
	}

	p := &sizeBiasProgram{prg: prg, min: cfg.MinMultiplier, max: cfg.MaxMultiplier}

	// Probe once so an expression that type-checks but cannot evaluate
	// (wrong result type, runtime error on every input) fails at load,
	// not in the middle of a scoring batch.
	if _, err := p.eval(1); err != nil {
		return nil, fmt.Errorf("probe eval: %w", err)
	}
	return p, nil
}

func (p *sizeBiasProgram) eval(size float64) (float64, error) {
	out, _, err := p.prg.Eval(map[string]interface{}{"size": size})
	if err != nil {
		return 0, fmt.Errorf("size bias eval: %w", err)
	}

	var v float64
	switch t := out.Value().(type) {
	case float64:
		v = t
	case int64:
		v = float64(t)
	default:
		return 0, fmt.Errorf("size bias eval: result is %T, want numeric", out.Value())
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("size bias eval: non-finite result %v", v)
	}
	return v, nil
}

// SizeBiasMultiplier evaluates the pack's size-bias function for a document
// size, clamped to the configured [min, max] range. The clamp floor is
// validated strictly positive at load, so the returned multiplier and any
// weight induced from it stay strictly positive.
func (p *Rulepack) SizeBiasMultiplier(size float64) (float64, error) {
	v, err := p.sizeBias.eval(size)
	if err != nil {
		return 0, err
	}
	if v < p.sizeBias.min {
		v = p.sizeBias.min
	}
	if v > p.sizeBias.max {
		v = p.sizeBias.max
	}
	return v, nil
}
