//go:build property
// +build property

// Package gaps_test contains property-based tests for gap prioritization
// determinism and ordering.
package gaps_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/regnav/readiness-core/pkg/gaps"
	"github.com/regnav/readiness-core/pkg/rulepack"
	"github.com/regnav/readiness-core/pkg/signal"
)

const propertyPackYAML = `
version: "1.0.0"
id: qcb
static_domain_weights:
  aml_kyc: 2.0
dynamic_domains:
  fallback_weight: 1.0
  size_bias:
    expression: "1.0"
    min_multiplier: 1.0
    max_multiplier: 1.0
attention_threshold: 0.6
risk_thresholds:
  - lower_bound: 0.0
    label: high
  - lower_bound: 0.7
    label: low
explanation_templates:
  summary.high: "{score}"
  summary.low: "{score}"
  gap.line: "{domain}"
  gap.missing: "{domain}"
`

func genContributions() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(
		gen.IntRange(0, 25),
		gen.Float64Range(0.1, 5.0),
		gen.Float64Range(0.0, 1.0),
		gen.Bool(),
	).Map(func(vals []interface{}) signal.Contribution {
		weight := vals[1].(float64)
		c := signal.Contribution{
			DomainID: fmt.Sprintf("domain_%02d", vals[0].(int)),
			Weight:   weight,
			Missing:  vals[3].(bool),
		}
		if !c.Missing {
			c.Value = weight * vals[2].(float64)
		}
		return c
	}))
}

// TestPrioritizeDeterminism verifies two runs over the same contributions
// produce identical entries including ranks.
func TestPrioritizeDeterminism(t *testing.T) {
	pack, err := rulepack.NewLoader().Load([]byte(propertyPackYAML))
	require.NoError(t, err)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("prioritization is deterministic", prop.ForAll(
		func(contribs []signal.Contribution) bool {
			first := gaps.Prioritize(contribs, pack)
			second := gaps.Prioritize(contribs, pack)
			return reflect.DeepEqual(first, second)
		},
		genContributions(),
	))

	properties.TestingRun(t)
}

// TestPrioritizeTotalOrder verifies ranks are contiguous from 1 and the sort
// keys are non-increasing across the result.
func TestPrioritizeTotalOrder(t *testing.T) {
	pack, err := rulepack.NewLoader().Load([]byte(propertyPackYAML))
	require.NoError(t, err)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("entries form a total order", prop.ForAll(
		func(contribs []signal.Contribution) bool {
			entries := gaps.Prioritize(contribs, pack)
			for i, e := range entries {
				if e.Rank != i+1 {
					return false
				}
				if e.Severity < 0 || e.Severity > 1 {
					return false
				}
				if i == 0 {
					continue
				}
				prev := entries[i-1]
				if e.Impact > prev.Impact {
					return false
				}
				if e.Impact == prev.Impact && e.Weight > prev.Weight {
					return false
				}
				if e.Impact == prev.Impact && e.Weight == prev.Weight && e.DomainID < prev.DomainID {
					return false
				}
			}
			return true
		},
		genContributions(),
	))

	properties.TestingRun(t)
}
