package gaps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regnav/readiness-core/pkg/rulepack"
	"github.com/regnav/readiness-core/pkg/signal"
)

const testPackYAML = `
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
domain_attention_thresholds:
  aml_kyc: 0.8
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

func testPack(t *testing.T) *rulepack.Rulepack {
	t.Helper()
	pack, err := rulepack.NewLoader().Load([]byte(testPackYAML))
	require.NoError(t, err)
	return pack
}

func TestPrioritizeSelectsBelowAttention(t *testing.T) {
	got := Prioritize([]signal.Contribution{
		{DomainID: "healthy", Weight: 1.0, Value: 0.9},  // 0.9 >= 0.6, no gap
		{DomainID: "lagging", Weight: 1.0, Value: 0.3},  // 0.3 < 0.6
		{DomainID: "aml_kyc", Weight: 2.0, Value: 1.44}, // 0.72 < per-domain 0.8
	}, testPack(t))

	require.Len(t, got, 2)
	assert.Equal(t, "lagging", got[0].DomainID)
	assert.InDelta(t, 0.7, got[0].Severity, 1e-9)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "aml_kyc", got[1].DomainID)
	assert.Equal(t, 2, got[1].Rank)
}

func TestPrioritizeMissingDomainHasFullSeverity(t *testing.T) {
	got := Prioritize([]signal.Contribution{
		{DomainID: "privacy", Weight: 1.2, Missing: true},
	}, testPack(t))

	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Severity)
	assert.InDelta(t, 1.2, got[0].Impact, 1e-9)
	assert.True(t, got[0].Missing)
}

func TestPrioritizeOrdersByImpactThenWeightThenID(t *testing.T) {
	got := Prioritize([]signal.Contribution{
		// impact: b=0.5*2=1.0, a=1.0*1=1.0; tie broken by weight, b first.
		{DomainID: "a", Weight: 1.0, Value: 0.0},
		{DomainID: "b", Weight: 2.0, Value: 1.0},
		// c and d identical: lexicographic.
		{DomainID: "d", Weight: 1.0, Value: 0.5},
		{DomainID: "c", Weight: 1.0, Value: 0.5},
	}, testPack(t))

	require.Len(t, got, 4)
	assert.Equal(t, []string{"b", "a", "c", "d"},
		[]string{got[0].DomainID, got[1].DomainID, got[2].DomainID, got[3].DomainID})
	assert.Equal(t, []int{1, 2, 3, 4},
		[]int{got[0].Rank, got[1].Rank, got[2].Rank, got[3].Rank})
}

func TestPrioritizeEmptyWhenAllHealthy(t *testing.T) {
	got := Prioritize([]signal.Contribution{
		{DomainID: "a", Weight: 1.0, Value: 0.95},
	}, testPack(t))
	assert.Empty(t, got)
}
