// Package score folds weighted domain contributions into a single readiness
// score and resolves it to a policy risk label.
package score

import (
	"fmt"
	"math"

	"github.com/regnav/readiness-core/pkg/rulepack"
	"github.com/regnav/readiness-core/pkg/signal"
)

// DegenerateScoreError reports a scoring input whose weights sum to zero or a
// non-finite value, leaving the readiness ratio undefined.
type DegenerateScoreError struct {
	DocumentID string
	WeightSum  float64
}

func (e *DegenerateScoreError) Error() string {
	return fmt.Sprintf("document %s: degenerate weight sum %v", e.DocumentID, e.WeightSum)
}

// Result is the scored outcome for one document.
type Result struct {
	ReadinessScore float64 `json:"readiness_score"`
	RiskLabel      string  `json:"risk_label"`
}

// Compute folds contributions into readiness = sum(contributions) / sum(weights),
// clamped into [0,1], and labels it against the pack's risk thresholds.
// Resolver invariants make a zero weight sum unreachable through normal flow,
// but a degenerate sum still fails loudly rather than emitting NaN.
func Compute(documentID string, contribs []signal.Contribution, pack *rulepack.Rulepack) (Result, error) {
	var valueSum, weightSum float64
	for _, c := range contribs {
		valueSum += c.Value
		weightSum += c.Weight
	}

	if weightSum <= 0 || math.IsNaN(weightSum) || math.IsInf(weightSum, 0) {
		return Result{}, &DegenerateScoreError{DocumentID: documentID, WeightSum: weightSum}
	}

	score := clamp01(valueSum / weightSum)
	return Result{
		ReadinessScore: score,
		RiskLabel:      pack.LabelFor(score),
	}, nil
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
