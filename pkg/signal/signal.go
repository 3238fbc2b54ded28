// Package signal turns per-domain compliance evidence into weighted
// contributions, recording anomalies for evidence that does not line up with
// the resolved domain set.
package signal

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// Evidence is one domain's raw compliance signal.
type Evidence struct {
	RiskScore        float64 `json:"risk_score"`
	EvidenceStrength float64 `json:"evidence_strength"`
}

// Contribution is a domain's weighted contribution to the readiness score.
// Value = weight * risk_score * evidence_strength; Missing marks a resolved
// domain that supplied no evidence, which contributes zero.
type Contribution struct {
	DomainID string  `json:"domain_id"`
	Weight   float64 `json:"weight"`
	Value    float64 `json:"value"`
	Missing  bool    `json:"missing,omitempty"`
}

// Anomaly records an input irregularity that was tolerated rather than fatal.
type Anomaly struct {
	DomainID string `json:"domain_id"`
	Reason   string `json:"reason"`
}

// Aggregator combines evidence with resolved domain weights. Stateless and
// safe for concurrent use.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates a signal aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		logger: slog.Default().With("component", "signal_aggregator"),
	}
}

// Aggregate computes one contribution per resolved domain.
//
// Rules, all tolerated with an Anomaly rather than an error:
//   - a resolved domain with no evidence contributes zero and is marked Missing;
//   - evidence for a domain outside the resolved set is dropped;
//   - risk_score or evidence_strength outside [0,1] (or non-finite) is clamped.
//
// Contributions are returned ordered by domain id and anomalies sorted by
// (domain id, reason) so the output is deterministic for a given input.
func (a *Aggregator) Aggregate(documentID string, evidence map[string]Evidence, weights map[string]float64) ([]Contribution, []Anomaly) {
	contribs := make([]Contribution, 0, len(weights))
	var anomalies []Anomaly

	for id, w := range weights {
		ev, ok := evidence[id]
		if !ok {
			contribs = append(contribs, Contribution{DomainID: id, Weight: w, Missing: true})
			anomalies = append(anomalies, Anomaly{DomainID: id, Reason: "no evidence for resolved domain"})
			continue
		}

		risk, clampedRisk := clampUnit(ev.RiskScore)
		strength, clampedStrength := clampUnit(ev.EvidenceStrength)
		if clampedRisk {
			anomalies = append(anomalies, Anomaly{DomainID: id, Reason: fmt.Sprintf("risk_score %v clamped to %v", ev.RiskScore, risk)})
		}
		if clampedStrength {
			anomalies = append(anomalies, Anomaly{DomainID: id, Reason: fmt.Sprintf("evidence_strength %v clamped to %v", ev.EvidenceStrength, strength)})
		}

		contribs = append(contribs, Contribution{
			DomainID: id,
			Weight:   w,
			Value:    w * risk * strength,
		})
	}

	for id := range evidence {
		if _, ok := weights[id]; !ok {
			anomalies = append(anomalies, Anomaly{DomainID: id, Reason: "evidence for undeclared domain dropped"})
		}
	}

	sort.Slice(contribs, func(i, j int) bool { return contribs[i].DomainID < contribs[j].DomainID })
	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].DomainID != anomalies[j].DomainID {
			return anomalies[i].DomainID < anomalies[j].DomainID
		}
		return anomalies[i].Reason < anomalies[j].Reason
	})

	if len(anomalies) > 0 {
		a.logger.Warn("signal anomalies recorded",
			"document_id", documentID, "count", len(anomalies))
	}
	return contribs, anomalies
}

// clampUnit pins v into [0,1]; NaN clamps to 0. The second return reports
// whether clamping happened.
func clampUnit(v float64) (float64, bool) {
	switch {
	case math.IsNaN(v):
		return 0, true
	case v < 0:
		return 0, true
	case v > 1:
		return 1, true
	}
	return v, false
}
