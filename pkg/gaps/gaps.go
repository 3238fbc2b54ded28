// Package gaps identifies the domains dragging a document's readiness down and
// ranks them into a deterministic remediation order.
package gaps

import (
	"sort"

	"github.com/regnav/readiness-core/pkg/rulepack"
	"github.com/regnav/readiness-core/pkg/signal"
)

// Entry is one prioritized gap: a domain whose normalized contribution fell
// below its attention threshold.
type Entry struct {
	DomainID string  `json:"domain_id"`
	Weight   float64 `json:"weight"`
	Severity float64 `json:"severity"`
	Impact   float64 `json:"impact"`
	Rank     int     `json:"rank"`
	Missing  bool    `json:"missing,omitempty"`
}

// Prioritize selects and ranks gaps from the document's contributions.
//
// A domain gaps when its normalized contribution (Value/Weight) is below the
// policy attention threshold for that domain; missing evidence always gaps.
// Severity is 1 - normalized contribution, so a missing domain has severity 1.
// Impact is severity * weight, the primary sort key; ties break on higher
// weight, then lexicographic domain id, giving a total deterministic order.
// Rank is 1-based.
func Prioritize(contribs []signal.Contribution, pack *rulepack.Rulepack) []Entry {
	entries := make([]Entry, 0, len(contribs))
	for _, c := range contribs {
		if c.Weight <= 0 {
			continue
		}
		normalized := c.Value / c.Weight
		if c.Missing {
			normalized = 0
		}
		if !c.Missing && normalized >= pack.AttentionFor(c.DomainID) {
			continue
		}

		severity := 1 - normalized
		entries = append(entries, Entry{
			DomainID: c.DomainID,
			Weight:   c.Weight,
			Severity: severity,
			Impact:   severity * c.Weight,
			Missing:  c.Missing,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Impact != b.Impact {
			return a.Impact > b.Impact
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.DomainID < b.DomainID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
