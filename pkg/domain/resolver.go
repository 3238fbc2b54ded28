package domain

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/regnav/readiness-core/pkg/rulepack"
)

// ResolvedDomain is one domain of a document with its effective scoring weight.
type ResolvedDomain struct {
	ID      string  `json:"id"`
	Weight  float64 `json:"weight"`
	Dynamic bool    `json:"dynamic"`
}

// UnresolvedDomainError reports a document whose declared domains could not be
// resolved to any positive weight.
type UnresolvedDomainError struct {
	DocumentID string
	Reason     string
}

func (e *UnresolvedDomainError) Error() string {
	return fmt.Sprintf("document %s: no resolvable domains: %s", e.DocumentID, e.Reason)
}

// Resolver maps declared document domains to weighted scoring domains under
// one rulepack. Stateless and safe for concurrent use.
type Resolver struct {
	pack   *rulepack.Rulepack
	logger *slog.Logger
}

// NewResolver creates a resolver bound to a validated rulepack.
func NewResolver(pack *rulepack.Rulepack) *Resolver {
	return &Resolver{
		pack:   pack,
		logger: slog.Default().With("component", "domain_resolver"),
	}
}

// Resolve normalizes and weighs a document's declared domains.
//
// Statically configured domains take the policy weight. Unknown domains are
// induced dynamically: fallback_weight scaled by the size-bias multiplier for
// docSize, clamped by policy. Duplicate declarations collapse onto one entry.
// The result is keyed by normalized domain id and every weight is strictly
// positive; an empty or fully invalid declaration set fails with
// *UnresolvedDomainError.
func (r *Resolver) Resolve(documentID string, declared []string, docSize float64) (map[string]ResolvedDomain, error) {
	if len(declared) == 0 {
		return nil, &UnresolvedDomainError{DocumentID: documentID, Reason: "document declares no domains"}
	}

	resolved := make(map[string]ResolvedDomain, len(declared))
	var invalid []string

	for _, raw := range declared {
		id, err := NormalizeID(raw)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		if _, dup := resolved[id]; dup {
			continue
		}

		if w, ok := r.pack.StaticWeight(id); ok {
			resolved[id] = ResolvedDomain{ID: id, Weight: w}
			continue
		}

		mult, err := r.pack.SizeBiasMultiplier(docSize)
		if err != nil {
			return nil, fmt.Errorf("document %s: size bias for domain %s: %w", documentID, id, err)
		}
		resolved[id] = ResolvedDomain{
			ID:      id,
			Weight:  r.pack.DynamicDomains.FallbackWeight * mult,
			Dynamic: true,
		}
	}

	if len(invalid) > 0 {
		r.logger.Warn("skipped invalid domain declarations",
			"document_id", documentID, "invalid", invalid)
	}
	if len(resolved) == 0 {
		return nil, &UnresolvedDomainError{DocumentID: documentID, Reason: "all declared domains are invalid"}
	}
	return resolved, nil
}

// Weights projects resolved domains onto an id-to-weight map.
func Weights(resolved map[string]ResolvedDomain) map[string]float64 {
	out := make(map[string]float64, len(resolved))
	for id, d := range resolved {
		out[id] = d.Weight
	}
	return out
}

// IDs returns the resolved domain ids in lexicographic order.
func IDs(resolved map[string]ResolvedDomain) []string {
	out := make([]string, 0, len(resolved))
	for id := range resolved {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
