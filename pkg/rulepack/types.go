// Package rulepack implements the policy store: loading, validating, caching and
// sharing the externally authored rulepack that drives readiness scoring.
//
// A rulepack is declarative configuration (domain weights, thresholds,
// dynamic-domain fallback rules, explanation templates), versioned and immutable
// once loaded. Changing scoring policy means authoring a new rulepack version,
// never redeploying code.
package rulepack

import (
	"github.com/Masterminds/semver/v3"
)

// RiskThreshold maps the lower bound of a readiness interval to a risk label.
// Intervals run from LowerBound (inclusive) up to the next entry's bound
// (exclusive); the last interval closes at 1.0 inclusive.
type RiskThreshold struct {
	LowerBound float64 `yaml:"lower_bound" json:"lower_bound"`
	Label      string  `yaml:"label" json:"label"`
}

// SizeBias configures the dynamic-domain weight multiplier as a function of
// document size. Expression is CEL over the single variable `size` (double);
// the authoring contract requires it to be monotone in size. The evaluated
// result is clamped to [MinMultiplier, MaxMultiplier], and MinMultiplier must
// be strictly positive so an induced weight can never collapse to zero.
type SizeBias struct {
	Expression    string  `yaml:"expression" json:"expression"`
	MinMultiplier float64 `yaml:"min_multiplier" json:"min_multiplier"`
	MaxMultiplier float64 `yaml:"max_multiplier" json:"max_multiplier"`
}

// DynamicDomains configures induction of weights for domains absent from the
// static policy.
type DynamicDomains struct {
	FallbackWeight float64  `yaml:"fallback_weight" json:"fallback_weight"`
	SizeBias       SizeBias `yaml:"size_bias" json:"size_bias"`
}

// Rulepack is the validated, immutable policy document for one regulator
// namespace. Safe to share read-only across concurrent scoring operations.
type Rulepack struct {
	Version      string `yaml:"version" json:"version"`
	ID           string `yaml:"id" json:"id"`
	Jurisdiction string `yaml:"jurisdiction,omitempty" json:"jurisdiction,omitempty"`

	StaticDomainWeights map[string]float64 `yaml:"static_domain_weights" json:"static_domain_weights"`
	DynamicDomains      DynamicDomains     `yaml:"dynamic_domains" json:"dynamic_domains"`

	// AttentionThreshold is the default normalized-contribution floor below
	// which a domain is reported as a gap; DomainAttentionThresholds overrides
	// it per domain.
	AttentionThreshold        float64            `yaml:"attention_threshold" json:"attention_threshold"`
	DomainAttentionThresholds map[string]float64 `yaml:"domain_attention_thresholds,omitempty" json:"domain_attention_thresholds,omitempty"`

	RiskThresholds       []RiskThreshold   `yaml:"risk_thresholds" json:"risk_thresholds"`
	ExplanationTemplates map[string]string `yaml:"explanation_templates" json:"explanation_templates"`

	// ExplanationTopGaps caps how many gaps the composer renders lines for.
	ExplanationTopGaps int `yaml:"explanation_top_gaps,omitempty" json:"explanation_top_gaps,omitempty"`

	// ContentHash is the canonical hash of the validated pack, computed at load.
	ContentHash string `yaml:"-" json:"content_hash,omitempty"`

	semver   *semver.Version
	sizeBias *sizeBiasProgram
}

// SemVer returns the parsed semantic version of the pack.
func (p *Rulepack) SemVer() *semver.Version {
	return p.semver
}

// AttentionFor returns the attention threshold for a domain, falling back to
// the pack-wide default when no per-domain override exists.
func (p *Rulepack) AttentionFor(domainID string) float64 {
	if t, ok := p.DomainAttentionThresholds[domainID]; ok {
		return t
	}
	return p.AttentionThreshold
}

// StaticWeight looks up a statically configured domain weight.
func (p *Rulepack) StaticWeight(domainID string) (float64, bool) {
	w, ok := p.StaticDomainWeights[domainID]
	return w, ok
}

// LabelFor selects the risk label whose interval contains score. Thresholds
// are validated sorted at load; the boundary is inclusive on the lower bound
// of the more severe interval, so an exact bound resolves to the later entry.
func (p *Rulepack) LabelFor(score float64) string {
	label := p.RiskThresholds[0].Label
	for _, t := range p.RiskThresholds {
		if score >= t.LowerBound {
			label = t.Label
		}
	}
	return label
}

// Labels returns the ordered risk labels of the pack.
func (p *Rulepack) Labels() []string {
	out := make([]string, len(p.RiskThresholds))
	for i, t := range p.RiskThresholds {
		out[i] = t.Label
	}
	return out
}
