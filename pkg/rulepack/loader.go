package rulepack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/regnav/readiness-core/pkg/audit"
	"github.com/regnav/readiness-core/pkg/canonical"
)

var domainKeyPattern = regexp.MustCompile(`^[a-z0-9_-]{2,40}$`)

// Loader parses and validates rulepack documents. A Loader is stateless and
// safe for concurrent use; every successful Load returns a fresh immutable
// Rulepack.
type Loader struct {
	logger  *slog.Logger
	auditor audit.Logger
}

// NewLoader creates a rulepack loader.
func NewLoader() *Loader {
	return &Loader{
		logger:  slog.Default().With("component", "rulepack"),
		auditor: audit.Nop(),
	}
}

// NewLoaderWithAudit creates a loader that records every successful policy
// load to an audit trail.
func NewLoaderWithAudit(a audit.Logger) *Loader {
	l := NewLoader()
	if a != nil {
		l.auditor = a
	}
	return l
}

// Load parses YAML policy bytes into a validated Rulepack.
//
// Failure modes:
//   - *FormatError: required keys absent, schema violation, unparseable
//     version, size-bias expression that does not compile, missing templates.
//   - *RangeError: any weight not strictly positive and finite, any threshold
//     outside [0,1], a non-positive bias clamp floor.
//   - *CoverageError: risk thresholds that do not partition [0,1].
func (l *Loader) Load(data []byte) (*Rulepack, error) {
	pack, err := l.parse(data)
	if err != nil {
		return nil, err
	}

	l.logger.Info("rulepack loaded",
		"id", pack.ID,
		"version", pack.Version,
		"static_domains", len(pack.StaticDomainWeights),
		"content_hash", pack.ContentHash,
	)
	_ = l.auditor.Record(context.Background(), audit.EventPolicy, "rulepack_loaded", pack.ID, map[string]interface{}{
		"version":      pack.Version,
		"content_hash": pack.ContentHash,
	})

	return pack, nil
}

// parse validates policy bytes without recording a load. Cache re-validation
// of an already-loaded pack goes through here so one policy load produces one
// audit event, not one per read.
func (l *Loader) parse(data []byte) (*Rulepack, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("yaml parse: %v", err)}
	}

	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	var pack Rulepack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("decode: %v", err)}
	}

	v, err := semver.NewVersion(pack.Version)
	if err != nil {
		return nil, &FormatError{Field: "version", Reason: fmt.Sprintf("not a semantic version: %v", err)}
	}
	pack.semver = v

	if err := validateWeights(&pack); err != nil {
		return nil, err
	}
	if err := validateAttention(&pack); err != nil {
		return nil, err
	}
	if err := validateThresholds(pack.RiskThresholds); err != nil {
		return nil, err
	}
	if err := validateTemplates(&pack); err != nil {
		return nil, err
	}

	if pack.ExplanationTopGaps <= 0 {
		pack.ExplanationTopGaps = defaultTopGaps
	}

	bias, err := compileSizeBias(pack.DynamicDomains.SizeBias)
	if err != nil {
		return nil, &FormatError{Field: "dynamic_domains.size_bias.expression", Reason: err.Error()}
	}
	pack.sizeBias = bias

	hash, err := canonical.Hash(&pack)
	if err != nil {
		return nil, fmt.Errorf("rulepack: content hash: %w", err)
	}
	pack.ContentHash = hash

	return &pack, nil
}

// LoadFile loads a rulepack from a YAML file on disk.
func (l *Loader) LoadFile(path string) (*Rulepack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rulepack: read %s: %w", path, err)
	}
	return l.Load(data)
}

// LoadSource fetches policy bytes from a Source and loads them.
func (l *Loader) LoadSource(ctx context.Context, src Source) (*Rulepack, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("rulepack: fetch %s: %w", src.Describe(), err)
	}
	return l.Load(data)
}

// defaultTopGaps bounds explanation gap lines when the policy does not say.
const defaultTopGaps = 3

func validateAgainstSchema(raw interface{}) error {
	schema, err := compiledRulepackSchema()
	if err != nil {
		return fmt.Errorf("rulepack: %w", err)
	}

	// Round-trip through JSON so the schema validator sees JSON-typed values
	// (yaml decodes integers as int, the validator wants json numbers).
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return &FormatError{Reason: fmt.Sprintf("not a JSON-compatible document: %v", err)}
	}
	var jsonVal interface{}
	if err := json.Unmarshal(jsonBytes, &jsonVal); err != nil {
		return &FormatError{Reason: fmt.Sprintf("round-trip decode: %v", err)}
	}

	if err := schema.Validate(jsonVal); err != nil {
		return &FormatError{Reason: fmt.Sprintf("schema validation: %v", err)}
	}
	return nil
}

func validateWeights(pack *Rulepack) error {
	for id, w := range pack.StaticDomainWeights {
		if !domainKeyPattern.MatchString(id) {
			return &FormatError{Field: "static_domain_weights", Reason: fmt.Sprintf("invalid domain id %q", id)}
		}
		if err := requirePositiveFinite("static_domain_weights."+id, w); err != nil {
			return err
		}
	}

	dd := pack.DynamicDomains
	if err := requirePositiveFinite("dynamic_domains.fallback_weight", dd.FallbackWeight); err != nil {
		return err
	}
	if err := requirePositiveFinite("dynamic_domains.size_bias.min_multiplier", dd.SizeBias.MinMultiplier); err != nil {
		return err
	}
	if math.IsNaN(dd.SizeBias.MaxMultiplier) || math.IsInf(dd.SizeBias.MaxMultiplier, 0) {
		return &RangeError{Field: "dynamic_domains.size_bias.max_multiplier", Value: dd.SizeBias.MaxMultiplier, Reason: "must be finite"}
	}
	if dd.SizeBias.MaxMultiplier < dd.SizeBias.MinMultiplier {
		return &RangeError{
			Field:  "dynamic_domains.size_bias.max_multiplier",
			Value:  dd.SizeBias.MaxMultiplier,
			Reason: "must be >= min_multiplier",
		}
	}
	return nil
}

func validateAttention(pack *Rulepack) error {
	if err := requireUnitInterval("attention_threshold", pack.AttentionThreshold); err != nil {
		return err
	}
	for id, t := range pack.DomainAttentionThresholds {
		if !domainKeyPattern.MatchString(id) {
			return &FormatError{Field: "domain_attention_thresholds", Reason: fmt.Sprintf("invalid domain id %q", id)}
		}
		if err := requireUnitInterval("domain_attention_thresholds."+id, t); err != nil {
			return err
		}
	}
	return nil
}

func validateThresholds(thresholds []RiskThreshold) error {
	for i, t := range thresholds {
		if err := requireUnitInterval(fmt.Sprintf("risk_thresholds[%d].lower_bound", i), t.LowerBound); err != nil {
			return err
		}
	}

	if thresholds[0].LowerBound != 0 {
		return &CoverageError{Reason: fmt.Sprintf("first interval starts at %v, not 0", thresholds[0].LowerBound)}
	}
	for i := 1; i < len(thresholds); i++ {
		prev, cur := thresholds[i-1], thresholds[i]
		if cur.LowerBound == prev.LowerBound {
			return &CoverageError{Reason: fmt.Sprintf("intervals %q and %q overlap at %v", prev.Label, cur.Label, cur.LowerBound)}
		}
		if cur.LowerBound < prev.LowerBound {
			return &CoverageError{Reason: fmt.Sprintf("interval %q starts below %q; thresholds must be ordered ascending", cur.Label, prev.Label)}
		}
	}
	return nil
}

func validateTemplates(pack *Rulepack) error {
	for _, t := range pack.RiskThresholds {
		key := "summary." + t.Label
		if _, ok := pack.ExplanationTemplates[key]; !ok {
			return &FormatError{Field: "explanation_templates", Reason: fmt.Sprintf("missing template %q for risk label %q", key, t.Label)}
		}
	}
	for _, key := range []string{"gap.line", "gap.missing"} {
		if _, ok := pack.ExplanationTemplates[key]; !ok {
			return &FormatError{Field: "explanation_templates", Reason: fmt.Sprintf("missing template %q", key)}
		}
	}
	return nil
}

func requirePositiveFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &RangeError{Field: field, Value: v, Reason: "must be finite"}
	}
	if v <= 0 {
		return &RangeError{Field: field, Value: v, Reason: "must be strictly positive"}
	}
	return nil
}

func requireUnitInterval(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return &RangeError{Field: field, Value: v, Reason: "must be within [0,1]"}
	}
	return nil
}
