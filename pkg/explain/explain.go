// Package explain renders human-readable explanations of scored documents from
// policy-authored templates, so the wording of compliance narratives is owned
// by the rulepack rather than the code.
package explain

import (
	"strconv"
	"strings"

	"github.com/regnav/readiness-core/pkg/gaps"
	"github.com/regnav/readiness-core/pkg/rulepack"
)

// Explanation is the rendered narrative for one scored document.
type Explanation struct {
	Summary     string   `json:"summary"`
	GapLines    []string `json:"gap_lines,omitempty"`
	TemplateKey string   `json:"template_key"`
}

// Composer renders explanations for one rulepack. Stateless and safe for
// concurrent use.
type Composer struct {
	pack *rulepack.Rulepack
}

// NewComposer creates a composer bound to a validated rulepack.
func NewComposer(pack *rulepack.Rulepack) *Composer {
	return &Composer{pack: pack}
}

// Compose renders the summary for the document's risk label and one line per
// top-ranked gap, capped at the pack's explanation_top_gaps. Template presence
// for every risk label plus gap.line and gap.missing is guaranteed at pack
// load, so composition cannot fail.
func (c *Composer) Compose(documentID string, score float64, label string, entries []gaps.Entry) Explanation {
	key := "summary." + label
	summary := render(c.pack.ExplanationTemplates[key], map[string]string{
		"document_id":    documentID,
		"score":          formatScore(score),
		"label":          label,
		"policy_version": c.pack.Version,
		"gap_count":      strconv.Itoa(len(entries)),
	})

	limit := c.pack.ExplanationTopGaps
	if limit > len(entries) {
		limit = len(entries)
	}
	lines := make([]string, 0, limit)
	for _, e := range entries[:limit] {
		tmpl := c.pack.ExplanationTemplates["gap.line"]
		if e.Missing {
			tmpl = c.pack.ExplanationTemplates["gap.missing"]
		}
		lines = append(lines, render(tmpl, map[string]string{
			"document_id": documentID,
			"domain":      e.DomainID,
			"severity":    formatScore(e.Severity),
			"weight":      formatScore(e.Weight),
			"rank":        strconv.Itoa(e.Rank),
		}))
	}

	return Explanation{Summary: summary, GapLines: lines, TemplateKey: key}
}

// render substitutes {placeholder} tokens in a single left-to-right scan.
// Each token is looked up once and substituted values are never re-scanned,
// so output does not depend on substitution order even when a value itself
// contains a token. Unknown placeholders are left verbatim so a template typo
// is visible in output instead of silently blank.
func render(tmpl string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); {
		if tmpl[i] == '{' {
			if end := strings.IndexByte(tmpl[i:], '}'); end > 0 {
				if v, ok := vars[tmpl[i+1:i+end]]; ok {
					b.WriteString(v)
					i += end + 1
					continue
				}
			}
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String()
}

// formatScore renders numerics with fixed precision so identical inputs always
// produce byte-identical explanation text.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
