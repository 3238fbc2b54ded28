// Package domain resolves a document's declared compliance domains against a
// rulepack, assigning each the static policy weight or an induced dynamic
// weight scaled by document size.
package domain

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var domainIDPattern = regexp.MustCompile(`^[a-z0-9_-]{2,40}$`)

// NormalizeID canonicalizes an externally supplied domain identifier: Unicode
// NFKC normalization, case folding, and whitespace trimmed, so the same logical
// domain written with different casing or compatibility forms resolves to one
// key. Returns an error when the result is not a valid domain id.
func NormalizeID(raw string) (string, error) {
	// cases.Caser is stateful and not safe for concurrent use, so fold
	// per call rather than holding a package-level caser.
	folded := cases.Fold().String(norm.NFKC.String(strings.TrimSpace(raw)))
	id := strings.ReplaceAll(folded, " ", "_")
	if !domainIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid domain id %q (normalized %q)", raw, id)
	}
	return id, nil
}
