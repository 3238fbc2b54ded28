package rulepack

import "fmt"

// FormatError reports a rulepack whose structure is invalid: required keys
// absent, malformed version, an expression that does not compile, or a
// document that fails schema validation. Policy authoring defect; no scoring
// may proceed against the pack.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("rulepack: invalid format: %s", e.Reason)
	}
	return fmt.Sprintf("rulepack: invalid format: field %q: %s", e.Field, e.Reason)
}

// RangeError reports a numeric policy value outside its legal range:
// a weight that is not strictly positive and finite, a threshold bound
// outside [0,1], or a bias clamp floor that is not positive.
type RangeError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("rulepack: value out of range: field %q = %v: %s", e.Field, e.Value, e.Reason)
}

// CoverageError reports risk thresholds that do not partition [0,1]
// exhaustively and disjointly.
type CoverageError struct {
	Reason string
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("rulepack: risk thresholds do not cover [0,1]: %s", e.Reason)
}
