package rulepack

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// rulepackSchema is the structural contract for rulepack documents. Numeric
// range and coverage rules that need cross-field reasoning (threshold
// partition, clamp floor) are enforced in the loader, not here.
const rulepackSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "id", "static_domain_weights", "dynamic_domains", "attention_threshold", "risk_thresholds", "explanation_templates"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "id": {"type": "string", "pattern": "^[a-z0-9_-]{2,40}$"},
    "jurisdiction": {"type": "string"},
    "static_domain_weights": {
      "type": "object",
      "additionalProperties": {"type": "number"}
    },
    "dynamic_domains": {
      "type": "object",
      "required": ["fallback_weight", "size_bias"],
      "properties": {
        "fallback_weight": {"type": "number"},
        "size_bias": {
          "type": "object",
          "required": ["expression", "min_multiplier", "max_multiplier"],
          "properties": {
            "expression": {"type": "string", "minLength": 1},
            "min_multiplier": {"type": "number"},
            "max_multiplier": {"type": "number"}
          }
        }
      }
    },
    "attention_threshold": {"type": "number"},
    "domain_attention_thresholds": {
      "type": "object",
      "additionalProperties": {"type": "number"}
    },
    "risk_thresholds": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["lower_bound", "label"],
        "properties": {
          "lower_bound": {"type": "number"},
          "label": {"type": "string", "minLength": 1}
        }
      }
    },
    "explanation_templates": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "explanation_top_gaps": {"type": "integer", "minimum": 0}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledRulepackSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		const url = "https://regnav.schemas.local/rulepack.schema.json"
		if err := c.AddResource(url, strings.NewReader(rulepackSchema)); err != nil {
			schemaErr = fmt.Errorf("rulepack schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(url)
	})
	return compiledSchema, schemaErr
}
