package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Semantic convention attributes for scoring spans and metrics.
var (
	AttrDocumentID    = attribute.Key("regnav.document.id")
	AttrPolicyID      = attribute.Key("regnav.policy.id")
	AttrPolicyVersion = attribute.Key("regnav.policy.version")
	AttrRiskLabel     = attribute.Key("regnav.risk.label")
	AttrGapCount      = attribute.Key("regnav.gap.count")
	AttrBatchSize     = attribute.Key("regnav.batch.size")
)

// AddScoringAttributes annotates the current span with document identity.
func AddScoringAttributes(ctx context.Context, documentID, policyID, policyVersion string) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		AttrDocumentID.String(documentID),
		AttrPolicyID.String(policyID),
		AttrPolicyVersion.String(policyVersion),
	)
}
