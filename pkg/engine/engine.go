// Package engine orchestrates the scoring pipeline: domain resolution, signal
// aggregation, readiness scoring, gap prioritization and explanation
// composition, under one immutable rulepack.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/regnav/readiness-core/pkg/audit"
	"github.com/regnav/readiness-core/pkg/canonical"
	"github.com/regnav/readiness-core/pkg/domain"
	"github.com/regnav/readiness-core/pkg/explain"
	"github.com/regnav/readiness-core/pkg/gaps"
	"github.com/regnav/readiness-core/pkg/observability"
	"github.com/regnav/readiness-core/pkg/rulepack"
	"github.com/regnav/readiness-core/pkg/score"
	"github.com/regnav/readiness-core/pkg/signal"
)

// Request describes one document to score.
type Request struct {
	DocumentID string                     `json:"document_id"`
	Domains    []string                   `json:"domains"`
	Size       float64                    `json:"size"`
	Signals    map[string]signal.Evidence `json:"signals"`
}

// ScoredDocument is the complete, persistable outcome of scoring one document.
//
// Fingerprint covers only the deterministic fields, so rescoring the same
// document under the same rulepack yields the same fingerprint even though
// ResultID and ScoredAt differ per run.
type ScoredDocument struct {
	ResultID      string `json:"result_id"`
	DocumentID    string `json:"document_id"`
	PolicyID      string `json:"policy_id"`
	PolicyVersion string `json:"policy_version"`

	ReadinessScore float64             `json:"readiness_score"`
	RiskLabel      string              `json:"risk_label"`
	Gaps           []gaps.Entry        `json:"gaps,omitempty"`
	Explanation    explain.Explanation `json:"explanation"`
	Anomalies      []signal.Anomaly    `json:"anomalies,omitempty"`

	Fingerprint string    `json:"fingerprint"`
	ScoredAt    time.Time `json:"scored_at"`
}

// fingerprintView is the deterministic projection hashed into Fingerprint.
type fingerprintView struct {
	DocumentID     string              `json:"document_id"`
	PolicyID       string              `json:"policy_id"`
	PolicyVersion  string              `json:"policy_version"`
	PolicyHash     string              `json:"policy_hash"`
	ReadinessScore float64             `json:"readiness_score"`
	RiskLabel      string              `json:"risk_label"`
	Gaps           []gaps.Entry        `json:"gaps,omitempty"`
	Explanation    explain.Explanation `json:"explanation"`
	Anomalies      []signal.Anomaly    `json:"anomalies,omitempty"`
}

// Engine scores documents against one validated rulepack. Safe for concurrent
// use; all per-call state is local.
type Engine struct {
	pack       *rulepack.Rulepack
	resolver   *domain.Resolver
	aggregator *signal.Aggregator
	composer   *explain.Composer

	auditor audit.Logger
	obs     *observability.Provider
	logger  *slog.Logger
	workers int
	limiter *rate.Limiter

	now   func() time.Time
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDFunc overrides result id generation, for tests.
func WithIDFunc(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithAudit attaches an audit event logger.
func WithAudit(l audit.Logger) Option {
	return func(e *Engine) { e.auditor = l }
}

// WithObservability attaches tracing and metrics.
func WithObservability(p *observability.Provider) Option {
	return func(e *Engine) { e.obs = p }
}

// WithWorkers bounds batch concurrency. Values below 1 fall back to the
// default.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// WithRateLimit paces batch scoring so downstream consumers of results and
// audit events are not flooded. Nil disables pacing.
func WithRateLimit(l *rate.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

const defaultWorkers = 4

// New creates an Engine bound to a validated rulepack.
func New(pack *rulepack.Rulepack, opts ...Option) *Engine {
	e := &Engine{
		pack:       pack,
		resolver:   domain.NewResolver(pack),
		aggregator: signal.NewAggregator(),
		composer:   explain.NewComposer(pack),
		auditor:    audit.Nop(),
		logger:     slog.Default().With("component", "engine", "policy_id", pack.ID, "policy_version", pack.Version),
		workers:    defaultWorkers,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScoreDocument runs the full pipeline for one document.
//
// Failure modes pass through from the stages: *domain.UnresolvedDomainError
// when no declared domain resolves, *score.DegenerateScoreError when the
// weight sum degenerates. Input irregularities that policy tolerates surface
// as Anomalies on the result, not errors.
func (e *Engine) ScoreDocument(ctx context.Context, req Request) (*ScoredDocument, error) {
	var finish func(error)
	if e.obs != nil {
		ctx, finish = e.obs.TrackOperation(ctx, "score_document",
			observability.AttrDocumentID.String(req.DocumentID),
			observability.AttrPolicyID.String(e.pack.ID),
		)
		observability.AddScoringAttributes(ctx, req.DocumentID, e.pack.ID, e.pack.Version)
	}

	doc, err := e.scoreOne(ctx, req)
	if e.obs != nil && err == nil {
		e.obs.RecordScored(ctx,
			observability.AttrDocumentID.String(req.DocumentID),
			observability.AttrPolicyID.String(e.pack.ID),
		)
	}
	if finish != nil {
		finish(err)
	}
	return doc, err
}

func (e *Engine) scoreOne(ctx context.Context, req Request) (*ScoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("score %s: %w", req.DocumentID, err)
	}

	resolved, err := e.resolver.Resolve(req.DocumentID, req.Domains, req.Size)
	if err != nil {
		return nil, err
	}

	contribs, anomalies := e.aggregator.Aggregate(req.DocumentID, req.Signals, domain.Weights(resolved))

	result, err := score.Compute(req.DocumentID, contribs, e.pack)
	if err != nil {
		return nil, err
	}

	entries := gaps.Prioritize(contribs, e.pack)
	explanation := e.composer.Compose(req.DocumentID, result.ReadinessScore, result.RiskLabel, entries)

	fingerprint, err := canonical.Hash(fingerprintView{
		DocumentID:     req.DocumentID,
		PolicyID:       e.pack.ID,
		PolicyVersion:  e.pack.Version,
		PolicyHash:     e.pack.ContentHash,
		ReadinessScore: result.ReadinessScore,
		RiskLabel:      result.RiskLabel,
		Gaps:           entries,
		Explanation:    explanation,
		Anomalies:      anomalies,
	})
	if err != nil {
		return nil, fmt.Errorf("score %s: fingerprint: %w", req.DocumentID, err)
	}

	doc := &ScoredDocument{
		ResultID:       e.newID(),
		DocumentID:     req.DocumentID,
		PolicyID:       e.pack.ID,
		PolicyVersion:  e.pack.Version,
		ReadinessScore: result.ReadinessScore,
		RiskLabel:      result.RiskLabel,
		Gaps:           entries,
		Explanation:    explanation,
		Anomalies:      anomalies,
		Fingerprint:    fingerprint,
		ScoredAt:       e.now().UTC(),
	}

	e.logger.Info("document scored",
		"document_id", doc.DocumentID,
		"readiness_score", doc.ReadinessScore,
		"risk_label", doc.RiskLabel,
		"gaps", len(doc.Gaps),
		"anomalies", len(doc.Anomalies),
	)

	_ = e.auditor.Record(ctx, audit.EventScoring, "score_document", doc.DocumentID, map[string]interface{}{
		"result_id":       doc.ResultID,
		"policy_version":  doc.PolicyVersion,
		"readiness_score": doc.ReadinessScore,
		"risk_label":      doc.RiskLabel,
		"fingerprint":     doc.Fingerprint,
	})
	if len(anomalies) > 0 {
		_ = e.auditor.Record(ctx, audit.EventAnomaly, "anomalies_recorded", doc.DocumentID, map[string]interface{}{
			"count": len(anomalies),
		})
	}

	return doc, nil
}
