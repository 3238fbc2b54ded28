package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/regnav/readiness-core/pkg/audit"
	"github.com/regnav/readiness-core/pkg/observability"
)

// Failure records one document that could not be scored in a batch.
type Failure struct {
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
}

// BatchResult is the outcome of a batch scoring run. Documents and Failures
// are ordered by document id regardless of completion order.
type BatchResult struct {
	Documents []*ScoredDocument `json:"documents"`
	Failures  []Failure         `json:"failures,omitempty"`
}

// ScoreBatch scores requests concurrently on a bounded worker pool. One
// document failing does not abort the rest; every request lands in either
// Documents or Failures. Context cancellation stops dispatch and fails the
// not-yet-scored remainder.
func (e *Engine) ScoreBatch(ctx context.Context, reqs []Request) BatchResult {
	var finish func(error)
	if e.obs != nil {
		ctx, finish = e.obs.TrackOperation(ctx, "score_batch",
			observability.AttrPolicyID.String(e.pack.ID),
			observability.AttrBatchSize.Int(len(reqs)),
		)
	}

	type outcome struct {
		doc *ScoredDocument
		err error
		id  string
	}

	jobs := make(chan Request)
	outcomes := make(chan outcome, len(reqs))

	workers := e.workers
	if workers > len(reqs) {
		workers = len(reqs)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				if e.limiter != nil {
					if err := e.limiter.Wait(ctx); err != nil {
						outcomes <- outcome{err: err, id: req.DocumentID}
						continue
					}
				}
				doc, err := e.scoreOne(ctx, req)
				outcomes <- outcome{doc: doc, err: err, id: req.DocumentID}
			}
		}()
	}

dispatch:
	for _, req := range reqs {
		select {
		case jobs <- req:
		case <-ctx.Done():
			outcomes <- outcome{err: ctx.Err(), id: req.DocumentID}
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	var result BatchResult
	seen := make(map[string]bool, len(reqs))
	for o := range outcomes {
		seen[o.id] = true
		if o.err != nil {
			result.Failures = append(result.Failures, Failure{DocumentID: o.id, Error: o.err.Error()})
			continue
		}
		result.Documents = append(result.Documents, o.doc)
		if e.obs != nil {
			e.obs.RecordScored(ctx,
				observability.AttrDocumentID.String(o.id),
				observability.AttrPolicyID.String(e.pack.ID),
			)
		}
	}
	// Requests never dispatched because of cancellation fail explicitly.
	if err := ctx.Err(); err != nil {
		for _, req := range reqs {
			if !seen[req.DocumentID] {
				result.Failures = append(result.Failures, Failure{DocumentID: req.DocumentID, Error: err.Error()})
			}
		}
	}

	sort.Slice(result.Documents, func(i, j int) bool {
		return result.Documents[i].DocumentID < result.Documents[j].DocumentID
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].DocumentID < result.Failures[j].DocumentID
	})

	e.logger.Info("batch scored",
		"requested", len(reqs),
		"scored", len(result.Documents),
		"failed", len(result.Failures),
	)
	_ = e.auditor.Record(ctx, audit.EventBatch, "score_batch", e.pack.ID, map[string]interface{}{
		"requested": len(reqs),
		"scored":    len(result.Documents),
		"failed":    len(result.Failures),
	})

	if finish != nil {
		finish(nil)
	}
	return result
}
