package observability

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "regnav-readiness-core", config.ServiceName)
	require.Equal(t, "development", config.Environment)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.True(t, config.Enabled)
	require.False(t, config.Insecure)
}

func TestNewDisabledProvider(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	// A disabled provider still serves tracer/meter no-ops and records
	// nothing without panicking.
	_, done := p.TrackOperation(context.Background(), "score_document",
		AttrDocumentID.String("doc-1"))
	done(errors.New("boom"))

	p.RecordScored(context.Background(), attribute.String("k", "v"))
	require.NoError(t, p.Shutdown(context.Background()))
}

func testProviderWithReader(t *testing.T) (*Provider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	p := &Provider{
		config: DefaultConfig(),
		logger: slog.Default(),
		meter:  mp.Meter(instrumentationName),
	}
	require.NoError(t, p.initREDMetrics())
	return p, reader
}

func scoredTotal(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "regnav.scoring.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestScoredCounterCountsDocumentsNotOperations(t *testing.T) {
	p, reader := testProviderWithReader(t)
	ctx := context.Background()

	// Spans, including failed ones, do not move the scored counter.
	_, done := p.TrackOperation(ctx, "score_batch", AttrBatchSize.Int(3))
	done(nil)
	_, done = p.TrackOperation(ctx, "score_document", AttrDocumentID.String("doc-1"))
	done(errors.New("unresolved"))
	require.Equal(t, int64(0), scoredTotal(t, reader))

	p.RecordScored(ctx, AttrDocumentID.String("doc-1"))
	p.RecordScored(ctx, AttrDocumentID.String("doc-2"))
	require.Equal(t, int64(2), scoredTotal(t, reader))
}
