package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/pkordes/taxi-analytics/backend/internal/metrics"
)

func TestPipeline_RecordsOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	p, err := metrics.New(mp)
	require.NoError(t, err)
	ctx := context.Background()

	p.Outcome(ctx, "accepted", "")
	p.Outcome(ctx, "accepted", "")
	p.Outcome(ctx, "rejected", "negative_duration")
	p.Created(ctx, "vendor")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	require.Len(t, rm.ScopeMetrics, 1)
	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	processed, ok := byName["pipeline.trips.processed"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range processed.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, processed.DataPoints, 2, "one series per outcome/reason pair")

	created, ok := byName["pipeline.entities.created"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, created.DataPoints, 1)
	assert.Equal(t, int64(1), created.DataPoints[0].Value)
}

func TestNewGlobal_NoopByDefault(t *testing.T) {
	p, err := metrics.NewGlobal()
	require.NoError(t, err)

	// Must not panic with the default no-op provider.
	p.Outcome(context.Background(), "accepted", "")
	p.Batch(context.Background(), 10)
}
