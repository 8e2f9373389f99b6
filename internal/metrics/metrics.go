// Package metrics defines the OpenTelemetry instruments the ingest pipeline
// records. Instruments come from whatever MeterProvider is passed to New;
// with the global default provider they are no-ops.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for every instrument in this package.
const MeterName = "github.com/pkordes/taxi-analytics/backend/pipeline"

// Pipeline groups the pipeline instruments.
type Pipeline struct {
	// TripsProcessed counts records by outcome (accepted, rejected, failed)
	// and reason code.
	TripsProcessed metric.Int64Counter

	// EntitiesCreated counts vendors and zones created during resolution.
	EntitiesCreated metric.Int64Counter

	// BatchSize records the number of records per ingested batch.
	BatchSize metric.Int64Histogram
}

// New creates the pipeline instruments on mp.
func New(mp metric.MeterProvider) (*Pipeline, error) {
	m := mp.Meter(MeterName)

	processed, err := m.Int64Counter("pipeline.trips.processed",
		metric.WithDescription("Raw trip records processed, by outcome and reason"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, fmt.Errorf("metrics.New: trips processed: %w", err)
	}

	created, err := m.Int64Counter("pipeline.entities.created",
		metric.WithDescription("Vendors and zones created on first sighting"),
		metric.WithUnit("{entity}"))
	if err != nil {
		return nil, fmt.Errorf("metrics.New: entities created: %w", err)
	}

	batch, err := m.Int64Histogram("pipeline.batch.size",
		metric.WithDescription("Records per ingested batch"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, fmt.Errorf("metrics.New: batch size: %w", err)
	}

	return &Pipeline{TripsProcessed: processed, EntitiesCreated: created, BatchSize: batch}, nil
}

// NewGlobal creates the instruments on the global MeterProvider.
func NewGlobal() (*Pipeline, error) {
	return New(otel.GetMeterProvider())
}

// Outcome records one processed record.
func (p *Pipeline) Outcome(ctx context.Context, outcome, reason string) {
	p.TripsProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	))
}

// Created records one entity created by the resolver; kind is "vendor" or "zone".
func (p *Pipeline) Created(ctx context.Context, kind string) {
	p.EntitiesCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Batch records the size of one batch.
func (p *Pipeline) Batch(ctx context.Context, n int) {
	p.BatchSize.Record(ctx, int64(n))
}
