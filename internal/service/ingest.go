// Package service contains the trip normalization pipeline and the summary
// aggregator. Services resolve, derive, validate and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/metrics"
	"github.com/pkordes/taxi-analytics/backend/internal/repo"
)

// DefaultIngestConcurrency is the batch worker limit when none is configured.
const DefaultIngestConcurrency = 8

// Invalidator is notified after every successful trip write or delete.
// SummaryService implements it to drop cached rollups.
type Invalidator interface {
	Invalidate()
}

// IngestService runs raw trips through the pipeline:
// resolve references, derive metrics, validate, persist.
type IngestService struct {
	trips       repo.TripRepo
	resolver    *Resolver
	invalidator Invalidator
	metrics     *metrics.Pipeline
	log         *slog.Logger
	concurrency int
}

// IngestOptions holds the optional collaborators of an IngestService.
type IngestOptions struct {
	Concurrency int
	Invalidator Invalidator
	Metrics     *metrics.Pipeline
	Logger      *slog.Logger
}

// NewIngestService constructs an IngestService.
func NewIngestService(trips repo.TripRepo, resolver *Resolver, opts IngestOptions) *IngestService {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultIngestConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IngestService{
		trips:       trips,
		resolver:    resolver,
		invalidator: opts.Invalidator,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		concurrency: opts.Concurrency,
	}
}

// Ingest processes a single raw trip and returns the persisted record.
// A malformed or invalid record yields a *domain.ResolutionError or
// *domain.RejectionError and nothing is written to trips.
func (s *IngestService) Ingest(ctx context.Context, raw domain.RawTrip) (domain.Trip, error) {
	t, err := s.prepare(ctx, raw)
	if err != nil {
		s.record(ctx, err)
		return domain.Trip{}, err
	}

	created, err := s.trips.Create(ctx, t)
	if err != nil {
		err = fmt.Errorf("service.IngestService.Ingest: %w", err)
		s.record(ctx, err)
		return domain.Trip{}, err
	}
	s.record(ctx, nil)
	s.invalidate()
	return created, nil
}

// IngestBatch processes every record independently, up to the configured
// number at a time, and returns one outcome per record in input order.
// A bad record never affects its siblings. The error is non-nil only when
// ctx ends before the batch completes; the outcomes gathered so far are
// still returned.
func (s *IngestService) IngestBatch(ctx context.Context, raws []domain.RawTrip) (domain.BatchResult, error) {
	res := domain.BatchResult{
		BatchID:  uuid.New(),
		Outcomes: make([]domain.Outcome, len(raws)),
	}
	if s.metrics != nil {
		s.metrics.Batch(ctx, len(raws))
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range raws {
		g.Go(func() error {
			res.Outcomes[i] = s.outcome(ctx, i, raws[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range res.Outcomes {
		if o.Accepted {
			res.Accepted++
		} else {
			res.Rejected++
		}
	}

	s.log.InfoContext(ctx, "batch ingested",
		"batch_id", res.BatchID,
		"records", len(raws),
		"accepted", res.Accepted,
		"rejected", res.Rejected,
	)
	return res, ctx.Err()
}

func (s *IngestService) outcome(ctx context.Context, i int, raw domain.RawTrip) domain.Outcome {
	if err := ctx.Err(); err != nil {
		return domain.Outcome{Index: i, Reason: domain.ReasonStoreFailure, Message: err.Error()}
	}
	t, err := s.Ingest(ctx, raw)
	if err != nil {
		return domain.Outcome{Index: i, Reason: reasonFor(err), Message: err.Error()}
	}
	return domain.Outcome{Index: i, Accepted: true, Trip: &t}
}

// GetByID returns a single trip.
func (s *IngestService) GetByID(ctx context.Context, id int64) (domain.Trip, error) {
	t, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.IngestService.GetByID: %w", err)
	}
	return t, nil
}

// List returns one page of trips matching filter and the total match count.
func (s *IngestService) List(ctx context.Context, filter domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	trips, total, err := s.trips.List(ctx, filter, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.IngestService.List: %w", err)
	}
	return trips, total, nil
}

// Update replaces trip id with the result of running raw through the
// pipeline. Derived fields are always recomputed; callers cannot set them.
func (s *IngestService) Update(ctx context.Context, id int64, raw domain.RawTrip) (domain.Trip, error) {
	t, err := s.prepare(ctx, raw)
	if err != nil {
		return domain.Trip{}, err
	}
	t.ID = id

	updated, err := s.trips.Update(ctx, t)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.IngestService.Update: %w", err)
	}
	s.invalidate()
	return updated, nil
}

// Delete removes a trip. Vendors and zones it referenced are kept.
func (s *IngestService) Delete(ctx context.Context, id int64) error {
	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.IngestService.Delete: %w", err)
	}
	s.invalidate()
	return nil
}

// prepare turns a raw record into a validated, fully derived trip ready for
// the store. Timestamps are parsed before resolution so that a record with
// an unreadable time never creates vendors or zones.
func (s *IngestService) prepare(ctx context.Context, raw domain.RawTrip) (domain.Trip, error) {
	t, err := candidate(raw)
	if err != nil {
		return domain.Trip{}, err
	}

	refs, err := s.resolver.Resolve(ctx, raw)
	if err != nil {
		return domain.Trip{}, err
	}
	t.VendorID = refs.VendorID
	t.PickupZoneID = refs.PickupZoneID
	t.DropoffZoneID = refs.DropoffZoneID

	t = Derive(t)
	if err := Validate(t); err != nil {
		return domain.Trip{}, err
	}
	return t, nil
}

// Normalize runs the store-free part of the pipeline: parse, derive and
// validate. Vendor and zone references are not resolved, so their ids stay
// nil and resolution failures go unreported. Used for dry runs.
func Normalize(raw domain.RawTrip) (domain.Trip, error) {
	t, err := candidate(raw)
	if err != nil {
		return domain.Trip{}, err
	}
	t = Derive(t)
	if err := Validate(t); err != nil {
		return domain.Trip{}, err
	}
	return t, nil
}

func (s *IngestService) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

// record logs and counts the outcome of one record.
func (s *IngestService) record(ctx context.Context, err error) {
	outcome, reason := "accepted", ""
	if err != nil {
		r := reasonFor(err)
		reason = string(r)
		if r == domain.ReasonStoreFailure {
			outcome = "failed"
			s.log.ErrorContext(ctx, "trip not stored", "error", err)
		} else {
			outcome = "rejected"
			s.log.DebugContext(ctx, "trip rejected", "reason", reason, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.Outcome(ctx, outcome, reason)
	}
}

// reasonFor maps a pipeline error onto its reason code. Anything that is not
// a rejection or resolution failure happened at the store.
func reasonFor(err error) domain.ReasonCode {
	if r := domain.ReasonOf(err); r != "" {
		return r
	}
	return domain.ReasonStoreFailure
}
