// Package handler implements the HTTP handlers for the taxi analytics API.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, trip.go, summary.go, reference.go) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// TripServicer defines the pipeline operations the trip handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TripServicer interface {
	Ingest(ctx context.Context, raw domain.RawTrip) (domain.Trip, error)
	IngestBatch(ctx context.Context, raws []domain.RawTrip) (domain.BatchResult, error)
	GetByID(ctx context.Context, id int64) (domain.Trip, error)
	List(ctx context.Context, filter domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error)
	Update(ctx context.Context, id int64, raw domain.RawTrip) (domain.Trip, error)
	Delete(ctx context.Context, id int64) error
}

// SummaryServicer serves the daily rollup and the headline stats.
type SummaryServicer interface {
	Daily(ctx context.Context, r domain.DateRange) ([]domain.DailySummary, error)
	Overall(ctx context.Context) (domain.OverallStats, error)
}

// VendorLister lists vendor reference data.
type VendorLister interface {
	List(ctx context.Context) ([]domain.Vendor, error)
}

// ZoneLister lists zone reference data.
type ZoneLister interface {
	List(ctx context.Context) ([]domain.Zone, error)
}

// Server holds the dependencies of every endpoint.
type Server struct {
	trips   TripServicer
	summary SummaryServicer
	vendors VendorLister
	zones   ZoneLister
	apiDoc  []byte
}

// NewServer constructs the Server with all its dependencies. Any of them may
// be nil in tests that only exercise other endpoints.
func NewServer(trips TripServicer, summary SummaryServicer, vendors VendorLister, zones ZoneLister) *Server {
	return &Server{trips: trips, summary: summary, vendors: vendors, zones: zones}
}

// WithAPIDoc sets the document served at /openapi.yaml.
func (s *Server) WithAPIDoc(doc []byte) *Server {
	s.apiDoc = doc
	return s
}

// Register mounts every route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetAPIDoc)

	r.Route("/trips", func(r chi.Router) {
		r.Post("/", s.CreateTrip)
		r.Post("/batch", s.CreateTripBatch)
		r.Get("/", s.ListTrips)
		r.Get("/{id}", s.GetTrip)
		r.Put("/{id}", s.UpdateTrip)
		r.Delete("/{id}", s.DeleteTrip)
	})

	r.Get("/summary", s.GetSummary)
	r.Get("/summary/overall", s.GetOverall)
	r.Get("/vendors", s.ListVendors)
	r.Get("/zones", s.ListZones)
}

// Handler returns a chi router serving every route of s.
func Handler(s *Server) http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}
