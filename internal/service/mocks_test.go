package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/repo"
	"github.com/pkordes/taxi-analytics/backend/internal/service"
)

// ---- function-field mocks --------------------------------------------------
// Each method is a function field; set only the ones the test needs.

type mockTripRepo struct {
	create  func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID func(ctx context.Context, id int64) (domain.Trip, error)
	list    func(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error)
	update  func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete  func(ctx context.Context, id int64) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id int64) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.list(ctx, f, p)
}
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, trip)
}
func (m *mockTripRepo) Delete(ctx context.Context, id int64) error {
	return m.delete(ctx, id)
}

type mockVendorRepo struct {
	create    func(ctx context.Context, v domain.Vendor) (domain.Vendor, error)
	getByCode func(ctx context.Context, code string) (domain.Vendor, error)
}

func (m *mockVendorRepo) Create(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	return m.create(ctx, v)
}
func (m *mockVendorRepo) GetByCode(ctx context.Context, code string) (domain.Vendor, error) {
	return m.getByCode(ctx, code)
}
func (m *mockVendorRepo) GetByID(context.Context, int32) (domain.Vendor, error) {
	panic("not used")
}
func (m *mockVendorRepo) List(context.Context) ([]domain.Vendor, error) { panic("not used") }
func (m *mockVendorRepo) Delete(context.Context, int32) error       { panic("not used") }

type mockSummaryRepo struct {
	daily   func(ctx context.Context, r domain.DateRange) ([]domain.DailySummary, error)
	overall func(ctx context.Context) (domain.OverallStats, error)
}

func (m *mockSummaryRepo) Daily(ctx context.Context, r domain.DateRange) ([]domain.DailySummary, error) {
	return m.daily(ctx, r)
}
func (m *mockSummaryRepo) Overall(ctx context.Context) (domain.OverallStats, error) {
	return m.overall(ctx)
}

// compile-time checks
var (
	_ repo.TripRepo    = (*mockTripRepo)(nil)
	_ repo.VendorRepo  = (*mockVendorRepo)(nil)
	_ repo.SummaryRepo = (*mockSummaryRepo)(nil)
)

// ---- in-memory fakes -------------------------------------------------------
// These enforce the same uniqueness rules as the schema so concurrency tests
// can observe duplicates if the resolver ever produced them.

type memVendors struct {
	mu      sync.Mutex
	byCode  map[string]domain.Vendor
	nextID  int32
	creates int
}

func newMemVendors() *memVendors { return &memVendors{byCode: map[string]domain.Vendor{}} }

func (m *memVendors) Create(_ context.Context, v domain.Vendor) (domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if _, ok := m.byCode[v.VendorCode]; ok {
		return domain.Vendor{}, domain.ErrConflict
	}
	m.nextID++
	v.VendorID = m.nextID
	m.byCode[v.VendorCode] = v
	return v, nil
}

func (m *memVendors) GetByCode(_ context.Context, code string) (domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byCode[code]
	if !ok {
		return domain.Vendor{}, domain.ErrNotFound
	}
	return v, nil
}

func (m *memVendors) GetByID(_ context.Context, id int32) (domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.byCode {
		if v.VendorID == id {
			return v, nil
		}
	}
	return domain.Vendor{}, domain.ErrNotFound
}

func (m *memVendors) List(context.Context) ([]domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Vendor, 0, len(m.byCode))
	for _, v := range m.byCode {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorCode < out[j].VendorCode })
	return out, nil
}

func (m *memVendors) Delete(_ context.Context, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, v := range m.byCode {
		if v.VendorID == id {
			delete(m.byCode, code)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memVendors) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byCode)
}

type memZones struct {
	mu     sync.Mutex
	byKey  map[string]domain.Zone
	nextID int32
}

func newMemZones() *memZones { return &memZones{byKey: map[string]domain.Zone{}} }

func (m *memZones) Create(_ context.Context, z domain.Zone) (domain.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[z.ShapefileID]; ok {
		return domain.Zone{}, domain.ErrConflict
	}
	m.nextID++
	z.ZoneID = m.nextID
	m.byKey[z.ShapefileID] = z
	return z, nil
}

func (m *memZones) GetByShapefileID(_ context.Context, key string) (domain.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.byKey[key]
	if !ok {
		return domain.Zone{}, domain.ErrNotFound
	}
	return z, nil
}

func (m *memZones) ListByShapefileIDs(_ context.Context, keys []string) ([]domain.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Zone
	for _, k := range keys {
		if z, ok := m.byKey[k]; ok {
			out = append(out, z)
		}
	}
	return out, nil
}

func (m *memZones) GetByID(_ context.Context, id int32) (domain.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, z := range m.byKey {
		if z.ZoneID == id {
			return z, nil
		}
	}
	return domain.Zone{}, domain.ErrNotFound
}

func (m *memZones) List(context.Context) ([]domain.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Zone, 0, len(m.byKey))
	for _, z := range m.byKey {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })
	return out, nil
}

func (m *memZones) Delete(_ context.Context, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, z := range m.byKey {
		if z.ZoneID == id {
			delete(m.byKey, k)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memZones) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byKey)
}

type memTrips struct {
	mu     sync.Mutex
	rows   map[int64]domain.Trip
	nextID int64
}

func newMemTrips() *memTrips { return &memTrips{rows: map[int64]domain.Trip{}} }

func (m *memTrips) Create(_ context.Context, t domain.Trip) (domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.rows[t.ID] = t
	return t, nil
}

func (m *memTrips) GetByID(_ context.Context, id int64) (domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memTrips) List(_ context.Context, _ domain.TripFilter, _ domain.PaginationParams) ([]domain.Trip, int64, error) {
	all := m.all()
	return all, int64(len(all)), nil
}

func (m *memTrips) Update(_ context.Context, t domain.Trip) (domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[t.ID]; !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	m.rows[t.ID] = t
	return t, nil
}

func (m *memTrips) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memTrips) all() []domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Trip, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memSummary answers summary queries by rolling up memTrips in Go, standing
// in for the trip_summary view.
type memSummary struct {
	trips *memTrips
	calls int
	mu    sync.Mutex
}

func (m *memSummary) Daily(_ context.Context, r domain.DateRange) ([]domain.DailySummary, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return service.Rollup(m.trips.all(), r), nil
}

func (m *memSummary) Overall(context.Context) (domain.OverallStats, error) {
	return service.Overall(m.trips.all()), nil
}

var (
	_ repo.VendorRepo  = (*memVendors)(nil)
	_ repo.ZoneRepo    = (*memZones)(nil)
	_ repo.TripRepo    = (*memTrips)(nil)
	_ repo.SummaryRepo = (*memSummary)(nil)
)

// ---- helpers ---------------------------------------------------------------

func ptr[T any](v T) *T { return &v }

// cmtRaw is the reference record: 5 km in 20 minutes for 15.00 plus a 3.00 tip.
func cmtRaw() domain.RawTrip {
	return domain.RawTrip{
		VendorCode:      "CMT",
		PickupDatetime:  "2025-01-01T08:00:00",
		DropoffDatetime: "2025-01-01T08:20:00",
		TripDistanceKm:  5.0,
		FareAmount:      15.0,
		TipAmount:       ptr(3.0),
		PassengerCount:  1,
	}
}

type pipeline struct {
	vendors *memVendors
	zones   *memZones
	trips   *memTrips
	summary *service.SummaryService
	ingest  *service.IngestService
}

func newPipeline(cacheTTL time.Duration) *pipeline {
	p := &pipeline{vendors: newMemVendors(), zones: newMemZones(), trips: newMemTrips()}
	p.summary = service.NewSummaryService(&memSummary{trips: p.trips}, cacheTTL)
	resolver := service.NewResolver(p.vendors, p.zones, service.ResolverConfig{MaxRetries: 3, RetryDelay: time.Millisecond}, nil, nil)
	p.ingest = service.NewIngestService(p.trips, resolver, service.IngestOptions{
		Concurrency: 4,
		Invalidator: p.summary,
	})
	return p
}
