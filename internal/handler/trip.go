package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/service"
)

// TripList is the body of GET /trips.
type TripList struct {
	Data       []domain.Trip `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// Pagination echoes the effective page and limit plus the total match count.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// BatchRequest is the body of POST /trips/batch.
type BatchRequest struct {
	Trips []domain.RawTrip `json:"trips"`
}

// CreateTrip handles POST /trips.
// 201 with the stored trip, or 422 with the rejection reason.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var raw domain.RawTrip
	if !decodeBody(w, r, &raw) {
		return
	}

	created, err := s.trips.Ingest(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CreateTripBatch handles POST /trips/batch.
// The response is 200 whenever the batch was processed, even if every record
// was rejected; callers inspect the per-record outcomes.
func (s *Server) CreateTripBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := s.trips.IngestBatch(r.Context(), body.Trips)
	if err != nil {
		writeServiceError(w, r, err, "batch")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= (defaults: page=1, limit=20, max=100) plus the
// filters pickup_from, pickup_to, pickup_zone_id, dropoff_zone_id, vendor_id,
// min_fare, max_fare, min_speed_kmh and max_speed_kmh.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		page, limit          *int
		pickupFrom, pickupTo *string
		f                    domain.TripFilter
	)
	for _, p := range []struct {
		name string
		dest any
	}{
		{"page", &page},
		{"limit", &limit},
		{"pickup_from", &pickupFrom},
		{"pickup_to", &pickupTo},
		{"pickup_zone_id", &f.PickupZoneID},
		{"dropoff_zone_id", &f.DropoffZoneID},
		{"vendor_id", &f.VendorID},
		{"min_fare", &f.MinFare},
		{"max_fare", &f.MaxFare},
		{"min_speed_kmh", &f.MinSpeedKmh},
		{"max_speed_kmh", &f.MaxSpeedKmh},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dest); err != nil {
			badRequest(w, "invalid "+p.name+": "+err.Error())
			return
		}
	}

	var err error
	if f.PickupFrom, err = parseQueryTime("pickup_from", pickupFrom); err != nil {
		badRequest(w, err.Error())
		return
	}
	if f.PickupTo, err = parseQueryTime("pickup_to", pickupTo); err != nil {
		badRequest(w, err.Error())
		return
	}

	params := domain.NewPaginationParams(page, limit)
	trips, total, err := s.trips.List(r.Context(), f, params)
	if err != nil {
		writeServiceError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, TripList{
		Data:       trips,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      total,
			TotalPages: params.TotalPages(total),
		},
	})
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}

	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// UpdateTrip handles PUT /trips/{id}. The body is a raw trip; every derived
// field is recomputed from it.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	var raw domain.RawTrip
	if !decodeBody(w, r, &raw) {
		return
	}

	updated, err := s.trips.Update(r.Context(), id, raw)
	if err != nil {
		writeServiceError(w, r, err, "trip")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTrip handles DELETE /trips/{id}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}

	if err := s.trips.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "trip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- request helpers --------------------------------------------------------

func tripID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id < 1 {
		badRequest(w, "invalid trip id")
		return 0, false
	}
	return id, true
}

// decodeBody decodes the JSON body into v, writing a 400 or 413 and
// returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		badRequest(w, "request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return false
		}
		badRequest(w, "malformed JSON body: "+err.Error())
		return false
	}
	return true
}

// parseQueryTime accepts the same timestamp forms as trip input, plus a bare
// date meaning midnight.
func parseQueryTime(name string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	if d, err := time.Parse(time.DateOnly, *raw); err == nil {
		return &d, nil
	}
	t, err := service.ParseTimestamp(name, *raw)
	if err != nil {
		return nil, errors.New("invalid " + name + ": expected ISO 8601 timestamp or date")
	}
	return &t, nil
}
