package handler

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// SummaryRow is one day of the rollup as served over HTTP. Column names
// match the trip_summary view.
type SummaryRow struct {
	TripDate       openapi_types.Date `json:"trip_date"`
	TotalTrips     int64              `json:"total_trips"`
	AvgDistanceKm  *float64           `json:"avg_distance_km"`
	AvgFare        *float64           `json:"avg_fare"`
	AvgDurationMin *float64           `json:"avg_duration_min"`
	AvgTipPct      *float64           `json:"avg_tip_pct"`
}

// SummaryResponse is the body of GET /summary.
type SummaryResponse struct {
	Data []SummaryRow `json:"data"`
}

var summaryColumns = []string{"trip_date", "total_trips", "avg_distance_km", "avg_fare", "avg_duration_min", "avg_tip_pct"}

// GetSummary handles GET /summary?from=YYYY-MM-DD&to=YYYY-MM-DD[&format=csv].
// Both bounds are optional and inclusive. Rows are newest date first.
func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		from, to *openapi_types.Date
		format   *string
	)
	if err := runtime.BindQueryParameter("form", true, false, "from", q, &from); err != nil {
		badRequest(w, "invalid from: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", q, &to); err != nil {
		badRequest(w, "invalid to: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "format", q, &format); err != nil {
		badRequest(w, "invalid format: "+err.Error())
		return
	}
	if format != nil && *format != "json" && *format != "csv" {
		badRequest(w, "format must be json or csv")
		return
	}

	var dr domain.DateRange
	if from != nil {
		dr.From = &from.Time
	}
	if to != nil {
		dr.To = &to.Time
	}

	rows, err := s.summary.Daily(r.Context(), dr)
	if err != nil {
		writeServiceError(w, r, err, "summary")
		return
	}

	data := make([]SummaryRow, len(rows))
	for i, row := range rows {
		data[i] = summaryToResponse(row)
	}

	if format != nil && *format == "csv" {
		writeSummaryCSV(w, r, data)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Data: data})
}

// GetOverall handles GET /summary/overall.
func (s *Server) GetOverall(w http.ResponseWriter, r *http.Request) {
	stats, err := s.summary.Overall(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "summary")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeSummaryCSV(w http.ResponseWriter, r *http.Request, rows []SummaryRow) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trip_summary.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(summaryColumns)
	for _, row := range rows {
		_ = cw.Write([]string{
			row.TripDate.Format(openapi_types.DateFormat),
			strconv.FormatInt(row.TotalTrips, 10),
			formatOptional(row.AvgDistanceKm),
			formatOptional(row.AvgFare),
			formatOptional(row.AvgDurationMin),
			formatOptional(row.AvgTipPct),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.ErrorContext(r.Context(), "writing summary csv", "error", err)
	}
}

// formatOptional renders an absent average as an empty cell, never as 0.
func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func summaryToResponse(d domain.DailySummary) SummaryRow {
	return SummaryRow{
		TripDate:       openapi_types.Date{Time: d.TripDate},
		TotalTrips:     d.TotalTrips,
		AvgDistanceKm:  d.AvgDistanceKm,
		AvgFare:        d.AvgFare,
		AvgDurationMin: d.AvgDurationMin,
		AvgTipPct:      d.AvgTipPct,
	}
}
