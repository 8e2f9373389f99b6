package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// SummaryRepo reads the trip_summary rollup view.
//
// Each method is a single statement, so under PostgreSQL's default READ
// COMMITTED isolation it observes one consistent snapshot taken when the
// statement starts. Trips committed by a concurrent ingest after that point
// show up on the next call, not this one.
type SummaryRepo interface {
	// Daily returns one row per pickup date within r, newest date first.
	Daily(ctx context.Context, r domain.DateRange) ([]domain.DailySummary, error)

	// Overall returns the trip count and average distance and fare across
	// every trip.
	Overall(ctx context.Context) (domain.OverallStats, error)
}

// pgSummaryRepo is the Postgres implementation of SummaryRepo.
type pgSummaryRepo struct {
	db db
}

// NewSummaryRepo constructs a SummaryRepo backed by the provided db connection.
func NewSummaryRepo(db db) SummaryRepo {
	return &pgSummaryRepo{db: db}
}

// Daily selects from the view. The view already orders by trip_date DESC,
// but ORDER BY is repeated because a filtered view scan does not promise it.
func (r *pgSummaryRepo) Daily(ctx context.Context, dr domain.DateRange) ([]domain.DailySummary, error) {
	q := `
		SELECT trip_date, total_trips, avg_distance_km, avg_fare, avg_duration_min, avg_tip_pct
		FROM trip_summary
		WHERE 1 = 1`
	args := pgx.NamedArgs{}
	if dr.From != nil {
		q += ` AND trip_date >= @from`
		args["from"] = *dr.From
	}
	if dr.To != nil {
		q += ` AND trip_date <= @to`
		args["to"] = *dr.To
	}
	q += ` ORDER BY trip_date DESC`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.SummaryRepo.Daily: %w", err)
	}
	defer rows.Close()

	out := []domain.DailySummary{}
	for rows.Next() {
		var s domain.DailySummary
		if err := rows.Scan(&s.TripDate, &s.TotalTrips, &s.AvgDistanceKm, &s.AvgFare, &s.AvgDurationMin, &s.AvgTipPct); err != nil {
			return nil, fmt.Errorf("repo.SummaryRepo.Daily: scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.SummaryRepo.Daily: rows: %w", err)
	}
	return out, nil
}

// Overall mirrors the headline query operators run to sanity-check a load.
func (r *pgSummaryRepo) Overall(ctx context.Context) (domain.OverallStats, error) {
	const q = `
		SELECT
			COUNT(*),
			ROUND(AVG(trip_distance_km)::numeric, 2),
			ROUND(AVG(fare_amount)::numeric, 2)
		FROM trips`

	var s domain.OverallStats
	if err := r.db.QueryRow(ctx, q).Scan(&s.TotalTrips, &s.AvgDistanceKm, &s.AvgFare); err != nil {
		return domain.OverallStats{}, fmt.Errorf("repo.SummaryRepo.Overall: %w", err)
	}
	return s, nil
}
