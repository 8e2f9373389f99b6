// Package repo contains all database access logic for the taxi analytics API.
// Each resource has its own file with an interface and a Postgres implementation.
// Only SQL and row mapping live here; business rules belong to the service layer.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for Trips.
// Callers pass fully derived and validated trips; the repo writes every
// column verbatim and relies on the schema's check and foreign-key
// constraints as the last line of defence.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record with its
	// generated id. Constraint violations come back as domain.ErrValidation
	// or domain.ErrInvalidReference.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id int64) (domain.Trip, error)

	// List returns one page of trips matching filter, ordered by
	// pickup_datetime descending, plus the total number of matches.
	List(ctx context.Context, filter domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// Update overwrites every stored column of an existing trip.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

// tripColumns is the select list shared by every query that feeds scanTrip.
// Nullable numeric columns written by older loaders are coalesced; derived
// metrics are not, because NULL is their "not computable" marker.
const tripColumns = `
	id, vendor_id, pickup_datetime, dropoff_datetime,
	pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
	pickup_zone_id, dropoff_zone_id,
	COALESCE(passenger_count, 0), COALESCE(trip_distance_km, 0),
	COALESCE(trip_duration_seconds, 0), COALESCE(fare_amount, 0), COALESCE(tip_amount, 0),
	trip_speed_kmh, fare_per_km, tip_pct,
	COALESCE(hour_of_day, 0), COALESCE(day_of_week, '')`

// tripArgs maps every writable column to its named argument.
func tripArgs(t domain.Trip) pgx.NamedArgs {
	return pgx.NamedArgs{
		"vendor_id":             t.VendorID, // nil becomes NULL
		"pickup_datetime":       t.PickupDatetime,
		"dropoff_datetime":      t.DropoffDatetime,
		"pickup_lat":            t.PickupLat,
		"pickup_lon":            t.PickupLon,
		"dropoff_lat":           t.DropoffLat,
		"dropoff_lon":           t.DropoffLon,
		"pickup_zone_id":        t.PickupZoneID,
		"dropoff_zone_id":       t.DropoffZoneID,
		"passenger_count":       t.PassengerCount,
		"trip_distance_km":      t.TripDistanceKm,
		"trip_duration_seconds": t.TripDurationSeconds,
		"fare_amount":           t.FareAmount,
		"tip_amount":            t.TipAmount,
		"trip_speed_kmh":        t.TripSpeedKmh,
		"fare_per_km":           t.FarePerKm,
		"tip_pct":               t.TipPct,
		"hour_of_day":           t.HourOfDay,
		"day_of_week":           t.DayOfWeek,
	}
}

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		INSERT INTO trips (
			vendor_id, pickup_datetime, dropoff_datetime,
			pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
			pickup_zone_id, dropoff_zone_id, passenger_count,
			trip_distance_km, trip_duration_seconds, fare_amount,
			tip_amount, trip_speed_kmh, fare_per_km, tip_pct,
			hour_of_day, day_of_week
		) VALUES (
			@vendor_id, @pickup_datetime, @dropoff_datetime,
			@pickup_lat, @pickup_lon, @dropoff_lat, @dropoff_lon,
			@pickup_zone_id, @dropoff_zone_id, @passenger_count,
			@trip_distance_km, @trip_duration_seconds, @fare_amount,
			@tip_amount, @trip_speed_kmh, @fare_per_km, @tip_pct,
			@hour_of_day, @day_of_week
		)
		RETURNING` + tripColumns

	row := r.db.QueryRow(ctx, q, tripArgs(trip))
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id int64) (domain.Trip, error) {
	q := `SELECT` + tripColumns + ` FROM trips WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns one page of trips matching filter, most recent pickup first.
func (r *pgTripRepo) List(ctx context.Context, filter domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	where, args := tripWhere(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips`+where, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: count: %w", err)
	}

	args["limit"] = p.Limit
	args["offset"] = p.Offset()
	q := `SELECT` + tripColumns + ` FROM trips` + where + `
		ORDER BY pickup_datetime DESC, id DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.List: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: rows: %w", err)
	}
	return trips, total, nil
}

// tripWhere builds a WHERE clause containing only the predicates that are set.
// Building it per call, rather than using "@x IS NULL OR col >= @x", keeps
// every predicate sargable so the planner can pick the matching index.
func tripWhere(f domain.TripFilter) (string, pgx.NamedArgs) {
	var clauses []string
	args := pgx.NamedArgs{}

	add := func(clause, name string, value any) {
		clauses = append(clauses, clause)
		args[name] = value
	}
	if f.PickupFrom != nil {
		add("pickup_datetime >= @pickup_from", "pickup_from", *f.PickupFrom)
	}
	if f.PickupTo != nil {
		add("pickup_datetime < @pickup_to", "pickup_to", *f.PickupTo)
	}
	if f.PickupZoneID != nil {
		add("pickup_zone_id = @pickup_zone_id", "pickup_zone_id", *f.PickupZoneID)
	}
	if f.DropoffZoneID != nil {
		add("dropoff_zone_id = @dropoff_zone_id", "dropoff_zone_id", *f.DropoffZoneID)
	}
	if f.VendorID != nil {
		add("vendor_id = @vendor_id", "vendor_id", *f.VendorID)
	}
	if f.MinFare != nil {
		add("fare_amount >= @min_fare", "min_fare", *f.MinFare)
	}
	if f.MaxFare != nil {
		add("fare_amount <= @max_fare", "max_fare", *f.MaxFare)
	}
	if f.MinSpeedKmh != nil {
		add("trip_speed_kmh >= @min_speed", "min_speed", *f.MinSpeedKmh)
	}
	if f.MaxSpeedKmh != nil {
		add("trip_speed_kmh <= @max_speed", "max_speed", *f.MaxSpeedKmh)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Update overwrites the stored columns of a trip and returns the updated record.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET vendor_id             = @vendor_id,
		    pickup_datetime       = @pickup_datetime,
		    dropoff_datetime      = @dropoff_datetime,
		    pickup_lat            = @pickup_lat,
		    pickup_lon            = @pickup_lon,
		    dropoff_lat           = @dropoff_lat,
		    dropoff_lon           = @dropoff_lon,
		    pickup_zone_id        = @pickup_zone_id,
		    dropoff_zone_id       = @dropoff_zone_id,
		    passenger_count       = @passenger_count,
		    trip_distance_km      = @trip_distance_km,
		    trip_duration_seconds = @trip_duration_seconds,
		    fare_amount           = @fare_amount,
		    tip_amount            = @tip_amount,
		    trip_speed_kmh        = @trip_speed_kmh,
		    fare_per_km           = @fare_per_km,
		    tip_pct               = @tip_pct,
		    hour_of_day           = @hour_of_day,
		    day_of_week           = @day_of_week
		WHERE id = @id
		RETURNING` + tripColumns

	args := tripArgs(trip)
	args["id"] = trip.ID

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", mapPgError(err))
	}
	return result, nil
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row selected with tripColumns into a domain.Trip.
// NULL references and NULL derived metrics scan into nil pointers.
func scanTrip(s scanner) (domain.Trip, error) {
	var t domain.Trip
	err := s.Scan(
		&t.ID, &t.VendorID, &t.PickupDatetime, &t.DropoffDatetime,
		&t.PickupLat, &t.PickupLon, &t.DropoffLat, &t.DropoffLon,
		&t.PickupZoneID, &t.DropoffZoneID,
		&t.PassengerCount, &t.TripDistanceKm,
		&t.TripDurationSeconds, &t.FareAmount, &t.TipAmount,
		&t.TripSpeedKmh, &t.FarePerKm, &t.TipPct,
		&t.HourOfDay, &t.DayOfWeek,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}
	return t, nil
}
