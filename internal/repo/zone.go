package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// ZoneRepo defines the persistence operations for Zones.
// shapefile_id is the resolution key and is unique across zones.
type ZoneRepo interface {
	// Create inserts a zone if no row with the same shapefile_id exists.
	// Returns domain.ErrConflict when the key is already taken.
	Create(ctx context.Context, z domain.Zone) (domain.Zone, error)

	// GetByShapefileID retrieves a zone by its resolution key.
	// Returns domain.ErrNotFound if no zone has that key.
	GetByShapefileID(ctx context.Context, key string) (domain.Zone, error)

	// ListByShapefileIDs returns the zones whose key is in keys, in no
	// particular order. Missing keys are simply absent from the result.
	ListByShapefileIDs(ctx context.Context, keys []string) ([]domain.Zone, error)

	// GetByID retrieves a zone by surrogate key.
	GetByID(ctx context.Context, id int32) (domain.Zone, error)

	// List returns all zones ordered by zone_id.
	List(ctx context.Context) ([]domain.Zone, error)

	// Delete removes a zone. Trips that referenced it as pickup or dropoff
	// zone keep existing with that reference set to NULL.
	Delete(ctx context.Context, id int32) error
}

// pgZoneRepo is the Postgres implementation of ZoneRepo.
type pgZoneRepo struct {
	db db
}

// NewZoneRepo constructs a ZoneRepo backed by the provided db connection.
func NewZoneRepo(db db) ZoneRepo {
	return &pgZoneRepo{db: db}
}

const zoneColumns = `zone_id, COALESCE(zone_name, ''), COALESCE(borough, ''),
	centroid_lat, centroid_lon, COALESCE(shapefile_id, '')`

// Create inserts with ON CONFLICT DO NOTHING, mirroring VendorRepo.Create.
func (r *pgZoneRepo) Create(ctx context.Context, z domain.Zone) (domain.Zone, error) {
	const q = `
		INSERT INTO zones (zone_name, borough, centroid_lat, centroid_lon, shapefile_id)
		VALUES (@zone_name, @borough, @centroid_lat, @centroid_lon, @shapefile_id)
		ON CONFLICT (shapefile_id) DO NOTHING
		RETURNING ` + zoneColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"zone_name":    z.ZoneName,
		"borough":      z.Borough,
		"centroid_lat": z.CentroidLat,
		"centroid_lon": z.CentroidLon,
		"shapefile_id": z.ShapefileID,
	})
	result, err := scanZone(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Zone{}, fmt.Errorf("repo.ZoneRepo.Create: %w", domain.ErrConflict)
		}
		return domain.Zone{}, fmt.Errorf("repo.ZoneRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

// GetByShapefileID retrieves a zone by its resolution key.
func (r *pgZoneRepo) GetByShapefileID(ctx context.Context, key string) (domain.Zone, error) {
	const q = `SELECT ` + zoneColumns + ` FROM zones WHERE shapefile_id = @key`

	result, err := scanZone(r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}))
	if err != nil {
		return domain.Zone{}, fmt.Errorf("repo.ZoneRepo.GetByShapefileID: %w", err)
	}
	return result, nil
}

// ListByShapefileIDs fetches several zones by key in one round trip.
func (r *pgZoneRepo) ListByShapefileIDs(ctx context.Context, keys []string) ([]domain.Zone, error) {
	const q = `SELECT ` + zoneColumns + ` FROM zones WHERE shapefile_id = ANY(@keys)`

	return r.list(ctx, "repo.ZoneRepo.ListByShapefileIDs", q, pgx.NamedArgs{"keys": keys})
}

// GetByID retrieves a zone by zone_id.
func (r *pgZoneRepo) GetByID(ctx context.Context, id int32) (domain.Zone, error) {
	const q = `SELECT ` + zoneColumns + ` FROM zones WHERE zone_id = @id`

	result, err := scanZone(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Zone{}, fmt.Errorf("repo.ZoneRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns every zone ordered by id.
func (r *pgZoneRepo) List(ctx context.Context) ([]domain.Zone, error) {
	const q = `SELECT ` + zoneColumns + ` FROM zones ORDER BY zone_id`

	return r.list(ctx, "repo.ZoneRepo.List", q, pgx.NamedArgs{})
}

func (r *pgZoneRepo) list(ctx context.Context, op, q string, args pgx.NamedArgs) ([]domain.Zone, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	zones := []domain.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return zones, nil
}

// Delete removes a zone by primary key. fk_pickup_zone and fk_dropoff_zone
// null the references on trips.
func (r *pgZoneRepo) Delete(ctx context.Context, id int32) error {
	const q = `DELETE FROM zones WHERE zone_id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.ZoneRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ZoneRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanZone maps a single database row into a domain.Zone.
func scanZone(s scanner) (domain.Zone, error) {
	var z domain.Zone
	err := s.Scan(&z.ZoneID, &z.ZoneName, &z.Borough, &z.CentroidLat, &z.CentroidLon, &z.ShapefileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Zone{}, domain.ErrNotFound
		}
		return domain.Zone{}, err
	}
	return z, nil
}
