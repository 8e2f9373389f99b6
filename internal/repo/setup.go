package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// SchemaRelations lists every table and view the migrations create.
var SchemaRelations = []string{"vendors", "zones", "trips", "trip_summary"}

// SetupRepo inspects the schema for the operator CLI.
type SetupRepo interface {
	// Verify reports which of SchemaRelations exist and, when all do, the
	// row counts of trips, vendors and zones.
	Verify(ctx context.Context) (domain.SetupStatus, error)
}

type pgSetupRepo struct {
	db db
}

// NewSetupRepo constructs a SetupRepo backed by the provided db connection.
func NewSetupRepo(db db) SetupRepo {
	return &pgSetupRepo{db: db}
}

func (r *pgSetupRepo) Verify(ctx context.Context) (domain.SetupStatus, error) {
	// information_schema.tables lists views as well as base tables.
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY(@names)`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"names": SchemaRelations})
	if err != nil {
		return domain.SetupStatus{}, fmt.Errorf("repo.SetupRepo.Verify: %w", err)
	}
	present, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return domain.SetupStatus{}, fmt.Errorf("repo.SetupRepo.Verify: scan: %w", err)
	}
	found := make(map[string]bool, len(present))
	for _, name := range present {
		found[name] = true
	}

	var status domain.SetupStatus
	for _, name := range SchemaRelations {
		status.Tables = append(status.Tables, domain.TableStatus{Name: name, Present: found[name]})
	}
	if !status.Ready() {
		return status, nil
	}

	const counts = `
		SELECT
			(SELECT count(*) FROM trips),
			(SELECT count(*) FROM vendors),
			(SELECT count(*) FROM zones)`
	if err := r.db.QueryRow(ctx, counts).Scan(&status.Trips, &status.Vendors, &status.Zones); err != nil {
		return domain.SetupStatus{}, fmt.Errorf("repo.SetupRepo.Verify: count: %w", err)
	}
	return status, nil
}
