package repo_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/pkordes/taxi-analytics/backend/migrations"
	"github.com/pkordes/taxi-analytics/backend/testutil"
)

// TestMain brings the shared test database up to the latest schema once per
// binary. Tests then isolate themselves in a rolled-back transaction
// (newTestTx). Without TEST_DATABASE_URL every test here skips itself.
func TestMain(m *testing.M) {
	if dsn := os.Getenv(testutil.DSNEnv); dsn != "" {
		if err := migrateUp(dsn); err != nil {
			fmt.Fprintf(os.Stderr, "repo tests: %v\n", err)
			os.Exit(1)
		}
	}
	os.Exit(m.Run())
}

func migrateUp(dsn string) error {
	db := testutil.MustOpenSQLDB(dsn)
	defer db.Close()

	provider, err := migrations.NewProvider(db)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
