package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// openTestDB connects to TEST_DATABASE_URL and applies migrations once per run.
// Tests are skipped when no database is configured.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	migrateOnce.Do(func() {
		migrateErr = database.Migrate(dsn)
	})
	require.NoError(t, migrateErr)

	db, err := database.NewPostgreSQLDB(dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

// newOrganization returns a fresh organization ID and removes its rows afterwards.
func newOrganization(t *testing.T, db *database.DB) string {
	t.Helper()
	orgID := uuid.NewString()
	t.Cleanup(func() {
		require.NoError(t, truncateOrganization(context.Background(), db, orgID))
	})
	return orgID
}

func truncateOrganization(ctx context.Context, db *database.DB, orgID string) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"monthly_report_versions",
		"monthly_reports",
		"shifts",
		"holiday_rules",
		"employee_pay_overrides",
		"pay_policies",
		"employees",
	}

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE organization_id = $1", table), orgID); err != nil {
			return fmt.Errorf("failed to clean table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

func createEmployee(t *testing.T, db *database.DB, orgID, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(context.Background(),
		`INSERT INTO employees (id, organization_id, full_name) VALUES ($1, $2, $3)`, id, orgID, name)
	require.NoError(t, err)
	return id
}
