package testdb

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/platform/postgres"
)

// TestTimeout bounds the connection check of Open.
const TestTimeout = 5 * time.Second

var migrateOnce sync.Once

// DatabaseURL returns the integration database URL, preferring
// DATABASE_URL over TASKHUB_TEST_DB_URL.
func DatabaseURL() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	return os.Getenv("TASKHUB_TEST_DB_URL")
}

// Open connects to the integration database and migrates it to the latest
// version. The test is skipped when no database is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "database is not reachable")

	var migrateErr error
	migrateOnce.Do(func() {
		migrateErr = migrate(db)
	})
	require.NoError(t, migrateErr, "failed to run migrations")
	return db
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(postgres.Migrations)
	defer goose.SetBaseFS(nil)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
