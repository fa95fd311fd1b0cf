package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/phrazzld/taskhub/internal/config"
	"github.com/phrazzld/taskhub/internal/platform/postgres"
)

const (
	// MigrationTableName is the goose version table.
	MigrationTableName = "schema_migrations"

	// migrationsDir is the migrations directory inside the embedded FS and,
	// for -migrate create, relative to the repository root.
	migrationsDir = "migrations"

	migrationsSourceDir = "internal/platform/postgres/migrations"
)

// slogGooseLogger routes goose output through slog.
type slogGooseLogger struct{}

func (*slogGooseLogger) Printf(format string, v ...any) {
	slog.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

// Fatalf logs at error level. goose treats it as fatal but the command
// error is returned by runMigrations instead of exiting here.
func (*slogGooseLogger) Fatalf(format string, v ...any) {
	slog.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

// maskDatabaseURL hides the password of a database URL for logging.
func maskDatabaseURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return u.String()
}

// runMigrations executes a goose command against the configured database.
// Migrations are read from the binary; create writes a new SQL file into the
// source tree.
func runMigrations(cfg *config.Config, command, name string) error {
	log := slog.Default().With(
		"correlation_id", uuid.NewString(),
		"component", "migrations",
		"command", command,
	)
	start := time.Now()

	goose.SetLogger(&slogGooseLogger{})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if command == "create" {
		if name == "" {
			return fmt.Errorf("migration name is required for 'create' command")
		}
		goose.SetBaseFS(nil)
		if err := goose.Create(nil, migrationsSourceDir, name, "sql"); err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		return nil
	}

	log.Info("using database", "url", maskDatabaseURL(cfg.Database.URL))
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(postgres.Migrations)
	defer goose.SetBaseFS(nil)

	switch command {
	case "up":
		err = goose.Up(db, migrationsDir)
	case "down":
		err = goose.Down(db, migrationsDir)
	case "status":
		err = goose.Status(db, migrationsDir)
	case "version":
		err = goose.Version(db, migrationsDir)
	default:
		return fmt.Errorf("unknown migration command: %s (expected up, down, status, version or create)", command)
	}
	if err != nil {
		log.Error("migration command failed", "error", err)
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}

	log.Info("migration command completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
