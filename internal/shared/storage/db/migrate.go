package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"smartcv-backend/internal/shared/telemetry"
)

// Ledger schema, applied in order by goose.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

var errNilDB = errors.New("database is nil")

// gooseLogger routes goose progress lines into the structured log.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	telemetry.Info("db.migrate", map[string]any{"detail": strings.TrimSpace(fmt.Sprintf(format, v...))})
}

func (gooseLogger) Fatalf(format string, v ...any) {
	// goose only calls Fatalf from its own CLI helpers, never from the
	// functions used here
	telemetry.Error("db.migrate", map[string]any{"detail": strings.TrimSpace(fmt.Sprintf(format, v...))})
}

func prepareGoose() error {
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{})
	return goose.SetDialect("postgres")
}

// RunMigrations brings the ledger schema up to date. A nil database means
// the ledger is disabled and nothing happens.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, database, migrationsDir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// RollbackMigration reverts the most recent ledger migration.
func RollbackMigration(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return fmt.Errorf("rollback: %w", errNilDB)
	}
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, database, migrationsDir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// SchemaVersion reports the currently applied migration version.
func SchemaVersion(database *sql.DB) (int64, error) {
	if database == nil {
		return 0, fmt.Errorf("schema version: %w", errNilDB)
	}
	if err := prepareGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(database)
}
