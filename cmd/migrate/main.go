package main

// Apply or roll back the audit ledger migrations:
//   go run ./cmd/migrate [up|down|version]

import (
	"context"
	"os"

	"smartcv-backend/internal/shared/config"
	"smartcv-backend/internal/shared/storage/db"
	"smartcv-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat, cfg.Env)
	defer telemetry.Sync()
	ctx := context.Background()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch cmd {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	case "version":
		var v int64
		v, err = db.SchemaVersion(sqlDB)
		if err == nil {
			telemetry.Info("migrate.version", map[string]any{"version": v})
		}
	default:
		telemetry.Error("migrate.unknown_command", map[string]any{"command": cmd})
		os.Exit(2)
	}
	if err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": cmd, "error": err})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": cmd})
}
