package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/viper"

	"smartcv-backend/internal/shared/telemetry"
)

// ApplicationName tags ledger connections in pg_stat_activity.
const ApplicationName = "smartcv-backend"

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = func(cfg *pgx.ConnConfig) (*sql.DB, error) {
	return stdlib.OpenDB(*cfg), nil
}

// DefaultServerOptions returns defaults for the API process. The ledger only
// sees a handful of writes per checkout, so the pool stays small.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// OptionsFromEnv overrides defaults with DB_* env vars if present.
// Unparseable values are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	v := viper.New()
	v.AutomaticEnv()

	opts := defaults
	readInt(v, "DB_MAX_OPEN_CONNS", &opts.MaxOpenConns)
	readInt(v, "DB_MAX_IDLE_CONNS", &opts.MaxIdleConns)
	readDuration(v, "DB_CONN_MAX_LIFETIME", &opts.ConnMaxLifetime)
	readDuration(v, "DB_CONN_MAX_IDLE_TIME", &opts.ConnMaxIdleTime)
	readDuration(v, "DB_PING_TIMEOUT", &opts.PingTimeout)
	return opts
}

// Connect parses DATABASE_URL with pgx, opens a database/sql pool over the
// pgx driver and pings it.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	connCfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = map[string]string{}
	}
	if connCfg.RuntimeParams["application_name"] == "" {
		connCfg.RuntimeParams["application_name"] = ApplicationName
	}

	db, err := openDB(connCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, "db.init", connCfg)
	return db, nil
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 5
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 2
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, label string, cfg *pgx.ConnConfig) {
	stats := db.Stats()
	telemetry.Info(label, map[string]any{
		"host":     cfg.Host,
		"database": cfg.Database,
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"wait":     stats.WaitCount,
		"max_open": stats.MaxOpenConnections,
	})
}

func readInt(v *viper.Viper, key string, dst *int) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"key": key, "error": err})
		return
	}
	*dst = val
}

func readDuration(v *viper.Viper, key string, dst *time.Duration) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"key": key, "error": err})
		return
	}
	*dst = val
}
