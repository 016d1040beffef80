package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                    { return nil }
func (nopStmt) NumInput() int                                   { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func withTestDriver(t *testing.T) {
	t.Helper()
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
	prev := openDB
	openDB = func(cfg *pgx.ConnConfig) (*sql.DB, error) {
		opened = cfg
		return sql.Open("dbtest", cfg.ConnString())
	}
	t.Cleanup(func() { openDB = prev })
}

var opened *pgx.ConnConfig

func TestConnectRejectsEmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "  ", DefaultServerOptions())
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestConnectRejectsMalformedURL(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://cv@localhost:notaport/db", DefaultServerOptions())
	if err == nil || !strings.Contains(err.Error(), "parse DATABASE_URL") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestConnectWrapsOpenError(t *testing.T) {
	prev := openDB
	openDB = func(*pgx.ConnConfig) (*sql.DB, error) {
		return nil, driver.ErrBadConn
	}
	t.Cleanup(func() { openDB = prev })

	_, err := Connect(context.Background(), "postgres://x", DefaultServerOptions())
	if !errors.Is(err, driver.ErrBadConn) {
		t.Fatalf("expected wrapped ErrBadConn, got %v", err)
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	withTestDriver(t)

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, err := Connect(context.Background(), "postgres://cv@localhost:5432/smartcv", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if opened.RuntimeParams["application_name"] != ApplicationName {
		t.Fatalf("expected application_name %q, got %q", ApplicationName, opened.RuntimeParams["application_name"])
	}
	if opened.Database != "smartcv" {
		t.Fatalf("expected database smartcv, got %q", opened.Database)
	}

	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
}

func TestOptionsFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("DB_PING_TIMEOUT", "soon")

	defaults := DefaultMigrateOptions()
	opts := OptionsFromEnv(defaults)
	if opts.MaxOpenConns != defaults.MaxOpenConns {
		t.Fatalf("expected default MaxOpenConns, got %d", opts.MaxOpenConns)
	}
	if opts.PingTimeout != defaults.PingTimeout {
		t.Fatalf("expected default PingTimeout, got %s", opts.PingTimeout)
	}
}

func TestMigrationHelpersRejectNilDB(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("nil db should disable migrations, got %v", err)
	}
	if err := RollbackMigration(context.Background(), nil); !errors.Is(err, errNilDB) {
		t.Fatalf("expected errNilDB, got %v", err)
	}
	if _, err := SchemaVersion(nil); !errors.Is(err, errNilDB) {
		t.Fatalf("expected errNilDB, got %v", err)
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected ledger migrations, got %d files", len(entries))
	}
}
