// Package storage provides relational persistence for carts, leads,
// conversation history and booked appointments.
//
// Two engines are supported behind database/sql: SQLite (modernc, default)
// and Postgres (pgx stdlib driver). Queries are written with "?" placeholders
// and rebound to "$n" for Postgres.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver for database/sql
	_ "modernc.org/sqlite"             // SQLite driver for database/sql

	"github.com/hotboat/whatsapp-bot/internal/config"
)

// Supported drivers.
const (
	DriverSQLite   = config.DriverSQLite
	DriverPostgres = config.DriverPostgres
)

// DB wraps the database connection pool
type DB struct {
	conn   *sql.DB
	driver string
	path   string
}

// Options selects and locates the database.
type Options struct {
	Driver string // DriverSQLite or DriverPostgres
	Path   string // SQLite file path or ":memory:"
	URL    string // Postgres DSN
}

// Open connects with the configured driver and brings the schema up to date.
func Open(ctx context.Context, opts Options) (*DB, error) {
	switch opts.Driver {
	case DriverPostgres:
		return NewPostgres(ctx, opts.URL)
	case DriverSQLite, "":
		return New(ctx, opts.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// New opens a SQLite database and initializes the schema
func New(ctx context.Context, dbPath string) (*DB, error) {
	// Ensure directory exists (skip for in-memory database)
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; keep exactly one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}
	conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=" + strconv.FormatInt(config.DatabaseBusyTimeout.Milliseconds(), 10),
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{conn: conn, driver: DriverSQLite, path: dbPath}, nil
}

// NewPostgres opens a Postgres database and applies the embedded migrations.
func NewPostgres(ctx context.Context, url string) (*DB, error) {
	conn, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &DB{conn: conn, driver: DriverPostgres}, nil
}

// NewTestDB creates an in-memory SQLite database for testing.
func NewTestDB() (*DB, error) {
	return New(context.Background(), ":memory:")
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying *sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the engine in use.
func (db *DB) Driver() string {
	return db.driver
}

// Ping verifies the database is reachable. Used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.rebind(query), args...)
}

// rebind rewrites "?" placeholders to "$1", "$2", ... for Postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	return Rebind(query)
}

// Rebind converts "?" placeholders to Postgres ordinal form. Queries in
// this package never contain a literal question mark.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// warnSlow logs operations slower than config.DatabaseSlowQuery.
func warnSlow(ctx context.Context, operation string, start time.Time, attrs ...any) {
	if d := time.Since(start); d > config.DatabaseSlowQuery {
		args := append([]any{"operation", operation, "duration_ms", d.Milliseconds()}, attrs...)
		slog.WarnContext(ctx, "slow database operation", args...)
	}
}
