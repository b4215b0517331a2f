package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB wraps sql.DB together with the driver it was opened with.
type DB struct {
	Client *sql.DB
	Driver string
}

// NewDB opens a Postgres (pgx) or SQLite connection with sane defaults and
// pings it.
func NewDB(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	d := &DB{Client: db, Driver: driver}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return d, fmt.Errorf("ping db: %w", err)
	}
	return d, nil
}

// Migrate creates the attendance tables when missing.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Client.ExecContext(ctx, Schema(d.Driver)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Schema returns the DDL for the driver. Timestamps are stored as
// "YYYY-MM-DD HH:MM:SS" text so they sort chronologically.
func Schema(driver string) string {
	id := "SERIAL PRIMARY KEY"
	if driver == DriverSQLite {
		id = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS people (
		id               %[1]s,
		given_name       TEXT,
		paternal_surname TEXT,
		maternal_surname TEXT,
		document         TEXT
	);

	CREATE TABLE IF NOT EXISTS users (
		id         %[1]s,
		person_id  INTEGER NOT NULL REFERENCES people(id),
		created_at TEXT
	);

	CREATE TABLE IF NOT EXISTS movements (
		id           %[1]s,
		description  TEXT NOT NULL,
		abbreviation TEXT,
		status       TEXT NOT NULL DEFAULT 'ACTIVO'
	);

	CREATE TABLE IF NOT EXISTS attendance_events (
		id          %[1]s,
		person_id   INTEGER NOT NULL REFERENCES people(id),
		movement_id INTEGER REFERENCES movements(id),
		occurred_at TEXT,
		ip_address  TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_person ON attendance_events(person_id);
	CREATE INDEX IF NOT EXISTS idx_events_time   ON attendance_events(occurred_at);
	`, id)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
