package database

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// undefinedTableCode is the SQLSTATE Postgres reports for a missing table or view
const undefinedTableCode = "42P01"

// Dialect captures the handful of places where Postgres and SQLite disagree.
// Report SQL is otherwise written once and shared by every backend.
type Dialect interface {
	// DriverName is the name registered with database/sql
	DriverName() string

	// Placeholder is the bind-parameter style for squirrel builders
	Placeholder() sq.PlaceholderFormat

	// TruncateToDay returns an expression yielding the calendar day of a timestamp column
	TruncateToDay(column string) string

	// IsUndefinedTable reports whether err means a referenced table or view does not exist.
	// Drivers that cannot tell always return false; ViewExists covers them.
	IsUndefinedTable(err error) bool

	// ViewExists builds a query returning the number of views named name
	ViewExists(name string) sq.SelectBuilder

	// SchemaStatements returns the DDL that creates the news tables when missing
	SchemaStatements() []string
}

// DialectFor returns the dialect for a database/sql driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return postgresDialect{}, nil
	case "pgx":
		return pgxDialect{}, nil
	case "sqlite3":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// postgresDialect targets Postgres through lib/pq
type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (postgresDialect) TruncateToDay(column string) string {
	return fmt.Sprintf("CAST(date_trunc('day', %s) AS date)", column)
}

func (postgresDialect) IsUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == undefinedTableCode
	}
	return false
}

func (postgresDialect) ViewExists(name string) sq.SelectBuilder {
	return sq.Select("count(*)").
		From("information_schema.views").
		Where(sq.Eq{"table_name": name}).
		Where("table_schema = current_schema()").
		PlaceholderFormat(sq.Dollar)
}

func (postgresDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS authors (
			name text NOT NULL,
			bio text,
			id serial PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			author integer NOT NULL REFERENCES authors(id),
			title text NOT NULL,
			slug text UNIQUE NOT NULL,
			lead text,
			body text,
			time timestamp with time zone DEFAULT now(),
			id serial PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS log (
			path text,
			ip inet,
			method text,
			status text,
			time timestamp with time zone DEFAULT now(),
			id serial PRIMARY KEY
		)`,
		`CREATE INDEX IF NOT EXISTS idx_log_time ON log(time)`,
	}
}

// pgxDialect targets Postgres through the pgx stdlib adapter.
// Only error classification differs from lib/pq.
type pgxDialect struct {
	postgresDialect
}

func (pgxDialect) DriverName() string { return "pgx" }

func (pgxDialect) IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTableCode
	}
	return false
}

// sqliteDialect targets SQLite through mattn/go-sqlite3
type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite3" }

func (sqliteDialect) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (sqliteDialect) TruncateToDay(column string) string {
	return fmt.Sprintf("date(%s)", column)
}

// IsUndefinedTable always returns false: SQLite reports a missing relation with the
// generic SQLITE_ERROR code, so callers probe the catalog with ViewExists.
func (sqliteDialect) IsUndefinedTable(error) bool { return false }

func (sqliteDialect) ViewExists(name string) sq.SelectBuilder {
	return sq.Select("count(*)").
		From("sqlite_master").
		Where(sq.Eq{"type": "view", "name": name})
}

func (sqliteDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS authors (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			bio TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY,
			author INTEGER NOT NULL REFERENCES authors(id),
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			lead TEXT,
			body TEXT,
			time DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT,
			ip TEXT,
			method TEXT,
			status TEXT,
			time DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_log_time ON log(time)`,
	}
}
