// Package database provides connection handling and fixture storage for the news database
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"news-log-analyzer/internal/config"
	"news-log-analyzer/internal/models"
)

// insertBatchSize bounds the rows carried by one multi-row INSERT statement
const insertBatchSize = 500

// DB interface defines database operations for easier testing and extensibility
type DB interface {
	Close() error
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Dialect() Dialect
}

// conn implements the DB interface on top of database/sql
type conn struct {
	*sql.DB
	dialect Dialect
}

func (c *conn) Dialect() Dialect { return c.dialect }

// Open creates a new connection to the news database described by cfg.
// The pool is pinned to a single connection: every report acquires its own
// DB, runs one statement and closes it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(dialect.DriverName(), cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &conn{DB: sqlDB, dialect: dialect}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// CreateSchema creates the authors, articles and log tables if they don't exist
func CreateSchema(ctx context.Context, db DB) error {
	for _, stmt := range db.Dialect().SchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// Fixture is a complete set of rows to import into the news tables
type Fixture struct {
	Authors  []models.Author
	Articles []models.Article
	Log      []models.LogEntry
}

// LoadFixture inserts all fixture rows in a single transaction.
// If appendMode is false, existing rows are cleared first.
// It returns the number of rows inserted per table.
func LoadFixture(ctx context.Context, db DB, fx Fixture, appendMode bool) (map[string]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if !appendMode {
		for _, table := range []string{"log", "articles", "authors"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return nil, fmt.Errorf("failed to clear existing %s: %w", table, err)
			}
		}
	}

	ph := db.Dialect().Placeholder()
	counts := make(map[string]int64, 3)

	authorRows := make([][]interface{}, 0, len(fx.Authors))
	for _, a := range fx.Authors {
		authorRows = append(authorRows, []interface{}{a.ID, a.Name, nullString(a.Bio)})
	}
	if counts["authors"], err = insertRows(ctx, tx, ph, "authors",
		[]string{"id", "name", "bio"}, authorRows); err != nil {
		return nil, err
	}

	articleRows := make([][]interface{}, 0, len(fx.Articles))
	for _, a := range fx.Articles {
		articleRows = append(articleRows, []interface{}{
			a.ID, a.AuthorID, a.Title, a.Slug, nullString(a.Lead), nullString(a.Body), nullTime(a.Time),
		})
	}
	if counts["articles"], err = insertRows(ctx, tx, ph, "articles",
		[]string{"id", "author", "title", "slug", "lead", "body", "time"}, articleRows); err != nil {
		return nil, err
	}

	logRows := make([][]interface{}, 0, len(fx.Log))
	for _, l := range fx.Log {
		logRows = append(logRows, []interface{}{
			l.Path, nullString(l.IP), l.Method, l.Status, l.Time.UTC(),
		})
	}
	if counts["log"], err = insertRows(ctx, tx, ph, "log",
		[]string{"path", "ip", "method", "status", "time"}, logRows); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit fixture: %w", err)
	}

	return counts, nil
}

// insertRows writes rows into table using multi-row INSERT statements
func insertRows(ctx context.Context, tx *sql.Tx, ph sq.PlaceholderFormat, table string, columns []string, rows [][]interface{}) (int64, error) {
	var inserted int64
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		builder := sq.Insert(table).Columns(columns...).PlaceholderFormat(ph)
		for _, row := range rows[start:end] {
			builder = builder.Values(row...)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return inserted, fmt.Errorf("failed to build insert into %s: %w", table, err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return inserted, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		inserted += int64(end - start)
	}
	return inserted, nil
}

// ExecuteQuery executes a SQL query and returns results as a slice of maps
// alongside the column names in select order
func ExecuteQuery(ctx context.Context, db DB, query string) ([]string, []map[string]interface{}, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			// Convert byte slices to strings for display
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[column] = val
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return columns, results, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
