package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// TestDialectFor tests driver name lookup
func TestDialectFor(t *testing.T) {
	for _, driver := range []string{"postgres", "pgx", "sqlite3"} {
		d, err := DialectFor(driver)
		if err != nil {
			t.Fatalf("DialectFor(%q) error = %v", driver, err)
		}
		if d.DriverName() != driver {
			t.Errorf("DialectFor(%q).DriverName() = %q", driver, d.DriverName())
		}
	}

	if _, err := DialectFor("mysql"); err == nil {
		t.Error("expected an error for mysql")
	}
}

// TestIsUndefinedTable tests driver error classification
func TestIsUndefinedTable(t *testing.T) {
	pqMissing := &pq.Error{Code: "42P01", Message: `relation "requests_per_day" does not exist`}
	pqDenied := &pq.Error{Code: "42501", Message: "permission denied for view requests_per_day"}
	pgxMissing := &pgconn.PgError{Code: "42P01", Message: `relation "requests_per_day" does not exist`}
	sqliteMissing := sqlite3.Error{Code: sqlite3.ErrError}

	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{name: "pq undefined table", dialect: postgresDialect{}, err: pqMissing, want: true},
		{name: "pq wrapped", dialect: postgresDialect{}, err: fmt.Errorf("query: %w", pqMissing), want: true},
		{name: "pq other code", dialect: postgresDialect{}, err: pqDenied, want: false},
		{name: "pq ignores pgx errors", dialect: postgresDialect{}, err: pgxMissing, want: false},
		{name: "pgx undefined table", dialect: pgxDialect{}, err: pgxMissing, want: true},
		{name: "pgx ignores pq errors", dialect: pgxDialect{}, err: pqMissing, want: false},
		{name: "plain error", dialect: postgresDialect{}, err: errors.New(`relation "requests_per_day" does not exist`), want: false},
		{name: "nil", dialect: pgxDialect{}, err: nil, want: false},
		{name: "sqlite never classifies", dialect: sqliteDialect{}, err: sqliteMissing, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsUndefinedTable(tt.err); got != tt.want {
				t.Errorf("IsUndefinedTable() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestTruncateToDay tests the per-dialect day expressions
func TestTruncateToDay(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{dialect: postgresDialect{}, want: "CAST(date_trunc('day', lo.time) AS date)"},
		{dialect: pgxDialect{}, want: "CAST(date_trunc('day', lo.time) AS date)"},
		{dialect: sqliteDialect{}, want: "date(lo.time)"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.DriverName(), func(t *testing.T) {
			if got := tt.dialect.TruncateToDay("lo.time"); got != tt.want {
				t.Errorf("TruncateToDay() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestViewExists tests the catalog probes
func TestViewExists(t *testing.T) {
	query, args, err := postgresDialect{}.ViewExists("requests_per_day").ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(query, "information_schema.views") || !strings.Contains(query, "$1") {
		t.Errorf("unexpected postgres probe %q", query)
	}
	if len(args) != 1 || args[0] != "requests_per_day" {
		t.Errorf("unexpected args %v", args)
	}

	query, args, err = sqliteDialect{}.ViewExists("requests_per_day").ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(query, "sqlite_master") || strings.Contains(query, "$") {
		t.Errorf("unexpected sqlite probe %q", query)
	}
	if len(args) != 2 {
		t.Errorf("unexpected args %v", args)
	}
}
