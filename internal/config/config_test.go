package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv unsets every variable Load consults so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{ConfigPathEnv, driverEnv, dsnEnv, nameEnv, userEnv,
		passwordEnv, hostEnv, portEnv, logLevelEnv, noColorEnv} {
		if old, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, old) })
		}
	}
}

// TestConfigConstants tests that the configuration constants are properly defined
func TestConfigConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{
			name:     "DefaultDatabaseName should be news",
			value:    DefaultDatabaseName,
			expected: "news",
		},
		{
			name:     "DefaultDatabaseUser should be postgres",
			value:    DefaultDatabaseUser,
			expected: "postgres",
		},
		{
			name:     "DefaultDriver should be postgres",
			value:    DefaultDriver,
			expected: "postgres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, tt.value)
			}
		})
	}
}

// useSocketDirs points the socket search at dirs for the duration of the test
func useSocketDirs(t *testing.T, dirs ...string) {
	t.Helper()
	old := socketDirs
	socketDirs = dirs
	t.Cleanup(func() { socketDirs = old })
}

// TestLoadDefaults tests that Load without a file returns the historical contract
func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	useSocketDirs(t, "/var/run/postgresql")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Database.DataSourceName(); got != "dbname=news user=postgres host=/var/run/postgresql sslmode=disable" {
		t.Errorf("DataSourceName() = %q", got)
	}
	if !cfg.Output.ColorEnabled() {
		t.Error("expected colors to be enabled by default")
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
}

// TestLoadFileAndEnv tests that the YAML file is merged and the environment wins over it
func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `database:
  driver: sqlite3
  name: fixtures
logging:
  level: debug
output:
  color: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("Driver = %q, want sqlite3", cfg.Database.Driver)
	}
	if got := cfg.Database.DataSourceName(); got != "fixtures.db" {
		t.Errorf("DataSourceName() = %q, want fixtures.db", got)
	}
	if cfg.Output.ColorEnabled() {
		t.Error("expected colors to be disabled by the file")
	}
	// untouched defaults survive the merge
	if cfg.Database.User != DefaultDatabaseUser {
		t.Errorf("User = %q, want %q", cfg.Database.User, DefaultDatabaseUser)
	}

	t.Setenv(nameEnv, "other")
	t.Setenv(logLevelEnv, "error")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Database.DataSourceName(); got != "other.db" {
		t.Errorf("DataSourceName() = %q, want other.db", got)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error", cfg.Logging.Level)
	}
}

// TestLoadErrors tests the failure modes of Load
func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	badYAML := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("database: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	badDriver := filepath.Join(dir, "driver.yaml")
	if err := os.WriteFile(badDriver, []byte("database:\n  driver: oracle\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		errMsg string
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.yaml"), errMsg: "failed to read config file"},
		{name: "invalid yaml", path: badYAML, errMsg: "failed to parse config file"},
		{name: "unknown driver", path: badDriver, errMsg: "unsupported database driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
			}
		})
	}

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv(portEnv, "fifty")
		if _, err := Load(""); err == nil || !strings.Contains(err.Error(), portEnv) {
			t.Errorf("expected port error, got %v", err)
		}
	})
}

// TestDataSourceName tests DSN derivation for each driver
func TestDataSourceName(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			db:   DatabaseConfig{Driver: "postgres", DSN: "postgres://u@h/news", Name: "ignored"},
			want: "postgres://u@h/news",
		},
		{
			name: "pgx with host, port and password",
			db:   DatabaseConfig{Driver: "pgx", Name: "news", User: "vagrant", Password: "p w", Host: "db", Port: 5433},
			want: "dbname=news user=vagrant password='p w' host=db port=5433",
		},
		{
			name: "sqlite path with extension",
			db:   DatabaseConfig{Driver: "sqlite3", Name: "/tmp/news.sqlite"},
			want: "/tmp/news.sqlite",
		},
		{
			name: "sqlite in-memory",
			db:   DatabaseConfig{Driver: "sqlite3", Name: ":memory:"},
			want: ":memory:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.db.DataSourceName(); got != tt.want {
				t.Errorf("DataSourceName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestDefaultHostIsLocalSocket tests that a missing host resolves to a socket directory
func TestDefaultHostIsLocalSocket(t *testing.T) {
	empty, withSocket := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(withSocket, ".s.PGSQL.5432"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		dirs []string
		db   DatabaseConfig
		want string
	}{
		{
			name: "first directory holding the socket",
			dirs: []string{empty, withSocket},
			db:   DatabaseConfig{Driver: "postgres", Name: "news", User: "postgres"},
			want: "dbname=news user=postgres host=" + withSocket,
		},
		{
			name: "socket file follows the port",
			dirs: []string{empty, withSocket},
			db:   DatabaseConfig{Driver: "pgx", Name: "news", Port: 5433},
			want: "dbname=news host=" + empty + " port=5433",
		},
		{
			name: "no socket found",
			dirs: []string{empty},
			db:   DatabaseConfig{Driver: "postgres", Name: "news"},
			want: "dbname=news host=" + empty,
		},
		{
			name: "explicit host is kept",
			dirs: []string{withSocket},
			db:   DatabaseConfig{Driver: "postgres", Name: "news", Host: "localhost"},
			want: "dbname=news host=localhost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useSocketDirs(t, tt.dirs...)
			got := tt.db.DataSourceName()
			if got != tt.want {
				t.Errorf("DataSourceName() = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "host=/") && strings.Contains(got, "localhost") {
				t.Errorf("DataSourceName() = %q mixes socket and TCP hosts", got)
			}
		})
	}
}

// TestNoColorEnv tests that NO_COLOR disables colors regardless of value
func TestNoColorEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(noColorEnv, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.ColorEnabled() {
		t.Error("expected NO_COLOR to disable colors")
	}
}
