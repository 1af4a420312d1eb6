// Package config provides shared configuration constants and settings
// for the news log analyzer application
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDatabaseName is the database the reports run against
	// when neither the config file nor the environment names one
	DefaultDatabaseName = "news"

	// DefaultDatabaseUser is the role used to connect, with no password
	DefaultDatabaseUser = "postgres"

	// DefaultDriver is the database/sql driver used when none is configured
	DefaultDriver = "postgres"

	// DefaultLogLevel keeps diagnostics quiet unless something goes wrong
	DefaultLogLevel = "warn"

	// ConfigFileDescription is the help text description for the config flag
	ConfigFileDescription = "Path to YAML configuration file"

	// DriverDescription is the help text description for the driver flag
	DriverDescription = "Database driver: postgres, pgx or sqlite3"

	// DSNDescription is the help text description for the dsn flag
	DSNDescription = "Data source name (overrides database name/user settings)"

	// NoColorDescription is the help text description for the no-color flag
	NoColorDescription = "Disable ANSI colors in report output"

	// ReloadViewsDescription is the help text description for the reloadviews flag
	ReloadViewsDescription = "Create anew the views required for this program"

	// ErrorRateThreshold is the daily error percentage a day must exceed to be reported
	ErrorRateThreshold = 1.0

	// TopArticlesLimit bounds the top articles report
	TopArticlesLimit = 3
)

// Environment variables consulted by Load, in addition to the config file
const (
	ConfigPathEnv = "NEWS_LOG_ANALYZER_CONFIG"
	driverEnv     = "NEWSDB_DRIVER"
	dsnEnv        = "NEWSDB_DSN"
	nameEnv       = "NEWSDB_NAME"
	userEnv       = "NEWSDB_USER"
	passwordEnv   = "NEWSDB_PASSWORD"
	hostEnv       = "NEWSDB_HOST"
	portEnv       = "NEWSDB_PORT"
	logLevelEnv   = "NEWS_LOG_LEVEL"
	noColorEnv    = "NO_COLOR"
)

// defaultPostgresPort names the server socket file when no port is configured
const defaultPostgresPort = 5432

// socketDirs are searched in order for a local Postgres server socket when no
// host is configured. Connecting through the socket allows peer authentication.
var socketDirs = []string{"/var/run/postgresql", "/tmp"}

// supportedDrivers lists the database/sql driver names the application registers
var supportedDrivers = []string{"postgres", "pgx", "sqlite3"}

// Config holds every setting required across the application
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Output   OutputConfig   `yaml:"output"`
}

// DatabaseConfig describes how to reach the news database
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
}

// LoggingConfig controls the diagnostic logger and its optional rolling file
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// OutputConfig controls how reports are rendered on the terminal
type OutputConfig struct {
	Color *bool `yaml:"color"`
}

// ColorEnabled reports whether ANSI colors should be written
func (o OutputConfig) ColorEnabled() bool {
	return o.Color == nil || *o.Color
}

// Default returns the configuration used when nothing is overridden.
// It mirrors the historical contract: local database "news", user "postgres", no password.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:  DefaultDriver,
			Name:    DefaultDatabaseName,
			User:    DefaultDatabaseUser,
			SSLMode: "disable",
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load reads YAML configuration from path (or the file named by
// NEWS_LOG_ANALYZER_CONFIG when path is empty) and applies environment overrides.
// An empty path with no environment variable yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg = merge(cfg, fileCfg)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration names a registered driver
func (c Config) Validate() error {
	for _, d := range supportedDrivers {
		if c.Database.Driver == d {
			return nil
		}
	}
	return fmt.Errorf("unsupported database driver %q (expected one of %s)",
		c.Database.Driver, strings.Join(supportedDrivers, ", "))
}

// DataSourceName returns the DSN to hand to sql.Open.
// An explicit DSN wins; otherwise one is derived from the individual fields.
// Postgres without a host connects over the local Unix socket, not TCP.
func (d DatabaseConfig) DataSourceName() string {
	if d.DSN != "" {
		return d.DSN
	}

	if d.Driver == "sqlite3" {
		name := d.Name
		if name == "" {
			name = DefaultDatabaseName
		}
		if !strings.Contains(name, ".") && name != ":memory:" {
			name += ".db"
		}
		return name
	}

	// key=value form is understood by both lib/pq and pgx
	parts := []string{"dbname=" + quoteValue(d.Name)}
	if d.User != "" {
		parts = append(parts, "user="+quoteValue(d.User))
	}
	if d.Password != "" {
		parts = append(parts, "password="+quoteValue(d.Password))
	}
	host := d.Host
	if host == "" {
		host = localSocketDir(d.Port)
	}
	parts = append(parts, "host="+quoteValue(host))
	if d.Port != 0 {
		parts = append(parts, "port="+strconv.Itoa(d.Port))
	}
	if d.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteValue(d.SSLMode))
	}
	return strings.Join(parts, " ")
}

// localSocketDir returns the first socket directory holding the server socket
// for port, falling back to the first candidate
func localSocketDir(port int) string {
	if port == 0 {
		port = defaultPostgresPort
	}
	socket := ".s.PGSQL." + strconv.Itoa(port)
	for _, dir := range socketDirs {
		if _, err := os.Stat(filepath.Join(dir, socket)); err == nil {
			return dir
		}
	}
	return socketDirs[0]
}

// quoteValue quotes a libpq connection-string value when it contains spaces or quotes
func quoteValue(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(driverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(dsnEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(nameEnv); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv(userEnv); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv(passwordEnv); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(hostEnv); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv(portEnv); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", portEnv, v, err)
		}
		c.Database.Port = port
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if _, ok := os.LookupEnv(noColorEnv); ok {
		off := false
		c.Output.Color = &off
	}
	return nil
}

func merge(base, override Config) Config {
	db := override.Database
	if db.Driver != "" {
		base.Database.Driver = db.Driver
	}
	if db.DSN != "" {
		base.Database.DSN = db.DSN
	}
	if db.Name != "" {
		base.Database.Name = db.Name
	}
	if db.User != "" {
		base.Database.User = db.User
	}
	if db.Password != "" {
		base.Database.Password = db.Password
	}
	if db.Host != "" {
		base.Database.Host = db.Host
	}
	if db.Port != 0 {
		base.Database.Port = db.Port
	}
	if db.SSLMode != "" {
		base.Database.SSLMode = db.SSLMode
	}

	lg := override.Logging
	if lg.Level != "" {
		base.Logging.Level = lg.Level
	}
	if lg.Path != "" {
		base.Logging.Path = lg.Path
	}
	if lg.MaxSizeMB != 0 {
		base.Logging.MaxSizeMB = lg.MaxSizeMB
	}
	if lg.MaxBackups != 0 {
		base.Logging.MaxBackups = lg.MaxBackups
	}
	if lg.MaxAgeDays != 0 {
		base.Logging.MaxAgeDays = lg.MaxAgeDays
	}
	if lg.Compress {
		base.Logging.Compress = true
	}

	if override.Output.Color != nil {
		base.Output.Color = override.Output.Color
	}

	return base
}
