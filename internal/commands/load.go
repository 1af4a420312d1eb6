package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"news-log-analyzer/internal/database"
	"news-log-analyzer/internal/parser"
)

// loadOptions are the flags of the load command
type loadOptions struct {
	authorsFile  string
	articlesFile string
	logFile      string
	appendMode   bool
}

// newLoadCommand creates the 'load' subcommand for importing CSV fixtures
// Usage: news-log-analyzer load --authors authors.csv --articles articles.csv --log log.csv [--append]
func newLoadCommand(opts *globalOptions) *cobra.Command {
	lo := &loadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load CSV fixtures into the news database",
		Long: `Create the authors, articles and log tables when missing and import CSV files into them.

Each file needs a header row naming its columns:
  authors:  id, name[, bio]
  articles: id, author, title, slug[, lead, body, time]
  log:      path, status, time[, ip, method]

Timestamps may be UNIX seconds, RFC3339 or the 'YYYY-MM-DD HH:MM:SS+TZ' form psql prints.

By default, loading replaces all existing rows in the three tables.
Use the --append flag to add rows without clearing them.

Example:
  news-log-analyzer load --driver sqlite3 --dsn news.db \
      --authors authors.csv --articles articles.csv --log log.csv
  news-log-analyzer --driver sqlite3 --dsn news.db --reloadviews`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadCommand(cmd, opts, lo)
		},
	}

	cmd.Flags().StringVar(&lo.authorsFile, "authors", "", "Path to authors CSV file")
	cmd.Flags().StringVar(&lo.articlesFile, "articles", "", "Path to articles CSV file")
	cmd.Flags().StringVar(&lo.logFile, "log", "", "Path to request log CSV file")
	cmd.Flags().BoolVar(&lo.appendMode, "append", false, "Append rows to existing tables (default: replace existing rows)")
	cmd.MarkFlagsOneRequired("authors", "articles", "log")

	return cmd
}

// runLoadCommand parses every given fixture and stores them in one transaction
func runLoadCommand(cmd *cobra.Command, opts *globalOptions, lo *loadOptions) error {
	// Validate input files exist before touching the database
	for _, file := range []string{lo.authorsFile, lo.articlesFile, lo.logFile} {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); os.IsNotExist(err) {
			return fmt.Errorf("CSV file does not exist: %s", file)
		}
	}

	env, err := opts.setup(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer env.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	var fx database.Fixture
	if lo.authorsFile != "" {
		if fx.Authors, err = parser.ParseAuthors(lo.authorsFile); err != nil {
			return fmt.Errorf("failed to parse authors: %w", err)
		}
	}
	if lo.articlesFile != "" {
		if fx.Articles, err = parser.ParseArticles(lo.articlesFile); err != nil {
			return fmt.Errorf("failed to parse articles: %w", err)
		}
	}
	if lo.logFile != "" {
		if fx.Log, err = parser.ParseLog(lo.logFile); err != nil {
			return fmt.Errorf("failed to parse log: %w", err)
		}
	}

	if lo.appendMode {
		env.out.Notice("Mode: Append to existing tables")
	} else {
		env.out.Notice("Mode: Replace existing data")
	}

	// Initialize database connection and create tables
	ctx := cmd.Context()
	db, err := database.Open(ctx, env.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.CreateSchema(ctx, db); err != nil {
		return err
	}

	counts, err := database.LoadFixture(ctx, db, fx, lo.appendMode)
	if err != nil {
		return fmt.Errorf("failed to load fixtures: %w", err)
	}

	env.logger.Info("fixtures loaded",
		zap.Int64("authors", counts["authors"]),
		zap.Int64("articles", counts["articles"]),
		zap.Int64("log", counts["log"]))
	env.out.Notice("Successfully loaded %d authors, %d articles and %d log entries",
		counts["authors"], counts["articles"], counts["log"])
	return nil
}
