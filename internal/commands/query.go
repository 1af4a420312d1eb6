package commands

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"news-log-analyzer/internal/database"
	"news-log-analyzer/internal/presenter"
)

var (
	lineCommentRegex  = regexp.MustCompile(`--.*`)
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// allowedPrefixes are the statements a read-only query may start with
var allowedPrefixes = []string{"select", "with", "explain", "table", "values"}

// allowedPragmas are SQLite PRAGMA statements that only read state
var allowedPragmas = []string{
	"pragma table_info(",
	"pragma index_list(",
	"pragma index_info(",
	"pragma foreign_key_list(",
	"pragma schema_version",
	"pragma user_version",
	"pragma database_list",
}

// forbiddenKeywords indicate writes, schema changes or transaction control
var forbiddenKeywords = []string{
	"insert", "update", "delete", "drop", "create", "alter",
	"truncate", "replace", "merge", "upsert", "grant", "revoke",
	"attach", "detach", "vacuum", "reindex", "copy",
	"begin", "commit", "rollback", "savepoint",
}

var forbiddenRegexes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(forbiddenKeywords))
	for _, keyword := range forbiddenKeywords {
		m[keyword] = regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	}
	return m
}()

// newQueryCommand creates the 'query' subcommand for ad-hoc read-only SQL
// Usage: news-log-analyzer query [--sql "SELECT ..."]
func newQueryCommand(opts *globalOptions) *cobra.Command {
	var sqlQuery string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Execute read-only SQL queries against the news database",
		Long: `Execute SQL queries against the news database.

You can either provide a query directly via the --sql flag or enter interactive mode
to execute multiple queries.

Only read-only queries are allowed. Write operations (INSERT, UPDATE, DELETE,
CREATE, DROP, etc.) are rejected; use --reloadviews to rebuild requests_per_day.

Example queries:
  # Requests per status code
  SELECT status, count(*) AS num FROM log GROUP BY status ORDER BY num DESC;

  # Daily summary produced by --reloadviews
  SELECT * FROM requests_per_day ORDER BY day;

Interactive mode:
  news-log-analyzer query

Direct query:
  news-log-analyzer query --sql "SELECT count(*) FROM log"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryCommand(cmd, opts, sqlQuery)
		},
	}

	cmd.Flags().StringVarP(&sqlQuery, "sql", "s", "", "SQL query to execute (if not provided, enters interactive mode)")

	return cmd
}

// runQueryCommand executes the query logic
func runQueryCommand(cmd *cobra.Command, opts *globalOptions, sqlQuery string) error {
	env, err := opts.setup(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer env.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	db, err := database.Open(cmd.Context(), env.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	q := &querySession{cmd: cmd, db: db, out: env.out}
	if sqlQuery != "" {
		return q.executeSingle(sqlQuery)
	}
	return q.interactive(cmd.InOrStdin())
}

// querySession runs validated queries over one open connection
type querySession struct {
	cmd *cobra.Command
	db  database.DB
	out *presenter.Presenter
}

// executeSingle runs a single SQL query and displays results
func (q *querySession) executeSingle(query string) error {
	if err := ValidateReadOnlyQuery(query); err != nil {
		return fmt.Errorf("query validation failed: %w", err)
	}

	columns, results, err := database.ExecuteQuery(q.cmd.Context(), q.db, query)
	if err != nil {
		return err
	}

	q.out.Table(columns, results)
	return nil
}

// interactive provides an interactive SQL prompt until EOF, "exit" or "quit"
func (q *querySession) interactive(in io.Reader) error {
	w := q.cmd.OutOrStdout()
	fmt.Fprintln(w, "Interactive SQL query mode. Type 'exit' or 'quit' to exit.")
	fmt.Fprintln(w, "Only read-only queries (SELECT, WITH, EXPLAIN) are allowed.")
	fmt.Fprintln(w)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, "sql> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "exit" || input == "quit" {
			fmt.Fprintln(w, "Goodbye!")
			break
		}
		if input == "" {
			continue
		}

		// errors are reported and the prompt continues
		if err := q.executeSingle(input); err != nil {
			q.out.Error(err)
		}
		fmt.Fprintln(w)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

// ValidateReadOnlyQuery ensures the SQL query is read-only and safe to execute.
// It rejects data modification, schema changes, transaction control and
// multiple statements.
func ValidateReadOnlyQuery(query string) error {
	normalizedQuery := strings.ToLower(query)
	normalizedQuery = lineCommentRegex.ReplaceAllString(normalizedQuery, "")
	normalizedQuery = blockCommentRegex.ReplaceAllString(normalizedQuery, "")
	normalizedQuery = strings.TrimSpace(normalizedQuery)

	if normalizedQuery == "" {
		return fmt.Errorf("empty query")
	}

	allowed := false
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(normalizedQuery, prefix) {
			allowed = true
			break
		}
	}

	if strings.HasPrefix(normalizedQuery, "pragma") {
		for _, pragma := range allowedPragmas {
			if strings.HasPrefix(normalizedQuery, pragma) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("PRAGMA statement not allowed. Only read-only PRAGMA statements are permitted")
		}
	}

	if !allowed {
		return fmt.Errorf("only read-only queries are allowed (SELECT, WITH, EXPLAIN, and read-only PRAGMA)")
	}

	for _, keyword := range forbiddenKeywords {
		if forbiddenRegexes[keyword].MatchString(normalizedQuery) {
			return fmt.Errorf("forbidden keyword '%s' detected. Only read-only operations are allowed", strings.ToUpper(keyword))
		}
	}

	// Allow one statement plus an optional trailing semicolon
	if statements := strings.Split(strings.TrimSuffix(normalizedQuery, ";"), ";"); len(statements) > 1 {
		return fmt.Errorf("multiple statements not allowed. Please execute one query at a time")
	}

	return nil
}
