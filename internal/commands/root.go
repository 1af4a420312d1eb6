package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"news-log-analyzer/internal/config"
	"news-log-analyzer/internal/database"
	"news-log-analyzer/internal/reports"
)

// NewRootCommand creates the top-level command. Run without a subcommand it
// prints the selected report(s).
// Usage: news-log-analyzer [top3articles|topauthors|erroneousday|all] [--reloadviews]
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	var reloadViews bool

	validArgs := make([]string, 0, len(reports.Operations))
	for _, op := range reports.Operations {
		validArgs = append(validArgs, string(op))
	}

	cmd := &cobra.Command{
		Use:   "news-log-analyzer [operation]",
		Short: "Reports on article popularity and request errors for the news site",
		Long: `Run the program with the desired report you want to see.

  - top3articles: What are the most popular three articles of all time?
  - topauthors: Who are the most popular article authors of all time?
  - erroneousday: On which days did more than 1% of requests lead to errors?
  - all: Run all of the reports. This is the default option.

The erroneousday report reads the requests_per_day view. Create or refresh it
with --reloadviews. The all option might take some time to load.

Database settings come from --config (or $NEWS_LOG_ANALYZER_CONFIG), then the
NEWSDB_* environment variables, then --driver/--dsn. Without any of them the
reports connect to the local Postgres database "news" as user "postgres".`,
		Args:          cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs:     validArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			op := reports.OpAll
			if len(args) == 1 {
				var err error
				if op, err = reports.ParseOperation(args[0]); err != nil {
					return err
				}
			}
			return runReports(cmd, opts, op, reloadViews)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&reloadViews, "reloadviews", false, config.ReloadViewsDescription)

	cmd.AddCommand(newLoadCommand(opts))
	cmd.AddCommand(newQueryCommand(opts))

	return cmd
}

// runReports wires configuration, logging and presentation into a report runner
func runReports(cmd *cobra.Command, opts *globalOptions, op reports.Operation, reloadViews bool) error {
	env, err := opts.setup(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer env.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	dbCfg := env.cfg.Database
	opener := func(ctx context.Context) (database.DB, error) {
		return database.Open(ctx, dbCfg)
	}

	env.logger.Debug("running reports",
		zap.String("operation", string(op)),
		zap.Bool("reload_views", reloadViews),
		zap.String("driver", dbCfg.Driver))
	runner := reports.NewRunner(opener, env.out, env.logger)
	if err := runner.Run(cmd.Context(), op, reloadViews); err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return nil
}
