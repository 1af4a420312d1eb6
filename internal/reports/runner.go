// Package reports runs the fixed news-site reports against the database
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"news-log-analyzer/internal/database"
	"news-log-analyzer/internal/models"
	"news-log-analyzer/internal/presenter"
)

// Operation names a report selectable from the command line
type Operation string

const (
	OpTopArticles   Operation = "top3articles"
	OpTopAuthors    Operation = "topauthors"
	OpErroneousDays Operation = "erroneousday"
	OpAll           Operation = "all"
)

// Operations lists every selectable operation, "all" last
var Operations = []Operation{OpTopArticles, OpTopAuthors, OpErroneousDays, OpAll}

// ParseOperation validates a command-line operation name
func ParseOperation(name string) (Operation, error) {
	for _, op := range Operations {
		if string(op) == name {
			return op, nil
		}
	}
	return "", fmt.Errorf("invalid operation %q", name)
}

// Opener acquires a fresh database handle. Each report calls it once and
// closes the handle before returning.
type Opener func(ctx context.Context) (database.DB, error)

// Runner executes reports and hands their rows to a presenter
type Runner struct {
	open   Opener
	out    *presenter.Presenter
	logger *zap.Logger
}

// NewRunner creates a Runner. A nil logger discards diagnostics.
func NewRunner(open Opener, out *presenter.Presenter, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{open: open, out: out, logger: logger}
}

// Run optionally rebuilds the derived views, then runs the selected report.
// OpAll runs the three reports in order.
func (r *Runner) Run(ctx context.Context, op Operation, reloadViews bool) error {
	if reloadViews {
		if err := r.ReloadViews(ctx); err != nil {
			return err
		}
	}

	var err error
	switch op {
	case OpTopArticles:
		_, err = r.TopArticles(ctx)
	case OpTopAuthors:
		_, err = r.TopAuthors(ctx)
	case OpErroneousDays:
		_, err = r.ErroneousDays(ctx)
	case OpAll:
		if _, err = r.TopArticles(ctx); err != nil {
			return err
		}
		if _, err = r.TopAuthors(ctx); err != nil {
			return err
		}
		_, err = r.ErroneousDays(ctx)
	default:
		err = fmt.Errorf("invalid operation %q", op)
	}
	return err
}

// TopArticles returns the three most viewed articles, most viewed first
func (r *Runner) TopArticles(ctx context.Context) ([]models.ArticleViews, error) {
	var items []models.ArticleViews
	err := r.withDB(ctx, "top articles", func(db database.DB) error {
		query, args, err := topArticlesQuery(db.Dialect()).ToSql()
		if err != nil {
			return err
		}

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var item models.ArticleViews
			if err := rows.Scan(&item.Title, &item.Views); err != nil {
				return fmt.Errorf("scan article: %w", err)
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	r.out.TopArticles(items)
	return items, nil
}

// TopAuthors returns every author with at least one view, most viewed first
func (r *Runner) TopAuthors(ctx context.Context) ([]models.AuthorViews, error) {
	var items []models.AuthorViews
	err := r.withDB(ctx, "top authors", func(db database.DB) error {
		query, args, err := topAuthorsQuery(db.Dialect()).ToSql()
		if err != nil {
			return err
		}

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var item models.AuthorViews
			if err := rows.Scan(&item.Name, &item.Views); err != nil {
				return fmt.Errorf("scan author: %w", err)
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	r.out.TopAuthors(items)
	return items, nil
}

// ErroneousDays returns the days on which more than 1% of requests failed,
// worst first. When the requests_per_day view is missing it prints a hint to
// rebuild it and returns an empty result without error.
func (r *Runner) ErroneousDays(ctx context.Context) ([]models.ErrorDay, error) {
	var items []models.ErrorDay
	err := r.withDB(ctx, "erroneous days", func(db database.DB) error {
		if err := r.requireView(ctx, db, RequestsPerDayView); err != nil {
			return err
		}

		query, args, err := erroneousDaysQuery(db.Dialect()).ToSql()
		if err != nil {
			return err
		}

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			if db.Dialect().IsUndefinedTable(err) {
				return &ViewNotFoundError{View: RequestsPerDayView, Err: err}
			}
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				day  interface{}
				item models.ErrorDay
			)
			if err := rows.Scan(&day, &item.ErrorRate); err != nil {
				return fmt.Errorf("scan day: %w", err)
			}
			if item.Day, err = parseDay(day); err != nil {
				return err
			}
			items = append(items, item)
		}
		return rows.Err()
	})

	if errors.Is(err, ErrViewNotFound) {
		r.logger.Info("derived view missing", zap.String("view", RequestsPerDayView))
		r.out.MissingView(RequestsPerDayView)
		return []models.ErrorDay{}, nil
	}
	if err != nil {
		return nil, err
	}

	r.out.ErroneousDays(items)
	return items, nil
}

// ReloadViews drops and recreates the requests_per_day view in one transaction
func (r *Runner) ReloadViews(ctx context.Context) error {
	err := r.withDB(ctx, "reload views", func(db database.DB) error {
		statements, err := requestsPerDayStatements(db.Dialect())
		if err != nil {
			return err
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return err
	}

	r.out.ViewsReloaded()
	return nil
}

// requireView checks the catalog for view before a report reads it
func (r *Runner) requireView(ctx context.Context, db database.DB, view string) error {
	query, args, err := db.Dialect().ViewExists(view).ToSql()
	if err != nil {
		return err
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("probe view %s: %w", view, err)
	}
	if count == 0 {
		return &ViewNotFoundError{View: view}
	}
	return nil
}

// withDB opens a connection, runs fn and closes the connection again.
// Failures other than a missing view come back as *QueryError.
func (r *Runner) withDB(ctx context.Context, op string, fn func(db database.DB) error) error {
	start := time.Now()
	logger := r.logger.With(zap.String("op", op))
	logger.Debug("report started")

	db, err := r.open(ctx)
	if err != nil {
		return &QueryError{Op: op, Err: err}
	}
	defer db.Close()

	if err := fn(db); err != nil {
		var viewErr *ViewNotFoundError
		if errors.As(err, &viewErr) {
			return viewErr
		}
		logger.Error("report failed", zap.Error(err))
		return &QueryError{Op: op, Err: err}
	}

	logger.Debug("report finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}
