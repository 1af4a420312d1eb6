package reports

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"news-log-analyzer/internal/config"
	"news-log-analyzer/internal/database"
)

// RequestsPerDayView is the derived view summarising requests and errors per calendar day
const RequestsPerDayView = "requests_per_day"

// errorRateExpr is the percentage of failed requests in a requests_per_day row.
// The cast keeps the division in floating point on every backend.
const errorRateExpr = "CAST(erroneous_requests AS DOUBLE PRECISION) * 100 / total_requests"

// articleMatch joins a log entry to the article whose slug ends its request path
const articleMatch = "log AS lo ON lo.path LIKE '%' || art.slug"

func topArticlesQuery(d database.Dialect) sq.SelectBuilder {
	return sq.Select("art.title", "count(lo.path) AS views").
		From("articles AS art").
		Join(articleMatch).
		GroupBy("art.title").
		OrderBy("views DESC").
		Limit(config.TopArticlesLimit).
		PlaceholderFormat(d.Placeholder())
}

func topAuthorsQuery(d database.Dialect) sq.SelectBuilder {
	return sq.Select("auth.name", "count(lo.path) AS views").
		From("articles AS art").
		Join(articleMatch).
		Join("authors AS auth ON auth.id = art.author").
		GroupBy("auth.name").
		OrderBy("views DESC").
		PlaceholderFormat(d.Placeholder())
}

func erroneousDaysQuery(d database.Dialect) sq.SelectBuilder {
	return sq.Select("day", errorRateExpr+" AS error_rate").
		From(RequestsPerDayView).
		Where(sq.Expr(errorRateExpr+" > ?", config.ErrorRateThreshold)).
		OrderBy("error_rate DESC").
		PlaceholderFormat(d.Placeholder())
}

// requestsPerDayStatements returns the DDL that replaces the requests_per_day view.
// Each day's log entries are joined to that day's total and the entries whose
// status is not 2xx are counted as erroneous. Views cannot carry bind parameters,
// so every literal is inlined.
func requestsPerDayStatements(d database.Dialect) ([]string, error) {
	totals, _, err := sq.Select(d.TruncateToDay("time")+" AS day", "count(*) AS total").
		From("log").
		GroupBy(d.TruncateToDay("time")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build daily totals: %w", err)
	}

	body, _, err := sq.Select(
		"tl.day AS day",
		"count(lo.id) AS erroneous_requests",
		"tl.total AS total_requests",
	).
		From("log AS lo").
		Join(fmt.Sprintf("(%s) AS tl ON %s = tl.day", totals, d.TruncateToDay("lo.time"))).
		Where("lo.status NOT LIKE '2%'").
		GroupBy("tl.day", "tl.total").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s view: %w", RequestsPerDayView, err)
	}

	return []string{
		"DROP VIEW IF EXISTS " + RequestsPerDayView,
		"CREATE VIEW " + RequestsPerDayView + " AS " + body,
	}, nil
}

// dayLayouts are the textual forms a day column may come back in.
// Postgres drivers return time.Time; SQLite returns the text produced by date().
var dayLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// parseDay normalises a scanned day value to a UTC midnight time
func parseDay(v interface{}) (time.Time, error) {
	var s string
	switch day := v.(type) {
	case time.Time:
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		s = day
	case []byte:
		s = string(day)
	default:
		return time.Time{}, fmt.Errorf("unexpected day type %T", v)
	}

	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised day %q", s)
}
