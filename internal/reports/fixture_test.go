package reports

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"news-log-analyzer/internal/config"
	"news-log-analyzer/internal/database"
	"news-log-analyzer/internal/models"
	"news-log-analyzer/internal/presenter"
)

// Views per article slug in the fixture log. Every hit is a 200 response.
var fixtureHits = []struct {
	slug  string
	views int
}{
	{slug: "candidate-is-jerk", views: 60},
	{slug: "bears-love-berries", views: 50},
	{slug: "bad-things-gone", views: 40},
	{slug: "goats-eat-googles", views: 30},
}

// fixtureDays describes each logged day: total requests and how many failed
var fixtureDays = []struct {
	day    time.Time
	total  int
	errors int
}{
	{day: date(2016, time.July, 1), total: 150, errors: 2}, // 1.33%
	{day: date(2016, time.July, 2), total: 100, errors: 1}, // exactly 1%
	{day: date(2016, time.July, 3), total: 50, errors: 0},
	{day: date(2016, time.July, 4), total: 40, errors: 2}, // 5%
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fixtureMatchedViews is the number of log entries whose path ends in an article slug
func fixtureMatchedViews() int64 {
	var n int64
	for _, h := range fixtureHits {
		n += int64(h.views)
	}
	return n
}

// newFixture builds the news fixture: four authors (one without any views),
// five articles (one never requested) and the request log described above.
func newFixture() database.Fixture {
	fx := database.Fixture{
		Authors: []models.Author{
			{ID: 1, Name: "Ursula La Multa"},
			{ID: 2, Name: "Rudolf von Treppenwitz"},
			{ID: 3, Name: "Anonymous Contributor"},
			{ID: 4, Name: "Markoff Chaney"},
		},
		Articles: []models.Article{
			{ID: 1, AuthorID: 1, Title: "Bears love berries, alleges bear", Slug: "bears-love-berries"},
			{ID: 2, AuthorID: 1, Title: "Bad things gone, say good people", Slug: "bad-things-gone"},
			{ID: 3, AuthorID: 2, Title: "Candidate is jerk, alleges rival", Slug: "candidate-is-jerk"},
			{ID: 4, AuthorID: 4, Title: "Goats eat Google's lawn", Slug: "goats-eat-googles"},
			{ID: 5, AuthorID: 3, Title: "Trouble for troubled troublemakers", Slug: "trouble-for-troubled"},
		},
	}

	// queue of article paths poured into the successful slots of each day
	var hits []string
	for _, h := range fixtureHits {
		for i := 0; i < h.views; i++ {
			hits = append(hits, "/article/"+h.slug)
		}
	}

	for _, d := range fixtureDays {
		for i := 0; i < d.total; i++ {
			entry := models.LogEntry{
				IP:     "198.51.100.1",
				Method: "GET",
				Status: "200 OK",
				Time:   d.day.Add(time.Duration(i) * time.Minute),
			}
			switch {
			case i < d.errors:
				entry.Path = "/spam-spam-spam-humbug"
				entry.Status = "404 NOT FOUND"
			case len(hits) > 0:
				entry.Path, hits = hits[0], hits[1:]
			default:
				entry.Path = "/"
			}
			fx.Log = append(fx.Log, entry)
		}
	}
	return fx
}

// sqliteConfig points the sqlite3 driver at a fresh file in a temp dir
func sqliteConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "news.db"),
	}
}

// seed creates the schema in cfg's database and loads fx into it
func seed(t *testing.T, cfg config.DatabaseConfig, fx database.Fixture) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	defer db.Close()

	if err := database.CreateSchema(ctx, db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if _, err := database.LoadFixture(ctx, db, fx, false); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
}

// countingDB records Close calls on a database handle
type countingDB struct {
	database.DB
	closed *int
}

func (c countingDB) Close() error {
	*c.closed++
	return c.DB.Close()
}

// harness bundles a runner over a fixture database with its captured output
type harness struct {
	runner *Runner
	out    *bytes.Buffer
	cfg    config.DatabaseConfig
	logs   *observer.ObservedLogs
	opened int
	closed int
}

func newHarness(t *testing.T, fx *database.Fixture) *harness {
	t.Helper()
	h := &harness{out: &bytes.Buffer{}, cfg: sqliteConfig(t)}
	if fx != nil {
		seed(t, h.cfg, *fx)
	}

	opener := func(ctx context.Context) (database.DB, error) {
		db, err := database.Open(ctx, h.cfg)
		if err != nil {
			return nil, err
		}
		h.opened++
		return countingDB{DB: db, closed: &h.closed}, nil
	}
	core, logs := observer.New(zapcore.DebugLevel)
	h.logs = logs
	h.runner = NewRunner(opener, presenter.New(h.out, false), zap.New(core))
	return h
}
