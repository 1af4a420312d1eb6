// Package models defines the data structures used throughout the application
package models

import (
	"fmt"
	"strings"
	"time"
)

// Author is a row of the authors table
type Author struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Bio  string `db:"bio" json:"bio"`
}

// Article is a row of the articles table.
// Log request paths are matched to an article by their Slug suffix.
type Article struct {
	ID       int64     `db:"id" json:"id"`
	AuthorID int64     `db:"author" json:"author"`
	Title    string    `db:"title" json:"title"`
	Slug     string    `db:"slug" json:"slug"`
	Lead     string    `db:"lead" json:"lead"`
	Body     string    `db:"body" json:"body"`
	Time     time.Time `db:"time" json:"time"`
}

// LogEntry is a single HTTP request recorded by the news site
type LogEntry struct {
	ID     int64     `db:"id" json:"id"`
	Path   string    `db:"path" json:"path"`
	IP     string    `db:"ip" json:"ip"`
	Method string    `db:"method" json:"method"`
	Status string    `db:"status" json:"status"` // e.g. "200 OK", "404 NOT FOUND"
	Time   time.Time `db:"time" json:"time"`
}

// IsError reports whether the request did not succeed, i.e. its status is not 2xx
func (l LogEntry) IsError() bool {
	return !strings.HasPrefix(l.Status, "2")
}

// String returns a human-readable representation of the log entry
func (l LogEntry) String() string {
	return fmt.Sprintf("%s: %s %s %s",
		l.Time.Format("2006-01-02 15:04:05"),
		l.Method,
		l.Path,
		l.Status)
}
