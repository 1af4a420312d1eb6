// Package parser provides CSV parsing for news database fixture files
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"news-log-analyzer/internal/models"
)

// record is one CSV data row addressed by header name
type record struct {
	line   int
	fields map[string]string
}

func (r record) get(column string) string {
	return strings.TrimSpace(r.fields[column])
}

// readCSV reads a CSV file whose first row names the columns.
// Every name in required must be present in that header row.
func readCSV(filePath string, required ...string) ([]record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file %s is empty", filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	for _, column := range required {
		if !contains(header, column) {
			return nil, fmt.Errorf("CSV file %s is missing required column %q", filePath, column)
		}
	}

	var records []record
	lineNumber := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNumber++
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNumber, err)
		}

		fields := make(map[string]string, len(header))
		for i, column := range header {
			fields[column] = row[i]
		}
		records = append(records, record{line: lineNumber, fields: fields})
	}

	return records, nil
}

// ParseAuthors reads an authors fixture with columns id, name and optionally bio
func ParseAuthors(filePath string) ([]models.Author, error) {
	records, err := readCSV(filePath, "id", "name")
	if err != nil {
		return nil, err
	}

	authors := make([]models.Author, 0, len(records))
	for _, rec := range records {
		id, err := parseID(rec.get("id"))
		if err != nil {
			return nil, fmt.Errorf("error parsing line %d: %w", rec.line, err)
		}
		name := rec.get("name")
		if name == "" {
			return nil, fmt.Errorf("error parsing line %d: name cannot be empty", rec.line)
		}
		authors = append(authors, models.Author{ID: id, Name: name, Bio: rec.get("bio")})
	}
	return authors, nil
}

// ParseArticles reads an articles fixture with columns id, author, title, slug
// and optionally lead, body and time
func ParseArticles(filePath string) ([]models.Article, error) {
	records, err := readCSV(filePath, "id", "author", "title", "slug")
	if err != nil {
		return nil, err
	}

	articles := make([]models.Article, 0, len(records))
	for _, rec := range records {
		article, err := parseArticle(rec)
		if err != nil {
			return nil, fmt.Errorf("error parsing line %d: %w", rec.line, err)
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func parseArticle(rec record) (models.Article, error) {
	id, err := parseID(rec.get("id"))
	if err != nil {
		return models.Article{}, err
	}
	author, err := parseID(rec.get("author"))
	if err != nil {
		return models.Article{}, fmt.Errorf("invalid author: %w", err)
	}

	title := rec.get("title")
	if title == "" {
		return models.Article{}, fmt.Errorf("title cannot be empty")
	}
	slug := rec.get("slug")
	if slug == "" {
		return models.Article{}, fmt.Errorf("slug cannot be empty")
	}

	var published time.Time
	if s := rec.get("time"); s != "" {
		if published, err = parseTimestamp(s); err != nil {
			return models.Article{}, fmt.Errorf("invalid time '%s': %w", s, err)
		}
	}

	return models.Article{
		ID:       id,
		AuthorID: author,
		Title:    title,
		Slug:     slug,
		Lead:     rec.get("lead"),
		Body:     rec.get("body"),
		Time:     published,
	}, nil
}

// ParseLog reads a request log fixture with columns path, status, time and
// optionally ip and method (GET when absent)
func ParseLog(filePath string) ([]models.LogEntry, error) {
	records, err := readCSV(filePath, "path", "status", "time")
	if err != nil {
		return nil, err
	}

	entries := make([]models.LogEntry, 0, len(records))
	for _, rec := range records {
		entry, err := parseLogEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("error parsing line %d: %w", rec.line, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseLogEntry converts a CSV record into a LogEntry struct
func parseLogEntry(rec record) (models.LogEntry, error) {
	path := rec.get("path")
	if path == "" {
		return models.LogEntry{}, fmt.Errorf("path cannot be empty")
	}

	status := rec.get("status")
	if !isValidStatus(status) {
		return models.LogEntry{}, fmt.Errorf("invalid status '%s': must start with a 3-digit HTTP code", status)
	}

	timestamp, err := parseTimestamp(rec.get("time"))
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("invalid time '%s': %w", rec.get("time"), err)
	}

	method := strings.ToUpper(rec.get("method"))
	if method == "" {
		method = "GET"
	}

	return models.LogEntry{
		Path:   path,
		IP:     rec.get("ip"),
		Method: method,
		Status: status,
		Time:   timestamp,
	}, nil
}

// timestampLayouts are tried in order after UNIX seconds.
// The first matches what psql prints for timestamptz columns.
var timestampLayouts = []string{
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Mon Jan 2 15:04:05 MST 2006",
	"2006-01-02",
}

// parseTimestamp converts a timestamp string to a UTC time.Time
func parseTimestamp(timestampStr string) (time.Time, error) {
	if timestamp, err := strconv.ParseInt(timestampStr, 10, 64); err == nil {
		return time.Unix(timestamp, 0).UTC(), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, timestampStr); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("timestamp format not recognized, expected UNIX seconds, RFC3339 or 'YYYY-MM-DD HH:MM:SS[+TZ]'")
}

// isValidStatus checks the status starts with a three digit HTTP code, e.g. "200 OK"
func isValidStatus(status string) bool {
	if len(status) < 3 {
		return false
	}
	for _, c := range status[:3] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(status) == 3 || status[3] == ' '
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id must be a valid integer: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
