// Package presenter renders report results for the terminal.
// It is the only place that knows about ANSI colors.
package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"news-log-analyzer/internal/models"
)

// Report headers, one per question the reports answer
const (
	TopArticlesHeader   = "What are the most popular three articles of all time?"
	TopAuthorsHeader    = "Who are the most popular article authors of all time?"
	ErroneousDaysHeader = "On which days did more than 1% of requests lead to errors?"
)

// Presenter writes formatted report lines to an output stream
type Presenter struct {
	out    io.Writer
	header *color.Color
	notice *color.Color
	alert  *color.Color
}

// New creates a Presenter writing to out. When colored is false no escape
// sequences are emitted, whatever the terminal supports.
func New(out io.Writer, colored bool) *Presenter {
	p := &Presenter{
		out:    out,
		header: color.New(color.FgHiBlue),
		notice: color.New(color.FgHiYellow),
		alert:  color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.header, p.notice, p.alert} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// TopArticles prints the top articles report
func (p *Presenter) TopArticles(rows []models.ArticleViews) {
	p.header.Fprintln(p.out, TopArticlesHeader)
	for _, row := range rows {
		fmt.Fprintf(p.out, " - \"%s\" - %d views.\n", row.Title, row.Views)
	}
}

// TopAuthors prints the top authors report
func (p *Presenter) TopAuthors(rows []models.AuthorViews) {
	p.header.Fprintln(p.out, TopAuthorsHeader)
	for _, row := range rows {
		fmt.Fprintf(p.out, " - %s - %d views.\n", row.Name, row.Views)
	}
}

// ErroneousDays prints the erroneous days report, the rate highlighted
func (p *Presenter) ErroneousDays(rows []models.ErrorDay) {
	p.header.Fprintln(p.out, ErroneousDaysHeader)
	for _, row := range rows {
		fmt.Fprintf(p.out, " - %s - %s\n",
			row.Day.Format(models.DayLayout),
			p.alert.Sprintf("%.2f%% errors.", row.ErrorRate))
	}
}

// MissingView tells the user how to create a view the report depends on
func (p *Presenter) MissingView(view string) {
	p.alert.Fprintf(p.out, "View %q does not exist! Re-run this with the --reloadviews flag.\n", view)
}

// ViewsReloaded confirms the derived views were rebuilt
func (p *Presenter) ViewsReloaded() {
	p.notice.Fprintln(p.out, "Views reloaded successfully!")
}

// Notice prints an informational line
func (p *Presenter) Notice(format string, args ...interface{}) {
	p.notice.Fprintf(p.out, format+"\n", args...)
}

// Error prints a readable error line
func (p *Presenter) Error(err error) {
	p.alert.Fprintf(p.out, "Error: %v\n", err)
}

// Table prints arbitrary query results as fixed-width columns
func (p *Presenter) Table(columns []string, results []map[string]interface{}) {
	if len(results) == 0 {
		fmt.Fprintln(p.out, "No results found.")
		return
	}

	// Print header
	cells := make([]string, len(columns))
	for i, column := range columns {
		cells[i] = fmt.Sprintf("%-15s", column)
	}
	p.header.Fprintln(p.out, strings.Join(cells, " | "))

	// Print separator
	for i := range columns {
		cells[i] = strings.Repeat("-", 15)
	}
	fmt.Fprintln(p.out, strings.Join(cells, " | "))

	// Print rows
	for _, row := range results {
		for i, column := range columns {
			cells[i] = fmt.Sprintf("%-15v", row[column])
		}
		fmt.Fprintln(p.out, strings.Join(cells, " | "))
	}

	fmt.Fprintf(p.out, "\n(%d rows)\n", len(results))
}
