package models

import "time"

// DayLayout renders report days as full month name, day and year, e.g. "March 04, 2016"
const DayLayout = "January 02, 2006"

// ArticleViews is one row of the top articles report
type ArticleViews struct {
	Title string `db:"title" json:"title"`
	Views int64  `db:"views" json:"views"`
}

// AuthorViews is one row of the top authors report
type AuthorViews struct {
	Name  string `db:"name" json:"name"`
	Views int64  `db:"views" json:"views"`
}

// ErrorDay is a day whose share of failed requests exceeded the reporting threshold
type ErrorDay struct {
	Day       time.Time `db:"day" json:"day"`
	ErrorRate float64   `db:"error_rate" json:"error_rate"` // percentage, 0-100
}
