package models

import (
	"time"
)

// SeriesPoint holds the totals of one date
type SeriesPoint struct {
	Label     string    `json:"label"`
	Date      time.Time `json:"date"`
	Confirmed float64   `json:"confirmed"`
	Deaths    float64   `json:"deaths"`
	Recovered float64   `json:"recovered"`
	Active    float64   `json:"active"`
}

// NewSeriesPoint derives a clipped active count for the date
func NewSeriesPoint(label string, date time.Time, confirmed, deaths, recovered float64) SeriesPoint {
	return SeriesPoint{
		Label:     label,
		Date:      date,
		Confirmed: confirmed,
		Deaths:    deaths,
		Recovered: recovered,
		Active:    ClipActive(confirmed, deaths, recovered),
	}
}

// CountrySeries is the full date range for one country
type CountrySeries struct {
	Country string        `json:"country"`
	Points  []SeriesPoint `json:"points"`
}

// GlobalTotals are the summary cards for one snapshot
type GlobalTotals struct {
	Date      string  `json:"date"`
	Countries int     `json:"countries"`
	Confirmed float64 `json:"confirmed"`
	Deaths    float64 `json:"deaths"`
	Recovered float64 `json:"recovered"`
	Active    float64 `json:"active"`
}

// ComputeGlobalTotals sums a snapshot for display.
// When recoveries exceed cases the recovered figure shown is confirmed minus
// deaths; the snapshot itself is left as is.
func ComputeGlobalTotals(date string, rows []CountrySnapshot) GlobalTotals {
	totals := GlobalTotals{
		Date:      date,
		Countries: len(rows),
	}

	for _, row := range rows {
		totals.Confirmed += row.Confirmed
		totals.Deaths += row.Deaths
		totals.Recovered += row.Recovered
		totals.Active += row.Active
	}

	if totals.Recovered > totals.Confirmed {
		totals.Recovered = totals.Confirmed - totals.Deaths
	}
	if totals.Active < 0 {
		totals.Active = 0
	}

	return totals
}
