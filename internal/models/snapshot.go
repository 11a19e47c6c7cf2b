package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Metric selects the snapshot value used for ranking and display
type Metric string

const (
	MetricConfirmed     Metric = "Confirmed"
	MetricDeaths        Metric = "Deaths"
	MetricRecovered     Metric = "Recovered"
	MetricActive        Metric = "Active"
	MetricMortalityRate Metric = "Mortality_Rate"
	MetricRecoveryRate  Metric = "Recovery_Rate"
)

// Metrics lists every selectable metric
var Metrics = []Metric{
	MetricConfirmed,
	MetricDeaths,
	MetricRecovered,
	MetricActive,
	MetricMortalityRate,
	MetricRecoveryRate,
}

// ParseMetric matches a metric name case-insensitively; "-" is read as "_"
func ParseMetric(value string) (Metric, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "-", "_")
	for _, m := range Metrics {
		if strings.EqualFold(string(m), normalized) {
			return m, nil
		}
	}

	return "", &ValidationError{
		Field:   "metric",
		Value:   value,
		Message: fmt.Sprintf("unknown metric %q", value),
	}
}

// CountrySnapshot is one country's figures on a single date
type CountrySnapshot struct {
	Country       string  `json:"country"`
	Confirmed     float64 `json:"confirmed"`
	Deaths        float64 `json:"deaths"`
	Recovered     float64 `json:"recovered"`
	Active        float64 `json:"active"`
	MortalityRate float64 `json:"mortality_rate"`
	RecoveryRate  float64 `json:"recovery_rate"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

// NewCountrySnapshot derives active and the two rates from the raw counts.
// RecoveryRate repeats the mortality formula, as the dashboard always has.
func NewCountrySnapshot(country string, confirmed, deaths, recovered float64, coord Coordinate) CountrySnapshot {
	rate := 0.0
	if confirmed > 0 {
		rate = deaths / confirmed * 100
	}

	return CountrySnapshot{
		Country:       country,
		Confirmed:     confirmed,
		Deaths:        deaths,
		Recovered:     recovered,
		Active:        ClipActive(confirmed, deaths, recovered),
		MortalityRate: rate,
		RecoveryRate:  rate,
		Latitude:      coord.Latitude,
		Longitude:     coord.Longitude,
	}
}

// ClipActive is confirmed minus deaths and recoveries, floored at zero
func ClipActive(confirmed, deaths, recovered float64) float64 {
	return max(confirmed-deaths-recovered, 0)
}

// Plottable reports whether the row has cases and a usable coordinate
func (s CountrySnapshot) Plottable() bool {
	return s.Confirmed > 0 && s.Latitude != 0 && s.Longitude != 0
}

// Value returns the figure selected by m
func (s CountrySnapshot) Value(m Metric) float64 {
	switch m {
	case MetricConfirmed:
		return s.Confirmed
	case MetricDeaths:
		return s.Deaths
	case MetricRecovered:
		return s.Recovered
	case MetricActive:
		return s.Active
	case MetricMortalityRate:
		return s.MortalityRate
	case MetricRecoveryRate:
		return s.RecoveryRate
	default:
		return 0
	}
}

// Coordinate is a latitude/longitude pair
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ResolveCoordinates picks, per country, the row with the largest value in
// column col (first row wins ties). If col is absent the first row is used.
func ResolveCoordinates(t *RawSeriesTable, col string) map[string]Coordinate {
	idx := t.ColumnIndex(col)
	coords := make(map[string]Coordinate)
	best := make(map[string]float64)

	for _, row := range t.Rows {
		if _, seen := coords[row.Country]; !seen {
			coords[row.Country] = Coordinate{Latitude: row.Latitude, Longitude: row.Longitude}
			if idx >= 0 {
				best[row.Country] = row.Values[idx]
			}
			continue
		}
		if idx >= 0 && row.Values[idx] > best[row.Country] {
			coords[row.Country] = Coordinate{Latitude: row.Latitude, Longitude: row.Longitude}
			best[row.Country] = row.Values[idx]
		}
	}

	return coords
}

// BuildSnapshot assembles the per-country rows for column col.
// Countries come from the confirmed aggregate in its order; missing deaths or
// recoveries count as zero. Rows without cases or coordinates are dropped.
func BuildSnapshot(col string, confirmedTable *RawSeriesTable, confirmed, deaths, recovered *CountryAggregate) ([]CountrySnapshot, error) {
	idx := slices.Index(confirmed.dates, col)
	if idx < 0 {
		return nil, &RangeError{Date: col}
	}

	coords := ResolveCoordinates(confirmedTable, col)

	rows := make([]CountrySnapshot, 0, len(confirmed.countries))
	for _, country := range confirmed.countries {
		row := NewCountrySnapshot(
			country,
			confirmed.Value(country, idx),
			deaths.Value(country, deaths.dateIndex(col)),
			recovered.Value(country, recovered.dateIndex(col)),
			coords[country],
		)
		if !row.Plottable() {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (a *CountryAggregate) dateIndex(col string) int {
	return slices.Index(a.dates, col)
}

// TopN returns the n rows with the largest metric value, ties in input order.
// Mortality_Rate ranks by Confirmed: the largest outbreaks, showing their rate.
func TopN(rows []CountrySnapshot, n int, metric Metric) []CountrySnapshot {
	if n <= 0 {
		return []CountrySnapshot{}
	}

	key := metric
	if metric == MetricMortalityRate {
		key = MetricConfirmed
	}

	ranked := slices.Clone(rows)
	slices.SortStableFunc(ranked, func(a, b CountrySnapshot) int {
		return cmp.Compare(b.Value(key), a.Value(key))
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
