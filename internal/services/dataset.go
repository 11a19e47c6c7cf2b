package services

import (
	"fmt"
	"slices"
	"time"

	"pandemic-dashboard/internal/models"
)

// Dataset is the loaded, cut-off and reconciled data. It is read-only after
// construction and safe to share between goroutines.
type Dataset struct {
	confirmedTable *models.RawSeriesTable
	confirmed      *models.CountryAggregate
	deaths         *models.CountryAggregate
	recovered      *models.CountryAggregate
	dates          []string
	parsedDates    []time.Time
	loadedAt       time.Time
}

// NewDataset aggregates three tables sharing the same date columns
func NewDataset(confirmed, deaths, recovered *models.RawSeriesTable) (*Dataset, error) {
	for kind, table := range map[models.SeriesKind]*models.RawSeriesTable{
		models.KindDeaths:    deaths,
		models.KindRecovered: recovered,
	} {
		if !slices.Equal(table.Columns, confirmed.Columns) {
			return nil, &models.ValidationError{
				Field:   string(kind),
				Message: fmt.Sprintf("%s dates differ from confirmed dates", kind),
			}
		}
	}

	parsed := make([]time.Time, len(confirmed.Columns))
	for i, col := range confirmed.Columns {
		date, err := models.ParseColumnDate(col)
		if err != nil {
			return nil, err
		}
		parsed[i] = date
	}

	return &Dataset{
		confirmedTable: confirmed,
		confirmed:      models.AggregateByCountry(confirmed),
		deaths:         models.AggregateByCountry(deaths),
		recovered:      models.AggregateByCountry(recovered),
		dates:          slices.Clone(confirmed.Columns),
		parsedDates:    parsed,
		loadedAt:       time.Now().UTC(),
	}, nil
}

// Dates returns the date labels in ascending order
func (d *Dataset) Dates() []string {
	return slices.Clone(d.dates)
}

// Len returns the number of dates
func (d *Dataset) Len() int {
	return len(d.dates)
}

// LatestIndex returns the index of the last date
func (d *Dataset) LatestIndex() int {
	return len(d.dates) - 1
}

// LoadedAt returns when the dataset was built
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// DateAt maps a date index to its label
func (d *Dataset) DateAt(idx int) (string, error) {
	if idx < 0 || idx >= len(d.dates) {
		return "", &models.RangeError{Index: idx, Len: len(d.dates)}
	}
	return d.dates[idx], nil
}

// IndexOf maps a date label to its index. The label may use any accepted
// date form, so "04/08/2021" finds "4/8/21".
func (d *Dataset) IndexOf(date string) (int, error) {
	if idx := slices.Index(d.dates, date); idx >= 0 {
		return idx, nil
	}

	parsed, err := models.ParseColumnDate(date)
	if err != nil {
		return 0, err
	}
	if idx := slices.IndexFunc(d.parsedDates, parsed.Equal); idx >= 0 {
		return idx, nil
	}

	return 0, &models.RangeError{Date: date, Len: len(d.dates)}
}

// Countries returns every country with confirmed figures, alphabetically
func (d *Dataset) Countries() []string {
	return d.confirmed.SortedCountries()
}

// BuildSnapshot returns the plottable country rows for date
func (d *Dataset) BuildSnapshot(date string) ([]models.CountrySnapshot, error) {
	return models.BuildSnapshot(date, d.confirmedTable, d.confirmed, d.deaths, d.recovered)
}

// BuildSnapshotAt returns the plottable country rows for a date index
func (d *Dataset) BuildSnapshotAt(idx int) ([]models.CountrySnapshot, error) {
	date, err := d.DateAt(idx)
	if err != nil {
		return nil, err
	}
	return d.BuildSnapshot(date)
}

// BuildGlobalSeries sums every country per date. Only countries with
// confirmed figures contribute, so the result equals the sum of their
// country series.
func (d *Dataset) BuildGlobalSeries() []models.SeriesPoint {
	countries := d.confirmed.Countries()
	points := make([]models.SeriesPoint, len(d.dates))
	for i, label := range d.dates {
		var deaths, recovered float64
		for _, country := range countries {
			deaths += d.deaths.Value(country, i)
			recovered += d.recovered.Value(country, i)
		}
		points[i] = models.NewSeriesPoint(label, d.parsedDates[i], d.confirmed.Total(i), deaths, recovered)
	}
	return points
}

// BuildCountrySeries returns the full date range for one country
func (d *Dataset) BuildCountrySeries(country string) (models.CountrySeries, error) {
	if !d.confirmed.Has(country) {
		return models.CountrySeries{}, &models.NotFoundError{
			Resource: "country",
			ID:       country,
		}
	}

	points := make([]models.SeriesPoint, len(d.dates))
	for i, label := range d.dates {
		points[i] = models.NewSeriesPoint(
			label,
			d.parsedDates[i],
			d.confirmed.Value(country, i),
			d.deaths.Value(country, i),
			d.recovered.Value(country, i),
		)
	}

	return models.CountrySeries{Country: country, Points: points}, nil
}

// CompareCountries returns the series of each known country in request
// order. Unknown and repeated names are skipped.
func (d *Dataset) CompareCountries(countries []string) []models.CountrySeries {
	out := make([]models.CountrySeries, 0, len(countries))
	seen := make(map[string]struct{}, len(countries))
	for _, country := range countries {
		if _, dup := seen[country]; dup {
			continue
		}
		seen[country] = struct{}{}

		series, err := d.BuildCountrySeries(country)
		if err != nil {
			continue
		}
		out = append(out, series)
	}
	return out
}
