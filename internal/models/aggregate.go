package models

import (
	"slices"
)

// CountryAggregate maps a country to its date-indexed totals.
// It is built once per table and never mutated.
type CountryAggregate struct {
	dates     []string
	countries []string
	series    map[string][]float64
}

// AggregateByCountry sums every row of a country column by column.
// Countries keep the order of their first row in the table.
func AggregateByCountry(t *RawSeriesTable) *CountryAggregate {
	agg := &CountryAggregate{
		dates:  slices.Clone(t.Columns),
		series: make(map[string][]float64),
	}

	for _, row := range t.Rows {
		sums, ok := agg.series[row.Country]
		if !ok {
			sums = make([]float64, len(t.Columns))
			agg.series[row.Country] = sums
			agg.countries = append(agg.countries, row.Country)
		}
		for i, v := range row.Values {
			sums[i] += v
		}
	}

	return agg
}

// Dates returns the column order the aggregate was built with
func (a *CountryAggregate) Dates() []string {
	return slices.Clone(a.dates)
}

// Countries returns country names in first-appearance order
func (a *CountryAggregate) Countries() []string {
	return slices.Clone(a.countries)
}

// SortedCountries returns country names alphabetically
func (a *CountryAggregate) SortedCountries() []string {
	out := slices.Clone(a.countries)
	slices.Sort(out)
	return out
}

// Has reports whether any row of the country was aggregated
func (a *CountryAggregate) Has(country string) bool {
	_, ok := a.series[country]
	return ok
}

// Series returns a copy of the country's totals
func (a *CountryAggregate) Series(country string) ([]float64, bool) {
	sums, ok := a.series[country]
	if !ok {
		return nil, false
	}
	return slices.Clone(sums), true
}

// Value returns the country's total at date index idx; absent countries are 0
func (a *CountryAggregate) Value(country string, idx int) float64 {
	sums, ok := a.series[country]
	if !ok || idx < 0 || idx >= len(sums) {
		return 0
	}
	return sums[idx]
}

// Total sums every country at date index idx
func (a *CountryAggregate) Total(idx int) float64 {
	var total float64
	for _, country := range a.countries {
		total += a.Value(country, idx)
	}
	return total
}
