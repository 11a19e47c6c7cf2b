package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Prefix columns of the CSSE time-series layout, in source order
const (
	ColumnRegion    = "Province/State"
	ColumnCountry   = "Country/Region"
	ColumnLatitude  = "Lat"
	ColumnLongitude = "Long"
)

// PrefixColumns lists the fixed leading columns every series table must carry
var PrefixColumns = []string{ColumnRegion, ColumnCountry, ColumnLatitude, ColumnLongitude}

// SeriesKind names one of the three loaded tables
type SeriesKind string

const (
	KindConfirmed SeriesKind = "confirmed"
	KindDeaths    SeriesKind = "deaths"
	KindRecovered SeriesKind = "recovered"
)

// SeriesKinds is the load order of the three tables
var SeriesKinds = []SeriesKind{KindConfirmed, KindDeaths, KindRecovered}

// RawSeriesRow is one location of a series table.
// Values is aligned with the owning table's Columns.
type RawSeriesRow struct {
	Region    string
	Country   string
	Latitude  float64
	Longitude float64
	Values    []float64
}

// RawSeriesTable is a row-per-location, column-per-date table.
// Columns holds every header after the prefix in source order; headers that
// are not dates survive parsing and are dropped by LimitToCutoff.
type RawSeriesTable struct {
	Columns []string
	Rows    []RawSeriesRow
}

// ParseRawSeriesTable builds a table from CSV records, header first.
// Empty or non-numeric cells count as zero.
func ParseRawSeriesTable(records [][]string) (*RawSeriesTable, error) {
	if len(records) == 0 {
		return nil, &ValidationError{
			Field:   "header",
			Message: "series table is empty, expected a header row",
		}
	}

	header := records[0]
	if len(header) < len(PrefixColumns) {
		return nil, &ValidationError{
			Field:   "header",
			Value:   strings.Join(header, ","),
			Message: fmt.Sprintf("series table header has %d columns, expected at least %d", len(header), len(PrefixColumns)),
		}
	}

	for i, want := range PrefixColumns {
		got := strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if got != want {
			return nil, &ValidationError{
				Field:   "header",
				Value:   got,
				Message: fmt.Sprintf("series table column %d is %q, expected %q", i, got, want),
			}
		}
	}

	columns := make([]string, 0, len(header)-len(PrefixColumns))
	for _, col := range header[len(PrefixColumns):] {
		columns = append(columns, strings.TrimSpace(col))
	}

	table := &RawSeriesTable{
		Columns: columns,
		Rows:    make([]RawSeriesRow, 0, len(records)-1),
	}

	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, &ValidationError{
				Field:   "row",
				Value:   strconv.Itoa(i + 2),
				Message: fmt.Sprintf("series table line %d has %d fields, expected %d", i+2, len(record), len(header)),
			}
		}

		row := RawSeriesRow{
			Region:    strings.TrimSpace(record[0]),
			Country:   strings.TrimSpace(record[1]),
			Latitude:  parseCell(record[2]),
			Longitude: parseCell(record[3]),
			Values:    make([]float64, len(columns)),
		}
		for j, cell := range record[len(PrefixColumns):] {
			row.Values[j] = parseCell(cell)
		}

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// parseCell reads a numeric cell; anything that is not a finite number,
// including the text NaN and Inf, counts as zero
func parseCell(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ColumnIndex returns the position of col in Columns, or -1
func (t *RawSeriesTable) ColumnIndex(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Project returns a copy restricted to the given columns, in the given order.
// Columns missing from the table are skipped.
func (t *RawSeriesTable) Project(columns []string) *RawSeriesTable {
	indexes := make([]int, 0, len(columns))
	kept := make([]string, 0, len(columns))
	for _, col := range columns {
		if idx := t.ColumnIndex(col); idx >= 0 {
			indexes = append(indexes, idx)
			kept = append(kept, col)
		}
	}

	out := &RawSeriesTable{
		Columns: kept,
		Rows:    make([]RawSeriesRow, len(t.Rows)),
	}
	for i, row := range t.Rows {
		values := make([]float64, len(indexes))
		for j, idx := range indexes {
			values[j] = row.Values[idx]
		}
		out.Rows[i] = RawSeriesRow{
			Region:    row.Region,
			Country:   row.Country,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
			Values:    values,
		}
	}

	return out
}
