package models

import (
	"fmt"
	"strings"
	"time"
)

// ColumnDateLayout is the M/D/YY form used by series headers
const ColumnDateLayout = "1/2/06"

var columnDateLayouts = []string{ColumnDateLayout, "1/2/2006", "2006-01-02"}

// ParseColumnDate parses a series header or cutoff value as a calendar date
func ParseColumnDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range columnDateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, nil
		}
	}

	return time.Time{}, &ValidationError{
		Field:   "date",
		Value:   value,
		Message: fmt.Sprintf("invalid date %q, expected M/D/YY", value),
	}
}

// LimitToCutoff keeps the date columns on or before cutoff.
// Headers that do not parse as dates are dropped silently.
func (t *RawSeriesTable) LimitToCutoff(cutoff time.Time) *RawSeriesTable {
	kept := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		date, err := ParseColumnDate(col)
		if err != nil {
			continue
		}
		if !date.After(cutoff) {
			kept = append(kept, col)
		}
	}

	return t.Project(kept)
}

// IntersectColumns returns the columns of the first table present in every
// other table, in the first table's order.
func IntersectColumns(tables ...*RawSeriesTable) []string {
	if len(tables) == 0 {
		return nil
	}

	common := make([]string, 0, len(tables[0].Columns))
	for _, col := range tables[0].Columns {
		shared := true
		for _, other := range tables[1:] {
			if other.ColumnIndex(col) < 0 {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, col)
		}
	}

	return common
}
