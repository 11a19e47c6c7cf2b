package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pandemic-dashboard/internal/models"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestPivotSeriesRows(t *testing.T) {
	rows := []seriesValueRow{
		{LocationID: 7, Country: "Canada", Region: "Ontario", Latitude: 51.25, Longitude: -85.32, ObservedOn: day(2020, 1, 22), Value: 3},
		{LocationID: 7, Country: "Canada", Region: "Ontario", Latitude: 51.25, Longitude: -85.32, ObservedOn: day(2020, 1, 24), Value: 5},
		{LocationID: 2, Country: "Afghanistan", Latitude: 33.9, Longitude: 67.7, ObservedOn: day(2020, 1, 23), Value: 1},
		{LocationID: 2, Country: "Afghanistan", Latitude: 33.9, Longitude: 67.7, ObservedOn: day(2020, 1, 22), Value: 0},
	}

	table := pivotSeriesRows(rows)

	assert.Equal(t, []string{"1/22/20", "1/23/20", "1/24/20"}, table.Columns)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, "Canada", table.Rows[0].Country)
	assert.Equal(t, "Ontario", table.Rows[0].Region)
	assert.Equal(t, []float64{3, 0, 5}, table.Rows[0].Values)

	assert.Equal(t, "Afghanistan", table.Rows[1].Country)
	assert.Equal(t, 33.9, table.Rows[1].Latitude)
	assert.Equal(t, []float64{0, 1, 0}, table.Rows[1].Values)

	for _, col := range table.Columns {
		_, err := models.ParseColumnDate(col)
		assert.NoError(t, err, col)
	}
}

func TestPivotSeriesRowsEmpty(t *testing.T) {
	table := pivotSeriesRows(nil)
	assert.Empty(t, table.Columns)
	assert.Empty(t, table.Rows)
}

func TestSelectSeriesQuery(t *testing.T) {
	query, args, err := selectSeriesQuery(models.KindDeaths)
	require.NoError(t, err)

	assert.Contains(t, query, "FROM series_locations l")
	assert.Contains(t, query, "JOIN series_values v ON v.location_id = l.id")
	assert.Contains(t, query, "WHERE v.metric = $1")
	assert.Contains(t, query, "ORDER BY l.id, v.observed_on")
	assert.Equal(t, []interface{}{"deaths"}, args)
}

func TestInsertValuesQuery(t *testing.T) {
	batch := []valueRecord{
		{locationID: 1, observedOn: day(2020, 1, 22), value: 10},
		{locationID: 1, observedOn: day(2020, 1, 23), value: 12},
	}

	query, args, err := insertValuesQuery(models.KindConfirmed, batch)
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO series_values (location_id,metric,observed_on,value)")
	assert.Contains(t, query, "($1,$2,$3,$4),($5,$6,$7,$8)")
	assert.Contains(t, query, "ON CONFLICT (location_id, metric, observed_on) DO UPDATE")
	require.Len(t, args, 8)
	assert.Equal(t, "confirmed", args[1])
	assert.Equal(t, 12.0, args[7])
}

func TestDatedColumns(t *testing.T) {
	table := &models.RawSeriesTable{Columns: []string{"1/22/20", "notes", "1/23/20"}}

	positions, dates := datedColumns(table)

	assert.Equal(t, []int{0, 2}, positions)
	assert.Equal(t, []time.Time{day(2020, 1, 22), day(2020, 1, 23)}, dates)
}
