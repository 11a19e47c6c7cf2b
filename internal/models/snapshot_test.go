package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotFixture struct {
	confirmedTable *RawSeriesTable
	confirmed      *CountryAggregate
	deaths         *CountryAggregate
	recovered      *CountryAggregate
}

func newSnapshotFixture(t *testing.T) snapshotFixture {
	t.Helper()

	confirmed := mustParse(t, [][]string{
		header("1/22/20", "1/23/20"),
		{"", "Alpha", "10.0", "20.0", "50", "100"},
		{"North", "Beta", "1.0", "1.0", "3", "4"},
		{"South", "Beta", "2.0", "2.0", "7", "1"},
		{"", "Gamma", "0", "30.0", "5", "8"},
		{"", "Delta", "40.0", "40.0", "0", "0"},
		{"", "Epsilon", "50.0", "50.0", "0", "6"},
	})
	deaths := mustParse(t, [][]string{
		header("1/22/20", "1/23/20"),
		{"", "Alpha", "10.0", "20.0", "5", "10"},
		{"North", "Beta", "1.0", "1.0", "1", "1"},
		{"South", "Beta", "2.0", "2.0", "0", "0"},
	})
	recovered := mustParse(t, [][]string{
		header("1/22/20", "1/23/20"),
		{"", "Alpha", "10.0", "20.0", "45", "80"},
		{"", "Epsilon", "50.0", "50.0", "0", "9"},
	})

	return snapshotFixture{
		confirmedTable: confirmed,
		confirmed:      AggregateByCountry(confirmed),
		deaths:         AggregateByCountry(deaths),
		recovered:      AggregateByCountry(recovered),
	}
}

func (f snapshotFixture) build(t *testing.T, col string) map[string]CountrySnapshot {
	t.Helper()
	rows, err := BuildSnapshot(col, f.confirmedTable, f.confirmed, f.deaths, f.recovered)
	require.NoError(t, err)

	byCountry := make(map[string]CountrySnapshot, len(rows))
	for _, row := range rows {
		byCountry[row.Country] = row
	}
	return byCountry
}

func TestBuildSnapshot(t *testing.T) {
	f := newSnapshotFixture(t)

	t.Run("derives active and mortality rate", func(t *testing.T) {
		rows := f.build(t, "1/23/20")
		alpha, ok := rows["Alpha"]
		require.True(t, ok)
		assert.Equal(t, 100.0, alpha.Confirmed)
		assert.Equal(t, 10.0, alpha.Deaths)
		assert.Equal(t, 80.0, alpha.Recovered)
		assert.Equal(t, 10.0, alpha.Active)
		assert.InDelta(t, 10.0, alpha.MortalityRate, 1e-9)
		assert.InDelta(t, alpha.MortalityRate, alpha.RecoveryRate, 1e-9)
	})

	t.Run("active never goes negative", func(t *testing.T) {
		rows := f.build(t, "1/23/20")
		epsilon := rows["Epsilon"]
		assert.Equal(t, 6.0, epsilon.Confirmed)
		assert.Equal(t, 9.0, epsilon.Recovered)
		assert.Equal(t, 0.0, epsilon.Active)
	})

	t.Run("sums regions and defaults missing metrics to zero", func(t *testing.T) {
		rows := f.build(t, "1/22/20")
		beta := rows["Beta"]
		assert.Equal(t, 10.0, beta.Confirmed)
		assert.Equal(t, 1.0, beta.Deaths)
		assert.Equal(t, 0.0, beta.Recovered)
		assert.Equal(t, 9.0, beta.Active)
	})

	t.Run("coordinates come from the region with most cases on the date", func(t *testing.T) {
		day1 := f.build(t, "1/22/20")["Beta"]
		assert.Equal(t, 2.0, day1.Latitude)
		day2 := f.build(t, "1/23/20")["Beta"]
		assert.Equal(t, 1.0, day2.Latitude)
	})

	t.Run("excludes zero confirmed and zero coordinates", func(t *testing.T) {
		day1 := f.build(t, "1/22/20")
		assert.NotContains(t, day1, "Gamma", "zero latitude")
		assert.NotContains(t, day1, "Delta", "zero confirmed")
		assert.NotContains(t, day1, "Epsilon", "zero confirmed on this date")

		day2 := f.build(t, "1/23/20")
		assert.Contains(t, day2, "Epsilon")
	})

	t.Run("every row satisfies the snapshot invariants", func(t *testing.T) {
		for _, col := range []string{"1/22/20", "1/23/20"} {
			for _, row := range f.build(t, col) {
				assert.Greater(t, row.Confirmed, 0.0)
				assert.NotZero(t, row.Latitude)
				assert.NotZero(t, row.Longitude)
				assert.Equal(t, max(row.Confirmed-row.Deaths-row.Recovered, 0), row.Active)
				assert.InDelta(t, row.Deaths/row.Confirmed*100, row.MortalityRate, 1e-9)
			}
		}
	})

	t.Run("keeps confirmed aggregate order", func(t *testing.T) {
		rows, err := BuildSnapshot("1/23/20", f.confirmedTable, f.confirmed, f.deaths, f.recovered)
		require.NoError(t, err)
		countries := make([]string, 0, len(rows))
		for _, row := range rows {
			countries = append(countries, row.Country)
		}
		assert.Equal(t, []string{"Alpha", "Beta", "Epsilon"}, countries)
	})

	t.Run("unknown date is a range error", func(t *testing.T) {
		_, err := BuildSnapshot("2/30/20", f.confirmedTable, f.confirmed, f.deaths, f.recovered)
		var rErr *RangeError
		require.True(t, errors.As(err, &rErr))
		assert.Equal(t, "2/30/20", rErr.Date)
	})
}

func TestNewCountrySnapshot(t *testing.T) {
	coord := Coordinate{Latitude: 1, Longitude: 1}

	zero := NewCountrySnapshot("Nowhere", 0, 0, 0, coord)
	assert.Equal(t, 0.0, zero.MortalityRate)
	assert.Equal(t, 0.0, zero.RecoveryRate)
	assert.False(t, zero.Plottable())

	row := NewCountrySnapshot("Somewhere", 200, 3, 50, coord)
	assert.InDelta(t, 1.5, row.MortalityRate, 1e-9)
	assert.Equal(t, 147.0, row.Active)
	assert.True(t, row.Plottable())
}

func TestResolveCoordinates(t *testing.T) {
	table := mustParse(t, [][]string{
		header("1/22/20"),
		{"A", "Tie", "1.0", "1.0", "5"},
		{"B", "Tie", "2.0", "2.0", "5"},
	})

	t.Run("first row wins ties", func(t *testing.T) {
		coords := ResolveCoordinates(table, "1/22/20")
		assert.Equal(t, Coordinate{Latitude: 1, Longitude: 1}, coords["Tie"])
	})

	t.Run("falls back to the first row without the column", func(t *testing.T) {
		coords := ResolveCoordinates(table, "9/9/99")
		assert.Equal(t, Coordinate{Latitude: 1, Longitude: 1}, coords["Tie"])
	})
}

func TestTopN(t *testing.T) {
	rows := make([]CountrySnapshot, 0, 12)
	for i := 0; i < 12; i++ {
		confirmed := float64(100 + i%4*10)
		deaths := float64(12 - i)
		rows = append(rows, NewCountrySnapshot(fmt.Sprintf("C%02d", i), confirmed, deaths, 0, Coordinate{1, 1}))
	}

	t.Run("returns exactly n rows sorted descending", func(t *testing.T) {
		top := TopN(rows, 10, MetricConfirmed)
		require.Len(t, top, 10)
		for i := 1; i < len(top); i++ {
			assert.GreaterOrEqual(t, top[i-1].Confirmed, top[i].Confirmed)
		}
	})

	t.Run("ties keep input order", func(t *testing.T) {
		top := TopN(rows, 3, MetricConfirmed)
		assert.Equal(t, []string{"C03", "C07", "C11"}, []string{top[0].Country, top[1].Country, top[2].Country})
	})

	t.Run("mortality rate ranks by confirmed", func(t *testing.T) {
		assert.Equal(t, TopN(rows, 5, MetricConfirmed), TopN(rows, 5, MetricMortalityRate))
	})

	t.Run("ranks by the requested metric", func(t *testing.T) {
		top := TopN(rows, 1, MetricDeaths)
		assert.Equal(t, "C00", top[0].Country)
	})

	t.Run("fewer rows than n", func(t *testing.T) {
		assert.Len(t, TopN(rows[:4], 10, MetricConfirmed), 4)
	})

	t.Run("non-positive n", func(t *testing.T) {
		assert.Empty(t, TopN(rows, 0, MetricConfirmed))
		assert.NotNil(t, TopN(rows, -1, MetricConfirmed))
	})

	t.Run("does not reorder the input", func(t *testing.T) {
		_ = TopN(rows, 10, MetricConfirmed)
		assert.Equal(t, "C00", rows[0].Country)
	})
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		value   string
		want    Metric
		wantErr bool
	}{
		{value: "Confirmed", want: MetricConfirmed},
		{value: "deaths", want: MetricDeaths},
		{value: "mortality_rate", want: MetricMortalityRate},
		{value: "Mortality-Rate", want: MetricMortalityRate},
		{value: " active ", want: MetricActive},
		{value: "RECOVERY_RATE", want: MetricRecoveryRate},
		{value: "tests", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseMetric(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeGlobalTotals(t *testing.T) {
	t.Run("sums the snapshot", func(t *testing.T) {
		rows := []CountrySnapshot{
			NewCountrySnapshot("A", 100, 10, 80, Coordinate{1, 1}),
			NewCountrySnapshot("B", 50, 5, 20, Coordinate{1, 1}),
		}
		totals := ComputeGlobalTotals("4/8/21", rows)
		assert.Equal(t, GlobalTotals{
			Date:      "4/8/21",
			Countries: 2,
			Confirmed: 150,
			Deaths:    15,
			Recovered: 100,
			Active:    35,
		}, totals)
	})

	t.Run("recovered above confirmed is shown as confirmed minus deaths", func(t *testing.T) {
		rows := []CountrySnapshot{
			NewCountrySnapshot("A", 100, 10, 150, Coordinate{1, 1}),
		}
		totals := ComputeGlobalTotals("4/8/21", rows)
		assert.Equal(t, 90.0, totals.Recovered)
		assert.Equal(t, 0.0, totals.Active)
		assert.Equal(t, 150.0, rows[0].Recovered, "snapshot rows are not modified")
	})
}
