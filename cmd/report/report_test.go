package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pandemic-dashboard/internal/models"
)

const (
	seriesHeader = "Province/State,Country/Region,Lat,Long,1/22/20,1/23/20,1/24/20\n"

	confirmedCSV = seriesHeader +
		",Alpha,10,20,1000,2000,3000\n" +
		",Italy,41.9,12.6,5,50,1500\n" +
		"North,Beta,1,1,3,4,5\n" +
		"South,Beta,2,2,1,1,1\n"
	deathsCSV = seriesHeader +
		",Alpha,10,20,0,10,30\n" +
		",Italy,41.9,12.6,0,1,150\n" +
		"North,Beta,1,1,0,0,1\n" +
		"South,Beta,2,2,0,0,0\n"
	recoveredCSV = seriesHeader +
		",Alpha,10,20,0,100,300\n" +
		",Italy,41.9,12.6,0,0,10\n" +
		"North,Beta,1,1,0,1,1\n" +
		"South,Beta,2,2,0,0,1\n"
)

// writeFixture writes the series and a config.yaml pointing at them
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	paths := make(map[string]string)
	for name, body := range map[string]string{
		"confirmed": confirmedCSV,
		"deaths":    deathsCSV,
		"recovered": recoveredCSV,
	} {
		path := filepath.Join(dir, name+".csv")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		paths[name] = path
	}

	configPath := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf(`data:
  source: file
  confirmed_path: %q
  deaths_path: %q
  recovered_path: %q
logging:
  level: error
playback:
  interval: 1ms
`, paths["confirmed"], paths["deaths"], paths["recovered"])
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	return configPath
}

func runReport(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", writeFixture(t)}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "1,234,567", formatCount(1234567))
	assert.Equal(t, "1,000", formatCount(999.6))

	assert.Equal(t, "0.00%", formatRate(0))
	assert.Equal(t, "10.00%", formatRate(10))
	assert.Equal(t, "33.33%", formatRate(100.0/3))

	assert.InDelta(t, 33.333, percentOf(1, 3), 0.001)
	assert.Equal(t, 0.0, percentOf(5, 0))
}

func TestTableRender(t *testing.T) {
	tbl := newTable("Title", "Country", "Confirmed")
	tbl.addRow("Alpha", "1,000")
	tbl.addRow("Beta")

	rendered := tbl.render()
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Title")
	assert.Contains(t, lines[1], "Country")
	assert.Contains(t, lines[1], "Confirmed")
	assert.Contains(t, lines[3], "Alpha")
	assert.Contains(t, lines[3], "1,000")
	assert.Contains(t, lines[4], "Beta")
}

func TestSumByContinent(t *testing.T) {
	rows := []models.ContinentRow{
		{Continent: "Europe", CountrySnapshot: models.CountrySnapshot{Country: "Italy", Confirmed: 10, Deaths: 1, MortalityRate: 10}},
		{Continent: "Asia", CountrySnapshot: models.CountrySnapshot{Country: "Japan", Confirmed: 30, Deaths: 3, MortalityRate: 10}},
		{Continent: "Europe", CountrySnapshot: models.CountrySnapshot{Country: "Spain", Confirmed: 25, Deaths: 6, MortalityRate: 24}},
		{Continent: "Africa", CountrySnapshot: models.CountrySnapshot{Country: "Kenya", Confirmed: 30, Deaths: 3, MortalityRate: 10}},
	}

	t.Run("counts are summed", func(t *testing.T) {
		totals := sumByContinent(rows, models.MetricConfirmed)
		require.Len(t, totals, 3)
		assert.Equal(t, "Europe", totals[0].name)
		assert.Equal(t, 2, totals[0].countries)
		assert.Equal(t, 35.0, totals[0].value)
		// Ties are broken by name
		assert.Equal(t, "Africa", totals[1].name)
		assert.Equal(t, "Asia", totals[2].name)
	})

	t.Run("rates are recomputed from totals", func(t *testing.T) {
		for _, metric := range []models.Metric{models.MetricMortalityRate, models.MetricRecoveryRate} {
			totals := sumByContinent(rows, metric)
			require.Len(t, totals, 3, metric)

			assert.Equal(t, "Europe", totals[0].name, metric)
			// 7 deaths over 35 confirmed, not 10% + 24%
			assert.InDelta(t, 20.0, totals[0].value, 1e-9, metric)
			assert.InDelta(t, 10.0, totals[1].value, 1e-9, metric)
		}
	})
}

func TestReportCommands(t *testing.T) {
	t.Run("summary", func(t *testing.T) {
		out, err := runReport(t, "summary")
		require.NoError(t, err)

		assert.Contains(t, out, "Global totals on 1/24/20")
		assert.Contains(t, out, "4,506")
		assert.Contains(t, out, "4,013")
		assert.Contains(t, out, "3 dates loaded, 1/22/20 to 1/24/20")
	})

	t.Run("summary at an index", func(t *testing.T) {
		out, err := runReport(t, "summary", "--index", "0")
		require.NoError(t, err)
		assert.Contains(t, out, "Global totals on 1/22/20")
	})

	t.Run("summary at an unknown date", func(t *testing.T) {
		_, err := runReport(t, "summary", "--date", "2/2/20")

		var rangeErr *models.RangeError
		assert.ErrorAs(t, err, &rangeErr)
	})

	t.Run("top", func(t *testing.T) {
		out, err := runReport(t, "top", "-n", "1", "-m", "deaths")
		require.NoError(t, err)

		assert.Contains(t, out, "Top 1 by Deaths on 1/24/20")
		assert.Contains(t, out, "Italy")
		assert.Contains(t, out, "10.00%")
		assert.NotContains(t, out, "Alpha")
	})

	t.Run("top with an unknown metric", func(t *testing.T) {
		_, err := runReport(t, "top", "-m", "hospitalised")

		var validationErr *models.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("continents", func(t *testing.T) {
		out, err := runReport(t, "continents")
		require.NoError(t, err)

		other := strings.Index(out, models.ContinentOther)
		europe := strings.Index(out, "Europe")
		require.Positive(t, other)
		require.Positive(t, europe)
		assert.Less(t, other, europe)
		assert.Contains(t, out, "3,006")
	})

	t.Run("continents by mortality rate", func(t *testing.T) {
		out, err := runReport(t, "continents", "-m", "mortality_rate")
		require.NoError(t, err)

		// Other holds Alpha and Beta: 31 deaths over 3,006 confirmed
		assert.Contains(t, out, "1.03%")
		assert.NotContains(t, out, "17.67%")
		assert.Contains(t, out, "10.00%")
		assert.Less(t, strings.Index(out, "Europe"), strings.Index(out, models.ContinentOther))
	})

	t.Run("country", func(t *testing.T) {
		out, err := runReport(t, "country", "Italy", "--last", "2")
		require.NoError(t, err)

		assert.Contains(t, out, "1/23/20")
		assert.Contains(t, out, "1,500")
		assert.NotContains(t, out, "1/22/20")
	})

	t.Run("unknown country", func(t *testing.T) {
		_, err := runReport(t, "country", "Atlantis")

		var notFound *models.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("compare countries", func(t *testing.T) {
		out, err := runReport(t, "country", "Beta", "Atlantis", "Alpha")
		require.NoError(t, err)

		beta := strings.Index(out, "Beta")
		alpha := strings.Index(out, "Alpha")
		require.GreaterOrEqual(t, beta, 0)
		assert.Greater(t, alpha, beta)
	})

	t.Run("animate", func(t *testing.T) {
		out, err := runReport(t, "animate", "--interval", "1ms")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "1/22/20"))
		assert.Contains(t, lines[0], "leader Alpha")
		assert.True(t, strings.HasPrefix(lines[2], "1/24/20"))
		assert.Contains(t, lines[2], "4,506")
	})
}
