package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/internal/services"
)

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show global totals for a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			totals, err := a.service.Totals(cmd.Context(), opts.selector(cmd))
			if err != nil {
				return err
			}
			dates := a.service.Dates()

			t := newTable(fmt.Sprintf("Global totals on %s", totals.Date), "Figure", "Value")
			t.addRow("Countries", formatCount(float64(totals.Countries)))
			t.addRow("Confirmed", formatCount(totals.Confirmed))
			t.addRow("Deaths", formatCount(totals.Deaths))
			t.addRow("Recovered", formatCount(totals.Recovered))
			t.addRow("Active", formatCount(totals.Active))
			t.addRow("Mortality", formatRate(percentOf(totals.Deaths, totals.Confirmed)))

			out := cmd.OutOrStdout()
			fmt.Fprint(out, t.render())
			fmt.Fprintf(out, "\n%d dates loaded, %s to %s\n", len(dates.Dates), dates.Dates[0], dates.Dates[dates.Latest])
			return nil
		},
	}
}

func newTopCmd(opts *options) *cobra.Command {
	var (
		n      int
		metric string
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank countries by a metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMetric(metric)
			if err != nil {
				return err
			}

			a, cleanup, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := a.service.Top(cmd.Context(), opts.selector(cmd), n, m)
			if err != nil {
				return err
			}

			t := newTable(
				fmt.Sprintf("Top %d by %s on %s", n, m, result.Date),
				"#", "Country", "Confirmed", "Deaths", "Recovered", "Active", "Mortality", "Recovery",
			)
			for i, row := range result.Rows {
				t.addRow(
					strconv.Itoa(i+1),
					row.Country,
					formatCount(row.Confirmed),
					formatCount(row.Deaths),
					formatCount(row.Recovered),
					formatCount(row.Active),
					formatRate(row.MortalityRate),
					formatRate(row.RecoveryRate),
				)
			}

			fmt.Fprint(cmd.OutOrStdout(), t.render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "count", "n", 10, "Number of countries")
	cmd.Flags().StringVarP(&metric, "metric", "m", string(models.MetricConfirmed), "Ranking metric")
	return cmd
}

// continentTotal is the summed metric of one continent
type continentTotal struct {
	name      string
	countries int
	confirmed float64
	deaths    float64
	value     float64
}

// isRate reports whether metric is a percentage rather than a count
func isRate(metric models.Metric) bool {
	return metric == models.MetricMortalityRate || metric == models.MetricRecoveryRate
}

// sumByContinent totals the treemap rows per continent, largest first.
// Rates are not summed: they are recomputed from the continent's deaths and
// confirmed totals, the same formula the country rows use.
func sumByContinent(rows []models.ContinentRow, metric models.Metric) []continentTotal {
	index := make(map[string]int)
	var totals []continentTotal
	for _, row := range rows {
		i, ok := index[row.Continent]
		if !ok {
			i = len(totals)
			index[row.Continent] = i
			totals = append(totals, continentTotal{name: row.Continent})
		}
		totals[i].countries++
		totals[i].confirmed += row.Confirmed
		totals[i].deaths += row.Deaths
		if !isRate(metric) {
			totals[i].value += row.Value(metric)
		}
	}

	if isRate(metric) {
		for i := range totals {
			totals[i].value = percentOf(totals[i].deaths, totals[i].confirmed)
		}
	}

	slices.SortStableFunc(totals, func(a, b continentTotal) int {
		if c := cmp.Compare(b.value, a.value); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	return totals
}

func newContinentsCmd(opts *options) *cobra.Command {
	var metric string

	cmd := &cobra.Command{
		Use:   "continents",
		Short: "Break a metric down by continent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMetric(metric)
			if err != nil {
				return err
			}

			a, cleanup, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := a.service.Treemap(cmd.Context(), opts.selector(cmd), m)
			if err != nil {
				return err
			}

			t := newTable(fmt.Sprintf("%s by continent on %s", m, result.Date), "Continent", "Countries", string(m))
			for _, total := range sumByContinent(result.Rows, m) {
				value := formatCount(total.value)
				if isRate(m) {
					value = formatRate(total.value)
				}
				t.addRow(total.name, strconv.Itoa(total.countries), value)
			}

			fmt.Fprint(cmd.OutOrStdout(), t.render())
			return nil
		},
	}

	cmd.Flags().StringVarP(&metric, "metric", "m", string(models.MetricConfirmed), "Metric to break down")
	return cmd
}

func newCountryCmd(opts *options) *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "country NAME [NAME...]",
		Short: "Show the history of one or more countries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			// A single name must exist; several names are compared and
			// unknown ones skipped
			var series []models.CountrySeries
			if len(args) == 1 {
				one, err := a.service.CountrySeries(args[0])
				if err != nil {
					return err
				}
				series = append(series, one)
			} else {
				series, err = a.service.Compare(args)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, s := range series {
				points := s.Points
				if last > 0 && last < len(points) {
					points = points[len(points)-last:]
				}

				t := newTable(s.Country, "Date", "Confirmed", "Deaths", "Recovered", "Active")
				for _, p := range points {
					t.addRow(p.Label, formatCount(p.Confirmed), formatCount(p.Deaths), formatCount(p.Recovered), formatCount(p.Active))
				}
				fmt.Fprintln(out, t.render())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&last, "last", 14, "Show only the last N dates, 0 for all")
	return cmd
}

func newAnimateCmd(opts *options) *cobra.Command {
	var (
		interval time.Duration
		loop     bool
		metric   string
	)

	cmd := &cobra.Command{
		Use:   "animate",
		Short: "Play the totals through every date",
		Long: `animate starts at the first date and advances one date per interval,
printing the global totals and the leading country. It stops after the last
date unless --loop is set, and on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMetric(metric)
			if err != nil {
				return err
			}

			a, cleanup, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if interval <= 0 {
				interval = a.cfg.Playback.Interval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return animate(ctx, a, cmd.OutOrStdout(), interval, m, loop)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Time per date (default: playback.interval)")
	cmd.Flags().BoolVar(&loop, "loop", false, "Restart from the first date after the last")
	cmd.Flags().StringVarP(&metric, "metric", "m", string(models.MetricConfirmed), "Metric used to pick the leading country")
	return cmd
}

// animate drives a Player from the first date, writing one line per frame
func animate(ctx context.Context, a *app, out io.Writer, interval time.Duration, metric models.Metric, loop bool) error {
	frames := a.service.Dataset().Len()
	player, err := services.NewPlayer(frames, a.metrics)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var frameErr error
	render := func(idx int) {
		if err := writeFrame(ctx, a.service, out, idx, metric); err != nil {
			frameErr = err
			cancel()
			return
		}
		if idx == frames-1 && !loop {
			cancel()
		}
	}

	player.Reset()
	player.Play()
	render(player.Index())
	if frames == 1 && !loop {
		return frameErr
	}

	err = player.Run(ctx, interval, render)
	if frameErr != nil {
		return frameErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func writeFrame(ctx context.Context, service *services.DashboardService, out io.Writer, idx int, metric models.Metric) error {
	sel := services.AtIndex(idx)

	totals, err := service.Totals(ctx, sel)
	if err != nil {
		return err
	}
	top, err := service.Top(ctx, sel, 1, metric)
	if err != nil {
		return err
	}

	leader := "-"
	if len(top.Rows) > 0 {
		leader = top.Rows[0].Country
	}

	_, err = fmt.Fprintf(out, "%-9s confirmed %14s  deaths %12s  recovered %14s  active %14s  leader %s\n",
		totals.Date,
		formatCount(totals.Confirmed),
		formatCount(totals.Deaths),
		formatCount(totals.Recovered),
		formatCount(totals.Active),
		leader,
	)
	return err
}
