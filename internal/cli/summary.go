package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/repo"
	"github.com/pkordes/taxi-analytics/backend/internal/service"
)

type summaryOptions struct {
	global *globalOptions
	From   string
	To     string
	Format string
}

func newSummaryCommand(global *globalOptions) *cobra.Command {
	o := &summaryOptions{global: global}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the daily trip rollup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dr, err := o.dateRange()
			if err != nil {
				return err
			}
			if o.Format != "table" && o.Format != "csv" && o.Format != "json" {
				return errors.Errorf("format must be table, csv or json, got %q", o.Format)
			}

			pool, err := o.global.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			// No cache: every invocation is a fresh process.
			svc := service.NewSummaryService(repo.NewSummaryRepo(pool), 0)
			rows, err := svc.DailyLive(cmd.Context(), dr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch o.Format {
			case "csv":
				return writeSummaryCSV(out, rows)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			if err := writeSummaryTable(out, rows); err != nil {
				return err
			}
			overall, err := svc.Overall(cmd.Context())
			if err != nil {
				return err
			}
			writeOverall(out, overall)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.From, "from", "", "First trip date, YYYY-MM-DD")
	flags.StringVar(&o.To, "to", "", "Last trip date, YYYY-MM-DD")
	flags.StringVar(&o.Format, "format", "table", "Output format: table, csv or json")
	return cmd
}

func (o *summaryOptions) dateRange() (domain.DateRange, error) {
	var dr domain.DateRange
	for _, b := range []struct {
		name string
		val  string
		dest **time.Time
	}{{"from", o.From, &dr.From}, {"to", o.To, &dr.To}} {
		if b.val == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, b.val)
		if err != nil {
			return domain.DateRange{}, errors.Wrapf(err, "invalid --%s", b.name)
		}
		*b.dest = &d
	}
	return dr, nil
}

var summaryHeader = []string{"trip_date", "total_trips", "avg_distance_km", "avg_fare", "avg_duration_min", "avg_tip_pct"}

func writeSummaryTable(w io.Writer, rows []domain.DailySummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for i, h := range summaryHeader {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw, "\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t\n",
			r.TripDate.Format(time.DateOnly), r.TotalTrips,
			cell(r.AvgDistanceKm, "-"), cell(r.AvgFare, "-"),
			cell(r.AvgDurationMin, "-"), cell(r.AvgTipPct, "-"))
	}
	return tw.Flush()
}

func writeSummaryCSV(w io.Writer, rows []domain.DailySummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.TripDate.Format(time.DateOnly),
			strconv.FormatInt(r.TotalTrips, 10),
			cell(r.AvgDistanceKm, ""), cell(r.AvgFare, ""),
			cell(r.AvgDurationMin, ""), cell(r.AvgTipPct, ""),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeOverall(w io.Writer, s domain.OverallStats) {
	fmt.Fprintf(w, "\noverall: %d trips, avg distance %s km, avg fare %s\n",
		s.TotalTrips, cell(s.AvgDistanceKm, "-"), cell(s.AvgFare, "-"))
}

// cell renders an optional average, using absent for nil.
func cell(v *float64, absent string) string {
	if v == nil {
		return absent
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
