package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pkordes/taxi-analytics/backend/internal/csvsource"
	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/metrics"
	"github.com/pkordes/taxi-analytics/backend/internal/repo"
	"github.com/pkordes/taxi-analytics/backend/internal/service"
)

type importOptions struct {
	global        *globalOptions
	DryRun        bool
	BatchSize     int
	Concurrency   int
	MatchRadiusKm float64
}

// importTotals tallies records across every batch of one import.
type importTotals struct {
	Accepted int
	Rejected int
	Skipped  int // rows the CSV reader could not parse
}

func newImportCommand(global *globalOptions) *cobra.Command {
	o := &importOptions{global: global}
	cmd := &cobra.Command{
		Use:   "import <csv|->",
		Short: "Import raw trips from a CSV file",
		Long: `Import raw trips from a CSV file, or from stdin when the argument is "-".
The header may use the sample-data column names or the NYC TLC ones
(tpep_pickup_datetime, PULocationID, trip_distance in miles, ...).

With --dry-run nothing is written: records are parsed, derived and validated
in process and the resulting daily rollup is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			src, err := csvsource.NewSource(r)
			if err != nil {
				return errors.Wrapf(err, "reading %s", args[0])
			}
			if o.DryRun {
				return o.dryRun(src, cmd.OutOrStdout(), cmd.ErrOrStderr())
			}
			return o.ingest(cmd.Context(), src, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&o.DryRun, "dry-run", false, "Validate and roll up in process without touching the database")
	flags.IntVar(&o.BatchSize, "batch-size", 500, "Records per ingest batch")
	flags.IntVar(&o.Concurrency, "ingest-concurrency", service.DefaultIngestConcurrency, "Records processed at once within a batch")
	flags.Float64Var(&o.MatchRadiusKm, "zone-match-radius-km", 0, "Reuse the nearest known zone within this distance; 0 disables")
	return cmd
}

func openInput(stdin io.Reader, path string) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening input")
	}
	return f, func() { _ = f.Close() }, nil
}

func (o *importOptions) ingest(ctx context.Context, src *csvsource.Source, stdout, stderr io.Writer) error {
	if o.BatchSize < 1 {
		return errors.Errorf("batch-size must be at least 1, got %d", o.BatchSize)
	}

	pool, err := o.global.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	log := o.global.logger(stderr)
	m, err := metrics.NewGlobal()
	if err != nil {
		return err
	}
	cfg := service.DefaultResolverConfig
	cfg.MatchRadiusKm = o.MatchRadiusKm
	resolver := service.NewResolver(repo.NewVendorRepo(pool), repo.NewZoneRepo(pool), cfg, m, log)
	svc := service.NewIngestService(repo.NewTripRepo(pool), resolver, service.IngestOptions{
		Concurrency: o.Concurrency,
		Metrics:     m,
		Logger:      log,
	})

	var (
		totals importTotals
		offset int
	)
	for {
		raws, skipped, readErr := readBatch(src, o.BatchSize, stderr)
		totals.Skipped += skipped
		if len(raws) > 0 {
			res, err := svc.IngestBatch(ctx, raws)
			totals.Accepted += res.Accepted
			totals.Rejected += res.Rejected
			reportRejections(stderr, offset, res.Outcomes)
			if err != nil {
				return errors.Wrapf(err, "batch %s interrupted", res.BatchID)
			}
			offset += len(raws)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.Wrap(readErr, "reading csv")
		}
	}

	fmt.Fprintf(stdout, "imported %d trips: %d rejected, %d unreadable rows skipped\n",
		totals.Accepted, totals.Rejected, totals.Skipped)
	return nil
}

// dryRun normalizes every record in memory and prints the rollup the
// database view would produce for the accepted ones.
func (o *importOptions) dryRun(src *csvsource.Source, stdout, stderr io.Writer) error {
	var (
		totals importTotals
		trips  []domain.Trip
	)
	for {
		raws, skipped, readErr := readBatch(src, max(o.BatchSize, 1), stderr)
		totals.Skipped += skipped
		outcomes := make([]domain.Outcome, len(raws))
		for i, raw := range raws {
			t, err := service.Normalize(raw)
			if err != nil {
				outcomes[i] = domain.Outcome{Index: i, Reason: domain.ReasonOf(err), Message: err.Error()}
				totals.Rejected++
				continue
			}
			outcomes[i] = domain.Outcome{Index: i, Accepted: true}
			trips = append(trips, t)
			totals.Accepted++
		}
		reportRejections(stderr, totals.Accepted+totals.Rejected-len(raws), outcomes)
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.Wrap(readErr, "reading csv")
		}
	}

	if err := writeSummaryTable(stdout, service.Rollup(trips, domain.DateRange{})); err != nil {
		return err
	}
	writeOverall(stdout, service.Overall(trips))
	fmt.Fprintf(stdout, "dry run: %d trips would be imported, %d rejected, %d unreadable rows skipped\n",
		totals.Accepted, totals.Rejected, totals.Skipped)
	return nil
}

// readBatch pulls up to n records from src. Rows the reader cannot parse are
// reported to w and skipped. io.EOF is returned together with the final,
// possibly empty, batch.
func readBatch(src *csvsource.Source, n int, w io.Writer) ([]domain.RawTrip, int, error) {
	var (
		raws    []domain.RawTrip
		skipped int
	)
	for len(raws) < n {
		raw, err := src.Next()
		if err == io.EOF {
			return raws, skipped, io.EOF
		}
		var rowErr *csvsource.RowError
		if errors.As(err, &rowErr) {
			fmt.Fprintf(w, "skipped %v\n", rowErr)
			skipped++
			continue
		}
		if err != nil {
			return raws, skipped, err
		}
		raws = append(raws, raw)
	}
	return raws, skipped, nil
}

// reportRejections prints one line per rejected outcome. Record numbers are
// 1-based positions among readable rows.
func reportRejections(w io.Writer, offset int, outcomes []domain.Outcome) {
	for _, o := range outcomes {
		if !o.Accepted {
			fmt.Fprintf(w, "record %d rejected (%s): %s\n", offset+o.Index+1, o.Reason, o.Message)
		}
	}
}
