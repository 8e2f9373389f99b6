package cli

import (
	"encoding/csv"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pkordes/taxi-analytics/backend/internal/geo"
)

type sampleOptions struct {
	Rows int
	Seed uint64
}

func newSampleCommand() *cobra.Command {
	o := &sampleOptions{}
	cmd := &cobra.Command{
		Use:   "sample [csv|-]",
		Short: "Write a synthetic trip CSV",
		Long: `Write synthetic Manhattan-area trips in January 2024 as a CSV that
"taxictl import" accepts. Output goes to stdout unless a path is given.
The same --seed always produces the same file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.Rows < 1 {
				return errors.Errorf("rows must be at least 1, got %d", o.Rows)
			}
			w := cmd.OutOrStdout()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return errors.Wrap(err, "creating output")
				}
				defer f.Close()
				w = f
			}
			if err := o.write(w); err != nil {
				return errors.Wrap(err, "writing sample")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&o.Rows, "rows", 1000, "Number of trips to generate")
	flags.Uint64Var(&o.Seed, "seed", 1, "Random seed")
	return cmd
}

var sampleHeader = []string{
	"vendor_code", "pickup_datetime", "dropoff_datetime",
	"pickup_lat", "pickup_lon", "dropoff_lat", "dropoff_lon",
	"passenger_count", "trip_distance_km", "fare_amount", "tip_amount",
}

// write emits o.Rows valid trips. Dropoffs land within about a kilometre of
// the pickup, 5 to 60 minutes later.
func (o *sampleOptions) write(w io.Writer) error {
	rng := rand.New(rand.NewPCG(o.Seed, o.Seed))
	between := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	num := func(f float64, prec int) string { return strconv.FormatFloat(f, 'f', prec, 64) }
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cw := csv.NewWriter(w)
	if err := cw.Write(sampleHeader); err != nil {
		return err
	}
	for range o.Rows {
		pickup := base.Add(time.Duration(rng.IntN(31))*24*time.Hour +
			time.Duration(rng.IntN(24))*time.Hour +
			time.Duration(rng.IntN(60))*time.Minute)
		dropoff := pickup.Add(time.Duration(5+rng.IntN(56)) * time.Minute)

		from := geo.Point{Lat: between(40.7, 40.8), Lon: between(-74.0, -73.9)}
		to := geo.Point{Lat: from.Lat + between(-0.01, 0.01), Lon: from.Lon + between(-0.01, 0.01)}

		if err := cw.Write([]string{
			strconv.Itoa(1 + rng.IntN(2)),
			pickup.Format(time.DateTime),
			dropoff.Format(time.DateTime),
			num(from.Lat, 6), num(from.Lon, 6), num(to.Lat, 6), num(to.Lon, 6),
			strconv.Itoa(1 + rng.IntN(6)),
			num(geo.HaversineKm(from, to), 2),
			num(between(5, 50), 2),
			num(between(0, 10), 2),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
