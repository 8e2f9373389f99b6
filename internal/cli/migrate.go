package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/taxi-analytics/backend/internal/repo"
	"github.com/pkordes/taxi-analytics/backend/migrations"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withProvider(cmd.Context(), opts, func(p *goose.Provider, _ *pgxpool.Pool) error {
					results, err := p.Up(cmd.Context())
					if err != nil {
						return errors.Wrap(err, "migrating up")
					}
					if len(results) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					}
					for _, r := range results {
						fmt.Fprintf(cmd.OutOrStdout(), "applied %s (%s)\n", r.Source.Path, r.Duration)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withProvider(cmd.Context(), opts, func(p *goose.Provider, _ *pgxpool.Pool) error {
					r, err := p.Down(cmd.Context())
					if err != nil {
						return errors.Wrap(err, "migrating down")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s (%s)\n", r.Source.Path, r.Duration)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration state, table presence and row counts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withProvider(cmd.Context(), opts, func(p *goose.Provider, pool *pgxpool.Pool) error {
					return printStatus(cmd.Context(), cmd.OutOrStdout(), p, repo.NewSetupRepo(pool))
				})
			},
		},
	)
	return cmd
}

// withProvider connects, builds a goose provider over the pool and runs fn.
func withProvider(ctx context.Context, opts *globalOptions, fn func(*goose.Provider, *pgxpool.Pool) error) error {
	pool, err := opts.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	p, err := migrations.NewProvider(db)
	if err != nil {
		return errors.Wrap(err, "loading migrations")
	}
	return fn(p, pool)
}

func printStatus(ctx context.Context, w io.Writer, p *goose.Provider, setup repo.SetupRepo) error {
	statuses, err := p.Status(ctx)
	if err != nil {
		return errors.Wrap(err, "reading migration status")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MIGRATION\tSTATE\tAPPLIED AT")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Source.Path, s.State, applied)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	status, err := setup.Verify(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RELATION\tPRESENT")
	for _, t := range status.Tables {
		fmt.Fprintf(tw, "%s\t%t\n", t.Name, t.Present)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !status.Ready() {
		fmt.Fprintln(w, "\nschema incomplete: run taxictl migrate up")
		return nil
	}
	fmt.Fprintf(w, "\ntrips: %d  vendors: %d  zones: %d\n", status.Trips, status.Vendors, status.Zones)
	return nil
}
