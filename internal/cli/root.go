// Package cli implements taxictl, the operator command line for the taxi
// analytics store: schema migrations, CSV imports, rollup reports and
// synthetic sample data.
//
// Every flag can also be set from the environment (the flag name upper-cased
// with dashes turned into underscores, so --database-url reads DATABASE_URL)
// or from a TOML file named by --config. A .env file in the working directory
// is loaded first. Flags win over the environment, which wins over the file.
package cli

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	DatabaseURL string
	LogLevel    string
	ConfigFile  string
}

// NewRootCommand builds the taxictl command tree. Output goes to stdout and
// diagnostics to stderr; import reads from stdin when given "-".
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	rc := &cobra.Command{
		Use:   "taxictl",
		Short: "taxictl - operate the taxi analytics store",
		Long: `Manage the taxi analytics schema, import raw trip CSVs and
print the daily rollup.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			return setAllConfig(viper.New(), cmd.Flags(), "")
		},
	}

	pf := rc.PersistentFlags()
	pf.StringVar(&opts.DatabaseURL, "database-url", "", "Postgres connection string")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "Minimum log level: debug, info, warn or error")
	pf.StringVar(&opts.ConfigFile, "config", "", "TOML file with flag values")

	rc.AddCommand(
		newMigrateCommand(opts),
		newImportCommand(opts),
		newSummaryCommand(opts),
		newSampleCommand(),
	)
	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// connect opens and pings a pool. The caller closes it.
func (o *globalOptions) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if o.DatabaseURL == "" {
		return nil, errors.New("no database configured: set --database-url or DATABASE_URL")
	}
	pool, err := pgxpool.New(ctx, o.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "opening database pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "connecting to database")
	}
	return pool, nil
}

// logger writes human-readable lines to w at the configured level.
func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// setAllConfig fills every flag in flags that was not set on the command
// line from viper, which consults the environment and then the --config file.
// Environment names are the flag names upper-cased with dashes replaced by
// underscores, prefixed by envPrefix and an underscore when envPrefix is set.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file '%s'", c)
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		// A flag set on the command line has the highest priority.
		if flagErr != nil || f.Changed {
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			flagErr = errors.Wrapf(err, "invalid value for %s", f.Name)
		}
	})
	return flagErr
}
