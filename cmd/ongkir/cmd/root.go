// Package cmd provides the commands of the ongkir CLI.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/simbok/delivery/internal/config"
	"github.com/simbok/delivery/internal/database"
	"github.com/simbok/delivery/internal/pricing"
)

// Version is set at compile time via ldflags.
var Version = "dev"

// options are the persistent flags shared by every command.
type options struct {
	cfgFile string
	verbose bool
}

// NewRootCommand builds the ongkir command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ongkir",
		Short: "Compute SIMBOK local delivery quotes",
		Long: `ongkir prices local deliveries the same way the SIMBOK API does: a tiered
per-km rate, a vehicle multiplier, peak hour, rain and weekend surcharges,
a platform fee, a minimum charge and rounding up to the next Rp 100.

Examples:
  ongkir quote -- -6.2088 106.8456 -6.1751 106.8650
  ongkir quote --vehicle mobil --rain --resolver haversine -- -6.2088 106.8456 -6.1751 106.8650
  ongkir tiers`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", os.Getenv(config.EnvPrefix+"_CONFIG"), "config file (YAML)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log resolver activity to stderr")

	root.AddCommand(newQuoteCommand(opts))
	root.AddCommand(newTiersCommand(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ongkir version %s\n", Version)
		},
	})

	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (o *options) logger(w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).Level(level).With().Timestamp().Logger()
}

// calculator builds the tariff from the config file, or from Postgres when the
// pricing source says so.
func calculator(ctx context.Context, cfg *config.Config) (*pricing.Calculator, error) {
	if cfg.Pricing.Source != config.PricingSourcePostgres {
		tariff, err := cfg.Pricing.Tariff()
		if err != nil {
			return nil, err
		}
		return pricing.NewCalculator(tariff)
	}

	pool, err := database.Connect(ctx, cfg.Database.DatabaseConfig())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	return pricing.LoadCalculator(ctx, pricing.NewPostgresRepository(pool), cfg.Pricing.Profile)
}
