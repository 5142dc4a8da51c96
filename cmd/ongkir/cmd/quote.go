package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/simbok/delivery/internal/api/models"
	"github.com/simbok/delivery/internal/delivery"
	"github.com/simbok/delivery/internal/pricing"
	"github.com/simbok/delivery/internal/routing/backend"
	"github.com/simbok/delivery/pkg/geo"
)

type quoteOptions struct {
	*options
	vehicle    string
	rain       bool
	resolver   string
	preference string
	format     string
	at         string
}

func newQuoteCommand(parent *options) *cobra.Command {
	opts := &quoteOptions{options: parent}

	cmd := &cobra.Command{
		Use:   "quote <origin_lat> <origin_lng> <dest_lat> <dest_lng>",
		Short: "Quote a delivery between two coordinates",
		Long: `Resolve the route between two coordinates and print the itemized quote.

The resolver defaults to routing.provider from the config file. Use
--resolver haversine to price the straight-line distance without network access.
Southern latitudes are negative, so put -- before the coordinates.`,
		Args: cobra.ExactArgs(4),
		RunE: opts.run,
	}

	cmd.Flags().StringVar(&opts.vehicle, "vehicle", string(pricing.VehicleMotor), "vehicle type (motor, mobil)")
	cmd.Flags().BoolVar(&opts.rain, "rain", false, "apply the rain surcharge")
	cmd.Flags().StringVar(&opts.resolver, "resolver", "", "route resolver (haversine, osrm, graphhopper, googlemaps)")
	cmd.Flags().StringVar(&opts.preference, "preference", "fastest", "route preference (fastest, shortest)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format (text, json)")
	cmd.Flags().StringVar(&opts.at, "at", "", "price as of this RFC3339 time instead of now")

	return cmd
}

func (o *quoteOptions) run(cmd *cobra.Command, args []string) error {
	coords := make([]float64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("argument %d: %q is not a coordinate", i+1, arg)
		}
		coords[i] = v
	}
	if o.format != "text" && o.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", o.format)
	}

	now := time.Now()
	if o.at != "" {
		t, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		now = t
	}

	cfg, err := o.load()
	if err != nil {
		return err
	}
	if o.resolver != "" {
		cfg.Routing.Provider = o.resolver
	}

	logger := o.logger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	calc, err := calculator(ctx, cfg)
	if err != nil {
		return err
	}

	routes, err := backend.New(cfg.Routing, nil, logger)
	if err != nil {
		return err
	}
	resolver, err := routes.NewService(cfg.Routing, logger)
	if err != nil {
		return err
	}

	quotes, err := delivery.NewService(delivery.ServiceConfig{
		Calculator: calc,
		Resolver:   resolver,
		Logger:     logger,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		return err
	}

	quote, err := quotes.Quote(ctx, delivery.QuoteRequest{
		Origin:          geo.Point{Lat: coords[0], Lng: coords[1]},
		Destination:     geo.Point{Lat: coords[2], Lng: coords[3]},
		VehicleType:     o.vehicle,
		IsRaining:       o.rain,
		RoutePreference: o.preference,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models.NewQuoteResponse(quote, now))
	}
	return pricing.WriteBreakdown(out, quote)
}
