package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/simbok/delivery/internal/pricing"
)

func newTiersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Print the active tariff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			calc, err := calculator(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			tariff := calc.Config()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			fmt.Fprintln(tw, "TIER\tMOTOR/KM\tMOBIL/KM")
			mobil := calc.VehicleMultiplier(pricing.VehicleMobil)
			for _, t := range calc.Tiers() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Label(),
					pricing.FormatRupiah(t.RatePerKm.IntPart()),
					pricing.FormatRupiah(t.RatePerKm.Mul(mobil).IntPart()))
			}
			fmt.Fprintln(tw)
			fmt.Fprintf(tw, "Base price\t%s\n", pricing.FormatRupiah(tariff.BasePrice.IntPart()))
			fmt.Fprintf(tw, "Minimum charge\t%s\n", pricing.FormatRupiah(tariff.MinCharge.IntPart()))
			fmt.Fprintf(tw, "Distance\t%s-%s km\n", tariff.MinDistanceKm, tariff.MaxDistanceKm)
			fmt.Fprintf(tw, "Platform fee\t%s%%\n", tariff.PlatformFeePercent)
			fmt.Fprintf(tw, "Peak hours\t%s (x%s)\n", hours(tariff.SurgeHours), tariff.SurgeMultiplier)
			fmt.Fprintf(tw, "Rain\tx%s\n", tariff.RainMultiplier)
			fmt.Fprintf(tw, "Weekend\tx%s\n", tariff.PeakDayMultiplier)
			fmt.Fprintf(tw, "Timezone\t%s\n", calc.Location())

			return tw.Flush()
		},
	}
}

func hours(hs []int) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = strconv.Itoa(h) + ":00"
	}
	return strings.Join(parts, ", ")
}
