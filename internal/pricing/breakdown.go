package pricing

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxBreakdownAlternatives caps the alternatives listed in a breakdown.
const maxBreakdownAlternatives = 2

var rupiah = message.NewPrinter(language.Indonesian)

// FormatRupiah formats an amount with Indonesian digit grouping, e.g. "Rp 88.000".
func FormatRupiah(amount int64) string {
	return rupiah.Sprintf("Rp %d", amount)
}

// WriteBreakdown writes a human-readable itemization of q.
func WriteBreakdown(w io.Writer, q *Quote) error {
	p := rupiah
	var b strings.Builder

	b.WriteString("DELIVERY QUOTE\n")
	b.WriteString("==============\n")
	p.Fprintf(&b, "Distance        : %s km (%d m)\n", q.DistanceKm.String(), q.DistanceMeters)
	p.Fprintf(&b, "Vehicle         : %s\n", q.VehicleType)
	p.Fprintf(&b, "Est. duration   : %d min\n", q.DurationMinutes)

	if r := q.Route; r != nil {
		if r.Method != "" {
			method := r.Method
			if r.Approximate {
				method += " (approximate)"
			}
			p.Fprintf(&b, "Method          : %s\n", method)
		}
		if len(r.RoadNames) > 0 {
			p.Fprintf(&b, "\nRoads (%d of %d):\n", len(r.RoadNames), r.TotalRoads)
			for i, name := range r.RoadNames {
				p.Fprintf(&b, "  %d. %s\n", i+1, name)
			}
		}
		if len(r.Alternatives) > 0 {
			p.Fprintf(&b, "\nAlternatives: %d\n", len(r.Alternatives))
			for i, alt := range r.Alternatives {
				if i == maxBreakdownAlternatives {
					break
				}
				p.Fprintf(&b, "  Route %d: %s km, %d min (%+d min)\n",
					alt.RouteNumber, alt.DistanceKm.String(), alt.DurationMinutes, alt.TimeDiffMinutes)
			}
		}
	}

	b.WriteString("\nCHARGES\n")
	b.WriteString("-------\n")
	p.Fprintf(&b, "Base price      : %s\n", FormatRupiah(q.BasePrice))
	p.Fprintf(&b, "Tier            : %s\n", q.TierRange)
	p.Fprintf(&b, "Rate            : %s/km\n", FormatRupiah(q.RatePerKm))
	p.Fprintf(&b, "Distance charge : %s\n", FormatRupiah(q.DistanceCharge))
	p.Fprintf(&b, "Subtotal        : %s\n", FormatRupiah(q.Subtotal))

	if q.SurgeMultiplier.GreaterThan(one) {
		p.Fprintf(&b, "Surge           : x%s\n", q.SurgeMultiplier.String())
		for _, reason := range q.SurgeReasons {
			p.Fprintf(&b, "  - %s\n", reason)
		}
		p.Fprintf(&b, "With surge      : %s\n", FormatRupiah(q.PriceWithSurge))
	}

	p.Fprintf(&b, "Platform fee %s%%: %s\n", q.PlatformFeePercent.String(), FormatRupiah(q.PlatformFee))
	if q.MinChargeApplied {
		b.WriteString("Minimum charge applied\n")
	}
	p.Fprintf(&b, "TOTAL           : %s\n", FormatRupiah(q.FinalPrice))

	_, err := io.WriteString(w, b.String())
	return err
}
