package renderer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/fxledger"
)

// GainsMarkdown renders the realized gains per calendar year.
func GainsMarkdown(asset string, byYear map[int]fxledger.RealizedTotals, total fxledger.RealizedTotals) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Realized Gains\n\n", asset)
	if total.Sales == 0 {
		fmt.Fprint(&b, "No sales.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Year | Sales | Units Sold | Proceeds | Cost of Sales | Realized Gain | % |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|---:|")
	for _, year := range slices.Sorted(maps.Keys(byYear)) {
		fmt.Fprintf(&b, "| %d | %s |\n", year, totalsRow(byYear[year]))
	}
	fmt.Fprintf(&b, "| **Total** | %s |\n", totalsRow(total))
	return b.String()
}

func totalsRow(t fxledger.RealizedTotals) string {
	return fmt.Sprintf("%d | %s | %s | %s | %s | %s",
		t.Sales, t.UnitsSold, t.Proceeds, t.CostOfSales,
		t.RealizedGain.SignedString(), t.Percent.SignedString())
}
