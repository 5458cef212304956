package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/fxledger"
)

// DriftMarkdown renders the sales whose frozen cost basis differs from the one
// the current lots would produce.
func DriftMarkdown(drifts []fxledger.SaleDrift) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Cost Basis Drift\n\n")
	if len(drifts) == 0 {
		fmt.Fprint(&b, "Every sale matches the current lots.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Sale | Period | Units | Covered | Frozen Cost | Current Cost | Delta | Frozen Gain | Current Gain |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|---:|---:|---:|")
	for _, d := range drifts {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			d.Sale.ID, d.Sale.Period, d.Sale.UnitsSold, d.Covered,
			d.Sale.CostOfSale, d.CostOfSale, d.Delta().SignedString(),
			d.Sale.RealizedGain.SignedString(), d.RealizedGain.SignedString())
	}
	fmt.Fprint(&b, "\nRecorded sales keep their frozen cost basis.\n")
	return b.String()
}
