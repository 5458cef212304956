package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/fxledger"
)

// LotsMarkdown renders the purchase lots in FIFO order with their totals.
func LotsMarkdown(asset string, lots []fxledger.PurchaseLot, b fxledger.Balance) string {
	var w strings.Builder

	fmt.Fprintf(&w, "# %s Purchase Lots\n\n", asset)
	if len(lots) == 0 {
		fmt.Fprint(&w, "No purchase lots.\n")
		return w.String()
	}
	fmt.Fprintln(&w, "| Period | ID | Units | Unit Cost | Total Cost | Memo |")
	fmt.Fprintln(&w, "|:---|:---|---:|---:|---:|:---|")
	for _, l := range lots {
		fmt.Fprintf(&w, "| %s | %s | %s | %s | %s | %s |\n",
			l.Period, l.ID, l.Units, l.UnitCost, l.TotalCost, cell(l.Memo))
	}
	fmt.Fprintf(&w, "| **Total** | | **%s** | | **%s** | |\n\n", b.UnitsPurchased, totalCost(lots, b.Currency))
	fmt.Fprintf(&w, "Available: %s units at a weighted average cost of %s.\n", b.UnitsAvailable, b.WeightedAverageCost)
	return w.String()
}

func totalCost(lots []fxledger.PurchaseLot, currency string) fxledger.Money {
	sum := fxledger.M(0, currency)
	for _, l := range lots {
		if l.Units.IsPositive() {
			sum = sum.Add(l.TotalCost)
		}
	}
	return sum
}
