package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/fxledger"
)

// SalesMarkdown renders the sales in chronological order with the realized totals.
func SalesMarkdown(asset string, sales []fxledger.SaleRecord, totals fxledger.RealizedTotals) string {
	var w strings.Builder

	fmt.Fprintf(&w, "# %s Sales\n\n", asset)
	if len(sales) == 0 {
		fmt.Fprint(&w, "No sales.\n")
		return w.String()
	}
	fmt.Fprintln(&w, "| Period | ID | Units | Unit Price | Proceeds | Cost of Sale | Realized Gain | % | Memo |")
	fmt.Fprintln(&w, "|:---|:---|---:|---:|---:|---:|---:|---:|:---|")
	for _, s := range sales {
		fmt.Fprintf(&w, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			s.Period, s.ID, s.UnitsSold, s.UnitSalePrice, s.TotalSaleValue, s.CostOfSale,
			s.RealizedGain.SignedString(), s.RealizedGainPercent.SignedString(), cell(s.Memo))
	}
	fmt.Fprintf(&w, "| **Total** | | **%s** | | **%s** | **%s** | **%s** | **%s** | |\n",
		totals.UnitsSold, totals.Proceeds, totals.CostOfSales,
		totals.RealizedGain.SignedString(), totals.Percent.SignedString())
	return w.String()
}

// SaleMarkdown renders a single sale with the lots it consumed.
func SaleMarkdown(asset string, s fxledger.SaleRecord) string {
	var w strings.Builder

	fmt.Fprintf(&w, "# Sale %s\n\n", s.ID)
	fmt.Fprintf(&w, "Sold %s %s in %s at %s.\n\n", s.UnitsSold, asset, s.Period, s.UnitSalePrice)
	fmt.Fprintln(&w, "| Metric | Value |")
	fmt.Fprintln(&w, "|:---|---:|")
	fmt.Fprintf(&w, "| Proceeds | %s |\n", s.TotalSaleValue)
	fmt.Fprintf(&w, "| Weighted Average Cost | %s |\n", s.WeightedAverageCostAtSale)
	fmt.Fprintf(&w, "| Cost of Sale | %s |\n", s.CostOfSale)
	fmt.Fprintf(&w, "| Realized Gain | %s |\n", s.RealizedGain.SignedString())
	fmt.Fprintf(&w, "| Realized Gain %% | %s |\n", s.RealizedGainPercent.SignedString())
	renderConsumption(&w, s.Consumed)
	return w.String()
}

// PreviewMarkdown renders the cost basis a sale of units would have.
func PreviewMarkdown(asset string, units fxledger.Quantity, avg, cost fxledger.Money, portions []fxledger.LotConsumption) string {
	var w strings.Builder

	fmt.Fprintf(&w, "# Selling %s %s\n\n", units, asset)
	fmt.Fprintf(&w, "Cost of sale %s, weighted average cost %s.\n", cost, avg)
	renderConsumption(&w, portions)
	return w.String()
}

func renderConsumption(w io.Writer, portions []fxledger.LotConsumption) {
	ConditionalBlock(w, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Lots Consumed\n\n")
		fmt.Fprintln(w, "| Lot | Units | Cost |")
		fmt.Fprintln(w, "|:---|---:|---:|")
		for _, p := range portions {
			fmt.Fprintf(w, "| %s | %s | %s |\n", p.LotID, p.Units, p.Cost)
		}
		return len(portions) > 0
	})
}
