package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/fxledger"
)

// QuoteMarkdown renders a market quote.
func QuoteMarkdown(asset string, q fxledger.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Quote\n\n", asset)
	fmt.Fprintln(&b, "| Buy | Sell | Time |")
	fmt.Fprintln(&b, "|---:|---:|:---|")
	fmt.Fprintf(&b, "| %s | %s | %s UTC |\n", q.Buy, q.Sell, q.Timestamp.UTC().Format("2006-01-02 15:04"))
	if q.Stale {
		fmt.Fprint(&b, "\nThe source is unavailable, this is the last known value.\n")
	}
	return b.String()
}
