package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fxledger"
	"github.com/etnz/fxledger/renderer"
	"github.com/google/subcommands"
)

// sellCmd holds the flags for the 'sell' subcommand.
type sellCmd struct {
	period  string
	memo    string
	preview bool
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale, consuming lots in FIFO order" }
func (*sellCmd) Usage() string {
	return `fx sell [-p <YYYY-MM>] [-m <memo>] <units> <unit price>
fx sell -preview <units>

  Records the sale of <units> of the asset at <unit price> each. Its cost basis
  is computed from the oldest lots first and frozen.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "", "Period of the sale (YYYY-MM). Defaults to the current month.")
	f.StringVar(&c.memo, "m", "", "Free text memo")
	f.BoolVar(&c.preview, "preview", false, "Show the cost basis without recording the sale")
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	want := 2
	if c.preview {
		want = 1
	}
	if f.NArg() != want {
		fmt.Fprintln(os.Stderr, "sell requires <units> and <unit price>, or -preview <units>")
		return subcommands.ExitUsageError
	}
	units, err := fxledger.ParseQuantity(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid units %q: %v\n", f.Arg(0), err)
		return subcommands.ExitUsageError
	}

	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()
	l := s.ledger

	if c.preview {
		avg, cost, portions, err := l.PreviewSale(units)
		if err != nil {
			return failure(err)
		}
		printMarkdown(renderer.PreviewMarkdown(l.Asset(), units, avg, cost, portions))
		return subcommands.ExitSuccess
	}

	var period fxledger.Period
	if c.period != "" {
		if period, err = fxledger.ParsePeriod(c.period); err != nil {
			return failure(err)
		}
	}
	price, err := fxledger.ParseMoney(f.Arg(1), l.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid unit price %q: %v\n", f.Arg(1), err)
		return subcommands.ExitUsageError
	}
	r, err := l.Sell(ctx, fxledger.SaleRequest{Period: period, Units: units, UnitPrice: price, Memo: c.memo})
	if err != nil {
		return failure(err)
	}
	printMarkdown(renderer.SaleMarkdown(l.Asset(), r))
	return subcommands.ExitSuccess
}

// rmSaleCmd holds the flags for the 'rm-sale' subcommand.
type rmSaleCmd struct{}

func (*rmSaleCmd) Name() string     { return "rm-sale" }
func (*rmSaleCmd) Synopsis() string { return "remove sales" }
func (*rmSaleCmd) Usage() string {
	return `fx rm-sale <sale id>...

  Removes the sales. Their units become available again.
`
}

func (*rmSaleCmd) SetFlags(*flag.FlagSet) {}

func (*rmSaleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "rm-sale requires at least one <sale id>")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	for _, id := range f.Args() {
		if _, found := s.ledger.Sale(id); !found {
			fmt.Fprintf(os.Stderr, "unknown sale %q, skipped\n", id)
			continue
		}
		if err := s.ledger.RemoveSale(ctx, id); err != nil {
			return failure(err)
		}
		fmt.Printf("Removed sale %s\n", id)
	}
	return subcommands.ExitSuccess
}

// salesCmd holds the flags for the 'sales' subcommand.
type salesCmd struct{}

func (*salesCmd) Name() string     { return "sales" }
func (*salesCmd) Synopsis() string { return "list sales with their realized gains" }
func (*salesCmd) Usage() string {
	return `fx sales [<sale id>]

  Lists the sales, or details the lots consumed by one sale.
`
}

func (*salesCmd) SetFlags(*flag.FlagSet) {}

func (*salesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "sales accepts at most one <sale id>")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()
	l := s.ledger

	if f.NArg() == 1 {
		r, found := l.Sale(f.Arg(0))
		if !found {
			fmt.Fprintf(os.Stderr, "unknown sale %q\n", f.Arg(0))
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.SaleMarkdown(l.Asset(), r))
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.SalesMarkdown(l.Asset(), l.Sales(), l.RealizedTotals()))
	return subcommands.ExitSuccess
}
