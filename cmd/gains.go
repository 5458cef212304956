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

// gainsCmd holds the flags for the 'gains' subcommand.
type gainsCmd struct {
	from string
	to   string
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "realized gains per year or over a range of periods" }
func (*gainsCmd) Usage() string {
	return `fx gains [-from <YYYY-MM> -to <YYYY-MM>]

  Reports the realized gains of the sales per calendar year, or the total of
  the sales whose period is within the range.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First period of the range (YYYY-MM)")
	f.StringVar(&c.to, "to", "", "Last period of the range (YYYY-MM)")
}

func (c *gainsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.from == "") != (c.to == "") {
		fmt.Fprintln(os.Stderr, "-from and -to must be used together")
		return subcommands.ExitUsageError
	}
	var from, to fxledger.Period
	if c.from != "" {
		var err error
		if from, err = fxledger.ParsePeriod(c.from); err != nil {
			return failure(err)
		}
		if to, err = fxledger.ParsePeriod(c.to); err != nil {
			return failure(err)
		}
	}

	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()
	l := s.ledger

	if c.from != "" {
		printMarkdown(renderer.GainsMarkdown(l.Asset(), nil, l.RealizedTotalsBetween(from, to)))
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.GainsMarkdown(l.Asset(), l.RealizedByYear(), l.RealizedTotals()))
	return subcommands.ExitSuccess
}
