package cmd

import (
	"context"
	"flag"

	"github.com/etnz/fxledger/renderer"
	"github.com/google/subcommands"
)

// balanceCmd holds the flags for the 'balance' subcommand.
type balanceCmd struct {
	price string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "position, cost basis and valuation" }
func (*balanceCmd) Usage() string {
	return `fx balance [-price <unit price>]

  Reports the units available, their remaining cost in FIFO order, the realized
  gains and the value of the position at the current market price.
  When no price is available the position is valued at 0.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.price, "price", "", "Value the position at this unit price instead of the configured quote source")
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	feed, err := openFeed(s.cfg, c.price)
	if err != nil {
		return failure(err)
	}
	printMarkdown(renderer.RenderSummary(renderer.NewSummary(s.ledger, fetchQuote(ctx, feed))))
	return subcommands.ExitSuccess
}
