package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fxledger/renderer"
	"github.com/google/subcommands"
)

// quoteCmd holds the flags for the 'quote' subcommand.
type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "current market price of the asset" }
func (*quoteCmd) Usage() string {
	return `fx quote

  Fetches the current quote from the configured source.
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		return failure(err)
	}
	feed, err := openFeed(cfg, "")
	if err != nil {
		return failure(err)
	}
	if feed == nil {
		fmt.Fprintln(os.Stderr, "no quote source configured")
		return subcommands.ExitFailure
	}
	q, err := feed.CurrentPrice(ctx)
	if err != nil {
		return failure(err)
	}
	printMarkdown(renderer.QuoteMarkdown(cfg.Asset, q))
	return subcommands.ExitSuccess
}
