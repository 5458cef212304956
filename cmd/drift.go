package cmd

import (
	"context"
	"flag"

	"github.com/etnz/fxledger/renderer"
	"github.com/google/subcommands"
)

// driftCmd holds the flags for the 'drift' subcommand.
type driftCmd struct{}

func (*driftCmd) Name() string     { return "drift" }
func (*driftCmd) Synopsis() string { return "sales whose cost basis differs from the current lots" }
func (*driftCmd) Usage() string {
	return `fx drift

  Replays the sales against the current lots and lists those whose frozen cost
  basis would now be different, typically after a lot was edited or removed.
`
}

func (*driftCmd) SetFlags(*flag.FlagSet) {}

func (*driftCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	printMarkdown(renderer.DriftMarkdown(s.ledger.Drift()))
	return subcommands.ExitSuccess
}
