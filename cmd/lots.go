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

// buyCmd holds the flags for the 'buy' subcommand.
type buyCmd struct {
	period string
	memo   string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase lot" }
func (*buyCmd) Usage() string {
	return `fx buy [-p <YYYY-MM>] [-m <memo>] <units> <unit cost>

  Records the purchase of <units> of the asset at <unit cost> each, in the cost currency.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "", "Period of the purchase (YYYY-MM). Defaults to the current month.")
	f.StringVar(&c.memo, "m", "", "Free text memo")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "buy requires <units> and <unit cost>")
		return subcommands.ExitUsageError
	}
	period, err := periodOrNow(c.period)
	if err != nil {
		return failure(err)
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

	cost, err := fxledger.ParseMoney(f.Arg(1), s.ledger.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid unit cost %q: %v\n", f.Arg(1), err)
		return subcommands.ExitUsageError
	}
	lot, err := s.ledger.AddLot(ctx, fxledger.LotInput{Period: period, Units: units, UnitCost: cost, Memo: c.memo})
	if err != nil {
		return failure(err)
	}
	fmt.Printf("Recorded lot %s: %s %s at %s (total %s)\n", lot.ID, lot.Units, s.ledger.Asset(), lot.UnitCost, lot.TotalCost)
	return subcommands.ExitSuccess
}

// editCmd holds the flags for the 'edit' subcommand.
type editCmd struct {
	period string
	units  string
	cost   string
	memo   string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "edit a purchase lot" }
func (*editCmd) Usage() string {
	return `fx edit [-p <YYYY-MM>] [-units <units>] [-cost <unit cost>] [-m <memo>] <lot id>

  Replaces the fields given as flags, the others are kept.
  Recorded sales keep their cost basis, use 'fx drift' to review them.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "", "New period (YYYY-MM)")
	f.StringVar(&c.units, "units", "", "New number of units")
	f.StringVar(&c.cost, "cost", "", "New unit cost")
	f.StringVar(&c.memo, "m", "", "New memo")
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "edit requires exactly one <lot id>")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	lot, found := s.ledger.Lot(f.Arg(0))
	if !found {
		fmt.Fprintf(os.Stderr, "unknown lot %q\n", f.Arg(0))
		return subcommands.ExitFailure
	}
	in := fxledger.LotInput{Period: lot.Period, Units: lot.Units, UnitCost: lot.UnitCost, Memo: lot.Memo}

	var perr error
	f.Visit(func(fl *flag.Flag) {
		var err error
		switch fl.Name {
		case "p":
			in.Period, err = fxledger.ParsePeriod(c.period)
		case "units":
			in.Units, err = fxledger.ParseQuantity(c.units)
		case "cost":
			in.UnitCost, err = fxledger.ParseMoney(c.cost, s.ledger.Currency())
		case "m":
			in.Memo = c.memo
		}
		if err != nil && perr == nil {
			perr = fmt.Errorf("invalid -%s: %w", fl.Name, err)
		}
	})
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr)
		return subcommands.ExitUsageError
	}

	lot, err = s.ledger.ReplaceLot(ctx, lot.ID, in)
	if err != nil {
		return failure(err)
	}
	fmt.Printf("Updated lot %s: %s %s at %s (total %s)\n", lot.ID, lot.Units, s.ledger.Asset(), lot.UnitCost, lot.TotalCost)
	if drifts := s.ledger.Drift(); len(drifts) > 0 {
		fmt.Printf("%d sale(s) now differ from the current lots, see 'fx drift'.\n", len(drifts))
	}
	return subcommands.ExitSuccess
}

// rmLotCmd holds the flags for the 'rm-lot' subcommand.
type rmLotCmd struct{}

func (*rmLotCmd) Name() string     { return "rm-lot" }
func (*rmLotCmd) Synopsis() string { return "remove purchase lots" }
func (*rmLotCmd) Usage() string {
	return `fx rm-lot <lot id>...

  Removes the lots. A lot cannot be removed if the remaining ones do not cover the units sold.
`
}

func (*rmLotCmd) SetFlags(*flag.FlagSet) {}

func (*rmLotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "rm-lot requires at least one <lot id>")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	for _, id := range f.Args() {
		if _, found := s.ledger.Lot(id); !found {
			fmt.Fprintf(os.Stderr, "unknown lot %q, skipped\n", id)
			continue
		}
		if err := s.ledger.RemoveLot(ctx, id); err != nil {
			return failure(err)
		}
		fmt.Printf("Removed lot %s\n", id)
	}
	return subcommands.ExitSuccess
}

// lotsCmd holds the flags for the 'lots' subcommand.
type lotsCmd struct{}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list purchase lots in FIFO order" }
func (*lotsCmd) Usage() string {
	return `fx lots

  Lists the purchase lots in the order sales consume them.
`
}

func (*lotsCmd) SetFlags(*flag.FlagSet) {}

func (*lotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	l := s.ledger
	printMarkdown(renderer.LotsMarkdown(l.Asset(), l.Lots(), l.Balance()))
	return subcommands.ExitSuccess
}
