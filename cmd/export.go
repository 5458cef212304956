package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/etnz/fxledger/config"
	"github.com/google/subcommands"
)

// exportCmd holds the flags for the 'export' subcommand.
type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write lots and sales as a JSONL bundle" }
func (*exportCmd) Usage() string {
	return `fx export [-o <file>]

  Writes a header line, then one line per lot and one line per sale.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file. Defaults to the standard output.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	var w io.Writer = os.Stdout
	if c.output != "" {
		out, err := os.Create(c.output)
		if err != nil {
			return failure(err)
		}
		defer out.Close()
		w = out
	}
	if err := s.ledger.Export(w); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "merge a JSONL bundle into the ledger" }
func (*importCmd) Usage() string {
	return `fx import <file>|-

  Adds the lots and sales of the bundle whose ID is not known yet. The whole
  bundle is rejected when it would sell more units than purchased.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "import requires one <file>, or - for the standard input")
		return subcommands.ExitUsageError
	}
	var r io.Reader = os.Stdin
	if f.Arg(0) != "-" {
		in, err := os.Open(f.Arg(0))
		if err != nil {
			return failure(err)
		}
		defer in.Close()
		r = in
	}

	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	report, err := s.ledger.Import(ctx, r)
	if err != nil {
		return failure(err)
	}
	fmt.Printf("Imported %d lot(s) and %d sale(s), skipped %d lot(s) and %d sale(s) already known\n",
		report.LotsAdded, report.SalesAdded, report.LotsSkipped, report.SalesSkipped)
	return subcommands.ExitSuccess
}

// initCmd holds the flags for the 'init' subcommand.
type initCmd struct {
	force bool
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "write a default configuration file" }
func (*initCmd) Usage() string {
	return `fx [-config <file>] init [-f]

  Writes the default configuration, YAML unless the file name ends with .json.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "f", false, "Overwrite an existing file")
}

func (c *initCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := os.Stat(*configFile); err == nil && !c.force {
		fmt.Fprintf(os.Stderr, "%s already exists, use -f to overwrite it\n", *configFile)
		return subcommands.ExitFailure
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return failure(err)
	}
	if err := config.Default().SaveToFile(*configFile); err != nil {
		return failure(err)
	}
	fmt.Printf("Wrote %s\n", *configFile)
	return subcommands.ExitSuccess
}
