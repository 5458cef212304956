package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fxledger/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct{}

// Name returns the name of the command.
func (*assistCmd) Name() string { return "assist" }

// Synopsis returns a short-one line synopsis of the command.
func (*assistCmd) Synopsis() string { return "Start an interactive session with the AI assistant." }

// Usage returns a long-form usage string.
func (*assistCmd) Usage() string {
	return `fx assist [<question>]

  Start an interactive session with the AI assistant. The Gemini client is
  configured by the GOOGLE_API_KEY environment variable.
`
}

// SetFlags sets the flags for the command.
func (*assistCmd) SetFlags(_ *flag.FlagSet) {}

// Execute executes the command.
func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	var script []string
	if q := strings.Join(f.Args(), " "); q != "" {
		script = append(script, q)
	}

	s, err := openSession(ctx)
	if err != nil {
		return failure(err)
	}
	defer s.Close()

	feed, err := openFeed(s.cfg, "")
	if err != nil {
		return failure(err)
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	desk := agent.NewDesk(s.cfg.Assist.Model, s.ledger, feed)
	desk.Render = renderMarkdown
	if err := desk.Open(ctx, client); err != nil {
		fmt.Fprintln(os.Stderr, "Cannot start the assistant:", err)
		return subcommands.ExitFailure
	}

	if err := desk.Converse(ctx, os.Stdout, os.Stdin, script...); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
