// Package agent is the fx assistant. A facilitator chat answers the user by
// consulting an accountant, which reads the ledger through tools, and a
// trader grounded on Google Search.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/etnz/fxledger"
	"google.golang.org/genai"
)

// Desk is the team of experts answering the questions of one session.
type Desk struct {
	Facilitator *Expert
	Experts     []*Expert
	// Render formats the markdown answers before printing. Answers are
	// printed as is when nil.
	Render func(md string) string
}

// NewDesk staffs a desk for the ledger l. feed may be nil.
func NewDesk(model string, l *fxledger.Ledger, feed fxledger.PriceFeed) *Desk {
	experts := []*Expert{NewAccountant(model, l, feed), NewTrader(model)}
	return &Desk{
		Facilitator: NewFacilitator(model, experts...),
		Experts:     experts,
	}
}

// Open creates the chat of every expert, the facilitator last.
func (d *Desk) Open(ctx context.Context, client *genai.Client) error {
	team := append(slices.Clone(d.Experts), d.Facilitator)
	for _, e := range team {
		if err := e.Open(ctx, client); err != nil {
			return fmt.Errorf("open chat with %s: %w", e.Name, err)
		}
	}
	return nil
}

const prompt = "assist> "

// Converse asks the questions of script first, then reads one question per
// line from r until "bye" or the end of input. Answers are written to w.
func (d *Desk) Converse(ctx context.Context, w io.Writer, r io.Reader, script ...string) error {
	fmt.Fprintln(w, "Welcome to fx assist. Type 'bye' to exit.")
	in := bufio.NewScanner(r)
	for {
		fmt.Fprint(w, prompt)
		var question string
		if len(script) > 0 {
			question, script = strings.TrimSpace(script[0]), script[1:]
			fmt.Fprintln(w, question)
		} else {
			if !in.Scan() {
				return in.Err() // nil at the end of input
			}
			question = strings.TrimSpace(in.Text())
		}

		switch question {
		case "":
			continue
		case "bye":
			return nil
		}

		answer, err := d.Facilitator.Ask(ctx, question)
		if err != nil {
			return err
		}
		if d.Render != nil {
			answer = d.Render(answer)
		}
		fmt.Fprintln(w, answer)
	}
}
