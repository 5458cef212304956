package agent

import (
	"context"
	"fmt"

	"github.com/etnz/fxledger"
	"github.com/etnz/fxledger/renderer"
	"google.golang.org/genai"
)

// NewFacilitator creates the expert in charge of the conversation. It
// consults the other experts through tools.
func NewFacilitator(model string, experts ...*Expert) *Expert {
	tools := make([]Tool, len(experts))
	for i, e := range experts {
		tools[i] = e.Consult()
	}
	return &Expert{
		Name:  "Facilitator",
		Model: model,
		Tools: tools,
		Instruction: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user keeps a ledger of foreign currency purchases and sales. They come to understand
			their position, the cost basis of what they hold and the gains they realized.

			Devise a plan of questions to ask to each experts and come up with the best response to the user's request.
			Answer in markdown.
		`,
	}
}

// NewTrader creates an expert grounded on Google Search.
func NewTrader(model string) *Expert {
	return &Expert{
		Name: "Trader",
		Description: `This is an expert trader,
		well aware of the currency markets and of the latest news about exchange rates.
		Ask the Trader whenever you need recent or grounding information.`,
		Model:  model,
		Search: true,
		Instruction: `
			You are a expert in currency trading. You Leverage Google Search to
			ground your assertions in a solid truth.
			You can get the latests news too, and you know how to relate them to the user's request.
		`,
	}
}

// NewAccountant creates the expert reading the ledger l. feed may be nil.
func NewAccountant(model string, l *fxledger.Ledger, feed fxledger.PriceFeed) *Expert {
	return &Expert{
		Name: "Accountant",
		Description: fmt.Sprintf(`This is the Accountant. They are in charge of reading the user's ledger of %s bought and sold in %s.
		They know the purchase lots, the sales, the cost basis in FIFO order and the realized and unrealized gains.`, l.Asset(), l.Currency()),
		Model: model,
		Tools: LedgerTools(l, feed),
		Instruction: `
			You are an accountant in charge of the user's ledger.
			You know how to use the Tools to extract relevant information about the user's position.
			You are part of a team of experts, yours is everything about the user's ledger. They might ask
			you questions about it, pardon their approximative language and figure out what they meant.

			Sales consume purchase lots in FIFO order and their cost basis is frozen when they are recorded.
			Periods are written YYYY-MM.
		`,
	}
}

func period(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description + " Format YYYY-MM."}
}

// LedgerTools returns the read only reports over l.
func LedgerTools(l *fxledger.Ledger, feed fxledger.PriceFeed) []Tool {
	return []Tool{
		{
			Name:        "Balance",
			Description: "Balance reports the units available, their remaining cost, the realized gains and the value of the position at the current market price.",
			Run: func(ctx context.Context, _ map[string]any) (string, error) {
				var q *fxledger.Quote
				if feed != nil {
					if quote, err := feed.CurrentPrice(ctx); err == nil {
						q = &quote
					}
				}
				return renderer.RenderSummary(renderer.NewSummary(l, q)), nil
			},
		},
		{
			Name:        "Lots",
			Description: "Lots lists the purchase lots in FIFO order.",
			Run: func(context.Context, map[string]any) (string, error) {
				return renderer.LotsMarkdown(l.Asset(), l.Lots(), l.Balance()), nil
			},
		},
		{
			Name:        "Sales",
			Description: "Sales lists the sales with their frozen cost basis and realized gain.",
			Run: func(context.Context, map[string]any) (string, error) {
				return renderer.SalesMarkdown(l.Asset(), l.Sales(), l.RealizedTotals()), nil
			},
		},
		{
			Name:        "Gains",
			Description: "Gains reports the realized gains per year, or between two periods when both are given.",
			Params: map[string]*genai.Schema{
				"from": period("First period included."),
				"to":   period("Last period included."),
			},
			Run: func(_ context.Context, args map[string]any) (string, error) {
				from, hasFrom, err := periodArg(args, "from")
				if err != nil {
					return "", err
				}
				to, hasTo, err := periodArg(args, "to")
				if err != nil {
					return "", err
				}
				if hasFrom != hasTo {
					return "", fmt.Errorf("both 'from' and 'to' are required to select a range")
				}
				if hasFrom {
					return renderer.GainsMarkdown(l.Asset(), nil, l.RealizedTotalsBetween(from, to)), nil
				}
				return renderer.GainsMarkdown(l.Asset(), l.RealizedByYear(), l.RealizedTotals()), nil
			},
		},
		{
			Name:        "Drift",
			Description: "Drift lists the sales whose frozen cost basis differs from what the current lots would produce, after lots were edited or removed.",
			Run: func(context.Context, map[string]any) (string, error) {
				return renderer.DriftMarkdown(l.Drift()), nil
			},
		},
		{
			Name:        "PreviewSale",
			Description: "PreviewSale computes the cost basis a sale would have now, without recording it.",
			Params: map[string]*genai.Schema{
				"units": {Type: genai.TypeNumber, Description: "Units of the asset to sell."},
			},
			Required: []string{"units"},
			Run: func(_ context.Context, args map[string]any) (string, error) {
				units, err := quantityArg(args, "units")
				if err != nil {
					return "", err
				}
				avg, cost, portions, err := l.PreviewSale(units)
				if err != nil {
					return "", err
				}
				return renderer.PreviewMarkdown(l.Asset(), units, avg, cost, portions), nil
			},
		},
	}
}

func periodArg(args map[string]any, name string) (fxledger.Period, bool, error) {
	v, ok := args[name]
	if !ok {
		return fxledger.Period{}, false, nil
	}
	s, ok := v.(string)
	if !ok {
		return fxledger.Period{}, false, fmt.Errorf("argument '%s' is not a string as expected but %T", name, v)
	}
	p, err := fxledger.ParsePeriod(s)
	if err != nil {
		return fxledger.Period{}, false, fmt.Errorf("argument '%s' must be a period like 2025-01, got %q", name, s)
	}
	return p, true, nil
}

func quantityArg(args map[string]any, name string) (fxledger.Quantity, error) {
	switch v := args[name].(type) {
	case float64:
		return fxledger.Q(v), nil
	case int:
		return fxledger.Q(v), nil
	case string:
		return fxledger.ParseQuantity(v)
	case nil:
		return fxledger.Quantity{}, fmt.Errorf("argument '%s' is required", name)
	default:
		return fxledger.Quantity{}, fmt.Errorf("argument '%s' is not a number as expected but %T", name, v)
	}
}

