// Package quote provides price feeds for a ledger: the current market price
// of the asset, in the ledger's cost currency.
package quote

import (
	"context"

	"github.com/etnz/fxledger"
)

// Fixed always returns the same quote, or Err when set.
type Fixed struct {
	Quote fxledger.Quote
	Err   error
}

// NewFixed returns a feed quoting price for both buy and sell.
func NewFixed(price fxledger.Money) *Fixed {
	return &Fixed{Quote: fxledger.Quote{Buy: price, Sell: price}}
}

func (f *Fixed) CurrentPrice(ctx context.Context) (fxledger.Quote, error) {
	if err := ctx.Err(); err != nil {
		return fxledger.Quote{}, err
	}
	if f.Err != nil {
		return fxledger.Quote{}, f.Err
	}
	return f.Quote, nil
}
