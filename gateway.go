package fxledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Collection keys used with a Gateway.
const (
	CollectionPurchases = "purchases"
	CollectionSales     = "sales"
)

// Gateway is a durable store of opaque record arrays keyed by collection name.
//
// Load returns a nil slice and no error when the collection was never saved.
// Collections are loaded and saved independently: no cross-collection
// atomicity is assumed.
type Gateway interface {
	Load(ctx context.Context, collection string) ([]json.RawMessage, error)
	Save(ctx context.Context, collection string, records []json.RawMessage) error
}

// Quote is a market price of the asset in the ledger's cost currency.
type Quote struct {
	Buy       Money     // price to buy one unit of the asset
	Sell      Money     // price received when selling one unit of the asset
	Timestamp time.Time // when the market published it
	Stale     bool      // true when served from a cache after a feed failure
}

// Mark returns the price used to value held units: Sell, or Buy when Sell is missing.
func (q Quote) Mark() Money {
	if q.Sell.IsPositive() {
		return q.Sell
	}
	return q.Buy
}

// MarshalJSON implements the json.Marshaler interface for Quote.
func (q Quote) MarshalJSON() ([]byte, error) {
	var w orderedJSON
	w.Append("buy", q.Buy)
	w.Append("sell", q.Sell)
	w.Append("timestamp", q.Timestamp.UTC())
	w.Optional("stale", q.Stale)
	return w.MarshalJSON()
}

func (q *Quote) UnmarshalJSON(data []byte) error {
	var temp struct {
		Buy       Money     `json:"buy"`
		Sell      Money     `json:"sell"`
		Timestamp time.Time `json:"timestamp"`
		Stale     bool      `json:"stale"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*q = Quote{Buy: temp.Buy, Sell: temp.Sell, Timestamp: temp.Timestamp, Stale: temp.Stale}
	return nil
}

// PriceFeed supplies the current market price of the asset. The ledger never
// calls it: callers fetch a quote and inject its price in the queries.
type PriceFeed interface {
	CurrentPrice(ctx context.Context) (Quote, error)
}

// MarkPrice fetches a quote from feed and returns its mark price, or nil when
// the price is unavailable. It never returns an error: valuation falls back to 0.
func MarkPrice(ctx context.Context, feed PriceFeed) *Money {
	if feed == nil {
		return nil
	}
	q, err := feed.CurrentPrice(ctx)
	if err != nil {
		logger.WithError(err).Warn("current price unavailable")
		return nil
	}
	if q.Stale {
		logger.WithField("timestamp", q.Timestamp).Warn("current price unavailable, using last known value")
	}
	p := q.Mark()
	if !p.IsPositive() {
		return nil
	}
	return &p
}

// marshalRecords converts items to opaque records for a Gateway.
func marshalRecords[T any](items []T) ([]json.RawMessage, error) {
	records := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("cannot encode record %d: %w", i, err)
		}
		records = append(records, b)
	}
	return records, nil
}

// unmarshalRecords decodes opaque records loaded from a Gateway.
func unmarshalRecords[T any](collection string, records []json.RawMessage) ([]T, error) {
	items := make([]T, 0, len(records))
	for i, rec := range records {
		var item T
		if err := json.Unmarshal(rec, &item); err != nil {
			return nil, fmt.Errorf("invalid %s record %d %q: %w", collection, i, string(rec), err)
		}
		items = append(items, item)
	}
	return items, nil
}
