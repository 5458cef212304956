// Package fxledger tracks a position in one foreign currency asset, for
// instance USD bought with BRL, as a list of purchase lots.
//
// Lots are consumed in strict FIFO order when a sale is recorded: the oldest
// period first, then the oldest entry. Every sale stores the weighted-average
// cost of the units it consumed and its realized gain, frozen at the time the
// sale was recorded.
//
// The main types are:
//   - LotStore: the purchase lots, kept in FIFO order.
//   - SaleProcessor: turns a sale request into a cost-matched SaleRecord.
//   - Aggregator: a stateless calculator for balance, unrealized value,
//     realized totals and drift.
//   - Ledger: the single owner composing the above, persisting through a
//     Gateway and notifying subscribers.
//
// Amounts are exact decimals. Divisions by zero never panic: they resolve to
// 0 and log a warning.
//
// Prices are never fetched by the ledger. A PriceFeed (see package quote)
// provides a Quote that callers pass to UnrealizedValue.
package fxledger
