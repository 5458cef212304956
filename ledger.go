package fxledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// ChangeKind names a mutation of the ledger.
type ChangeKind string

const (
	LotAdded    ChangeKind = "lot-added"
	LotReplaced ChangeKind = "lot-replaced"
	LotRemoved  ChangeKind = "lot-removed"
	SaleAdded   ChangeKind = "sale-added"
	SaleRemoved ChangeKind = "sale-removed"
	Imported    ChangeKind = "imported"
)

// Change is delivered to subscribers after every successful mutation.
type Change struct {
	Kind    ChangeKind
	ID      string // lot or sale ID, empty for Imported
	Version uint64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithGateway persists the ledger collections through g.
func WithGateway(g Gateway) Option { return func(l *Ledger) { l.gateway = g } }

// WithClock replaces time.Now for CreatedAt, UpdatedAt and default periods.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.lots.now = now
		l.processor.now = now
	}
}

// WithIDs replaces the ULID generator.
func WithIDs(newID func() string) Option {
	return func(l *Ledger) {
		l.lots.newID = newID
		l.processor.newID = newID
	}
}

// WithLogger calls SetLogger(log). The package logger is process-wide: it
// serves every Ledger, not only the one being created.
func WithLogger(log *logrus.Logger) Option { return func(*Ledger) { SetLogger(log) } }

// Ledger is the single owner of a position in one foreign currency asset.
//
// It composes the lot store, the sale processor and the aggregator, persists
// each collection after the mutations that change it, and notifies
// subscribers. A Ledger is not safe for concurrent use.
type Ledger struct {
	asset     string
	currency  string
	lots      *LotStore
	sales     *SaleStore
	processor *SaleProcessor
	gateway   Gateway

	version uint64
	cache   struct {
		version  uint64
		agg      *Aggregator
		balance  *Balance
		realized *RealizedTotals
	}

	subscribers map[int]func(Change)
	nextSub     int
}

// New creates an empty ledger of asset units priced in currency.
func New(asset, currency string, opts ...Option) (*Ledger, error) {
	if err := ValidateCurrency(asset); err != nil {
		return nil, fmt.Errorf("invalid asset: %w", err)
	}
	if err := ValidateCurrency(currency); err != nil {
		return nil, fmt.Errorf("invalid cost currency: %w", err)
	}
	if asset == currency {
		return nil, fmt.Errorf("asset and cost currency must differ, got %s twice", asset)
	}
	lots := NewLotStore(currency)
	sales := NewSaleStore()
	l := &Ledger{
		asset:       asset,
		currency:    currency,
		lots:        lots,
		sales:       sales,
		processor:   NewSaleProcessor(lots, sales),
		subscribers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Open creates a ledger and loads both collections from g. Records in another
// currency are rejected; otherwise malformed historical records are kept and
// logged.
func Open(ctx context.Context, g Gateway, asset, currency string, opts ...Option) (*Ledger, error) {
	l, err := New(asset, currency, append(opts, WithGateway(g))...)
	if err != nil {
		return nil, err
	}

	raw, err := g.Load(ctx, CollectionPurchases)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", CollectionPurchases, err)
	}
	purchases, err := unmarshalRecords[PurchaseLot](CollectionPurchases, raw)
	if err != nil {
		return nil, err
	}
	raw, err = g.Load(ctx, CollectionSales)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", CollectionSales, err)
	}
	sales, err := unmarshalRecords[SaleRecord](CollectionSales, raw)
	if err != nil {
		return nil, err
	}

	if err := l.checkLoaded(purchases, sales); err != nil {
		return nil, err
	}
	l.lots.load(purchases...)
	l.sales.load(sales...)

	if sold, bought := l.sales.TotalUnits(), l.lots.TotalUnits(); sold.GreaterThan(bought) {
		logger.WithFields(logrus.Fields{
			"purchased": bought.String(),
			"sold":      sold.String(),
		}).Warn("stored sales exceed stored purchases")
	}
	logger.WithFields(logrus.Fields{
		"lots":  l.lots.Len(),
		"sales": l.sales.Len(),
	}).Debug("ledger loaded")
	return l, nil
}

// checkLoaded rejects records that cannot belong to this ledger and warns
// about those the guarded arithmetic will neutralise.
func (l *Ledger) checkLoaded(purchases []PurchaseLot, sales []SaleRecord) error {
	ids := make(map[string]bool)
	for i := range purchases {
		p := &purchases[i]
		if err := l.adoptCurrency(&p.UnitCost, &p.TotalCost); err != nil {
			return fmt.Errorf("lot %s: %w", p.ID, err)
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate lot id %q", p.ID)
		}
		ids[p.ID] = true
		if !p.Units.IsPositive() || !p.UnitCost.IsPositive() {
			logger.WithField("lot", p.ID).Warn("stored lot has non-positive units or cost")
		}
	}
	for i := range sales {
		s := &sales[i]
		if err := l.adoptCurrency(&s.UnitSalePrice, &s.TotalSaleValue, &s.WeightedAverageCostAtSale, &s.CostOfSale, &s.RealizedGain); err != nil {
			return fmt.Errorf("sale %s: %w", s.ID, err)
		}
		for j := range s.Consumed {
			s.Consumed[j].Cost = s.Consumed[j].Cost.WithCurrency(l.currency)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate sale id %q", s.ID)
		}
		ids[s.ID] = true
		if !s.UnitsSold.IsPositive() {
			logger.WithField("sale", s.ID).Warn("stored sale has non-positive units")
		}
	}
	return nil
}

// adoptCurrency sets the ledger currency on amounts stored without one.
func (l *Ledger) adoptCurrency(amounts ...*Money) error {
	for _, m := range amounts {
		switch m.Currency() {
		case "":
			*m = m.WithCurrency(l.currency)
		case l.currency:
		default:
			return &ValidationError{Field: "currency", Reason: "currency " + m.Currency() + " does not match ledger currency " + l.currency}
		}
	}
	return nil
}

// Asset returns the currency code of the units held.
func (l *Ledger) Asset() string { return l.asset }

// Currency returns the cost currency code.
func (l *Ledger) Currency() string { return l.currency }

// Version returns the mutation counter.
func (l *Ledger) Version() uint64 { return l.version }

// AddLot records a purchase.
//
// A *PersistenceError is returned together with the lot when the save failed.
func (l *Ledger) AddLot(ctx context.Context, in LotInput) (PurchaseLot, error) {
	lot, err := l.lots.Add(in)
	if err != nil {
		return PurchaseLot{}, err
	}
	l.changed(LotAdded, lot.ID)
	return lot, l.save(ctx, CollectionPurchases)
}

// ReplaceLot edits a lot wholesale. It is rejected when the new units cannot
// fund the sales already recorded.
func (l *Ledger) ReplaceLot(ctx context.Context, lotID string, in LotInput) (PurchaseLot, error) {
	old, ok := l.lots.Get(lotID)
	if !ok {
		return PurchaseLot{}, &ValidationError{Field: "id", Reason: "no lot with id " + lotID}
	}
	in, err := l.lots.Validate(in)
	if err != nil {
		return PurchaseLot{}, err
	}
	purchased := l.lots.TotalUnits().Sub(old.Units.Max(Q(0))).Add(in.Units)
	if err := l.checkFunded(purchased); err != nil {
		return PurchaseLot{}, fmt.Errorf("cannot edit lot %s: %w", lotID, err)
	}
	lot, err := l.lots.Replace(lotID, in)
	if err != nil {
		return PurchaseLot{}, err
	}
	l.changed(LotReplaced, lot.ID)
	return lot, l.save(ctx, CollectionPurchases)
}

// RemoveLot deletes a lot. Removing an unknown lot is a no-op. It is rejected
// when the remaining lots cannot fund the sales already recorded.
func (l *Ledger) RemoveLot(ctx context.Context, lotID string) error {
	old, ok := l.lots.Get(lotID)
	if !ok {
		return nil
	}
	purchased := l.lots.TotalUnits().Sub(old.Units.Max(Q(0)))
	if err := l.checkFunded(purchased); err != nil {
		return fmt.Errorf("cannot remove lot %s: %w", lotID, err)
	}
	l.lots.Remove(lotID)
	l.changed(LotRemoved, lotID)
	return l.save(ctx, CollectionPurchases)
}

// checkFunded reports an *InsufficientBalanceError when purchased units would
// no longer cover the units sold.
func (l *Ledger) checkFunded(purchased Quantity) error {
	if sold := l.sales.TotalUnits(); sold.GreaterThan(purchased) {
		return &InsufficientBalanceError{Requested: sold, Available: purchased}
	}
	return nil
}

// Sell records a sale matched in FIFO order against the lots.
//
// A *PersistenceError is returned together with the record when the save failed.
func (l *Ledger) Sell(ctx context.Context, req SaleRequest) (SaleRecord, error) {
	record, err := l.processor.Execute(req)
	if err != nil {
		return SaleRecord{}, err
	}
	logger.WithFields(logrus.Fields{
		"sale":  record.ID,
		"units": record.UnitsSold.String(),
		"gain":  record.RealizedGain.String(),
	}).Debug("sale recorded")
	l.changed(SaleAdded, record.ID)
	return record, l.save(ctx, CollectionSales)
}

// PreviewSale returns the cost basis a sale of units would get now, without
// recording anything.
func (l *Ledger) PreviewSale(units Quantity) (avg, cost Money, portions []LotConsumption, err error) {
	if err := l.processor.Validate(units); err != nil {
		return Money{}, Money{}, nil, err
	}
	avg, cost, portions = l.processor.WeightedAverageCost(units)
	return avg, cost, portions, nil
}

// RemoveSale deletes a sale. Removing an unknown sale is a no-op.
func (l *Ledger) RemoveSale(ctx context.Context, saleID string) error {
	if !l.sales.Remove(saleID) {
		return nil
	}
	l.changed(SaleRemoved, saleID)
	return l.save(ctx, CollectionSales)
}

// Lots returns the lots in FIFO order.
func (l *Ledger) Lots() []PurchaseLot { return l.lots.List() }

// Sales returns the sales in chronological order.
func (l *Ledger) Sales() []SaleRecord { return l.sales.List() }

// Lot returns the lot with that ID.
func (l *Ledger) Lot(lotID string) (PurchaseLot, bool) { return l.lots.Get(lotID) }

// Sale returns the sale with that ID.
func (l *Ledger) Sale(saleID string) (SaleRecord, bool) { return l.sales.Get(saleID) }

// Available returns the units that can be sold.
func (l *Ledger) Available() Quantity { return l.processor.Available().Max(Q(0)) }

// Aggregator returns a calculator over the current state. It is cached until
// the next mutation.
func (l *Ledger) Aggregator() *Aggregator {
	if l.cache.agg == nil || l.cache.version != l.version {
		l.cache.version = l.version
		l.cache.agg = NewAggregator(l.currency, l.lots.lots, l.sales.sales)
		l.cache.balance = nil
		l.cache.realized = nil
	}
	return l.cache.agg
}

// Balance returns the consolidated balance.
func (l *Ledger) Balance() Balance {
	agg := l.Aggregator()
	if l.cache.balance == nil {
		b := agg.Balance()
		l.cache.balance = &b
	}
	return *l.cache.balance
}

// RealizedTotals returns the totals of all sales.
func (l *Ledger) RealizedTotals() RealizedTotals {
	agg := l.Aggregator()
	if l.cache.realized == nil {
		t := agg.RealizedTotals()
		l.cache.realized = &t
	}
	return *l.cache.realized
}

// RealizedTotalsBetween returns the totals of the sales within [from, to].
func (l *Ledger) RealizedTotalsBetween(from, to Period) RealizedTotals {
	return l.Aggregator().RealizedTotalsBetween(from, to)
}

// RealizedByYear returns the totals of each year with sales.
func (l *Ledger) RealizedByYear() map[int]RealizedTotals {
	return l.Aggregator().RealizedByYear()
}

// UnrealizedValue values the units on hand at price. See Aggregator.UnrealizedValue.
func (l *Ledger) UnrealizedValue(price *Money) Valuation {
	return l.Aggregator().UnrealizedValue(price)
}

// Drift lists the sales whose frozen cost basis differs from what the current
// lots produce.
func (l *Ledger) Drift() []SaleDrift { return l.Aggregator().Drift() }

// Subscribe registers fn to be called after every successful mutation. The
// returned function cancels the subscription.
func (l *Ledger) Subscribe(fn func(Change)) (cancel func()) {
	key := l.nextSub
	l.nextSub++
	l.subscribers[key] = fn
	return func() { delete(l.subscribers, key) }
}

func (l *Ledger) changed(kind ChangeKind, id string) {
	l.version++
	c := Change{Kind: kind, ID: id, Version: l.version}
	for _, fn := range l.subscribers {
		fn(c)
	}
}

// save writes one collection through the gateway.
func (l *Ledger) save(ctx context.Context, collection string) error {
	if l.gateway == nil {
		return nil
	}
	var records []json.RawMessage
	var err error
	switch collection {
	case CollectionPurchases:
		records, err = marshalRecords(l.lots.lots)
	case CollectionSales:
		records, err = marshalRecords(l.sales.sales)
	default:
		err = fmt.Errorf("unknown collection %q", collection)
	}
	if err == nil {
		err = l.gateway.Save(ctx, collection, records)
	}
	if err != nil {
		logger.WithError(err).WithField("collection", collection).Error("could not persist ledger")
		return &PersistenceError{Collection: collection, Err: err}
	}
	return nil
}

// Export writes both collections to w as a JSONL bundle.
func (l *Ledger) Export(w io.Writer) error {
	return EncodeBundle(w, Bundle{
		Asset:    l.asset,
		Currency: l.currency,
		Lots:     l.lots.List(),
		Sales:    l.sales.List(),
	})
}

// ImportReport counts the records added and skipped by an import.
type ImportReport struct {
	LotsAdded    int
	LotsSkipped  int
	SalesAdded   int
	SalesSkipped int
}

// Import merges a JSONL bundle into the ledger. Records whose ID already
// exists are skipped, so importing the same bundle twice is a no-op. The
// import is rejected as a whole when a record has no ID or is invalid, or
// when the result would sell more units than purchased.
func (l *Ledger) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	var report ImportReport
	b, err := DecodeBundle(r)
	if err != nil {
		return report, fmt.Errorf("invalid bundle: %w", err)
	}
	if b.Asset != "" && b.Asset != l.asset {
		return report, &ValidationError{Field: "asset", Reason: "bundle asset " + b.Asset + " does not match ledger asset " + l.asset}
	}
	if b.Currency != "" && b.Currency != l.currency {
		return report, &ValidationError{Field: "currency", Reason: "bundle currency " + b.Currency + " does not match ledger currency " + l.currency}
	}

	var newLots []PurchaseLot
	var newSales []SaleRecord
	for _, lot := range b.Lots {
		if lot.ID == "" {
			return ImportReport{}, &ValidationError{Field: "id", Reason: "lot without an id"}
		}
		if _, exists := l.lots.Get(lot.ID); exists {
			report.LotsSkipped++
			continue
		}
		if _, err := l.lots.Validate(LotInput{Period: lot.Period, Units: lot.Units, UnitCost: lot.UnitCost}); err != nil {
			return ImportReport{}, fmt.Errorf("lot %s: %w", lot.ID, err)
		}
		newLots = append(newLots, lot)
	}
	for _, sale := range b.Sales {
		if sale.ID == "" {
			return ImportReport{}, &ValidationError{Field: "id", Reason: "sale without an id"}
		}
		if _, exists := l.sales.Get(sale.ID); exists {
			report.SalesSkipped++
			continue
		}
		newSales = append(newSales, sale)
	}
	if err := l.checkLoaded(newLots, newSales); err != nil {
		return ImportReport{}, err
	}
	for _, sale := range newSales {
		if err := sale.normalize().validate(); err != nil {
			return ImportReport{}, fmt.Errorf("sale %s: %w", sale.ID, err)
		}
	}

	purchased := l.lots.TotalUnits().Add(lots(newLots).totalUnits())
	sold := l.sales.TotalUnits()
	for _, s := range newSales {
		sold = sold.Add(s.UnitsSold)
	}
	if sold.GreaterThan(purchased) {
		return ImportReport{}, fmt.Errorf("cannot import: %w", &InsufficientBalanceError{Requested: sold, Available: purchased})
	}

	report.LotsAdded, report.SalesAdded = len(newLots), len(newSales)
	if len(newLots) == 0 && len(newSales) == 0 {
		return report, nil
	}
	l.lots.load(newLots...)
	l.sales.load(newSales...)
	l.changed(Imported, "")

	var errs []error
	if len(newLots) > 0 {
		errs = append(errs, l.save(ctx, CollectionPurchases))
	}
	if len(newSales) > 0 {
		errs = append(errs, l.save(ctx, CollectionSales))
	}
	return report, errors.Join(errs...)
}
