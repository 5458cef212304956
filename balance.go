package fxledger

import (
	"slices"

	"github.com/sirupsen/logrus"
)

// Balance is the consolidated state of the ledger.
type Balance struct {
	Currency            string
	UnitsPurchased      Quantity
	UnitsSold           Quantity
	UnitsAvailable      Quantity // never negative
	RemainingCost       Money    // cost of the units not sold yet, in FIFO order
	WeightedAverageCost Money    // RemainingCost / UnitsAvailable
	Lots                int
	Sales               int
}

// Valuation is the value of the remaining units at a market price.
type Valuation struct {
	Priced                bool // false when no usable price was supplied
	Price                 Money
	UnitsAvailable        Quantity
	MarketValue           Money
	RemainingCost         Money
	UnrealizedGain        Money
	UnrealizedGainPercent Percent
}

// RealizedTotals sums the realized results of a set of sales.
type RealizedTotals struct {
	Sales        int
	UnitsSold    Quantity
	Proceeds     Money
	CostOfSales  Money
	RealizedGain Money
	Percent      Percent // RealizedGain / CostOfSales * 100
}

// SaleDrift reports a sale whose frozen cost basis no longer matches what the
// current lots would produce.
type SaleDrift struct {
	Sale         SaleRecord
	Covered      Quantity // units the current lots can still fund for this sale
	CostOfSale   Money    // recomputed cost
	RealizedGain Money    // recomputed gain
}

// Delta returns the recomputed cost minus the frozen one.
func (d SaleDrift) Delta() Money { return d.CostOfSale.Sub(d.Sale.CostOfSale) }

// Aggregator derives the state of the ledger from snapshots of both
// collections. It is a stateless calculator: every value is computed on the
// fly and repeated calls return identical results.
type Aggregator struct {
	currency string
	lots     lots
	sales    []SaleRecord
}

// NewAggregator creates an aggregator over copies of lots and sales.
// Records with an amount in another currency than currency are left out
// with a warning. Amounts without a currency are accepted.
func NewAggregator(currency string, purchases []PurchaseLot, sales []SaleRecord) *Aggregator {
	ls := make([]PurchaseLot, 0, len(purchases))
	for _, p := range purchases {
		if !inCurrency(currency, p.UnitCost, p.TotalCost) {
			logger.WithFields(logrus.Fields{"lot": p.ID, "currency": currency}).Warn("lot in another currency, ignored")
			continue
		}
		ls = append(ls, p)
	}
	slices.SortFunc(ls, compareLots)

	ss := make([]SaleRecord, 0, len(sales))
	for _, r := range sales {
		amounts := []Money{r.UnitSalePrice, r.TotalSaleValue, r.WeightedAverageCostAtSale, r.CostOfSale, r.RealizedGain}
		for _, c := range r.Consumed {
			amounts = append(amounts, c.Cost)
		}
		if !inCurrency(currency, amounts...) {
			logger.WithFields(logrus.Fields{"sale": r.ID, "currency": currency}).Warn("sale in another currency, ignored")
			continue
		}
		ss = append(ss, r.clone())
	}
	slices.SortFunc(ss, compareSales)
	return &Aggregator{currency: currency, lots: ls, sales: ss}
}

func inCurrency(currency string, amounts ...Money) bool {
	for _, m := range amounts {
		if m.Currency() != "" && m.Currency() != currency {
			return false
		}
	}
	return true
}

func (a *Aggregator) zero() Money { return M(0, a.currency) }

func (a *Aggregator) unitsSold() Quantity {
	var total Quantity
	for _, r := range a.sales {
		if r.UnitsSold.IsPositive() {
			total = total.Add(r.UnitsSold)
		}
	}
	return total
}

// Balance computes the units on hand and the cost of what remains.
func (a *Aggregator) Balance() Balance {
	purchased, sold := a.lots.totalUnits(), a.unitsSold()
	b := Balance{
		Currency:            a.currency,
		UnitsPurchased:      purchased,
		UnitsSold:           sold,
		UnitsAvailable:      purchased.Sub(sold),
		RemainingCost:       a.zero(),
		WeightedAverageCost: a.zero(),
		Lots:                len(a.lots),
		Sales:               len(a.sales),
	}
	if b.UnitsAvailable.IsNegative() {
		logger.WithFields(logrus.Fields{
			"purchased": purchased.String(),
			"sold":      sold.String(),
		}).Warn("more units sold than purchased, reporting zero available")
		b.UnitsAvailable = Q(0)
		return b
	}
	if b.UnitsAvailable.IsZero() {
		return b
	}
	_, cost := a.lots.remaining(sold)
	b.RemainingCost = b.RemainingCost.Add(cost)
	b.WeightedAverageCost = b.RemainingCost.Div(b.UnitsAvailable)
	return b
}

// UnrealizedValue values the remaining units at price. A nil or non-positive
// price is unavailable: the valuation is zero and Priced is false.
func (a *Aggregator) UnrealizedValue(price *Money) Valuation {
	b := a.Balance()
	v := Valuation{
		UnitsAvailable: b.UnitsAvailable,
		RemainingCost:  b.RemainingCost,
		Price:          a.zero(),
		MarketValue:    a.zero(),
		UnrealizedGain: a.zero(),
	}
	if price == nil || !price.IsPositive() {
		return v
	}
	p := *price
	if p.Currency() == "" {
		p = p.WithCurrency(a.currency)
	}
	if p.Currency() != a.currency {
		logger.WithFields(logrus.Fields{
			"price":    p.Currency(),
			"currency": a.currency,
		}).Warn("current price unavailable, price currency does not match the ledger")
		return v
	}
	v.Priced = true
	v.Price = p
	v.MarketValue = p.Mul(b.UnitsAvailable)
	v.UnrealizedGain = v.MarketValue.Sub(b.RemainingCost)
	v.UnrealizedGainPercent = percentOf(v.UnrealizedGain.value, b.RemainingCost.value)
	return v
}

// RealizedTotals sums the frozen results of all sales.
func (a *Aggregator) RealizedTotals() RealizedTotals {
	return a.realized(func(SaleRecord) bool { return true })
}

// RealizedTotalsBetween sums the sales whose period is within [from, to].
func (a *Aggregator) RealizedTotalsBetween(from, to Period) RealizedTotals {
	return a.realized(func(r SaleRecord) bool {
		return r.Period.Compare(from) >= 0 && r.Period.Compare(to) <= 0
	})
}

// RealizedByYear returns the realized totals of each year with sales.
func (a *Aggregator) RealizedByYear() map[int]RealizedTotals {
	years := make(map[int]RealizedTotals)
	for _, r := range a.sales {
		if _, done := years[r.Period.Year]; done {
			continue
		}
		y := r.Period.Year
		years[y] = a.realized(func(s SaleRecord) bool { return s.Period.Year == y })
	}
	return years
}

func (a *Aggregator) realized(accept func(SaleRecord) bool) RealizedTotals {
	t := RealizedTotals{
		Proceeds:     a.zero(),
		CostOfSales:  a.zero(),
		RealizedGain: a.zero(),
	}
	for _, r := range a.sales {
		if !accept(r) {
			continue
		}
		t.Sales++
		t.UnitsSold = t.UnitsSold.Add(r.UnitsSold)
		t.Proceeds = t.Proceeds.Add(r.TotalSaleValue)
		t.CostOfSales = t.CostOfSales.Add(r.CostOfSale)
		t.RealizedGain = t.RealizedGain.Add(r.RealizedGain)
	}
	t.Percent = percentOf(t.RealizedGain.value, t.CostOfSales.value)
	return t
}

// Drift replays every sale, in the order they were executed, against the
// current lots and returns those whose frozen cost basis differs.
func (a *Aggregator) Drift() []SaleDrift {
	replay := slices.Clone(a.sales)
	slices.SortFunc(replay, func(x, y SaleRecord) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return compareSales(x, y)
	})

	var drifts []SaleDrift
	var skip Quantity
	for _, r := range replay {
		if !r.UnitsSold.IsPositive() {
			continue
		}
		cost, _, covered := a.lots.consume(skip, r.UnitsSold)
		skip = skip.Add(r.UnitsSold)
		cost = a.zero().Add(cost)
		if covered.Equal(r.UnitsSold) && cost.value.Sub(r.CostOfSale.value).Abs().LessThanOrEqual(costEpsilon) {
			continue
		}
		drifts = append(drifts, SaleDrift{
			Sale:         r,
			Covered:      covered,
			CostOfSale:   cost,
			RealizedGain: r.TotalSaleValue.Sub(cost),
		})
	}
	return drifts
}
