package fxledger

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// aggregatorAfter records the lots and sales through a processor and returns
// an aggregator over the result.
func aggregatorAfter(t *testing.T, ins []LotInput, reqs []SaleRequest) *Aggregator {
	t.Helper()
	p := newTestProcessor(t, ins...)
	for _, req := range reqs {
		if _, err := p.Execute(req); err != nil {
			t.Fatalf("Execute(%+v) error = %v", req, err)
		}
	}
	return NewAggregator("BRL", p.lots.List(), p.sales.List())
}

func TestAggregator_Balance(t *testing.T) {
	testCases := []struct {
		name          string
		lots          []LotInput
		sales         []SaleRequest
		wantAvailable float64
		wantRemaining float64
		wantAverage   string
	}{
		{
			name:        "empty ledger",
			wantAverage: "0",
		},
		{
			name:          "one lot",
			lots:          []LotInput{buy(2025, 1, 100, 10)},
			wantAvailable: 100,
			wantRemaining: 1000,
			wantAverage:   "10",
		},
		{
			name:          "two lots blend",
			lots:          []LotInput{buy(2025, 1, 100, 10), buy(2025, 2, 50, 20)},
			wantAvailable: 150,
			wantRemaining: 2000,
			wantAverage:   "13.333333",
		},
		{
			name:          "after a FIFO sale",
			lots:          []LotInput{buy(2025, 1, 100, 10), buy(2025, 2, 50, 20)},
			sales:         []SaleRequest{sell(2025, 3, 120, 15)},
			wantAvailable: 30,
			wantRemaining: 600,
			wantAverage:   "20",
		},
		{
			name:          "everything sold",
			lots:          []LotInput{buy(2025, 1, 10, 10)},
			sales:         []SaleRequest{sell(2025, 3, 4, 15), sell(2025, 4, 6, 15)},
			wantAvailable: 0,
			wantRemaining: 0,
			wantAverage:   "0",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hook := captureLog(t)
			b := aggregatorAfter(t, tc.lots, tc.sales).Balance()
			if !b.UnitsAvailable.Equal(Q(tc.wantAvailable)) {
				t.Errorf("UnitsAvailable = %s, want %v", b.UnitsAvailable, tc.wantAvailable)
			}
			if !b.RemainingCost.Decimal().Equal(decimal.NewFromFloat(tc.wantRemaining)) {
				t.Errorf("RemainingCost = %s, want %v", b.RemainingCost.Decimal(), tc.wantRemaining)
			}
			if want := decimal.RequireFromString(tc.wantAverage); !near(b.WeightedAverageCost.Decimal(), want) {
				t.Errorf("WeightedAverageCost = %s, want ~%s", b.WeightedAverageCost.Decimal(), want)
			}
			// Reconciliation between the average and the remaining cost.
			if !near(b.WeightedAverageCost.Mul(b.UnitsAvailable).Decimal(), b.RemainingCost.Decimal()) {
				t.Errorf("avg * units = %s, want %s", b.WeightedAverageCost.Mul(b.UnitsAvailable).Decimal(), b.RemainingCost.Decimal())
			}
			if b.Currency != "BRL" || b.RemainingCost.Currency() != "BRL" {
				t.Errorf("Currency = %q, RemainingCost currency = %q", b.Currency, b.RemainingCost.Currency())
			}
			if w := warnings(hook); len(w) != 0 {
				t.Errorf("unexpected warnings %v", w)
			}
		})
	}
}

// An empty ledger reports zeroes without any division warning.
func TestAggregator_EmptyLedger(t *testing.T) {
	hook := captureLog(t)
	agg := NewAggregator("BRL", nil, nil)
	b := agg.Balance()
	if !b.UnitsAvailable.IsZero() || !b.WeightedAverageCost.IsZero() {
		t.Errorf("Balance() = %+v, want zeroes", b)
	}
	price := BRL(5.5)
	v := agg.UnrealizedValue(&price)
	if !v.MarketValue.IsZero() || v.UnrealizedGainPercent != 0 {
		t.Errorf("UnrealizedValue() = %+v, want zeroes", v)
	}
	r := agg.RealizedTotals()
	if r.Sales != 0 || !r.RealizedGain.IsZero() || r.Percent != 0 {
		t.Errorf("RealizedTotals() = %+v, want zeroes", r)
	}
	if w := warnings(hook); len(w) != 0 {
		t.Errorf("unexpected warnings %v", w)
	}
}

func TestAggregator_UnrealizedValue(t *testing.T) {
	agg := aggregatorAfter(t,
		[]LotInput{buy(2025, 1, 100, 10), buy(2025, 2, 50, 20)},
		[]SaleRequest{sell(2025, 3, 120, 15)},
	)
	price, noCurrency, zero, euro := BRL(25), NO(25), BRL(0), M(25, "EUR")

	testCases := []struct {
		name       string
		price      *Money
		wantPriced bool
		wantValue  float64
		wantGain   float64
	}{
		{name: "priced", price: &price, wantPriced: true, wantValue: 750, wantGain: 150},
		{name: "price without currency", price: &noCurrency, wantPriced: true, wantValue: 750, wantGain: 150},
		{name: "feed failure", price: nil},
		{name: "zero price", price: &zero},
		{name: "wrong currency", price: &euro},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			captureLog(t)
			v := agg.UnrealizedValue(tc.price)
			if v.Priced != tc.wantPriced {
				t.Errorf("Priced = %v, want %v", v.Priced, tc.wantPriced)
			}
			if !v.MarketValue.Decimal().Equal(decimal.NewFromFloat(tc.wantValue)) {
				t.Errorf("MarketValue = %s, want %v", v.MarketValue.Decimal(), tc.wantValue)
			}
			if !v.UnrealizedGain.Decimal().Equal(decimal.NewFromFloat(tc.wantGain)) {
				t.Errorf("UnrealizedGain = %s, want %v", v.UnrealizedGain.Decimal(), tc.wantGain)
			}
			if !v.UnitsAvailable.Equal(Q(30)) {
				t.Errorf("UnitsAvailable = %s, want 30 whatever the price", v.UnitsAvailable)
			}
		})
	}
	if v := agg.UnrealizedValue(&price); !v.UnrealizedGainPercent.Equal(25) {
		t.Errorf("UnrealizedGainPercent = %v, want 25", v.UnrealizedGainPercent)
	}
}

func TestAggregator_RealizedTotals(t *testing.T) {
	agg := aggregatorAfter(t,
		[]LotInput{buy(2024, 11, 100, 10), buy(2025, 2, 50, 20)},
		[]SaleRequest{sell(2024, 12, 50, 12), sell(2025, 3, 70, 15)},
	)
	r := agg.RealizedTotals()
	// 50@12 against 50@10, then 70@15 against 50@10 + 20@20.
	if r.Sales != 2 || !r.UnitsSold.Equal(Q(120)) {
		t.Errorf("Sales = %d, UnitsSold = %s", r.Sales, r.UnitsSold)
	}
	if !r.Proceeds.Equal(BRL(600 + 1050)) {
		t.Errorf("Proceeds = %s", r.Proceeds.Decimal())
	}
	if !r.CostOfSales.Equal(BRL(500 + 900)) {
		t.Errorf("CostOfSales = %s", r.CostOfSales.Decimal())
	}
	if !r.RealizedGain.Equal(BRL(100 + 150)) {
		t.Errorf("RealizedGain = %s", r.RealizedGain.Decimal())
	}
	if !r.Percent.Equal(Percent(250.0 / 1400 * 100)) {
		t.Errorf("Percent = %v", r.Percent)
	}

	y2025 := agg.RealizedTotalsBetween(NewPeriod(2025, 1), NewPeriod(2025, 12))
	if y2025.Sales != 1 || !y2025.RealizedGain.Equal(BRL(150)) {
		t.Errorf("RealizedTotalsBetween(2025) = %+v", y2025)
	}
	years := agg.RealizedByYear()
	if len(years) != 2 || !years[2024].RealizedGain.Equal(BRL(100)) || !years[2025].RealizedGain.Equal(BRL(150)) {
		t.Errorf("RealizedByYear() = %+v", years)
	}
}

// Repeated calls with no mutation return identical values.
func TestAggregator_Idempotent(t *testing.T) {
	agg := aggregatorAfter(t,
		[]LotInput{buy(2025, 1, 100, 10.1), buy(2025, 2, 33, 19.7)},
		[]SaleRequest{sell(2025, 3, 77, 15)},
	)
	price := BRL(18)
	if b1, b2 := agg.Balance(), agg.Balance(); !reflect.DeepEqual(b1, b2) {
		t.Errorf("Balance() differs between calls: %+v != %+v", b1, b2)
	}
	if v1, v2 := agg.UnrealizedValue(&price), agg.UnrealizedValue(&price); !reflect.DeepEqual(v1, v2) {
		t.Errorf("UnrealizedValue() differs between calls: %+v != %+v", v1, v2)
	}
	if r1, r2 := agg.RealizedTotals(), agg.RealizedTotals(); !reflect.DeepEqual(r1, r2) {
		t.Errorf("RealizedTotals() differs between calls: %+v != %+v", r1, r2)
	}
}

// Inconsistent stored data never yields negative units.
func TestAggregator_ClampsOversold(t *testing.T) {
	hook := captureLog(t)
	lot := PurchaseLot{ID: "a", Period: NewPeriod(2025, 1), Units: Q(10), UnitCost: BRL(1), TotalCost: BRL(10)}
	sale := SaleRecord{ID: "s", Period: NewPeriod(2025, 2), UnitsSold: Q(15), UnitSalePrice: BRL(2), TotalSaleValue: BRL(30), CostOfSale: BRL(15), RealizedGain: BRL(15)}
	b := NewAggregator("BRL", []PurchaseLot{lot}, []SaleRecord{sale}).Balance()
	if !b.UnitsAvailable.IsZero() || !b.RemainingCost.IsZero() {
		t.Errorf("Balance() = %+v, want zero available", b)
	}
	if len(warnings(hook)) == 0 {
		t.Error("expected a warning about the inconsistent data")
	}
}

func TestAggregator_IgnoresOtherCurrencies(t *testing.T) {
	hook := captureLog(t)
	lot := PurchaseLot{ID: "a", Period: NewPeriod(2025, 1), Units: Q(10), UnitCost: BRL(1), TotalCost: BRL(10)}
	euroLot := PurchaseLot{ID: "e", Period: NewPeriod(2025, 1), Units: Q(10), UnitCost: M(1, "EUR"), TotalCost: M(10, "EUR")}
	sale := SaleRecord{ID: "s", Period: NewPeriod(2025, 2), UnitsSold: Q(5), UnitSalePrice: BRL(2), TotalSaleValue: BRL(10), CostOfSale: BRL(5), RealizedGain: BRL(5)}
	euroSale := SaleRecord{ID: "x", Period: NewPeriod(2025, 2), UnitsSold: Q(5), UnitSalePrice: M(2, "EUR"), TotalSaleValue: M(10, "EUR"), CostOfSale: M(5, "EUR"), RealizedGain: M(5, "EUR")}

	agg := NewAggregator("BRL", []PurchaseLot{lot, euroLot}, []SaleRecord{sale, euroSale})
	r := agg.RealizedTotals()
	if r.Sales != 1 || !r.Proceeds.Equal(BRL(10)) || !r.RealizedGain.Equal(BRL(5)) {
		t.Errorf("RealizedTotals() = %+v, want only the BRL sale", r)
	}
	if b := agg.Balance(); !b.UnitsPurchased.Equal(Q(10)) || !b.UnitsAvailable.Equal(Q(5)) {
		t.Errorf("Balance() = %+v, want only the BRL lot", b)
	}
	if got := len(warnings(hook)); got != 2 {
		t.Errorf("warnings = %d, want one per ignored record", got)
	}
}

func TestAggregator_Drift(t *testing.T) {
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	a := PurchaseLot{ID: "a", Period: NewPeriod(2025, 1), Units: Q(100), UnitCost: BRL(10), TotalCost: BRL(1000), CreatedAt: created}
	b := PurchaseLot{ID: "b", Period: NewPeriod(2025, 2), Units: Q(50), UnitCost: BRL(20), TotalCost: BRL(1000), CreatedAt: created}
	sale := SaleRecord{
		ID: "s", Period: NewPeriod(2025, 3), UnitsSold: Q(120),
		UnitSalePrice: BRL(15), TotalSaleValue: BRL(1800), CostOfSale: BRL(1400), RealizedGain: BRL(400),
		CreatedAt: created.Add(time.Hour),
	}

	if d := NewAggregator("BRL", []PurchaseLot{a, b}, []SaleRecord{sale}).Drift(); len(d) != 0 {
		t.Errorf("Drift() = %+v, want none", d)
	}

	// The first lot was edited after the sale: it now costs 11 per unit.
	a.UnitCost, a.TotalCost = BRL(11), BRL(1100)
	d := NewAggregator("BRL", []PurchaseLot{a, b}, []SaleRecord{sale}).Drift()
	if len(d) != 1 {
		t.Fatalf("Drift() = %+v, want one sale", d)
	}
	if !d[0].CostOfSale.Equal(BRL(1500)) || !d[0].Delta().Equal(BRL(100)) || !d[0].RealizedGain.Equal(BRL(300)) {
		t.Errorf("Drift()[0] = %+v, delta %s", d[0], d[0].Delta().Decimal())
	}
}
