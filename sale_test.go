package fxledger

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestProcessor(t *testing.T, ins ...LotInput) *SaleProcessor {
	t.Helper()
	ls := newTestStore()
	for _, in := range ins {
		if _, err := ls.Add(in); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	p := NewSaleProcessor(ls, NewSaleStore())
	p.now = testClock(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
	p.newID = testIDs("sale-")
	return p
}

// FIFO matching across two lots.
func TestSaleProcessor_FIFOMatching(t *testing.T) {
	p := newTestProcessor(t, buy(2025, 1, 100, 10), buy(2025, 2, 50, 20))

	rec, err := p.Execute(sell(2025, 3, 120, 15))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !rec.CostOfSale.Equal(BRL(1400)) {
		t.Errorf("CostOfSale = %s, want 1400", rec.CostOfSale.Decimal())
	}
	if !rec.TotalSaleValue.Equal(BRL(1800)) {
		t.Errorf("TotalSaleValue = %s, want 1800", rec.TotalSaleValue.Decimal())
	}
	if !rec.RealizedGain.Equal(BRL(400)) {
		t.Errorf("RealizedGain = %s, want exactly 400", rec.RealizedGain.Decimal())
	}
	if want := decimal.RequireFromString("11.666667"); !near(rec.WeightedAverageCostAtSale.Decimal(), want) {
		t.Errorf("WeightedAverageCostAtSale = %s, want ~%s", rec.WeightedAverageCostAtSale.Decimal(), want)
	}
	if !rec.RealizedGainPercent.Equal(Percent(28.571428)) {
		t.Errorf("RealizedGainPercent = %v, want ~28.5714", rec.RealizedGainPercent)
	}
	// gain == (price - avg) * units within epsilon.
	derived := rec.UnitSalePrice.Sub(rec.WeightedAverageCostAtSale).Mul(rec.UnitsSold)
	if !near(derived.Decimal(), rec.RealizedGain.Decimal()) {
		t.Errorf("(price - avg) * units = %s, want %s", derived.Decimal(), rec.RealizedGain.Decimal())
	}
	if len(rec.Consumed) != 2 || !rec.Consumed[0].Units.Equal(Q(100)) || !rec.Consumed[1].Units.Equal(Q(20)) {
		t.Errorf("Consumed = %+v, want 100 from the first lot and 20 from the second", rec.Consumed)
	}

	// The next sale skips the 120 units already sold.
	_, cost, _ := p.WeightedAverageCost(Q(30))
	if !cost.Equal(BRL(600)) {
		t.Errorf("cost of the remaining 30 units = %s, want 600", cost.Decimal())
	}
	if !p.Available().Equal(Q(30)) {
		t.Errorf("Available() = %s, want 30", p.Available())
	}
}

func TestSaleProcessor_OversellRejected(t *testing.T) {
	p := newTestProcessor(t, buy(2025, 1, 100, 10), buy(2025, 2, 50, 20))

	_, err := p.Execute(sell(2025, 3, 200, 15))
	var ierr *InsufficientBalanceError
	if !errors.As(err, &ierr) {
		t.Fatalf("Execute() error = %v, want *InsufficientBalanceError", err)
	}
	if !ierr.Requested.Equal(Q(200)) || !ierr.Available.Equal(Q(150)) {
		t.Errorf("error = %v", ierr)
	}
	if p.sales.Len() != 0 {
		t.Errorf("a rejected sale must not be recorded")
	}
	if !p.Available().Equal(Q(150)) {
		t.Errorf("Available() = %s, want 150", p.Available())
	}
}

func TestSaleProcessor_ExecuteValidates(t *testing.T) {
	testCases := []struct {
		name      string
		req       SaleRequest
		wantField string
	}{
		{name: "zero units", req: sell(2025, 3, 0, 15), wantField: "units"},
		{name: "negative units", req: sell(2025, 3, -1, 15), wantField: "units"},
		{name: "zero price", req: sell(2025, 3, 1, 0), wantField: "unitPrice"},
		{name: "bad period", req: sell(2025, 0, 1, 15), wantField: "period"},
		{name: "other currency", req: SaleRequest{Period: NewPeriod(2025, 3), Units: Q(1), UnitPrice: M(1, "EUR")}, wantField: "unitPrice"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProcessor(t, buy(2025, 1, 10, 10))
			_, err := p.Execute(tc.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Execute() error = %v, want *ValidationError", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tc.wantField)
			}
			if p.sales.Len() != 0 {
				t.Error("a rejected sale must not be recorded")
			}
		})
	}
}

func TestSaleProcessor_DefaultPeriod(t *testing.T) {
	p := newTestProcessor(t, buy(2025, 1, 10, 10))
	rec, err := p.Execute(SaleRequest{Units: Q(1), UnitPrice: NO(12)})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rec.Period != NewPeriod(2025, time.July) {
		t.Errorf("Period = %v, want the current month", rec.Period)
	}
	if rec.UnitSalePrice.Currency() != "BRL" {
		t.Errorf("UnitSalePrice currency = %q, want BRL", rec.UnitSalePrice.Currency())
	}
}

// Selling everything then nothing is left: cost of a further request is 0 and guarded.
func TestSaleProcessor_SellAll(t *testing.T) {
	p := newTestProcessor(t, buy(2025, 1, 3, 3.33))
	rec, err := p.Execute(sell(2025, 2, 3, 4))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !rec.CostOfSale.Equal(BRL(9.99)) {
		t.Errorf("CostOfSale = %s, want 9.99", rec.CostOfSale.Decimal())
	}
	if _, err := p.Execute(sell(2025, 2, 0.01, 4)); err == nil {
		t.Error("selling past zero must fail")
	}
}

func TestSaleRecord_JSON(t *testing.T) {
	p := newTestProcessor(t, buy(2025, 1, 100, 10), buy(2025, 2, 50, 20))
	rec, err := p.Execute(sell(2025, 3, 120, 15))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got SaleRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !got.CostOfSale.Equal(rec.CostOfSale) || !got.RealizedGain.Equal(rec.RealizedGain) || got.Period != rec.Period {
		t.Errorf("Unmarshal() = %+v, want %+v", got, rec)
	}
	if len(got.Consumed) != 2 || got.Consumed[1].Cost.Currency() != "BRL" || !got.Consumed[1].Cost.Equal(BRL(400)) {
		t.Errorf("Consumed = %+v", got.Consumed)
	}
}
