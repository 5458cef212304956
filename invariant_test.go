package fxledger

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

// A random sequence of valid and invalid operations never sells more than
// purchased, and the balance always reconciles.
func TestLedger_RandomOperationsKeepInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		r := rand.New(rand.NewPCG(seed, seed*7))
		ctx := context.Background()
		l := newTestLedger(t)
		captureLog(t)

		for step := 0; step < 60; step++ {
			period := NewPeriod(2024+r.IntN(2), time.Month(1+r.IntN(12)))
			units := float64(r.IntN(200)-20) / 4 // sometimes negative or zero
			price := float64(r.IntN(4000)) / 100
			var err error
			switch op := r.IntN(10); {
			case op < 4:
				_, err = l.AddLot(ctx, LotInput{Period: period, Units: Q(units), UnitCost: BRL(price)})
			case op < 8:
				_, err = l.Sell(ctx, SaleRequest{Period: period, Units: Q(units), UnitPrice: BRL(price)})
			case op == 8:
				if lots := l.Lots(); len(lots) > 0 {
					err = l.RemoveLot(ctx, lots[r.IntN(len(lots))].ID)
				}
			default:
				if sales := l.Sales(); len(sales) > 0 {
					err = l.RemoveSale(ctx, sales[r.IntN(len(sales))].ID)
				}
			}
			var verr *ValidationError
			var ierr *InsufficientBalanceError
			if err != nil && !errors.As(err, &verr) && !errors.As(err, &ierr) {
				t.Fatalf("seed %d step %d: unexpected error %v", seed, step, err)
			}

			b := l.Balance()
			if b.UnitsSold.GreaterThan(b.UnitsPurchased) {
				t.Fatalf("seed %d step %d: sold %s > purchased %s", seed, step, b.UnitsSold, b.UnitsPurchased)
			}
			if b.UnitsAvailable.IsNegative() {
				t.Fatalf("seed %d step %d: negative balance %s", seed, step, b.UnitsAvailable)
			}
			if !near(b.WeightedAverageCost.Mul(b.UnitsAvailable).Decimal(), b.RemainingCost.Decimal()) {
				t.Fatalf("seed %d step %d: avg %s * units %s != remaining %s", seed, step, b.WeightedAverageCost.Decimal(), b.UnitsAvailable, b.RemainingCost.Decimal())
			}
			for _, s := range l.Sales() {
				if !s.RealizedGain.Equal(s.TotalSaleValue.Sub(s.CostOfSale)) {
					t.Fatalf("seed %d step %d: sale %s gain does not match proceeds - cost", seed, step, s.ID)
				}
			}
		}
	}
}
