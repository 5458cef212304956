package fxledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// BRL is a helper for test to create real money from const
func BRL(v float64) Money { return M(v, "BRL") }

// NO is a helper for test to create money from const with no currency set
func NO(v float64) Money { return M(v, "") }

// buy is a helper for test to create a lot input.
func buy(year int, month time.Month, units, unitCost float64) LotInput {
	return LotInput{Period: NewPeriod(year, month), Units: Q(units), UnitCost: BRL(unitCost)}
}

// sell is a helper for test to create a sale request.
func sell(year int, month time.Month, units, unitPrice float64) SaleRequest {
	return SaleRequest{Period: NewPeriod(year, month), Units: Q(units), UnitPrice: BRL(unitPrice)}
}

// testClock returns a clock that ticks one second per call, starting at start.
func testClock(start time.Time) func() time.Time {
	t := start.Add(-time.Second)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

// testIDs returns a generator of predictable IDs "<prefix>1", "<prefix>2", ...
func testIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// newTestLedger returns an empty USD/BRL ledger with a deterministic clock and IDs.
func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{
		WithClock(testClock(time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC))),
		WithIDs(testIDs("id-")),
	}, opts...)
	l, err := New("USD", "BRL", opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

// captureLog swaps the package logger for a test logger and restores it at the end of the test.
func captureLog(t *testing.T) *test.Hook {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	SetLogger(log)
	t.Cleanup(func() { SetLogger(nil) })
	return hook
}

// warnings returns the messages logged at warn level.
func warnings(hook *test.Hook) []string {
	var msgs []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

// near reports whether a and b differ by at most 1e-6.
func near(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(decimal.New(1, -6))
}

// memGateway is an in-memory Gateway with an injectable save failure.
type memGateway struct {
	data    map[string][]json.RawMessage
	saves   map[string]int
	failing bool
}

func newMemGateway() *memGateway {
	return &memGateway{data: make(map[string][]json.RawMessage), saves: make(map[string]int)}
}

func (g *memGateway) Load(_ context.Context, collection string) ([]json.RawMessage, error) {
	return g.data[collection], nil
}

func (g *memGateway) Save(_ context.Context, collection string, records []json.RawMessage) error {
	if g.failing {
		return errors.New("disk full")
	}
	g.saves[collection]++
	g.data[collection] = records
	return nil
}
