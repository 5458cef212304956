package fxledger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestEncodeBundle(t *testing.T) {
	created := time.Date(2025, time.March, 1, 9, 30, 0, 0, time.UTC)
	b := Bundle{
		Asset:    "USD",
		Currency: "BRL",
		Lots: []PurchaseLot{
			{ID: "a", Period: NewPeriod(2025, 1), Units: Q(100), UnitCost: BRL(5.1), TotalCost: BRL(510), CreatedAt: created, UpdatedAt: created},
		},
		Sales: []SaleRecord{
			{
				ID: "s", Period: NewPeriod(2025, 2), UnitsSold: Q(10),
				UnitSalePrice: BRL(5.5), TotalSaleValue: BRL(55), WeightedAverageCostAtSale: BRL(5.1),
				CostOfSale: BRL(51), RealizedGain: BRL(4), RealizedGainPercent: 7.84,
				Consumed:  []LotConsumption{{LotID: "a", Units: Q(10), Cost: BRL(51)}},
				CreatedAt: created,
			},
		},
	}
	var buf bytes.Buffer
	if err := EncodeBundle(&buf, b); err != nil {
		t.Fatalf("EncodeBundle() error = %v", err)
	}
	want := `{"kind":"ledger","asset":"USD","currency":"BRL"}
{"kind":"lot","id":"a","period":"2025-01","units":100,"unitCost":5.1,"totalCost":510,"currency":"BRL","createdAt":"2025-03-01T09:30:00Z","updatedAt":"2025-03-01T09:30:00Z"}
{"kind":"sale","id":"s","period":"2025-02","unitsSold":10,"unitSalePrice":5.5,"totalSaleValue":55,"weightedAverageCostAtSale":5.1,"costOfSale":51,"realizedGain":4,"realizedGainPercent":7.84,"currency":"BRL","consumed":[{"lot":"a","units":10,"cost":51}],"createdAt":"2025-03-01T09:30:00Z"}
`
	if got := buf.String(); got != want {
		t.Errorf("EncodeBundle() =\n%s\nwant\n%s", got, want)
	}

	decoded, err := DecodeBundle(&buf)
	if err != nil {
		t.Fatalf("DecodeBundle() error = %v", err)
	}
	if decoded.Asset != "USD" || decoded.Currency != "BRL" || len(decoded.Lots) != 1 || len(decoded.Sales) != 1 {
		t.Fatalf("DecodeBundle() = %+v", decoded)
	}
	if !decoded.Sales[0].Consumed[0].Cost.Equal(BRL(51)) {
		t.Errorf("Consumed cost = %+v", decoded.Sales[0].Consumed[0].Cost)
	}
}

func TestDecodeBundle_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `hello`},
		{name: "unknown kind", input: `{"kind":"dividend"}`},
		{name: "bad lot", input: `{"kind":"lot","units":"many"}`},
		{name: "bad period", input: `{"kind":"sale","period":"2025"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeBundle(strings.NewReader(tc.input)); err == nil {
				t.Errorf("DecodeBundle(%q) succeeded, want an error", tc.input)
			}
		})
	}
}

func TestDecodeBundle_SkipsEmptyLines(t *testing.T) {
	input := "\n" + `{"kind":"lot","id":"a","period":"2025-01","units":1,"unitCost":2,"totalCost":2}` + "\n\n"
	b, err := DecodeBundle(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeBundle() error = %v", err)
	}
	if len(b.Lots) != 1 || b.Currency != "" {
		t.Errorf("DecodeBundle() = %+v", b)
	}
}
