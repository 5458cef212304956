package fxledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// amountField is a specialized struct to read an amount stored in two fields.
type amountField struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (a amountField) Money() Money {
	return M(a.Amount, a.Currency)
}

// Kinds of line in a JSONL bundle.
const (
	kindHeader = "ledger"
	kindLot    = "lot"
	kindSale   = "sale"
)

// Bundle is the portable content of a ledger: both collections plus the
// currencies they are expressed in.
type Bundle struct {
	Asset    string
	Currency string
	Lots     []PurchaseLot
	Sales    []SaleRecord
}

// EncodeBundle writes b to w in JSONL format: a header line, then one line
// per lot in FIFO order, then one line per sale in chronological order.
func EncodeBundle(w io.Writer, b Bundle) error {
	writeLine := func(kind string, v any) error {
		data, err := withKind(kind, v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", kind, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write %s: %w", kind, err)
		}
		return nil
	}

	header := struct {
		Asset    string `json:"asset,omitempty"`
		Currency string `json:"currency,omitempty"`
	}{b.Asset, b.Currency}
	if err := writeLine(kindHeader, header); err != nil {
		return err
	}
	for _, lot := range b.Lots {
		if err := writeLine(kindLot, lot); err != nil {
			return err
		}
	}
	for _, sale := range b.Sales {
		if err := writeLine(kindSale, sale); err != nil {
			return err
		}
	}
	return nil
}

// DecodeBundle reads a JSONL bundle. The header line is optional; empty lines
// are skipped.
func DecodeBundle(r io.Reader) (Bundle, error) {
	var b Bundle
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}

		var identifier struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return Bundle{}, fmt.Errorf("line %d: could not identify record kind in %q: %w", line, string(lineBytes), err)
		}

		switch identifier.Kind {
		case kindHeader:
			var temp struct {
				Asset    string `json:"asset"`
				Currency string `json:"currency"`
			}
			if err := json.Unmarshal(lineBytes, &temp); err != nil {
				return Bundle{}, fmt.Errorf("line %d: %w", line, err)
			}
			b.Asset, b.Currency = temp.Asset, temp.Currency
		case kindLot:
			var lot PurchaseLot
			if err := json.Unmarshal(lineBytes, &lot); err != nil {
				return Bundle{}, fmt.Errorf("line %d: %w", line, err)
			}
			b.Lots = append(b.Lots, lot)
		case kindSale:
			var sale SaleRecord
			if err := json.Unmarshal(lineBytes, &sale); err != nil {
				return Bundle{}, fmt.Errorf("line %d: %w", line, err)
			}
			b.Sales = append(b.Sales, sale)
		default:
			return Bundle{}, fmt.Errorf("line %d: unknown record kind: %q", line, identifier.Kind)
		}
	}

	if err := scanner.Err(); err != nil {
		return Bundle{}, fmt.Errorf("error reading from input: %w", err)
	}
	return b, nil
}
