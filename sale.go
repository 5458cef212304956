package fxledger

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/etnz/fxledger/id"
	"github.com/shopspring/decimal"
)

// SaleRecord is the immutable record of a sale. Its cost basis is frozen at
// creation time.
type SaleRecord struct {
	ID                        string
	Period                    Period
	UnitsSold                 Quantity
	UnitSalePrice             Money
	TotalSaleValue            Money // UnitsSold * UnitSalePrice
	WeightedAverageCostAtSale Money // CostOfSale / UnitsSold
	CostOfSale                Money // cost of the lots consumed, in FIFO order
	RealizedGain              Money // TotalSaleValue - CostOfSale
	RealizedGainPercent       Percent
	Consumed                  []LotConsumption
	Memo                      string
	CreatedAt                 time.Time
}

// SaleRequest holds the user supplied fields of a sale.
type SaleRequest struct {
	Period    Period // defaults to the current month
	Units     Quantity
	UnitPrice Money
	Memo      string
}

// MarshalJSON implements the json.Marshaler interface for SaleRecord.
func (r SaleRecord) MarshalJSON() ([]byte, error) {
	var w orderedJSON
	w.Append("id", r.ID)
	w.Append("period", r.Period)
	w.Append("unitsSold", r.UnitsSold)
	w.Append("unitSalePrice", r.UnitSalePrice.value)
	w.Append("totalSaleValue", r.TotalSaleValue.value)
	w.Append("weightedAverageCostAtSale", r.WeightedAverageCostAtSale.value)
	w.Append("costOfSale", r.CostOfSale.value)
	w.Append("realizedGain", r.RealizedGain.value)
	w.Append("realizedGainPercent", r.RealizedGainPercent)
	w.Optional("currency", r.UnitSalePrice.cur)
	w.Optional("consumed", r.Consumed)
	w.Optional("memo", r.Memo)
	w.Append("createdAt", r.CreatedAt.UTC())
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for SaleRecord.
func (r *SaleRecord) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID                        string           `json:"id"`
		Period                    Period           `json:"period"`
		UnitsSold                 Quantity         `json:"unitsSold"`
		UnitSalePrice             decimal.Decimal  `json:"unitSalePrice"`
		TotalSaleValue            decimal.Decimal  `json:"totalSaleValue"`
		WeightedAverageCostAtSale decimal.Decimal  `json:"weightedAverageCostAtSale"`
		CostOfSale                decimal.Decimal  `json:"costOfSale"`
		RealizedGain              decimal.Decimal  `json:"realizedGain"`
		RealizedGainPercent       Percent          `json:"realizedGainPercent"`
		Currency                  string           `json:"currency"`
		Consumed                  []LotConsumption `json:"consumed"`
		Memo                      string           `json:"memo"`
		CreatedAt                 time.Time        `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	for i := range temp.Consumed {
		temp.Consumed[i].Cost = temp.Consumed[i].Cost.WithCurrency(temp.Currency)
	}
	*r = SaleRecord{
		ID:                        temp.ID,
		Period:                    temp.Period,
		UnitsSold:                 temp.UnitsSold,
		UnitSalePrice:             M(temp.UnitSalePrice, temp.Currency),
		TotalSaleValue:            M(temp.TotalSaleValue, temp.Currency),
		WeightedAverageCostAtSale: M(temp.WeightedAverageCostAtSale, temp.Currency),
		CostOfSale:                M(temp.CostOfSale, temp.Currency),
		RealizedGain:              M(temp.RealizedGain, temp.Currency),
		RealizedGainPercent:       temp.RealizedGainPercent,
		Consumed:                  temp.Consumed,
		Memo:                      temp.Memo,
		CreatedAt:                 temp.CreatedAt,
	}
	return nil
}

// normalize fills the cost of sale of records that only carry the average cost.
func (r SaleRecord) normalize() SaleRecord {
	if r.CostOfSale.IsZero() && !r.WeightedAverageCostAtSale.IsZero() {
		r.CostOfSale = r.WeightedAverageCostAtSale.Mul(r.UnitsSold)
	}
	return r
}

// clone returns r with its own copy of the consumption snapshot.
func (r SaleRecord) clone() SaleRecord {
	r.Consumed = slices.Clone(r.Consumed)
	return r
}

// validate checks a sale record coming from outside the ledger: units and
// price must be positive, the period well formed and the amounts consistent
// within costEpsilon.
func (r SaleRecord) validate() error {
	if err := r.Period.Validate(); err != nil {
		return err
	}
	if !r.UnitsSold.IsPositive() {
		return notPositive("unitsSold", r.UnitsSold)
	}
	if !r.UnitSalePrice.IsPositive() {
		return notPositive("unitSalePrice", r.UnitSalePrice)
	}
	if r.CostOfSale.IsNegative() {
		return &ValidationError{Field: "costOfSale", Reason: "cost of sale must not be negative, got " + r.CostOfSale.String()}
	}
	if want := r.UnitSalePrice.Mul(r.UnitsSold); !within(r.TotalSaleValue, want) {
		return &ValidationError{Field: "totalSaleValue", Reason: "total sale value " + r.TotalSaleValue.String() + " is not units * unit sale price " + want.String()}
	}
	if want := r.TotalSaleValue.Sub(r.CostOfSale); !within(r.RealizedGain, want) {
		return &ValidationError{Field: "realizedGain", Reason: "realized gain " + r.RealizedGain.String() + " is not total sale value - cost of sale " + want.String()}
	}
	return nil
}

func within(a, b Money) bool { return a.value.Sub(b.value).Abs().LessThanOrEqual(costEpsilon) }

// SaleStore holds the sale records of a ledger, ordered by period, then by
// creation time.
type SaleStore struct {
	sales []SaleRecord
}

// NewSaleStore creates an empty store of sales.
func NewSaleStore() *SaleStore { return &SaleStore{} }

// List returns a copy of the sales in chronological order.
func (s *SaleStore) List() []SaleRecord {
	out := make([]SaleRecord, len(s.sales))
	for i, r := range s.sales {
		out[i] = r.clone()
	}
	return out
}

// Len returns the number of sales.
func (s *SaleStore) Len() int { return len(s.sales) }

// Get returns the sale with that ID.
func (s *SaleStore) Get(saleID string) (SaleRecord, bool) {
	for _, r := range s.sales {
		if r.ID == saleID {
			return r.clone(), true
		}
	}
	return SaleRecord{}, false
}

// Remove deletes the sale with that ID, it reports whether a sale was deleted.
func (s *SaleStore) Remove(saleID string) bool {
	i := slices.IndexFunc(s.sales, func(r SaleRecord) bool { return r.ID == saleID })
	if i < 0 {
		return false
	}
	s.sales = slices.Delete(s.sales, i, i+1)
	return true
}

// TotalUnits returns the units sold across all usable records.
func (s *SaleStore) TotalUnits() Quantity {
	var total Quantity
	for _, r := range s.sales {
		if r.UnitsSold.IsPositive() {
			total = total.Add(r.UnitsSold)
		}
	}
	return total
}

func (s *SaleStore) load(rs ...SaleRecord) {
	for _, r := range rs {
		s.insert(r.normalize())
	}
}

func (s *SaleStore) insert(r SaleRecord) {
	i, _ := slices.BinarySearchFunc(s.sales, r, compareSales)
	s.sales = slices.Insert(s.sales, i, r)
}

func compareSales(a, b SaleRecord) int {
	if c := a.Period.Compare(b.Period); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// SaleProcessor turns a sale request into a validated, cost-matched SaleRecord.
type SaleProcessor struct {
	lots  *LotStore
	sales *SaleStore
	now   func() time.Time
	newID func() string
}

// NewSaleProcessor creates a processor recording sales of lots into sales.
func NewSaleProcessor(lots *LotStore, sales *SaleStore) *SaleProcessor {
	return &SaleProcessor{lots: lots, sales: sales, now: time.Now, newID: id.New}
}

// Available returns the units purchased minus the units sold.
func (p *SaleProcessor) Available() Quantity {
	return p.lots.TotalUnits().Sub(p.sales.TotalUnits())
}

// Validate checks that units can be sold right now.
func (p *SaleProcessor) Validate(units Quantity) error {
	if !units.IsPositive() {
		return notPositive("units", units)
	}
	if available := p.Available(); units.GreaterThan(available) {
		return &InsufficientBalanceError{Requested: units, Available: available.Max(Q(0))}
	}
	return nil
}

// WeightedAverageCost returns the blended unit cost of the next 'units' in
// FIFO order, once the units of all recorded sales are skipped. It also
// returns the total cost and the portion taken from each lot.
func (p *SaleProcessor) WeightedAverageCost(units Quantity) (avg, cost Money, portions []LotConsumption) {
	cost, portions, _ = p.lots.lots.consume(p.sales.TotalUnits(), units)
	if cost.Currency() == "" {
		cost = M(0, p.lots.currency)
	}
	return cost.Div(units), cost, portions
}

// Execute validates the request, matches it against the lots and records the
// sale. Nothing changes when an error is returned.
func (p *SaleProcessor) Execute(req SaleRequest) (SaleRecord, error) {
	if err := p.Validate(req.Units); err != nil {
		return SaleRecord{}, err
	}
	if req.Period.IsZero() {
		req.Period = PeriodOf(p.now())
	}
	if err := req.Period.Validate(); err != nil {
		return SaleRecord{}, err
	}
	if req.UnitPrice.Currency() == "" {
		req.UnitPrice = req.UnitPrice.WithCurrency(p.lots.currency)
	} else if req.UnitPrice.Currency() != p.lots.currency {
		return SaleRecord{}, &ValidationError{Field: "unitPrice", Reason: "currency " + req.UnitPrice.Currency() + " does not match ledger currency " + p.lots.currency}
	}
	if !req.UnitPrice.IsPositive() {
		return SaleRecord{}, notPositive("unitPrice", req.UnitPrice)
	}

	avg, cost, portions := p.WeightedAverageCost(req.Units)
	proceeds := req.UnitPrice.Mul(req.Units)
	gain := proceeds.Sub(cost)
	record := SaleRecord{
		ID:                        p.newID(),
		Period:                    req.Period,
		UnitsSold:                 req.Units,
		UnitSalePrice:             req.UnitPrice,
		TotalSaleValue:            proceeds,
		WeightedAverageCostAtSale: avg,
		CostOfSale:                cost,
		RealizedGain:              gain,
		RealizedGainPercent:       percentOf(gain.value, cost.value),
		Consumed:                  portions,
		Memo:                      req.Memo,
		CreatedAt:                 p.now().UTC(),
	}
	p.sales.insert(record)
	return record, nil
}
