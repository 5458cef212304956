package fxledger

import (
	"slices"
	"time"

	"github.com/etnz/fxledger/id"
)

// LotStore holds the purchase lots of a ledger and enforces their structural
// validity. Lots are kept in FIFO order: ascending by period, then by
// creation time, then by ID.
type LotStore struct {
	currency string
	lots     lots
	now      func() time.Time
	newID    func() string
}

// NewLotStore creates an empty store of lots priced in currency.
func NewLotStore(currency string) *LotStore {
	return &LotStore{
		currency: currency,
		now:      time.Now,
		newID:    id.New,
	}
}

// Validate checks a lot input. The quick fix sets a missing currency to the store's one.
func (s *LotStore) Validate(in LotInput) (LotInput, error) {
	if err := in.Period.Validate(); err != nil {
		return in, err
	}
	if !in.Units.IsPositive() {
		return in, notPositive("units", in.Units)
	}
	if in.UnitCost.Currency() == "" {
		in.UnitCost = in.UnitCost.WithCurrency(s.currency)
	} else if in.UnitCost.Currency() != s.currency {
		return in, &ValidationError{Field: "unitCost", Reason: "currency " + in.UnitCost.Currency() + " does not match ledger currency " + s.currency}
	}
	if !in.UnitCost.IsPositive() {
		return in, notPositive("unitCost", in.UnitCost)
	}
	if err := validate.Var(in.Memo, "max=500"); err != nil {
		return in, &ValidationError{Field: "memo", Reason: "memo is longer than 500 characters"}
	}
	return in, nil
}

// Add validates and appends a new lot. It returns the stored lot with its generated ID.
func (s *LotStore) Add(in LotInput) (PurchaseLot, error) {
	in, err := s.Validate(in)
	if err != nil {
		return PurchaseLot{}, err
	}
	now := s.now().UTC()
	lot := PurchaseLot{
		ID:        s.newID(),
		Period:    in.Period,
		Units:     in.Units,
		UnitCost:  in.UnitCost,
		TotalCost: in.UnitCost.Mul(in.Units),
		Memo:      in.Memo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.insert(lot)
	return lot, nil
}

// Replace substitutes the lot with that ID wholesale. ID and creation time are kept.
func (s *LotStore) Replace(lotID string, in LotInput) (PurchaseLot, error) {
	old, ok := s.Get(lotID)
	if !ok {
		return PurchaseLot{}, &ValidationError{Field: "id", Reason: "no lot with id " + lotID}
	}
	in, err := s.Validate(in)
	if err != nil {
		return PurchaseLot{}, err
	}
	lot := PurchaseLot{
		ID:        old.ID,
		Period:    in.Period,
		Units:     in.Units,
		UnitCost:  in.UnitCost,
		TotalCost: in.UnitCost.Mul(in.Units),
		Memo:      in.Memo,
		CreatedAt: old.CreatedAt,
		UpdatedAt: s.now().UTC(),
	}
	s.Remove(lotID)
	s.insert(lot)
	return lot, nil
}

// Remove deletes the lot with that ID. Removing an unknown ID is not an error;
// it reports whether a lot was deleted.
func (s *LotStore) Remove(lotID string) bool {
	i := slices.IndexFunc(s.lots, func(l PurchaseLot) bool { return l.ID == lotID })
	if i < 0 {
		return false
	}
	s.lots = slices.Delete(s.lots, i, i+1)
	return true
}

// Get returns the lot with that ID.
func (s *LotStore) Get(lotID string) (PurchaseLot, bool) {
	for _, l := range s.lots {
		if l.ID == lotID {
			return l, true
		}
	}
	return PurchaseLot{}, false
}

// List returns a copy of the lots in FIFO order.
func (s *LotStore) List() []PurchaseLot { return slices.Clone(s.lots) }

// Len returns the number of lots.
func (s *LotStore) Len() int { return len(s.lots) }

// TotalUnits returns the units purchased across all lots.
func (s *LotStore) TotalUnits() Quantity { return s.lots.totalUnits() }

// load appends historical lots without validation other than the cost invariant.
func (s *LotStore) load(ls ...PurchaseLot) {
	for _, l := range ls {
		s.insert(l.normalize())
	}
}

// insert keeps the FIFO order.
func (s *LotStore) insert(lot PurchaseLot) {
	i, _ := slices.BinarySearchFunc(s.lots, lot, compareLots)
	s.lots = slices.Insert(s.lots, i, lot)
}

// compareLots defines FIFO precedence.
func compareLots(a, b PurchaseLot) int {
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
