package fxledger

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PurchaseLot represents a single purchase of the foreign currency asset, used
// for cost basis calculations.
type PurchaseLot struct {
	ID        string
	Period    Period
	Units     Quantity // Units is the number of units of the asset bought.
	UnitCost  Money    // UnitCost is the price paid per unit, in the cost currency.
	TotalCost Money    // TotalCost is Units * UnitCost.
	Memo      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LotInput holds the user supplied fields of a purchase lot.
type LotInput struct {
	Period   Period
	Units    Quantity
	UnitCost Money
	Memo     string
}

// MarshalJSON implements the json.Marshaler interface for PurchaseLot.
func (l PurchaseLot) MarshalJSON() ([]byte, error) {
	var w orderedJSON
	w.Append("id", l.ID)
	w.Append("period", l.Period)
	w.Append("units", l.Units)
	w.Append("unitCost", l.UnitCost.value)
	w.Append("totalCost", l.TotalCost.value)
	w.Optional("currency", l.UnitCost.cur)
	w.Optional("memo", l.Memo)
	w.Append("createdAt", l.CreatedAt.UTC())
	w.Append("updatedAt", l.UpdatedAt.UTC())
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for PurchaseLot.
// It handles the flat structure where amounts and currency are separate fields.
func (l *PurchaseLot) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID        string          `json:"id"`
		Period    Period          `json:"period"`
		Units     Quantity        `json:"units"`
		UnitCost  decimal.Decimal `json:"unitCost"`
		TotalCost decimal.Decimal `json:"totalCost"`
		Currency  string          `json:"currency"`
		Memo      string          `json:"memo"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*l = PurchaseLot{
		ID:        temp.ID,
		Period:    temp.Period,
		Units:     temp.Units,
		UnitCost:  M(temp.UnitCost, temp.Currency),
		TotalCost: M(temp.TotalCost, temp.Currency),
		Memo:      temp.Memo,
		CreatedAt: temp.CreatedAt,
		UpdatedAt: temp.UpdatedAt,
	}
	return nil
}

// costEpsilon bounds the accepted drift between TotalCost and Units*UnitCost.
var costEpsilon = decimal.New(1, -6)

// normalize enforces TotalCost == Units*UnitCost on a loaded lot.
func (l PurchaseLot) normalize() PurchaseLot {
	want := l.UnitCost.Mul(l.Units)
	if l.TotalCost.value.Sub(want.value).Abs().GreaterThan(costEpsilon) {
		logger.WithFields(logrus.Fields{
			"lot":    l.ID,
			"stored": l.TotalCost.value.String(),
			"want":   want.value.String(),
		}).Warn("lot total cost does not match units * unit cost, using the product")
	}
	l.TotalCost = want
	return l
}

// costUpTo returns the cost of the first x units of the lot. The whole lot
// costs exactly TotalCost, so consecutive slices add up without drift.
func (l PurchaseLot) costUpTo(x Quantity) Money {
	if x.GreaterThanOrEqual(l.Units) {
		return l.TotalCost
	}
	return l.TotalCost.Mul(x).Div(l.Units)
}

// LotConsumption is the part of a lot that funded a sale.
type LotConsumption struct {
	LotID string
	Units Quantity
	Cost  Money
}

func (c LotConsumption) MarshalJSON() ([]byte, error) {
	var w orderedJSON
	w.Append("lot", c.LotID)
	w.Append("units", c.Units)
	w.Append("cost", c.Cost.value)
	return w.MarshalJSON()
}

func (c *LotConsumption) UnmarshalJSON(data []byte) error {
	var temp struct {
		LotID string          `json:"lot"`
		Units Quantity        `json:"units"`
		Cost  decimal.Decimal `json:"cost"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*c = LotConsumption{LotID: temp.LotID, Units: temp.Units, Cost: M(temp.Cost, "")}
	return nil
}

// lots is a list of lots in FIFO order.
type lots []PurchaseLot

// totalUnits returns the sum of units across usable lots.
func (l lots) totalUnits() Quantity {
	var total Quantity
	for _, lot := range l {
		if lot.Units.IsPositive() {
			total = total.Add(lot.Units)
		}
	}
	return total
}

// consume skips the first 'skip' units in FIFO order, then takes 'units' more,
// the last lot possibly partially. It returns the cost of the units taken,
// the portion taken from each lot and how many units were actually covered.
func (l lots) consume(skip, units Quantity) (cost Money, portions []LotConsumption, covered Quantity) {
	for _, currentLot := range l {
		if !units.IsPositive() {
			break
		}
		if !currentLot.Units.IsPositive() {
			logger.WithField("lot", currentLot.ID).Warn("ignoring lot with non-positive units")
			continue
		}

		// Skip units already consumed by earlier sales.
		var offset Quantity
		if skip.IsPositive() {
			if skip.GreaterThanOrEqual(currentLot.Units) {
				skip = skip.Sub(currentLot.Units)
				continue
			}
			offset, skip = skip, Q(0)
		}

		take := currentLot.Units.Sub(offset).Min(units)
		portion := currentLot.costUpTo(offset.Add(take)).Sub(currentLot.costUpTo(offset))
		portions = append(portions, LotConsumption{LotID: currentLot.ID, Units: take, Cost: portion})
		cost = cost.Add(portion)
		covered = covered.Add(take)
		units = units.Sub(take)
	}
	return cost, portions, covered
}

// remaining returns the units and cost left once 'skip' units are consumed.
func (l lots) remaining(skip Quantity) (Quantity, Money) {
	left := l.totalUnits().Sub(skip)
	if !left.IsPositive() {
		return Q(0), Money{}
	}
	cost, _, covered := l.consume(skip, left)
	return covered, cost
}
