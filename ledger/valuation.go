package ledger

import (
	"github.com/robinvdvleuten/beancount-scc/ast"
)

// ConvertAmount converts amt into target at the rate valid on date. When
// there is no direct rate, each of the via currencies is tried as an
// intermediate step. An amount without any usable rate is returned unchanged.
func ConvertAmount(amt Amount, target string, prices *PriceMap, date *ast.Date, via ...string) Amount {
	if rate, ok := prices.GetPrice(amt.Currency, target, date); ok {
		return Amount{Number: amt.Number.Mul(rate), Currency: target}
	}
	for _, implied := range via {
		if implied == "" || implied == target {
			continue
		}
		first, ok := prices.GetPrice(amt.Currency, implied, date)
		if !ok {
			continue
		}
		second, ok := prices.GetPrice(implied, target, date)
		if !ok {
			continue
		}
		return Amount{Number: amt.Number.Mul(first).Mul(second), Currency: target}
	}
	return amt
}

// ConvertPosition converts the units of pos into target. The cost currency
// of a lot is used as intermediate when there is no direct rate.
func ConvertPosition(pos *Position, target string, prices *PriceMap, date *ast.Date) Amount {
	var via string
	if pos.Cost != nil {
		via = pos.Cost.Currency
	}
	return ConvertAmount(pos.Units, target, prices, date, via)
}

// PostingPosition returns the units and booked cost of a posting. Postings
// must be booked, so a cost, if present, carries a per-unit number.
func PostingPosition(posting *ast.Posting) (Amount, *Cost, error) {
	units, err := AmountFromAST(posting.Amount)
	if err != nil {
		return Amount{}, nil, err
	}
	if posting.Cost == nil || posting.Cost.Amount == nil {
		return units, nil, nil
	}
	number, err := ParseAmount(posting.Cost.Amount)
	if err != nil {
		return Amount{}, nil, err
	}
	if posting.Cost.IsTotal && !units.Number.IsZero() {
		number = Divide(number, units.Number.Abs())
	}
	cost := &Cost{Number: number, Currency: posting.Cost.Amount.Currency, Label: posting.Cost.Label}
	if !posting.Cost.Date.IsZero() {
		d := *posting.Cost.Date
		cost.Date = &d
	}
	return units, cost, nil
}
