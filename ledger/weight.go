package ledger

import (
	"fmt"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Weight returns the contribution of a posting to the transaction balance.
//
//	10 HOOL {5 EUR}       ; 50 EUR (cost wins over price)
//	10 HOOL {{50 EUR}}    ; 50 EUR
//	-10 USD @ 0.9 EUR     ; -9.0 EUR
//	-10 USD @@ 9 EUR      ; -9 EUR (sign of the units)
//	10 EUR                ; 10 EUR
func Weight(posting *ast.Posting) (Amount, error) {
	if posting.Amount == nil {
		return Amount{}, fmt.Errorf("posting to %s has no amount", posting.Account)
	}

	units, err := ParseAmount(posting.Amount)
	if err != nil {
		return Amount{}, err
	}

	switch {
	case posting.Cost != nil && posting.Cost.Amount != nil:
		number, err := ParseAmount(posting.Cost.Amount)
		if err != nil {
			return Amount{}, fmt.Errorf("invalid cost: %w", err)
		}
		if posting.Cost.IsTotal {
			if units.IsNegative() {
				number = number.Neg()
			}
			return Amount{Number: number, Currency: posting.Cost.Amount.Currency}, nil
		}
		return Amount{Number: units.Mul(number), Currency: posting.Cost.Amount.Currency}, nil

	case posting.Price != nil:
		number, err := ParseAmount(posting.Price)
		if err != nil {
			return Amount{}, fmt.Errorf("invalid price: %w", err)
		}
		if posting.PriceTotal {
			if units.IsNegative() {
				number = number.Neg()
			}
			return Amount{Number: number, Currency: posting.Price.Currency}, nil
		}
		return Amount{Number: units.Mul(number), Currency: posting.Price.Currency}, nil
	}

	return Amount{Number: units, Currency: posting.Amount.Currency}, nil
}

// ComputeResidual sums the weights of all postings that carry an amount.
func ComputeResidual(postings []*ast.Posting) (*Inventory, error) {
	residual := NewInventory()
	for _, posting := range postings {
		if posting.Amount == nil {
			continue
		}
		w, err := Weight(posting)
		if err != nil {
			return nil, err
		}
		residual.AddAmount(w, nil)
	}
	return residual, nil
}
