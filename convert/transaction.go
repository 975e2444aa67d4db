package convert

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

// setMeta sets key to value, replacing an existing entry of the same key.
func setMeta(metadata []*ast.Metadata, key, value string) []*ast.Metadata {
	for _, m := range metadata {
		if m.Key == key {
			m.Value = &ast.MetadataValue{StringValue: &value}
			return metadata
		}
	}
	return append(metadata, ast.NewMetadata(key, value))
}

// convertAmount converts amt into the target currency at date. Lots priced
// in a third currency go through that currency.
func (r *run) convertAmount(amt ledger.Amount, date *ast.Date, via ...string) (ledger.Amount, error) {
	if amt.Currency == r.currency {
		return amt, nil
	}
	converted := ledger.ConvertAmount(amt, r.currency, r.prices, date, via...)
	if converted.Currency != r.currency {
		return amt, &ConversionRateNotFoundError{Currency: amt.Currency, Target: r.currency, Date: date}
	}
	return converted, nil
}

// convertTransaction returns a copy of orig with every posting expressed in
// the target currency. Costs and prices are removed; where the weight of a
// posting differs from its converted value, a price difference posting keeps
// the transaction balanced. Postings in a commodity without any rate are
// kept as they are and the commodity becomes unconvertible.
func (r *run) convertTransaction(orig *ast.Transaction) (*ast.Transaction, error) {
	txn := orig.CloneTransaction()
	postings := txn.Postings
	txn.Postings = make([]*ast.Posting, 0, len(postings))

	for i, posting := range postings {
		if posting.Amount == nil {
			return nil, &InternalError{Msg: fmt.Sprintf("posting to %s has no amount", posting.Account), Directive: orig}
		}
		units, err := ledger.AmountFromAST(posting.Amount)
		if err != nil {
			return nil, err
		}
		pricedOrCost := posting.Cost != nil || posting.Price != nil

		if units.Currency == r.currency && !pricedOrCost {
			txn.Postings = append(txn.Postings, posting)
			continue
		}

		var newUnits ledger.Amount
		switch {
		case units.Currency == r.currency:
			newUnits = units
			posting.Metadata = setMeta(posting.Metadata, MetaMessage,
				"Converted from original posting in the same currency by removing cost and/or price")

		case r.unconvertible[units.Currency] && pricedOrCost:
			return nil, r.transferError(orig, orig.Postings[i], units.Currency, true)

		default:
			converted, err := r.convertAmount(units, orig.Date)
			switch {
			case err == nil:
				newUnits = converted
				posting.Metadata = setMeta(posting.Metadata, MetaMessage,
					fmt.Sprintf("Converted from %s", units))
			case pricedOrCost:
				return nil, r.transferError(orig, orig.Postings[i], units.Currency, false)
			default:
				r.logger.Debug("commodity is unconvertible", "currency", units.Currency, "date", orig.Date.String())
				newUnits = units
				r.unconvertible[units.Currency] = true
			}
		}

		txn.Postings = append(txn.Postings, &ast.Posting{
			Pos:      posting.Pos,
			Flag:     posting.Flag,
			Account:  posting.Account,
			Amount:   newUnits.AST(),
			Metadata: posting.Metadata,
		})
		if !pricedOrCost {
			continue
		}

		diff, err := r.priceDiffPosting(orig.Postings[i], units, newUnits, orig.Date)
		if err != nil {
			return nil, err
		}
		if diff != nil {
			txn.Postings = append(txn.Postings, diff)
		}
	}

	if err := r.correct(txn, r.constants.PriceDiffAccount.Sub(r.currency+"-"+r.currency)); err != nil {
		return nil, err
	}
	return txn, nil
}

// priceDiffPosting compares the weight of a posting with cost or price, in
// the target currency, to its converted units. A difference is booked to the
// price difference account.
func (r *run) priceDiffPosting(posting *ast.Posting, units, newUnits ledger.Amount, date *ast.Date) (*ast.Posting, error) {
	weight, err := ledger.Weight(posting)
	if err != nil {
		return nil, err
	}
	weightTarget, err := r.convertAmount(weight, date)
	if err != nil {
		return nil, err
	}
	if weightTarget.Number.Equal(newUnits.Number) {
		return nil, nil
	}

	var account ast.Account
	var msg string
	if units.Currency == r.currency {
		account = r.constants.PriceDiffAccount.Sub(r.currency + "-" + weight.Currency)
		msg = fmt.Sprintf("Price difference compensation when converting %s to %s", weight, r.currency)
	} else {
		account = r.constants.PriceDiffAccount.Sub(r.currency + "-" + units.Currency)
		msg = fmt.Sprintf("Price difference compensation when converting %s to %s", units, r.currency)
	}
	msg += fmt.Sprintf(". 'price' directive price is %s, price used to weight the posting is %s",
		ratio(newUnits.Number, units.Number), ratio(weightTarget.Number, units.Number))

	atCost := NoCost
	if posting.Cost != nil {
		atCost = AtCost
	}

	return &ast.Posting{
		Flag:    posting.Flag,
		Account: account,
		Amount:  ledger.NewAmount(weightTarget.Number.Sub(newUnits.Number), r.currency).AST(),
		Metadata: []*ast.Metadata{
			ast.NewMetadata(MetaMessage, msg),
			ast.NewMetadata(MetaAtCost, atCost),
			ast.NewMetadata(MetaCause, PriceDiff),
			ast.NewMetadata(MetaAccount, string(posting.Account)),
		},
	}, nil
}

func ratio(a, b decimal.Decimal) string {
	if b.IsZero() {
		return "undefined"
	}
	return ledger.Divide(a, b).String()
}

func (r *run) transferError(txn *ast.Transaction, posting *ast.Posting, currency string, unconvertible bool) error {
	first, _ := r.prices.FirstDate(currency, r.currency)
	return &TransferFundsToFromUnconvertableCommError{
		Transaction:    txn,
		Posting:        posting,
		Currency:       currency,
		Target:         r.currency,
		Unconvertible:  unconvertible,
		FirstPriceDate: first,
		IntroducedDate: r.introduced[currency],
	}
}

// correct appends a posting to account absorbing a residual of txn that is
// larger than its inferred tolerance. Residuals above the correction
// threshold are internal errors.
func (r *run) correct(txn *ast.Transaction, account ast.Account) error {
	residual, err := ledger.ComputeResidual(txn.Postings)
	if err != nil {
		return err
	}
	if residual.IsSmall(ledger.InferTolerances(txn.Postings, r.options.Tolerance)) {
		return nil
	}

	pos, ok := residual.OnlyPosition()
	if !ok {
		return &InternalError{Msg: fmt.Sprintf("residual of the converted transaction has more than one currency: %s", residual), Directive: txn}
	}
	if pos.Units.Number.Abs().GreaterThan(r.constants.CorrectionThreshold) {
		return &InternalError{
			Msg:       fmt.Sprintf("error for balance correction is above the threshold (%s): %s", r.constants.CorrectionThreshold, pos.Units),
			Directive: txn,
		}
	}

	r.logger.Debug("balance correction", "date", txn.Date.String(), "residual", pos.Units.String())
	txn.Postings = append(txn.Postings, &ast.Posting{
		Account:  account,
		Amount:   pos.Units.Neg().AST(),
		Metadata: []*ast.Metadata{ast.NewMetadata(MetaMessage, r.constants.CorrectionMessage)},
	})
	return nil
}
