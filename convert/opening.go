package convert

import (
	"fmt"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

// synthetic creates an empty transaction marked as created by the converter.
func (r *run) synthetic(date *ast.Date, narration string) *ast.Transaction {
	return ast.NewTransaction(date, narration,
		ast.WithTransactionMetadata(ast.NewMetadata(MetaMessage, r.constants.SyntheticMessage)))
}

// openingTransaction summarizes the balance sheet at the end of the day
// before the start date in a single transaction in the target currency,
// balanced against the opening equity account. Commodities without a rate on
// that day keep their own currency and are marked unconvertible. A ledger
// without balances before the start date yields no transaction.
func (r *run) openingTransaction() (*ast.Transaction, error) {
	day := r.start.AddDays(-1)
	balances, err := r.summator.SumTillDate(day)
	if err != nil {
		return nil, err
	}
	balances = balances.CleanEmpty()
	if balances.IsEmpty() {
		return nil, nil
	}

	converted := balances.Convert(r.currency, r.prices, day)
	txn := r.synthetic(day, r.constants.OpeningNarration)

	for _, pos := range converted.SumAll().Positions() {
		if pos.Units.Currency != r.currency {
			r.unconvertible[pos.Units.Currency] = true
		}
		txn.Postings = append(txn.Postings, &ast.Posting{
			Account: r.constants.OpeningAccount,
			Amount:  pos.Units.Neg().AST(),
		})
	}

	for _, account := range converted.Accounts() {
		for _, pos := range converted[account].Positions() {
			var original string
			if pos.Units.Currency == r.currency {
				original = balances.Get(account).Filter(func(p *ledger.Position) bool {
					return !r.unconvertible[p.Units.Currency]
				}).String()
			} else {
				if !r.unconvertible[pos.Units.Currency] {
					return nil, &InternalError{Msg: fmt.Sprintf("currency %s of the opening balance of %s is neither %s nor unconvertible", pos.Units.Currency, account, r.currency)}
				}
				original = balances.Get(account).Units(pos.Units.Currency).String()
			}
			txn.Postings = append(txn.Postings, &ast.Posting{
				Account:  account,
				Amount:   pos.Units.AST(),
				Metadata: []*ast.Metadata{ast.NewMetadata(MetaMessage, fmt.Sprintf("Balance in original currency %s", original))},
			})
		}
	}

	if err := r.correct(txn, r.constants.PriceDiffAccount.Sub(r.currency+"-"+r.currency)); err != nil {
		return nil, err
	}
	return txn, nil
}
