// Package query computes the reports used to compare ledgers: the net worth
// at a date and the statement of change in net worth over a period, both
// valued in a single currency. Amounts without a rate into the currency are
// reported in their own currency.
package query

import (
	"fmt"
	"regexp"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
	"github.com/robinvdvleuten/beancount-scc/summator"
)

// NetWorth returns the balance of every assets and liabilities account at
// the end of date, valued at the rates of date.
func NetWorth(directives ast.Directives, options *ledger.Options, currency string, date *ast.Date) (summator.InventoryAggregator, error) {
	if options == nil {
		options = ledger.NewOptions()
	}
	balances, err := Balances(directives, rootPattern(options.NameAssets, options.NameLiabilities), date)
	if err != nil {
		return nil, err
	}
	prices := ledger.BuildPriceMap(directives)

	out := summator.NewInventoryAggregator()
	for account, inv := range balances {
		for _, pos := range inv.Positions() {
			out.Add(account, ledger.ConvertPosition(pos, currency, prices, date), nil)
		}
	}
	return out, nil
}

// StatementOfChange returns the postings to income, expenses and equity
// accounts dated within [start, end], each valued at the rate of its
// transaction date.
func StatementOfChange(directives ast.Directives, options *ledger.Options, currency string, start, end *ast.Date) (summator.InventoryAggregator, error) {
	if options == nil {
		options = ledger.NewOptions()
	}
	pattern, err := regexp.Compile(rootPattern(options.NameExpenses, options.NameIncome, options.NameEquity))
	if err != nil {
		return nil, err
	}
	prices := ledger.BuildPriceMap(directives)

	out := summator.NewInventoryAggregator()
	for _, directive := range directives {
		txn, ok := directive.(*ast.Transaction)
		if !ok || txn.Date.Before(start) || txn.Date.After(end) {
			continue
		}
		for _, posting := range txn.Postings {
			if !pattern.MatchString(string(posting.Account)) {
				continue
			}
			units, cost, err := ledger.PostingPosition(posting)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", txn.Date, err)
			}
			pos := &ledger.Position{Units: units, Cost: cost}
			out.Add(posting.Account, ledger.ConvertPosition(pos, currency, prices, txn.Date), nil)
		}
	}
	return out, nil
}

// Balances returns the unconverted inventories of the accounts matching
// pattern at the end of date. A nil date includes every transaction.
func Balances(directives ast.Directives, pattern string, date *ast.Date) (summator.InventoryAggregator, error) {
	sum, err := summator.New(directives, pattern)
	if err != nil {
		return nil, err
	}
	if date == nil {
		if len(directives) == 0 {
			return summator.NewInventoryAggregator(), nil
		}
		date = directives[len(directives)-1].GetDate()
	}
	return sum.SumTillDate(date)
}

func rootPattern(roots ...string) string {
	pattern := "^("
	for i, root := range roots {
		if i > 0 {
			pattern += "|"
		}
		pattern += regexp.QuoteMeta(root)
	}
	return pattern + ")(:|$)"
}
