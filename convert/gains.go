package convert

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
	"github.com/robinvdvleuten/beancount-scc/summator"
	"github.com/robinvdvleuten/beancount-scc/telemetry"
)

// priceChange is a new rate of a commodity in the target currency.
type priceChange struct {
	Date     *ast.Date
	Currency string
	Rate     decimal.Decimal
}

// priceChanges lists the rates quoted in target within [start, end], in date
// order. Rates of the same day keep the order of their pairs.
func priceChanges(prices *ledger.PriceMap, target string, start, end *ast.Date) []priceChange {
	var changes []priceChange
	for _, pair := range prices.Pairs() {
		if pair.Quote != target || pair.Base == target {
			continue
		}
		for _, dr := range prices.AllPrices(pair.Base, pair.Quote) {
			if dr.Date.Before(start) || dr.Date.After(end) {
				continue
			}
			changes = append(changes, priceChange{Date: dr.Date, Currency: pair.Base, Rate: dr.Rate})
		}
	}
	slices.SortStableFunc(changes, func(a, b priceChange) int {
		return a.Date.Compare(b.Date.Time)
	})
	return changes
}

// gainsTransactions books the change in value of the balance sheet caused by
// every price change in the window. The balances at the start of each change
// date are collected first, in date order; the transactions are then built
// concurrently and returned in the order of the changes.
func (r *run) gainsTransactions(ctx context.Context) ([]*ast.Transaction, error) {
	timer := telemetry.FromContext(ctx).Start("convert.gains")
	defer timer.End()

	changes := priceChanges(r.prices, r.currency, r.start, r.end)
	r.logger.Debug("price changes", "count", len(changes))

	snapshots := make(map[string]summator.InventoryAggregator)
	for _, change := range changes {
		key := change.Date.String()
		if _, ok := snapshots[key]; ok {
			continue
		}
		balances, err := r.summator.SumTillDate(change.Date.AddDays(-1))
		if err != nil {
			return nil, err
		}
		snapshots[key] = balances.CleanEmpty()
	}

	results := make([]*ast.Transaction, len(changes))
	errs := make([]error, len(changes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, change := range changes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = r.gainsTransaction(change, snapshots[change.Date.String()])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*ast.Transaction
	for i := range changes {
		if errs[i] != nil {
			return nil, errs[i]
		}
		if results[i] != nil {
			out = append(out, results[i])
		}
	}
	return out, nil
}

// gainsTransaction builds the transaction of a single price change, given the
// balances at the start of its day. It returns nil when no balance held the
// commodity.
func (r *run) gainsTransaction(change priceChange, balances summator.InventoryAggregator) (*ast.Transaction, error) {
	if r.unconvertible[change.Currency] {
		return nil, &UnconvertableCommBecomesConvertibleError{Currency: change.Currency, Target: r.currency, Date: change.Date}
	}

	day := change.Date.AddDays(-1)
	held := balances.CurrencyPositions(change.Currency)
	gains := held.Convert(r.currency, r.prices, change.Date).
		Sub(held.Convert(r.currency, r.prices, day)).
		CleanEmpty()
	if gains.IsEmpty() {
		return nil, nil
	}

	oldRate, ok := r.prices.GetPrice(change.Currency, r.currency, day)
	if !ok {
		// Lots at cost were valued through their cost currency until now.
		accounts := make([]string, 0, len(gains))
		for _, account := range gains.Accounts() {
			accounts = append(accounts, string(account))
		}
		return nil, &InternalError{Msg: fmt.Sprintf(
			"%s has no rate in %s on or before %s, but the value of the lots held in %s changed with its first rate on %s; add a price of %s in %s dated on or before %s",
			change.Currency, r.currency, day, strings.Join(accounts, ", "), change.Date, change.Currency, r.currency, day)}
	}
	one := decimal.NewFromInt(1)
	narration := fmt.Sprintf("Unrealized gains due to %s price change from %s to %s %s (%s price change from %s to %s %s)",
		change.Currency, oldRate, change.Rate, r.currency,
		r.currency, ledger.Divide(one, oldRate), ledger.Divide(one, change.Rate), change.Currency)

	r.logger.Debug("unrealized gains", "date", change.Date.String(), "currency", change.Currency, "accounts", len(gains))

	txn := r.synthetic(change.Date, narration)
	gainsAccount := r.constants.GainsAccount.Sub(r.currency + "-" + change.Currency)
	total := ledger.NewInventory()

	for _, account := range gains.Accounts() {
		inv := gains[account]
		if inv.Len() > 2 {
			return nil, &InternalError{Msg: fmt.Sprintf("inventory %s of %s has more than 2 positions, one with cost and one without were expected", inv, account)}
		}
		for _, pos := range inv.Positions() {
			total.AddPosition(pos)

			atCost, noCost := balances.Get(account).UnitsAtCost(change.Currency)
			tag, original := NoCost, noCost
			if pos.Cost != nil {
				tag, original = AtCost, atCost
			}

			txn.Postings = append(txn.Postings, &ast.Posting{
				Account:  account,
				Amount:   pos.Units.AST(),
				Metadata: r.gainsMeta(tag, original),
			})
			if r.group {
				continue
			}
			meta := append(r.gainsMeta(tag, original), ast.NewMetadata(MetaAccount, string(account)))
			txn.Postings = append(txn.Postings, &ast.Posting{
				Account:  gainsAccount,
				Amount:   pos.Units.Neg().AST(),
				Metadata: meta,
			})
		}
	}

	if r.group {
		for _, pos := range total.Positions() {
			tag := NoCost
			if pos.Cost != nil {
				tag = AtCost
			}
			posting := &ast.Posting{
				Account: gainsAccount,
				Amount:  pos.Units.Neg().AST(),
				Metadata: []*ast.Metadata{
					ast.NewMetadata(MetaAtCost, tag),
					ast.NewMetadata(MetaCause, PriceChange),
				},
			}
			txn.Postings = append([]*ast.Posting{posting}, txn.Postings...)
		}
	}

	if err := r.correct(txn, r.constants.GainsAccount.Sub(r.currency+"-"+r.currency)); err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *run) gainsMeta(tag string, original ledger.Amount) []*ast.Metadata {
	return []*ast.Metadata{
		ast.NewMetadata(MetaMessage, fmt.Sprintf("Calculated on the balance of %s at the beginning of this day (end of prev. day)", original)),
		ast.NewMetadata(MetaAtCost, tag),
		ast.NewMetadata(MetaCause, PriceChange),
	}
}
