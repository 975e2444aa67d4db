// Package transit checks transfers that pass through an intermediate
// account while the funds are on their way.
//
// A transfer between two accounts that takes a few days is booked in two
// transactions: one moving the funds from the source into a transit account
// and one moving them from the transit account into the destination. Every
// send must be matched by a receipt of the opposite amount within a number
// of days, and every receipt by an earlier send.
package transit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

// Route is a path of funds: From ==> Transit ==> To.
type Route struct {
	From    ast.Account
	Transit ast.Account
	To      ast.Account
	// MaxDays is the number of days the funds may stay in transit.
	MaxDays int
	// Start and End limit the checked transactions. Nil means unbounded.
	Start *ast.Date
	End   *ast.Date
}

func (r Route) String() string {
	return fmt.Sprintf("'%s' ==> '%s' ==> '%s'", r.From, r.Transit, r.To)
}

// ParseRoute parses "FROM,TRANSIT,TO,DAYS".
func ParseRoute(s string) (Route, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Route{}, fmt.Errorf("invalid route %q, expected FROM,TRANSIT,TO,DAYS", s)
	}
	var accounts [3]ast.Account
	for i, part := range parts[:3] {
		account, err := ast.NewAccount(strings.TrimSpace(part))
		if err != nil {
			return Route{}, fmt.Errorf("invalid route %q: %w", s, err)
		}
		accounts[i] = account
	}
	days, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil || days < 0 {
		return Route{}, fmt.Errorf("invalid route %q: days must be a non-negative integer", s)
	}
	return Route{From: accounts[0], Transit: accounts[1], To: accounts[2], MaxDays: days}, nil
}

// FundsLostInTransitError is a send without a receipt, or a receipt without
// a send.
type FundsLostInTransitError struct {
	Route       Route
	Transaction *ast.Transaction
	Amount      ledger.Amount
	// Received is true for a receipt without a matching send.
	Received bool
}

func (e *FundsLostInTransitError) Error() string {
	if e.Received {
		return fmt.Sprintf("%s: %s were received via the path %s but were not sent during the previous %d days",
			e.Transaction.Date, e.Amount, e.Route, e.Route.MaxDays)
	}
	return fmt.Sprintf("%s: %s were sent via the path %s but were not received within %d days",
		e.Transaction.Date, e.Amount, e.Route, e.Route.MaxDays)
}

func (e *FundsLostInTransitError) GetPosition() ast.Position   { return e.Transaction.Pos }
func (e *FundsLostInTransitError) GetDirective() ast.Directive { return e.Transaction }

type leg struct {
	txn    *ast.Transaction
	amount ledger.Amount
}

// Check matches the sends and receipts of route in directives. The errors
// are sorted by date.
func Check(directives ast.Directives, route Route) []error {
	var sent, received []leg
	for _, directive := range directives {
		txn, ok := directive.(*ast.Transaction)
		if !ok {
			continue
		}
		if route.Start != nil && txn.Date.Before(route.Start) {
			continue
		}
		if route.End != nil && txn.Date.After(route.End) {
			continue
		}
		for _, posting := range txn.Postings {
			switch posting.Account {
			case route.From:
				if amount, ok := counterpart(txn, posting, route.Transit); ok {
					sent = append(sent, leg{txn: txn, amount: amount})
				}
			case route.To:
				if amount, ok := counterpart(txn, posting, route.Transit); ok {
					received = append(received, leg{txn: txn, amount: amount})
				}
			}
		}
	}

	var errs []*FundsLostInTransitError
	for _, send := range sent {
		i := match(send, received, route.MaxDays)
		if i < 0 {
			errs = append(errs, &FundsLostInTransitError{Route: route, Transaction: send.txn, Amount: send.amount})
			continue
		}
		received = append(received[:i], received[i+1:]...)
	}
	for _, receipt := range received {
		errs = append(errs, &FundsLostInTransitError{Route: route, Transaction: receipt.txn, Amount: receipt.amount, Received: true})
	}

	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Transaction.Date.Before(errs[j].Transaction.Date)
	})
	out := make([]error, len(errs))
	for i, err := range errs {
		out[i] = err
	}
	return out
}

// CheckAll checks every route and combines the errors.
func CheckAll(directives ast.Directives, routes []Route) error {
	var err error
	for _, route := range routes {
		err = multierr.Append(err, multierr.Combine(Check(directives, route)...))
	}
	return err
}

// counterpart returns the amount of posting when txn holds a posting to
// transit of the opposite amount.
func counterpart(txn *ast.Transaction, posting *ast.Posting, transit ast.Account) (ledger.Amount, bool) {
	if posting.Amount == nil {
		return ledger.Amount{}, false
	}
	amount, err := ledger.AmountFromAST(posting.Amount)
	if err != nil {
		return ledger.Amount{}, false
	}
	for _, other := range txn.Postings {
		if other.Account != transit || other.Amount == nil {
			continue
		}
		o, err := ledger.AmountFromAST(other.Amount)
		if err != nil {
			continue
		}
		if o.Currency == amount.Currency && o.Number.Equal(amount.Number.Neg()) {
			return amount, true
		}
	}
	return ledger.Amount{}, false
}

// match returns the index of the first receipt of the opposite amount within
// maxDays after send, or -1.
func match(send leg, received []leg, maxDays int) int {
	limit := send.txn.Date.AddDays(maxDays)
	for i, receipt := range received {
		if receipt.txn.Date.Before(send.txn.Date) || receipt.txn.Date.After(limit) {
			continue
		}
		if receipt.amount.Currency == send.amount.Currency && receipt.amount.Number.Equal(send.amount.Number.Neg()) {
			return i
		}
	}
	return -1
}
