// Package ledger books and validates Beancount directives. It interpolates
// missing posting amounts, fills in costs, matches reductions against lots,
// checks that transactions balance within the inferred tolerances, expands
// pad directives into padding transactions and verifies balance assertions.
//
// The ledger validates that:
//   - All transactions balance to zero across all currencies
//   - Accounts are opened before use and closed accounts are not used
//   - Postings respect the currency constraints of their open directive
//   - Balance assertions match actual inventory balances
//   - Pad directives correctly balance accounts
//
// Example usage:
//
//	tree, err := parser.ParseBytes(ctx, source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := ledger.New()
//	if err := l.Process(ctx, tree); err != nil {
//	    var verrs *ledger.ValidationErrors
//	    if errors.As(err, &verrs) {
//	        for _, e := range verrs.Errors {
//	            fmt.Println(e)
//	        }
//	    }
//	}
//	booked := l.Directives()
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/telemetry"
)

// Ledger represents the state of the accounting ledger with account balances,
// the booked directives and the errors found while processing them.
type Ledger struct {
	accounts   map[ast.Account]*Account
	errors     []error
	options    *Options
	directives ast.Directives
	pads       map[ast.Account]*padState
	prices     *PriceMap
	autoOpen   bool
}

// padState tracks the active pad of an account and the currencies it filled.
type padState struct {
	pad    *ast.Pad
	padded map[string]bool
}

// ValidationErrors wraps multiple validation errors
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors occurred", len(e.Errors))
}

// Unwrap returns the underlying errors for error unwrapping
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAutoOpen inserts an open directive for every account used without one
// before processing.
func WithAutoOpen() Option {
	return func(l *Ledger) {
		l.autoOpen = true
	}
}

// New creates a new empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[ast.Account]*Account),
		options:  NewOptions(),
		pads:     make(map[ast.Account]*padState),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Process books every directive of tree in date order. Validation errors are
// collected and returned together as *ValidationErrors; the ledger state and
// the booked directives stay available either way.
func (l *Ledger) Process(ctx context.Context, tree *ast.AST) error {
	options, err := ParseOptions(tree.Options)
	if err != nil {
		l.addError(err)
	} else {
		l.options = options
	}

	directives := append(ast.Directives(nil), tree.Directives...)
	if l.autoOpen {
		directives = AutoInsertOpen(directives)
	}
	ast.SortDirectives(directives)

	timer := telemetry.FromContext(ctx).Start(fmt.Sprintf("ledger.processing (%d directives)", len(directives)))
	defer timer.End()

	l.directives = make(ast.Directives, 0, len(directives))
	for _, directive := range directives {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		l.processDirective(directive)
	}

	padded := maps.Keys(l.pads)
	slices.Sort(padded)
	for _, account := range padded {
		l.checkPadUsed(l.pads[account])
	}

	// Padding transactions were appended after their pads.
	ast.SortDirectives(l.directives)
	l.prices = nil

	if len(l.errors) > 0 {
		return &ValidationErrors{Errors: l.errors}
	}
	return nil
}

// Directives returns the booked directives in date order. Pads are kept and
// followed by the padding transactions they produced.
func (l *Ledger) Directives() ast.Directives {
	return l.directives
}

// Options returns the options parsed from the processed file.
func (l *Ledger) Options() *Options {
	return l.options
}

// Prices returns the price map built from the booked price directives.
func (l *Ledger) Prices() *PriceMap {
	if l.prices == nil {
		l.prices = BuildPriceMap(l.directives)
	}
	return l.prices
}

// Errors returns all collected errors
func (l *Ledger) Errors() []error {
	return l.errors
}

// GetAccount returns an account by name
func (l *Ledger) GetAccount(name ast.Account) (*Account, bool) {
	acc, ok := l.accounts[name]
	return acc, ok
}

// Accounts returns all accounts
func (l *Ledger) Accounts() map[ast.Account]*Account {
	return l.accounts
}

func (l *Ledger) processDirective(directive ast.Directive) {
	switch d := directive.(type) {
	case *ast.Open:
		l.processOpen(d)
	case *ast.Close:
		l.processClose(d)
	case *ast.Transaction:
		l.processTransaction(d)
		return
	case *ast.Balance:
		l.processBalance(d)
	case *ast.Pad:
		l.processPad(d)
	case *ast.Note:
		l.checkOpen(d.Account, d)
	case *ast.Document:
		l.checkOpen(d.Account, d)
	case *ast.Price:
		if _, err := ParseAmount(d.Amount); err != nil {
			l.addError(&InvalidAmountError{Account: ast.Account(d.Commodity), Err: err, Directive: d})
			return
		}
	}
	l.directives = append(l.directives, directive)
}

func (l *Ledger) processOpen(open *ast.Open) {
	if l.options.AccountType(open.Account) == AccountTypeUnknown {
		l.addError(&InvalidAccountRootError{Account: open.Account, Roots: l.options.RootNames(), Directive: open})
	}

	if existing, ok := l.accounts[open.Account]; ok {
		l.addError(&AccountAlreadyOpenError{Account: open.Account, OpenedDate: existing.OpenDate, Directive: open})
		return
	}

	method := open.BookingMethod
	if method != "" && !isBookingMethod(method) {
		l.addError(&BookingError{Account: open.Account, Reason: fmt.Sprintf("Invalid booking method %q", method), Directive: open})
		method = ""
	}

	l.accounts[open.Account] = &Account{
		Name:                 open.Account,
		Type:                 l.options.AccountType(open.Account),
		OpenDate:             open.Date,
		ConstraintCurrencies: open.ConstraintCurrencies,
		BookingMethod:        method,
		Metadata:             open.Metadata,
		Inventory:            NewInventory(),
	}
}

func (l *Ledger) processClose(close *ast.Close) {
	account, ok := l.accounts[close.Account]
	if !ok {
		l.addError(&AccountNotOpenError{Account: close.Account, Directive: close})
		return
	}
	if account.IsClosed() {
		l.addError(&AccountAlreadyClosedError{Account: close.Account, ClosedDate: account.CloseDate, Directive: close})
		return
	}
	account.CloseDate = close.Date
}

// checkOpen records an error if account is not open at the directive date.
func (l *Ledger) checkOpen(account ast.Account, directive ast.Directive) bool {
	acc, ok := l.accounts[account]
	if !ok || !acc.IsOpen(directive.GetDate()) {
		l.addError(&AccountNotOpenError{Account: account, Directive: directive})
		return false
	}
	return true
}

func (l *Ledger) processTransaction(txn *ast.Transaction) {
	for _, account := range txn.Accounts() {
		l.checkOpen(account, txn)
	}

	delta, err := newBooker(l.accounts, l.options).book(txn)
	if err != nil {
		l.addError(err)
		if delta == nil {
			return
		}
	}

	for _, posting := range delta.Transaction.Postings {
		acc, ok := l.accounts[posting.Account]
		if ok && !acc.AllowsCurrency(posting.Amount.Currency) {
			l.addError(&CurrencyConstraintError{
				Account:   posting.Account,
				Currency:  posting.Amount.Currency,
				Allowed:   acc.ConstraintCurrencies,
				Directive: txn,
			})
		}
	}

	l.ApplyTransactionDelta(delta)
}

// ApplyTransactionDelta replaces the inventories of the touched accounts and
// records the booked transaction.
func (l *Ledger) ApplyTransactionDelta(delta *TransactionDelta) {
	for account, inv := range delta.Inventories {
		if acc, ok := l.accounts[account]; ok {
			acc.Inventory = inv
		}
	}
	l.directives = append(l.directives, delta.Transaction)
}

func (l *Ledger) processPad(pad *ast.Pad) {
	okAccount := l.checkOpen(pad.Account, pad)
	okSource := l.checkOpen(pad.AccountPad, pad)
	if !okAccount || !okSource {
		return
	}

	if previous, ok := l.pads[pad.Account]; ok {
		l.checkPadUsed(previous)
	}
	l.pads[pad.Account] = &padState{pad: pad, padded: make(map[string]bool)}
}

func (l *Ledger) checkPadUsed(state *padState) {
	if len(state.padded) == 0 {
		l.addError(&UnusedPadError{Pad: state.pad})
	}
}

func (l *Ledger) processBalance(balance *ast.Balance) {
	if !l.checkOpen(balance.Account, balance) {
		return
	}

	delta, err := l.balanceDelta(balance)
	if err != nil {
		l.addError(err)
		return
	}
	l.ApplyBalanceDelta(delta)
}

// balanceDelta compares the assertion with the balance of the account and
// its children at the start of the day, padding the difference if an unused
// pad for the currency is active.
func (l *Ledger) balanceDelta(balance *ast.Balance) (*BalanceDelta, error) {
	expected, err := AmountFromAST(balance.Amount)
	if err != nil {
		return nil, &InvalidAmountError{Account: balance.Account, Err: err, Directive: balance}
	}
	tolerance, err := BalanceTolerance(balance, l.options.Tolerance)
	if err != nil {
		return nil, &InvalidAmountError{Account: balance.Account, Err: err, Directive: balance}
	}

	actual := Amount{Number: decimal.Zero, Currency: expected.Currency}
	for name, acc := range l.accounts {
		if isParentOf(balance.Account, name) {
			actual.Number = actual.Number.Add(acc.Inventory.Units(expected.Currency).Number)
		}
	}

	delta := &BalanceDelta{Balance: balance, Expected: expected, Actual: actual}

	diff := expected.Number.Sub(actual.Number)
	if diff.Abs().GreaterThan(tolerance) {
		if state, ok := l.pads[balance.Account]; ok && !state.padded[expected.Currency] {
			units := Amount{Number: diff, Currency: expected.Currency}
			delta.Padding = &PadDelta{
				Pad:         state.pad,
				Units:       units,
				Transaction: paddingTransaction(state.pad, expected, units),
			}
			delta.Actual.Number = expected.Number
			return delta, nil
		}
		delta.Mismatch = true
	}
	return delta, nil
}

// paddingTransaction builds the P transaction dated at the pad.
//
//	2020-01-01 P "(Padding inserted for Balance of 1000.00 USD for difference 1000.00 USD)"
//	  Assets:Checking          1000.00 USD
//	  Equity:Opening-Balances -1000.00 USD
func paddingTransaction(pad *ast.Pad, expected, units Amount) *ast.Transaction {
	narration := fmt.Sprintf("(Padding inserted for Balance of %s for difference %s)", expected, units)
	txn := ast.NewTransaction(pad.Date, narration,
		ast.WithFlag("P"),
		ast.WithPostings(
			&ast.Posting{Account: pad.Account, Amount: units.AST()},
			&ast.Posting{Account: pad.AccountPad, Amount: units.Neg().AST()},
		),
	)
	txn.Pos = pad.Pos
	return txn
}

// ApplyBalanceDelta applies the padding of a balance assertion and records a
// mismatch as an error.
func (l *Ledger) ApplyBalanceDelta(delta *BalanceDelta) {
	if p := delta.Padding; p != nil {
		l.accounts[p.Pad.Account].Inventory.AddAmount(p.Units, nil)
		if source, ok := l.accounts[p.Pad.AccountPad]; ok {
			source.Inventory.AddAmount(p.Units.Neg(), nil)
		}
		l.pads[p.Pad.Account].padded[p.Units.Currency] = true
		l.directives = append(l.directives, p.Transaction)
	}

	if delta.Mismatch {
		l.addError(&BalanceMismatchError{Expected: delta.Expected, Actual: delta.Actual, Balance: delta.Balance})
	}
}

func (l *Ledger) addError(err error) {
	l.errors = append(l.errors, err)
}
