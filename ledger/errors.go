package ledger

import (
	"fmt"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Error types for ledger validation errors. All of them expose the offending
// directive and its position so that renderers can show context.

// location renders "file:line", falling back to the directive date.
func location(pos ast.Position, date *ast.Date) string {
	if pos.Filename != "" {
		return fmt.Sprintf("%s:%d", pos.Filename, pos.Line)
	}
	if date != nil {
		return date.String()
	}
	return fmt.Sprintf("line %d", pos.Line)
}

// AccountNotOpenError is returned when a directive references an account that
// is not open at its date.
type AccountNotOpenError struct {
	Account   ast.Account
	Directive ast.Directive
}

func (e *AccountNotOpenError) Error() string {
	return fmt.Sprintf("%s: Invalid reference to unknown account '%s'", location(e.GetPosition(), e.Directive.GetDate()), e.Account)
}

func (e *AccountNotOpenError) GetPosition() ast.Position   { return e.Directive.Position() }
func (e *AccountNotOpenError) GetDirective() ast.Directive { return e.Directive }

// AccountAlreadyOpenError is returned when trying to open an account that's already open
type AccountAlreadyOpenError struct {
	Account    ast.Account
	OpenedDate *ast.Date
	Directive  ast.Directive
}

func (e *AccountAlreadyOpenError) Error() string {
	return fmt.Sprintf("%s: Account %s is already open (opened on %s)",
		location(e.GetPosition(), e.Directive.GetDate()), e.Account, e.OpenedDate)
}

func (e *AccountAlreadyOpenError) GetPosition() ast.Position   { return e.Directive.Position() }
func (e *AccountAlreadyOpenError) GetDirective() ast.Directive { return e.Directive }

// AccountAlreadyClosedError is returned when trying to use or close an account that's already closed
type AccountAlreadyClosedError struct {
	Account    ast.Account
	ClosedDate *ast.Date
	Directive  ast.Directive
}

func (e *AccountAlreadyClosedError) Error() string {
	return fmt.Sprintf("%s: Account %s is already closed (closed on %s)",
		location(e.GetPosition(), e.Directive.GetDate()), e.Account, e.ClosedDate)
}

func (e *AccountAlreadyClosedError) GetPosition() ast.Position   { return e.Directive.Position() }
func (e *AccountAlreadyClosedError) GetDirective() ast.Directive { return e.Directive }

// InvalidAccountRootError is returned for accounts outside the five configured roots.
type InvalidAccountRootError struct {
	Account   ast.Account
	Roots     []string
	Directive ast.Directive
}

func (e *InvalidAccountRootError) Error() string {
	return fmt.Sprintf("%s: Invalid account name '%s': root must be one of %v",
		location(e.GetPosition(), e.Directive.GetDate()), e.Account, e.Roots)
}

func (e *InvalidAccountRootError) GetPosition() ast.Position   { return e.Directive.Position() }
func (e *InvalidAccountRootError) GetDirective() ast.Directive { return e.Directive }

// TransactionNotBalancedError is returned when the residual of a transaction
// exceeds its inferred tolerances.
type TransactionNotBalancedError struct {
	Residual    *Inventory
	Transaction *ast.Transaction
}

func (e *TransactionNotBalancedError) Error() string {
	return fmt.Sprintf("%s: Transaction does not balance: %s", location(e.GetPosition(), e.Transaction.Date), e.Residual)
}

func (e *TransactionNotBalancedError) GetPosition() ast.Position   { return e.Transaction.Pos }
func (e *TransactionNotBalancedError) GetDirective() ast.Directive { return e.Transaction }

// InvalidAmountError is returned when an amount, cost or price cannot be used.
type InvalidAmountError struct {
	Account   ast.Account
	Err       error
	Directive ast.Directive
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s: Invalid amount for account %s: %v", location(e.GetPosition(), e.Directive.GetDate()), e.Account, e.Err)
}

func (e *InvalidAmountError) Unwrap() error               { return e.Err }
func (e *InvalidAmountError) GetPosition() ast.Position   { return e.Directive.Position() }
func (e *InvalidAmountError) GetDirective() ast.Directive { return e.Directive }

// CurrencyConstraintError is returned when a posting uses a currency the
// account was not opened for.
type CurrencyConstraintError struct {
	Account   ast.Account
	Currency  string
	Allowed   []string
	Directive ast.Directive
}

func (e *CurrencyConstraintError) Error() string {
	return fmt.Sprintf("%s: Invalid currency %s for account '%s' (allowed: %v)",
		location(e.GetPosition(), e.Directive.GetDate()), e.Currency, e.Account, e.Allowed)
}

func (e *CurrencyConstraintError) GetPosition() ast.Position   { return e.Directive.Position() }
func (e *CurrencyConstraintError) GetDirective() ast.Directive { return e.Directive }

// BookingError is returned when a reduction cannot be matched against the
// lots of an account.
type BookingError struct {
	Account   ast.Account
	Reason    string
	Directive ast.Directive
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s for account %s", location(e.GetPosition(), e.Directive.GetDate()), e.Reason, e.Account)
}

func (e *BookingError) GetPosition() ast.Position   { return e.Directive.Position() }
func (e *BookingError) GetDirective() ast.Directive { return e.Directive }

// BalanceMismatchError is returned when a balance assertion fails.
type BalanceMismatchError struct {
	Expected Amount
	Actual   Amount
	Balance  *ast.Balance
}

func (e *BalanceMismatchError) Error() string {
	diff := e.Actual.Number.Sub(e.Expected.Number)
	direction := "too much"
	if diff.IsNegative() {
		direction = "too little"
	}
	return fmt.Sprintf("%s: Balance failed for '%s': expected %s != accumulated %s (%s %s)",
		location(e.GetPosition(), e.Balance.Date), e.Balance.Account, e.Expected, e.Actual,
		FormatDecimal(diff.Abs()), direction)
}

func (e *BalanceMismatchError) GetPosition() ast.Position   { return e.Balance.Pos }
func (e *BalanceMismatchError) GetDirective() ast.Directive { return e.Balance }

// UnusedPadError is returned for pad directives no balance assertion needed.
type UnusedPadError struct {
	Pad *ast.Pad
}

func (e *UnusedPadError) Error() string {
	return fmt.Sprintf("%s: Unused Pad entry", location(e.GetPosition(), e.Pad.Date))
}

func (e *UnusedPadError) GetPosition() ast.Position   { return e.Pad.Pos }
func (e *UnusedPadError) GetDirective() ast.Directive { return e.Pad }

// OptionError is returned for option values that cannot be parsed.
type OptionError struct {
	Option *ast.Option
	Err    error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("%s: Invalid option %q: %v", location(e.Option.Pos, nil), e.Option.Name, e.Err)
}

func (e *OptionError) Unwrap() error             { return e.Err }
func (e *OptionError) GetPosition() ast.Position { return e.Option.Pos }
