package ledger

import (
	"strings"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// AccountType represents the type of account
type AccountType int

const (
	AccountTypeUnknown AccountType = iota
	AccountTypeAssets
	AccountTypeLiabilities
	AccountTypeEquity
	AccountTypeIncome
	AccountTypeExpenses
)

// String returns the string representation of the account type
func (t AccountType) String() string {
	switch t {
	case AccountTypeAssets:
		return "Assets"
	case AccountTypeLiabilities:
		return "Liabilities"
	case AccountTypeEquity:
		return "Equity"
	case AccountTypeIncome:
		return "Income"
	case AccountTypeExpenses:
		return "Expenses"
	default:
		return "Unknown"
	}
}

// Account represents an account in the ledger
type Account struct {
	Name                 ast.Account
	Type                 AccountType
	OpenDate             *ast.Date
	CloseDate            *ast.Date
	ConstraintCurrencies []string
	BookingMethod        string
	Metadata             []*ast.Metadata
	Inventory            *Inventory
}

// IsOpen returns true if the account is open at the given date.
// Postings are allowed on the close date, but not after it.
func (a *Account) IsOpen(date *ast.Date) bool {
	if a.OpenDate == nil || a.OpenDate.After(date) {
		return false
	}
	return a.CloseDate == nil || !date.After(a.CloseDate)
}

// IsClosed returns true if the account has been closed
func (a *Account) IsClosed() bool {
	return a.CloseDate != nil
}

// AllowsCurrency reports whether the open directive constrains currency out.
func (a *Account) AllowsCurrency(currency string) bool {
	if len(a.ConstraintCurrencies) == 0 {
		return true
	}
	for _, c := range a.ConstraintCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// AccountType resolves the type of account from the configured root names.
func (o *Options) AccountType(account ast.Account) AccountType {
	switch account.Type() {
	case o.NameAssets:
		return AccountTypeAssets
	case o.NameLiabilities:
		return AccountTypeLiabilities
	case o.NameEquity:
		return AccountTypeEquity
	case o.NameIncome:
		return AccountTypeIncome
	case o.NameExpenses:
		return AccountTypeExpenses
	default:
		return AccountTypeUnknown
	}
}

// isParentOf reports whether child equals parent or lives below it.
func isParentOf(parent, child ast.Account) bool {
	return parent == child || strings.HasPrefix(string(child), string(parent)+":")
}
