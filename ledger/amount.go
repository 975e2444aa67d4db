package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Amount is a decimal number with its currency.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// NewAmount builds an Amount.
func NewAmount(number decimal.Decimal, currency string) Amount {
	return Amount{Number: number, Currency: currency}
}

// String renders the amount keeping the precision of the number.
func (a Amount) String() string {
	return FormatDecimal(a.Number) + " " + a.Currency
}

// Neg returns the negated amount.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Currency: a.Currency}
}

// AST converts the amount into its syntax tree form.
func (a Amount) AST() *ast.Amount {
	return &ast.Amount{Value: FormatDecimal(a.Number), Currency: a.Currency}
}

// ParseAmount converts an ast.Amount to a decimal.Decimal
func ParseAmount(amount *ast.Amount) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, fmt.Errorf("amount is nil")
	}

	d, err := decimal.NewFromString(amount.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount value %q: %w", amount.Value, err)
	}

	return d, nil
}

// MustParseAmount converts a ast.Amount to a decimal.Decimal and panics on error
// Use only in tests or when you're certain the amount is valid
func MustParseAmount(amount *ast.Amount) decimal.Decimal {
	d, err := ParseAmount(amount)
	if err != nil {
		panic(err)
	}
	return d
}

// AmountFromAST converts an ast.Amount into an Amount.
func AmountFromAST(amount *ast.Amount) (Amount, error) {
	number, err := ParseAmount(amount)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Number: number, Currency: amount.Currency}, nil
}

// FormatDecimal renders d without dropping trailing zeros, so that
// "10.00" stays "10.00". The precision of a number drives tolerance inference.
func FormatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Divide returns a/b rounded to 28 decimal places without trailing zeros, so
// that 100/4 is 25 and not 25.000...
func Divide(a, b decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(a.DivRound(b, inversePrecision).String())
}
