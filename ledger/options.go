package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Options holds the parsed ledger options.
type Options struct {
	Title             string
	OperatingCurrency []string

	NameAssets      string
	NameLiabilities string
	NameEquity      string
	NameIncome      string
	NameExpenses    string

	Tolerance     *ToleranceConfig
	BookingMethod string

	// Raw keeps every option as written, in order.
	Raw []*ast.Option
}

// NewOptions creates Options with the defaults of beancount.
func NewOptions() *Options {
	return &Options{
		NameAssets:      "Assets",
		NameLiabilities: "Liabilities",
		NameEquity:      "Equity",
		NameIncome:      "Income",
		NameExpenses:    "Expenses",
		Tolerance:       NewToleranceConfig(),
		BookingMethod:   "STRICT",
	}
}

// ParseOptions parses option directives into Options.
// Supports:
//   - option "title" "..."
//   - option "operating_currency" "EUR" (repeatable)
//   - option "name_assets" "Aktiva" (and the other name_* options)
//   - option "inferred_tolerance_default" "CURRENCY:TOLERANCE" (repeatable)
//   - option "inferred_tolerance_multiplier" "0.6"
//   - option "infer_tolerance_from_cost" "TRUE"
//   - option "booking_method" "STRICT|FIFO|LIFO|NONE"
//
// Other options beancount knows about are kept in Raw and otherwise ignored.
// Unknown options are errors.
func ParseOptions(options []*ast.Option) (*Options, error) {
	o := NewOptions()
	o.Raw = options

	for _, opt := range options {
		switch opt.Name {
		case "title":
			o.Title = opt.Value
		case "operating_currency":
			o.OperatingCurrency = append(o.OperatingCurrency, opt.Value)
		case "name_assets":
			o.NameAssets = opt.Value
		case "name_liabilities":
			o.NameLiabilities = opt.Value
		case "name_equity":
			o.NameEquity = opt.Value
		case "name_income":
			o.NameIncome = opt.Value
		case "name_expenses":
			o.NameExpenses = opt.Value
		case "inferred_tolerance_default":
			if err := o.Tolerance.parseToleranceDefault(opt.Value); err != nil {
				return nil, &OptionError{Option: opt, Err: err}
			}
		case "inferred_tolerance_multiplier", "tolerance_multiplier":
			multiplier, err := decimal.NewFromString(opt.Value)
			if err != nil {
				return nil, &OptionError{Option: opt, Err: fmt.Errorf("invalid multiplier %q: %w", opt.Value, err)}
			}
			o.Tolerance.multiplier = multiplier
		case "infer_tolerance_from_cost":
			o.Tolerance.inferFromCost = strings.EqualFold(opt.Value, "TRUE")
		case "booking_method":
			method := strings.ToUpper(opt.Value)
			if !isBookingMethod(method) {
				return nil, &OptionError{Option: opt, Err: fmt.Errorf("invalid booking_method %q", opt.Value)}
			}
			o.BookingMethod = method
		case "filename", "documents", "render_commas", "plugin_processing_mode",
			"long_string_maxlines", "account_previous_balances", "account_previous_earnings",
			"account_previous_conversions", "account_current_earnings",
			"account_current_conversions", "account_unrealized_gains", "account_rounding",
			"conversion_currency", "allow_pipe_separator", "insert_pythonpath":
		default:
			return nil, &OptionError{Option: opt, Err: fmt.Errorf("unknown option %q", opt.Name)}
		}
	}

	return o, nil
}

// RootNames returns the five account root names in the order assets,
// liabilities, equity, income, expenses.
func (o *Options) RootNames() []string {
	return []string{o.NameAssets, o.NameLiabilities, o.NameEquity, o.NameIncome, o.NameExpenses}
}

// AccountNameOptions renders the name_* options as option directives.
func (o *Options) AccountNameOptions() []*ast.Option {
	return []*ast.Option{
		{Name: "name_assets", Value: o.NameAssets},
		{Name: "name_liabilities", Value: o.NameLiabilities},
		{Name: "name_income", Value: o.NameIncome},
		{Name: "name_expenses", Value: o.NameExpenses},
		{Name: "name_equity", Value: o.NameEquity},
	}
}

// IsBalanceSheet reports whether account lives under the assets or
// liabilities root.
func (o *Options) IsBalanceSheet(account ast.Account) bool {
	root := account.Type()
	return root == o.NameAssets || root == o.NameLiabilities
}

// IsIncomeStatement reports whether account lives under the income or
// expenses root.
func (o *Options) IsIncomeStatement(account ast.Account) bool {
	root := account.Type()
	return root == o.NameIncome || root == o.NameExpenses
}

// contextKey is a private type to avoid key collisions in context.
type contextKey struct{}

// WithContext returns a new context with the Options attached.
func (o *Options) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, o)
}

// OptionsFromContext retrieves the Options from context.
// Returns default Options if not found.
func OptionsFromContext(ctx context.Context) *Options {
	if o, ok := ctx.Value(contextKey{}).(*Options); ok {
		return o
	}
	return NewOptions()
}
