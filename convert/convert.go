// Package convert turns a multi-currency ledger into an equivalent ledger in
// a single target currency.
//
// Within a date window every transaction is re-expressed in the target
// currency at the rate of its date. The balance sheet before the window is
// summarized in one opening transaction, and every price change inside the
// window produces an unrealized gains transaction revaluing the balances
// held in the changed commodity. Commodities that cannot be converted are
// carried unchanged. The result is rendered to text and loaded again, so it
// is validated exactly like a hand-written ledger.
//
// Example usage:
//
//	conv := convert.New(
//	    convert.WithCurrency("EUR"),
//	    convert.WithStartDate(ast.MustDate("2024-01-01")),
//	)
//	result, err := conv.Convert(ctx, loaded.Directives, loaded.Options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, err := range result.Errors {
//	    fmt.Println(err)
//	}
package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/formatter"
	"github.com/robinvdvleuten/beancount-scc/ledger"
	"github.com/robinvdvleuten/beancount-scc/loader"
	"github.com/robinvdvleuten/beancount-scc/selftest"
	"github.com/robinvdvleuten/beancount-scc/summator"
	"github.com/robinvdvleuten/beancount-scc/telemetry"
)

// Converter converts ledgers to a single currency. A Converter holds only
// configuration and may be reused; every call to Convert starts from scratch.
type Converter struct {
	currency  string
	start     *ast.Date
	end       *ast.Date
	group     bool
	selfTest  bool
	constants Constants
	logger    *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithCurrency sets the target currency. Without it the first operating
// currency of the ledger is used.
func WithCurrency(currency string) Option {
	return func(c *Converter) {
		c.currency = currency
	}
}

// WithStartDate sets the first day of the conversion window. Defaults to the
// date of the first directive.
func WithStartDate(date *ast.Date) Option {
	return func(c *Converter) {
		c.start = date
	}
}

// WithEndDate sets the last day of the conversion window. Defaults to the
// date of the last directive.
func WithEndDate(date *ast.Date) Option {
	return func(c *Converter) {
		c.end = date
	}
}

// WithGainsAccount sets the root of the unrealized gains accounts. Price
// differences are booked under the same root.
func WithGainsAccount(account ast.Account) Option {
	return func(c *Converter) {
		c.constants.GainsAccount = account
		c.constants.PriceDiffAccount = account
	}
}

// WithTolerance sets the tolerance of the self-test.
func WithTolerance(tolerance decimal.Decimal) Option {
	return func(c *Converter) {
		c.constants.Tolerance = tolerance
	}
}

// WithGrouping books the gains of all accounts affected by a price change
// in a single posting to the gains account.
func WithGrouping(group bool) Option {
	return func(c *Converter) {
		c.group = group
	}
}

// WithSelfTest verifies the converted ledger against the original one.
func WithSelfTest(enabled bool) Option {
	return func(c *Converter) {
		c.selfTest = enabled
	}
}

// WithConstants replaces all constants at once.
func WithConstants(constants Constants) Option {
	return func(c *Converter) {
		c.constants = constants
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		constants: DefaultConstants(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseDate parses a YYYY-MM-DD date. The empty string is no date.
func ParseDate(s string) (*ast.Date, error) {
	if s == "" {
		return nil, nil
	}
	date, err := ast.NewDate(s)
	if err != nil {
		return nil, &ParameterError{Msg: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s)}
	}
	return date, nil
}

// Result is a converted ledger.
type Result struct {
	// Directives, Errors and Options are the result of loading the rendered
	// converted ledger.
	Directives ast.Directives
	Errors     []error
	Options    *ledger.Options

	// Text is the rendered converted ledger.
	Text string

	Currency string
	Start    *ast.Date
	End      *ast.Date

	// Unconvertible lists the commodities carried in their own currency.
	Unconvertible []string

	// Report is set when the self-test ran.
	Report *selftest.Report
}

// run is the state of a single conversion.
type run struct {
	currency      string
	start, end    *ast.Date
	group         bool
	constants     Constants
	options       *ledger.Options
	prices        *ledger.PriceMap
	introduced    map[string]*ast.Date
	summator      *summator.BeanSummator
	unconvertible map[string]bool
	logger        *slog.Logger
}

// Convert converts directives, booked by the ledger, to the target currency.
// The input is not modified and shares no memory with the result.
//
// Parameter errors and conversion errors are returned as error. Errors found
// while loading the converted ledger are reported in Result.Errors. When the
// self-test is enabled and fails, the result is returned together with the
// error of the report.
func (c *Converter) Convert(ctx context.Context, directives ast.Directives, options *ledger.Options) (*Result, error) {
	timer := telemetry.FromContext(ctx).Start("convert.Convert")
	defer timer.End()

	if options == nil {
		options = ledger.NewOptions()
	}

	sorted := append(ast.Directives(nil), directives...)
	ast.SortDirectives(sorted)

	currency := c.currency
	if currency == "" {
		if len(options.OperatingCurrency) == 0 {
			return nil, &ParameterError{Msg: "the target currency is not specified and there is no operating_currency option"}
		}
		currency = options.OperatingCurrency[0]
	}

	start, end := c.start, c.end
	if len(sorted) > 0 {
		if start == nil {
			start = sorted[0].GetDate()
		}
		if end == nil {
			end = sorted[len(sorted)-1].GetDate()
		}
	}
	if start == nil || end == nil {
		return nil, &ParameterError{Msg: "the ledger is empty, start and end dates are required"}
	}
	if start.After(end) {
		return nil, &ParameterError{Msg: fmt.Sprintf("start date (%s) cannot be after the end date (%s)", start, end)}
	}

	c.logger.Debug("converting", "currency", currency, "start", start.String(), "end", end.String(), "directives", len(sorted))

	var fingerprints []uint64
	if c.selfTest {
		var err error
		if fingerprints, err = selftest.Fingerprint(sorted); err != nil {
			return nil, err
		}
	}

	accounts := fmt.Sprintf("^(%s|%s)(:|$)", regexp.QuoteMeta(options.NameAssets), regexp.QuoteMeta(options.NameLiabilities))
	sum, err := summator.New(sorted, accounts, summator.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	r := &run{
		currency:      currency,
		start:         start,
		end:           end,
		group:         c.group,
		constants:     c.constants,
		options:       options,
		prices:        ledger.BuildPriceMap(sorted),
		introduced:    introductions(sorted),
		summator:      sum,
		unconvertible: make(map[string]bool),
		logger:        c.logger,
	}

	converted, err := r.convert(ctx, sorted)
	if err != nil {
		return nil, err
	}

	text, err := render(options, converted)
	if err != nil {
		return nil, err
	}

	roundTrip := telemetry.FromContext(ctx).Start("convert.round_trip")
	loaded, err := loader.LoadString(ctx, text)
	roundTrip.End()
	if err != nil {
		return nil, fmt.Errorf("failed to load the converted ledger: %w", err)
	}
	c.logger.Debug("converted ledger loaded", "directives", len(loaded.Directives), "errors", len(loaded.Errors))

	result := &Result{
		Directives:    loaded.Directives,
		Errors:        loaded.Errors,
		Options:       loaded.Options,
		Text:          text,
		Currency:      currency,
		Start:         start,
		End:           end,
		Unconvertible: sortedKeys(r.unconvertible),
	}

	if !c.selfTest {
		return result, nil
	}

	check := telemetry.FromContext(ctx).Start("convert.self_test")
	defer check.End()

	result.Report, err = selftest.Run(selftest.Input{
		Original:         sorted,
		OriginalOptions:  options,
		Fingerprints:     fingerprints,
		Converted:        loaded.Directives,
		ConvertedOptions: loaded.Options,
		Errors:           loaded.Errors,
		Currency:         currency,
		Start:            start,
		End:              end,
		Tolerance:        c.constants.Tolerance,
		GainsAccount:     c.constants.GainsAccount,
		PriceDiffAccount: c.constants.PriceDiffAccount,
	})
	if err != nil {
		return result, err
	}
	return result, result.Report.Err()
}

// convert runs the opening, per-entry and gains passes and returns the
// merged, sorted directives.
func (r *run) convert(ctx context.Context, directives ast.Directives) (ast.Directives, error) {
	var out ast.Directives

	opening, err := r.openingTransaction()
	if err != nil {
		return nil, err
	}
	if opening != nil {
		out = append(out, opening)
	}

	entries, err := r.convertEntries(ctx, directives)
	if err != nil {
		return nil, err
	}
	out = append(out, entries...)

	gains, err := r.gainsTransactions(ctx)
	if err != nil {
		return nil, err
	}
	for _, txn := range gains {
		out = append(out, txn)
	}

	ast.SortDirectives(out)
	out = ledger.AutoInsertOpen(out)
	slices.SortStableFunc(out, func(a, b ast.Directive) int {
		return ast.CompareDirectivesWith(a, b, sortOrder)
	})
	return out, nil
}

// convertEntries converts the directives up to the end date. Transactions
// before the start date are summarized by the opening transaction and
// skipped. Balance assertions and pads are dropped.
func (r *run) convertEntries(ctx context.Context, directives ast.Directives) (ast.Directives, error) {
	timer := telemetry.FromContext(ctx).Start("convert.entries")
	defer timer.End()

	var out ast.Directives
	for _, directive := range directives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if directive.GetDate().After(r.end) {
			break
		}

		switch d := directive.(type) {
		case *ast.Open:
			open := d.Clone().(*ast.Open)
			if len(open.ConstraintCurrencies) > 0 {
				open.Metadata = setMeta(open.Metadata, MetaMessage,
					fmt.Sprintf("Converted from original Open entry by removing currencies %s", strings.Join(open.ConstraintCurrencies, ", ")))
				open.ConstraintCurrencies = nil
				open.BookingMethod = ""
			}
			out = append(out, open)

		case *ast.Transaction:
			if d.Date.Before(r.start) {
				continue
			}
			txn, err := r.convertTransaction(d)
			if err != nil {
				return nil, &EntryError{Directive: d, Err: err}
			}
			out = append(out, txn)

		case *ast.Balance, *ast.Pad:

		default:
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

// introductions maps every posting currency to the date it is first used.
func introductions(directives ast.Directives) map[string]*ast.Date {
	out := make(map[string]*ast.Date)
	for _, directive := range directives {
		txn, ok := directive.(*ast.Transaction)
		if !ok {
			continue
		}
		for _, posting := range txn.Postings {
			if posting.Amount == nil {
				continue
			}
			if first, ok := out[posting.Amount.Currency]; !ok || txn.Date.Before(first) {
				out[posting.Amount.Currency] = txn.Date
			}
		}
	}
	return out
}

// render writes the converted ledger with the account name options of the
// original one.
func render(options *ledger.Options, directives ast.Directives) (string, error) {
	var buf bytes.Buffer
	if err := formatter.New().FormatDirectives(options.AccountNameOptions(), directives, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
