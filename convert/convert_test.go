package convert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/formatter"
	"github.com/robinvdvleuten/beancount-scc/loader"
)

func load(t *testing.T, source string) *loader.Result {
	t.Helper()
	result, err := loader.LoadString(context.Background(), source)
	assert.NoError(t, err)
	assert.NoError(t, result.Err())
	return result
}

func convert(t *testing.T, source string, opts ...Option) *Result {
	t.Helper()
	loaded := load(t, source)
	result, err := New(opts...).Convert(context.Background(), loaded.Directives, loaded.Options)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Errors))
	return result
}

type gainsKey struct {
	Account        string
	AtCost         string
	Cause          string
	BalanceAccount string
}

// gainsByKey sums the postings to the accounts under root, grouped by
// account and the gains metadata.
func gainsByKey(t *testing.T, directives ast.Directives, root string) map[gainsKey]string {
	t.Helper()
	sums := make(map[gainsKey]decimal.Decimal)
	for _, directive := range directives {
		txn, ok := directive.(*ast.Transaction)
		if !ok {
			continue
		}
		for _, posting := range txn.Postings {
			if !strings.HasPrefix(string(posting.Account), root) {
				continue
			}
			key := gainsKey{Account: string(posting.Account)}
			key.AtCost, _ = ast.MetaString(posting.Metadata, MetaAtCost)
			key.Cause, _ = ast.MetaString(posting.Metadata, MetaCause)
			key.BalanceAccount, _ = ast.MetaString(posting.Metadata, MetaAccount)
			amount, err := decimal.NewFromString(posting.Amount.Value)
			assert.NoError(t, err)
			sums[key] = sums[key].Add(amount)
		}
	}
	out := make(map[gainsKey]string, len(sums))
	for key, sum := range sums {
		out[key] = sum.String()
	}
	return out
}

const withTransaction = `
2020-01-01 open Assets:Bank:Checking
2020-01-01 open Equity:Opening-Balances
2020-01-01 open Expenses:Misc

2020-01-01 price EUR 1 USD

2020-01-01 * "Opening Balances"
  Assets:Bank:Checking  1000 USD
  Equity:Opening-Balances

2020-01-02 * "Buying something"
  Assets:Bank:Checking   -100 USD
  Expenses:Misc           100 USD

2020-01-03 price EUR 2 USD
`

func TestConvertWithTransaction(t *testing.T) {
	result := convert(t, withTransaction,
		WithCurrency("EUR"),
		WithStartDate(ast.MustDate("2020-01-02")),
		WithEndDate(ast.MustDate("2020-01-03")),
		WithSelfTest(true),
	)

	assert.True(t, result.Report.OK())
	assert.Equal(t, "EUR", result.Currency)
	assert.Equal(t, 0, len(result.Unconvertible))

	expected := map[gainsKey]string{
		{"Income:Unrealized-Gains:EUR-USD", NoCost, PriceChange, "Assets:Bank:Checking"}: "450",
	}
	if diff := cmp.Diff(expected, gainsByKey(t, result.Directives, "Income:Unrealized-Gains")); diff != "" {
		t.Errorf("gains mismatch (-want +got):\n%s", diff)
	}

	var opening *ast.Transaction
	for _, directive := range result.Directives {
		if txn, ok := directive.(*ast.Transaction); ok && txn.Narration == DefaultConstants().OpeningNarration {
			opening = txn
		}
	}
	assert.NotZero(t, opening)
	assert.Equal(t, "2020-01-01", opening.Date.String())
	msg, _ := ast.MetaString(opening.Metadata, MetaMessage)
	assert.Equal(t, DefaultConstants().SyntheticMessage, msg)
}

func TestConvertDefaultDates(t *testing.T) {
	result := convert(t, withTransaction, WithCurrency("EUR"))

	assert.Equal(t, "2020-01-01", result.Start.String())
	assert.Equal(t, "2020-01-03", result.End.String())
	expected := map[gainsKey]string{
		{"Income:Unrealized-Gains:EUR-USD", NoCost, PriceChange, "Assets:Bank:Checking"}: "450",
	}
	if diff := cmp.Diff(expected, gainsByKey(t, result.Directives, "Income:Unrealized-Gains")); diff != "" {
		t.Errorf("gains mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertGrouping(t *testing.T) {
	source := `
2020-01-01 open Assets:Bank:Checking1
2020-01-01 open Assets:Bank:Checking2
2020-01-01 open Equity:Opening-Balances

2020-01-01 price EUR 1 USD

2020-01-01 * "Opening Balances"
  Assets:Bank:Checking1      100 USD
  Assets:Bank:Checking2      200 USD
  Equity:Opening-Balances   -300 USD

2020-01-03 price EUR 2 USD
`

	tests := []struct {
		name     string
		group    bool
		expected map[gainsKey]string
	}{
		{"PerAccount", false, map[gainsKey]string{
			{"Income:Unrealized-Gains:EUR-USD", NoCost, PriceChange, "Assets:Bank:Checking1"}: "50",
			{"Income:Unrealized-Gains:EUR-USD", NoCost, PriceChange, "Assets:Bank:Checking2"}: "100",
		}},
		{"Grouped", true, map[gainsKey]string{
			{"Income:Unrealized-Gains:EUR-USD", NoCost, PriceChange, ""}: "150",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := convert(t, source, WithCurrency("EUR"), WithGrouping(tt.group))
			if diff := cmp.Diff(tt.expected, gainsByKey(t, result.Directives, "Income:Unrealized-Gains")); diff != "" {
				t.Errorf("gains mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertCost(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		start    string
		end      string
		expected map[gainsKey]string
	}{
		{
			name: "PriceChange",
			source: `
2020-01-01 open Assets:Bank:Checking
2020-01-01 open Equity:Opening-Balances
2020-01-01 open Assets:Investments

2020-01-01 * "Opening Balances"
  Assets:Bank:Checking  1000 USD
  Equity:Opening-Balances

2020-01-02 price IVV 100 USD

2020-01-03 * "Buying at cost"
  Assets:Bank:Checking
  Assets:Investments     2 IVV {100 USD}

2020-01-04 price IVV 200 USD
`,
			start: "2020-01-02",
			end:   "2020-01-05",
			expected: map[gainsKey]string{
				{"Income:Unrealized-Gains:USD-IVV", AtCost, PriceChange, "Assets:Investments"}: "-200",
			},
		},
		{
			name: "RealizedGain",
			source: `
2020-01-01 open Assets:Bank:Checking
2020-01-01 open Equity:Opening-Balances
2020-01-01 open Assets:Investments
2020-01-01 open Income:Investment

2020-01-01 * "Opening Balances"
  Assets:Bank:Checking       1000 USD
  Equity:Opening-Balances   -1000 USD

2020-01-02 price IVV 150 USD

2020-01-03 * "Buying at cost"
  Assets:Bank:Checking  -300 USD
  Assets:Investments     2 IVV {150 USD}

2020-01-04 price IVV 200 USD

2020-01-05 * "Selling at a new price"
  Assets:Bank:Checking   400 USD
  Assets:Investments     -2 IVV {150 USD} @ 200 USD
  Income:Investment      -100 USD
`,
			expected: map[gainsKey]string{
				{"Income:Unrealized-Gains:USD-IVV", AtCost, PriceChange, "Assets:Investments"}: "-100",
				{"Income:Unrealized-Gains:USD-IVV", AtCost, PriceDiff, "Assets:Investments"}:   "100",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, err := ParseDate(tt.start)
			assert.NoError(t, err)
			end, err := ParseDate(tt.end)
			assert.NoError(t, err)

			result := convert(t, tt.source, WithCurrency("USD"), WithStartDate(start), WithEndDate(end))
			if diff := cmp.Diff(tt.expected, gainsByKey(t, result.Directives, "Income:Unrealized-Gains")); diff != "" {
				t.Errorf("gains mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertCustomGainsAccount(t *testing.T) {
	result := convert(t, withTransaction,
		WithCurrency("EUR"),
		WithStartDate(ast.MustDate("2020-01-02")),
		WithGainsAccount("Income:Revaluation"),
	)
	expected := map[gainsKey]string{
		{"Income:Revaluation:EUR-USD", NoCost, PriceChange, "Assets:Bank:Checking"}: "450",
	}
	if diff := cmp.Diff(expected, gainsByKey(t, result.Directives, "Income:Revaluation")); diff != "" {
		t.Errorf("gains mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, len(gainsByKey(t, result.Directives, "Income:Unrealized-Gains")))
}

func TestConvertUnconvertible(t *testing.T) {
	source := `
2020-01-01 open Assets:Bank:Checking1
2020-01-01 open Assets:Bank:Checking2
2020-01-01 open Equity:Opening-Balances
2020-01-01 open Expenses:Misc

2020-01-01 price EUR 1 USD

2020-01-01 * "Opening Balances"
  Assets:Bank:Checking1  200 USD
  Assets:Bank:Checking2  200 GBP
  Equity:Opening-Balances

2020-01-02 * "Buying something"
  Assets:Bank:Checking1  -100 USD
  Expenses:Misc           100 USD

2020-01-03 price EUR 2 USD
`
	result := convert(t, source,
		WithCurrency("EUR"),
		WithStartDate(ast.MustDate("2020-01-02")),
		WithEndDate(ast.MustDate("2020-01-05")),
	)

	assert.Equal(t, []string{"GBP"}, result.Unconvertible)
	expected := map[gainsKey]string{
		{"Income:Unrealized-Gains:EUR-USD", NoCost, PriceChange, "Assets:Bank:Checking1"}: "50",
	}
	if diff := cmp.Diff(expected, gainsByKey(t, result.Directives, "Income:Unrealized-Gains")); diff != "" {
		t.Errorf("gains mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		opts   []Option
		check  func(t *testing.T, err error)
	}{
		{
			name:   "StartAfterEnd",
			source: withTransaction,
			opts: []Option{
				WithCurrency("EUR"),
				WithStartDate(ast.MustDate("2020-01-04")),
				WithEndDate(ast.MustDate("2020-01-02")),
			},
			check: func(t *testing.T, err error) {
				var target *ParameterError
				assert.True(t, errors.As(err, &target))
				assert.Contains(t, err.Error(), "start date (2020-01-04) cannot be after the end date (2020-01-02)")
			},
		},
		{
			name:   "NoCurrency",
			source: withTransaction,
			check: func(t *testing.T, err error) {
				var target *ParameterError
				assert.True(t, errors.As(err, &target))
				assert.Contains(t, err.Error(), "operating_currency")
			},
		},
		{
			name: "BecomesConvertible",
			source: `
2020-01-01 open Assets:Bank:Checking1
2020-01-01 open Assets:Bank:Checking2
2020-01-01 open Equity:Opening-Balances

2020-01-01 price EUR 1 USD

2020-01-01 * "Opening Balances"
  Assets:Bank:Checking1  200 USD
  Assets:Bank:Checking2  200 GBP
  Equity:Opening-Balances

2020-01-03 price EUR 0.5 GBP
2020-01-03 price EUR 2 USD
`,
			opts: []Option{
				WithCurrency("EUR"),
				WithStartDate(ast.MustDate("2020-01-02")),
				WithEndDate(ast.MustDate("2020-01-05")),
			},
			check: func(t *testing.T, err error) {
				var target *UnconvertableCommBecomesConvertibleError
				assert.True(t, errors.As(err, &target))
				assert.Equal(t, "GBP", target.Currency)
				assert.Equal(t, "2020-01-03", target.Date.String())
			},
		},
		{
			name: "TransferToUnconvertible",
			source: `
2020-01-01 open Assets:Bank:Checking1
2020-01-01 open Assets:Bank:Checking2
2020-01-01 open Equity:Opening-Balances

2020-01-01 price EUR 1 USD

2020-01-01 * "Opening Balances"
  Assets:Bank:Checking1   1000 USD
  Assets:Bank:Checking2   1000 GBP
  Equity:Opening-Balances

2020-01-02 * "Buying something GBP"
  Assets:Bank:Checking2  -100 USD
  Assets:Bank:Checking2   100 GBP {1 USD}

2020-01-03 price EUR 2 USD
`,
			opts: []Option{
				WithCurrency("EUR"),
				WithStartDate(ast.MustDate("2020-01-02")),
				WithEndDate(ast.MustDate("2020-01-05")),
			},
			check: func(t *testing.T, err error) {
				var entry *EntryError
				assert.True(t, errors.As(err, &entry))
				var target *TransferFundsToFromUnconvertableCommError
				assert.True(t, errors.As(err, &target))
				assert.Equal(t, "GBP", target.Currency)
				assert.True(t, target.Unconvertible)
				assert.Equal(t, "Buying something GBP", target.Transaction.Narration)
			},
		},
		{
			name: "TransferWithoutRate",
			source: `
2020-01-01 open Assets:Bank
2020-01-01 open Assets:Stock
2020-01-01 open Equity:Opening-Balances

2020-01-01 * "Opening Balances"
  Assets:Bank   1000 EUR
  Equity:Opening-Balances

2020-01-02 * "Buying XYZ"
  Assets:Bank   -10 EUR
  Assets:Stock   10 XYZ {1 EUR}
`,
			opts: []Option{WithCurrency("EUR")},
			check: func(t *testing.T, err error) {
				var target *TransferFundsToFromUnconvertableCommError
				assert.True(t, errors.As(err, &target))
				assert.Equal(t, "XYZ", target.Currency)
				assert.False(t, target.Unconvertible)
			},
		},
		{
			name: "FirstDirectRateOfLot",
			source: `
2020-01-01 open Assets:Bank
2020-01-01 open Assets:Stock
2020-01-01 open Equity:Opening-Balances

2020-01-01 price USD 1 EUR

2020-01-01 * "Opening Balances"
  Assets:Bank   1000 USD
  Equity:Opening-Balances

2020-01-02 price XYZ 10 USD

2020-01-02 * "Buying XYZ"
  Assets:Bank   -100 USD
  Assets:Stock    10 XYZ {10 USD}

2020-01-05 price XYZ 12 EUR
`,
			opts: []Option{
				WithCurrency("EUR"),
				WithStartDate(ast.MustDate("2020-01-03")),
				WithEndDate(ast.MustDate("2020-01-05")),
			},
			check: func(t *testing.T, err error) {
				var target *InternalError
				assert.True(t, errors.As(err, &target))
				assert.Contains(t, err.Error(), "XYZ has no rate in EUR on or before 2020-01-04")
				assert.Contains(t, err.Error(), "lots held in Assets:Stock")
				assert.Contains(t, err.Error(), "add a price of XYZ in EUR")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaded := load(t, tt.source)
			result, err := New(tt.opts...).Convert(context.Background(), loaded.Directives, loaded.Options)
			assert.Error(t, err)
			assert.Zero(t, result)
			tt.check(t, err)
		})
	}
}

func TestConvertEmptyLedger(t *testing.T) {
	loaded := load(t, `option "operating_currency" "EUR"`)
	_, err := New().Convert(context.Background(), loaded.Directives, loaded.Options)
	var target *ParameterError
	assert.True(t, errors.As(err, &target))
}

func TestConvertOperatingCurrency(t *testing.T) {
	result := convert(t, "option \"operating_currency\" \"EUR\"\n"+withTransaction)
	assert.Equal(t, "EUR", result.Currency)
}

func TestConvertEntries(t *testing.T) {
	source := `
2020-01-01 open Assets:Bank USD
2020-01-01 open Equity:Opening-Balances

2020-01-01 price USD 1 EUR

2020-01-01 * "Opening Balances"
  Assets:Bank  100 USD
  Equity:Opening-Balances

2020-01-02 balance Assets:Bank 100 USD

2020-01-10 close Assets:Bank
`
	result := convert(t, source, WithCurrency("EUR"), WithEndDate(ast.MustDate("2020-01-05")))

	var opens, closes int
	for _, directive := range result.Directives {
		switch d := directive.(type) {
		case *ast.Open:
			if d.Account == "Assets:Bank" {
				opens++
				assert.Equal(t, 0, len(d.ConstraintCurrencies))
				msg, _ := ast.MetaString(d.Metadata, MetaMessage)
				assert.Equal(t, "Converted from original Open entry by removing currencies USD", msg)
			}
		case *ast.Balance:
			t.Errorf("balance assertion was not dropped: %s", formatter.FormatDirective(d))
		case *ast.Close:
			closes++
		case *ast.Transaction:
			for _, posting := range d.Postings {
				assert.Equal(t, "EUR", posting.Amount.Currency)
			}
		}
	}
	assert.Equal(t, 1, opens)
	assert.Equal(t, 0, closes)
}

func TestConvertPad(t *testing.T) {
	source := `
2020-01-01 open Assets:Bank
2020-01-01 open Equity:Opening-Balances

2020-01-01 price USD 2 EUR

2020-01-01 pad Assets:Bank Equity:Opening-Balances
2020-01-02 balance Assets:Bank 100.00 USD

2020-01-03 price USD 3 EUR
`
	result := convert(t, source, WithCurrency("EUR"))

	var padding *ast.Transaction
	for _, directive := range result.Directives {
		switch d := directive.(type) {
		case *ast.Pad, *ast.Balance:
			t.Errorf("directive was not dropped: %s", formatter.FormatDirective(d))
		case *ast.Transaction:
			if strings.HasPrefix(d.Narration, "(Padding inserted") {
				padding = d
			}
		}
	}
	assert.NotZero(t, padding)
	for _, posting := range padding.Postings {
		assert.Equal(t, "EUR", posting.Amount.Currency)
		if posting.Account == "Assets:Bank" {
			assert.True(t, decimal.NewFromInt(200).Equal(decimal.RequireFromString(posting.Amount.Value)))
		}
	}

	expected := map[gainsKey]string{
		{"Income:Unrealized-Gains:EUR-USD", NoCost, PriceChange, "Assets:Bank"}: "-100",
	}
	if diff := cmp.Diff(expected, gainsByKey(t, result.Directives, "Income:Unrealized-Gains")); diff != "" {
		t.Errorf("gains mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertTargetCurrencyOnly(t *testing.T) {
	source := `
2020-01-01 open Assets:Bank
2020-01-01 open Expenses:Food
2020-01-01 open Income:Salary

2020-01-01 * "Salary"
  Assets:Bank     2500.00 EUR
  Income:Salary  -2500.00 EUR

2020-01-05 * "Market" "Groceries" #food
  Expenses:Food     42.10 EUR
  Assets:Bank      -42.10 EUR

2020-01-09 * "Restaurant"
  Expenses:Food     18.00 EUR
  Assets:Bank      -18.00 EUR
`
	summary := func(directives ast.Directives) []string {
		var out []string
		for _, directive := range directives {
			txn, ok := directive.(*ast.Transaction)
			if !ok {
				continue
			}
			line := txn.Date.String() + " " + txn.Narration
			for _, posting := range txn.Postings {
				line += " | " + string(posting.Account) + " " + posting.Amount.Value + " " + posting.Amount.Currency
			}
			out = append(out, line)
		}
		return out
	}

	loaded := load(t, source)
	result := convert(t, source, WithCurrency("EUR"))

	assert.Equal(t, summary(loaded.Directives), summary(result.Directives))
	assert.Equal(t, 0, len(gainsByKey(t, result.Directives, "Income:Unrealized-Gains")))
}

func TestConvertKeepsInput(t *testing.T) {
	loaded := load(t, withTransaction)
	before := make([]string, len(loaded.Directives))
	for i, d := range loaded.Directives {
		before[i] = formatter.FormatDirective(d)
	}

	conv := New(WithCurrency("EUR"), WithStartDate(ast.MustDate("2020-01-02")), WithSelfTest(true))
	first, err := conv.Convert(context.Background(), loaded.Directives, loaded.Options)
	assert.NoError(t, err)

	for i, d := range loaded.Directives {
		assert.Equal(t, before[i], formatter.FormatDirective(d))
	}

	original := make(map[any]bool)
	for _, d := range loaded.Directives {
		original[d] = true
		if txn, ok := d.(*ast.Transaction); ok {
			for _, p := range txn.Postings {
				original[p] = true
			}
		}
	}
	for _, d := range first.Directives {
		assert.False(t, original[d])
		if txn, ok := d.(*ast.Transaction); ok {
			for _, p := range txn.Postings {
				assert.False(t, original[p])
			}
		}
	}

	second, err := conv.Convert(context.Background(), loaded.Directives, loaded.Options)
	assert.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}

func TestConvertCanceled(t *testing.T) {
	loaded := load(t, withTransaction)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithCurrency("EUR")).Convert(ctx, loaded.Directives, loaded.Options)
	assert.IsError(t, err, context.Canceled)
}

func TestPlugin(t *testing.T) {
	source := `plugin "beancount_scc" "currency='EUR', start_date='2020-01-02', end_date='2020-01-03'"
` + withTransaction

	loaded := load(t, source)
	expected := map[gainsKey]string{
		{"Income:Unrealized-Gains:EUR-USD", NoCost, PriceChange, "Assets:Bank:Checking"}: "450",
	}
	if diff := cmp.Diff(expected, gainsByKey(t, loaded.Directives, "Income:Unrealized-Gains")); diff != "" {
		t.Errorf("gains mismatch (-want +got):\n%s", diff)
	}
}

func TestPluginError(t *testing.T) {
	source := `plugin "beancount_scc" "'EUR'"
` + withTransaction

	loaded, err := loader.LoadString(context.Background(), source)
	assert.NoError(t, err)
	assert.Error(t, loaded.Err())
	assert.Contains(t, loaded.Err().Error(), "positional arguments are not supported")
}

func TestParseConfig(t *testing.T) {
	tolerance := decimal.RequireFromString("1000.5")

	tests := []struct {
		name     string
		input    string
		expected *Config
		err      string
	}{
		{name: "Empty", input: "", expected: &Config{}},
		{
			name:  "All",
			input: `currency='EUR', start_date='2020-01-01', end_date="2020-12-31", unreal_gains_p_l_acc='Income:Gains', tolerance='1,000.5', group_p_l_acc_tr=True, self_testing_mode=1`,
			expected: &Config{
				Currency:     "EUR",
				Start:        ast.MustDate("2020-01-01"),
				End:          ast.MustDate("2020-12-31"),
				GainsAccount: "Income:Gains",
				Tolerance:    &tolerance,
				Group:        true,
				SelfTest:     true,
			},
		},
		{name: "TargetCurrencyAlias", input: "target_currency='USD'", expected: &Config{Currency: "USD"}},
		{name: "NoneDate", input: "currency='EUR', start_date=None", expected: &Config{Currency: "EUR"}},
		{name: "CommaInString", input: "currency='E,R'", expected: &Config{Currency: "E,R"}},
		{name: "Positional", input: "'EUR'", err: "positional arguments are not supported"},
		{name: "Unknown", input: "colour='red'", err: `unknown keyword argument "colour"`},
		{name: "BadDate", input: "start_date='01/01/2020'", err: "invalid date"},
		{name: "BadBool", input: "group_p_l_acc_tr=maybe", err: "invalid boolean"},
		{name: "BadAccount", input: "unreal_gains_p_l_acc='gains'", err: "invalid gains account"},
		{name: "Unterminated", input: "currency='EUR", err: "unterminated string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig(tt.input)
			if tt.err != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				var target *ParameterError
				assert.True(t, errors.As(err, &target))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected.Currency, cfg.Currency)
			assert.Equal(t, dateString(tt.expected.Start), dateString(cfg.Start))
			assert.Equal(t, dateString(tt.expected.End), dateString(cfg.End))
			assert.Equal(t, tt.expected.GainsAccount, cfg.GainsAccount)
			assert.Equal(t, tt.expected.Group, cfg.Group)
			assert.Equal(t, tt.expected.SelfTest, cfg.SelfTest)
			if tt.expected.Tolerance == nil {
				assert.Zero(t, cfg.Tolerance)
			} else {
				assert.True(t, tt.expected.Tolerance.Equal(*cfg.Tolerance))
			}
		})
	}
}

func dateString(d *ast.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func TestTransferErrorMessage(t *testing.T) {
	txn := ast.NewTransaction(ast.MustDate("2020-01-02"), "Buying",
		ast.WithPostings(ast.NewPosting("Assets:Bank", ast.WithAmount("-100", "USD"))))
	err := &TransferFundsToFromUnconvertableCommError{
		Transaction:   txn,
		Posting:       txn.Postings[0],
		Currency:      "GBP",
		Target:        "EUR",
		Unconvertible: true,
	}
	assert.Contains(t, err.Error(), "GBP")
	assert.Contains(t, err.Error(), "EUR")
	assert.Contains(t, err.Error(), "Buying")
	assert.Equal(t, ast.Directive(txn), err.GetDirective())
}
