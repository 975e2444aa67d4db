package query

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/loader"
	"github.com/robinvdvleuten/beancount-scc/summator"
)

const source = `
2020-01-01 open Assets:Bank
2020-01-01 open Equity:Opening-Balances
2020-01-01 open Expenses:Food
2020-01-01 open Income:Salary

2020-01-01 price USD 0.5 EUR

2020-01-01 * "Opening"
  Assets:Bank              100 USD
  Equity:Opening-Balances

2020-01-02 * "Food"
  Assets:Bank              -10 USD
  Expenses:Food             10 USD

2020-01-03 price USD 0.8 EUR

2020-01-03 * "Salary"
  Assets:Bank               50 EUR
  Income:Salary            -50 EUR
`

func load(t *testing.T) *loader.Result {
	t.Helper()
	result, err := loader.LoadString(context.Background(), source)
	assert.NoError(t, err)
	assert.NoError(t, result.Err())
	return result
}

func agg(t *testing.T, inventories map[ast.Account]string) summator.InventoryAggregator {
	t.Helper()
	a, err := summator.FromStrings(inventories)
	assert.NoError(t, err)
	return a
}

func TestNetWorth(t *testing.T) {
	result := load(t)

	tests := []struct {
		name     string
		currency string
		date     string
		expected map[ast.Account]string
	}{
		{"BeforeRateChange", "EUR", "2020-01-02", map[ast.Account]string{"Assets:Bank": "45 EUR"}},
		{"AfterRateChange", "EUR", "2020-01-03", map[ast.Account]string{"Assets:Bank": "122 EUR"}},
		{"FirstDay", "EUR", "2020-01-01", map[ast.Account]string{"Assets:Bank": "50 EUR"}},
		{"NoRate", "GBP", "2020-01-02", map[ast.Account]string{"Assets:Bank": "90 USD"}},
		{"SameCurrency", "USD", "2020-01-02", map[ast.Account]string{"Assets:Bank": "90 USD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NetWorth(result.Directives, result.Options, tt.currency, ast.MustDate(tt.date))
			assert.NoError(t, err)
			if diff := cmp.Diff(agg(t, tt.expected), got.CleanEmpty()); diff != "" {
				t.Errorf("net worth mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatementOfChange(t *testing.T) {
	result := load(t)

	tests := []struct {
		name       string
		start, end string
		expected   map[ast.Account]string
	}{
		{"WholePeriod", "2020-01-01", "2020-01-03", map[ast.Account]string{
			"Equity:Opening-Balances": "-50 EUR",
			"Expenses:Food":           "5 EUR",
			"Income:Salary":           "-50 EUR",
		}},
		{"WithoutOpening", "2020-01-02", "2020-01-03", map[ast.Account]string{
			"Expenses:Food": "5 EUR",
			"Income:Salary": "-50 EUR",
		}},
		{"Empty", "2020-02-01", "2020-02-28", map[ast.Account]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StatementOfChange(result.Directives, result.Options, "EUR", ast.MustDate(tt.start), ast.MustDate(tt.end))
			assert.NoError(t, err)
			if diff := cmp.Diff(agg(t, tt.expected), got.CleanEmpty()); diff != "" {
				t.Errorf("statement of change mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBalances(t *testing.T) {
	result := load(t)

	got, err := Balances(result.Directives, "^Assets", nil)
	assert.NoError(t, err)
	if diff := cmp.Diff(agg(t, map[ast.Account]string{"Assets:Bank": "90 USD, 50 EUR"}), got); diff != "" {
		t.Errorf("balances mismatch (-want +got):\n%s", diff)
	}

	_, err = Balances(result.Directives, "(", nil)
	assert.Error(t, err)
}

func TestShellExecute(t *testing.T) {
	result := load(t)
	shell := &Shell{
		Directives: result.Directives,
		Options:    result.Options,
		Currency:   "EUR",
		Date:       ast.MustDate("2020-01-03"),
	}

	tests := []struct {
		name     string
		line     string
		quit     bool
		contains []string
		err      string
	}{
		{name: "Empty", line: "   "},
		{name: "Help", line: "help", contains: []string{"networth [DATE]", "changes START END"}},
		{name: "Errors", line: "errors", contains: []string{"no errors"}},
		{name: "NetWorthDefaultDate", line: "networth", contains: []string{"Assets:Bank  (122.0 EUR)", "Total"}},
		{name: "NetWorthAtDate", line: "networth 2020-01-02", contains: []string{"Assets:Bank  (45.0 EUR)"}},
		{name: "Changes", line: "changes 2020-01-02 2020-01-03", contains: []string{"Expenses:Food", "Income:Salary", "(-45.0 EUR)"}},
		{name: "Balances", line: "balances ^Assets", contains: []string{"Assets:Bank  (50 EUR, 90 USD)"}},
		{name: "Quit", line: "quit", quit: true},
		{name: "ChangesUsage", line: "changes 2020-01-02", err: "usage: changes START END"},
		{name: "BadDate", line: "networth yesterday", err: "invalid date"},
		{name: "Unknown", line: "select *", err: `unknown command "select"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			quit, err := shell.Execute(&out, tt.line)
			if tt.err != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.quit, quit)
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestShellRun(t *testing.T) {
	result := load(t)
	shell := &Shell{
		Directives: result.Directives,
		Options:    result.Options,
		Currency:   "EUR",
		Date:       ast.MustDate("2020-01-03"),
	}

	var out bytes.Buffer
	input := strings.NewReader("networth 2020-01-02\nbogus\nquit\nnetworth\n")
	assert.NoError(t, shell.Run(context.Background(), input, &out))

	output := out.String()
	assert.Contains(t, output, Prompt)
	assert.Contains(t, output, "Assets:Bank  (45.0 EUR)")
	assert.Contains(t, output, `error: unknown command "bogus"`)
	assert.NotContains(t, output, "122")
}

func TestShellRunEOF(t *testing.T) {
	shell := &Shell{Currency: "EUR"}
	var out bytes.Buffer
	assert.NoError(t, shell.Run(context.Background(), strings.NewReader("errors\n"), &out))
	assert.Contains(t, out.String(), "no errors")
}
