package formatter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/sebdah/goldie/v2"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/parser"
)

func TestFormatDirectivesGolden(t *testing.T) {
	bal := ast.NewBalance(ast.MustDate("2024-01-04"), "Assets:Bank", ast.NewAmount("100.00", "USD"))
	bal.Tolerance = "0.01"

	directives := []ast.Directive{
		ast.NewOpen(ast.MustDate("2024-01-01"), "Assets:Bank", []string{"EUR", "USD"}, ""),
		ast.NewPrice(ast.MustDate("2024-01-02"), "USD", ast.NewAmount("0.9", "EUR")),
		ast.NewTransaction(ast.MustDate("2024-01-03"), "Groceries",
			ast.WithPayee("Shop"),
			ast.WithTags("food"),
			ast.WithLinks("r-1"),
			ast.WithTransactionMetadata(ast.NewMetadata("scc_msg", "Created by the Single Currency Converter")),
			ast.WithPostings(
				ast.NewPosting("Expenses:Food", ast.WithAmount("10.00", "EUR")),
				ast.NewPosting("Assets:Bank",
					ast.WithAmount("-11.00", "USD"),
					ast.WithPrice(ast.NewAmount("0.9", "EUR")),
					ast.WithPostingMetadata(ast.NewMetadata("note", "converted"))),
				ast.NewPosting("Assets:Broker",
					ast.WithAmount("2", "HOOL"),
					ast.WithCost(ast.NewCostWithDate(ast.NewAmount("5.00", "EUR"), ast.MustDate("2024-01-01")))),
				ast.NewPosting("Equity:Round"),
			),
		),
		bal,
	}
	options := []*ast.Option{{Name: "operating_currency", Value: "EUR"}}

	var buf bytes.Buffer
	err := New(WithCurrencyColumn(40)).FormatDirectives(options, directives, &buf)
	assert.NoError(t, err)

	goldie.New(t).Assert(t, "directives", buf.Bytes())
}

func TestFormatRoundTrip(t *testing.T) {
	source := `option "title" "Round trip"
plugin "beancount_scc" "currency='EUR'"

2024-01-01 open Assets:Bank EUR,USD "FIFO"
  opened: 2023-12-31
2024-01-01 commodity HOOL
2024-01-02 pad Assets:Bank Equity:Opening
2024-01-03 note Assets:Bank "Say \"hi\""
2024-01-03 document Assets:Bank "a.pdf" #bank ^doc
2024-01-03 event "location" "Berlin"
2024-01-03 query "cash" "SELECT account"
2024-01-03 custom "budget" Expenses:Food 100 EUR TRUE
2024-01-04 ! "Payee" "Narration"
  Assets:Bank  -10 HOOL {{100 EUR, "lot"}} @@ 110 EUR
  Assets:Cash  100 EUR
  Income:Gains
2024-12-31 close Assets:Bank
`
	first, err := parser.ParseString(context.Background(), source)
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, New().Format(context.Background(), first, []byte(source), &buf))

	second, err := parser.ParseString(context.Background(), buf.String())
	assert.NoError(t, err)

	assert.Equal(t, len(first.Directives), len(second.Directives))
	for i := range first.Directives {
		assert.Equal(t, FormatDirective(first.Directives[i]), FormatDirective(second.Directives[i]))
	}
	assert.Equal(t, first.Options, withoutPositions(second.Options, first.Options))
	assert.Equal(t, "currency='EUR'", second.Plugins[0].Config)
}

// withoutPositions copies the positions of want into got so that only values are compared.
func withoutPositions(got, want []*ast.Option) []*ast.Option {
	for i := range got {
		if i < len(want) {
			got[i].Pos = want[i].Pos
		}
	}
	return got
}

func TestFormatPreservesComments(t *testing.T) {
	source := `; Accounts

2024-01-01 open Assets:Bank
; cash
2024-01-01 open Assets:Cash



2024-01-02 close Assets:Cash
`
	tree, err := parser.ParseString(context.Background(), source)
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, New().Format(context.Background(), tree, []byte(source), &buf))

	want := `; Accounts

2024-01-01 open Assets:Bank
; cash
2024-01-01 open Assets:Cash

2024-01-02 close Assets:Cash
`
	assert.Equal(t, want, buf.String())
}

func TestFormatDirective(t *testing.T) {
	tests := []struct {
		name      string
		directive ast.Directive
		want      string
	}{
		{
			name:      "Close",
			directive: ast.NewClose(ast.MustDate("2024-02-01"), "Assets:Bank"),
			want:      "2024-02-01 close Assets:Bank\n",
		},
		{
			name:      "Pad",
			directive: ast.NewPad(ast.MustDate("2024-02-01"), "Assets:Bank", "Equity:Opening"),
			want:      "2024-02-01 pad Assets:Bank Equity:Opening\n",
		},
		{
			name: "NarrationOnly",
			directive: ast.NewTransaction(ast.MustDate("2024-02-01"), "Tab\tand \"quote\"",
				ast.WithPostings(ast.NewPosting("Assets:Bank"))),
			want: "2024-02-01 * \"Tab\\tand \\\"quote\\\"\"\n  Assets:Bank\n",
		},
		{
			name: "TypedMetadata",
			directive: &ast.Commodity{
				Date:     ast.MustDate("2024-02-01"),
				Currency: "HOOL",
				Metadata: []*ast.Metadata{
					{Key: "name", Value: &ast.MetadataValue{StringValue: strPtr("Hooli")}},
					{Key: "since", Value: &ast.MetadataValue{Date: ast.MustDate("2020-01-01")}},
					{Key: "empty"},
				},
			},
			want: "2024-02-01 commodity HOOL\n  name: \"Hooli\"\n  since: 2020-01-01\n  empty:\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDirective(tt.directive))
		})
	}
}

func TestCurrencyColumnFromContent(t *testing.T) {
	txn := ast.NewTransaction(ast.MustDate("2024-01-01"), "x", ast.WithPostings(
		ast.NewPosting("Assets:Bank", ast.WithAmount("1", "EUR")),
		ast.NewPosting("Assets:Bank:Savings", ast.WithAmount("-1000.00", "EUR")),
	))

	var buf bytes.Buffer
	assert.NoError(t, New().FormatDirectives(nil, []ast.Directive{txn}, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, strings.Index(lines[1], "EUR"), strings.Index(lines[2], "EUR"))
	// indentation + account + spacing + number + spacing
	assert.Equal(t, 2+19+2+8+2+1, strings.Index(lines[2], "EUR"))
}

func TestEscapeString(t *testing.T) {
	assert.Equal(t, "plain", escapeString("plain"))
	assert.Equal(t, `a\"b\\c\nd`, escapeString("a\"b\\c\nd"))
}

func strPtr(s string) *string { return &s }
