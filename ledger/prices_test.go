package ledger

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/parser"
)

func TestPriceMap(t *testing.T) {
	tree, err := parser.ParseString(context.Background(), `
2024-01-01 price USD 0.9 EUR
2024-02-01 price USD 0.8 EUR
2024-02-01 price USD 0.85 EUR
2024-01-15 price EUR 1.25 USD
2024-01-01 price HOOL 100 USD
`)
	assert.NoError(t, err)

	pm := BuildPriceMap(tree.Directives)

	tests := []struct {
		name        string
		base, quote string
		date        string
		rate        string
		found       bool
	}{
		{"SameCurrency", "EUR", "EUR", "2000-01-01", "1", true},
		{"BeforeFirst", "USD", "EUR", "2023-12-31", "0", false},
		{"OnDate", "USD", "EUR", "2024-01-01", "0.9", true},
		{"MergedInverse", "USD", "EUR", "2024-01-20", "0.8", true},
		{"LastOfDayWins", "USD", "EUR", "2024-02-10", "0.85", true},
		{"Inverse", "EUR", "USD", "2024-02-10", "1.1764705882352941176470588235", true},
		{"UnknownPair", "HOOL", "EUR", "2024-02-10", "0", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rate, ok := pm.GetPrice(test.base, test.quote, ast.MustDate(test.date))
			assert.Equal(t, test.found, ok)
			assert.Equal(t, test.rate, rate.String())
		})
	}

	assert.Equal(t, []Pair{{"HOOL", "USD"}, {"USD", "EUR"}}, pm.ForwardPairs())
	assert.Equal(t, 4, len(pm.Pairs()))

	first, ok := pm.FirstDate("EUR", "USD")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01", first.String())

	latest, ok := pm.GetLatestPrice("HOOL", "USD")
	assert.True(t, ok)
	assert.Equal(t, "100", latest.Rate.String())
	assert.Equal(t, 3, len(pm.AllPrices("USD", "EUR")))
}
