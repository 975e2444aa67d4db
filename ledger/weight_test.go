package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

func TestWeight(t *testing.T) {
	usd := func(v string) *ast.Amount { return &ast.Amount{Value: v, Currency: "USD"} }
	eur := func(v string) *ast.Amount { return &ast.Amount{Value: v, Currency: "EUR"} }
	hool := func(v string) *ast.Amount { return &ast.Amount{Value: v, Currency: "HOOL"} }

	tests := []struct {
		name     string
		posting  *ast.Posting
		expected string
	}{
		{"Units", &ast.Posting{Amount: eur("10")}, "10 EUR"},
		{"Cost", &ast.Posting{Amount: hool("10"), Cost: &ast.Cost{Amount: eur("5")}}, "50 EUR"},
		{"TotalCost", &ast.Posting{Amount: hool("-10"), Cost: &ast.Cost{Amount: eur("50"), IsTotal: true}}, "-50 EUR"},
		{"CostWinsOverPrice", &ast.Posting{Amount: hool("10"), Cost: &ast.Cost{Amount: eur("5")}, Price: eur("6")}, "50 EUR"},
		{"Price", &ast.Posting{Amount: usd("-10"), Price: eur("0.9")}, "-9.0 EUR"},
		{"TotalPrice", &ast.Posting{Amount: usd("-10"), Price: eur("9"), PriceTotal: true}, "-9 EUR"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w, err := Weight(test.posting)
			assert.NoError(t, err)
			assert.Equal(t, test.expected, w.String())
		})
	}

	_, err := Weight(&ast.Posting{Account: "Assets:Cash"})
	assert.Error(t, err)
}

func TestComputeResidual(t *testing.T) {
	residual, err := ComputeResidual([]*ast.Posting{
		{Amount: &ast.Amount{Value: "-10.00", Currency: "USD"}, Price: &ast.Amount{Value: "0.90", Currency: "EUR"}},
		{Amount: &ast.Amount{Value: "9.01", Currency: "EUR"}},
		{Account: "Equity:Open"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "(0.0100 EUR)", residual.String())
}
