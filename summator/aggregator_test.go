package summator

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

func agg(t *testing.T, inventories map[ast.Account]string) InventoryAggregator {
	t.Helper()
	a, err := FromStrings(inventories)
	assert.NoError(t, err)
	return a
}

func prices(t *testing.T, entries ...[3]string) *ledger.PriceMap {
	t.Helper()
	var directives []ast.Directive
	for _, e := range entries {
		directives = append(directives, ast.NewPrice(ast.MustDate(e[0]), e[1], ast.NewAmount(e[2], "USD")))
	}
	return ledger.BuildPriceMap(directives)
}

func TestFromStrings(t *testing.T) {
	a := agg(t, map[ast.Account]string{
		"Assets:Bank1": "2 IVV {100 USD, 2020-01-01}",
		"Assets:Bank2": "",
	})
	assert.Equal(t, 2, len(a))
	assert.True(t, a["Assets:Bank2"].IsEmpty())

	pos, ok := a["Assets:Bank1"].OnlyPosition()
	assert.True(t, ok)
	assert.Equal(t, "2 IVV {100 USD, 2020-01-01}", pos.String())

	_, err := FromStrings(map[ast.Account]string{"Assets:Bank1": "USD"})
	assert.Error(t, err)
}

func TestGetDoesNotInsert(t *testing.T) {
	a := NewInventoryAggregator()
	assert.True(t, a.Get("Assets:Bank1").IsEmpty())
	assert.Equal(t, 0, len(a))

	a.Add("Assets:Bank1", ledger.Amount{Number: decimal.NewFromInt(5), Currency: "USD"}, nil)
	assert.Equal(t, 1, len(a))
}

func TestSumAll(t *testing.T) {
	tests := []struct {
		name        string
		inventories map[ast.Account]string
		want        string
	}{
		{
			name: "Currencies",
			inventories: map[ast.Account]string{
				"Assets:Bank1": "100.00 USD",
				"Assets:Bank2": "200.00 USD",
				"Assets:Bank3": "300.00 EUR",
			},
			want: "300.00 USD, 300.00 EUR",
		},
		{
			name: "Costs",
			inventories: map[ast.Account]string{
				"Assets:Bank1": "2 IVV",
				"Assets:Bank2": "2 IVV {100 USD}",
				"Assets:Bank3": "2 IVV {100 USD}",
				"Assets:Bank4": "2 IVV {100 USD, 2020-01-01}",
			},
			want: "2 IVV, 2 IVV {100 USD, 2020-01-01}, 4 IVV {100 USD}",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := agg(t, test.inventories).SumAll()
			assert.True(t, got.Equal(ledger.MustParseInventory(test.want)), "got %s", got)
		})
	}
}

func TestSub(t *testing.T) {
	a := agg(t, map[ast.Account]string{
		"Assets:Bank1": "100.00 USD",
		"Assets:Bank2": "200.00 USD",
		"Assets:Bank3": "300.00 EUR",
	})
	b := agg(t, map[ast.Account]string{
		"Assets:Bank1": "50.00 USD",
		"Assets:Bank2": "200.00 USD",
		"Assets:Bank3": "300.00 EUR",
		"Assets:Bank4": "10 GBP",
	})

	want := agg(t, map[ast.Account]string{
		"Assets:Bank1": "50.00 USD",
		"Assets:Bank2": "",
		"Assets:Bank3": "",
		"Assets:Bank4": "-10 GBP",
	})
	got := a.Sub(b)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sub() mismatch (-want +got):\n%s", diff)
	}

	// Operands are left alone.
	assert.True(t, a["Assets:Bank1"].Equal(ledger.MustParseInventory("100.00 USD")))
	assert.Equal(t, 3, len(a))
}

func TestCopy(t *testing.T) {
	a := agg(t, map[ast.Account]string{"Assets:Bank1": "100.00 USD"})
	c := a.Copy()
	assert.True(t, a.Equal(c))

	c.Add("Assets:Bank1", ledger.Amount{Number: decimal.NewFromInt(1), Currency: "USD"}, nil)
	c.Add("Assets:Bank2", ledger.Amount{Number: decimal.NewFromInt(1), Currency: "USD"}, nil)
	assert.True(t, a["Assets:Bank1"].Equal(ledger.MustParseInventory("100.00 USD")))
	assert.Equal(t, 1, len(a))
}

func TestCleanEmpty(t *testing.T) {
	a := agg(t, map[ast.Account]string{
		"Assets:Bank1": "100.00 USD",
		"Assets:Bank2": "",
		"Assets:Bank3": "300.00 EUR",
	})
	want := agg(t, map[ast.Account]string{
		"Assets:Bank1": "100.00 USD",
		"Assets:Bank3": "300.00 EUR",
	})
	if diff := cmp.Diff(want, a.CleanEmpty()); diff != "" {
		t.Errorf("CleanEmpty() mismatch (-want +got):\n%s", diff)
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, NewInventoryAggregator().IsEmpty())
	assert.True(t, agg(t, map[ast.Account]string{"Assets:Bank1": "", "Assets:Bank2": ""}).IsEmpty())
	assert.False(t, agg(t, map[ast.Account]string{"Assets:Bank1": "30 USD", "Assets:Bank2": ""}).IsEmpty())
}

func TestConvert(t *testing.T) {
	pm := ledger.BuildPriceMap([]ast.Directive{
		ast.NewPrice(ast.MustDate("2020-01-01"), "EUR", ast.NewAmount("1", "USD")),
		ast.NewPrice(ast.MustDate("2020-01-02"), "EUR", ast.NewAmount("2", "USD")),
	})
	a := agg(t, map[ast.Account]string{"Assets:Bank1": "100.00 USD, 200.00 HOO"})

	tests := []struct {
		name string
		date *ast.Date
		want string
	}{
		{name: "FirstPriceDate", date: ast.MustDate("2020-01-01"), want: "100.00 EUR, 200.00 HOO"},
		{name: "SecondPriceDate", date: ast.MustDate("2020-01-02"), want: "50.00 EUR, 200.00 HOO"},
		{name: "AfterLastPrice", date: ast.MustDate("2020-01-03"), want: "50.00 EUR, 200.00 HOO"},
		{name: "BeforeFirstPrice", date: ast.MustDate("2019-12-31"), want: "100.00 USD, 200.00 HOO"},
		{name: "Latest", date: nil, want: "50.00 EUR, 200.00 HOO"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			want := agg(t, map[ast.Account]string{"Assets:Bank1": test.want})
			if diff := cmp.Diff(want, a.Convert("EUR", pm, test.date)); diff != "" {
				t.Errorf("Convert() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertMarksCost(t *testing.T) {
	pm := prices(t, [3]string{"2020-01-02", "IVV", "100"})

	tests := []struct {
		name      string
		inventory string
		want      string
	}{
		{name: "AtCost", inventory: "1.0 IVV {100 USD}", want: "100.0 USD {1 REMOVEDCOST}"},
		{name: "Mixed", inventory: "2.0 IVV, 1.0 IVV {100 USD}", want: "200.0 USD, 100.0 USD {1 REMOVEDCOST}"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := agg(t, map[ast.Account]string{"Assets:Bank1": test.inventory})
			want := agg(t, map[ast.Account]string{"Assets:Bank1": test.want})
			if diff := cmp.Diff(want, a.Convert("USD", pm, ast.MustDate("2020-01-02"))); diff != "" {
				t.Errorf("Convert() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertThroughCostCurrency(t *testing.T) {
	pm := ledger.BuildPriceMap([]ast.Directive{
		ast.NewPrice(ast.MustDate("2020-01-01"), "IVV", ast.NewAmount("100", "USD")),
		ast.NewPrice(ast.MustDate("2020-01-01"), "USD", ast.NewAmount("0.5", "EUR")),
	})
	a := agg(t, map[ast.Account]string{"Assets:Broker": "2 IVV {90 USD}"})

	want := agg(t, map[ast.Account]string{"Assets:Broker": "100.0 EUR {1 REMOVEDCOST}"})
	if diff := cmp.Diff(want, a.Convert("EUR", pm, ast.MustDate("2020-01-01"))); diff != "" {
		t.Errorf("Convert() mismatch (-want +got):\n%s", diff)
	}
}

func TestCurrencies(t *testing.T) {
	a := agg(t, map[ast.Account]string{
		"Assets:Bank1": "100.00 USD, 50 EUR",
		"Assets:Bank2": "2 IVV {100 USD}",
	})
	assert.Equal(t, []string{"EUR", "IVV", "USD"}, a.Currencies())
}

func TestCurrencyPositions(t *testing.T) {
	a := agg(t, map[ast.Account]string{
		"Assets:Bank1": "100.00 USD, 50 EUR",
		"Assets:Bank2": "200.00 USD, 1 IVV {10 USD}, 2 IVV",
		"Assets:Bank3": "300.00 EUR",
	})
	want := agg(t, map[ast.Account]string{
		"Assets:Bank2": "1 IVV {10 USD}, 2 IVV",
	})
	if diff := cmp.Diff(want, a.CurrencyPositions("IVV")); diff != "" {
		t.Errorf("CurrencyPositions() mismatch (-want +got):\n%s", diff)
	}
}

func TestAccountsSorted(t *testing.T) {
	a := agg(t, map[ast.Account]string{
		"Assets:Bank1": "100.00 USD, 50 EUR",
		"Assets:Aank2": "200.00 USD",
		"Assets:Cank3": "300.00 EUR",
	})
	assert.Equal(t, []ast.Account{"Assets:Aank2", "Assets:Bank1", "Assets:Cank3"}, a.Accounts())
	assert.Equal(t, "Assets:Aank2 (200.00 USD)\nAssets:Bank1 (50 EUR, 100.00 USD)\nAssets:Cank3 (300.00 EUR)\n", a.String())
}

func TestIsSmall(t *testing.T) {
	a := agg(t, map[ast.Account]string{
		"Assets:Bank1": "0.000000000001 USD, 0.000000000001 EUR",
		"Assets:Bank2": "0.000000000001 USD",
		"Assets:Bank3": "0.000000000001 USD",
	})
	assert.True(t, a.IsSmall(ledger.UniformTolerances(decimal.RequireFromString("0.00000000001"))))
	assert.False(t, a.IsSmall(ledger.UniformTolerances(decimal.RequireFromString("0.0000000000001"))))
}

func TestCleanSmall(t *testing.T) {
	a := agg(t, map[ast.Account]string{
		"Assets:Bank1": "0.000000000001 USD, 0.000000000001 EUR",
		"Assets:Bank2": "0.000000000001 USD",
		"Assets:Bank3": "1.0 USD",
	})
	want := agg(t, map[ast.Account]string{"Assets:Bank3": "1.0 USD"})
	got := a.CleanSmall(ledger.UniformTolerances(decimal.RequireFromString("0.0001")))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CleanSmall() mismatch (-want +got):\n%s", diff)
	}
}
