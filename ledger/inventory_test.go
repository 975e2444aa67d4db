package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

func amt(number, currency string) Amount {
	return Amount{Number: decimal.RequireFromString(number), Currency: currency}
}

func TestInventoryAddAmount(t *testing.T) {
	cost := &Cost{Number: decimal.NewFromInt(100), Currency: "USD", Date: ast.MustDate("2024-01-01")}

	inv := NewInventory()
	assert.Zero(t, inv.AddAmount(amt("10", "EUR"), nil))
	assert.Zero(t, inv.AddAmount(amt("2", "HOOL"), cost))

	before := inv.AddAmount(amt("5.50", "EUR"), nil)
	assert.Equal(t, "10 EUR", before.String())
	assert.Equal(t, "(15.50 EUR, 2 HOOL {100 USD, 2024-01-01})", inv.String())

	// A lot with a different date is a separate position.
	other := &Cost{Number: decimal.NewFromInt(100), Currency: "USD", Date: ast.MustDate("2024-02-01")}
	inv.AddAmount(amt("1", "HOOL"), other)
	assert.Equal(t, 3, inv.Len())

	inv.AddAmount(amt("-15.50", "EUR"), nil)
	assert.Equal(t, []string{"HOOL"}, inv.Currencies())
	assert.Equal(t, "3", inv.Units("HOOL").Number.String())
}

func TestInventoryUnitsAtCost(t *testing.T) {
	cost := &Cost{Number: decimal.NewFromInt(1), Currency: "REMOVEDCOST"}

	inv := NewInventory()
	inv.AddAmount(amt("10", "EUR"), cost)
	inv.AddAmount(amt("2.5", "EUR"), nil)
	inv.AddAmount(amt("7", "USD"), nil)

	atCost, noCost := inv.UnitsAtCost("EUR")
	assert.Equal(t, "10 EUR", atCost.String())
	assert.Equal(t, "2.5 EUR", noCost.String())

	atCost, noCost = inv.UnitsAtCost("USD")
	assert.True(t, atCost.Number.IsZero())
	assert.Equal(t, "7 USD", noCost.String())
}

func TestInventoryNegAndSmall(t *testing.T) {
	inv := NewInventory()
	inv.AddAmount(amt("0.004", "EUR"), nil)
	inv.AddAmount(amt("-0.002", "USD"), nil)

	assert.Equal(t, "(-0.004 EUR, 0.002 USD)", inv.Neg().String())
	assert.True(t, inv.IsSmall(UniformTolerances(decimal.RequireFromString("0.005"))))
	assert.False(t, inv.IsSmall(UniformTolerances(decimal.RequireFromString("0.003"))))
	assert.True(t, NewInventory().IsSmall(UniformTolerances(decimal.Zero)))
}

func TestInventorySorted(t *testing.T) {
	cost := &Cost{Number: decimal.NewFromInt(1), Currency: "REMOVEDCOST"}

	inv := NewInventory()
	inv.AddAmount(amt("3", "USD"), nil)
	inv.AddAmount(amt("1", "EUR"), cost)
	inv.AddAmount(amt("2", "EUR"), nil)

	assert.Equal(t, "(2 EUR, 1 EUR {1 REMOVEDCOST}, 3 USD)", inv.Sorted().String())
	// Sorting returns a copy.
	assert.Equal(t, "(3 USD, 1 EUR {1 REMOVEDCOST}, 2 EUR)", inv.String())
}

func TestCostEqual(t *testing.T) {
	a := &Cost{Number: decimal.RequireFromString("1.50"), Currency: "USD"}
	b := &Cost{Number: decimal.RequireFromString("1.5"), Currency: "USD"}
	c := &Cost{Number: decimal.RequireFromString("1.5"), Currency: "USD", Label: "x"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Cost)(nil).Equal(nil))
}
