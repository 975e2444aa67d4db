package summator

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

// RemovedCostCurrency is the currency of the marker cost attached to
// converted positions that were held at cost.
const RemovedCostCurrency = "REMOVEDCOST"

// RemovedCost returns the marker cost {1 REMOVEDCOST}. Converted amounts
// lose their cost, the marker keeps track of which ones had one.
func RemovedCost() *ledger.Cost {
	return &ledger.Cost{Number: decimal.NewFromInt(1), Currency: RemovedCostCurrency}
}

// IsRemovedCost reports whether cost is the marker cost.
func IsRemovedCost(cost *ledger.Cost) bool {
	return cost != nil && cost.Currency == RemovedCostCurrency
}

// InventoryAggregator maps accounts to their inventories. Reads of a missing
// account never add it to the map; only Add does.
type InventoryAggregator map[ast.Account]*ledger.Inventory

// NewInventoryAggregator returns an empty aggregator.
func NewInventoryAggregator() InventoryAggregator {
	return make(InventoryAggregator)
}

// FromStrings builds an aggregator from inventories written the way
// ledger.ParseInventory reads them. An empty string keeps the account with
// an empty inventory.
func FromStrings(inventories map[ast.Account]string) (InventoryAggregator, error) {
	out := make(InventoryAggregator, len(inventories))
	for account, s := range inventories {
		inv, err := ledger.ParseInventory(s)
		if err != nil {
			return nil, err
		}
		out[account] = inv
	}
	return out, nil
}

// Get returns the inventory of account, or an empty one without storing it.
func (a InventoryAggregator) Get(account ast.Account) *ledger.Inventory {
	if inv, ok := a[account]; ok {
		return inv
	}
	return ledger.NewInventory()
}

// Add accumulates units at cost into the inventory of account, creating the
// inventory when needed.
func (a InventoryAggregator) Add(account ast.Account, units ledger.Amount, cost *ledger.Cost) {
	inv, ok := a[account]
	if !ok {
		inv = ledger.NewInventory()
		a[account] = inv
	}
	inv.AddAmount(units, cost)
}

// Accounts returns the accounts in sorted order.
func (a InventoryAggregator) Accounts() []ast.Account {
	accounts := maps.Keys(a)
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
	return accounts
}

// SumAll adds up the inventories of every account.
func (a InventoryAggregator) SumAll() *ledger.Inventory {
	out := ledger.NewInventory()
	for _, account := range a.Accounts() {
		out.AddInventory(a[account])
	}
	return out
}

// Sub returns a - other over the union of both account sets. Accounts that
// cancel out stay in the result with an empty inventory.
func (a InventoryAggregator) Sub(other InventoryAggregator) InventoryAggregator {
	out := make(InventoryAggregator, len(a))
	for account, inv := range a {
		out[account] = inv.Copy()
	}
	for account, inv := range other {
		sum, ok := out[account]
		if !ok {
			sum = ledger.NewInventory()
			out[account] = sum
		}
		sum.AddInventory(inv.Neg())
	}
	return out
}

// Copy returns a copy that shares no inventory with a.
func (a InventoryAggregator) Copy() InventoryAggregator {
	out := make(InventoryAggregator, len(a))
	for account, inv := range a {
		out[account] = inv.Copy()
	}
	return out
}

// CleanEmpty returns the accounts with a non-empty inventory.
func (a InventoryAggregator) CleanEmpty() InventoryAggregator {
	out := make(InventoryAggregator, len(a))
	for account, inv := range a {
		if !inv.IsEmpty() {
			out[account] = inv
		}
	}
	return out
}

// IsEmpty returns true if every inventory is empty.
func (a InventoryAggregator) IsEmpty() bool {
	for _, inv := range a {
		if !inv.IsEmpty() {
			return false
		}
	}
	return true
}

// Convert converts every position into target at the rate valid on date, or
// at the latest rate when date is nil. Positions without a rate keep their
// currency. Converted positions that were held at cost get the marker cost,
// so an account may end up with both a marked and an unmarked position of
// target.
func (a InventoryAggregator) Convert(target string, prices *ledger.PriceMap, date *ast.Date) InventoryAggregator {
	out := make(InventoryAggregator, len(a))
	for account, inv := range a {
		converted := ledger.NewInventory()
		for _, pos := range inv.Positions() {
			var marker *ledger.Cost
			if pos.Cost != nil {
				marker = RemovedCost()
			}
			converted.AddAmount(ledger.ConvertPosition(pos, target, prices, date), marker)
		}
		out[account] = converted
	}
	return out
}

// Currencies returns every unit currency, sorted.
func (a InventoryAggregator) Currencies() []string {
	seen := make(map[string]bool)
	for _, inv := range a {
		for _, currency := range inv.Currencies() {
			seen[currency] = true
		}
	}
	currencies := maps.Keys(seen)
	sort.Strings(currencies)
	return currencies
}

// CurrencyPositions keeps the positions of currency and drops accounts that
// hold none.
func (a InventoryAggregator) CurrencyPositions(currency string) InventoryAggregator {
	out := make(InventoryAggregator)
	for account, inv := range a {
		filtered := inv.Filter(func(pos *ledger.Position) bool {
			return pos.Units.Currency == currency
		})
		if !filtered.IsEmpty() {
			out[account] = filtered
		}
	}
	return out
}

// IsSmall returns true if every inventory is within tolerances.
func (a InventoryAggregator) IsSmall(tolerances ledger.Tolerances) bool {
	for _, inv := range a {
		if !inv.IsSmall(tolerances) {
			return false
		}
	}
	return true
}

// CleanSmall drops the accounts whose inventory is within tolerances.
func (a InventoryAggregator) CleanSmall(tolerances ledger.Tolerances) InventoryAggregator {
	out := make(InventoryAggregator, len(a))
	for account, inv := range a {
		if !inv.IsSmall(tolerances) {
			out[account] = inv
		}
	}
	return out
}

// Equal reports whether both aggregators hold equal inventories for the same
// accounts.
func (a InventoryAggregator) Equal(other InventoryAggregator) bool {
	if len(a) != len(other) {
		return false
	}
	for account, inv := range a {
		o, ok := other[account]
		if !ok || !inv.Equal(o) {
			return false
		}
	}
	return true
}

// String renders one "account inventory" line per account, sorted.
func (a InventoryAggregator) String() string {
	var b strings.Builder
	for _, account := range a.Accounts() {
		b.WriteString(string(account))
		b.WriteString(" ")
		b.WriteString(a[account].Sorted().String())
		b.WriteString("\n")
	}
	return b.String()
}
