package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Cost is the booked per-unit cost of a lot.
type Cost struct {
	Number   decimal.Decimal
	Currency string
	Date     *ast.Date
	Label    string
}

// Equal reports whether both costs identify the same lot.
func (c *Cost) Equal(other *Cost) bool {
	if c == nil || other == nil {
		return c == nil && other == nil
	}
	if !c.Number.Equal(other.Number) || c.Currency != other.Currency || c.Label != other.Label {
		return false
	}
	if c.Date.IsZero() || other.Date.IsZero() {
		return c.Date.IsZero() && other.Date.IsZero()
	}
	return c.Date.Equal(other.Date)
}

// String renders the cost as "{NUMBER CURRENCY[, DATE][, "LABEL"]}".
func (c *Cost) String() string {
	parts := []string{FormatDecimal(c.Number) + " " + c.Currency}
	if !c.Date.IsZero() {
		parts = append(parts, c.Date.String())
	}
	if c.Label != "" {
		parts = append(parts, `"`+c.Label+`"`)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// AST converts the cost into its syntax tree form.
func (c *Cost) AST() *ast.Cost {
	if c == nil {
		return nil
	}
	out := &ast.Cost{
		Amount: &ast.Amount{Value: FormatDecimal(c.Number), Currency: c.Currency},
		Label:  c.Label,
	}
	if !c.Date.IsZero() {
		d := *c.Date
		out.Date = &d
	}
	return out
}

// Position is an amount of units optionally held at cost.
type Position struct {
	Units Amount
	Cost  *Cost
}

// String renders the position as "UNITS [COST]".
func (p *Position) String() string {
	if p.Cost == nil {
		return p.Units.String()
	}
	return p.Units.String() + " " + p.Cost.String()
}

// Inventory is a list of positions, at most one per (currency, cost) pair.
// Positions that reach zero are removed.
type Inventory struct {
	positions []*Position
}

// NewInventory creates a new inventory
func NewInventory() *Inventory {
	return &Inventory{}
}

// AddAmount adds units held at cost (nil for none) and returns the position
// as it was before the addition, or nil if a new position was created.
func (inv *Inventory) AddAmount(units Amount, cost *Cost) *Position {
	for i, pos := range inv.Positions() {
		if pos.Units.Currency != units.Currency || !pos.Cost.Equal(cost) {
			continue
		}
		before := &Position{Units: pos.Units, Cost: pos.Cost}
		number := pos.Units.Number.Add(units.Number)
		if number.IsZero() {
			inv.positions = append(inv.positions[:i], inv.positions[i+1:]...)
		} else {
			inv.positions[i] = &Position{Units: Amount{Number: number, Currency: units.Currency}, Cost: pos.Cost}
		}
		return before
	}
	if !units.Number.IsZero() {
		inv.positions = append(inv.positions, &Position{Units: units, Cost: cost})
	}
	return nil
}

// AddPosition adds a position.
func (inv *Inventory) AddPosition(pos *Position) {
	inv.AddAmount(pos.Units, pos.Cost)
}

// AddInventory adds all positions of other.
func (inv *Inventory) AddInventory(other *Inventory) {
	if other == nil {
		return
	}
	for _, pos := range other.positions {
		inv.AddPosition(pos)
	}
}

// Neg returns a new inventory with all units negated.
func (inv *Inventory) Neg() *Inventory {
	out := &Inventory{positions: make([]*Position, inv.Len())}
	for i, pos := range inv.Positions() {
		out.positions[i] = &Position{Units: pos.Units.Neg(), Cost: pos.Cost}
	}
	return out
}

// Copy returns a copy of the inventory. Positions are immutable and shared.
func (inv *Inventory) Copy() *Inventory {
	if inv == nil {
		return NewInventory()
	}
	return &Inventory{positions: append([]*Position(nil), inv.positions...)}
}

// Positions returns the positions in insertion order.
func (inv *Inventory) Positions() []*Position {
	if inv == nil {
		return nil
	}
	return inv.positions
}

// Len returns the number of positions.
func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	return len(inv.positions)
}

// IsEmpty returns true if the inventory holds no positions.
func (inv *Inventory) IsEmpty() bool {
	return inv == nil || len(inv.positions) == 0
}

// IsSmall returns true if every position is within the tolerance for its currency.
func (inv *Inventory) IsSmall(tolerances Tolerances) bool {
	for _, pos := range inv.Positions() {
		if pos.Units.Number.Abs().GreaterThan(tolerances.Get(pos.Units.Currency)) {
			return false
		}
	}
	return true
}

// Currencies returns the sorted unit currencies.
func (inv *Inventory) Currencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, pos := range inv.Positions() {
		if !seen[pos.Units.Currency] {
			seen[pos.Units.Currency] = true
			out = append(out, pos.Units.Currency)
		}
	}
	sort.Strings(out)
	return out
}

// Units returns the total of currency across all lots.
func (inv *Inventory) Units(currency string) Amount {
	total := decimal.Zero
	for _, pos := range inv.Positions() {
		if pos.Units.Currency == currency {
			total = total.Add(pos.Units.Number)
		}
	}
	return Amount{Number: total, Currency: currency}
}

// UnitsAtCost splits the total of currency into the part held at cost and the
// part held without cost.
func (inv *Inventory) UnitsAtCost(currency string) (atCost, noCost Amount) {
	atCost = Amount{Number: decimal.Zero, Currency: currency}
	noCost = Amount{Number: decimal.Zero, Currency: currency}
	for _, pos := range inv.Positions() {
		if pos.Units.Currency != currency {
			continue
		}
		if pos.Cost != nil {
			atCost.Number = atCost.Number.Add(pos.Units.Number)
		} else {
			noCost.Number = noCost.Number.Add(pos.Units.Number)
		}
	}
	return atCost, noCost
}

// OnlyPosition returns the single position of the inventory.
func (inv *Inventory) OnlyPosition() (*Position, bool) {
	if inv.Len() != 1 {
		return nil, false
	}
	return inv.positions[0], true
}

// Lots returns the positions of currency held at cost.
func (inv *Inventory) Lots(currency string) []*Position {
	var out []*Position
	for _, pos := range inv.Positions() {
		if pos.Units.Currency == currency && pos.Cost != nil {
			out = append(out, pos)
		}
	}
	return out
}

// Filter returns the positions for which keep returns true.
func (inv *Inventory) Filter(keep func(*Position) bool) *Inventory {
	out := NewInventory()
	for _, pos := range inv.Positions() {
		if keep(pos) {
			out.positions = append(out.positions, pos)
		}
	}
	return out
}

// Sorted returns a copy with positions ordered by currency, then cost-less
// positions first.
func (inv *Inventory) Sorted() *Inventory {
	out := inv.Copy()
	sort.SliceStable(out.positions, func(i, j int) bool {
		a, b := out.positions[i], out.positions[j]
		if a.Units.Currency != b.Units.Currency {
			return a.Units.Currency < b.Units.Currency
		}
		return a.Cost == nil && b.Cost != nil
	})
	return out
}

// Equal reports whether both inventories hold the same positions, in any
// order. Numbers are compared by value, so 1.0 equals 1.00.
func (inv *Inventory) Equal(other *Inventory) bool {
	if inv.Len() != other.Len() {
		return false
	}
	for _, pos := range inv.Positions() {
		found := false
		for _, o := range other.Positions() {
			if pos.Units.Currency == o.Units.Currency && pos.Units.Number.Equal(o.Units.Number) && pos.Cost.Equal(o.Cost) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// String renders the inventory as "(POS, POS)".
func (inv *Inventory) String() string {
	parts := make([]string, inv.Len())
	for i, pos := range inv.Positions() {
		parts[i] = pos.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ParseInventory reads comma separated positions such as
// "10 HOOL {100 USD, 2020-01-01}, 5.00 EUR". The empty string is an empty
// inventory.
func ParseInventory(s string) (*Inventory, error) {
	inv := NewInventory()
	for _, part := range splitPositions(s) {
		pos, err := ParsePosition(part)
		if err != nil {
			return nil, err
		}
		inv.AddPosition(pos)
	}
	return inv, nil
}

// MustParseInventory is ParseInventory that panics on malformed input.
func MustParseInventory(s string) *Inventory {
	inv, err := ParseInventory(s)
	if err != nil {
		panic(err)
	}
	return inv
}

func splitPositions(s string) []string {
	var parts []string
	depth, start := 0, 0
	flush := func(end int) {
		if part := strings.TrimSpace(s[start:end]); part != "" {
			parts = append(parts, part)
		}
	}
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return parts
}

// ParsePosition reads a single position written as "NUMBER CURRENCY" with an
// optional "{NUMBER CURRENCY[, DATE][, "LABEL"]}" cost.
func ParsePosition(s string) (*Position, error) {
	unitsPart, costPart, hasCost := strings.Cut(strings.TrimSpace(s), "{")
	units, err := parseAmountString(unitsPart)
	if err != nil {
		return nil, fmt.Errorf("invalid position %q: %w", s, err)
	}
	pos := &Position{Units: units}
	if !hasCost {
		return pos, nil
	}

	costPart = strings.TrimSpace(costPart)
	if !strings.HasSuffix(costPart, "}") {
		return nil, fmt.Errorf("invalid position %q: unterminated cost", s)
	}
	cost := &Cost{}
	for i, field := range strings.Split(strings.TrimSuffix(costPart, "}"), ",") {
		field = strings.TrimSpace(field)
		switch {
		case i == 0:
			amount, err := parseAmountString(field)
			if err != nil {
				return nil, fmt.Errorf("invalid cost in %q: %w", s, err)
			}
			cost.Number, cost.Currency = amount.Number, amount.Currency
		case strings.HasPrefix(field, `"`):
			cost.Label = strings.Trim(field, `"`)
		default:
			date, err := ast.NewDate(field)
			if err != nil {
				return nil, fmt.Errorf("invalid cost in %q: %w", s, err)
			}
			cost.Date = date
		}
	}
	pos.Cost = cost
	return pos, nil
}

func parseAmountString(s string) (Amount, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Amount{}, fmt.Errorf("expected NUMBER CURRENCY, got %q", strings.TrimSpace(s))
	}
	number, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Amount{}, err
	}
	return Amount{Number: number, Currency: fields[1]}, nil
}
