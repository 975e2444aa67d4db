package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Booking methods accepted by the booking_method option and open directives.
const (
	BookingStrict = "STRICT"
	BookingFIFO   = "FIFO"
	BookingLIFO   = "LIFO"
	BookingNone   = "NONE"
)

func isBookingMethod(method string) bool {
	switch method {
	case BookingStrict, BookingFIFO, BookingLIFO, BookingNone:
		return true
	}
	return false
}

// booker books transactions against a read-only view of the account
// inventories. Every touched inventory is copied first, so the result can be
// applied or thrown away.
type booker struct {
	accounts map[ast.Account]*Account
	options  *Options

	txn         *ast.Transaction
	inventories map[ast.Account]*Inventory
	weights     []Amount
}

func newBooker(accounts map[ast.Account]*Account, options *Options) *booker {
	return &booker{accounts: accounts, options: options}
}

func (b *booker) inventory(account ast.Account) *Inventory {
	if inv, ok := b.inventories[account]; ok {
		return inv
	}
	var inv *Inventory
	if acc, ok := b.accounts[account]; ok {
		inv = acc.Inventory.Copy()
	} else {
		inv = NewInventory()
	}
	b.inventories[account] = inv
	return inv
}

func (b *booker) method(account ast.Account) string {
	if acc, ok := b.accounts[account]; ok && acc.BookingMethod != "" {
		return acc.BookingMethod
	}
	return b.options.BookingMethod
}

// book interpolates the missing amount of txn, fills in costs and matches
// reductions against existing lots. The returned delta holds the booked
// transaction and the resulting inventories. A delta is returned alongside a
// TransactionNotBalancedError, since such a transaction is still applied.
func (b *booker) book(txn *ast.Transaction) (*TransactionDelta, error) {
	b.txn = txn
	b.inventories = make(map[ast.Account]*Inventory)
	b.weights = b.weights[:0]

	booked := txn.CloneTransaction()
	booked.Postings = make([]*ast.Posting, 0, len(txn.Postings))

	elided := -1
	var auto *ast.Posting
	for _, posting := range txn.Postings {
		if posting.Amount == nil {
			if auto != nil {
				return nil, &BookingError{Account: posting.Account, Reason: "Too many missing numbers", Directive: txn}
			}
			auto = posting
			elided = len(booked.Postings)
			continue
		}

		postings, err := b.bookPosting(posting)
		if err != nil {
			return nil, err
		}
		booked.Postings = append(booked.Postings, postings...)
	}

	residual := NewInventory()
	for _, w := range b.weights {
		residual.AddAmount(w, nil)
	}

	if auto != nil {
		var inferred []*ast.Posting
		for _, pos := range residual.Sorted().Positions() {
			units := pos.Units.Neg()
			p := auto.Clone()
			p.Amount = units.AST()
			p.Inferred = true
			b.inventory(p.Account).AddAmount(units, nil)
			inferred = append(inferred, p)
		}
		booked.Postings = append(booked.Postings[:elided], append(inferred, booked.Postings[elided:]...)...)
		residual = NewInventory()
	}

	delta := &TransactionDelta{
		Transaction: booked,
		Inventories: b.inventories,
		Residual:    residual,
	}

	tolerances := InferTolerances(booked.Postings, b.options.Tolerance)
	if !residual.IsSmall(tolerances) {
		return delta, &TransactionNotBalancedError{Residual: residual, Transaction: booked}
	}
	return delta, nil
}

func (b *booker) bookPosting(posting *ast.Posting) ([]*ast.Posting, error) {
	units, err := AmountFromAST(posting.Amount)
	if err != nil {
		return nil, &InvalidAmountError{Account: posting.Account, Err: err, Directive: b.txn}
	}
	if posting.Price != nil {
		if _, err := ParseAmount(posting.Price); err != nil {
			return nil, &InvalidAmountError{Account: posting.Account, Err: fmt.Errorf("invalid price: %w", err), Directive: b.txn}
		}
	}

	inv := b.inventory(posting.Account)

	if posting.Cost == nil {
		weight, err := Weight(posting)
		if err != nil {
			return nil, &InvalidAmountError{Account: posting.Account, Err: err, Directive: b.txn}
		}
		inv.AddAmount(units, nil)
		b.weights = append(b.weights, weight)
		return []*ast.Posting{posting.Clone()}, nil
	}

	if posting.Cost.IsMergeCost() {
		return nil, &BookingError{Account: posting.Account, Reason: "Merge cost {*} is not supported", Directive: b.txn}
	}

	method := b.method(posting.Account)
	if method != BookingNone && isReduction(inv, units) {
		return b.reduce(posting, units, inv, method)
	}
	return b.augment(posting, units, inv)
}

// isReduction reports whether units reduce lots held at cost.
func isReduction(inv *Inventory, units Amount) bool {
	for _, lot := range inv.Lots(units.Currency) {
		if lot.Units.Number.Sign() != units.Number.Sign() {
			return true
		}
	}
	return false
}

func (b *booker) augment(posting *ast.Posting, units Amount, inv *Inventory) ([]*ast.Posting, error) {
	if posting.Cost.Amount == nil {
		return nil, &BookingError{Account: posting.Account, Reason: "Missing cost number for augmentation", Directive: b.txn}
	}
	number, err := ParseAmount(posting.Cost.Amount)
	if err != nil {
		return nil, &InvalidAmountError{Account: posting.Account, Err: fmt.Errorf("invalid cost: %w", err), Directive: b.txn}
	}
	if posting.Cost.IsTotal {
		if units.Number.IsZero() {
			return nil, &InvalidAmountError{Account: posting.Account, Err: fmt.Errorf("total cost requires a non-zero quantity"), Directive: b.txn}
		}
		number = Divide(number, units.Number.Abs())
	}

	cost := &Cost{Number: number, Currency: posting.Cost.Amount.Currency, Date: posting.Cost.Date, Label: posting.Cost.Label}
	if cost.Date.IsZero() {
		d := *b.txn.Date
		cost.Date = &d
	}

	weight, err := Weight(posting)
	if err != nil {
		return nil, &InvalidAmountError{Account: posting.Account, Err: err, Directive: b.txn}
	}
	inv.AddAmount(units, cost)
	b.weights = append(b.weights, weight)

	p := posting.Clone()
	p.Cost = cost.AST()
	return []*ast.Posting{p}, nil
}

func (b *booker) reduce(posting *ast.Posting, units Amount, inv *Inventory, method string) ([]*ast.Posting, error) {
	matches, err := matchLots(inv, units, posting.Cost)
	if err != nil {
		return nil, &InvalidAmountError{Account: posting.Account, Err: err, Directive: b.txn}
	}
	if len(matches) == 0 {
		return nil, &BookingError{Account: posting.Account, Reason: fmt.Sprintf("No position matches %s %s", units, costSpecString(posting.Cost)), Directive: b.txn}
	}

	wanted := units.Number.Abs()
	switch method {
	case BookingStrict:
		if len(matches) > 1 {
			total := decimal.Zero
			for _, m := range matches {
				total = total.Add(m.Units.Number.Abs())
			}
			if !total.Equal(wanted) {
				return nil, &BookingError{Account: posting.Account, Reason: fmt.Sprintf("Ambiguous matches for %s %s", units, costSpecString(posting.Cost)), Directive: b.txn}
			}
		}
	case BookingFIFO, BookingLIFO:
		sort.SliceStable(matches, func(i, j int) bool {
			if method == BookingLIFO {
				return matches[j].Cost.Date.Before(matches[i].Cost.Date)
			}
			return matches[i].Cost.Date.Before(matches[j].Cost.Date)
		})
	}

	var out []*ast.Posting
	for _, lot := range matches {
		if wanted.IsZero() {
			break
		}
		take := decimal.Min(wanted, lot.Units.Number.Abs())
		wanted = wanted.Sub(take)

		reduced := Amount{Number: take, Currency: units.Currency}
		if units.Number.IsNegative() {
			reduced = reduced.Neg()
		}
		inv.AddAmount(reduced, lot.Cost)
		b.weights = append(b.weights, Amount{Number: reduced.Number.Mul(lot.Cost.Number), Currency: lot.Cost.Currency})

		p := posting.Clone()
		p.Amount = reduced.AST()
		if len(matches) == 1 {
			p.Amount = posting.Amount
		}
		p.Cost = lot.Cost.AST()
		out = append(out, p)
	}

	if wanted.IsPositive() {
		return nil, &BookingError{Account: posting.Account, Reason: fmt.Sprintf("Not enough lots to reduce %s", units), Directive: b.txn}
	}
	return out, nil
}

// matchLots returns the lots of units' currency with the opposite sign that
// agree with every field the cost spec sets.
func matchLots(inv *Inventory, units Amount, spec *ast.Cost) ([]*Position, error) {
	var number *decimal.Decimal
	if spec.Amount != nil {
		n, err := ParseAmount(spec.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid cost: %w", err)
		}
		if spec.IsTotal && !units.Number.IsZero() {
			n = Divide(n, units.Number.Abs())
		}
		number = &n
	}

	var out []*Position
	for _, lot := range inv.Lots(units.Currency) {
		if lot.Units.Number.Sign() == units.Number.Sign() {
			continue
		}
		if number != nil && (!lot.Cost.Number.Equal(*number) || lot.Cost.Currency != spec.Amount.Currency) {
			continue
		}
		if !spec.Date.IsZero() && (lot.Cost.Date.IsZero() || !lot.Cost.Date.Equal(spec.Date)) {
			continue
		}
		if spec.Label != "" && lot.Cost.Label != spec.Label {
			continue
		}
		out = append(out, lot)
	}
	return out, nil
}

func costSpecString(c *ast.Cost) string {
	parts := "{"
	if c.Amount != nil {
		parts += c.Amount.String()
	}
	if !c.Date.IsZero() {
		if len(parts) > 1 {
			parts += ", "
		}
		parts += c.Date.String()
	}
	if c.Label != "" {
		if len(parts) > 1 {
			parts += ", "
		}
		parts += `"` + c.Label + `"`
	}
	return parts + "}"
}
