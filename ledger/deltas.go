package ledger

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Validators return deltas instead of mutating the ledger. A delta is the
// complete set of changes a directive causes, and the ledger applies it only
// after validation passed.

// TransactionDelta is the result of booking a transaction.
type TransactionDelta struct {
	// Transaction is the booked copy: interpolated amounts, per-unit costs
	// with dates, and one posting per matched lot.
	Transaction *ast.Transaction
	// Inventories holds the new inventory of every touched account.
	Inventories map[ast.Account]*Inventory
	// Residual is what remains after summing all posting weights.
	Residual *Inventory
}

// Accounts returns the touched accounts in sorted order.
func (td *TransactionDelta) Accounts() []ast.Account {
	accounts := maps.Keys(td.Inventories)
	slices.Sort(accounts)
	return accounts
}

// String returns a human-readable representation of the transaction delta
func (td *TransactionDelta) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction on %s:\n", td.Transaction.Date)
	for _, account := range td.Accounts() {
		fmt.Fprintf(&sb, "  %s -> %s\n", account, td.Inventories[account])
	}
	if !td.Residual.IsEmpty() {
		fmt.Fprintf(&sb, "  residual %s\n", td.Residual)
	}
	return sb.String()
}

// PadDelta is the padding a balance assertion requires.
type PadDelta struct {
	Pad         *ast.Pad
	Units       Amount
	Transaction *ast.Transaction
}

// BalanceDelta is the outcome of a balance assertion.
type BalanceDelta struct {
	Balance  *ast.Balance
	Expected Amount
	Actual   Amount
	Padding  *PadDelta
	Mismatch bool
}
