package convert

import (
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Metadata keys written on converted and synthesized postings.
const (
	MetaMessage = "scc_msg"
	MetaAtCost  = "scc_at_cost"
	MetaCause   = "scc_unreal_g_cause"
	MetaAccount = "scc_bal_s_acc"
)

// Values of the MetaAtCost and MetaCause keys.
const (
	AtCost      = "at_cost"
	NoCost      = "no_cost"
	PriceChange = "price_change"
	PriceDiff   = "price_diff"
)

// Constants holds the names and thresholds used by a conversion.
type Constants struct {
	// Tolerance is the default tolerance used by the self-test.
	Tolerance decimal.Decimal
	// CorrectionThreshold is the largest residual a correction posting may
	// absorb. Larger residuals are internal errors.
	CorrectionThreshold decimal.Decimal

	// GainsAccount is the root of the unrealized gains accounts.
	GainsAccount ast.Account
	// PriceDiffAccount receives the difference between the weight of a
	// posting and its value at the price map rate.
	PriceDiffAccount ast.Account
	// OpeningAccount balances the opening transaction.
	OpeningAccount ast.Account

	SyntheticMessage  string
	OpeningNarration  string
	CorrectionMessage string
}

// DefaultConstants returns the constants of a default conversion.
func DefaultConstants() Constants {
	return Constants{
		Tolerance:           decimal.RequireFromString("0.009"),
		CorrectionThreshold: decimal.RequireFromString("0.0001"),
		GainsAccount:        "Income:Unrealized-Gains",
		PriceDiffAccount:    "Income:Unrealized-Gains",
		OpeningAccount:      "Equity:OpeningBalances",
		SyntheticMessage:    "Created by the Single Currency Converter",
		OpeningNarration:    "Opening balance single currency transaction, equivalent to the Balance Sheet status on that date",
		CorrectionMessage:   "Balance error correction posting",
	}
}

// sortOrder ranks directives of the same day in the converted ledger. Prices
// come before the transactions they affect.
var sortOrder = map[ast.DirectiveKind]int{
	ast.KindOpen:        -20,
	ast.KindBalance:     -10,
	ast.KindPrice:       -5,
	ast.KindTransaction: -1,
	ast.KindDocument:    10,
	ast.KindClose:       20,
}
