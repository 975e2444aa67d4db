package convert

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

func TestConvertTransactionCorrection(t *testing.T) {
	tests := []struct {
		name    string
		amounts []string
		// correction is the amount of the appended posting, empty when none.
		correction string
		err        string
	}{
		{name: "Balanced", amounts: []string{"10.00", "-10.00"}},
		{name: "WithinTolerance", amounts: []string{"10.001", "-10.00"}},
		{name: "BelowThreshold", amounts: []string{"10.00005", "-10.00000"}, correction: "-0.00005"},
		{name: "AtThreshold", amounts: []string{"10.0001", "-10.0000"}, correction: "-0.0001"},
		{name: "AboveThreshold", amounts: []string{"10.00050", "-10.00000"}, err: "above the threshold (0.0001)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &run{
				currency:      "EUR",
				constants:     DefaultConstants(),
				options:       ledger.NewOptions(),
				unconvertible: make(map[string]bool),
				logger:        slog.New(slog.DiscardHandler),
			}

			postings := []*ast.Posting{
				ast.NewPosting("Assets:Bank", ast.WithAmount(tt.amounts[0], "EUR")),
				ast.NewPosting("Expenses:Food", ast.WithAmount(tt.amounts[1], "EUR")),
			}
			orig := ast.NewTransaction(ast.MustDate("2020-01-02"), "Groceries", ast.WithPostings(postings...))

			txn, err := r.convertTransaction(orig)
			if tt.err != "" {
				var internal *InternalError
				assert.True(t, errors.As(err, &internal))
				assert.Contains(t, err.Error(), tt.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 2, len(orig.Postings))

			if tt.correction == "" {
				assert.Equal(t, 2, len(txn.Postings))
				return
			}
			assert.Equal(t, 3, len(txn.Postings))
			correction := txn.Postings[2]
			assert.Equal(t, ast.Account("Income:Unrealized-Gains:EUR-EUR"), correction.Account)
			assert.Equal(t, "EUR", correction.Amount.Currency)
			assert.True(t, decimal.RequireFromString(tt.correction).Equal(decimal.RequireFromString(correction.Amount.Value)),
				"correction %s, want %s", correction.Amount.Value, tt.correction)
			msg, _ := ast.MetaString(correction.Metadata, MetaMessage)
			assert.Equal(t, DefaultConstants().CorrectionMessage, msg)
		})
	}
}
