package plugin

import (
	"context"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

// AutoAccounts is the name of the plugin that opens accounts on first use.
const AutoAccounts = "beancount.plugins.auto_accounts"

func init() {
	Register(&Plugin{
		Name:  AutoAccounts,
		Stage: Raw,
		Run: func(_ context.Context, directives ast.Directives, _ *ledger.Options, _ string) (ast.Directives, []error) {
			return ledger.AutoInsertOpen(directives), nil
		},
	})
}
