package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
	"github.com/robinvdvleuten/beancount-scc/parser"
)

func TestRegistryRun(t *testing.T) {
	var seen []string
	r := NewRegistry()
	r.Register(&Plugin{
		Name: "tagger",
		Run: func(_ context.Context, directives ast.Directives, _ *ledger.Options, config string) (ast.Directives, []error) {
			seen = append(seen, config)
			return append(directives, ast.NewNote(ast.MustDate("2024-01-01"), "Assets:Cash", config)), nil
		},
	})
	r.Register(&Plugin{
		Name: "broken",
		Run: func(_ context.Context, _ ast.Directives, _ *ledger.Options, _ string) (ast.Directives, []error) {
			return nil, []error{errors.New("boom")}
		},
	})

	plugins := []*ast.Plugin{
		{Name: "tagger", Config: "first"},
		{Name: "broken"},
		{Name: "missing", Pos: ast.Position{Filename: "main.beancount", Line: 3}},
		{Name: "tagger", Config: "second"},
	}

	out, errs := r.Run(context.Background(), Booked, plugins, nil, ledger.NewOptions())
	assert.Equal(t, []string{"first", "second"}, seen)
	assert.Equal(t, 2, len(out))
	assert.Equal(t, 2, len(errs))
	assert.Equal(t, `plugin "broken": boom`, errs[0].Error())
	assert.Equal(t, `main.beancount:3: plugin "missing": plugin not found`, errs[1].Error())
	assert.Equal(t, []string{"broken", "tagger"}, r.Names())
}

func TestRegistryStages(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register(&Plugin{
		Name:  "raw",
		Stage: Raw,
		Run: func(_ context.Context, directives ast.Directives, _ *ledger.Options, _ string) (ast.Directives, []error) {
			calls++
			return directives, nil
		},
	})

	plugins := []*ast.Plugin{{Name: "raw"}, {Name: "unknown"}}

	_, errs := r.Run(context.Background(), Raw, plugins, nil, ledger.NewOptions())
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 1, calls)

	_, errs = r.Run(context.Background(), Booked, plugins, nil, ledger.NewOptions())
	assert.Equal(t, 1, len(errs))
	assert.Equal(t, 1, calls)
}

func TestAutoAccounts(t *testing.T) {
	tree, err := parser.ParseString(context.Background(), `
2024-01-01 open Assets:Cash

2024-01-02 * "Lunch"
  Expenses:Food  12.50 EUR
  Assets:Cash

2024-01-01 balance Liabilities:Card 0 EUR
`)
	assert.NoError(t, err)

	out, errs := Default.Run(context.Background(), Raw, []*ast.Plugin{{Name: AutoAccounts}}, tree.Directives, ledger.NewOptions())
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 5, len(out))

	opened := map[ast.Account]string{}
	for _, d := range out {
		if open, ok := d.(*ast.Open); ok {
			opened[open.Account] = open.Date.String()
		}
	}
	assert.Equal(t, map[ast.Account]string{
		"Assets:Cash":      "2024-01-01",
		"Expenses:Food":    "2024-01-02",
		"Liabilities:Card": "2024-01-01",
	}, opened)
}
