package ledger

import (
	"github.com/robinvdvleuten/beancount-scc/ast"
)

// AutoOpenFilename is the filename recorded on inserted open directives.
const AutoOpenFilename = "<auto_insert_open>"

// AutoInsertOpen returns directives with an open directive added for every
// account that is referenced without one. The open is dated at the first use
// of the account. The input slice is not modified. Inserted directives are
// appended after the existing ones; callers sort afterwards.
func AutoInsertOpen(directives ast.Directives) ast.Directives {
	opened := make(map[ast.Account]bool)
	firstUse := make(map[ast.Account]*ast.Date)
	var order []ast.Account

	use := func(account ast.Account, date *ast.Date) {
		if first, ok := firstUse[account]; ok {
			if date.Before(first) {
				firstUse[account] = date
			}
			return
		}
		firstUse[account] = date
		order = append(order, account)
	}

	for _, directive := range directives {
		date := directive.GetDate()
		switch d := directive.(type) {
		case *ast.Open:
			opened[d.Account] = true
		case *ast.Transaction:
			for _, posting := range d.Postings {
				use(posting.Account, date)
			}
		case *ast.Balance:
			use(d.Account, date)
		case *ast.Pad:
			use(d.Account, date)
			use(d.AccountPad, date)
		case *ast.Note:
			use(d.Account, date)
		case *ast.Document:
			use(d.Account, date)
		case *ast.Close:
			use(d.Account, date)
		}
	}

	out := append(ast.Directives(nil), directives...)
	for _, account := range order {
		if opened[account] {
			continue
		}
		out = append(out, &ast.Open{
			Pos:     ast.Position{Filename: AutoOpenFilename},
			Date:    firstUse[account],
			Account: account,
		})
	}
	return out
}
