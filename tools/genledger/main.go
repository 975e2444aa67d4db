// Command genledger writes a random, valid multi-currency ledger for
// profiling the loader and the converter. The same seed always yields the
// same ledger.
//
// Usage:
//
//	go run ./tools/genledger > large.beancount
//	go run ./tools/genledger --size 20MB --seed 7 > large.beancount
package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/formatter"
)

const operatingCurrency = "USD"

var (
	expenses = []ast.Account{
		"Expenses:Food:Groceries",
		"Expenses:Food:Restaurant",
		"Expenses:Housing:Rent",
		"Expenses:Housing:Utilities",
		"Expenses:Transport:Gas",
		"Expenses:Shopping:Electronics",
		"Expenses:Entertainment:Concerts",
		"Expenses:Healthcare:Medical",
	}

	payees = []string{
		"Whole Foods", "Safeway", "Trader Joe's", "Costco",
		"Shell Gas", "Landlord", "PG&E", "Amazon", "Best Buy",
	}

	// Initial rates in USD.
	currencies = map[string]string{"EUR": "1.1000", "GBP": "1.2500", "CAD": "0.7500"}
	stocks     = map[string]string{"AAPL": "150.0000", "MSFT": "250.0000", "VTI": "200.0000"}
)

const (
	checking   ast.Account = "Assets:Bank:Checking"
	savings    ast.Account = "Assets:Bank:Savings"
	creditCard ast.Account = "Liabilities:CreditCard:Visa"
	salary     ast.Account = "Income:Salary"
	commission ast.Account = "Expenses:Commissions"
	opening    ast.Account = "Equity:Opening-Balances"
)

// Stats describes a generated ledger.
type Stats struct {
	Bytes        int
	Transactions int
	Prices       int
	Balances     int
}

type generator struct {
	rng   *rand.Rand
	w     *bufio.Writer
	date  time.Time
	rates map[string]decimal.Decimal
	// balances tracks the units of every account for balance assertions.
	balances map[ast.Account]map[string]decimal.Decimal
	stats    Stats
}

// Generate writes a ledger of at least size bytes starting at start.
func Generate(w io.Writer, size int, seed uint64, start time.Time) (Stats, error) {
	g := &generator{
		rng:      rand.New(rand.NewPCG(seed, seed)),
		w:        bufio.NewWriter(w),
		date:     start,
		rates:    map[string]decimal.Decimal{},
		balances: map[ast.Account]map[string]decimal.Decimal{},
	}
	for _, m := range []map[string]string{currencies, stocks} {
		for commodity, rate := range m {
			g.rates[commodity] = decimal.RequireFromString(rate)
		}
	}

	g.header()
	for g.stats.Bytes < size {
		for i := g.rng.IntN(3) + 1; i > 0; i-- {
			switch g.rng.IntN(10) {
			case 0, 1, 2:
				g.expense()
			case 3:
				g.income()
			case 4, 5:
				g.exchange()
			case 6:
				g.foreignExpense()
			case 7:
				g.investment()
			default:
				g.prices()
			}
		}
		if g.rng.IntN(4) == 0 {
			g.balance()
		}
		g.date = g.date.AddDate(0, 0, g.rng.IntN(3)+1)
	}

	return g.stats, g.w.Flush()
}

func (g *generator) today() *ast.Date { return ast.NewDateFromTime(g.date) }

func (g *generator) write(d ast.Directive) {
	n, _ := g.w.WriteString(formatter.FormatDirective(d) + "\n")
	g.stats.Bytes += n
}

func (g *generator) transaction(txn *ast.Transaction) {
	for _, posting := range txn.Postings {
		if g.balances[posting.Account] == nil {
			g.balances[posting.Account] = map[string]decimal.Decimal{}
		}
		units := decimal.RequireFromString(posting.Amount.Value)
		g.balances[posting.Account][posting.Amount.Currency] = g.balances[posting.Account][posting.Amount.Currency].Add(units)
	}
	g.write(txn)
	g.stats.Transactions++
}

func (g *generator) header() {
	var buf []byte
	buf = fmt.Appendf(buf, "option \"title\" \"Generated multi-currency ledger\"\n")
	buf = fmt.Appendf(buf, "option \"operating_currency\" \"%s\"\n\n", operatingCurrency)
	n, _ := g.w.Write(buf)
	g.stats.Bytes += n

	accounts := []ast.Account{checking, savings, creditCard, salary, commission, opening}
	accounts = append(accounts, expenses...)
	for _, stock := range sorted(stocks) {
		accounts = append(accounts, ast.Account("Assets:Brokerage:"+stock))
	}
	for _, account := range accounts {
		g.write(ast.NewOpen(g.today(), account, nil, ""))
	}
	g.prices()

	g.transaction(ast.NewTransaction(g.today(), "Opening balance", ast.WithPostings(
		ast.NewPosting(checking, ast.WithAmount("25000.00", operatingCurrency)),
		ast.NewPosting(opening, ast.WithAmount("-25000.00", operatingCurrency)),
	)))
}

func (g *generator) amount(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(min + g.rng.Float64()*(max-min)).Round(2)
}

func (g *generator) pick(items []string) string { return items[g.rng.IntN(len(items))] }

func (g *generator) expense() {
	amount := g.amount(10, 300)
	from := checking
	if g.rng.IntN(2) == 0 {
		from = creditCard
	}
	g.transaction(ast.NewTransaction(g.today(), "Purchase",
		ast.WithPayee(g.pick(payees)),
		ast.WithPostings(
			ast.NewPosting(expenses[g.rng.IntN(len(expenses))], ast.WithAmount(amount.StringFixed(2), operatingCurrency)),
			ast.NewPosting(from, ast.WithAmount(amount.Neg().StringFixed(2), operatingCurrency)),
		)))
}

func (g *generator) income() {
	amount := g.amount(2000, 4000)
	g.transaction(ast.NewTransaction(g.today(), "Salary",
		ast.WithPayee("Employer Inc"),
		ast.WithPostings(
			ast.NewPosting(checking, ast.WithAmount(amount.StringFixed(2), operatingCurrency)),
			ast.NewPosting(salary, ast.WithAmount(amount.Neg().StringFixed(2), operatingCurrency)),
		)))
}

// exchange moves dollars into a foreign currency at today's rate.
func (g *generator) exchange() {
	currency := g.pick(sorted(currencies))
	amount := g.amount(100, 1000)
	received := amount.Div(g.rates[currency]).Round(2)
	g.transaction(ast.NewTransaction(g.today(), "Currency exchange", ast.WithPostings(
		ast.NewPosting(checking,
			ast.WithAmount(amount.Neg().StringFixed(2), operatingCurrency),
			ast.WithTotalPrice(ast.NewAmount(received.StringFixed(2), currency))),
		ast.NewPosting(savings, ast.WithAmount(received.StringFixed(2), currency)),
	)))
}

func (g *generator) foreignExpense() {
	currency := g.pick(sorted(currencies))
	amount := g.amount(5, 150)
	g.transaction(ast.NewTransaction(g.today(), "Purchase abroad",
		ast.WithTags("travel"),
		ast.WithPostings(
			ast.NewPosting("Expenses:Food:Restaurant", ast.WithAmount(amount.StringFixed(2), currency)),
			ast.NewPosting(savings, ast.WithAmount(amount.Neg().StringFixed(2), currency)),
		)))
}

func (g *generator) investment() {
	stock := g.pick(sorted(stocks))
	shares := decimal.NewFromInt(int64(g.rng.IntN(20) + 1))
	price := g.rates[stock].Round(2)
	fee := decimal.RequireFromString("9.99")
	total := shares.Mul(price).Add(fee)

	g.transaction(ast.NewTransaction(g.today(), "Buy "+stock,
		ast.WithTransactionMetadata(ast.NewMetadata("broker", "Vanguard")),
		ast.WithPostings(
			ast.NewPosting(ast.Account("Assets:Brokerage:"+stock),
				ast.WithAmount(shares.String(), stock),
				ast.WithCost(ast.NewCost(ast.NewAmount(price.StringFixed(2), operatingCurrency)))),
			ast.NewPosting(commission, ast.WithAmount(fee.StringFixed(2), operatingCurrency)),
			ast.NewPosting(checking, ast.WithAmount(total.Neg().StringFixed(2), operatingCurrency)),
		)))
}

// prices moves every rate by up to one percent and records it.
func (g *generator) prices() {
	for _, commodity := range sorted(g.rates) {
		if g.stats.Prices > 0 {
			change := decimal.NewFromFloat((g.rng.Float64() - 0.5) / 50)
			g.rates[commodity] = g.rates[commodity].Mul(decimal.NewFromInt(1).Add(change)).Round(4)
		}
		g.write(ast.NewPrice(g.today(), commodity, ast.NewAmount(g.rates[commodity].StringFixed(4), operatingCurrency)))
		g.stats.Prices++
	}
}

// balance asserts the balance of a cash account at the start of tomorrow.
func (g *generator) balance() {
	account := []ast.Account{checking, savings, creditCard}[g.rng.IntN(3)]
	held := g.balances[account]
	if len(held) == 0 {
		return
	}
	currency := g.pick(sorted(held))
	tomorrow := ast.NewDateFromTime(g.date.AddDate(0, 0, 1))
	g.write(ast.NewBalance(tomorrow, account, ast.NewAmount(held[currency].StringFixed(2), currency)))
	g.stats.Balances++
}

func sorted[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

var cli struct {
	Size  string `help:"Approximate size of the ledger." default:"10MB"`
	Seed  uint64 `help:"Seed of the random generator." default:"1"`
	Start string `help:"Date of the first entry (YYYY-MM-DD)." default:"2020-01-01"`
}

func main() {
	ctx := kong.Parse(&cli, kong.Description("Generate a random multi-currency ledger."))

	size, err := humanize.ParseBytes(cli.Size)
	ctx.FatalIfErrorf(err)
	start, err := time.Parse("2006-01-02", cli.Start)
	ctx.FatalIfErrorf(err)

	stats, err := Generate(os.Stdout, int(size), cli.Seed, start)
	ctx.FatalIfErrorf(err)

	fmt.Fprintf(os.Stderr, "Generated %s with %s transactions, %s prices and %s balance assertions\n",
		humanize.Bytes(uint64(stats.Bytes)), humanize.Comma(int64(stats.Transactions)),
		humanize.Comma(int64(stats.Prices)), humanize.Comma(int64(stats.Balances)))
}
