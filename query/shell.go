package query

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
	"github.com/robinvdvleuten/beancount-scc/output"
	"github.com/robinvdvleuten/beancount-scc/summator"
)

// Prompt is shown before every command of an interactive shell.
const Prompt = "bean-scc> "

const help = `Commands:
  networth [DATE]        net worth per account at the end of DATE
  changes START END      income, expenses and equity postings within the period
  balances [REGEX]       unconverted balances of the matching accounts
  errors                 errors found in the ledger
  help                   show this help
  quit                   leave the shell
`

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

// Shell answers report commands over a loaded ledger.
type Shell struct {
	Directives ast.Directives
	Options    *ledger.Options
	Errors     []error
	// Currency values the reports.
	Currency string
	// Date is the default date of networth and balances, usually the end of
	// the converted period.
	Date *ast.Date
	// Styles colors the reports. Nil writes plain text.
	Styles *output.Styles
}

// Execute runs a single command line and writes its output to w. It
// returns true when the command ends the session.
func (s *Shell) Execute(w io.Writer, line string) (bool, error) {
	err := s.execute(w, line)
	if errors.Is(err, errQuit) {
		return true, nil
	}
	return false, err
}

func (s *Shell) execute(w io.Writer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		_, err := io.WriteString(w, help)
		return err

	case "errors":
		if len(s.Errors) == 0 {
			_, err := fmt.Fprintln(w, "no errors")
			return err
		}
		for _, e := range s.Errors {
			if _, err := fmt.Fprintln(w, e); err != nil {
				return err
			}
		}
		return nil

	case "networth":
		date := s.Date
		if len(args) > 0 {
			d, err := ast.NewDate(args[0])
			if err != nil {
				return err
			}
			date = d
		}
		if date == nil {
			return fmt.Errorf("networth needs a date")
		}
		report, err := NetWorth(s.Directives, s.Options, s.Currency, date)
		if err != nil {
			return err
		}
		return s.writeReport(w, report.CleanEmpty())

	case "changes":
		if len(args) != 2 {
			return fmt.Errorf("usage: changes START END")
		}
		start, err := ast.NewDate(args[0])
		if err != nil {
			return err
		}
		end, err := ast.NewDate(args[1])
		if err != nil {
			return err
		}
		report, err := StatementOfChange(s.Directives, s.Options, s.Currency, start, end)
		if err != nil {
			return err
		}
		return s.writeReport(w, report.CleanEmpty())

	case "balances":
		pattern := "."
		if len(args) > 0 {
			pattern = args[0]
		}
		report, err := Balances(s.Directives, pattern, s.Date)
		if err != nil {
			return err
		}
		return s.writeReport(w, report.CleanEmpty())
	}

	return fmt.Errorf("unknown command %q, type help for a list of commands", fields[0])
}

// Run reads commands line by line from r until EOF or quit. Command errors
// are written to w and do not end the session.
func (s *Shell) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(w, Prompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			_, _ = io.WriteString(w, "\n")
			return scanner.Err()
		}
		quit, err := s.Execute(w, scanner.Text())
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// RunTerminal runs the shell on a terminal in raw mode, with line editing
// and history. fd is the file descriptor of the terminal behind rw.
func (s *Shell) RunTerminal(ctx context.Context, fd int, rw io.ReadWriter) error {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() { _ = term.Restore(fd, state) }()

	t := term.NewTerminal(rw, Prompt)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := s.Execute(t, line)
		if err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// writeReport prints one line per account with the inventories aligned,
// followed by the total.
func (s *Shell) writeReport(w io.Writer, report summator.InventoryAggregator) error {
	styles := s.Styles
	if styles == nil {
		styles = output.Plain()
	}

	accounts := report.Accounts()
	width := len("Total")
	for _, account := range accounts {
		width = max(width, runewidth.StringWidth(string(account)))
	}

	var b strings.Builder
	for _, account := range accounts {
		b.WriteString(styles.Account(runewidth.FillRight(string(account), width)))
		b.WriteString("  ")
		b.WriteString(balance(styles, report[account]))
		b.WriteByte('\n')
	}
	b.WriteString(styles.Muted(strings.Repeat("-", width)))
	b.WriteByte('\n')
	b.WriteString(styles.Heading(runewidth.FillRight("Total", width)))
	b.WriteString("  ")
	b.WriteString(balance(styles, report.SumAll()))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// balance renders an inventory, in red when every position is negative.
func balance(styles *output.Styles, inv *ledger.Inventory) string {
	positions := inv.Positions()
	negative := len(positions) > 0
	for _, pos := range positions {
		if !pos.Units.Number.IsNegative() {
			negative = false
		}
	}
	return styles.Balance(inv.Sorted().String(), negative)
}
