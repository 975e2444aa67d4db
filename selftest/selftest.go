// Package selftest verifies a converted ledger against the ledger it was
// converted from.
//
// The checks are:
//
//	TEST1  the converted ledger loads without errors
//	TEST2  the net worth at the end of the day before the start date is the same
//	TEST3  the net worth at the end date is the same
//	TEST4  the statement of change of the converted ledger explains the change in net worth
//	TEST5  the statements of change differ only in the gains and price difference accounts
//	TEST6  the original directives were not modified
package selftest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/formatter"
	"github.com/robinvdvleuten/beancount-scc/ledger"
	"github.com/robinvdvleuten/beancount-scc/query"
	"github.com/robinvdvleuten/beancount-scc/summator"
)

// Input is the state before and after a conversion.
type Input struct {
	Original        ast.Directives
	OriginalOptions *ledger.Options
	// Fingerprints of the original directives taken before converting.
	// TEST6 is skipped without them.
	Fingerprints []uint64

	Converted        ast.Directives
	ConvertedOptions *ledger.Options
	// Errors found while loading the converted ledger.
	Errors []error

	Currency string
	Start    *ast.Date
	End      *ast.Date

	Tolerance        decimal.Decimal
	GainsAccount     ast.Account
	PriceDiffAccount ast.Account
}

// Check is the outcome of a single check.
type Check struct {
	Name        string
	Description string
	Passed      bool
	Skipped     bool
	// Details explains a failure, often as a unified diff.
	Details string
}

// CheckError is a failed check.
type CheckError struct {
	Name        string
	Description string
	Details     string
}

func (e *CheckError) Error() string {
	msg := fmt.Sprintf("self-test %s failed: %s", e.Name, e.Description)
	if e.Details != "" {
		msg += "\n" + e.Details
	}
	return msg
}

// Report lists the checks in the order they ran.
type Report struct {
	Checks []Check
}

// OK reports whether no check failed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.Passed && !c.Skipped {
			return false
		}
	}
	return true
}

// Err combines the failed checks, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, c := range r.Checks {
		if !c.Passed && !c.Skipped {
			err = multierr.Append(err, &CheckError{Name: c.Name, Description: c.Description, Details: c.Details})
		}
	}
	return err
}

func (r *Report) add(name, description string, details string) {
	r.Checks = append(r.Checks, Check{Name: name, Description: description, Passed: details == "", Details: details})
}

// Fingerprint hashes every directive, so that a later call can tell which
// directives changed.
func Fingerprint(directives ast.Directives) ([]uint64, error) {
	out := make([]uint64, len(directives))
	for i, d := range directives {
		h, err := hashstructure.Hash(d, hashstructure.FormatV2, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to hash directive %d: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}

// Run performs all checks. The returned error reports a failure to compute
// a report, not a failed check.
func Run(in Input) (*Report, error) {
	report := &Report{}
	tolerances := ledger.UniformTolerances(in.Tolerance)

	// TEST1
	var errs []string
	for _, err := range in.Errors {
		errs = append(errs, err.Error())
	}
	report.add("TEST1", "the converted ledger loads without errors", strings.Join(errs, "\n"))

	// TEST2
	beforeStart := in.Start.AddDays(-1)
	startOrig, startConv, err := netWorths(in, beforeStart)
	if err != nil {
		return nil, err
	}
	report.add("TEST2", fmt.Sprintf("the net worth on %s is the same in both ledgers", beforeStart),
		compare(startConv.Sub(startOrig).CleanEmpty(), tolerances, startOrig, startConv))

	// TEST3
	endOrig, endConv, err := netWorths(in, in.End)
	if err != nil {
		return nil, err
	}
	report.add("TEST3", fmt.Sprintf("the net worth on %s is the same in both ledgers", in.End),
		compare(endOrig.Sub(endConv), tolerances, endOrig, endConv))

	// TEST4
	changesConv, err := query.StatementOfChange(in.Converted, in.ConvertedOptions, in.Currency, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	changesConv = changesConv.CleanEmpty()
	netWorthChange := endOrig.Sub(startOrig).SumAll().Neg()
	total := changesConv.SumAll()
	residual := netWorthChange.Copy()
	residual.AddInventory(total.Neg())
	var details string
	if !residual.IsSmall(tolerances) {
		details = fmt.Sprintf("statement of change of the converted ledger: %s\nchange in net worth: %s\ndifference: %s",
			total.Sorted(), netWorthChange.Sorted(), residual.Sorted())
	}
	report.add("TEST4", "the statement of change of the converted ledger equals the change in net worth", details)

	// TEST5
	changesOrig, err := query.StatementOfChange(in.Original, in.OriginalOptions, in.Currency, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	changesOrig = changesOrig.CleanEmpty()
	var unexpected []string
	for _, account := range changesOrig.Sub(changesConv).CleanSmall(tolerances).Accounts() {
		if !isGainsAccount(account, in.GainsAccount, in.PriceDiffAccount) {
			unexpected = append(unexpected, string(account))
		}
	}
	details = ""
	if len(unexpected) > 0 {
		details = fmt.Sprintf("unexpected accounts: %s\n%s",
			strings.Join(unexpected, ", "), unifiedDiff("original", "converted", changesOrig.String(), changesConv.String()))
	}
	report.add("TEST5", "the statements of change differ only in the unrealized gains accounts", details)

	// TEST6
	if in.Fingerprints == nil {
		report.Checks = append(report.Checks, Check{Name: "TEST6", Description: "the original directives are unchanged", Skipped: true})
		return report, nil
	}
	details, err = unchanged(in.Original, in.Fingerprints)
	if err != nil {
		return nil, err
	}
	report.add("TEST6", "the original directives are unchanged", details)

	return report, nil
}

func netWorths(in Input, date *ast.Date) (orig, conv summator.InventoryAggregator, err error) {
	orig, err = query.NetWorth(in.Original, in.OriginalOptions, in.Currency, date)
	if err != nil {
		return nil, nil, err
	}
	conv, err = query.NetWorth(in.Converted, in.ConvertedOptions, in.Currency, date)
	if err != nil {
		return nil, nil, err
	}
	return orig.CleanEmpty(), conv.CleanEmpty(), nil
}

// compare returns a diff of want and got when diff is not small.
func compare(diff summator.InventoryAggregator, tolerances ledger.Tolerances, want, got summator.InventoryAggregator) string {
	if diff.IsSmall(tolerances) {
		return ""
	}
	return unifiedDiff("original", "converted", want.String(), got.String())
}

func isGainsAccount(account, gains, priceDiff ast.Account) bool {
	if account == priceDiff || account == gains {
		return true
	}
	return strings.HasPrefix(string(account), string(gains)+":")
}

func unchanged(directives ast.Directives, fingerprints []uint64) (string, error) {
	if len(directives) != len(fingerprints) {
		return fmt.Sprintf("the number of directives changed from %d to %d", len(fingerprints), len(directives)), nil
	}
	now, err := Fingerprint(directives)
	if err != nil {
		return "", err
	}
	var changed []int
	for i := range now {
		if now[i] != fingerprints[i] {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return "", nil
	}
	sort.Ints(changed)
	var b strings.Builder
	for _, i := range changed {
		fmt.Fprintf(&b, "directive %d changed:\n%s\n", i, formatter.FormatDirective(directives[i]))
	}
	return b.String(), nil
}

func unifiedDiff(fromName, toName, from, to string) string {
	edits := myers.ComputeEdits(span.URIFromPath(fromName), from, to)
	return fmt.Sprint(gotextdiff.ToUnified(fromName, toName, from, edits))
}

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Self-test report\n\n")
	b.WriteString("| Check | Result | Description |\n")
	b.WriteString("|---|---|---|\n")
	for _, c := range r.Checks {
		result := "passed"
		switch {
		case c.Skipped:
			result = "skipped"
		case !c.Passed:
			result = "**failed**"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", c.Name, result, c.Description)
	}
	for _, c := range r.Checks {
		if c.Passed || c.Skipped {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n\n```diff\n%s\n```\n", c.Name, c.Description, strings.TrimRight(c.Details, "\n"))
	}
	return b.String()
}
