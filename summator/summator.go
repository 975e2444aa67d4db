// Package summator computes running per-account balances.
//
// A BeanSummator answers "what is the balance of every matching account at
// the end of this day" for a sequence of non-decreasing days, reusing the sum
// of the previous query. The converter queries one day per price change, so
// the total work stays linear in the number of postings.
package summator

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/ledger"
)

// AllComponents keeps account names untruncated.
const AllComponents = 100

// DateRegressionError is returned when a sum is requested for a day before
// the last requested one.
type DateRegressionError struct {
	Requested *ast.Date
	Last      *ast.Date
}

func (e *DateRegressionError) Error() string {
	return fmt.Sprintf("date %s is before %s, the last date a sum was requested for", e.Requested, e.Last)
}

// BeanSummator sums the postings of date-sorted transactions, grouped by
// account truncated to a number of components.
type BeanSummator struct {
	directives ast.Directives
	next       int
	accounts   *regexp.Regexp
	depth      int
	sum        InventoryAggregator
	last       *ast.Date
	logger     *slog.Logger
}

// Option configures a BeanSummator.
type Option func(*BeanSummator)

// WithDepth groups postings by the first n components of their account.
func WithDepth(n int) Option {
	return func(s *BeanSummator) {
		s.depth = n
	}
}

// WithLogger sets the logger for debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *BeanSummator) {
		s.logger = logger
	}
}

// New creates a summator over directives, which must be sorted by date.
// Only postings whose account matches the accounts pattern are summed.
func New(directives ast.Directives, accounts string, opts ...Option) (*BeanSummator, error) {
	re, err := regexp.Compile(accounts)
	if err != nil {
		return nil, fmt.Errorf("invalid accounts pattern: %w", err)
	}

	s := &BeanSummator{
		directives: directives,
		accounts:   re,
		depth:      AllComponents,
		sum:        NewInventoryAggregator(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Debug("created summator", "accounts", accounts, "depth", s.depth)
	return s, nil
}

// SumTillDate returns the balances at the end of date. The result is a copy
// the caller may keep across later calls. Dates must not decrease between
// calls.
func (s *BeanSummator) SumTillDate(date *ast.Date) (InventoryAggregator, error) {
	if s.last != nil && date.Before(s.last) {
		return nil, &DateRegressionError{Requested: date, Last: s.last}
	}

	processed := 0
	for ; s.next < len(s.directives); s.next++ {
		directive := s.directives[s.next]
		if directive.GetDate().After(date) {
			break
		}
		if err := s.process(directive); err != nil {
			return nil, err
		}
		processed++
	}
	s.last = date

	s.logger.Debug("summed till date", "date", date, "processed", processed, "accounts", len(s.sum))
	return s.sum.Copy(), nil
}

func (s *BeanSummator) process(directive ast.Directive) error {
	txn, ok := directive.(*ast.Transaction)
	if !ok {
		return nil
	}
	for _, posting := range txn.Postings {
		if !s.accounts.MatchString(string(posting.Account)) {
			continue
		}
		units, cost, err := ledger.PostingPosition(posting)
		if err != nil {
			return fmt.Errorf("%s: posting to %s: %w", txn.Pos, posting.Account, err)
		}
		s.sum.Add(posting.Account.Root(s.depth), units, cost)
	}
	return nil
}
