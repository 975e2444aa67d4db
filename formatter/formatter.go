// Package formatter renders ledger ASTs back into beancount text. Output of the
// formatter parses back into an equal AST.
package formatter

import (
	"cmp"
	"context"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/telemetry"
)

const (
	// DefaultCurrencyColumn is the default column position for currency alignment
	// (matches bean-format behavior)
	DefaultCurrencyColumn = 52

	// DefaultIndentation is the default indentation for postings and metadata
	DefaultIndentation = 2

	// MinimumSpacing is the minimum number of spaces between account/number and currency
	MinimumSpacing = 2

	dateWidth = 10
)

// Formatter handles formatting of Beancount files with proper alignment.
type Formatter struct {
	// CurrencyColumn is the target column for currency alignment.
	// If 0, it is calculated from the content.
	CurrencyColumn int

	// PrefixWidth is the width in characters to render the account name to.
	// If 0, a good value is selected automatically from the contents.
	PrefixWidth int

	// NumWidth is the width to render each number.
	// If 0, a good value is selected automatically from the contents.
	NumWidth int

	// PreserveComments controls whether comments are preserved by Format.
	PreserveComments bool

	// PreserveBlanks controls whether blank lines are preserved by Format.
	PreserveBlanks bool
}

// Option is a functional option for configuring a Formatter.
type Option func(*Formatter)

// WithCurrencyColumn sets a specific column for currency alignment.
func WithCurrencyColumn(col int) Option {
	return func(f *Formatter) {
		f.CurrencyColumn = col
	}
}

// WithPrefixWidth sets the width in characters to render account names to.
func WithPrefixWidth(width int) Option {
	return func(f *Formatter) {
		f.PrefixWidth = width
	}
}

// WithNumWidth sets the width to render each number.
func WithNumWidth(width int) Option {
	return func(f *Formatter) {
		f.NumWidth = width
	}
}

// WithPreserveComments enables or disables comment preservation.
func WithPreserveComments(preserve bool) Option {
	return func(f *Formatter) {
		f.PreserveComments = preserve
	}
}

// WithPreserveBlanks enables or disables blank line preservation.
func WithPreserveBlanks(preserve bool) Option {
	return func(f *Formatter) {
		f.PreserveBlanks = preserve
	}
}

// New creates a new Formatter with the given options.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		PreserveComments: true,
		PreserveBlanks:   true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// widthMetrics holds calculated width information for formatting.
type widthMetrics struct {
	maxPrefixWidth int
	maxNumWidth    int
	currencyColumn int
}

func (m *widthMetrics) observe(prefixWidth int, value string) {
	numWidth := len(value)
	m.maxPrefixWidth = max(m.maxPrefixWidth, prefixWidth)
	m.maxNumWidth = max(m.maxNumWidth, numWidth)
	m.currencyColumn = max(m.currencyColumn, prefixWidth+numWidth)
}

// calculateWidthMetrics performs a single pass over the directives to calculate
// all width metrics. Account widths are measured in terminal cells.
func calculateWidthMetrics(directives []ast.Directive) widthMetrics {
	metrics := widthMetrics{}

	for _, directive := range directives {
		switch d := directive.(type) {
		case *ast.Transaction:
			for _, posting := range d.Postings {
				if posting.Amount == nil {
					continue
				}
				prefixWidth := DefaultIndentation
				if posting.Flag != "" {
					prefixWidth += 2
				}
				prefixWidth += runewidth.StringWidth(string(posting.Account)) + MinimumSpacing
				metrics.observe(prefixWidth, posting.Amount.Value)
			}

		case *ast.Balance:
			if d.Amount == nil {
				continue
			}
			width := dateWidth + len(" balance ") + runewidth.StringWidth(string(d.Account)) + MinimumSpacing
			metrics.observe(width, d.Amount.Value)

		case *ast.Price:
			if d.Amount == nil {
				continue
			}
			width := dateWidth + len(" price ") + runewidth.StringWidth(d.Commodity) + MinimumSpacing
			metrics.observe(width, d.Amount.Value)
		}
	}

	return metrics
}

// currencyColumnFor calculates the currency column based on configuration.
// Priority: explicit column > explicit widths > auto-calculated from content > default.
func (f *Formatter) currencyColumnFor(directives []ast.Directive) int {
	if f.CurrencyColumn > 0 {
		return f.CurrencyColumn
	}

	metrics := calculateWidthMetrics(directives)

	if f.PrefixWidth > 0 || f.NumWidth > 0 {
		prefixWidth := f.PrefixWidth
		if prefixWidth == 0 {
			prefixWidth = metrics.maxPrefixWidth
			if prefixWidth == 0 {
				prefixWidth = 40
			}
		}

		numWidth := f.NumWidth
		if numWidth == 0 {
			numWidth = metrics.maxNumWidth + MinimumSpacing
			if numWidth == MinimumSpacing {
				numWidth = 10
			}
		}

		return prefixWidth + numWidth
	}

	if metrics.currencyColumn > 0 {
		return metrics.currencyColumn + MinimumSpacing
	}
	return DefaultCurrencyColumn
}

// astItem is any top-level item of the AST with its source line.
type astItem struct {
	line      int
	option    *ast.Option
	include   *ast.Include
	plugin    *ast.Plugin
	directive ast.Directive
}

// Format writes tree in source order. Comments and blank lines of source are
// preserved based on the Formatter configuration.
func (f *Formatter) Format(ctx context.Context, tree *ast.AST, source []byte, w io.Writer) error {
	timer := telemetry.FromContext(ctx).Start("formatter.Format")
	defer timer.End()

	p := &printer{column: f.currencyColumnFor(tree.Directives)}

	var content map[int]LineContent
	if f.PreserveComments || f.PreserveBlanks {
		content = extractLineContent(source, f.PreserveComments, f.PreserveBlanks)
	}

	items := make([]astItem, 0, len(tree.Options)+len(tree.Includes)+len(tree.Plugins)+len(tree.Directives))
	for _, opt := range tree.Options {
		items = append(items, astItem{line: opt.Pos.Line, option: opt})
	}
	for _, inc := range tree.Includes {
		items = append(items, astItem{line: inc.Pos.Line, include: inc})
	}
	for _, plugin := range tree.Plugins {
		items = append(items, astItem{line: plugin.Pos.Line, plugin: plugin})
	}
	for _, directive := range tree.Directives {
		items = append(items, astItem{line: directive.Position().Line, directive: directive})
	}

	slices.SortStableFunc(items, func(a, b astItem) int {
		return cmp.Compare(a.line, b.line)
	})

	var buf strings.Builder
	buf.Grow(len(items) * 100)

	lastLine := 0
	for i, item := range items {
		if content != nil && item.line > 0 {
			writePreceding(&buf, content, lastLine, item.line)
			lastLine = item.line
		} else if i > 0 && item.directive != nil {
			buf.WriteByte('\n')
		}

		switch {
		case item.option != nil:
			p.option(&buf, item.option)
		case item.include != nil:
			p.include(&buf, item.include)
		case item.plugin != nil:
			p.plugin(&buf, item.plugin)
		default:
			p.directive(&buf, item.directive)
		}
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// FormatDirectives writes options followed by directives in the given order,
// one blank line between directives. Source positions are ignored.
func (f *Formatter) FormatDirectives(options []*ast.Option, directives []ast.Directive, w io.Writer) error {
	p := &printer{column: f.currencyColumnFor(directives)}

	var buf strings.Builder
	buf.Grow(len(directives) * 100)

	for _, opt := range options {
		p.option(&buf, opt)
	}
	if len(options) > 0 {
		buf.WriteByte('\n')
	}
	for i, d := range directives {
		if i > 0 {
			buf.WriteByte('\n')
		}
		p.directive(&buf, d)
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// FormatDirective renders a single directive, aligning amounts to the
// default currency column.
func FormatDirective(d ast.Directive) string {
	var buf strings.Builder
	p := &printer{column: DefaultCurrencyColumn}
	p.directive(&buf, d)
	return buf.String()
}
