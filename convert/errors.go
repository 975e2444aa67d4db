package convert

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/formatter"
)

// ParameterError reports invalid conversion parameters. It is returned
// before any conversion work starts.
type ParameterError struct {
	Msg string
}

func (e *ParameterError) Error() string { return e.Msg }

// ConversionRateNotFoundError is returned when an amount has to be
// converted but the price map has no usable rate.
type ConversionRateNotFoundError struct {
	Currency string
	Target   string
	Date     *ast.Date
}

func (e *ConversionRateNotFoundError) Error() string {
	return fmt.Sprintf("No conversion rate found for currency %s to %s on date %s", e.Currency, e.Target, e.Date)
}

// TransferFundsToFromUnconvertableCommError is returned when a posting
// exchanges a commodity that cannot be converted into the target currency
// against another commodity. Such a transaction cannot be expressed in the
// target currency without losing value.
type TransferFundsToFromUnconvertableCommError struct {
	Transaction *ast.Transaction
	Posting     *ast.Posting
	Currency    string
	Target      string
	// Unconvertible is set when the commodity was found unconvertible by an
	// earlier entry rather than by a missing rate on this date.
	Unconvertible bool
	// FirstPriceDate is the date of the first rate of the pair, if any.
	FirstPriceDate *ast.Date
	// IntroducedDate is the date the commodity was first used in a posting.
	IntroducedDate *ast.Date
}

func (e *TransferFundsToFromUnconvertableCommError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: cannot convert entries to a single currency %s.\n", location(e.Transaction), e.Target)
	switch {
	case !e.Unconvertible:
		fmt.Fprintf(&b, "Commodity %s is unconvertable to %s on the date %s: there is no price entry for it until this date.\n", e.Currency, e.Target, e.Transaction.Date)
	case e.FirstPriceDate != nil:
		fmt.Fprintf(&b, "Commodity %s has been detected as unconvertable in the past transactions.\n", e.Currency)
	default:
		fmt.Fprintf(&b, "Commodity %s is unconvertable to %s.\n", e.Currency, e.Target)
	}
	fmt.Fprintf(&b, "However on the date %s funds are being transferred to/from this commodity and the other commodity.\n\n", e.Transaction.Date)
	fmt.Fprintf(&b, "Affected transaction:\n%s\n", formatter.FormatDirective(e.Transaction))
	fmt.Fprintf(&b, "Affected posting in the affected transaction:\n  %s\n\n", postingString(e.Posting))

	introduced := "unknown"
	if e.IntroducedDate != nil {
		introduced = e.IntroducedDate.String()
	}
	switch {
	case !e.Unconvertible:
		b.WriteString("To fix the problem do one of the following:\n")
		if e.FirstPriceDate != nil {
			fmt.Fprintf(&b, "- request the conversion with a start date on or after the date the price of %s in %s was first introduced (%s)\n", e.Currency, e.Target, e.FirstPriceDate)
		}
		fmt.Fprintf(&b, "- add a price entry for the conversion of %s to %s on or before %s\n", e.Currency, e.Target, e.Transaction.Date)
	case e.FirstPriceDate != nil:
		b.WriteString("To fix the problem do one of the following:\n")
		fmt.Fprintf(&b, "- request the conversion with a start date on or after the date the price of %s in %s was first introduced (%s)\n", e.Currency, e.Target, e.FirstPriceDate)
		fmt.Fprintf(&b, "- add a price entry for the conversion of %s to %s on or before the commodity was first used in a transaction (%s)\n", e.Currency, e.Target, introduced)
	default:
		fmt.Fprintf(&b, "One way to fix the problem is to add a price entry for the conversion of %s to %s on or before the commodity was first used in a transaction (%s)\n", e.Currency, e.Target, introduced)
	}
	return b.String()
}

func (e *TransferFundsToFromUnconvertableCommError) GetPosition() ast.Position {
	return e.Transaction.Pos
}

func (e *TransferFundsToFromUnconvertableCommError) GetDirective() ast.Directive {
	return e.Transaction
}

// UnconvertableCommBecomesConvertibleError is returned when a price appears
// inside the conversion window for a commodity that was already declared
// unconvertible.
type UnconvertableCommBecomesConvertibleError struct {
	Currency string
	Target   string
	Date     *ast.Date
}

func (e *UnconvertableCommBecomesConvertibleError) Error() string {
	return fmt.Sprintf("There is a price entry for the commodity %s vs %s on the date %s, "+
		"but this commodity has been detected as unconvertable to %s in the past. "+
		"The ledger cannot be converted to %s correctly", e.Currency, e.Target, e.Date, e.Target, e.Target)
}

// InternalError reports a broken invariant of the converter.
type InternalError struct {
	Msg       string
	Directive ast.Directive
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}

func (e *InternalError) GetPosition() ast.Position {
	if e.Directive == nil {
		return ast.Position{}
	}
	return e.Directive.Position()
}

func (e *InternalError) GetDirective() ast.Directive { return e.Directive }

// EntryError wraps a failure with the entry that was being processed.
type EntryError struct {
	Directive ast.Directive
	Err       error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("error while processing the entry\n%s: %v", formatter.FormatDirective(e.Directive), e.Err)
}

func (e *EntryError) Unwrap() error               { return e.Err }
func (e *EntryError) GetPosition() ast.Position   { return e.Directive.Position() }
func (e *EntryError) GetDirective() ast.Directive { return e.Directive }

func location(d ast.Directive) string {
	pos := d.Position()
	if pos.Filename != "" {
		return fmt.Sprintf("%s:%d", pos.Filename, pos.Line)
	}
	return d.GetDate().String()
}

func postingString(p *ast.Posting) string {
	var b strings.Builder
	if p.Flag != "" {
		b.WriteString(p.Flag + " ")
	}
	b.WriteString(string(p.Account))
	if p.Amount != nil {
		b.WriteString(" " + p.Amount.String())
	}
	if p.Cost != nil && p.Cost.Amount != nil {
		if p.Cost.IsTotal {
			fmt.Fprintf(&b, " {{%s}}", p.Cost.Amount)
		} else {
			fmt.Fprintf(&b, " {%s}", p.Cost.Amount)
		}
	}
	if p.Price != nil {
		op := "@"
		if p.PriceTotal {
			op = "@@"
		}
		fmt.Fprintf(&b, " %s %s", op, p.Price)
	}
	return b.String()
}
