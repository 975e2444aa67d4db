// Package ast declares the types used to represent syntax trees for Beancount files.
//
// These types represent the structure of Beancount directives, transactions, and related
// elements that make up a Beancount ledger file. The AST can be created by parsing a
// Beancount file using the parser package, or constructed programmatically when
// synthesizing entries, as the single-currency converter does.
package ast

import (
	"golang.org/x/exp/slices"
)

// DirectiveKind identifies the concrete type of a Directive.
type DirectiveKind string

const (
	KindOpen        DirectiveKind = "open"
	KindClose       DirectiveKind = "close"
	KindCommodity   DirectiveKind = "commodity"
	KindBalance     DirectiveKind = "balance"
	KindPad         DirectiveKind = "pad"
	KindNote        DirectiveKind = "note"
	KindDocument    DirectiveKind = "document"
	KindPrice       DirectiveKind = "price"
	KindEvent       DirectiveKind = "event"
	KindQuery       DirectiveKind = "query"
	KindCustom      DirectiveKind = "custom"
	KindTransaction DirectiveKind = "transaction"
)

// Directive is the interface implemented by all Beancount directive types.
type Directive interface {
	WithMetadata

	Position() Position
	GetDate() *Date
	Kind() DirectiveKind

	// Clone returns a deep copy that shares no mutable state with the receiver.
	Clone() Directive
}

// WithMetadata is an interface for AST nodes that can have metadata attached.
type WithMetadata interface {
	GetMetadata() []*Metadata
	AddMetadata(...*Metadata)
}

// Directives is a slice of Directive that implements sort.Interface.
type Directives []Directive

func (d Directives) Len() int           { return len(d) }
func (d Directives) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }
func (d Directives) Less(i, j int) bool { return CompareDirectives(d[i], d[j]) < 0 }

// AST represents a parsed Beancount file containing directives, options, includes
// and plugins. Pushtag/poptag and pushmeta/popmeta are applied while parsing, so
// they do not appear here.
type AST struct {
	Directives Directives
	Options    []*Option
	Includes   []*Include
	Plugins    []*Plugin
}

// kindOrder mirrors the same-date ordering used by beancount: accounts are opened
// first, then balances are asserted at the start of the day, and documents and
// closes come last.
var kindOrder = map[DirectiveKind]int{
	KindOpen:     -2,
	KindBalance:  -1,
	KindDocument: 1,
	KindClose:    2,
}

// CompareDirectives orders two directives by date, then type, then source line.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func CompareDirectives(a, b Directive) int {
	return CompareDirectivesWith(a, b, kindOrder)
}

// CompareDirectivesWith is CompareDirectives with a caller-supplied type order.
// Kinds missing from order rank as 0.
func CompareDirectivesWith(a, b Directive, order map[DirectiveKind]int) int {
	if c := a.GetDate().Compare(b.GetDate().Time); c != 0 {
		return c
	}

	ka, kb := order[a.Kind()], order[b.Kind()]
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	la, lb := a.Position().Line, b.Position().Line
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	}
	return 0
}

// isSorted checks if directives are already sorted.
func isSorted(d Directives) bool {
	for i := 1; i < len(d); i++ {
		if d.Less(i, i-1) {
			return false
		}
	}
	return true
}

// SortDirectives sorts all directives by date, type and line. The sort is stable, so
// directives that compare equal keep their file order.
func SortDirectives(d Directives) {
	if isSorted(d) {
		return
	}
	slices.SortStableFunc(d, CompareDirectives)
}

// CloneDirectives deep-copies every directive in d.
func CloneDirectives(d Directives) Directives {
	if d == nil {
		return nil
	}
	out := make(Directives, len(d))
	for i, dir := range d {
		out[i] = dir.Clone()
	}
	return out
}
