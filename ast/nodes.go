package ast

// Option sets a configuration parameter that affects how the ledger is processed.
//
// Example:
//
//	option "title" "Personal Ledger of John Doe"
//	option "operating_currency" "USD"
type Option struct {
	Pos   Position
	Name  string
	Value string
}

func (o *Option) Position() Position { return o.Pos }

// Include imports and processes directives from another Beancount file. The path can be
// absolute or relative to the file containing the include directive.
//
// Example:
//
//	include "accounts.beancount"
type Include struct {
	Pos      Position
	Filename string
}

func (i *Include) Position() Position { return i.Pos }

// Plugin enables a ledger plugin with an optional configuration string.
//
// Example:
//
//	plugin "beancount_scc" "currency='EUR', start_date='2020-01-01'"
type Plugin struct {
	Pos    Position
	Name   string
	Config string
}

func (p *Plugin) Position() Position { return p.Pos }
