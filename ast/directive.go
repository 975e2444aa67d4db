package ast

// Commodity declares a commodity or currency that can be used in the ledger.
//
// Example:
//
//	2014-01-01 commodity USD
//	  name: "US Dollar"
type Commodity struct {
	Pos      Position
	Date     *Date
	Currency string
	Metadata []*Metadata
}

var _ Directive = &Commodity{}

func (c *Commodity) Position() Position         { return c.Pos }
func (c *Commodity) GetDate() *Date             { return c.Date }
func (c *Commodity) Kind() DirectiveKind        { return KindCommodity }
func (c *Commodity) GetMetadata() []*Metadata   { return c.Metadata }
func (c *Commodity) AddMetadata(m ...*Metadata) { c.Metadata = append(c.Metadata, m...) }
func (c *Commodity) Clone() Directive {
	out := *c
	out.Date = c.Date.clone()
	out.Metadata = cloneMetadata(c.Metadata)
	return &out
}

// Open declares the opening of an account at a specific date. You can optionally
// constrain which currencies the account may hold and specify a booking method
// (STRICT, NONE, AVERAGE, FIFO, LIFO) for lot tracking.
//
// Example:
//
//	2014-05-01 open Assets:US:BofA:Checking USD
//	2014-05-01 open Assets:Investments:Brokerage USD,EUR "FIFO"
type Open struct {
	Pos                  Position
	Date                 *Date
	Account              Account
	ConstraintCurrencies []string
	BookingMethod        string
	Metadata             []*Metadata
}

var _ Directive = &Open{}

func (o *Open) Position() Position         { return o.Pos }
func (o *Open) GetDate() *Date             { return o.Date }
func (o *Open) Kind() DirectiveKind        { return KindOpen }
func (o *Open) GetMetadata() []*Metadata   { return o.Metadata }
func (o *Open) AddMetadata(m ...*Metadata) { o.Metadata = append(o.Metadata, m...) }
func (o *Open) Clone() Directive {
	out := *o
	out.Date = o.Date.clone()
	if o.ConstraintCurrencies != nil {
		out.ConstraintCurrencies = append([]string(nil), o.ConstraintCurrencies...)
	}
	out.Metadata = cloneMetadata(o.Metadata)
	return &out
}

// Close declares the closing of an account at a specific date.
//
// Example:
//
//	2015-09-23 close Assets:US:BofA:Checking
type Close struct {
	Pos      Position
	Date     *Date
	Account  Account
	Metadata []*Metadata
}

var _ Directive = &Close{}

func (c *Close) Position() Position         { return c.Pos }
func (c *Close) GetDate() *Date             { return c.Date }
func (c *Close) Kind() DirectiveKind        { return KindClose }
func (c *Close) GetMetadata() []*Metadata   { return c.Metadata }
func (c *Close) AddMetadata(m ...*Metadata) { c.Metadata = append(c.Metadata, m...) }
func (c *Close) Clone() Directive {
	out := *c
	out.Date = c.Date.clone()
	out.Metadata = cloneMetadata(c.Metadata)
	return &out
}

// Balance asserts that an account should have a specific balance at the beginning
// of a given date. An explicit tolerance can follow the amount after a tilde.
//
// Example:
//
//	2014-08-09 balance Assets:US:BofA:Checking 562.00 USD
//	2014-08-09 balance Assets:US:BofA:Checking 562.00 ~ 0.01 USD
type Balance struct {
	Pos       Position
	Date      *Date
	Account   Account
	Amount    *Amount
	Tolerance string
	Metadata  []*Metadata
}

var _ Directive = &Balance{}

func (b *Balance) Position() Position         { return b.Pos }
func (b *Balance) GetDate() *Date             { return b.Date }
func (b *Balance) Kind() DirectiveKind        { return KindBalance }
func (b *Balance) GetMetadata() []*Metadata   { return b.Metadata }
func (b *Balance) AddMetadata(m ...*Metadata) { b.Metadata = append(b.Metadata, m...) }
func (b *Balance) Clone() Directive {
	out := *b
	out.Date = b.Date.clone()
	out.Amount = b.Amount.clone()
	out.Metadata = cloneMetadata(b.Metadata)
	return &out
}

// Pad inserts a transaction bringing an account to the balance asserted by the next
// balance directive, posting the difference against AccountPad.
//
// Example:
//
//	2014-01-01 pad Assets:US:BofA:Checking Equity:Opening-Balances
//	2014-08-09 balance Assets:US:BofA:Checking 562.00 USD
type Pad struct {
	Pos        Position
	Date       *Date
	Account    Account
	AccountPad Account
	Metadata   []*Metadata
}

var _ Directive = &Pad{}

func (p *Pad) Position() Position         { return p.Pos }
func (p *Pad) GetDate() *Date             { return p.Date }
func (p *Pad) Kind() DirectiveKind        { return KindPad }
func (p *Pad) GetMetadata() []*Metadata   { return p.Metadata }
func (p *Pad) AddMetadata(m ...*Metadata) { p.Metadata = append(p.Metadata, m...) }
func (p *Pad) Clone() Directive {
	out := *p
	out.Date = p.Date.clone()
	out.Metadata = cloneMetadata(p.Metadata)
	return &out
}

// Note attaches a dated comment to an account.
//
// Example:
//
//	2014-07-09 note Assets:US:BofA:Checking "Called bank about pending direct deposit"
type Note struct {
	Pos         Position
	Date        *Date
	Account     Account
	Description string
	Metadata    []*Metadata
}

var _ Directive = &Note{}

func (n *Note) Position() Position         { return n.Pos }
func (n *Note) GetDate() *Date             { return n.Date }
func (n *Note) Kind() DirectiveKind        { return KindNote }
func (n *Note) GetMetadata() []*Metadata   { return n.Metadata }
func (n *Note) AddMetadata(m ...*Metadata) { n.Metadata = append(n.Metadata, m...) }
func (n *Note) Clone() Directive {
	out := *n
	out.Date = n.Date.clone()
	out.Metadata = cloneMetadata(n.Metadata)
	return &out
}

// Document associates an external file with an account at a specific date.
//
// Example:
//
//	2014-07-09 document Assets:US:BofA:Checking "/documents/bank-statements/2014-07.pdf"
type Document struct {
	Pos            Position
	Date           *Date
	Account        Account
	PathToDocument string
	Tags           []Tag
	Links          []Link
	Metadata       []*Metadata
}

var _ Directive = &Document{}

func (d *Document) Position() Position         { return d.Pos }
func (d *Document) GetDate() *Date             { return d.Date }
func (d *Document) Kind() DirectiveKind        { return KindDocument }
func (d *Document) GetMetadata() []*Metadata   { return d.Metadata }
func (d *Document) AddMetadata(m ...*Metadata) { d.Metadata = append(d.Metadata, m...) }
func (d *Document) Clone() Directive {
	out := *d
	out.Date = d.Date.clone()
	out.Tags = append([]Tag(nil), d.Tags...)
	out.Links = append([]Link(nil), d.Links...)
	out.Metadata = cloneMetadata(d.Metadata)
	return &out
}

// Price declares the price of a commodity in terms of another currency at a specific
// date. Price directives feed the price map used for currency conversion.
//
// Example:
//
//	2014-07-09 price USD 1.08 CAD
//	2015-04-30 price HOOL 582.26 USD
type Price struct {
	Pos       Position
	Date      *Date
	Commodity string
	Amount    *Amount
	Metadata  []*Metadata
}

var _ Directive = &Price{}

func (p *Price) Position() Position         { return p.Pos }
func (p *Price) GetDate() *Date             { return p.Date }
func (p *Price) Kind() DirectiveKind        { return KindPrice }
func (p *Price) GetMetadata() []*Metadata   { return p.Metadata }
func (p *Price) AddMetadata(m ...*Metadata) { p.Metadata = append(p.Metadata, m...) }
func (p *Price) Clone() Directive {
	out := *p
	out.Date = p.Date.clone()
	out.Amount = p.Amount.clone()
	out.Metadata = cloneMetadata(p.Metadata)
	return &out
}

// Event records a named event with a value at a specific date.
//
// Example:
//
//	2014-07-09 event "location" "New York, USA"
type Event struct {
	Pos      Position
	Date     *Date
	Name     string
	Value    string
	Metadata []*Metadata
}

var _ Directive = &Event{}

func (e *Event) Position() Position         { return e.Pos }
func (e *Event) GetDate() *Date             { return e.Date }
func (e *Event) Kind() DirectiveKind        { return KindEvent }
func (e *Event) GetMetadata() []*Metadata   { return e.Metadata }
func (e *Event) AddMetadata(m ...*Metadata) { e.Metadata = append(e.Metadata, m...) }
func (e *Event) Clone() Directive {
	out := *e
	out.Date = e.Date.clone()
	out.Metadata = cloneMetadata(e.Metadata)
	return &out
}

// Query stores a named query in the ledger.
//
// Example:
//
//	2014-07-09 query "cash" "SELECT account, sum(position) WHERE currency = 'USD'"
type Query struct {
	Pos         Position
	Date        *Date
	Name        string
	QueryString string
	Metadata    []*Metadata
}

var _ Directive = &Query{}

func (q *Query) Position() Position         { return q.Pos }
func (q *Query) GetDate() *Date             { return q.Date }
func (q *Query) Kind() DirectiveKind        { return KindQuery }
func (q *Query) GetMetadata() []*Metadata   { return q.Metadata }
func (q *Query) AddMetadata(m ...*Metadata) { q.Metadata = append(q.Metadata, m...) }
func (q *Query) Clone() Directive {
	out := *q
	out.Date = q.Date.clone()
	out.Metadata = cloneMetadata(q.Metadata)
	return &out
}

// Custom is a prototype directive for plugin development, allowing arbitrary typed values
// after the directive name.
//
// Example:
//
//	2014-07-09 custom "budget" "..." TRUE 45.30 USD
type Custom struct {
	Pos      Position
	Date     *Date
	Type     string
	Values   []*CustomValue
	Metadata []*Metadata
}

var _ Directive = &Custom{}

func (c *Custom) Position() Position         { return c.Pos }
func (c *Custom) GetDate() *Date             { return c.Date }
func (c *Custom) Kind() DirectiveKind        { return KindCustom }
func (c *Custom) GetMetadata() []*Metadata   { return c.Metadata }
func (c *Custom) AddMetadata(m ...*Metadata) { c.Metadata = append(c.Metadata, m...) }
func (c *Custom) Clone() Directive {
	out := *c
	out.Date = c.Date.clone()
	if c.Values != nil {
		out.Values = make([]*CustomValue, len(c.Values))
		for i, v := range c.Values {
			out.Values[i] = &CustomValue{MetadataValue: *v.MetadataValue.clone()}
		}
	}
	out.Metadata = cloneMetadata(c.Metadata)
	return &out
}

// CustomValue is a single value of a custom directive. It shares the value union of
// metadata, so strings, dates, booleans, numbers, amounts and accounts are accepted.
type CustomValue struct {
	MetadataValue
}
