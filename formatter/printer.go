package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// printer writes directives with amounts aligned to column.
type printer struct {
	column int
}

func (p *printer) option(buf *strings.Builder, opt *ast.Option) {
	buf.WriteString("option ")
	writeQuoted(buf, opt.Name)
	buf.WriteByte(' ')
	writeQuoted(buf, opt.Value)
	buf.WriteByte('\n')
}

func (p *printer) include(buf *strings.Builder, inc *ast.Include) {
	buf.WriteString("include ")
	writeQuoted(buf, inc.Filename)
	buf.WriteByte('\n')
}

func (p *printer) plugin(buf *strings.Builder, plugin *ast.Plugin) {
	buf.WriteString("plugin ")
	writeQuoted(buf, plugin.Name)
	if plugin.Config != "" {
		buf.WriteByte(' ')
		writeQuoted(buf, plugin.Config)
	}
	buf.WriteByte('\n')
}

func (p *printer) directive(buf *strings.Builder, d ast.Directive) {
	switch d := d.(type) {
	case *ast.Transaction:
		p.transaction(buf, d)
		return
	case *ast.Commodity:
		p.header(buf, d.Date, "commodity")
		buf.WriteString(d.Currency)
	case *ast.Open:
		p.header(buf, d.Date, "open")
		buf.WriteString(string(d.Account))
		if len(d.ConstraintCurrencies) > 0 {
			buf.WriteByte(' ')
			buf.WriteString(strings.Join(d.ConstraintCurrencies, ","))
		}
		if d.BookingMethod != "" {
			buf.WriteByte(' ')
			writeQuoted(buf, d.BookingMethod)
		}
	case *ast.Close:
		p.header(buf, d.Date, "close")
		buf.WriteString(string(d.Account))
	case *ast.Balance:
		p.header(buf, d.Date, "balance")
		buf.WriteString(string(d.Account))
		p.balanceAmount(buf, d)
	case *ast.Pad:
		p.header(buf, d.Date, "pad")
		buf.WriteString(string(d.Account))
		buf.WriteByte(' ')
		buf.WriteString(string(d.AccountPad))
	case *ast.Note:
		p.header(buf, d.Date, "note")
		buf.WriteString(string(d.Account))
		buf.WriteByte(' ')
		writeQuoted(buf, d.Description)
	case *ast.Document:
		p.header(buf, d.Date, "document")
		buf.WriteString(string(d.Account))
		buf.WriteByte(' ')
		writeQuoted(buf, d.PathToDocument)
		writeTagsLinks(buf, d.Tags, d.Links)
	case *ast.Price:
		p.header(buf, d.Date, "price")
		buf.WriteString(d.Commodity)
		p.amount(buf, d.Amount)
	case *ast.Event:
		p.header(buf, d.Date, "event")
		writeQuoted(buf, d.Name)
		buf.WriteByte(' ')
		writeQuoted(buf, d.Value)
	case *ast.Query:
		p.header(buf, d.Date, "query")
		writeQuoted(buf, d.Name)
		buf.WriteByte(' ')
		writeQuoted(buf, d.QueryString)
	case *ast.Custom:
		p.header(buf, d.Date, "custom")
		writeQuoted(buf, d.Type)
		for _, v := range d.Values {
			buf.WriteByte(' ')
			writeValue(buf, &v.MetadataValue)
		}
	default:
		return
	}
	buf.WriteByte('\n')
	writeMetadata(buf, d.GetMetadata(), DefaultIndentation)
}

func (p *printer) header(buf *strings.Builder, date *ast.Date, keyword string) {
	buf.WriteString(date.String())
	buf.WriteByte(' ')
	buf.WriteString(keyword)
	buf.WriteByte(' ')
}

// transaction formats: date flag [payee] [narration] [tags] [links]
// followed by metadata and postings.
func (p *printer) transaction(buf *strings.Builder, t *ast.Transaction) {
	buf.WriteString(t.Date.String())
	buf.WriteByte(' ')
	flag := t.Flag
	if flag == "" {
		flag = "*"
	}
	buf.WriteString(flag)

	if t.Payee != "" {
		buf.WriteByte(' ')
		writeQuoted(buf, t.Payee)
	}
	if t.Payee != "" || t.Narration != "" {
		buf.WriteByte(' ')
		writeQuoted(buf, t.Narration)
	}
	writeTagsLinks(buf, t.Tags, t.Links)
	buf.WriteByte('\n')

	writeMetadata(buf, t.Metadata, DefaultIndentation)

	for _, posting := range t.Postings {
		p.posting(buf, posting)
	}
}

// posting formats a single posting. Postings without an amount are left for
// interpolation.
func (p *printer) posting(buf *strings.Builder, posting *ast.Posting) {
	start := buf.Len()
	buf.WriteString(strings.Repeat(" ", DefaultIndentation))

	if posting.Flag != "" {
		buf.WriteString(posting.Flag)
		buf.WriteByte(' ')
	}
	buf.WriteString(string(posting.Account))

	if posting.Amount != nil {
		p.alignedAmount(buf, posting.Amount, lineWidth(buf, start))

		if posting.Cost != nil {
			buf.WriteByte(' ')
			writeCost(buf, posting.Cost)
		}

		if posting.Price != nil {
			if posting.PriceTotal {
				buf.WriteString(" @@ ")
			} else {
				buf.WriteString(" @ ")
			}
			buf.WriteString(posting.Price.String())
		}
	}

	buf.WriteByte('\n')
	writeMetadata(buf, posting.Metadata, 2*DefaultIndentation)
}

func (p *printer) amount(buf *strings.Builder, amount *ast.Amount) {
	if amount == nil {
		return
	}
	p.alignedAmount(buf, amount, lineWidth(buf, lastLineStart(buf)))
}

// balanceAmount formats "NUMBER [~ TOLERANCE] CURRENCY".
func (p *printer) balanceAmount(buf *strings.Builder, b *ast.Balance) {
	if b.Amount == nil {
		return
	}
	if b.Tolerance == "" {
		p.amount(buf, b.Amount)
		return
	}
	p.alignedAmount(buf, &ast.Amount{Value: b.Amount.Value + " ~ " + b.Tolerance}, lineWidth(buf, lastLineStart(buf)))
	buf.WriteByte(' ')
	buf.WriteString(b.Amount.Currency)
}

// alignedAmount pads so that the currency starts at the configured column.
func (p *printer) alignedAmount(buf *strings.Builder, amount *ast.Amount, currentWidth int) {
	padding := p.column - currentWidth - len(amount.Value)
	if padding < MinimumSpacing {
		padding = MinimumSpacing
	}

	buf.WriteString(strings.Repeat(" ", padding))
	buf.WriteString(amount.String())
}

func lastLineStart(buf *strings.Builder) int {
	return strings.LastIndexByte(buf.String(), '\n') + 1
}

// lineWidth is the display width of the buffer from start.
func lineWidth(buf *strings.Builder, start int) int {
	return runewidth.StringWidth(buf.String()[start:])
}

func writeTagsLinks(buf *strings.Builder, tags []ast.Tag, links []ast.Link) {
	for _, tag := range tags {
		buf.WriteString(" #")
		buf.WriteString(string(tag))
	}
	for _, link := range links {
		buf.WriteString(" ^")
		buf.WriteString(string(link))
	}
}

// writeCost formats a cost specification.
func writeCost(buf *strings.Builder, cost *ast.Cost) {
	open, closing := "{", "}"
	if cost.IsTotal {
		open, closing = "{{", "}}"
	}
	buf.WriteString(open)

	var parts []string
	if cost.IsMerge {
		parts = append(parts, "*")
	}
	if cost.Amount != nil {
		parts = append(parts, cost.Amount.String())
	}
	if cost.Date != nil {
		parts = append(parts, cost.Date.String())
	}
	if cost.Label != "" {
		parts = append(parts, `"`+escapeString(cost.Label)+`"`)
	}
	buf.WriteString(strings.Join(parts, ", "))

	buf.WriteString(closing)
}

// writeMetadata formats metadata entries, one per line at indent.
func writeMetadata(buf *strings.Builder, metadata []*ast.Metadata, indent int) {
	for _, m := range metadata {
		buf.WriteString(strings.Repeat(" ", indent))
		buf.WriteString(m.Key)
		buf.WriteByte(':')
		if m.Value != nil {
			buf.WriteByte(' ')
			writeValue(buf, m.Value)
		}
		buf.WriteByte('\n')
	}
}

// writeValue writes a typed value; only strings are quoted.
func writeValue(buf *strings.Builder, v *ast.MetadataValue) {
	if v.StringValue != nil {
		writeQuoted(buf, *v.StringValue)
		return
	}
	buf.WriteString(v.String())
}
