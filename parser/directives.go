package parser

import "github.com/robinvdvleuten/beancount-scc/ast"

// Directive parsers for all non-transaction directives.
// These are relatively simple parsers with deterministic structure; each one
// finishes its header line and then collects indented metadata.

// finish checks the header line is fully consumed and parses trailing metadata.
func (p *Parser) finish(line int, d ast.Directive) (ast.Directive, error) {
	if err := p.expectEndOfLine(line); err != nil {
		return nil, err
	}
	metadata, err := p.parseMetadata(line)
	if err != nil {
		return nil, err
	}
	d.AddMetadata(metadata...)
	return d, nil
}

// parseOpen parses: DATE open ACCOUNT [CURRENCY[,CURRENCY]*] ["BOOKING_METHOD"]
func (p *Parser) parseOpen(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	open := &ast.Open{
		Pos:     pos,
		Date:    date,
		Account: account,
	}

	if p.check(IDENT) && p.peek().Line == pos.Line {
		for {
			currency, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			open.ConstraintCurrencies = append(open.ConstraintCurrencies, currency)
			if !p.match(COMMA) {
				break
			}
		}
	}

	if p.check(STRING) && p.peek().Line == pos.Line {
		if open.BookingMethod, err = p.parseString(); err != nil {
			return nil, err
		}
	}

	return p.finish(pos.Line, open)
}

// parseClose parses: DATE close ACCOUNT
func (p *Parser) parseClose(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	return p.finish(pos.Line, &ast.Close{Pos: pos, Date: date, Account: account})
}

// parseCommodity parses: DATE commodity CURRENCY
func (p *Parser) parseCommodity(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	currency, err := p.parseIdent()
	if err != nil {
		return nil, err
	}

	return p.finish(pos.Line, &ast.Commodity{Pos: pos, Date: date, Currency: currency})
}

// parseBalance parses: DATE balance ACCOUNT NUMBER [~ NUMBER] CURRENCY
func (p *Parser) parseBalance(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	value, err := p.parseNumber()
	if err != nil {
		return nil, err
	}

	bal := &ast.Balance{
		Pos:     pos,
		Date:    date,
		Account: account,
	}

	if p.match(TILDE) {
		if bal.Tolerance, err = p.parseNumber(); err != nil {
			return nil, err
		}
	}

	currency, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	bal.Amount = &ast.Amount{Value: value, Currency: currency}

	return p.finish(pos.Line, bal)
}

// parsePad parses: DATE pad ACCOUNT ACCOUNT_PAD
func (p *Parser) parsePad(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	accountPad, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	return p.finish(pos.Line, &ast.Pad{Pos: pos, Date: date, Account: account, AccountPad: accountPad})
}

// parseNote parses: DATE note ACCOUNT STRING
func (p *Parser) parseNote(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	description, err := p.parseString()
	if err != nil {
		return nil, err
	}

	return p.finish(pos.Line, &ast.Note{Pos: pos, Date: date, Account: account, Description: description})
}

// parseDocument parses: DATE document ACCOUNT STRING [TAG | LINK]*
func (p *Parser) parseDocument(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	path, err := p.parseString()
	if err != nil {
		return nil, err
	}

	doc := &ast.Document{
		Pos:            pos,
		Date:           date,
		Account:        account,
		PathToDocument: path,
	}

	for p.peek().Line == pos.Line && (p.check(TAG) || p.check(LINK)) {
		if p.check(TAG) {
			tag, _ := p.parseTag()
			doc.Tags = append(doc.Tags, tag)
		} else {
			link, _ := p.parseLink()
			doc.Links = append(doc.Links, link)
		}
	}

	return p.finish(pos.Line, doc)
}

// parsePrice parses: DATE price CURRENCY AMOUNT
func (p *Parser) parsePrice(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	commodity, err := p.parseIdent()
	if err != nil {
		return nil, err
	}

	amount, err := p.parseAmount()
	if err != nil {
		return nil, err
	}

	return p.finish(pos.Line, &ast.Price{Pos: pos, Date: date, Commodity: commodity, Amount: amount})
}

// parseEvent parses: DATE event STRING STRING
func (p *Parser) parseEvent(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	name, err := p.parseString()
	if err != nil {
		return nil, err
	}

	value, err := p.parseString()
	if err != nil {
		return nil, err
	}

	return p.finish(pos.Line, &ast.Event{Pos: pos, Date: date, Name: name, Value: value})
}

// parseQuery parses: DATE query STRING STRING
func (p *Parser) parseQuery(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	name, err := p.parseString()
	if err != nil {
		return nil, err
	}

	query, err := p.parseString()
	if err != nil {
		return nil, err
	}

	return p.finish(pos.Line, &ast.Query{Pos: pos, Date: date, Name: name, QueryString: query})
}

// parseCustom parses: DATE custom STRING VALUE*
// where VALUE can be STRING | DATE | BOOL | ACCOUNT | AMOUNT | NUMBER
func (p *Parser) parseCustom(pos ast.Position, date *ast.Date) (ast.Directive, error) {
	p.advance()

	customType, err := p.parseString()
	if err != nil {
		return nil, err
	}

	custom := &ast.Custom{
		Pos:  pos,
		Date: date,
		Type: customType,
	}

	for !p.isAtEnd() && p.peek().Line == pos.Line {
		value, err := p.parseMetadataValue(pos.Line)
		if err != nil {
			return nil, err
		}
		custom.Values = append(custom.Values, &ast.CustomValue{MetadataValue: *value})
	}

	return p.finish(pos.Line, custom)
}
