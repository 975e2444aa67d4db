package parser

import (
	"strconv"
	"strings"

	"github.com/robinvdvleuten/beancount-scc/ast"
)

// Helper parsing methods used across directive parsers.
// These implement the common patterns in Beancount syntax.

// parseDate parses a DATE token and converts it to *ast.Date.
func (p *Parser) parseDate() (*ast.Date, error) {
	tok := p.peek()
	if tok.Type != DATE {
		return nil, p.errorAtToken(tok, "expected date")
	}
	p.advance()

	date, err := ast.NewDate(tok.String(p.source))
	if err != nil {
		return nil, p.errorAtToken(tok, "%v", err)
	}
	return date, nil
}

// parseAccount parses an ACCOUNT token. The account name is interned.
func (p *Parser) parseAccount() (ast.Account, error) {
	tok := p.peek()
	if tok.Type != ACCOUNT {
		return "", p.errorAtToken(tok, "expected account but got %s %q", tok.Type, tok.String(p.source))
	}
	p.advance()

	account := ast.Account(p.interner.InternBytes(tok.Bytes(p.source)))
	if err := account.Validate(); err != nil {
		return "", p.errorAtToken(tok, "invalid account: %v", err)
	}
	return account, nil
}

// isNumberStart reports whether the next token can start a number or expression.
func (p *Parser) isNumberStart() bool {
	switch p.peek().Type {
	case NUMBER, MINUS, PLUS, LPAREN:
		return true
	}
	return false
}

// parseNumber parses a signed number or an arithmetic expression on the current line.
//
//	100.50          → simple number (kept verbatim, thousands separators removed)
//	-50.00          → negative number (kept verbatim)
//	(40.00/3)       → expression evaluated at parse time
//	40.00/3 + 5     → expression with operators
func (p *Parser) parseNumber() (string, error) {
	start := p.pos

	// Fast path: [-]NUMBER not followed by an operator on the same line.
	i := start
	if p.tokens[i].Type == MINUS {
		i++
	}
	if i < len(p.tokens) && p.tokens[i].Type == NUMBER && !p.isOperatorAt(i+1, p.tokens[i].Line) {
		var sb strings.Builder
		if i > start {
			sb.WriteByte('-')
		}
		sb.WriteString(strings.ReplaceAll(p.tokens[i].String(p.source), ",", ""))
		p.pos = i + 1
		return sb.String(), nil
	}

	result, err := p.parseExpression()
	if err != nil {
		return "", err
	}
	return result.String(), nil
}

// isOperatorAt reports whether token i is an arithmetic operator on line.
func (p *Parser) isOperatorAt(i, line int) bool {
	if i >= len(p.tokens) || p.tokens[i].Line != line {
		return false
	}
	switch p.tokens[i].Type {
	case PLUS, MINUS, ASTERISK, SLASH:
		return true
	}
	return false
}

// parseAmount parses: NUMBER CURRENCY
func (p *Parser) parseAmount() (*ast.Amount, error) {
	value, err := p.parseNumber()
	if err != nil {
		return nil, err
	}

	currTok := p.peek()
	if currTok.Type != IDENT {
		return nil, p.errorAtToken(currTok, "expected currency")
	}
	p.advance()

	return &ast.Amount{
		Value:    value,
		Currency: p.interner.InternBytes(currTok.Bytes(p.source)),
	}, nil
}

// parseCost parses a cost specification:
//
//	{ [*] | [AMOUNT] [, DATE] [, LABEL] }   per-unit
//	{{ AMOUNT [, DATE] [, LABEL] }}         total
func (p *Parser) parseCost() (*ast.Cost, error) {
	open := p.advance()
	closing := RBRACE
	cost := &ast.Cost{}
	if open.Type == LDBRACE {
		closing = RDBRACE
		cost.IsTotal = true
	}

	if p.match(ASTERISK) {
		cost.IsMerge = true
	}

	for !p.check(closing) {
		switch {
		case p.isNumberStart():
			amt, err := p.parseAmount()
			if err != nil {
				return nil, err
			}
			cost.Amount = amt
		case p.check(DATE):
			date, err := p.parseDate()
			if err != nil {
				return nil, err
			}
			cost.Date = date
		case p.check(STRING):
			label, err := p.parseString()
			if err != nil {
				return nil, err
			}
			cost.Label = label
		default:
			tok := p.peek()
			return nil, p.errorAtToken(tok, "unexpected %s %q in cost specification", tok.Type, tok.String(p.source))
		}

		if !p.match(COMMA) {
			break
		}
	}

	if !p.match(closing) {
		return nil, p.errorAtToken(p.peek(), "expected '%s'", closing)
	}
	return cost, nil
}

// parseString parses a STRING token and unquotes it.
func (p *Parser) parseString() (string, error) {
	tok := p.peek()
	if tok.Type != STRING {
		return "", p.errorAtToken(tok, "expected string")
	}
	p.advance()
	return p.unquoteString(tok.String(p.source)), nil
}

// parseIdent parses an IDENT token.
func (p *Parser) parseIdent() (string, error) {
	tok := p.peek()
	if tok.Type != IDENT {
		return "", p.errorAtToken(tok, "expected identifier")
	}
	p.advance()
	return p.interner.InternBytes(tok.Bytes(p.source)), nil
}

// parseTag parses a TAG token and returns the tag without the # prefix.
func (p *Parser) parseTag() (ast.Tag, error) {
	tok := p.peek()
	if tok.Type != TAG {
		return "", p.errorAtToken(tok, "expected tag")
	}
	p.advance()
	return ast.Tag(tok.String(p.source)[1:]), nil
}

// parseLink parses a LINK token and returns the link without the ^ prefix.
func (p *Parser) parseLink() (ast.Link, error) {
	tok := p.peek()
	if tok.Type != LINK {
		return "", p.errorAtToken(tok, "expected link")
	}
	p.advance()
	return ast.Link(tok.String(p.source)[1:]), nil
}

// isMetadataKeyAt reports whether the next tokens form "key:" on a line after
// afterLine. Keys may be identifiers or keywords (e.g. "price:").
func (p *Parser) isMetadataKeyAt(afterLine int) bool {
	keyTok := p.peek()
	if keyTok.Line <= afterLine || keyTok.Column <= 1 {
		return false
	}
	if keyTok.Type != IDENT && !keyTok.Type.IsKeyword() {
		return false
	}
	if first := p.source[keyTok.Start]; first < 'a' || first > 'z' {
		return false
	}
	colon := p.peekAhead(1)
	return colon.Type == COLON && colon.Start == keyTok.End
}

// parseMetadata parses indented "key: value" lines following line afterLine.
func (p *Parser) parseMetadata(afterLine int) ([]*ast.Metadata, error) {
	var metadata []*ast.Metadata

	for p.isMetadataKeyAt(afterLine) {
		keyTok := p.advance()
		colon := p.advance()

		value, err := p.parseMetadataValue(colon.Line)
		if err != nil {
			return nil, err
		}

		metadata = append(metadata, &ast.Metadata{
			Key:   p.interner.InternBytes(keyTok.Bytes(p.source)),
			Value: value,
		})
		afterLine = colon.Line
	}

	return metadata, nil
}

// parseMetadataValue parses a typed value on line. An empty value yields nil.
func (p *Parser) parseMetadataValue(line int) (*ast.MetadataValue, error) {
	tok := p.peek()
	if p.isAtEnd() || tok.Line != line {
		return nil, nil
	}

	switch tok.Type {
	case STRING:
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{StringValue: &s}, nil

	case DATE:
		d, err := p.parseDate()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Date: d}, nil

	case ACCOUNT:
		a, err := p.parseAccount()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Account: &a}, nil

	case TAG:
		t, err := p.parseTag()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Tag: &t}, nil

	case LINK:
		l, err := p.parseLink()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Link: &l}, nil

	case IDENT:
		p.advance()
		s := tok.String(p.source)
		switch s {
		case "TRUE", "FALSE":
			b := s == "TRUE"
			return &ast.MetadataValue{Boolean: &b}, nil
		}
		s = p.interner.Intern(s)
		return &ast.MetadataValue{Currency: &s}, nil

	case NUMBER, MINUS, PLUS, LPAREN:
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		if p.check(IDENT) && p.peek().Line == line {
			cur := p.advance()
			return &ast.MetadataValue{Amount: &ast.Amount{Value: n, Currency: p.interner.InternBytes(cur.Bytes(p.source))}}, nil
		}
		return &ast.MetadataValue{Number: &n}, nil
	}

	return nil, p.errorAtToken(tok, "unexpected %s %q in metadata value", tok.Type, tok.String(p.source))
}

// unquoteString removes surrounding quotes from a string and resolves escapes.
func (p *Parser) unquoteString(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if !strings.ContainsRune(s, '\\') && !strings.ContainsRune(s, '\n') {
			return s[1 : len(s)-1]
		}
		if unquoted, err := strconv.Unquote(strings.ReplaceAll(s, "\n", `\n`)); err == nil {
			return unquoted
		}
		return s[1 : len(s)-1]
	}
	return s
}

// Helper methods for token navigation

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAhead(n int) Token {
	pos := p.pos + n
	if pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[pos]
}

func (p *Parser) previous() Token {
	if p.pos == 0 {
		return Token{Type: ILLEGAL}
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == EOF
}

func (p *Parser) check(typ TokenType) bool {
	return p.peek().Type == typ
}

func (p *Parser) match(types ...TokenType) bool {
	for _, typ := range types {
		if p.check(typ) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

// consume advances past a token of type typ, or returns an ILLEGAL token.
func (p *Parser) consume(typ TokenType) Token {
	if p.check(typ) {
		return p.advance()
	}
	return Token{Type: ILLEGAL}
}

func (p *Parser) errorAtToken(tok Token, format string, args ...interface{}) error {
	return newErrorf(tokenPosition(tok, p.filename), format, args...)
}

// tokenPosition extracts position information from a token.
func tokenPosition(tok Token, filename string) ast.Position {
	return ast.Position{
		Filename: filename,
		Offset:   tok.Start,
		Line:     tok.Line,
		Column:   tok.Column,
	}
}
