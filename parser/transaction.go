package parser

import "github.com/robinvdvleuten/beancount-scc/ast"

// Transaction parsing - the most complex directive type.
// Transactions have postings, which are indented on subsequent lines.

// parseTransaction parses a transaction:
//
//	DATE [txn] FLAG [[PAYEE] NARRATION] [TAG | LINK]*
//	  [METADATA]*
//	  POSTING*
func (p *Parser) parseTransaction(pos ast.Position, date *ast.Date) (*ast.Transaction, error) {
	txn := &ast.Transaction{
		Pos:  pos,
		Date: date,
	}
	line := pos.Line

	switch tok := p.peek(); {
	case tok.Type == TXN:
		p.advance()
		txn.Flag = "*"
	case tok.Type == ASTERISK:
		p.advance()
		txn.Flag = "*"
	case tok.Type == EXCLAIM:
		p.advance()
		txn.Flag = "!"
	case tok.Type == IDENT && tok.End-tok.Start == 1:
		// Single-letter flags such as P (padding) or S (summarization).
		p.advance()
		txn.Flag = tok.String(p.source)
	default:
		return nil, p.errorAtToken(tok, "expected directive or transaction flag but got %s %q", tok.Type, tok.String(p.source))
	}

	// One string is the narration; two strings are payee and narration.
	if p.check(STRING) && p.peek().Line == line {
		first, err := p.parseString()
		if err != nil {
			return nil, err
		}
		if p.check(STRING) && p.peek().Line == line {
			second, err := p.parseString()
			if err != nil {
				return nil, err
			}
			txn.Payee = first
			txn.Narration = second
		} else {
			txn.Narration = first
		}
	}

	for p.peek().Line == line && (p.check(TAG) || p.check(LINK)) {
		if p.check(TAG) {
			tag, err := p.parseTag()
			if err != nil {
				return nil, err
			}
			txn.Tags = append(txn.Tags, tag)
		} else {
			link, err := p.parseLink()
			if err != nil {
				return nil, err
			}
			txn.Links = append(txn.Links, link)
		}
	}

	if err := p.expectEndOfLine(line); err != nil {
		return nil, err
	}

	// Transaction metadata comes before the first posting; any metadata after a
	// posting belongs to that posting.
	metadata, err := p.parseMetadata(line)
	if err != nil {
		return nil, err
	}
	txn.Metadata = metadata

	for p.isPostingStart(line) {
		posting, err := p.parsePosting()
		if err != nil {
			return nil, err
		}
		txn.Postings = append(txn.Postings, posting)
	}

	return txn, nil
}

// isPostingStart reports whether an indented posting starts on a line after line.
func (p *Parser) isPostingStart(line int) bool {
	tok := p.peek()
	if tok.Line <= line || tok.Column <= 1 {
		return false
	}
	switch tok.Type {
	case ACCOUNT:
		return true
	case ASTERISK, EXCLAIM:
		return p.peekAhead(1).Type == ACCOUNT
	}
	return false
}

// parsePosting parses a single posting:
//
//	[FLAG] ACCOUNT [AMOUNT] [COST] [@ PRICE | @@ TOTAL]
//	  [METADATA]*
func (p *Parser) parsePosting() (*ast.Posting, error) {
	first := p.peek()
	line := first.Line
	posting := &ast.Posting{Pos: tokenPosition(first, p.filename)}

	if p.match(ASTERISK) {
		posting.Flag = "*"
	} else if p.match(EXCLAIM) {
		posting.Flag = "!"
	}

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}
	posting.Account = account

	if p.isNumberStart() && p.peek().Line == line {
		amount, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		posting.Amount = amount
	}

	if (p.check(LBRACE) || p.check(LDBRACE)) && p.peek().Line == line {
		cost, err := p.parseCost()
		if err != nil {
			return nil, err
		}
		posting.Cost = cost
	}

	if (p.check(AT) || p.check(ATAT)) && p.peek().Line == line {
		posting.PriceTotal = p.advance().Type == ATAT
		price, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		posting.Price = price
	}

	if err := p.expectEndOfLine(line); err != nil {
		return nil, err
	}

	if posting.Metadata, err = p.parseMetadata(line); err != nil {
		return nil, err
	}

	return posting, nil
}

// expectEndOfLine fails if any token remains on line.
func (p *Parser) expectEndOfLine(line int) error {
	tok := p.peek()
	if !p.isAtEnd() && tok.Line == line {
		return p.errorAtToken(tok, "unexpected %s %q", tok.Type, tok.String(p.source))
	}
	return nil
}
