package parser

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Expression parsing for arithmetic expressions in amounts.
//
// Operator precedence (low to high):
//   1. + -     (addition, subtraction)
//   2. * /     (multiplication, division)
//   3. unary -, ( )
//
// Grammar:
//   expression  → term (('+' | '-') term)*
//   term        → factor (('*' | '/') factor)*
//   factor      → NUMBER | '-' factor | '+' factor | '(' expression ')'
//
// All operands of one expression must sit on the same line.

// parseExpression parses and evaluates an arithmetic expression.
func (p *Parser) parseExpression() (decimal.Decimal, error) {
	return p.parseAddSubtract(p.peek().Line)
}

// parseAddSubtract handles addition and subtraction (lowest precedence).
func (p *Parser) parseAddSubtract(line int) (decimal.Decimal, error) {
	left, err := p.parseMultiplyDivide(line)
	if err != nil {
		return decimal.Zero, err
	}

	for p.isOperatorAt(p.pos, line) && (p.check(PLUS) || p.check(MINUS)) {
		op := p.advance().Type

		right, err := p.parseMultiplyDivide(line)
		if err != nil {
			return decimal.Zero, err
		}

		if op == PLUS {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}

	return left, nil
}

// parseMultiplyDivide handles multiplication and division.
func (p *Parser) parseMultiplyDivide(line int) (decimal.Decimal, error) {
	left, err := p.parseFactor(line)
	if err != nil {
		return decimal.Zero, err
	}

	for p.isOperatorAt(p.pos, line) && (p.check(ASTERISK) || p.check(SLASH)) {
		opToken := p.advance()

		right, err := p.parseFactor(line)
		if err != nil {
			return decimal.Zero, err
		}

		if opToken.Type == ASTERISK {
			left = left.Mul(right)
			continue
		}
		if right.IsZero() {
			return decimal.Zero, p.errorAtToken(opToken, "division by zero")
		}
		left = left.Div(right)
	}

	return left, nil
}

// parseFactor handles numbers, unary signs and parenthesized expressions.
func (p *Parser) parseFactor(line int) (decimal.Decimal, error) {
	tok := p.peek()
	if tok.Line != line {
		return decimal.Zero, p.errorAtToken(tok, "incomplete expression")
	}

	switch tok.Type {
	case LPAREN:
		p.advance()
		result, err := p.parseAddSubtract(line)
		if err != nil {
			return decimal.Zero, err
		}
		if !p.check(RPAREN) {
			return decimal.Zero, p.errorAtToken(p.peek(), "expected ')' after expression")
		}
		p.advance()
		return result, nil

	case NUMBER:
		p.advance()
		d, err := decimal.NewFromString(strings.ReplaceAll(tok.String(p.source), ",", ""))
		if err != nil {
			return decimal.Zero, p.errorAtToken(tok, "invalid number in expression: %v", err)
		}
		return d, nil

	case MINUS:
		p.advance()
		value, err := p.parseFactor(line)
		if err != nil {
			return decimal.Zero, err
		}
		return value.Neg(), nil

	case PLUS:
		p.advance()
		return p.parseFactor(line)
	}

	return decimal.Zero, p.errorAtToken(tok, "expected number or '(' in expression, got %s", tok.Type)
}
