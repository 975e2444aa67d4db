// Package parser implements a hand-written lexer and recursive-descent parser for
// the Beancount ledger format.
//
// The parser is line aware without newline tokens: a directive starts with a token
// in column 1, and every indented token on a later line continues it (metadata and
// postings). Pushtag/poptag and pushmeta/popmeta are applied while parsing, in file
// order, so the returned AST only carries their effect.
package parser

import (
	"context"
	"io"
	"strings"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/telemetry"
)

// Parser converts a token stream into an AST.
type Parser struct {
	source   []byte
	filename string
	tokens   []Token
	pos      int
	interner *Interner

	// pushtag / pushmeta stacks, in push order
	activeTags []ast.Tag
	activeMeta []*ast.Metadata
}

// NewParser lexes source and returns a parser positioned at the first token.
func NewParser(source []byte, filename string) (*Parser, error) {
	lexer := NewLexer(source, filename)
	tokens, err := lexer.ScanAll()
	if err != nil {
		return nil, err
	}
	return &Parser{
		source:   source,
		filename: filename,
		tokens:   tokens,
		interner: lexer.Interner(),
	}, nil
}

// Parse parses the whole token stream. Parsing stops at the first syntax error.
func (p *Parser) Parse() (*ast.AST, error) {
	tree := &ast.AST{
		Directives: make(ast.Directives, 0, len(p.tokens)/12+1),
	}

	for !p.isAtEnd() {
		tok := p.peek()

		// Org-mode section headers and stray indented lines are skipped.
		if tok.Column > 1 || tok.Type == ASTERISK {
			p.skipLine()
			continue
		}

		switch tok.Type {
		case DATE:
			directive, err := p.parseDated()
			if err != nil {
				return nil, err
			}
			p.applyPushed(directive)
			tree.Directives = append(tree.Directives, directive)

		case OPTION:
			opt, err := p.parseOption()
			if err != nil {
				return nil, err
			}
			tree.Options = append(tree.Options, opt)

		case INCLUDE:
			inc, err := p.parseInclude()
			if err != nil {
				return nil, err
			}
			tree.Includes = append(tree.Includes, inc)

		case PLUGIN:
			plugin, err := p.parsePlugin()
			if err != nil {
				return nil, err
			}
			tree.Plugins = append(tree.Plugins, plugin)

		case PUSHTAG, POPTAG:
			if err := p.parseTagStack(); err != nil {
				return nil, err
			}

		case PUSHMETA, POPMETA:
			if err := p.parseMetaStack(); err != nil {
				return nil, err
			}

		default:
			return nil, p.errorAtToken(tok, "unexpected %s %q at start of line", tok.Type, tok.String(p.source))
		}
	}

	return tree, nil
}

// parseDated dispatches on the keyword following a date.
func (p *Parser) parseDated() (ast.Directive, error) {
	dateTok := p.peek()
	pos := tokenPosition(dateTok, p.filename)

	date, err := p.parseDate()
	if err != nil {
		return nil, err
	}

	switch p.peek().Type {
	case OPEN:
		return p.parseOpen(pos, date)
	case CLOSE:
		return p.parseClose(pos, date)
	case COMMODITY:
		return p.parseCommodity(pos, date)
	case BALANCE:
		return p.parseBalance(pos, date)
	case PAD:
		return p.parsePad(pos, date)
	case NOTE:
		return p.parseNote(pos, date)
	case DOCUMENT:
		return p.parseDocument(pos, date)
	case PRICE:
		return p.parsePrice(pos, date)
	case EVENT:
		return p.parseEvent(pos, date)
	case QUERY:
		return p.parseQuery(pos, date)
	case CUSTOM:
		return p.parseCustom(pos, date)
	default:
		return p.parseTransaction(pos, date)
	}
}

// applyPushed attaches the currently pushed tags and metadata.
func (p *Parser) applyPushed(d ast.Directive) {
	if txn, ok := d.(*ast.Transaction); ok {
		for _, tag := range p.activeTags {
			if !containsTag(txn.Tags, tag) {
				txn.Tags = append(txn.Tags, tag)
			}
		}
	}
	for _, m := range p.activeMeta {
		if _, ok := ast.MetaString(d.GetMetadata(), m.Key); !ok {
			d.AddMetadata(&ast.Metadata{Key: m.Key, Value: m.Value})
		}
	}
}

func containsTag(tags []ast.Tag, tag ast.Tag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// parseOption parses: option STRING STRING
func (p *Parser) parseOption() (*ast.Option, error) {
	tok := p.advance()
	name, err := p.parseString()
	if err != nil {
		return nil, err
	}
	value, err := p.parseString()
	if err != nil {
		return nil, err
	}
	return &ast.Option{Pos: tokenPosition(tok, p.filename), Name: name, Value: value}, nil
}

// parseInclude parses: include STRING
func (p *Parser) parseInclude() (*ast.Include, error) {
	tok := p.advance()
	filename, err := p.parseString()
	if err != nil {
		return nil, err
	}
	return &ast.Include{Pos: tokenPosition(tok, p.filename), Filename: filename}, nil
}

// parsePlugin parses: plugin STRING [STRING]
func (p *Parser) parsePlugin() (*ast.Plugin, error) {
	tok := p.advance()
	name, err := p.parseString()
	if err != nil {
		return nil, err
	}
	plugin := &ast.Plugin{Pos: tokenPosition(tok, p.filename), Name: name}
	if p.check(STRING) && p.peek().Line == tok.Line {
		if plugin.Config, err = p.parseString(); err != nil {
			return nil, err
		}
	}
	return plugin, nil
}

// parseTagStack parses: pushtag TAG | poptag TAG
func (p *Parser) parseTagStack() error {
	kw := p.advance()
	tag, err := p.parseTag()
	if err != nil {
		return err
	}

	if kw.Type == PUSHTAG {
		p.activeTags = append(p.activeTags, tag)
		return nil
	}

	for i := len(p.activeTags) - 1; i >= 0; i-- {
		if p.activeTags[i] == tag {
			p.activeTags = append(p.activeTags[:i], p.activeTags[i+1:]...)
			return nil
		}
	}
	return p.errorAtToken(kw, "attempting to pop absent tag: '%s'", tag)
}

// parseMetaStack parses: pushmeta KEY: VALUE | popmeta KEY:
func (p *Parser) parseMetaStack() error {
	kw := p.advance()
	keyTok := p.advance()
	if keyTok.Type != IDENT && !keyTok.Type.IsKeyword() {
		return p.errorAtToken(keyTok, "expected metadata key")
	}
	colon := p.consume(COLON)
	if colon.Type == ILLEGAL {
		return p.errorAtToken(p.peek(), "expected ':'")
	}
	key := keyTok.String(p.source)

	if kw.Type == PUSHMETA {
		value, err := p.parseMetadataValue(colon.Line)
		if err != nil {
			return err
		}
		p.activeMeta = append(p.activeMeta, &ast.Metadata{Key: key, Value: value})
		return nil
	}

	for i := len(p.activeMeta) - 1; i >= 0; i-- {
		if p.activeMeta[i].Key == key {
			p.activeMeta = append(p.activeMeta[:i], p.activeMeta[i+1:]...)
			return nil
		}
	}
	return p.errorAtToken(kw, "attempting to pop absent metadata key: '%s'", key)
}

// skipLine advances past all tokens on the current line.
func (p *Parser) skipLine() {
	line := p.peek().Line
	for !p.isAtEnd() && p.peek().Line == line {
		p.advance()
	}
}

// Parse parses a Beancount document from r.
func Parse(ctx context.Context, r io.Reader) (*ast.AST, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(ctx, data)
}

// ParseString parses a Beancount document held in a string.
func ParseString(ctx context.Context, str string) (*ast.AST, error) {
	return ParseBytes(ctx, []byte(str))
}

// ParseBytes parses a Beancount document held in memory.
func ParseBytes(ctx context.Context, data []byte) (*ast.AST, error) {
	return ParseBytesWithFilename(ctx, "", data)
}

// ParseBytesWithFilename parses data and records filename in every position.
func ParseBytesWithFilename(ctx context.Context, filename string, data []byte) (*ast.AST, error) {
	collector := telemetry.FromContext(ctx)
	name := "parse"
	if filename != "" {
		name = "parse " + shortName(filename)
	}
	timer := collector.Start(name)
	defer timer.End()

	p, err := NewParser(data, filename)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

func shortName(filename string) string {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		return filename[i+1:]
	}
	return filename
}
