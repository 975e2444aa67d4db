package parser

// Lexer implements a zero-copy lexer for Beancount files.
//
// The zero-copy approach:
// - Tokens store byte offsets, not string values
// - String interning for repeated values
// - Pre-allocated token buffer
//
// Newlines are whitespace; the parser relies on each token's Line and Column to
// detect indented continuation lines.

import (
	"fmt"
	"unicode/utf8"
)

// InvalidUTF8Error reports a byte sequence that is not valid UTF-8.
type InvalidUTF8Error struct {
	Filename string
	Line     int
	Column   int
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: invalid UTF-8 encoding", e.Filename, e.Line, e.Column)
}

// Lexer tokenizes Beancount source code.
type Lexer struct {
	source   []byte
	filename string
	pos      int
	line     int
	column   int
	tokens   []Token
	interner *Interner
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source []byte, filename string) *Lexer {
	// Empirically ~1 token per 20 bytes.
	estimatedTokens := len(source)/20 + 64

	internerCap := len(source) / 40
	if internerCap < 256 {
		internerCap = 256
	}

	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		column:   1,
		tokens:   make([]Token, 0, estimatedTokens),
		interner: NewInterner(internerCap),
	}
}

// Interner returns the string interner, shared with the parser.
func (l *Lexer) Interner() *Interner {
	return l.interner
}

// ScanAll lexes the entire source and returns all tokens, terminated by EOF.
func (l *Lexer) ScanAll() ([]Token, error) {
	if !utf8.Valid(l.source) {
		return nil, l.invalidUTF8()
	}

	for l.pos < len(l.source) {
		l.skipWhitespace()

		if l.pos >= len(l.source) {
			break
		}

		if l.peek() == ';' {
			l.skipComment()
			continue
		}

		l.tokens = append(l.tokens, l.scanToken())
	}

	l.tokens = append(l.tokens, Token{
		Type:   EOF,
		Start:  l.pos,
		End:    l.pos,
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens, nil
}

func (l *Lexer) invalidUTF8() error {
	line, col := 1, 1
	for i := 0; i < len(l.source); {
		r, size := utf8.DecodeRune(l.source[i:])
		if r == utf8.RuneError && size <= 1 {
			return &InvalidUTF8Error{Filename: l.filename, Line: line, Column: col}
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i += size
	}
	return &InvalidUTF8Error{Filename: l.filename, Line: line, Column: col}
}

// scanToken scans the next token from the current position.
func (l *Lexer) scanToken() Token {
	start := l.pos
	startLine := l.line
	startCol := l.column

	ch := l.advance()

	switch {
	// Dates must be tried before numbers.
	case ch >= '0' && ch <= '9':
		if l.isDatePattern(start) {
			return l.scanDate(start, startLine, startCol)
		}
		return l.scanNumber(start, startLine, startCol)

	case ch == '"':
		return l.scanString(start, startLine, startCol)

	case ch == '#':
		return l.scanWord(TAG, start, startLine, startCol)

	case ch == '^':
		return l.scanWord(LINK, start, startLine, startCol)

	// Accounts (start with capital) or identifiers. Non-ASCII bytes start Unicode
	// account roots.
	case ch >= 'A' && ch <= 'Z' || ch >= 0x80:
		return l.scanAccountOrIdent(start, startLine, startCol)

	case ch >= 'a' && ch <= 'z':
		return l.scanKeywordOrIdent(start, startLine, startCol)

	case ch == '*':
		return Token{ASTERISK, start, l.pos, startLine, startCol}
	case ch == '!':
		return Token{EXCLAIM, start, l.pos, startLine, startCol}
	case ch == ':':
		return Token{COLON, start, l.pos, startLine, startCol}
	case ch == ',':
		return Token{COMMA, start, l.pos, startLine, startCol}
	case ch == '-':
		return Token{MINUS, start, l.pos, startLine, startCol}
	case ch == '+':
		return Token{PLUS, start, l.pos, startLine, startCol}
	case ch == '/':
		return Token{SLASH, start, l.pos, startLine, startCol}
	case ch == '(':
		return Token{LPAREN, start, l.pos, startLine, startCol}
	case ch == ')':
		return Token{RPAREN, start, l.pos, startLine, startCol}
	case ch == '~':
		return Token{TILDE, start, l.pos, startLine, startCol}

	case ch == '{':
		if l.peek() == '{' {
			l.advance()
			return Token{LDBRACE, start, l.pos, startLine, startCol}
		}
		return Token{LBRACE, start, l.pos, startLine, startCol}

	case ch == '}':
		if l.peek() == '}' {
			l.advance()
			return Token{RDBRACE, start, l.pos, startLine, startCol}
		}
		return Token{RBRACE, start, l.pos, startLine, startCol}

	case ch == '@':
		if l.peek() == '@' {
			l.advance()
			return Token{ATAT, start, l.pos, startLine, startCol}
		}
		return Token{AT, start, l.pos, startLine, startCol}

	default:
		return Token{ILLEGAL, start, l.pos, startLine, startCol}
	}
}

// isDatePattern checks if the position starts a date pattern YYYY-MM-DD.
func (l *Lexer) isDatePattern(start int) bool {
	if start+10 > len(l.source) {
		return false
	}

	src := l.source[start:]
	for i := 0; i < 10; i++ {
		if i == 4 || i == 7 {
			if src[i] != '-' {
				return false
			}
			continue
		}
		if src[i] < '0' || src[i] > '9' {
			return false
		}
	}
	return true
}

// scanDate scans a date: YYYY-MM-DD. The first digit is already consumed.
func (l *Lexer) scanDate(start, line, col int) Token {
	for i := 0; i < 9; i++ {
		l.advance()
	}
	return Token{DATE, start, l.pos, line, col}
}

// scanNumber scans an unsigned number: [0-9][0-9,]*(\.[0-9]*)?
// Thousands separators are accepted when followed by a digit.
func (l *Lexer) scanNumber(start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if isDigit(ch) {
			l.advance()
			continue
		}
		if ch == ',' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1]) {
			l.advance()
			continue
		}
		break
	}

	if l.pos < len(l.source) && l.source[l.pos] == '.' {
		l.advance()
		for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
			l.advance()
		}
	}

	return Token{NUMBER, start, l.pos, line, col}
}

// scanString scans a quoted string. Strings may span lines.
func (l *Lexer) scanString(start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '"' {
			l.advance()
			return Token{STRING, start, l.pos, line, col}
		}
		if ch == '\\' && l.pos+1 < len(l.source) {
			l.advance()
		}
		l.advance()
	}

	// Unterminated string.
	return Token{ILLEGAL, start, l.pos, line, col}
}

// scanWord scans a tag or link body: [A-Za-z0-9_/.-]+
func (l *Lexer) scanWord(typ TokenType, start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if !isLetter(ch) && !isDigit(ch) && ch != '_' && ch != '-' && ch != '/' && ch != '.' {
			break
		}
		l.advance()
	}

	if l.pos-start == 1 {
		return Token{ILLEGAL, start, l.pos, line, col}
	}
	return Token{typ, start, l.pos, line, col}
}

// scanAccountOrIdent scans an account name or identifier starting with a capital
// letter or a Unicode character. Accounts contain colons (Assets:Bank:Checking),
// identifiers don't (USD). Currencies may contain digits and the characters ' . _ -.
func (l *Lexer) scanAccountOrIdent(start, line, col int) Token {
	hasColon := false

	for l.pos < len(l.source) {
		ch := l.source[l.pos]

		if ch == ':' {
			// A trailing colon belongs to the next token (e.g. "Key:" in metadata is
			// not an account).
			if l.pos+1 >= len(l.source) || !isAccountStart(l.source[l.pos+1]) {
				break
			}
			hasColon = true
			l.advance()
			continue
		}

		if !isLetter(ch) && !isDigit(ch) && ch < 0x80 && ch != '-' && ch != '_' && ch != '.' && ch != '\'' {
			break
		}
		l.advance()
	}

	if hasColon {
		return Token{ACCOUNT, start, l.pos, line, col}
	}

	return Token{IDENT, start, l.pos, line, col}
}

// scanKeywordOrIdent scans a keyword or identifier starting with lowercase letter.
func (l *Lexer) scanKeywordOrIdent(start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if !isLetter(ch) && !isDigit(ch) && ch != '_' && ch != '-' {
			break
		}
		l.advance()
	}

	if typ, ok := keywords[string(l.source[start:l.pos])]; ok {
		return Token{typ, start, l.pos, line, col}
	}
	return Token{IDENT, start, l.pos, line, col}
}

// skipWhitespace skips whitespace and updates line/column tracking.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			break
		}
		l.advance()
	}
}

// skipComment skips a comment up to, not including, the end of line.
func (l *Lexer) skipComment() {
	for l.pos < len(l.source) && l.source[l.pos] != '\n' {
		l.pos++
		l.column++
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else if ch < 0x80 || ch >= 0xC0 {
		// Count runes, not continuation bytes.
		l.column++
	}
	return ch
}

func isDigit(ch byte) bool  { return ch >= '0' && ch <= '9' }
func isLetter(ch byte) bool { return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' }

func isAccountStart(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || isDigit(ch) || ch >= 0x80
}
