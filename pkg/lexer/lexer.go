package lexer

import (
	"strings"
	"unicode"

	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/token"
)

type Lexer struct {
	source []rune
	pos    int
	line   int
	column int
	cfg    *config.Config
}

func NewLexer(source []rune, cfg *config.Config) *Lexer {
	return &Lexer{source: source, line: 1, column: 1, cfg: cfg}
}

// Tokenize scans the whole source. The EOF sentinel is not part of the result.
func Tokenize(source string, cfg *config.Config) []token.Token {
	l := NewLexer([]rune(source), cfg)
	var toks []token.Token
	for {
		tok := l.Next()
		if tok.Kind == token.EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

// Next returns the next token. Every call either consumes input or returns EOF.
func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return token.Token{Kind: token.EOF, Lexeme: "EOF", Line: startLine, Column: startCol}
	}

	ch := l.peek()
	if pair := string([]rune{ch, l.peekNext()}); token.LongOperators[pair] {
		l.advance()
		l.advance()
		return l.makeToken(token.Operator, startPos, startCol, startLine)
	}
	if token.Operators[ch] {
		l.advance()
		return l.makeToken(token.Operator, startPos, startCol, startLine)
	}
	if token.Separators[ch] {
		l.advance()
		return l.makeToken(token.Separator, startPos, startCol, startLine)
	}

	switch {
	case unicode.IsLetter(ch):
		return l.identifierOrKeyword(startPos, startCol, startLine)
	case unicode.IsDigit(ch):
		return l.numberLiteral(startPos, startCol, startLine)
	case ch == '.':
		for !l.isAtEnd() && (unicode.IsDigit(l.peek()) || l.peek() == '.') {
			l.advance()
		}
		return l.makeToken(token.Invalid, startPos, startCol, startLine)
	}

	l.advance()
	return l.makeToken(token.Invalid, startPos, startCol, startLine)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(kind token.Kind, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Kind: kind, Lexeme: string(l.source[startPos:l.pos]),
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		switch {
		case unicode.IsSpace(l.peek()):
			l.advance()
		case l.peek() == '[' && l.peekNext() == '*':
			l.blockComment()
		default:
			return
		}
	}
}

// blockComment skips a [* ... *] region. An unterminated comment runs to the end of input.
func (l *Lexer) blockComment() {
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == ']' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) {
		l.advance()
	}
	tok := l.makeToken(token.Identifier, startPos, startCol, startLine)

	last := l.source[l.pos-1]
	switch {
	case token.Keywords[tok.Lexeme]:
		tok.Kind = token.Keyword
	case unicode.IsDigit(last) && !l.cfg.IsFeatureEnabled(config.FeatDigitSuffix):
		tok.Kind = token.Invalid
	}
	return tok
}

// numberLiteral consumes digits, letters and at most one '.'. Letters, a trailing '.'
// or a second '.' make the run invalid; the second '.' itself is left for the next token.
func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	hasDot, hasLetter, extraDot := false, false, false
	for !l.isAtEnd() {
		ch := l.peek()
		if ch == '.' {
			if hasDot {
				extraDot = true
				break
			}
			hasDot = true
		} else if unicode.IsLetter(ch) {
			hasLetter = true
		} else if !unicode.IsDigit(ch) {
			break
		}
		l.advance()
	}

	tok := l.makeToken(token.Integer, startPos, startCol, startLine)
	switch {
	case hasLetter, extraDot, strings.HasSuffix(tok.Lexeme, "."):
		tok.Kind = token.Invalid
	case hasDot:
		tok.Kind = token.Real
	}
	return tok
}
