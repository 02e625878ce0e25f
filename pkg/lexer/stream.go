package lexer

import "github.com/xplshn/ratc/pkg/token"

// Stream is a read-only cursor over a token slice with one token of lookahead.
type Stream struct {
	tokens []token.Token
	pos    int
	eof    token.Token
}

func NewStream(tokens []token.Token) *Stream {
	eof := token.Token{Kind: token.EOF, Lexeme: "EOF"}
	if n := len(tokens); n > 0 {
		last := tokens[n-1]
		eof.Line, eof.Column = last.Line, last.Column+last.Len
	}
	return &Stream{tokens: tokens, eof: eof}
}

func (s *Stream) at(i int) token.Token {
	if i < len(s.tokens) {
		return s.tokens[i]
	}
	return s.eof
}

func (s *Stream) Current() token.Token { return s.at(s.pos) }

func (s *Stream) Peek() token.Token { return s.at(s.pos + 1) }

// Advance moves past the current token. At the end it is a no-op.
func (s *Stream) Advance() {
	if s.pos < len(s.tokens) {
		s.pos++
	}
}

// Consumed is the number of real tokens advanced over so far.
func (s *Stream) Consumed() int { return s.pos }

func (s *Stream) Len() int { return len(s.tokens) }
