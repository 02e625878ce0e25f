package token

import "testing"

func TestTokenString(t *testing.T) {
	tests := []struct {
		tok  Token
		want string
	}{
		{Token{Kind: Identifier, Lexeme: "a"}, "identifier 'a'"},
		{Token{Kind: Operator, Lexeme: "<="}, "operator '<='"},
		{Token{Kind: EOF, Lexeme: "EOF"}, "EOF"},
	}
	for _, tt := range tests {
		if got := tt.tok.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if got := Kind(42).String(); got != "Kind(42)" {
		t.Errorf("unknown kind: %q", got)
	}
}

func TestSame(t *testing.T) {
	a := Token{Kind: Identifier, Lexeme: "x", Line: 1, Column: 1}
	b := Token{Kind: Identifier, Lexeme: "x", Line: 9, Column: 4}
	if !a.Same(b) || a == b {
		t.Errorf("Same should ignore position only")
	}
	if a.Same(Token{Kind: Keyword, Lexeme: "x"}) {
		t.Errorf("Same ignored kind")
	}
}

func TestRelationalAreOperators(t *testing.T) {
	for lexeme := range Relational {
		if len(lexeme) == 2 && !LongOperators[lexeme] {
			t.Errorf("%q is not a long operator", lexeme)
		}
		if len(lexeme) == 1 && !Operators[rune(lexeme[0])] {
			t.Errorf("%q is not an operator", lexeme)
		}
	}
}
