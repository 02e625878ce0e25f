package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/token"
)

var ignorePos = cmpopts.IgnoreFields(token.Token{}, "Line", "Column", "Len")

func tok(kind token.Kind, lexeme string) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Token
	}{
		{
			name: "maximal munch",
			src:  "a<=b",
			want: []token.Token{tok(token.Identifier, "a"), tok(token.Operator, "<="), tok(token.Identifier, "b")},
		},
		{
			name: "all long operators",
			src:  "<= == != => +-",
			want: []token.Token{
				tok(token.Operator, "<="), tok(token.Operator, "=="), tok(token.Operator, "!="),
				tok(token.Operator, "=>"), tok(token.Operator, "+-"),
			},
		},
		{
			name: "greater-equal is two operators",
			src:  ">=",
			want: []token.Token{tok(token.Operator, ">"), tok(token.Operator, "=")},
		},
		{
			name: "separators",
			src:  "#{};,()",
			want: []token.Token{
				tok(token.Separator, "#"), tok(token.Separator, "{"), tok(token.Separator, "}"),
				tok(token.Separator, ";"), tok(token.Separator, ","), tok(token.Separator, "("),
				tok(token.Separator, ")"),
			},
		},
		{
			name: "keywords",
			src:  "integer bool real if else endif while ret get put true false function",
			want: []token.Token{
				tok(token.Keyword, "integer"), tok(token.Keyword, "bool"), tok(token.Keyword, "real"),
				tok(token.Keyword, "if"), tok(token.Keyword, "else"), tok(token.Keyword, "endif"),
				tok(token.Keyword, "while"), tok(token.Keyword, "ret"), tok(token.Keyword, "get"),
				tok(token.Keyword, "put"), tok(token.Keyword, "true"), tok(token.Keyword, "false"),
				tok(token.Keyword, "function"),
			},
		},
		{
			name: "identifier with interior digit",
			src:  "x1y",
			want: []token.Token{tok(token.Identifier, "x1y")},
		},
		{
			name: "identifier ending in digit",
			src:  "x1y2",
			want: []token.Token{tok(token.Invalid, "x1y2")},
		},
		{
			name: "numbers",
			src:  "42 1.5 007",
			want: []token.Token{tok(token.Integer, "42"), tok(token.Real, "1.5"), tok(token.Integer, "007")},
		},
		{
			name: "trailing dot",
			src:  "12.",
			want: []token.Token{tok(token.Invalid, "12.")},
		},
		{
			name: "second dot stops the number",
			src:  "1.2.3",
			want: []token.Token{tok(token.Invalid, "1.2"), tok(token.Invalid, ".3")},
		},
		{
			name: "letters inside a number",
			src:  "12ab 3",
			want: []token.Token{tok(token.Invalid, "12ab"), tok(token.Integer, "3")},
		},
		{
			name: "leading dot run",
			src:  "..5 a",
			want: []token.Token{tok(token.Invalid, "..5"), tok(token.Identifier, "a")},
		},
		{
			name: "unknown character",
			src:  "a@b",
			want: []token.Token{tok(token.Identifier, "a"), tok(token.Invalid, "@"), tok(token.Identifier, "b")},
		},
		{
			name: "comment hides operators",
			src:  "[* a <= b; # *] c",
			want: []token.Token{tok(token.Identifier, "c")},
		},
		{
			name: "unterminated comment",
			src:  "a [* never closed",
			want: []token.Token{tok(token.Identifier, "a")},
		},
		{
			name: "empty",
			src:  "  \n\t ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.src, config.NewConfig())
			if diff := cmp.Diff(tt.want, got, ignorePos, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.src, diff)
			}
		})
	}
}

func TestTokenizeCommentExample(t *testing.T) {
	src := "[* c *] a123 = 1.5 + 2;"

	strict := Tokenize(src, config.NewConfig())
	if len(strict) == 0 || strict[0].Kind != token.Invalid {
		t.Fatalf("expected 'a123' to be invalid by default, got %v", strict)
	}

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatDigitSuffix, true)
	want := []token.Token{
		tok(token.Identifier, "a123"),
		tok(token.Operator, "="),
		tok(token.Real, "1.5"),
		tok(token.Operator, "+"),
		tok(token.Integer, "2"),
		tok(token.Separator, ";"),
	}
	if diff := cmp.Diff(want, Tokenize(src, cfg), ignorePos); diff != "" {
		t.Errorf("with -Fdigit-suffix (-want +got):\n%s", diff)
	}
}

func TestTokenPositions(t *testing.T) {
	got := Tokenize("a\n  bb <=\n[* x\n *] 7", config.NewConfig())
	want := []token.Token{
		{Kind: token.Identifier, Lexeme: "a", Line: 1, Column: 1, Len: 1},
		{Kind: token.Identifier, Lexeme: "bb", Line: 2, Column: 3, Len: 2},
		{Kind: token.Operator, Lexeme: "<=", Line: 2, Column: 6, Len: 2},
		{Kind: token.Integer, Lexeme: "7", Line: 4, Column: 5, Len: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeMakesProgress(t *testing.T) {
	inputs := []string{"....", "1..2..3", "[*", "[**]", "*]", "!!==", "é1", "a.b", "9a9.9"}
	for _, src := range inputs {
		toks := Tokenize(src, config.NewConfig())
		total := 0
		for _, tk := range toks {
			if tk.Len == 0 {
				t.Errorf("Tokenize(%q): empty token %v", src, tk)
			}
			total += tk.Len
		}
		if total > len([]rune(src)) {
			t.Errorf("Tokenize(%q): tokens cover %d runes, source has %d", src, total, len([]rune(src)))
		}
	}
}

func TestNextAfterEOF(t *testing.T) {
	l := NewLexer([]rune("a"), config.NewConfig())
	if got := l.Next(); !got.Is(token.Identifier, "a") {
		t.Fatalf("first token: got %v", got)
	}
	for i := 0; i < 3; i++ {
		if got := l.Next(); got.Kind != token.EOF {
			t.Fatalf("call %d after end: got %v, want EOF", i, got)
		}
	}
}
