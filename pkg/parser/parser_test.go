package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/lexer"
	"github.com/xplshn/ratc/pkg/symtab"
)

func parse(t *testing.T, src string, setup ...func(*config.Config)) (*Parser, error) {
	t.Helper()
	cfg := config.NewConfig()
	for _, f := range setup {
		f(cfg)
	}
	p := NewParser(lexer.Tokenize(src, cfg), cfg)
	return p, p.Parse()
}

func mustParse(t *testing.T, src string, setup ...func(*config.Config)) *Parser {
	t.Helper()
	p, err := parse(t, src, setup...)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return p
}

func listing(p *Parser) []string {
	var out []string
	for _, in := range p.Program().Instructions() {
		out = append(out, in.String())
	}
	return out
}

func TestCodeGeneration(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "precedence",
			src:  "# integer a; a = 1 + 2 * 3; #",
			want: []string{"PUSHI 1", "PUSHI 2", "PUSHI 3", "MUL", "ADD", "POPM 7000"},
		},
		{
			name: "left associative",
			src:  "# integer a; a = 8 - 2 - 1; #",
			want: []string{"PUSHI 8", "PUSHI 2", "SUB", "PUSHI 1", "SUB", "POPM 7000"},
		},
		{
			name: "parentheses",
			src:  "# integer a; a = (1 + 2) / a; #",
			want: []string{"PUSHI 1", "PUSHI 2", "ADD", "PUSHM 7000", "DIV", "POPM 7000"},
		},
		{
			name: "unary minus",
			src:  "# integer a, b; a = -b * 2; #",
			want: []string{"PUSHI 0", "PUSHM 7001", "SUB", "PUSHI 2", "MUL", "POPM 7000"},
		},
		{
			name: "booleans",
			src:  "# bool t, f; t = true; f = false; #",
			want: []string{"PUSHI 1", "POPM 7000", "PUSHI 0", "POPM 7001"},
		},
		{
			name: "get and put",
			src:  "# integer a, b; get(a, b); put(a + b); #",
			want: []string{"STDIN", "POPM 7000", "STDIN", "POPM 7001", "PUSHM 7000", "PUSHM 7001", "ADD", "STDOUT"},
		},
		{
			name: "compound",
			src:  "# integer a; { a = 1; { put(a); } } #",
			want: []string{"PUSHI 1", "POPM 7000", "PUSHM 7000", "STDOUT"},
		},
		{
			name: "if without else",
			src:  "# integer a, b; if (a < b) put(a); endif #",
			want: []string{"PUSHM 7000", "PUSHM 7001", "LES", "JUMPZ 6", "PUSHM 7000", "STDOUT", "LABEL"},
		},
		{
			name: "if with else",
			src:  "# integer a, b; if (a < b) put(a); else put(b); endif #",
			want: []string{
				"PUSHM 7000", "PUSHM 7001", "LES", "JUMPZ 7",
				"PUSHM 7000", "STDOUT", "JUMP 9",
				"PUSHM 7001", "STDOUT",
				"LABEL",
			},
		},
		{
			name: "while",
			src:  "# integer a, b; while (a < b) a = a + 1; #",
			want: []string{
				"PUSHM 7000", "PUSHM 7001", "LES", "JUMPZ 9",
				"PUSHM 7000", "PUSHI 1", "ADD", "POPM 7000",
				"JUMP 0", "LABEL",
			},
		},
		{
			name: "while after other code",
			src:  "# integer a; a = 0; while (a != 3) { a = a + 1; } put(a); #",
			want: []string{
				"PUSHI 0", "POPM 7000",
				"PUSHM 7000", "PUSHI 3", "NEQ", "JUMPZ 11",
				"PUSHM 7000", "PUSHI 1", "ADD", "POPM 7000",
				"JUMP 2", "LABEL",
				"PUSHM 7000", "STDOUT",
			},
		},
		{
			name: "nested if in while",
			src:  "# integer a; while (a < 5) if (a == 2) put(a); endif #",
			want: []string{
				"PUSHM 7000", "PUSHI 5", "LES", "JUMPZ 12",
				"PUSHM 7000", "PUSHI 2", "EQU", "JUMPZ 10",
				"PUSHM 7000", "STDOUT",
				"LABEL", "JUMP 0", "LABEL",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustParse(t, tt.src)
			if diff := cmp.Diff(tt.want, listing(p)); diff != "" {
				t.Errorf("code mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRelationalOperators(t *testing.T) {
	for lexeme, want := range map[string]string{
		"==": "EQU", "!=": "NEQ", ">": "GRT", "<": "LES", "<=": "LEQ", "=>": "GEQ",
	} {
		t.Run(lexeme, func(t *testing.T) {
			p := mustParse(t, "# integer a; if (a "+lexeme+" 1) a = 1; endif #")
			if got := p.Program().At(2).Op.String(); got != want {
				t.Errorf("relop %s: got %s, want %s", lexeme, got, want)
			}
		})
	}

	_, err := parse(t, "# integer a; if (a >= 1) a = 1; endif #")
	if !errors.Is(err, ErrUnexpectedToken) {
		t.Errorf("'>=': got %v, want ErrUnexpectedToken", err)
	}
}

func TestSymbolAddresses(t *testing.T) {
	p := mustParse(t, "function f (x integer, y, z real) integer t; { t = x + y + z; } # integer a; bool b; a = 1; b = true; put(a); #")
	want := []symtab.Entry{
		{Lexeme: "x", Address: 7000, Uses: 1},
		{Lexeme: "y", Address: 7001, Uses: 1},
		{Lexeme: "z", Address: 7002, Uses: 1},
		{Lexeme: "t", Address: 7003, Uses: 1},
		{Lexeme: "a", Address: 7004, Uses: 2},
		{Lexeme: "b", Address: 7005, Uses: 1},
	}
	if diff := cmp.Diff(want, p.Symbols().Entries()); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		want   error
		lexeme string
	}{
		{"duplicate", "# integer a; bool a; a = 1; #", symtab.ErrDuplicateIdentifier, "a"},
		{"duplicate across function", "function f (a integer) { a = 1; } # integer a; a = 2; #", symtab.ErrDuplicateIdentifier, "a"},
		{"undeclared", "# integer a; a = b; #", symtab.ErrUndeclaredIdentifier, "b"},
		{"undeclared target", "# integer a; c = a; #", symtab.ErrUndeclaredIdentifier, "c"},
		{"undeclared in get", "# integer a; get(a, q); #", symtab.ErrUndeclaredIdentifier, "q"},
		{"missing semicolon", "# integer a; a = 1 #", ErrUnexpectedToken, "#"},
		{"missing endif", "# integer a; if (a < 1) a = 1; #", ErrUnexpectedToken, "#"},
		{"empty statement list", "# integer a; #", ErrUnexpectedToken, "#"},
		{"real literal", "# real r; r = 1.5; #", ErrUnexpectedToken, "1.5"},
		{"invalid token", "# integer a; a = 12ab; #", ErrUnexpectedToken, "12ab"},
		{"trailing tokens", "# integer a; a = 1; # a", ErrUnexpectedToken, "a"},
		{"missing relop", "# integer a; while (a) a = 1; #", ErrUnexpectedToken, ")"},
		{"integer range", "# integer a; a = 99999999999999999999; #", ErrIntegerRange, "99999999999999999999"},
		{"declaration without ids", "# integer ; a = 1; #", ErrUnexpectedToken, ";"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not a *parser.Error", err)
			}
			if perr.Token().Lexeme != tt.lexeme {
				t.Errorf("error token: got %q, want %q", perr.Token().Lexeme, tt.lexeme)
			}
		})
	}
}

func TestTrailingTokensReportPosition(t *testing.T) {
	_, err := parse(t, "#\ninteger a;\na = 1;\n#\nput")
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("got %v", err)
	}
	if tok := perr.Token(); tok.Line != 5 || tok.Column != 1 {
		t.Errorf("error at %d:%d, want 5:1", tok.Line, tok.Column)
	}
}

func TestCallsAndReturns(t *testing.T) {
	src := "function g (n integer) { ret n * 2; } # integer a, b; a = g(b) + 1; put(h()); #"
	p := mustParse(t, src)

	want := []string{"PUSHM 7000", "PUSHI 2", "MUL", "PUSHI 1", "ADD", "POPM 7001", "STDOUT"}
	if diff := cmp.Diff(want, listing(p)); diff != "" {
		t.Errorf("calls emit no code (-want +got):\n%s", diff)
	}

	var kinds []config.Warning
	var lexemes []string
	for _, w := range p.Warnings() {
		kinds = append(kinds, w.Kind)
		lexemes = append(lexemes, w.Tok.Lexeme)
	}
	if diff := cmp.Diff([]config.Warning{config.WarnReturn, config.WarnCall, config.WarnCall}, kinds); diff != "" {
		t.Errorf("warning kinds (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ret", "g", "h"}, lexemes); diff != "" {
		t.Errorf("warning tokens (-want +got):\n%s", diff)
	}

	_, err := parse(t, src, func(c *config.Config) { c.SetFeature(config.FeatCalls, false) })
	if !errors.Is(err, ErrUnexpectedToken) {
		t.Errorf("-Fno-calls: got %v, want ErrUnexpectedToken", err)
	}

	_, err = parse(t, "# integer a; a = g(zz); #")
	if !errors.Is(err, symtab.ErrUndeclaredIdentifier) {
		t.Errorf("call argument check: got %v, want ErrUndeclaredIdentifier", err)
	}
}

func TestConsumesEveryToken(t *testing.T) {
	srcs := []string{
		"# integer a; a = 1; #",
		"function f (x integer) bool b; { b = true; ret; } # integer a, c; get(a); while (a > 0) { if (a <= 2) put(a); else put(-a); endif a = a - 1; } c = f(a); #",
	}
	for _, src := range srcs {
		cfg := config.NewConfig()
		toks := lexer.Tokenize(src, cfg)
		p := NewParser(toks, cfg)
		if err := p.Parse(); err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if p.Consumed() != len(toks) {
			t.Errorf("consumed %d of %d tokens for %q", p.Consumed(), len(toks), src)
		}
	}
}

func TestTrace(t *testing.T) {
	p := mustParse(t, "# integer a; a = 1; #", func(c *config.Config) { c.SetFeature(config.FeatTrace, true) })
	want := []string{
		"Token: separator,    Lexeme: #",
		"  <Rat23F> ::= <Opt Function Definitions> # <Opt Declaration List> <Statement List> #",
		"  <Opt Function Definitions> ::= <Empty>",
		"Token: keyword,    Lexeme: integer",
		"  <Opt Declaration List> ::= <Declaration List>",
		"  <Declaration List> ::= <Declaration> ; <Declaration List>",
		"  <Declaration> ::= <Qualifier > <IDs>",
		"  <Qualifier> ::= integer | bool | real",
		"Token: identifier,    Lexeme: a",
		"  <IDs> ::= <Identifier> | <Identifier>, <IDs>",
		"Token: identifier,    Lexeme: a",
		"  <Statement List> ::= <Statement> <Statement List Prime>",
		"  <Statement> ::= <Assign>",
		"  <Assign> ::= <Identifier> = <Expression> ;",
		"Token: integer,    Lexeme: 1",
		"  <Expression> ::= <Term> <Expression Prime>",
		"  <Term> ::= <Factor> <Term Prime>",
		"  <Factor> ::= - <Primary> | <Primary>",
		"  <Primary> ::= <Integer>",
		"Token: separator,    Lexeme: ;",
		"  <Term Prime> ::= <Empty>",
		"  <Expression Prime> ::= <Empty>",
	}
	if diff := cmp.Diff(want, p.Trace().Lines()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}

	if mustParse(t, "# integer a; a = 1; #").Trace() != nil {
		t.Errorf("trace recorded without -Ftrace")
	}
}
