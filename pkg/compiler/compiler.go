// Package compiler runs the Rat23F pipeline: tokenize, parse with fused code
// generation, and validate the finished program.
package compiler

import (
	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/ir"
	"github.com/xplshn/ratc/pkg/lexer"
	"github.com/xplshn/ratc/pkg/parser"
	"github.com/xplshn/ratc/pkg/symtab"
	"github.com/xplshn/ratc/pkg/token"
)

type Result struct {
	Tokens   []token.Token
	Program  *ir.Program
	Symbols  *symtab.Table
	Trace    *parser.Trace
	Warnings []parser.Warning
	// Consumed is how many tokens the parser advanced over.
	Consumed int
}

// Compile translates source. On error nothing from the partial run is returned.
func Compile(source string, cfg *config.Config) (*Result, error) {
	toks := lexer.Tokenize(source, cfg)

	p := parser.NewParser(toks, cfg)
	if err := p.Parse(); err != nil {
		return nil, err
	}

	res := &Result{
		Tokens:   toks,
		Program:  p.Program(),
		Symbols:  p.Symbols(),
		Trace:    p.Trace(),
		Consumed: p.Consumed(),
	}
	res.Warnings = append(res.Warnings, p.Warnings()...)
	for _, e := range res.Symbols.Unused() {
		res.Warnings = append(res.Warnings, parser.Warning{
			Kind: config.WarnUnused,
			Tok:  declarationOf(toks, e.Lexeme),
			Msg:  "'" + e.Lexeme + "' declared but never used",
		})
	}
	return res, nil
}

// InvalidTokens lists tokens the tokenizer could not classify. A successful
// compile never contains any, so this is for diagnosing a failed one.
func InvalidTokens(source string, cfg *config.Config) []token.Token {
	var out []token.Token
	for _, tok := range lexer.Tokenize(source, cfg) {
		if tok.Kind == token.Invalid {
			out = append(out, tok)
		}
	}
	return out
}

func declarationOf(toks []token.Token, lexeme string) token.Token {
	for _, tok := range toks {
		if tok.Kind == token.Identifier && tok.Lexeme == lexeme {
			return tok
		}
	}
	return token.Token{}
}
