package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/ir"
	"github.com/xplshn/ratc/pkg/lexer"
	"github.com/xplshn/ratc/pkg/symtab"
	"github.com/xplshn/ratc/pkg/token"
)

var (
	ErrUnexpectedToken = errors.New("unexpected token")
	ErrIntegerRange    = errors.New("integer literal out of range")
)

// Error is a fatal translation error tied to the token that caused it.
type Error struct {
	Tok token.Token
	Err error
}

func (e *Error) Error() string      { return e.Err.Error() }
func (e *Error) Unwrap() error      { return e.Err }
func (e *Error) Token() token.Token { return e.Tok }

// Warning is a non-fatal finding; whether it is shown is up to the caller.
type Warning struct {
	Kind config.Warning
	Tok  token.Token
	Msg  string
}

type idMode int

const (
	useIDs idMode = iota
	declareIDs
)

var relops = map[string]ir.Op{
	"==": ir.OpEqu,
	"!=": ir.OpNeq,
	">":  ir.OpGrt,
	"<":  ir.OpLes,
	"<=": ir.OpLeq,
	"=>": ir.OpGeq,
}

// Parser recognises Rat23F and emits stack machine code as each construct completes.
type Parser struct {
	stream   *lexer.Stream
	cfg      *config.Config
	syms     *symtab.Table
	prog     *ir.Program
	trace    *Trace
	warnings []Warning
}

type bailout struct{ err *Error }

func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	p := &Parser{
		stream: lexer.NewStream(tokens),
		cfg:    cfg,
		syms:   symtab.New(),
		prog:   ir.NewProgram(),
	}
	if cfg.IsFeatureEnabled(config.FeatTrace) {
		p.trace = &Trace{}
	}
	return p
}

// Parse runs the whole translation. The first error stops it; the partial
// program and table must then be discarded.
func (p *Parser) Parse() (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()
	p.rat23f()
	if err := p.prog.Finish(); err != nil {
		p.fail(p.cur(), err)
	}
	return nil
}

func (p *Parser) Program() *ir.Program  { return p.prog }
func (p *Parser) Symbols() *symtab.Table { return p.syms }
func (p *Parser) Warnings() []Warning    { return p.warnings }
func (p *Parser) Consumed() int          { return p.stream.Consumed() }

// Trace is nil unless the trace feature is enabled.
func (p *Parser) Trace() *Trace { return p.trace }

// Parser helpers
func (p *Parser) cur() token.Token { return p.stream.Current() }

func (p *Parser) advance() { p.stream.Advance() }

func (p *Parser) check(kind token.Kind, lexeme string) bool { return p.cur().Is(kind, lexeme) }

func (p *Parser) fail(tok token.Token, err error) {
	panic(bailout{&Error{Tok: tok, Err: err}})
}

func (p *Parser) unexpected(expected string) {
	tok := p.cur()
	p.fail(tok, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedToken, expected, tok))
}

// match consumes a keyword, operator or separator with the given lexeme.
func (p *Parser) match(lexeme string) {
	tok := p.cur()
	switch tok.Kind {
	case token.Keyword, token.Operator, token.Separator:
		if tok.Lexeme == lexeme {
			p.advance()
			return
		}
	}
	p.unexpected("'" + lexeme + "'")
}

func (p *Parser) matchKind(kind token.Kind) token.Token {
	tok := p.cur()
	if tok.Kind != kind {
		p.unexpected(kind.String())
	}
	p.advance()
	return tok
}

func (p *Parser) rule(text string) {
	if p.trace != nil {
		p.trace.Rule(p.cur(), text)
	}
}

func (p *Parser) warn(kind config.Warning, tok token.Token, format string, args ...any) {
	p.warnings = append(p.warnings, Warning{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) emit(op ir.Op, operand int64) { p.prog.Emit(op, operand) }

func (p *Parser) isQualifier() bool {
	tok := p.cur()
	return tok.Kind == token.Keyword && token.Qualifiers[tok.Lexeme]
}

// Program structure
func (p *Parser) rat23f() {
	p.rule("<Rat23F> ::= <Opt Function Definitions> # <Opt Declaration List> <Statement List> #")
	p.optFunctionDefinitions()
	p.match("#")
	p.optDeclarationList()
	p.statementList()
	p.match("#")
	if p.cur().Kind != token.EOF {
		p.unexpected("end of input")
	}
}

func (p *Parser) optFunctionDefinitions() {
	if !p.check(token.Keyword, "function") {
		p.rule("<Opt Function Definitions> ::= <Empty>")
		return
	}
	p.rule("<Opt Function Definitions> ::= <Function Definitions>")
	p.rule("<Function Definitions> ::= <Function> | <Function> <Function Definitions>")
	for p.check(token.Keyword, "function") {
		p.function()
	}
}

func (p *Parser) function() {
	p.rule("<Function> ::= function <Identifier> ( <Opt Parameter List> ) <Opt Declaration List> <Body>")
	p.match("function")
	p.matchKind(token.Identifier)
	p.match("(")
	p.optParameterList()
	p.match(")")
	p.optDeclarationList()
	p.body()
}

func (p *Parser) optParameterList() {
	if p.cur().Kind != token.Identifier {
		p.rule("<Opt Parameter List> ::= <Empty>")
		return
	}
	p.rule("<Opt Parameter List> ::= <Parameter List>")
	p.rule("<Parameter List> ::= <Parameter> | <Parameter> , <Parameter List>")
	p.parameter()
	for p.check(token.Separator, ",") {
		p.advance()
		p.parameter()
	}
}

func (p *Parser) parameter() {
	p.rule("<Parameter> ::= <IDs > <Qualifier>")
	p.ids(declareIDs, nil)
	p.qualifier()
}

func (p *Parser) qualifier() {
	p.rule("<Qualifier> ::= integer | bool | real")
	if !p.isQualifier() {
		p.unexpected("qualifier")
	}
	p.advance()
}

func (p *Parser) body() {
	p.rule("<Body> ::= { < Statement List> }")
	p.match("{")
	p.statementList()
	p.match("}")
}

func (p *Parser) optDeclarationList() {
	if !p.isQualifier() {
		p.rule("<Opt Declaration List> ::= <Empty>")
		return
	}
	p.rule("<Opt Declaration List> ::= <Declaration List>")
	p.rule("<Declaration List> ::= <Declaration> ; <Declaration List>")
	for p.isQualifier() {
		p.declaration()
		p.match(";")
	}
}

func (p *Parser) declaration() {
	p.rule("<Declaration> ::= <Qualifier > <IDs>")
	p.qualifier()
	p.ids(declareIDs, nil)
}

// ids walks a comma separated identifier list. In declare mode every identifier
// is entered in the table; in use mode it must already be there, and each is
// handed to each (when non-nil) after the check.
func (p *Parser) ids(mode idMode, each func(tok token.Token)) {
	p.rule("<IDs> ::= <Identifier> | <Identifier>, <IDs>")
	for {
		tok := p.cur()
		if tok.Kind != token.Identifier {
			p.unexpected("identifier")
		}
		p.bind(tok, mode)
		p.advance()
		if each != nil {
			each(tok)
		}
		if !p.check(token.Separator, ",") {
			return
		}
		p.advance()
	}
}

func (p *Parser) bind(tok token.Token, mode idMode) {
	var err error
	if mode == declareIDs {
		err = p.syms.Declare(tok.Lexeme)
	} else {
		err = p.syms.Use(tok.Lexeme)
	}
	if err != nil {
		p.fail(tok, err)
	}
}

func (p *Parser) address(tok token.Token) int64 {
	addr, _ := p.syms.AddressOf(tok.Lexeme)
	return int64(addr)
}

// Statements
func (p *Parser) startsStatement() bool {
	tok := p.cur()
	switch tok.Kind {
	case token.Identifier:
		return true
	case token.Separator:
		return tok.Lexeme == "{"
	case token.Keyword:
		switch tok.Lexeme {
		case "if", "ret", "put", "get", "while":
			return true
		}
	}
	return false
}

func (p *Parser) statementList() {
	p.rule("<Statement List> ::= <Statement> <Statement List Prime>")
	p.statement()
	for p.startsStatement() {
		p.rule("<Statement List Prime> ::= <Statement> <Statement List Prime>")
		p.statement()
	}
}

func (p *Parser) statement() {
	tok := p.cur()
	switch {
	case tok.Is(token.Separator, "{"):
		p.rule("<Statement> ::= <Compound>")
		p.compound()
	case tok.Kind == token.Identifier:
		p.rule("<Statement> ::= <Assign>")
		p.assign()
	case tok.Is(token.Keyword, "if"):
		p.rule("<Statement> ::= <If>")
		p.ifStmt()
	case tok.Is(token.Keyword, "ret"):
		p.rule("<Statement> ::= <Return>")
		p.returnStmt()
	case tok.Is(token.Keyword, "put"):
		p.rule("<Statement> ::= <Print>")
		p.printStmt()
	case tok.Is(token.Keyword, "get"):
		p.rule("<Statement> ::= <Scan>")
		p.scanStmt()
	case tok.Is(token.Keyword, "while"):
		p.rule("<Statement> ::= <While>")
		p.whileStmt()
	default:
		p.unexpected("statement")
	}
}

func (p *Parser) compound() {
	p.rule("<Compound> ::= { <Statement List> }")
	p.match("{")
	p.statementList()
	p.match("}")
}

func (p *Parser) assign() {
	p.rule("<Assign> ::= <Identifier> = <Expression> ;")
	tok := p.cur()
	p.bind(tok, useIDs)
	p.advance()
	p.match("=")
	p.expression()
	p.emit(ir.OpPopM, p.address(tok))
	p.match(";")
}

// ifStmt: JUMPZ to the else body (or past the statement), and with an else a
// JUMP from the end of the then body past the else body. Both land on or
// before the closing LABEL.
func (p *Parser) ifStmt() {
	p.rule("<If> ::= if ( <Condition> ) <Statement> endif | if ( <Condition> ) <Statement> else <Statement> endif")
	p.match("if")
	p.match("(")
	p.condition()
	p.match(")")

	skipThen := p.prog.EmitPending(ir.OpJumpZ)
	p.statement()

	if p.check(token.Keyword, "else") {
		skipElse := p.prog.EmitPending(ir.OpJump)
		p.prog.Resolve(skipThen, p.prog.Len())
		p.advance()
		p.statement()
		p.prog.Resolve(skipElse, p.prog.Len())
	} else {
		p.prog.Resolve(skipThen, p.prog.Len())
	}

	p.match("endif")
	p.emit(ir.OpLabel, 0)
}

func (p *Parser) returnStmt() {
	p.rule("<Return> ::= ret ; | ret <Expression> ;")
	tok := p.cur()
	p.match("ret")
	if !p.check(token.Separator, ";") {
		p.expression()
	}
	p.warn(config.WarnReturn, tok, "'ret' leaves its value on the stack; no return linkage is generated")
	p.match(";")
}

func (p *Parser) printStmt() {
	p.rule("<Print> ::= put ( <Expression> );")
	p.match("put")
	p.match("(")
	p.expression()
	p.match(")")
	p.emit(ir.OpStdout, 0)
	p.match(";")
}

func (p *Parser) scanStmt() {
	p.rule("<Scan> ::= get ( <IDs> );")
	p.match("get")
	p.match("(")
	p.ids(useIDs, func(tok token.Token) {
		p.emit(ir.OpStdin, 0)
		p.emit(ir.OpPopM, p.address(tok))
	})
	p.match(")")
	p.match(";")
}

// whileStmt: the back jump targets the first instruction of the condition; the
// exit JUMPZ is patched once the back jump exists.
func (p *Parser) whileStmt() {
	p.rule("<While> ::= while ( <Condition> ) <Statement>")
	p.match("while")
	head := p.prog.Len()
	p.match("(")
	p.condition()
	p.match(")")

	exit := p.prog.EmitPending(ir.OpJumpZ)
	p.statement()
	p.emit(ir.OpJump, int64(head))
	p.prog.Resolve(exit, p.prog.Len())
	p.emit(ir.OpLabel, 0)
}

// Expressions
func (p *Parser) condition() {
	p.rule("<Condition> ::= <Expression> <Relop> <Expression>")
	p.expression()
	op := p.relop()
	p.expression()
	p.emit(op, 0)
}

func (p *Parser) relop() ir.Op {
	p.rule("<Relop> ::= == | != | > | < | <= | =>")
	tok := p.cur()
	if tok.Kind != token.Operator || !token.Relational[tok.Lexeme] {
		p.unexpected("relational operator")
	}
	p.advance()
	return relops[tok.Lexeme]
}

func (p *Parser) expression() {
	p.rule("<Expression> ::= <Term> <Expression Prime>")
	p.term()
	for {
		var op ir.Op
		switch {
		case p.check(token.Operator, "+"):
			op = ir.OpAdd
		case p.check(token.Operator, "-"):
			op = ir.OpSub
		default:
			p.rule("<Expression Prime> ::= <Empty>")
			return
		}
		p.rule("<Expression Prime> ::= + <Term> <Expression Prime> | - <Term> <Expression Prime>")
		p.advance()
		p.term()
		p.emit(op, 0)
	}
}

func (p *Parser) term() {
	p.rule("<Term> ::= <Factor> <Term Prime>")
	p.factor()
	for {
		var op ir.Op
		switch {
		case p.check(token.Operator, "*"):
			op = ir.OpMul
		case p.check(token.Operator, "/"):
			op = ir.OpDiv
		default:
			p.rule("<Term Prime> ::= <Empty>")
			return
		}
		p.rule("<Term Prime> ::= * <Factor> <Term Prime> | / <Factor> <Term Prime>")
		p.advance()
		p.factor()
		p.emit(op, 0)
	}
}

// factor negates as 0 - primary.
func (p *Parser) factor() {
	p.rule("<Factor> ::= - <Primary> | <Primary>")
	if !p.check(token.Operator, "-") {
		p.primary()
		return
	}
	p.advance()
	p.emit(ir.OpPushI, 0)
	p.primary()
	p.emit(ir.OpSub, 0)
}

func (p *Parser) primary() {
	tok := p.cur()
	switch {
	case tok.Kind == token.Identifier && p.stream.Peek().Is(token.Separator, "("):
		p.rule("<Primary> ::= <Identifier> (<IDs>)")
		p.call()
	case tok.Kind == token.Identifier:
		p.rule("<Primary> ::= <Identifier>")
		p.bind(tok, useIDs)
		p.advance()
		p.emit(ir.OpPushM, p.address(tok))
	case tok.Kind == token.Integer:
		p.rule("<Primary> ::= <Integer>")
		val, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.fail(tok, fmt.Errorf("%w: %s", ErrIntegerRange, tok.Lexeme))
		}
		p.advance()
		p.emit(ir.OpPushI, val)
	case tok.Is(token.Separator, "("):
		p.rule("<Primary> ::= (<Expression>)")
		p.advance()
		p.expression()
		p.match(")")
	case tok.Is(token.Keyword, "true"), tok.Is(token.Keyword, "false"):
		p.rule("<Primary> ::= true | false")
		p.advance()
		if tok.Lexeme == "true" {
			p.emit(ir.OpPushI, 1)
		} else {
			p.emit(ir.OpPushI, 0)
		}
	default:
		p.unexpected("primary")
	}
}

// call checks the argument identifiers but emits nothing: there is no call linkage.
func (p *Parser) call() {
	tok := p.cur()
	if !p.cfg.IsFeatureEnabled(config.FeatCalls) {
		p.fail(tok, fmt.Errorf("%w: function call '%s' is disabled (-Fno-calls)", ErrUnexpectedToken, tok.Lexeme))
	}
	p.advance()
	p.match("(")
	if p.cur().Kind == token.Identifier {
		p.ids(useIDs, nil)
	}
	p.match(")")
	p.warn(config.WarnCall, tok, "call to '%s' generates no call linkage", tok.Lexeme)
}
