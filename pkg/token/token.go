package token

import "fmt"

type Kind int

const (
	EOF Kind = iota
	Keyword
	Identifier
	Integer
	Real
	Operator
	Separator
	Comment
	Invalid
)

var kindNames = [...]string{
	EOF:        "EOF",
	Keyword:    "keyword",
	Identifier: "identifier",
	Integer:    "integer",
	Real:       "real",
	Operator:   "operator",
	Separator:  "separator",
	Comment:    "comment",
	Invalid:    "invalid",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Keywords is the reserved word set. A letter-led run found here is never an identifier.
var Keywords = map[string]bool{
	"integer":  true,
	"bool":     true,
	"real":     true,
	"if":       true,
	"else":     true,
	"endif":    true,
	"while":    true,
	"ret":      true,
	"get":      true,
	"put":      true,
	"true":     true,
	"false":    true,
	"function": true,
}

// LongOperators are matched before their one-character prefixes.
var LongOperators = map[string]bool{
	"<=": true,
	"==": true,
	"!=": true,
	"=>": true,
	"+-": true,
}

var Operators = map[rune]bool{
	'<': true, '>': true, '=': true, '!': true,
	'+': true, '-': true, '*': true, '/': true,
}

var Separators = map[rune]bool{
	'#': true, '{': true, '}': true, ';': true,
	',': true, '(': true, ')': true,
}

// Qualifiers are the keywords that open a declaration or close a parameter.
var Qualifiers = map[string]bool{
	"integer": true,
	"bool":    true,
	"real":    true,
}

// Relational lists the relational operator lexemes.
var Relational = map[string]bool{
	"==": true,
	"!=": true,
	">":  true,
	"<":  true,
	"<=": true,
	"=>": true,
}

// Token is identified by Kind and Lexeme; the position fields only serve diagnostics.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Column int
	Len    int
}

// Is reports whether the token has the given kind and lexeme.
func (t Token) Is(kind Kind, lexeme string) bool { return t.Kind == kind && t.Lexeme == lexeme }

// Same compares identity, ignoring position.
func (t Token) Same(o Token) bool { return t.Kind == o.Kind && t.Lexeme == o.Lexeme }

func (t Token) String() string {
	if t.Kind == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%s '%s'", t.Kind, t.Lexeme)
}
