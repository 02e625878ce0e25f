package parser

import (
	"fmt"
	"io"

	"github.com/xplshn/ratc/pkg/token"
)

// Trace records grammar rules as they fire. A token header is written only when
// the current token changes, so several rules fired on one token share a header.
type Trace struct {
	lines   []string
	last    token.Token
	started bool
}

func (t *Trace) Rule(tok token.Token, rule string) {
	if !t.started || t.last != tok {
		t.lines = append(t.lines, fmt.Sprintf("Token: %s,    Lexeme: %s", tok.Kind, tok.Lexeme))
		t.last, t.started = tok, true
	}
	t.lines = append(t.lines, "  "+rule)
}

func (t *Trace) Lines() []string { return t.lines }

func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, line := range t.lines {
		m, err := fmt.Fprintln(w, line)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
