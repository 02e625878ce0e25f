package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/token"
	"golang.org/x/term"
)

const (
	cRed    = "\033[31m"
	cYellow = "\033[33m"
	cGreen  = "\033[32m"
	cNone   = "\033[0m"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

// Positioned is implemented by errors that know which token caused them.
type Positioned interface {
	error
	Token() token.Token
}

// Reporter writes errors and warnings against one source file.
type Reporter struct {
	w      io.Writer
	src    SourceFileRecord
	color  bool
	Errors int
	Warns  int
}

// NewReporter enables colour only when w is a terminal.
func NewReporter(w io.Writer, src SourceFileRecord) *Reporter {
	r := &Reporter{w: w, src: src}
	if f, ok := w.(*os.File); ok {
		r.color = term.IsTerminal(int(f.Fd()))
	}
	return r
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + cNone
}

// printErrorLine prints the source line and a caret under the token.
func (r *Reporter) printErrorLine(tok token.Token) {
	if tok.Line == 0 || len(r.src.Content) == 0 {
		return
	}
	lines := strings.Split(string(r.src.Content), "\n")
	if tok.Line > len(lines) {
		return
	}
	fmt.Fprintf(r.w, "  %s\n", strings.TrimRight(lines[tok.Line-1], "\r"))

	mark := "^"
	if tok.Len > 1 {
		mark += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(r.w, "  %s%s\n", strings.Repeat(" ", max(tok.Column-1, 0)), r.paint(cGreen, mark))
}

// Error reports err. Positioned errors get a location and the offending source line.
func (r *Reporter) Error(err error) {
	r.Errors++
	var pe Positioned
	if errors.As(err, &pe) {
		tok := pe.Token()
		fmt.Fprintf(r.w, "%s:%d:%d: %s %v\n", r.src.Name, tok.Line, tok.Column, r.paint(cRed, "error:"), err)
		r.printErrorLine(tok)
		return
	}
	fmt.Fprintf(r.w, "%s: %s %v\n", r.src.Name, r.paint(cRed, "error:"), err)
}

// Warn prints a warning if wt is enabled in cfg.
func (r *Reporter) Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...any) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	r.Warns++
	fmt.Fprintf(r.w, "%s:%d:%d: %s ", r.src.Name, tok.Line, tok.Column, r.paint(cYellow, "warning:"))
	fmt.Fprintf(r.w, format, args...)
	fmt.Fprintf(r.w, " [-W%s]\n", cfg.Warnings[wt].Name)
	r.printErrorLine(tok)
}
