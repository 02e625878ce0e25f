package symtab

import (
	"errors"
	"fmt"
	"io"
)

// BaseAddress is the address given to the first declared identifier.
const BaseAddress = 7000

var (
	ErrDuplicateIdentifier  = errors.New("duplicate identifier declared")
	ErrUndeclaredIdentifier = errors.New("undeclared identifier used")
)

type Entry struct {
	Lexeme  string
	Address int
	Uses    int
}

// Table is one flat, whole-program mapping from lexeme to address.
// Function parameters and locals share it with the main program.
type Table struct {
	entries []*Entry
	index   map[string]*Entry
	next    int
}

func New() *Table {
	return &Table{index: make(map[string]*Entry), next: BaseAddress}
}

func (t *Table) Declare(lexeme string) error {
	if _, ok := t.index[lexeme]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentifier, lexeme)
	}
	e := &Entry{Lexeme: lexeme, Address: t.next}
	t.next++
	t.entries = append(t.entries, e)
	t.index[lexeme] = e
	return nil
}

func (t *Table) Use(lexeme string) error {
	e, ok := t.index[lexeme]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredIdentifier, lexeme)
	}
	e.Uses++
	return nil
}

// AddressOf is only meaningful after Declare succeeded for lexeme.
func (t *Table) AddressOf(lexeme string) (int, bool) {
	e, ok := t.index[lexeme]
	if !ok {
		return 0, false
	}
	return e.Address, true
}

// Entries returns copies in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

func (t *Table) Len() int { return len(t.entries) }

func (t *Table) Unused() []Entry {
	var out []Entry
	for _, e := range t.entries {
		if e.Uses == 0 {
			out = append(out, *e)
		}
	}
	return out
}

func (t *Table) WriteListing(w io.Writer) error {
	for _, e := range t.entries {
		if _, err := fmt.Fprintf(w, "Identifier: %s, Memory Address: %d\n", e.Lexeme, e.Address); err != nil {
			return err
		}
	}
	return nil
}
