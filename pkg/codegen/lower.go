package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/ratc/pkg/ir"
)

var ErrStackUnderflow = errors.New("operand stack underflow")

// valueStack simulates the machine's operand stack at compile time. Statements
// are stack balanced except 'ret', whose value nothing consumes; such leftovers
// are dropped at every jump target so no value crosses a block join.
type valueStack[V any] struct {
	vals    []V
	targets map[int]bool
}

func newValueStack[V any](prog *ir.Program) *valueStack[V] {
	return &valueStack[V]{targets: prog.Targets()}
}

// enter must be called before lowering instruction idx.
func (s *valueStack[V]) enter(idx int) {
	if s.targets[idx] {
		s.vals = s.vals[:0]
	}
}

func (s *valueStack[V]) push(v V) { s.vals = append(s.vals, v) }

func (s *valueStack[V]) pop(in ir.Instruction) (V, error) {
	var zero V
	if len(s.vals) == 0 {
		return zero, fmt.Errorf("%w at %d: %s", ErrStackUnderflow, in.Index, in)
	}
	v := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return v, nil
}

func (s *valueStack[V]) pop2(in ir.Instruction) (a, b V, err error) {
	if b, err = s.pop(in); err != nil {
		return a, b, err
	}
	a, err = s.pop(in)
	return a, b, err
}

func memName(addr int64) string { return fmt.Sprintf("m%d", addr) }

func blockName(target int64, progLen int) string {
	if target >= int64(progLen) {
		return "end"
	}
	return fmt.Sprintf("i%d", target)
}
