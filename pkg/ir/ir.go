package ir

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

type Op int

const (
	OpPushI Op = iota
	OpPushM
	OpPopM
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpEqu
	OpNeq
	OpGrt
	OpLes
	OpLeq
	OpGeq
	OpJump
	OpJumpZ
	OpStdin
	OpStdout
	OpLabel
)

var opNames = [...]string{
	OpPushI:  "PUSHI",
	OpPushM:  "PUSHM",
	OpPopM:   "POPM",
	OpAdd:    "ADD",
	OpSub:    "SUB",
	OpMul:    "MUL",
	OpDiv:    "DIV",
	OpEqu:    "EQU",
	OpNeq:    "NEQ",
	OpGrt:    "GRT",
	OpLes:    "LES",
	OpLeq:    "LEQ",
	OpGeq:    "GEQ",
	OpJump:   "JUMP",
	OpJumpZ:  "JUMPZ",
	OpStdin:  "STDIN",
	OpStdout: "STDOUT",
	OpLabel:  "LABEL",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opNames[op]
}

func (op Op) HasOperand() bool {
	switch op {
	case OpPushI, OpPushM, OpPopM, OpJump, OpJumpZ:
		return true
	}
	return false
}

func (op Op) IsJump() bool { return op == OpJump || op == OpJumpZ }

// IsComparison reports whether op is one of the six relational opcodes.
func (op Op) IsComparison() bool { return op >= OpEqu && op <= OpGeq }

type Instruction struct {
	Index   int
	Op      Op
	Operand int64
}

func (in Instruction) String() string {
	if in.Op.HasOperand() {
		return in.Op.String() + " " + strconv.FormatInt(in.Operand, 10)
	}
	return in.Op.String()
}

// Patch names a jump slot emitted before its target was known.
type Patch struct {
	Index int
	Op    Op
}

var (
	ErrUnresolvedPatch = errors.New("unresolved jump")
	ErrJumpTarget      = errors.New("jump target out of range")
)

// Program is an append-only instruction sequence. The only in-place update is
// resolving a pending jump, which is tracked by index until Finish.
type Program struct {
	code    []Instruction
	pending map[int]Op
}

func NewProgram() *Program {
	return &Program{pending: make(map[int]Op)}
}

// Len is also the index the next emitted instruction will get.
func (p *Program) Len() int { return len(p.code) }

func (p *Program) Emit(op Op, operand int64) int {
	idx := len(p.code)
	p.code = append(p.code, Instruction{Index: idx, Op: op, Operand: operand})
	return idx
}

func (p *Program) EmitPending(op Op) Patch {
	if !op.IsJump() {
		panic(fmt.Sprintf("ir: %s cannot be patched", op))
	}
	idx := p.Emit(op, -1)
	p.pending[idx] = op
	return Patch{Index: idx, Op: op}
}

func (p *Program) Resolve(patch Patch, target int) {
	op, ok := p.pending[patch.Index]
	if !ok || op != patch.Op {
		panic(fmt.Sprintf("ir: no pending %s at %d", patch.Op, patch.Index))
	}
	p.code[patch.Index].Operand = int64(target)
	delete(p.pending, patch.Index)
}

func (p *Program) At(i int) Instruction { return p.code[i] }

func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.code))
	copy(out, p.code)
	return out
}

// Finish checks that every jump slot was resolved and lands inside the program.
func (p *Program) Finish() error {
	if len(p.pending) > 0 {
		idxs := make([]int, 0, len(p.pending))
		for idx := range p.pending {
			idxs = append(idxs, idx)
		}
		sort.Ints(idxs)
		return fmt.Errorf("%w: %s at %d", ErrUnresolvedPatch, p.pending[idxs[0]], idxs[0])
	}
	for _, in := range p.code {
		if in.Op.IsJump() && (in.Operand < 0 || in.Operand >= int64(len(p.code))) {
			return fmt.Errorf("%w: %d: %s", ErrJumpTarget, in.Index, in)
		}
	}
	return nil
}

// Targets returns the set of indices some jump lands on.
func (p *Program) Targets() map[int]bool {
	t := make(map[int]bool)
	for _, in := range p.code {
		if in.Op.IsJump() {
			t[int(in.Operand)] = true
		}
	}
	return t
}

func (p *Program) WriteListing(w io.Writer) error {
	for _, in := range p.code {
		if _, err := fmt.Fprintf(w, "%d: %s\n", in.Index, in); err != nil {
			return err
		}
	}
	return nil
}
