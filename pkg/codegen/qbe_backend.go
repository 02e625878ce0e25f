package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/ir"
	"github.com/xplshn/ratc/pkg/symtab"
)

var qbeCompare = map[ir.Op]string{
	ir.OpEqu: "ceq",
	ir.OpNeq: "cne",
	ir.OpGrt: "csgt",
	ir.OpLes: "cslt",
	ir.OpLeq: "csle",
	ir.OpGeq: "csge",
}

var qbeArith = map[ir.Op]string{
	ir.OpAdd: "add",
	ir.OpSub: "sub",
	ir.OpMul: "mul",
	ir.OpDiv: "div",
}

type qbeBackend struct {
	out       *strings.Builder
	wordType  string
	tempCount int
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func (b *qbeBackend) newTemp() string {
	b.tempCount++
	return fmt.Sprintf("%%t%d", b.tempCount)
}

// GenerateIR lowers the stack program to QBE IL: one word global per symbol and
// a main function with one block per instruction index.
func (b *qbeBackend) GenerateIR(prog *ir.Program, syms *symtab.Table, cfg *config.Config) (string, error) {
	var sb strings.Builder
	b.out, b.wordType, b.tempCount = &sb, cfg.WordType, 0

	intFmt := "%ld"
	if cfg.WordSize == 4 {
		intFmt = "%d"
	}
	for _, e := range syms.Entries() {
		fmt.Fprintf(b.out, "data $%s = { %s 0 }\n", memName(int64(e.Address)), b.wordType)
	}
	fmt.Fprintf(b.out, "data $scratch = { %s 0 }\n", b.wordType)
	fmt.Fprintf(b.out, "data $fmt_in = { b \"%s\", b 0 }\n", intFmt)
	fmt.Fprintf(b.out, "data $fmt_out = { b \"%s\\n\", b 0 }\n", intFmt)

	b.out.WriteString("\nexport function w $main() {\n@start\n")
	stack := newValueStack[string](prog)
	for _, in := range prog.Instructions() {
		stack.enter(in.Index)
		fmt.Fprintf(b.out, "@i%d\n", in.Index)
		if err := b.genInstr(in, stack, prog.Len()); err != nil {
			return "", err
		}
	}
	b.out.WriteString("@end\n\tret 0\n}\n")
	return sb.String(), nil
}

func (b *qbeBackend) genInstr(in ir.Instruction, stack *valueStack[string], progLen int) error {
	w := b.wordType
	switch in.Op {
	case ir.OpPushI:
		t := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =%s copy %d\n", t, w, in.Operand)
		stack.push(t)
	case ir.OpPushM:
		t := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =%s load%s $%s\n", t, w, w, memName(in.Operand))
		stack.push(t)
	case ir.OpPopM:
		v, err := stack.pop(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(b.out, "\tstore%s %s, $%s\n", w, v, memName(in.Operand))
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpEqu, ir.OpNeq, ir.OpGrt, ir.OpLes, ir.OpLeq, ir.OpGeq:
		x, y, err := stack.pop2(in)
		if err != nil {
			return err
		}
		op := qbeArith[in.Op]
		if in.Op.IsComparison() {
			op = qbeCompare[in.Op] + w
		}
		t := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =%s %s %s, %s\n", t, w, op, x, y)
		stack.push(t)
	case ir.OpJumpZ:
		c, err := stack.pop(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(b.out, "\tjnz %s, @%s, @%s\n", c, blockName(int64(in.Index+1), progLen), blockName(in.Operand, progLen))
	case ir.OpJump:
		fmt.Fprintf(b.out, "\tjmp @%s\n", blockName(in.Operand, progLen))
	case ir.OpStdin:
		fmt.Fprintf(b.out, "\tcall $scanf(%s $fmt_in, ..., %s $scratch)\n", w, w)
		t := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =%s load%s $scratch\n", t, w, w)
		stack.push(t)
	case ir.OpStdout:
		v, err := stack.pop(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(b.out, "\tcall $printf(%s $fmt_out, ..., %s %s)\n", w, w, v)
	case ir.OpLabel:
	default:
		return fmt.Errorf("qbe: unsupported instruction %d: %s", in.Index, in)
	}
	return nil
}
