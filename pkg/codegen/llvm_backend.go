package codegen

import (
	"bytes"
	"fmt"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/ir"
	"github.com/xplshn/ratc/pkg/symtab"
)

var llvmCompare = map[ir.Op]enum.IPred{
	ir.OpEqu: enum.IPredEQ,
	ir.OpNeq: enum.IPredNE,
	ir.OpGrt: enum.IPredSGT,
	ir.OpLes: enum.IPredSLT,
	ir.OpLeq: enum.IPredSLE,
	ir.OpGeq: enum.IPredSGE,
}

type llvmBackend struct {
	mod     *llir.Module
	word    *types.IntType
	mem     map[int64]*llir.Global
	scratch *llir.Global
	fmtIn   constant.Constant
	fmtOut  constant.Constant
	printf  *llir.Func
	scanf   *llir.Func
	blocks  []*llir.Block
}

func NewLLVMBackend() Backend { return &llvmBackend{} }

// Generate emits textual LLVM IR; assembling it is left to llc or clang.
func (b *llvmBackend) Generate(prog *ir.Program, syms *symtab.Table, cfg *config.Config) (*bytes.Buffer, error) {
	text, err := b.GenerateIR(prog, syms, cfg)
	if err != nil {
		return nil, err
	}
	return bytes.NewBufferString(text), nil
}

func (b *llvmBackend) GenerateIR(prog *ir.Program, syms *symtab.Table, cfg *config.Config) (string, error) {
	b.mod = llir.NewModule()
	b.word = types.I64
	intFmt := "%ld"
	if cfg.WordSize == 4 {
		b.word, intFmt = types.I32, "%d"
	}

	b.mem = make(map[int64]*llir.Global)
	for _, e := range syms.Entries() {
		addr := int64(e.Address)
		b.mem[addr] = b.mod.NewGlobalDef(memName(addr), constant.NewInt(b.word, 0))
	}
	b.scratch = b.mod.NewGlobalDef("scratch", constant.NewInt(b.word, 0))
	b.fmtIn = b.cString("fmt_in", intFmt)
	b.fmtOut = b.cString("fmt_out", intFmt+"\n")

	b.printf = b.mod.NewFunc("printf", types.I32, llir.NewParam("format", types.I8Ptr))
	b.printf.Sig.Variadic = true
	b.scanf = b.mod.NewFunc("scanf", types.I32, llir.NewParam("format", types.I8Ptr))
	b.scanf.Sig.Variadic = true

	main := b.mod.NewFunc("main", types.I32)
	entry := main.NewBlock("start")
	n := prog.Len()
	b.blocks = make([]*llir.Block, n+1)
	for i := 0; i < n; i++ {
		b.blocks[i] = main.NewBlock(blockName(int64(i), n))
	}
	b.blocks[n] = main.NewBlock("end")
	entry.NewBr(b.blocks[0])
	b.blocks[n].NewRet(constant.NewInt(types.I32, 0))

	stack := newValueStack[value.Value](prog)
	for _, in := range prog.Instructions() {
		stack.enter(in.Index)
		if err := b.genInstr(in, stack); err != nil {
			return "", err
		}
	}
	return b.mod.String(), nil
}

func (b *llvmBackend) cString(name, s string) constant.Constant {
	g := b.mod.NewGlobalDef(name, constant.NewCharArrayFromString(s+"\x00"))
	g.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	return constant.NewGetElementPtr(g.ContentType, g, zero, zero)
}

func (b *llvmBackend) target(idx int64) *llir.Block {
	if idx < 0 || idx >= int64(len(b.blocks)) {
		return b.blocks[len(b.blocks)-1]
	}
	return b.blocks[idx]
}

func (b *llvmBackend) genInstr(in ir.Instruction, stack *valueStack[value.Value]) error {
	blk := b.blocks[in.Index]
	next := b.blocks[in.Index+1]

	switch in.Op {
	case ir.OpPushI:
		stack.push(constant.NewInt(b.word, in.Operand))
	case ir.OpPushM:
		stack.push(blk.NewLoad(b.word, b.mem[in.Operand]))
	case ir.OpPopM:
		v, err := stack.pop(in)
		if err != nil {
			return err
		}
		blk.NewStore(v, b.mem[in.Operand])
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		x, y, err := stack.pop2(in)
		if err != nil {
			return err
		}
		switch in.Op {
		case ir.OpAdd:
			stack.push(blk.NewAdd(x, y))
		case ir.OpSub:
			stack.push(blk.NewSub(x, y))
		case ir.OpMul:
			stack.push(blk.NewMul(x, y))
		default:
			stack.push(blk.NewSDiv(x, y))
		}
	case ir.OpEqu, ir.OpNeq, ir.OpGrt, ir.OpLes, ir.OpLeq, ir.OpGeq:
		x, y, err := stack.pop2(in)
		if err != nil {
			return err
		}
		stack.push(blk.NewZExt(blk.NewICmp(llvmCompare[in.Op], x, y), b.word))
	case ir.OpJumpZ:
		c, err := stack.pop(in)
		if err != nil {
			return err
		}
		nonZero := blk.NewICmp(enum.IPredNE, c, constant.NewInt(b.word, 0))
		blk.NewCondBr(nonZero, next, b.target(in.Operand))
		return nil
	case ir.OpJump:
		blk.NewBr(b.target(in.Operand))
		return nil
	case ir.OpStdin:
		blk.NewCall(b.scanf, b.fmtIn, b.scratch)
		stack.push(blk.NewLoad(b.word, b.scratch))
	case ir.OpStdout:
		v, err := stack.pop(in)
		if err != nil {
			return err
		}
		blk.NewCall(b.printf, b.fmtOut, v)
	case ir.OpLabel:
	default:
		return fmt.Errorf("llvm: unsupported instruction %d: %s", in.Index, in)
	}
	blk.NewBr(next)
	return nil
}
