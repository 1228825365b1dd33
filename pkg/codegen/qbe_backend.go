package codegen

import (
	"fmt"
	"strings"

	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/symbols"
)

// qbeBackend translates TACKY to QBE IL and hands it to QBE. Every value is a
// word. Locals become temporaries, static variables are data symbols accessed
// with loadw and storew.
type qbeBackend struct {
	out       *strings.Builder
	syms      *symbols.Table
	tmpCount  int
	needBlock bool
}

func NewQBEBackend() Backend { return &qbeBackend{} }

// GenerateIR returns the QBE IL for prog without running QBE.
func (b *qbeBackend) GenerateIR(prog *ir.Program, syms *symbols.Table, cfg *config.Config) (string, error) {
	var qbeIRBuilder strings.Builder
	b.out = &qbeIRBuilder
	b.syms = syms
	b.tmpCount = 0

	for _, s := range prog.Statics {
		b.genStatic(s, cfg)
	}
	for _, fn := range prog.Funcs {
		if err := b.genFunc(fn); err != nil {
			return "", err
		}
	}
	return qbeIRBuilder.String(), nil
}

func export(global bool) string {
	if global {
		return "export "
	}
	return ""
}

func (b *qbeBackend) genStatic(s *ir.StaticVar, cfg *config.Config) {
	if s.Init == 0 {
		fmt.Fprintf(b.out, "%sdata $%s = align %d { z %d }\n", export(s.Global), s.Name, cfg.WordSize, cfg.WordSize)
		return
	}
	fmt.Fprintf(b.out, "%sdata $%s = align %d { w %d }\n", export(s.Global), s.Name, cfg.WordSize, s.Init)
}

func (b *qbeBackend) isStatic(name string) bool { return b.syms.IsStatic(name) }

func (b *qbeBackend) genFunc(fn *ir.Func) error {
	b.needBlock = false
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = "w %" + p
	}
	fmt.Fprintf(b.out, "\n%sfunction w $%s(%s) {\n@start\n", export(fn.Global), fn.Name, strings.Join(params, ", "))

	// QBE rejects temporaries that are read without a reaching definition.
	isParam := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		isParam[p] = true
	}
	seen := make(map[string]bool)
	for _, instr := range fn.Body {
		v, ok := instr.Result.(*ir.Var)
		if !ok || isParam[v.Name] || seen[v.Name] || b.isStatic(v.Name) {
			continue
		}
		seen[v.Name] = true
		fmt.Fprintf(b.out, "\t%%%s =w copy 0\n", v.Name)
	}

	for _, instr := range fn.Body {
		if err := b.genInstr(instr); err != nil {
			return err
		}
	}
	b.out.WriteString("}\n")
	return nil
}

func (b *qbeBackend) newTemp() string {
	b.tmpCount++
	return fmt.Sprintf("%%.q%d", b.tmpCount)
}

func (b *qbeBackend) newBlock() string {
	b.tmpCount++
	return fmt.Sprintf("@.b%d", b.tmpCount)
}

// operand renders v as a QBE operand, loading static variables first.
func (b *qbeBackend) operand(v ir.Value) string {
	switch val := v.(type) {
	case *ir.Const:
		return fmt.Sprintf("%d", val.Value)
	case *ir.Var:
		if b.isStatic(val.Name) {
			t := b.newTemp()
			fmt.Fprintf(b.out, "\t%s =w loadw $%s\n", t, val.Name)
			return t
		}
		return "%" + val.Name
	}
	return ""
}

// assign emits "dst =w rhs", going through a temporary when dst is static.
func (b *qbeBackend) assign(dst ir.Value, rhs string) {
	v := dst.(*ir.Var)
	if !b.isStatic(v.Name) {
		fmt.Fprintf(b.out, "\t%%%s =w %s\n", v.Name, rhs)
		return
	}
	t := b.newTemp()
	fmt.Fprintf(b.out, "\t%s =w %s\n", t, rhs)
	fmt.Fprintf(b.out, "\tstorew %s, $%s\n", t, v.Name)
}

func (b *qbeBackend) genInstr(instr *ir.Instruction) error {
	if instr.Op == ir.OpLabel {
		fmt.Fprintf(b.out, "@%s\n", instr.Label)
		b.needBlock = false
		return nil
	}
	if b.needBlock {
		fmt.Fprintf(b.out, "%s\n", b.newBlock())
		b.needBlock = false
	}

	switch op := instr.Op; {
	case op == ir.OpReturn:
		fmt.Fprintf(b.out, "\tret %s\n", b.operand(instr.Args[0]))
		b.needBlock = true
	case op == ir.OpJump:
		fmt.Fprintf(b.out, "\tjmp @%s\n", instr.Label)
		b.needBlock = true
	case op == ir.OpJumpIfZero, op == ir.OpJumpIfNotZero:
		cond := b.operand(instr.Args[0])
		next := b.newBlock()
		if op == ir.OpJumpIfZero {
			fmt.Fprintf(b.out, "\tjnz %s, %s, @%s\n", cond, next, instr.Label)
		} else {
			fmt.Fprintf(b.out, "\tjnz %s, @%s, %s\n", cond, instr.Label, next)
		}
		fmt.Fprintf(b.out, "%s\n", next)
	case op == ir.OpCopy:
		b.assign(instr.Result, "copy "+b.operand(instr.Args[0]))
	case op == ir.OpCall:
		args := make([]string, len(instr.Args))
		for i, a := range instr.Args {
			args[i] = "w " + b.operand(a)
		}
		b.assign(instr.Result, fmt.Sprintf("call $%s(%s)", instr.Callee, strings.Join(args, ", ")))
	case op.IsUnary():
		src := b.operand(instr.Args[0])
		switch op {
		case ir.OpNegate:
			b.assign(instr.Result, "neg "+src)
		case ir.OpComplement:
			b.assign(instr.Result, "xor "+src+", -1")
		case ir.OpNot:
			b.assign(instr.Result, "ceqw "+src+", 0")
		}
	case op.IsBinary():
		src1 := b.operand(instr.Args[0])
		src2 := b.operand(instr.Args[1])
		b.assign(instr.Result, fmt.Sprintf("%s %s, %s", qbeBinaryOp(op), src1, src2))
	default:
		return fmt.Errorf("qbe: unsupported instruction %s", instr)
	}
	return nil
}

func qbeBinaryOp(op ir.Op) string {
	switch op {
	case ir.OpAdd: return "add"
	case ir.OpSub: return "sub"
	case ir.OpMul: return "mul"
	case ir.OpDiv: return "div"
	case ir.OpRem: return "rem"
	case ir.OpEq: return "ceqw"
	case ir.OpNeq: return "cnew"
	case ir.OpLt: return "csltw"
	case ir.OpLte: return "cslew"
	case ir.OpGt: return "csgtw"
	case ir.OpGte: return "csgew"
	default: return "unknown_op"
	}
}
