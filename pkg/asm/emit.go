package asm

import (
	"fmt"
	"io"

	"github.com/rainierwolfcastle/nqcc/pkg/config"
)

var (
	regNames4 = [...]string{AX: "%eax", CX: "%ecx", DX: "%edx", DI: "%edi", SI: "%esi", R8: "%r8d", R9: "%r9d", R10: "%r10d", R11: "%r11d"}
	regNames1 = [...]string{AX: "%al", CX: "%cl", DX: "%dl", DI: "%dil", SI: "%sil", R8: "%r8b", R9: "%r9b", R10: "%r10b", R11: "%r11b"}
	regNames8 = [...]string{AX: "%rax", CX: "%rcx", DX: "%rdx", DI: "%rdi", SI: "%rsi", R8: "%r8", R9: "%r9", R10: "%r10", R11: "%r11"}

	ccNames = [...]string{E: "e", NE: "ne", G: "g", GE: "ge", L: "l", LE: "le"}
)

type emitter struct {
	w       io.Writer
	cfg     *config.Config
	defined map[string]bool
}

// Emit writes prog as AT&T-syntax assembly. Symbol and local label prefixes
// follow the target in cfg.
func Emit(w io.Writer, prog *Program, cfg *config.Config) {
	e := &emitter{w: w, cfg: cfg, defined: make(map[string]bool)}
	for _, fn := range prog.Funcs {
		e.defined[fn.Name] = true
	}

	for _, s := range prog.Statics {
		e.emitStatic(s)
	}
	for _, fn := range prog.Funcs {
		e.emitFunc(fn)
	}
	if cfg.GNUStackNote {
		fmt.Fprintln(w, "\t.section .note.GNU-stack,\"\",@progbits")
	}
}

func (e *emitter) symbol(name string) string { return e.cfg.SymbolPrefix + name }
func (e *emitter) label(name string) string  { return e.cfg.LabelPrefix + name }

func (e *emitter) line(format string, args ...interface{}) {
	fmt.Fprintf(e.w, "\t"+format+"\n", args...)
}

func (e *emitter) emitStatic(s StaticVar) {
	if s.Global {
		e.line(".globl %s", e.symbol(s.Name))
	}
	if s.Init != 0 {
		e.line(".data")
		e.line(".balign 4")
		fmt.Fprintf(e.w, "%s:\n", e.symbol(s.Name))
		e.line(".long %d", s.Init)
		return
	}
	e.line(".bss")
	e.line(".balign 4")
	fmt.Fprintf(e.w, "%s:\n", e.symbol(s.Name))
	e.line(".zero 4")
}

func (e *emitter) emitFunc(fn *Func) {
	if fn.Global {
		e.line(".globl %s", e.symbol(fn.Name))
	}
	e.line(".text")
	fmt.Fprintf(e.w, "%s:\n", e.symbol(fn.Name))
	e.line("pushq %%rbp")
	e.line("movq %%rsp, %%rbp")
	for _, instr := range fn.Instrs {
		e.emitInstr(instr)
	}
}

// operand renders op at the given width in bytes (1, 4 or 8).
func (e *emitter) operand(op Operand, size int) string {
	switch o := op.(type) {
	case Imm:
		return fmt.Sprintf("$%d", int64(o))
	case Reg:
		switch size {
		case 1:
			return regNames1[o]
		case 8:
			return regNames8[o]
		}
		return regNames4[o]
	case Stack:
		return fmt.Sprintf("%d(%%rbp)", int64(o))
	case Data:
		return e.symbol(string(o)) + "(%rip)"
	}
	return "?"
}

func (e *emitter) callTarget(name string) string {
	if e.cfg.PLTCalls && !e.defined[name] {
		return e.symbol(name) + "@PLT"
	}
	return e.symbol(name)
}

func (e *emitter) emitInstr(instr Instruction) {
	switch in := instr.(type) {
	case Mov:
		e.line("movl %s, %s", e.operand(in.Src, 4), e.operand(in.Dst, 4))
	case Unary:
		mnemonic := "negl"
		if in.Op == Not {
			mnemonic = "notl"
		}
		e.line("%s %s", mnemonic, e.operand(in.Dst, 4))
	case Binary:
		mnemonic := [...]string{Add: "addl", Sub: "subl", Mult: "imull"}[in.Op]
		e.line("%s %s, %s", mnemonic, e.operand(in.Src, 4), e.operand(in.Dst, 4))
	case Cmp:
		e.line("cmpl %s, %s", e.operand(in.Src, 4), e.operand(in.Dst, 4))
	case Idiv:
		e.line("idivl %s", e.operand(in.Src, 4))
	case Cdq:
		e.line("cdq")
	case Jmp:
		e.line("jmp %s", e.label(in.Target))
	case JmpCC:
		e.line("j%s %s", ccNames[in.CC], e.label(in.Target))
	case SetCC:
		e.line("set%s %s", ccNames[in.CC], e.operand(in.Dst, 1))
	case Label:
		fmt.Fprintf(e.w, "%s:\n", e.label(in.Name))
	case AllocateStack:
		e.line("subq $%d, %%rsp", in.Bytes)
	case DeallocateStack:
		e.line("addq $%d, %%rsp", in.Bytes)
	case Push:
		e.line("pushq %s", e.operand(in.Src, 8))
	case Call:
		e.line("call %s", e.callTarget(in.Name))
	case Ret:
		e.line("movq %%rbp, %%rsp")
		e.line("popq %%rbp")
		e.line("ret")
	}
}
