package asm

import "github.com/rainierwolfcastle/nqcc/pkg/symbols"

type stackAssigner struct {
	syms    *symbols.Table
	offsets map[string]int64
	offset  int64
}

// ReplacePseudos gives every Pseudo operand a home. Names with static storage
// in syms become Data operands; every other name gets its own 4-byte stack
// slot, reused for each later occurrence within the same function.
func ReplacePseudos(prog *Program, syms *symbols.Table) *Program {
	out := &Program{Statics: prog.Statics}
	for _, fn := range prog.Funcs {
		sa := &stackAssigner{syms: syms, offsets: make(map[string]int64)}
		instrs := make([]Instruction, len(fn.Instrs))
		for i, instr := range fn.Instrs {
			instrs[i] = sa.replaceInstr(instr)
		}
		out.Funcs = append(out.Funcs, &Func{Name: fn.Name, Global: fn.Global, Instrs: instrs, StackSize: -sa.offset})
	}
	return out
}

func (sa *stackAssigner) replace(op Operand) Operand {
	p, ok := op.(Pseudo)
	if !ok {
		return op
	}
	name := string(p)
	if sa.syms.IsStatic(name) {
		return Data(name)
	}
	if off, ok := sa.offsets[name]; ok {
		return Stack(off)
	}
	sa.offset -= 4
	sa.offsets[name] = sa.offset
	return Stack(sa.offset)
}

func (sa *stackAssigner) replaceInstr(instr Instruction) Instruction {
	switch in := instr.(type) {
	case Mov:
		return Mov{Src: sa.replace(in.Src), Dst: sa.replace(in.Dst)}
	case Unary:
		return Unary{Op: in.Op, Dst: sa.replace(in.Dst)}
	case Binary:
		return Binary{Op: in.Op, Src: sa.replace(in.Src), Dst: sa.replace(in.Dst)}
	case Cmp:
		return Cmp{Src: sa.replace(in.Src), Dst: sa.replace(in.Dst)}
	case Idiv:
		return Idiv{Src: sa.replace(in.Src)}
	case SetCC:
		return SetCC{CC: in.CC, Dst: sa.replace(in.Dst)}
	case Push:
		return Push{Src: sa.replace(in.Src)}
	}
	return instr
}
