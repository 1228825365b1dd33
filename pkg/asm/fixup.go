package asm

import (
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

func roundUp(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// Fixup reserves each function's frame and rewrites instructions whose operand
// combinations x86-64 cannot encode, using R10 and R11 as scratch registers.
func Fixup(prog *Program, cfg *config.Config) (*Program, error) {
	align := int64(16)
	if cfg != nil {
		align = int64(cfg.StackAlignment)
	}

	out := &Program{Statics: prog.Statics}
	for _, fn := range prog.Funcs {
		instrs := []Instruction{AllocateStack{Bytes: roundUp(fn.StackSize, align)}}
		for _, instr := range fn.Instrs {
			fixed, err := fixupInstr(instr)
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, fixed...)
		}
		out.Funcs = append(out.Funcs, &Func{Name: fn.Name, Global: fn.Global, Instrs: instrs, StackSize: fn.StackSize})
	}
	return out, nil
}

func checkOperands(instr Instruction, ops ...Operand) error {
	for _, op := range ops {
		if p, ok := op.(Pseudo); ok {
			return util.Internalf("pseudo register '%s' survived storage assignment in %#v", string(p), instr)
		}
	}
	return nil
}

func fixupInstr(instr Instruction) ([]Instruction, error) {
	switch in := instr.(type) {
	case Mov:
		if err := checkOperands(in, in.Src, in.Dst); err != nil {
			return nil, err
		}
		if isMemory(in.Src) && isMemory(in.Dst) {
			return []Instruction{Mov{Src: in.Src, Dst: R10}, Mov{Src: R10, Dst: in.Dst}}, nil
		}
	case Unary:
		if err := checkOperands(in, in.Dst); err != nil {
			return nil, err
		}
	case Idiv:
		if err := checkOperands(in, in.Src); err != nil {
			return nil, err
		}
		if _, ok := in.Src.(Imm); ok {
			return []Instruction{Mov{Src: in.Src, Dst: R10}, Idiv{Src: R10}}, nil
		}
	case Binary:
		if err := checkOperands(in, in.Src, in.Dst); err != nil {
			return nil, err
		}
		switch {
		case in.Op == Mult:
			return []Instruction{
				Mov{Src: in.Dst, Dst: R11},
				Binary{Op: Mult, Src: in.Src, Dst: R11},
				Mov{Src: R11, Dst: in.Dst},
			}, nil
		case isMemory(in.Src) && isMemory(in.Dst):
			return []Instruction{Mov{Src: in.Src, Dst: R10}, Binary{Op: in.Op, Src: R10, Dst: in.Dst}}, nil
		}
	case Cmp:
		if err := checkOperands(in, in.Src, in.Dst); err != nil {
			return nil, err
		}
		switch {
		case isMemory(in.Src) && isMemory(in.Dst):
			return []Instruction{Mov{Src: in.Src, Dst: R10}, Cmp{Src: R10, Dst: in.Dst}}, nil
		case isImm(in.Dst):
			return []Instruction{Mov{Src: in.Dst, Dst: R11}, Cmp{Src: in.Src, Dst: R11}}, nil
		}
	case SetCC:
		if err := checkOperands(in, in.Dst); err != nil {
			return nil, err
		}
	case Push:
		if err := checkOperands(in, in.Src); err != nil {
			return nil, err
		}
	}
	return []Instruction{instr}, nil
}

func isImm(op Operand) bool {
	_, ok := op.(Imm)
	return ok
}
