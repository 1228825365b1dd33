package asm

import (
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

var binaryOps = map[ir.Op]BinaryOp{ir.OpAdd: Add, ir.OpSub: Sub, ir.OpMul: Mult}

// Select translates TACKY to machine IR. Variables become Pseudo operands,
// which ReplacePseudos later maps to memory.
func Select(prog *ir.Program) (*Program, error) {
	out := &Program{}
	for _, s := range prog.Statics {
		out.Statics = append(out.Statics, StaticVar{Name: s.Name, Global: s.Global, Init: s.Init})
	}
	for _, fn := range prog.Funcs {
		mfn, err := selectFunc(fn)
		if err != nil {
			return nil, err
		}
		out.Funcs = append(out.Funcs, mfn)
	}
	return out, nil
}

// selector keeps the first translation failure of a function.
type selector struct {
	fn  string
	err error
}

func selectFunc(fn *ir.Func) (*Func, error) {
	sel := &selector{fn: fn.Name}
	var instrs []Instruction
	for i, p := range fn.Params {
		if i < len(ArgRegs) {
			instrs = append(instrs, Mov{Src: ArgRegs[i], Dst: Pseudo(p)})
		} else {
			instrs = append(instrs, Mov{Src: Stack(16 + 8*int64(i-len(ArgRegs))), Dst: Pseudo(p)})
		}
	}
	for _, instr := range fn.Body {
		out := sel.instr(instr)
		if sel.err != nil {
			return nil, sel.err
		}
		instrs = append(instrs, out...)
	}
	return &Func{Name: fn.Name, Global: fn.Global, Instrs: instrs}, nil
}

func (s *selector) operand(v ir.Value) Operand {
	switch val := v.(type) {
	case *ir.Const:
		return Imm(val.Value)
	case *ir.Var:
		return Pseudo(val.Name)
	}
	if s.err == nil {
		s.err = util.Internalf("%s: cannot select operand %T", s.fn, v)
	}
	return nil
}

func condCode(op ir.Op) CondCode {
	switch op {
	case ir.OpEq:
		return E
	case ir.OpNeq:
		return NE
	case ir.OpLt:
		return L
	case ir.OpLte:
		return LE
	case ir.OpGt:
		return G
	default:
		return GE
	}
}

func (s *selector) instr(instr *ir.Instruction) []Instruction {
	switch op := instr.Op; {
	case op == ir.OpReturn:
		return []Instruction{Mov{Src: s.operand(instr.Args[0]), Dst: AX}, Ret{}}
	case op == ir.OpCopy:
		return []Instruction{Mov{Src: s.operand(instr.Args[0]), Dst: s.operand(instr.Result)}}
	case op == ir.OpJump:
		return []Instruction{Jmp{Target: instr.Label}}
	case op == ir.OpJumpIfZero:
		return []Instruction{Cmp{Src: Imm(0), Dst: s.operand(instr.Args[0])}, JmpCC{CC: E, Target: instr.Label}}
	case op == ir.OpJumpIfNotZero:
		return []Instruction{Cmp{Src: Imm(0), Dst: s.operand(instr.Args[0])}, JmpCC{CC: NE, Target: instr.Label}}
	case op == ir.OpLabel:
		return []Instruction{Label{Name: instr.Label}}
	case op == ir.OpCall:
		return s.call(instr)
	case op == ir.OpNot:
		dst := s.operand(instr.Result)
		return []Instruction{
			Cmp{Src: Imm(0), Dst: s.operand(instr.Args[0])},
			Mov{Src: Imm(0), Dst: dst},
			SetCC{CC: E, Dst: dst},
		}
	case op == ir.OpNegate, op == ir.OpComplement:
		uop := Neg
		if op == ir.OpComplement {
			uop = Not
		}
		dst := s.operand(instr.Result)
		return []Instruction{Mov{Src: s.operand(instr.Args[0]), Dst: dst}, Unary{Op: uop, Dst: dst}}
	case op.IsRelational():
		dst := s.operand(instr.Result)
		return []Instruction{
			Cmp{Src: s.operand(instr.Args[1]), Dst: s.operand(instr.Args[0])},
			Mov{Src: Imm(0), Dst: dst},
			SetCC{CC: condCode(op), Dst: dst},
		}
	case op == ir.OpDiv, op == ir.OpRem:
		result := AX
		if op == ir.OpRem {
			result = DX
		}
		return []Instruction{
			Mov{Src: s.operand(instr.Args[0]), Dst: AX},
			Cdq{},
			Idiv{Src: s.operand(instr.Args[1])},
			Mov{Src: result, Dst: s.operand(instr.Result)},
		}
	case op == ir.OpAdd, op == ir.OpSub, op == ir.OpMul:
		bop := binaryOps[op]
		dst := s.operand(instr.Result)
		return []Instruction{Mov{Src: s.operand(instr.Args[0]), Dst: dst}, Binary{Op: bop, Src: s.operand(instr.Args[1]), Dst: dst}}
	}
	s.err = util.Internalf("%s: cannot select instruction %q", s.fn, instr.Op)
	return nil
}

// call passes the first six arguments in registers and pushes the rest
// in reverse order, padding first so %rsp stays 16-byte aligned at the call.
func (s *selector) call(instr *ir.Instruction) []Instruction {
	var out []Instruction
	regArgs, stackArgs := instr.Args, []ir.Value(nil)
	if len(regArgs) > len(ArgRegs) {
		regArgs, stackArgs = instr.Args[:len(ArgRegs)], instr.Args[len(ArgRegs):]
	}

	var padding int64
	if len(stackArgs)%2 == 1 {
		padding = 8
		out = append(out, AllocateStack{Bytes: padding})
	}
	for i, arg := range regArgs {
		out = append(out, Mov{Src: s.operand(arg), Dst: ArgRegs[i]})
	}
	for i := len(stackArgs) - 1; i >= 0; i-- {
		switch op := s.operand(stackArgs[i]).(type) {
		case Imm, Reg:
			out = append(out, Push{Src: op})
		default:
			out = append(out, Mov{Src: op, Dst: AX}, Push{Src: AX})
		}
	}

	out = append(out, Call{Name: instr.Callee})
	if n := 8*int64(len(stackArgs)) + padding; n != 0 {
		out = append(out, DeallocateStack{Bytes: n})
	}
	return append(out, Mov{Src: AX, Dst: s.operand(instr.Result)})
}
