// Package asm is the x86-64 machine IR and the passes that turn TACKY into
// assembly text: instruction selection, storage assignment, legalization and
// emission.
package asm

type Reg int

const (
	AX Reg = iota
	CX
	DX
	DI
	SI
	R8
	R9
	R10
	R11
)

// ArgRegs holds the integer argument registers in calling-convention order.
var ArgRegs = []Reg{DI, SI, DX, CX, R8, R9}

// Operand is one of Imm, Reg, Pseudo, Stack or Data.
type Operand interface{ isOperand() }

type (
	Imm    int64
	Pseudo string
	Stack  int64 // offset from %rbp
	Data   string
)

func (Imm) isOperand()    {}
func (Reg) isOperand()    {}
func (Pseudo) isOperand() {}
func (Stack) isOperand()  {}
func (Data) isOperand()   {}

func isMemory(op Operand) bool {
	switch op.(type) {
	case Stack, Data:
		return true
	}
	return false
}

type UnaryOp int

const (
	Neg UnaryOp = iota
	Not
)

type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mult
)

type CondCode int

const (
	E CondCode = iota
	NE
	G
	GE
	L
	LE
)

type Instruction interface{ isInstr() }

type (
	Mov struct{ Src, Dst Operand }
	Unary struct {
		Op  UnaryOp
		Dst Operand
	}
	Binary struct {
		Op       BinaryOp
		Src, Dst Operand
	}
	// Cmp sets flags from Dst - Src.
	Cmp   struct{ Src, Dst Operand }
	Idiv  struct{ Src Operand }
	Cdq   struct{}
	Jmp   struct{ Target string }
	JmpCC struct {
		CC     CondCode
		Target string
	}
	SetCC struct {
		CC  CondCode
		Dst Operand
	}
	Label           struct{ Name string }
	AllocateStack   struct{ Bytes int64 }
	DeallocateStack struct{ Bytes int64 }
	Push            struct{ Src Operand }
	Call            struct{ Name string }
	Ret             struct{}
)

func (Mov) isInstr()             {}
func (Unary) isInstr()           {}
func (Binary) isInstr()          {}
func (Cmp) isInstr()             {}
func (Idiv) isInstr()            {}
func (Cdq) isInstr()             {}
func (Jmp) isInstr()             {}
func (JmpCC) isInstr()           {}
func (SetCC) isInstr()           {}
func (Label) isInstr()           {}
func (AllocateStack) isInstr()   {}
func (DeallocateStack) isInstr() {}
func (Push) isInstr()            {}
func (Call) isInstr()            {}
func (Ret) isInstr()             {}

type Func struct {
	Name      string
	Global    bool
	Instrs    []Instruction
	StackSize int64
}

type StaticVar struct {
	Name   string
	Global bool
	Init   int64
}

type Program struct {
	Statics []StaticVar
	Funcs   []*Func
}
