// Package ir defines TACKY, the three-address intermediate representation
// produced from the checked AST. Every value is a constant or a named variable
// and control flow is expressed only with labels and jumps.
package ir

import "strconv"

type Op int

const (
	OpReturn Op = iota
	OpCopy
	OpJump
	OpJumpIfZero
	OpJumpIfNotZero
	OpLabel
	OpCall

	// Unary
	OpComplement
	OpNegate
	OpNot

	// Binary
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

var opNames = [...]string{
	OpReturn: "return", OpCopy: "copy", OpJump: "jump", OpJumpIfZero: "jz", OpJumpIfNotZero: "jnz",
	OpLabel: "label", OpCall: "call", OpComplement: "~", OpNegate: "-", OpNot: "!",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpEq: "==", OpNeq: "!=", OpLt: "<", OpLte: "<=", OpGt: ">", OpGte: ">=",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

func (op Op) IsUnary() bool      { return op >= OpComplement && op <= OpNot }
func (op Op) IsBinary() bool     { return op >= OpAdd && op <= OpGte }
func (op Op) IsRelational() bool { return op >= OpEq && op <= OpGte }

type Value interface {
	isValue()
	String() string
}

type Const struct{ Value int64 }
type Var struct{ Name string }

func (c *Const) isValue() {}
func (v *Var) isValue()   {}

func (c *Const) String() string { return strconv.FormatInt(c.Value, 10) }
func (v *Var) String() string   { return v.Name }

// Instruction is one TACKY operation. Which fields are used depends on Op:
//
//	return         Args[0]
//	copy, unary    Args[0] -> Result
//	binary         Args[0] op Args[1] -> Result
//	jump, label    Label
//	jz, jnz        Args[0], Label
//	call           Callee(Args...) -> Result
type Instruction struct {
	Op     Op
	Result Value
	Args   []Value
	Label  string
	Callee string
}

type Func struct {
	Name   string
	Global bool
	Params []string
	Body   []*Instruction
}

type StaticVar struct {
	Name   string
	Global bool
	Init   int64
}

type Program struct {
	Statics []*StaticVar
	Funcs   []*Func
}

func NewConst(v int64) *Const { return &Const{Value: v} }
func NewVar(name string) *Var { return &Var{Name: name} }

func Return(v Value) *Instruction { return &Instruction{Op: OpReturn, Args: []Value{v}} }
func Copy(src, dst Value) *Instruction {
	return &Instruction{Op: OpCopy, Result: dst, Args: []Value{src}}
}
func Unary(op Op, src, dst Value) *Instruction {
	return &Instruction{Op: op, Result: dst, Args: []Value{src}}
}
func Binary(op Op, src1, src2, dst Value) *Instruction {
	return &Instruction{Op: op, Result: dst, Args: []Value{src1, src2}}
}
func Jump(target string) *Instruction { return &Instruction{Op: OpJump, Label: target} }
func JumpIfZero(cond Value, target string) *Instruction {
	return &Instruction{Op: OpJumpIfZero, Args: []Value{cond}, Label: target}
}
func JumpIfNotZero(cond Value, target string) *Instruction {
	return &Instruction{Op: OpJumpIfNotZero, Args: []Value{cond}, Label: target}
}
func Label(name string) *Instruction { return &Instruction{Op: OpLabel, Label: name} }
func Call(callee string, args []Value, dst Value) *Instruction {
	return &Instruction{Op: OpCall, Callee: callee, Args: args, Result: dst}
}
