package asm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/symbols"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(name string) *ir.Var { return ir.NewVar(name) }
func c(n int64) *ir.Const { return ir.NewConst(n) }
func argNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "p" + string(rune('a'+i))
	}
	return names
}

func selectInstrs(t *testing.T, prog *ir.Program) []Instruction {
	t.Helper()
	out, err := Select(prog)
	require.NoError(t, err)
	return out.Funcs[0].Instrs
}

func callWith(n int) *ir.Program {
	args := make([]ir.Value, n)
	for i := range args {
		args[i] = c(int64(i + 1))
	}
	return &ir.Program{Funcs: []*ir.Func{{
		Name: "main", Global: true,
		Body: []*ir.Instruction{ir.Call("f", args, v("tmp.0")), ir.Return(v("tmp.0"))},
	}}}
}

func TestSelectCallWithOddStackArgs(t *testing.T) {
	got := selectInstrs(t, callWith(7))
	want := []Instruction{
		AllocateStack{Bytes: 8},
		Mov{Src: Imm(1), Dst: DI},
		Mov{Src: Imm(2), Dst: SI},
		Mov{Src: Imm(3), Dst: DX},
		Mov{Src: Imm(4), Dst: CX},
		Mov{Src: Imm(5), Dst: R8},
		Mov{Src: Imm(6), Dst: R9},
		Push{Src: Imm(7)},
		Call{Name: "f"},
		DeallocateStack{Bytes: 16},
		Mov{Src: AX, Dst: Pseudo("tmp.0")},
		Mov{Src: Pseudo("tmp.0"), Dst: AX},
		Ret{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectCallWithEvenStackArgs(t *testing.T) {
	got := selectInstrs(t, callWith(8))
	var pushes []Instruction
	for _, instr := range got {
		if _, ok := instr.(AllocateStack); ok {
			t.Fatalf("unexpected padding in %v", got)
		}
		if p, ok := instr.(Push); ok {
			pushes = append(pushes, p)
		}
	}
	assert.Equal(t, []Instruction{Push{Src: Imm(8)}, Push{Src: Imm(7)}}, pushes)
	assert.Contains(t, got, DeallocateStack{Bytes: 16})
}

func TestSelectPushStagesVariablesThroughAX(t *testing.T) {
	args := []ir.Value{c(1), c(2), c(3), c(4), c(5), c(6), v("x")}
	prog := &ir.Program{Funcs: []*ir.Func{{Name: "main", Body: []*ir.Instruction{ir.Call("f", args, v("tmp.0"))}}}}
	got := selectInstrs(t, prog)
	assert.Equal(t, []Instruction{Mov{Src: Pseudo("x"), Dst: AX}, Push{Src: AX}, Call{Name: "f"}}, got[7:10])
}

func TestSelectParameters(t *testing.T) {
	prog := &ir.Program{Funcs: []*ir.Func{{Name: "f", Params: argNames(8), Body: []*ir.Instruction{ir.Return(c(0))}}}}
	got := selectInstrs(t, prog)
	assert.Equal(t, Mov{Src: DI, Dst: Pseudo("pa")}, got[0])
	assert.Equal(t, Mov{Src: R9, Dst: Pseudo("pf")}, got[5])
	assert.Equal(t, Mov{Src: Stack(16), Dst: Pseudo("pg")}, got[6])
	assert.Equal(t, Mov{Src: Stack(24), Dst: Pseudo("ph")}, got[7])
}

func TestSelectArithmetic(t *testing.T) {
	body := []*ir.Instruction{
		ir.Binary(ir.OpLt, v("a"), v("b"), v("t0")),
		ir.Binary(ir.OpRem, v("a"), c(3), v("t1")),
		ir.Unary(ir.OpNot, v("a"), v("t2")),
		ir.Binary(ir.OpSub, v("a"), v("b"), v("t3")),
	}
	got := selectInstrs(t, &ir.Program{Funcs: []*ir.Func{{Name: "f", Body: body}}})
	want := []Instruction{
		Cmp{Src: Pseudo("b"), Dst: Pseudo("a")},
		Mov{Src: Imm(0), Dst: Pseudo("t0")},
		SetCC{CC: L, Dst: Pseudo("t0")},
		Mov{Src: Pseudo("a"), Dst: AX},
		Cdq{},
		Idiv{Src: Imm(3)},
		Mov{Src: DX, Dst: Pseudo("t1")},
		Cmp{Src: Imm(0), Dst: Pseudo("a")},
		Mov{Src: Imm(0), Dst: Pseudo("t2")},
		SetCC{CC: E, Dst: Pseudo("t2")},
		Mov{Src: Pseudo("a"), Dst: Pseudo("t3")},
		Binary{Op: Sub, Src: Pseudo("b"), Dst: Pseudo("t3")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectRejectsUnknownInstructions(t *testing.T) {
	tests := []struct {
		name  string
		instr *ir.Instruction
	}{
		{"unknown op", &ir.Instruction{Op: ir.Op(99)}},
		{"missing destination", &ir.Instruction{Op: ir.OpCopy, Args: []ir.Value{c(1)}}},
		{"missing call result", ir.Call("g", []ir.Value{c(1)}, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &ir.Program{Funcs: []*ir.Func{{Name: "f", Body: []*ir.Instruction{tt.instr, ir.Return(c(0))}}}}
			_, err := Select(prog)
			require.Error(t, err)
			kind, ok := util.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, util.ErrInternal, kind)
		})
	}
}

func TestSelectMultiply(t *testing.T) {
	body := []*ir.Instruction{ir.Binary(ir.OpMul, v("a"), c(3), v("t0")), ir.Binary(ir.OpAdd, v("t0"), v("a"), v("t1"))}
	got := selectInstrs(t, &ir.Program{Funcs: []*ir.Func{{Name: "f", Body: body}}})
	assert.Equal(t, []Instruction{
		Mov{Src: Pseudo("a"), Dst: Pseudo("t0")},
		Binary{Op: Mult, Src: Imm(3), Dst: Pseudo("t0")},
		Mov{Src: Pseudo("t0"), Dst: Pseudo("t1")},
		Binary{Op: Add, Src: Pseudo("a"), Dst: Pseudo("t1")},
	}, got)
}

func TestReplacePseudosReusesOffsets(t *testing.T) {
	syms := symbols.NewTable()
	syms.Set("counter", symbols.Symbol{Type: symbols.IntType, Attrs: symbols.StaticAttr{Init: symbols.InitialOf(0)}})
	syms.Set("a", symbols.Symbol{Type: symbols.IntType, Attrs: symbols.LocalAttr{}})

	prog := &Program{Funcs: []*Func{{Name: "f", Instrs: []Instruction{
		Mov{Src: Imm(1), Dst: Pseudo("a")},
		Mov{Src: Pseudo("a"), Dst: Pseudo("b")},
		Binary{Op: Add, Src: Pseudo("counter"), Dst: Pseudo("a")},
	}}}}
	got := ReplacePseudos(prog, syms).Funcs[0]

	assert.Equal(t, []Instruction{
		Mov{Src: Imm(1), Dst: Stack(-4)},
		Mov{Src: Stack(-4), Dst: Stack(-8)},
		Binary{Op: Add, Src: Data("counter"), Dst: Stack(-4)},
	}, got.Instrs)
	assert.Equal(t, int64(8), got.StackSize)

	assert.Equal(t, Pseudo("a"), prog.Funcs[0].Instrs[0].(Mov).Dst, "input is not modified")
}

func TestReplacePseudosStartsFreshPerFunction(t *testing.T) {
	prog := &Program{Funcs: []*Func{
		{Name: "f", Instrs: []Instruction{Mov{Src: Imm(1), Dst: Pseudo("x")}}},
		{Name: "g", Instrs: []Instruction{Mov{Src: Imm(1), Dst: Pseudo("y")}}},
	}}
	got := ReplacePseudos(prog, symbols.NewTable())
	assert.Equal(t, Mov{Src: Imm(1), Dst: Stack(-4)}, got.Funcs[1].Instrs[0])
	assert.Equal(t, int64(4), got.Funcs[1].StackSize)
}

func TestFixupFrameSize(t *testing.T) {
	for _, tt := range []struct{ size, want int64 }{{0, 0}, {4, 16}, {16, 16}, {20, 32}, {32, 32}} {
		prog := &Program{Funcs: []*Func{{Name: "f", StackSize: tt.size}}}
		got, err := Fixup(prog, config.NewConfig())
		require.NoError(t, err)
		assert.Equal(t, AllocateStack{Bytes: tt.want}, got.Funcs[0].Instrs[0], "stack size %d", tt.size)
	}
}

func TestFixupRewrites(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		want []Instruction
	}{
		{"mov mem to mem", Mov{Src: Stack(-4), Dst: Data("x")},
			[]Instruction{Mov{Src: Stack(-4), Dst: R10}, Mov{Src: R10, Dst: Data("x")}}},
		{"idiv immediate", Idiv{Src: Imm(3)},
			[]Instruction{Mov{Src: Imm(3), Dst: R10}, Idiv{Src: R10}}},
		{"add mem to mem", Binary{Op: Add, Src: Stack(-4), Dst: Stack(-8)},
			[]Instruction{Mov{Src: Stack(-4), Dst: R10}, Binary{Op: Add, Src: R10, Dst: Stack(-8)}}},
		{"mult into memory", Binary{Op: Mult, Src: Imm(3), Dst: Stack(-4)},
			[]Instruction{Mov{Src: Stack(-4), Dst: R11}, Binary{Op: Mult, Src: Imm(3), Dst: R11}, Mov{Src: R11, Dst: Stack(-4)}}},
		{"mult into data", Binary{Op: Mult, Src: Stack(-8), Dst: Data("x")},
			[]Instruction{Mov{Src: Data("x"), Dst: R11}, Binary{Op: Mult, Src: Stack(-8), Dst: R11}, Mov{Src: R11, Dst: Data("x")}}},
		{"mult into register", Binary{Op: Mult, Src: Imm(3), Dst: AX},
			[]Instruction{Mov{Src: AX, Dst: R11}, Binary{Op: Mult, Src: Imm(3), Dst: R11}, Mov{Src: R11, Dst: AX}}},
		{"cmp mem to mem", Cmp{Src: Stack(-4), Dst: Stack(-8)},
			[]Instruction{Mov{Src: Stack(-4), Dst: R10}, Cmp{Src: R10, Dst: Stack(-8)}}},
		{"cmp against immediate", Cmp{Src: Imm(0), Dst: Imm(5)},
			[]Instruction{Mov{Src: Imm(5), Dst: R11}, Cmp{Src: Imm(0), Dst: R11}}},
		{"legal mov", Mov{Src: Imm(1), Dst: Stack(-4)}, []Instruction{Mov{Src: Imm(1), Dst: Stack(-4)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &Program{Funcs: []*Func{{Name: "f", Instrs: []Instruction{tt.in}}}}
			got, err := Fixup(prog, config.NewConfig())
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got.Funcs[0].Instrs[1:]); diff != "" {
				t.Errorf("Fixup mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFixupRejectsPseudo(t *testing.T) {
	prog := &Program{Funcs: []*Func{{Name: "f", Instrs: []Instruction{Mov{Src: Pseudo("x"), Dst: AX}}}}}
	_, err := Fixup(prog, config.NewConfig())
	require.Error(t, err)
}

func TestEmit(t *testing.T) {
	prog := &Program{
		Statics: []StaticVar{{Name: "x", Global: true, Init: 3}, {Name: "y.1", Init: 0}},
		Funcs: []*Func{{Name: "main", Global: true, Instrs: []Instruction{
			AllocateStack{Bytes: 16},
			Mov{Src: Data("x"), Dst: AX},
			Cmp{Src: Imm(0), Dst: Stack(-4)},
			SetCC{CC: NE, Dst: Stack(-4)},
			JmpCC{CC: LE, Target: "end.2"},
			Label{Name: "end.2"},
			Push{Src: AX},
			Call{Name: "putchar"},
			Call{Name: "main"},
			Ret{},
		}}},
	}

	linux := config.NewConfig()
	var buf bytes.Buffer
	Emit(&buf, prog, linux)
	out := buf.String()
	for _, want := range []string{
		"\t.globl x\n\t.data\n\t.balign 4\nx:\n\t.long 3\n",
		"\t.bss\n\t.balign 4\ny.1:\n\t.zero 4\n",
		"\t.globl main\n\t.text\nmain:\n\tpushq %rbp\n\tmovq %rsp, %rbp\n\tsubq $16, %rsp\n",
		"\tmovl x(%rip), %eax\n",
		"\tcmpl $0, -4(%rbp)\n",
		"\tsetne -4(%rbp)\n",
		"\tjle .Lend.2\n.Lend.2:\n",
		"\tpushq %rax\n",
		"\tcall putchar@PLT\n\tcall main\n",
		"\tmovq %rbp, %rsp\n\tpopq %rbp\n\tret\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "\t.section .note.GNU-stack,\"\",@progbits\n"))
	assert.NotContains(t, out, ".globl y.1")

	darwin := config.NewConfig()
	require.NoError(t, darwin.SetTarget("darwin", "amd64", ""))
	buf.Reset()
	Emit(&buf, prog, darwin)
	out = buf.String()
	assert.Contains(t, out, "_main:\n")
	assert.Contains(t, out, "\tmovl _x(%rip), %eax\n")
	assert.Contains(t, out, "\tjle Lend.2\n")
	assert.Contains(t, out, "\tcall _putchar\n")
	assert.NotContains(t, out, "GNU-stack")
}

func TestSetCCUsesByteRegister(t *testing.T) {
	var buf bytes.Buffer
	prog := &Program{Funcs: []*Func{{Name: "f", Instrs: []Instruction{SetCC{CC: GE, Dst: R11}}}}}
	Emit(&buf, prog, config.NewConfig())
	assert.Contains(t, buf.String(), "\tsetge %r11b\n")
}
