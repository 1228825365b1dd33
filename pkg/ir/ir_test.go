package ir

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestInstructionString(t *testing.T) {
	a, tmp := NewVar("a.0"), NewVar("tmp.1")
	tests := []struct {
		instr *Instruction
		want  string
	}{
		{Return(NewConst(0)), "return 0"},
		{Copy(a, tmp), "tmp.1 = a.0"},
		{Unary(OpNegate, a, tmp), "tmp.1 = -a.0"},
		{Binary(OpLte, a, NewConst(2), tmp), "tmp.1 = a.0 <= 2"},
		{JumpIfZero(a, "and_false.3"), "jz a.0, and_false.3"},
		{JumpIfNotZero(a, "or_true.3"), "jnz a.0, or_true.3"},
		{Jump("break.while.2"), "jump break.while.2"},
		{Label("end.4"), "end.4:"},
		{Call("f", []Value{a, NewConst(7)}, tmp), "tmp.1 = f(a.0, 7)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.instr.String())
	}
}

func TestOpClasses(t *testing.T) {
	assert.True(t, OpNot.IsUnary())
	assert.False(t, OpNot.IsBinary())
	assert.True(t, OpRem.IsBinary())
	assert.False(t, OpRem.IsRelational())
	assert.True(t, OpGte.IsRelational())
	assert.False(t, OpCall.IsUnary())
}

func TestDump(t *testing.T) {
	prog := &Program{
		Statics: []*StaticVar{{Name: "counter", Global: true, Init: 3}, {Name: "hidden"}},
		Funcs: []*Func{{
			Name:   "main",
			Global: true,
			Body:   []*Instruction{Label("top.0"), Return(NewConst(1))},
		}},
	}
	var buf bytes.Buffer
	Dump(&buf, prog)
	want := "global static counter = 3\n" +
		"static hidden = 0\n" +
		"\nglobal function main():\n" +
		"  top.0:\n" +
		"    return 1\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Dump mismatch (-want +got):\n%s", diff)
	}
}
