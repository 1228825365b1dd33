package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a readable listing of prog, one instruction per line.
func Dump(w io.Writer, prog *Program) {
	for _, s := range prog.Statics {
		fmt.Fprintf(w, "%sstatic %s = %d\n", linkage(s.Global), s.Name, s.Init)
	}
	for _, fn := range prog.Funcs {
		fmt.Fprintf(w, "\n%sfunction %s(%s):\n", linkage(fn.Global), fn.Name, strings.Join(fn.Params, ", "))
		for _, instr := range fn.Body {
			if instr.Op == OpLabel {
				fmt.Fprintf(w, "  %s:\n", instr.Label)
				continue
			}
			fmt.Fprintf(w, "    %s\n", instr)
		}
	}
}

func linkage(global bool) string {
	if global {
		return "global "
	}
	return ""
}

func (i *Instruction) String() string {
	switch {
	case i.Op == OpReturn:
		return "return " + i.Args[0].String()
	case i.Op == OpCopy:
		return fmt.Sprintf("%s = %s", i.Result, i.Args[0])
	case i.Op == OpJump:
		return "jump " + i.Label
	case i.Op == OpJumpIfZero, i.Op == OpJumpIfNotZero:
		return fmt.Sprintf("%s %s, %s", i.Op, i.Args[0], i.Label)
	case i.Op == OpLabel:
		return i.Label + ":"
	case i.Op == OpCall:
		args := make([]string, len(i.Args))
		for n, a := range i.Args {
			args[n] = a.String()
		}
		return fmt.Sprintf("%s = %s(%s)", i.Result, i.Callee, strings.Join(args, ", "))
	case i.Op.IsUnary():
		return fmt.Sprintf("%s = %s%s", i.Result, i.Op, i.Args[0])
	case i.Op.IsBinary():
		return fmt.Sprintf("%s = %s %s %s", i.Result, i.Args[0], i.Op, i.Args[1])
	}
	return i.Op.String()
}
