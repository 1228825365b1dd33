package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/lexer"
	"github.com/rainierwolfcastle/nqcc/pkg/loops"
	"github.com/rainierwolfcastle/nqcc/pkg/parser"
	"github.com/rainierwolfcastle/nqcc/pkg/resolver"
	"github.com/rainierwolfcastle/nqcc/pkg/symbols"
	"github.com/rainierwolfcastle/nqcc/pkg/typeChecker"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lower(t *testing.T, src string) (*ir.Program, *symbols.Table) {
	t.Helper()
	toks, err := lexer.Tokenize([]rune(src), 0)
	require.NoError(t, err)
	root, err := parser.NewParser(toks).Parse()
	require.NoError(t, err)
	names := util.NewNameGen()
	root, err = resolver.NewResolver(names, nil).Resolve(root)
	require.NoError(t, err)
	root, err = loops.NewLabeler(names).Label(root)
	require.NoError(t, err)
	syms := symbols.NewTable()
	root, err = typeChecker.NewTypeChecker(syms, nil).Check(root)
	require.NoError(t, err)

	prog, err := NewContext(syms, names, nil).GenerateIR(root)
	require.NoError(t, err)
	return prog, syms
}

func body(instrs ...*ir.Instruction) []*ir.Instruction { return instrs }

func TestArithmeticPrecedence(t *testing.T) {
	prog, _ := lower(t, "int main(void) { return 2 + 3 * 4; }")
	require.Len(t, prog.Funcs, 1)

	want := body(
		ir.Binary(ir.OpMul, ir.NewConst(3), ir.NewConst(4), ir.NewVar("tmp.0")),
		ir.Binary(ir.OpAdd, ir.NewConst(2), ir.NewVar("tmp.0"), ir.NewVar("tmp.1")),
		ir.Return(ir.NewVar("tmp.1")),
		ir.Return(ir.NewConst(0)),
	)
	if diff := cmp.Diff(want, prog.Funcs[0].Body); diff != "" {
		t.Errorf("GenerateIR mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, prog.Funcs[0].Global)
}

func TestTentativeDefinitionsMerge(t *testing.T) {
	prog, _ := lower(t, "int x; int x = 1; int main(void) { return x; }")
	assert.Equal(t, []*ir.StaticVar{{Name: "x", Global: true, Init: 1}}, prog.Statics)
}

func TestStaticsFollowDeclarationOrder(t *testing.T) {
	prog, _ := lower(t, `
extern int declared;
static int b;
int a = 4;
int main(void) { static int local = 9; return a + b; }`)
	require.Len(t, prog.Statics, 3)
	assert.Equal(t, &ir.StaticVar{Name: "b", Global: false, Init: 0}, prog.Statics[0])
	assert.Equal(t, &ir.StaticVar{Name: "a", Global: true, Init: 4}, prog.Statics[1])
	assert.True(t, strings.HasPrefix(prog.Statics[2].Name, "local."))
	assert.Equal(t, int64(9), prog.Statics[2].Init)
}

func TestOnlyDefinitionsAreEmitted(t *testing.T) {
	prog, _ := lower(t, "int f(int a); static int g(void) { return 1; } int main(void) { return f(g()); }")
	require.Len(t, prog.Funcs, 2)
	assert.Equal(t, "g", prog.Funcs[0].Name)
	assert.False(t, prog.Funcs[0].Global)
	assert.Equal(t, "main", prog.Funcs[1].Name)
}

func TestLocalDeclarations(t *testing.T) {
	prog, _ := lower(t, "int main(void) { static int s = 2; extern int e; int a = 5; int b; return a; }")
	fn := prog.Funcs[0]
	require.Len(t, fn.Body, 3)
	assert.Equal(t, ir.OpCopy, fn.Body[0].Op)
	assert.Equal(t, ir.NewConst(5), fn.Body[0].Args[0])
}

func ops(fn *ir.Func) []string {
	var out []string
	for _, instr := range fn.Body {
		out = append(out, instr.String())
	}
	return out
}

func TestShortCircuit(t *testing.T) {
	prog, _ := lower(t, "int main(void) { int a = 1; return a && 0; }")
	lines := ops(prog.Funcs[0])
	assert.Equal(t, []string{
		"a.0 = 1",
		"jz a.0, and_false.1",
		"jz 0, and_false.1",
		"tmp.3 = 1",
		"jump and_end.2",
		"and_false.1:",
		"tmp.3 = 0",
		"and_end.2:",
		"return tmp.3",
		"return 0",
	}, lines)

	prog, _ = lower(t, "int main(void) { return 0 || 2; }")
	lines = ops(prog.Funcs[0])
	assert.Equal(t, "jnz 0, or_true.0", lines[0])
	assert.Equal(t, "tmp.2 = 0", lines[2])
	assert.Equal(t, "tmp.2 = 1", lines[5])
}

func TestLoopLabels(t *testing.T) {
	prog, _ := lower(t, `
int main(void) {
	int i;
	for (i = 0; i < 3; i = i + 1) {
		if (i == 1) continue;
		break;
	}
	do { i = i - 1; } while (i);
	while (i < 2) i = i + 1;
	return i;
}`)
	lines := ops(prog.Funcs[0])
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"jump continue.for.1",
		"jump break.for.1",
		"continue.for.1:",
		"break.for.1:",
		"jnz i.0, do_loop_start.",
		"continue.dowhile.",
		"continue.while.",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestCallEvaluatesArgumentsInOrder(t *testing.T) {
	prog, _ := lower(t, "int f(int a, int b); int main(void) { return f(1 + 2, 3 * 4); }")
	lines := ops(prog.Funcs[0])
	assert.Equal(t, []string{
		"tmp.2 = 1 + 2",
		"tmp.3 = 3 * 4",
		"tmp.4 = f(tmp.2, tmp.3)",
		"return tmp.4",
		"return 0",
	}, lines)
}

func TestTernary(t *testing.T) {
	prog, _ := lower(t, "int main(void) { int a = 3; return a ? a + 1 : 7; }")
	lines := ops(prog.Funcs[0])
	assert.Equal(t, []string{
		"a.0 = 3",
		"jz a.0, conditional_else.1",
		"tmp.2 = a.0 + 1",
		"tmp.3 = tmp.2",
		"jump conditional_end.4",
		"conditional_else.1:",
		"tmp.3 = 7",
		"conditional_end.4:",
		"return tmp.3",
		"return 0",
	}, lines)
}

func TestQBEIR(t *testing.T) {
	prog, syms := lower(t, `
int counter = 2;
static int zero;
int main(void) {
	int a = counter;
	if (a < 3) counter = a + zero;
	return a;
}`)
	b := NewQBEBackend().(*qbeBackend)
	il, err := b.GenerateIR(prog, syms, config.NewConfig())
	require.NoError(t, err)

	for _, want := range []string{
		"export data $counter = align 4 { w 2 }\n",
		"data $zero = align 4 { z 4 }\n",
		"export function w $main() {\n@start\n",
		"=w loadw $counter\n",
		"=w csltw %a.0, 3\n",
		"storew ",
		", $counter\n",
		"\tret %a.0\n",
	} {
		assert.Contains(t, il, want)
	}
	assert.NotContains(t, il, "export data $zero")
	assert.True(t, strings.HasSuffix(il, "\tret 0\n}\n"))
}

func TestQBEStartsBlockAfterTerminator(t *testing.T) {
	prog, syms := lower(t, "int main(void) { return 1; }")
	il, err := NewQBEBackend().(*qbeBackend).GenerateIR(prog, syms, config.NewConfig())
	require.NoError(t, err)
	assert.Regexp(t, `\tret 1\n@\.b\d+\n\tret 0\n`, il)
}

func TestSelectBackend(t *testing.T) {
	cfg := config.NewConfig()
	b, err := SelectBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &x86Backend{}, b)

	require.NoError(t, cfg.SetTarget("linux", "amd64", "qbe"))
	b, err = SelectBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &qbeBackend{}, b)
}

func TestX86Backend(t *testing.T) {
	prog, syms := lower(t, "int main(void) { return 2 + 3 * 4; }")
	buf, err := NewX86Backend().Generate(prog, syms, config.NewConfig())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\timull $4, %r11d\n")
	assert.Contains(t, buf.String(), "\tsubq $16, %rsp\n")
}
