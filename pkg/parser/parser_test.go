package parser

import (
	"testing"

	"github.com/rainierwolfcastle/nqcc/pkg/ast"
	"github.com/rainierwolfcastle/nqcc/pkg/lexer"
	"github.com/rainierwolfcastle/nqcc/pkg/token"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	toks, err := lexer.Tokenize([]rune(src), 0)
	require.NoError(t, err)
	root, err := NewParser(toks).Parse()
	require.NoError(t, err)
	return root
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	toks, err := lexer.Tokenize([]rune(src), 0)
	require.NoError(t, err)
	_, err = NewParser(toks).Parse()
	require.Error(t, err)
	kind, ok := util.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, util.ErrSyntax, kind)
	return err
}

// returnExpr parses a one-function program and yields the returned expression.
func returnExpr(t *testing.T, expr string) *ast.Node {
	t.Helper()
	root := parse(t, "int main(void) { return "+expr+"; }")
	fn := root.Data.(ast.ProgramNode).Decls[0].Data.(ast.FuncDeclNode)
	ret := fn.Body.Data.(ast.BlockNode).Items[0]
	require.Equal(t, ast.Return, ret.Type)
	return ret.Data.(ast.ReturnNode).Expr
}

// sexpr renders an expression fully parenthesized.
func sexpr(n *ast.Node) string {
	switch d := n.Data.(type) {
	case ast.NumberNode:
		return n.Tok.Value
	case ast.IdentNode:
		return d.Name
	case ast.UnaryOpNode:
		return "(" + token.TypeStrings[d.Op] + sexpr(d.Expr) + ")"
	case ast.BinaryOpNode:
		return "(" + sexpr(d.Left) + " " + token.TypeStrings[d.Op] + " " + sexpr(d.Right) + ")"
	case ast.AssignNode:
		return "(" + sexpr(d.Lhs) + " = " + sexpr(d.Rhs) + ")"
	case ast.TernaryNode:
		return "(" + sexpr(d.Cond) + " ? " + sexpr(d.ThenExpr) + " : " + sexpr(d.ElseExpr) + ")"
	case ast.FuncCallNode:
		s := d.Name + "("
		for i, a := range d.Args {
			if i > 0 {
				s += ", "
			}
			s += sexpr(a)
		}
		return s + ")"
	}
	return "?"
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"2 + 3 * 4", "(2 + (3 * 4))"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"a = b = 3", "(a = (b = 3))"},
		{"a || b && c", "(a || (b && c))"},
		{"1 < 2 == 3 > 4", "((1 < 2) == (3 > 4))"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"x = a ? b : c", "(x = (a ? b : c))"},
		{"-~!x % 2", "((-(~(!x))) % 2)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"f(1, g(), a + b)", "f(1, g(), (a + b))"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, sexpr(returnExpr(t, tt.src)))
		})
	}
}

func TestDeclarations(t *testing.T) {
	root := parse(t, `
static int counter = 3;
extern int shared;
int add(int a, int b);
int main(void) {
	int static local;
	for (int i = 0; i < 3; ) ;
	for (;;) break;
	return add(1, 2);
}`)
	decls := root.Data.(ast.ProgramNode).Decls
	require.Len(t, decls, 4)

	counter := decls[0].Data.(ast.VarDeclNode)
	assert.Equal(t, "counter", counter.Name)
	assert.Equal(t, ast.StorageStatic, counter.Storage)
	assert.Equal(t, int64(3), counter.Init.Data.(ast.NumberNode).Value)

	assert.Equal(t, ast.StorageExtern, decls[1].Data.(ast.VarDeclNode).Storage)

	add := decls[2].Data.(ast.FuncDeclNode)
	assert.Nil(t, add.Body)
	require.Len(t, add.Params, 2)
	assert.Equal(t, "b", add.Params[1].Data.(ast.IdentNode).Name)

	main := decls[3].Data.(ast.FuncDeclNode)
	assert.Empty(t, main.Params)
	items := main.Body.Data.(ast.BlockNode).Items
	require.Len(t, items, 4)
	assert.Equal(t, ast.StorageStatic, items[0].Data.(ast.VarDeclNode).Storage)

	loop := items[1].Data.(ast.ForNode)
	assert.Equal(t, ast.VarDecl, loop.Init.Type)
	assert.NotNil(t, loop.Cond)
	assert.Nil(t, loop.Post)
	assert.Equal(t, ast.Null, loop.Body.Type)

	empty := items[2].Data.(ast.ForNode)
	assert.Nil(t, empty.Init)
	assert.Nil(t, empty.Cond)
	assert.Equal(t, ast.Break, empty.Body.Type)
}

func TestDanglingElse(t *testing.T) {
	root := parse(t, "int main(void) { if (1) if (0) return 1; else return 2; return 3; }")
	fn := root.Data.(ast.ProgramNode).Decls[0].Data.(ast.FuncDeclNode)
	outer := fn.Body.Data.(ast.BlockNode).Items[0].Data.(ast.IfNode)
	assert.Nil(t, outer.ElseBody)
	inner := outer.ThenBody.Data.(ast.IfNode)
	assert.NotNil(t, inner.ElseBody)
}

func TestSyntaxErrors(t *testing.T) {
	srcs := []string{
		"int main(void) { return 1 }",
		"int main(void) { return; }",
		"int int x;",
		"static extern int x;",
		"static x;",
		"int main(void) { for (int f(void); ;) ; }",
		"int main(void) { return 2147483648; }",
		"int main(void) { return (1; }",
		"return 0;",
		"int main(void) {",
		"int f(int a,) ;",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			parseErr(t, src)
		})
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	err := parseErr(t, "int main(void) {\n  return 1 +;\n}")
	ce := err.(*util.CompileError)
	assert.Equal(t, 2, ce.Tok.Line)
	assert.Equal(t, 13, ce.Tok.Column)
}
