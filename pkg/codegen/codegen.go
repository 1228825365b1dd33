package codegen

import (
	"github.com/rainierwolfcastle/nqcc/pkg/ast"
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/symbols"
	"github.com/rainierwolfcastle/nqcc/pkg/token"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

// Context lowers a checked AST to TACKY.
type Context struct {
	syms   *symbols.Table
	names  *util.NameGen
	cfg    *config.Config
	instrs []*ir.Instruction
}

func NewContext(syms *symbols.Table, names *util.NameGen, cfg *config.Config) *Context {
	return &Context{syms: syms, names: names, cfg: cfg}
}

func (ctx *Context) newTemp() *ir.Var { return ir.NewVar(ctx.names.Temp()) }

func (ctx *Context) newLabel(prefix string) string { return ctx.names.Label(prefix) }

func (ctx *Context) addInstr(instrs ...*ir.Instruction) { ctx.instrs = append(ctx.instrs, instrs...) }

func breakLabel(loopID string) string    { return "break." + loopID }
func continueLabel(loopID string) string { return "continue." + loopID }

// GenerateIR lowers every function definition in root. Static variables come
// from the final state of the symbol table, in the order their names were
// first declared.
func (ctx *Context) GenerateIR(root *ast.Node) (*ir.Program, error) {
	prog := &ir.Program{}
	for _, decl := range root.Data.(ast.ProgramNode).Decls {
		d, ok := decl.Data.(ast.FuncDeclNode)
		if !ok || d.Body == nil {
			continue
		}
		fn, err := ctx.codegenFuncDecl(d)
		if err != nil {
			return nil, err
		}
		prog.Funcs = append(prog.Funcs, fn)
	}
	prog.Statics = ctx.collectStatics()
	return prog, nil
}

func (ctx *Context) collectStatics() []*ir.StaticVar {
	var statics []*ir.StaticVar
	for _, name := range ctx.syms.Names() {
		sym, _ := ctx.syms.Get(name)
		attr, ok := sym.Attrs.(symbols.StaticAttr)
		if !ok {
			continue
		}
		switch attr.Init.Kind {
		case symbols.Tentative:
			statics = append(statics, &ir.StaticVar{Name: name, Global: attr.Global, Init: 0})
		case symbols.Initial:
			statics = append(statics, &ir.StaticVar{Name: name, Global: attr.Global, Init: attr.Init.Value})
		}
	}
	return statics
}

func (ctx *Context) codegenFuncDecl(d ast.FuncDeclNode) (*ir.Func, error) {
	sym, ok := ctx.syms.Get(d.Name)
	if !ok {
		return nil, util.Internalf("function '%s' missing from the symbol table", d.Name)
	}
	attr, ok := sym.Attrs.(symbols.FunAttr)
	if !ok {
		return nil, util.Internalf("'%s' is not a function", d.Name)
	}

	ctx.instrs = nil
	if err := ctx.codegenBlock(d.Body); err != nil {
		return nil, err
	}
	ctx.addInstr(ir.Return(ir.NewConst(0)))

	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.Data.(ast.IdentNode).Name
	}
	return &ir.Func{Name: d.Name, Global: attr.Global, Params: params, Body: ctx.instrs}, nil
}

func (ctx *Context) codegenBlock(block *ast.Node) error {
	for _, item := range block.Data.(ast.BlockNode).Items {
		var err error
		switch item.Type {
		case ast.FuncDecl:
		case ast.VarDecl:
			err = ctx.codegenLocalVarDecl(item)
		default:
			err = ctx.codegenStmt(item)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// codegenLocalVarDecl initializes automatic variables. Static and extern
// locals live in static storage and generate no code here.
func (ctx *Context) codegenLocalVarDecl(node *ast.Node) error {
	d := node.Data.(ast.VarDeclNode)
	if d.Storage != ast.StorageNone || d.Init == nil {
		return nil
	}
	val, err := ctx.codegenExpr(d.Init)
	if err != nil {
		return err
	}
	ctx.addInstr(ir.Copy(val, ir.NewVar(d.Name)))
	return nil
}

func (ctx *Context) codegenStmt(node *ast.Node) error {
	switch d := node.Data.(type) {
	case ast.ReturnNode:
		val, err := ctx.codegenExpr(d.Expr)
		if err != nil {
			return err
		}
		ctx.addInstr(ir.Return(val))
	case ast.ExprStmtNode:
		_, err := ctx.codegenExpr(d.Expr)
		return err
	case ast.IfNode:
		return ctx.codegenIf(d)
	case ast.BlockNode:
		return ctx.codegenBlock(node)
	case ast.BreakNode:
		ctx.addInstr(ir.Jump(breakLabel(d.Label)))
	case ast.ContinueNode:
		ctx.addInstr(ir.Jump(continueLabel(d.Label)))
	case ast.WhileNode:
		return ctx.codegenWhile(d)
	case ast.DoWhileNode:
		return ctx.codegenDoWhile(d)
	case ast.ForNode:
		return ctx.codegenFor(d)
	case ast.NullNode:
	default:
		return util.Internalf("unexpected statement %s", node.Type)
	}
	return nil
}

func (ctx *Context) codegenIf(d ast.IfNode) error {
	cond, err := ctx.codegenExpr(d.Cond)
	if err != nil {
		return err
	}

	if d.ElseBody == nil {
		endLabel := ctx.newLabel("if_end")
		ctx.addInstr(ir.JumpIfZero(cond, endLabel))
		if err := ctx.codegenStmt(d.ThenBody); err != nil {
			return err
		}
		ctx.addInstr(ir.Label(endLabel))
		return nil
	}

	elseLabel := ctx.newLabel("else")
	ctx.addInstr(ir.JumpIfZero(cond, elseLabel))
	if err := ctx.codegenStmt(d.ThenBody); err != nil {
		return err
	}
	endLabel := ctx.newLabel("if_else_end")
	ctx.addInstr(ir.Jump(endLabel), ir.Label(elseLabel))
	if err := ctx.codegenStmt(d.ElseBody); err != nil {
		return err
	}
	ctx.addInstr(ir.Label(endLabel))
	return nil
}

func (ctx *Context) codegenWhile(d ast.WhileNode) error {
	cont, brk := continueLabel(d.Label), breakLabel(d.Label)

	ctx.addInstr(ir.Label(cont))
	cond, err := ctx.codegenExpr(d.Cond)
	if err != nil {
		return err
	}
	ctx.addInstr(ir.JumpIfZero(cond, brk))
	if err := ctx.codegenStmt(d.Body); err != nil {
		return err
	}
	ctx.addInstr(ir.Jump(cont), ir.Label(brk))
	return nil
}

func (ctx *Context) codegenDoWhile(d ast.DoWhileNode) error {
	start := ctx.newLabel("do_loop_start")

	ctx.addInstr(ir.Label(start))
	if err := ctx.codegenStmt(d.Body); err != nil {
		return err
	}
	ctx.addInstr(ir.Label(continueLabel(d.Label)))
	cond, err := ctx.codegenExpr(d.Cond)
	if err != nil {
		return err
	}
	ctx.addInstr(ir.JumpIfNotZero(cond, start), ir.Label(breakLabel(d.Label)))
	return nil
}

func (ctx *Context) codegenFor(d ast.ForNode) error {
	start := ctx.newLabel("for_start")
	brk := breakLabel(d.Label)

	if d.Init != nil {
		var err error
		if d.Init.Type == ast.VarDecl {
			err = ctx.codegenLocalVarDecl(d.Init)
		} else {
			_, err = ctx.codegenExpr(d.Init)
		}
		if err != nil {
			return err
		}
	}

	ctx.addInstr(ir.Label(start))
	if d.Cond != nil {
		cond, err := ctx.codegenExpr(d.Cond)
		if err != nil {
			return err
		}
		ctx.addInstr(ir.JumpIfZero(cond, brk))
	}
	if err := ctx.codegenStmt(d.Body); err != nil {
		return err
	}
	ctx.addInstr(ir.Label(continueLabel(d.Label)))
	if d.Post != nil {
		if _, err := ctx.codegenExpr(d.Post); err != nil {
			return err
		}
	}
	ctx.addInstr(ir.Jump(start), ir.Label(brk))
	return nil
}

var unaryOps = map[token.Type]ir.Op{
	token.Complement: ir.OpComplement,
	token.Minus:      ir.OpNegate,
	token.Not:        ir.OpNot,
}

var binaryOps = map[token.Type]ir.Op{
	token.Plus: ir.OpAdd, token.Minus: ir.OpSub, token.Star: ir.OpMul, token.Slash: ir.OpDiv, token.Rem: ir.OpRem,
	token.EqEq: ir.OpEq, token.Neq: ir.OpNeq, token.Lt: ir.OpLt, token.Lte: ir.OpLte, token.Gt: ir.OpGt, token.Gte: ir.OpGte,
}

func (ctx *Context) codegenExpr(node *ast.Node) (ir.Value, error) {
	switch d := node.Data.(type) {
	case ast.NumberNode:
		return ir.NewConst(d.Value), nil
	case ast.IdentNode:
		return ir.NewVar(d.Name), nil
	case ast.UnaryOpNode:
		op, ok := unaryOps[d.Op]
		if !ok {
			return nil, util.Internalf("unknown unary operator %s", d.Op)
		}
		src, err := ctx.codegenExpr(d.Expr)
		if err != nil {
			return nil, err
		}
		dst := ctx.newTemp()
		ctx.addInstr(ir.Unary(op, src, dst))
		return dst, nil
	case ast.BinaryOpNode:
		switch d.Op {
		case token.AndAnd:
			return ctx.codegenLogical(d, true)
		case token.OrOr:
			return ctx.codegenLogical(d, false)
		}
		op, ok := binaryOps[d.Op]
		if !ok {
			return nil, util.Internalf("unknown binary operator %s", d.Op)
		}
		src1, err := ctx.codegenExpr(d.Left)
		if err != nil {
			return nil, err
		}
		src2, err := ctx.codegenExpr(d.Right)
		if err != nil {
			return nil, err
		}
		dst := ctx.newTemp()
		ctx.addInstr(ir.Binary(op, src1, src2, dst))
		return dst, nil
	case ast.AssignNode:
		lhs, ok := d.Lhs.Data.(ast.IdentNode)
		if !ok {
			return nil, util.Internalf("assignment to %s", d.Lhs.Type)
		}
		val, err := ctx.codegenExpr(d.Rhs)
		if err != nil {
			return nil, err
		}
		dst := ir.NewVar(lhs.Name)
		ctx.addInstr(ir.Copy(val, dst))
		return dst, nil
	case ast.TernaryNode:
		return ctx.codegenTernary(d)
	case ast.FuncCallNode:
		args := make([]ir.Value, 0, len(d.Args))
		for _, arg := range d.Args {
			v, err := ctx.codegenExpr(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		dst := ctx.newTemp()
		ctx.addInstr(ir.Call(d.Name, args, dst))
		return dst, nil
	}
	return nil, util.Internalf("unexpected expression %s", node.Type)
}

// codegenLogical short-circuits && (isAnd) and ||. Both operands jump to the
// same shortcut label, which stores the operator's early result.
func (ctx *Context) codegenLogical(d ast.BinaryOpNode, isAnd bool) (ir.Value, error) {
	prefix, jump, shortVal, fullVal := "or", ir.JumpIfNotZero, int64(1), int64(0)
	shortName := "or_true"
	if isAnd {
		prefix, jump, shortVal, fullVal = "and", ir.JumpIfZero, 0, 1
		shortName = "and_false"
	}
	shortLabel, endLabel := ctx.newLabel(shortName), ctx.newLabel(prefix+"_end")
	dst := ctx.newTemp()

	left, err := ctx.codegenExpr(d.Left)
	if err != nil {
		return nil, err
	}
	ctx.addInstr(jump(left, shortLabel))
	right, err := ctx.codegenExpr(d.Right)
	if err != nil {
		return nil, err
	}
	ctx.addInstr(
		jump(right, shortLabel),
		ir.Copy(ir.NewConst(fullVal), dst),
		ir.Jump(endLabel),
		ir.Label(shortLabel),
		ir.Copy(ir.NewConst(shortVal), dst),
		ir.Label(endLabel),
	)
	return dst, nil
}

func (ctx *Context) codegenTernary(d ast.TernaryNode) (ir.Value, error) {
	cond, err := ctx.codegenExpr(d.Cond)
	if err != nil {
		return nil, err
	}
	elseLabel := ctx.newLabel("conditional_else")
	ctx.addInstr(ir.JumpIfZero(cond, elseLabel))

	thenVal, err := ctx.codegenExpr(d.ThenExpr)
	if err != nil {
		return nil, err
	}
	dst := ctx.newTemp()
	endLabel := ctx.newLabel("conditional_end")
	ctx.addInstr(ir.Copy(thenVal, dst), ir.Jump(endLabel), ir.Label(elseLabel))

	elseVal, err := ctx.codegenExpr(d.ElseExpr)
	if err != nil {
		return nil, err
	}
	ctx.addInstr(ir.Copy(elseVal, dst), ir.Label(endLabel))
	return dst, nil
}
