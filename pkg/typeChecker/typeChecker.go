package typeChecker

import (
	"github.com/rainierwolfcastle/nqcc/pkg/ast"
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/symbols"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

type TypeChecker struct {
	syms *symbols.Table
	cfg  *config.Config
}

func NewTypeChecker(syms *symbols.Table, cfg *config.Config) *TypeChecker {
	return &TypeChecker{syms: syms, cfg: cfg}
}

// Check validates linkage, storage duration and the use of every name, and
// records each declaration in the symbol table. The tree is returned unchanged.
func (tc *TypeChecker) Check(root *ast.Node) (*ast.Node, error) {
	for _, decl := range root.Data.(ast.ProgramNode).Decls {
		var err error
		switch decl.Type {
		case ast.FuncDecl:
			err = tc.checkFuncDecl(decl)
		case ast.VarDecl:
			err = tc.checkFileScopeVarDecl(decl)
		default:
			err = util.Internalf("unexpected %s at file scope", decl.Type)
		}
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

func (tc *TypeChecker) checkFuncDecl(node *ast.Node) error {
	d := node.Data.(ast.FuncDeclNode)
	hasBody := d.Body != nil
	defined := hasBody
	global := d.Storage != ast.StorageStatic

	if old, ok := tc.syms.Get(d.Name); ok {
		if old.Type.Kind != symbols.Function || old.Type.ParamCount != len(d.Params) {
			return util.Errorf(util.ErrIncompatibleDeclaration, node.Tok, "conflicting types for '%s'", d.Name)
		}
		attr := old.Attrs.(symbols.FunAttr)
		if attr.Defined && hasBody {
			return util.Errorf(util.ErrMultipleDefinition, node.Tok, "redefinition of '%s'", d.Name)
		}
		if attr.Global && d.Storage == ast.StorageStatic {
			return util.Errorf(util.ErrConflictingLinkage, node.Tok, "static declaration of '%s' follows non-static declaration", d.Name)
		}
		defined = defined || attr.Defined
		global = attr.Global
	}

	tc.syms.Set(d.Name, symbols.Symbol{Type: symbols.FunType(len(d.Params)), Attrs: symbols.FunAttr{Defined: defined, Global: global}})

	if !hasBody {
		return nil
	}
	for _, param := range d.Params {
		tc.syms.Set(param.Data.(ast.IdentNode).Name, symbols.Symbol{Type: symbols.IntType, Attrs: symbols.LocalAttr{}})
	}
	if err := tc.checkBlock(d.Body); err != nil {
		return err
	}
	if d.Name != "main" && !endsInReturn(d.Body) {
		util.Warn(tc.cfg, config.WarnImplicitReturn, node.Tok, "control may reach the end of non-void function '%s'; it returns 0", d.Name)
	}
	return nil
}

func endsInReturn(block *ast.Node) bool {
	items := block.Data.(ast.BlockNode).Items
	return len(items) > 0 && items[len(items)-1].Type == ast.Return
}

// constantInit reads a file-scope or static initializer, which must be a constant.
func constantInit(decl *ast.Node, init *ast.Node) (int64, error) {
	if n, ok := init.Data.(ast.NumberNode); ok {
		return n.Value, nil
	}
	return 0, util.Errorf(util.ErrNonConstantInitializer, decl.Tok, "initializer element is not a compile-time constant")
}

func (tc *TypeChecker) checkFileScopeVarDecl(node *ast.Node) error {
	d := node.Data.(ast.VarDeclNode)

	var init symbols.InitialValue
	switch {
	case d.Init != nil:
		v, err := constantInit(node, d.Init)
		if err != nil {
			return err
		}
		init = symbols.InitialOf(v)
	case d.Storage == ast.StorageExtern:
		init = symbols.InitialValue{Kind: symbols.NoInitializer}
	default:
		init = symbols.InitialValue{Kind: symbols.Tentative}
	}
	global := d.Storage != ast.StorageStatic

	if old, ok := tc.syms.Get(d.Name); ok {
		if old.Type.Kind != symbols.Int {
			return util.Errorf(util.ErrIncompatibleDeclaration, node.Tok, "'%s' redeclared as a different kind of symbol", d.Name)
		}
		attr := old.Attrs.(symbols.StaticAttr)
		if d.Storage == ast.StorageExtern {
			global = attr.Global
		} else if attr.Global != global {
			return util.Errorf(util.ErrConflictingLinkage, node.Tok, "conflicting linkage for '%s'", d.Name)
		}

		switch {
		case attr.Init.Kind == symbols.Initial && init.Kind == symbols.Initial:
			return util.Errorf(util.ErrMultipleDefinition, node.Tok, "redefinition of '%s'", d.Name)
		case attr.Init.Kind == symbols.Initial:
			init = attr.Init
		case init.Kind != symbols.Initial && attr.Init.Kind == symbols.Tentative:
			init = symbols.InitialValue{Kind: symbols.Tentative}
		}
	}

	tc.syms.Set(d.Name, symbols.Symbol{Type: symbols.IntType, Attrs: symbols.StaticAttr{Init: init, Global: global}})
	return nil
}

func (tc *TypeChecker) checkLocalVarDecl(node *ast.Node) error {
	d := node.Data.(ast.VarDeclNode)
	switch d.Storage {
	case ast.StorageExtern:
		if d.Init != nil {
			return util.Errorf(util.ErrExternInitializer, node.Tok, "'extern' variable '%s' cannot have an initializer", d.Name)
		}
		if old, ok := tc.syms.Get(d.Name); ok {
			if old.Type.Kind != symbols.Int {
				return util.Errorf(util.ErrIncompatibleDeclaration, node.Tok, "'%s' redeclared as a different kind of symbol", d.Name)
			}
			return nil
		}
		tc.syms.Set(d.Name, symbols.Symbol{
			Type:  symbols.IntType,
			Attrs: symbols.StaticAttr{Init: symbols.InitialValue{Kind: symbols.NoInitializer}, Global: true},
		})
	case ast.StorageStatic:
		init := symbols.InitialOf(0)
		if d.Init != nil {
			v, err := constantInit(node, d.Init)
			if err != nil {
				return err
			}
			init = symbols.InitialOf(v)
		}
		tc.syms.Set(d.Name, symbols.Symbol{Type: symbols.IntType, Attrs: symbols.StaticAttr{Init: init}})
	default:
		tc.syms.Set(d.Name, symbols.Symbol{Type: symbols.IntType, Attrs: symbols.LocalAttr{}})
		if d.Init != nil {
			return tc.checkExpr(d.Init)
		}
	}
	return nil
}

func (tc *TypeChecker) checkBlock(block *ast.Node) error {
	for _, item := range block.Data.(ast.BlockNode).Items {
		var err error
		switch item.Type {
		case ast.FuncDecl:
			err = tc.checkFuncDecl(item)
		case ast.VarDecl:
			err = tc.checkLocalVarDecl(item)
		default:
			err = tc.checkStmt(item)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (tc *TypeChecker) checkStmt(stmt *ast.Node) error {
	switch d := stmt.Data.(type) {
	case ast.ReturnNode:
		return tc.checkExpr(d.Expr)
	case ast.ExprStmtNode:
		return tc.checkExpr(d.Expr)
	case ast.IfNode:
		if err := tc.checkExpr(d.Cond); err != nil {
			return err
		}
		if err := tc.checkStmt(d.ThenBody); err != nil {
			return err
		}
		if d.ElseBody != nil {
			return tc.checkStmt(d.ElseBody)
		}
	case ast.BlockNode:
		return tc.checkBlock(stmt)
	case ast.WhileNode:
		if err := tc.checkExpr(d.Cond); err != nil {
			return err
		}
		return tc.checkStmt(d.Body)
	case ast.DoWhileNode:
		if err := tc.checkStmt(d.Body); err != nil {
			return err
		}
		return tc.checkExpr(d.Cond)
	case ast.ForNode:
		if d.Init != nil {
			var err error
			if d.Init.Type == ast.VarDecl {
				if sc := d.Init.Data.(ast.VarDeclNode).Storage; sc != ast.StorageNone {
					return util.Errorf(util.ErrStorageClassInForHeader, d.Init.Tok, "declaration of '%s' variable in 'for' loop initial declaration", sc)
				}
				err = tc.checkLocalVarDecl(d.Init)
			} else {
				err = tc.checkExpr(d.Init)
			}
			if err != nil {
				return err
			}
		}
		for _, e := range []*ast.Node{d.Cond, d.Post} {
			if e == nil {
				continue
			}
			if err := tc.checkExpr(e); err != nil {
				return err
			}
		}
		return tc.checkStmt(d.Body)
	}
	return nil
}

func (tc *TypeChecker) lookup(name string) (symbols.Symbol, error) {
	sym, ok := tc.syms.Get(name)
	if !ok {
		return sym, util.Internalf("'%s' reached the type checker unresolved", name)
	}
	return sym, nil
}

func (tc *TypeChecker) checkExpr(expr *ast.Node) error {
	switch d := expr.Data.(type) {
	case ast.IdentNode:
		sym, err := tc.lookup(d.Name)
		if err != nil {
			return err
		}
		if sym.Type.Kind != symbols.Int {
			return util.Errorf(util.ErrNameKindMismatch, expr.Tok, "function '%s' used as a variable", d.Name)
		}
	case ast.UnaryOpNode:
		return tc.checkExpr(d.Expr)
	case ast.BinaryOpNode:
		if err := tc.checkExpr(d.Left); err != nil {
			return err
		}
		return tc.checkExpr(d.Right)
	case ast.AssignNode:
		if err := tc.checkExpr(d.Lhs); err != nil {
			return err
		}
		return tc.checkExpr(d.Rhs)
	case ast.TernaryNode:
		for _, e := range []*ast.Node{d.Cond, d.ThenExpr, d.ElseExpr} {
			if err := tc.checkExpr(e); err != nil {
				return err
			}
		}
	case ast.FuncCallNode:
		sym, err := tc.lookup(d.Name)
		if err != nil {
			return err
		}
		if sym.Type.Kind != symbols.Function {
			return util.Errorf(util.ErrNameKindMismatch, expr.Tok, "called object '%s' is not a function", d.Name)
		}
		if sym.Type.ParamCount != len(d.Args) {
			return util.Errorf(util.ErrWrongArgumentCount, expr.Tok, "'%s' expects %d argument(s), %d given", d.Name, sym.Type.ParamCount, len(d.Args))
		}
		for _, arg := range d.Args {
			if err := tc.checkExpr(arg); err != nil {
				return err
			}
		}
	}
	return nil
}
