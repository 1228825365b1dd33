// Package resolver gives every block-scope variable a compilation-unique name
// and rejects programs that use undeclared or illegally redeclared identifiers.
package resolver

import (
	"github.com/rainierwolfcastle/nqcc/pkg/ast"
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

type entry struct {
	name             string
	fromCurrentScope bool
	hasLinkage       bool
}

// scope maps source spellings to their resolved names.
type scope map[string]entry

// inner returns a copy of s for a nested scope. Every binding it holds is
// marked as inherited.
func (s scope) inner() scope {
	out := make(scope, len(s))
	for k, e := range s {
		e.fromCurrentScope = false
		out[k] = e
	}
	return out
}

type Resolver struct {
	names *util.NameGen
	cfg   *config.Config
}

func NewResolver(names *util.NameGen, cfg *config.Config) *Resolver {
	return &Resolver{names: names, cfg: cfg}
}

// Resolve returns a copy of prog in which every local variable and parameter
// carries its unique name. Functions and file-scope or extern variables keep
// their spelling.
func (r *Resolver) Resolve(prog *ast.Node) (*ast.Node, error) {
	decls := prog.Data.(ast.ProgramNode).Decls
	out := make([]*ast.Node, 0, len(decls))
	global := scope{}
	for _, decl := range decls {
		var (
			resolved *ast.Node
			err      error
		)
		switch decl.Type {
		case ast.FuncDecl:
			resolved, err = r.resolveFuncDecl(decl, global)
		case ast.VarDecl:
			d := decl.Data.(ast.VarDeclNode)
			global[d.Name] = entry{name: d.Name, fromCurrentScope: true, hasLinkage: true}
			resolved = decl
		default:
			err = util.Internalf("unexpected %s at file scope", decl.Type)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return ast.NewProgram(prog.Tok, out), nil
}

func (r *Resolver) resolveFuncDecl(decl *ast.Node, s scope) (*ast.Node, error) {
	d := decl.Data.(ast.FuncDeclNode)
	if prev, ok := s[d.Name]; ok && prev.fromCurrentScope && !prev.hasLinkage {
		return nil, util.Errorf(util.ErrDuplicateDeclaration, decl.Tok, "'%s' redeclared as a different kind of symbol", d.Name)
	}
	s[d.Name] = entry{name: d.Name, fromCurrentScope: true, hasLinkage: true}

	body := s.inner()
	params := make([]*ast.Node, 0, len(d.Params))
	for _, param := range d.Params {
		name := param.Data.(ast.IdentNode).Name
		if prev, ok := body[name]; ok && prev.fromCurrentScope {
			return nil, util.Errorf(util.ErrDuplicateDeclaration, param.Tok, "redefinition of parameter '%s'", name)
		}
		r.checkShadow(param, name, body)
		unique := r.names.Label(name)
		body[name] = entry{name: unique, fromCurrentScope: true}
		params = append(params, ast.NewIdent(param.Tok, unique))
	}

	var block *ast.Node
	if d.Body != nil {
		var err error
		if block, err = r.resolveBlock(d.Body, body); err != nil {
			return nil, err
		}
	}
	return ast.NewFuncDecl(decl.Tok, d.Name, params, block, d.Storage), nil
}

func (r *Resolver) resolveBlock(block *ast.Node, s scope) (*ast.Node, error) {
	items := block.Data.(ast.BlockNode).Items
	out := make([]*ast.Node, 0, len(items))
	for _, item := range items {
		var (
			resolved *ast.Node
			err      error
		)
		switch item.Type {
		case ast.VarDecl:
			resolved, err = r.resolveLocalVarDecl(item, s)
		case ast.FuncDecl:
			d := item.Data.(ast.FuncDeclNode)
			switch {
			case d.Body != nil:
				err = util.Errorf(util.ErrNestedFunctionDefinition, item.Tok, "function definition is not allowed here")
			case d.Storage == ast.StorageStatic:
				err = util.Errorf(util.ErrStaticBlockFunction, item.Tok, "invalid storage class for block-scope function '%s'", d.Name)
			default:
				resolved, err = r.resolveFuncDecl(item, s)
			}
		default:
			resolved, err = r.resolveStmt(item, s)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return ast.NewBlock(block.Tok, out), nil
}

func (r *Resolver) resolveLocalVarDecl(decl *ast.Node, s scope) (*ast.Node, error) {
	d := decl.Data.(ast.VarDeclNode)
	if prev, ok := s[d.Name]; ok && prev.fromCurrentScope && !(prev.hasLinkage && d.Storage == ast.StorageExtern) {
		return nil, util.Errorf(util.ErrDuplicateDeclaration, decl.Tok, "conflicting declaration of '%s'", d.Name)
	}

	if d.Storage == ast.StorageExtern {
		s[d.Name] = entry{name: d.Name, fromCurrentScope: true, hasLinkage: true}
		return decl, nil
	}

	r.checkShadow(decl, d.Name, s)
	unique := r.names.Label(d.Name)
	s[d.Name] = entry{name: unique, fromCurrentScope: true}
	var init *ast.Node
	if d.Init != nil {
		var err error
		if init, err = r.resolveExpr(d.Init, s); err != nil {
			return nil, err
		}
	}
	return ast.NewVarDecl(decl.Tok, unique, init, d.Storage), nil
}

func (r *Resolver) checkShadow(n *ast.Node, name string, s scope) {
	if prev, ok := s[name]; ok && !prev.fromCurrentScope {
		util.Warn(r.cfg, config.WarnShadow, n.Tok, "declaration of '%s' shadows a previous declaration", name)
	}
}

func (r *Resolver) resolveStmt(stmt *ast.Node, s scope) (*ast.Node, error) {
	switch d := stmt.Data.(type) {
	case ast.ReturnNode:
		expr, err := r.resolveExpr(d.Expr, s)
		if err != nil {
			return nil, err
		}
		return ast.NewReturn(stmt.Tok, expr), nil
	case ast.ExprStmtNode:
		expr, err := r.resolveExpr(d.Expr, s)
		if err != nil {
			return nil, err
		}
		return ast.NewExprStmt(stmt.Tok, expr), nil
	case ast.IfNode:
		cond, err := r.resolveExpr(d.Cond, s)
		if err != nil {
			return nil, err
		}
		thenBody, err := r.resolveStmt(d.ThenBody, s)
		if err != nil {
			return nil, err
		}
		var elseBody *ast.Node
		if d.ElseBody != nil {
			if elseBody, err = r.resolveStmt(d.ElseBody, s); err != nil {
				return nil, err
			}
		}
		return ast.NewIf(stmt.Tok, cond, thenBody, elseBody), nil
	case ast.BlockNode:
		return r.resolveBlock(stmt, s.inner())
	case ast.WhileNode:
		cond, err := r.resolveExpr(d.Cond, s)
		if err != nil {
			return nil, err
		}
		body, err := r.resolveStmt(d.Body, s)
		if err != nil {
			return nil, err
		}
		return ast.NewWhile(stmt.Tok, cond, body, d.Label), nil
	case ast.DoWhileNode:
		body, err := r.resolveStmt(d.Body, s)
		if err != nil {
			return nil, err
		}
		cond, err := r.resolveExpr(d.Cond, s)
		if err != nil {
			return nil, err
		}
		return ast.NewDoWhile(stmt.Tok, body, cond, d.Label), nil
	case ast.ForNode:
		return r.resolveFor(stmt, d, s.inner())
	case ast.BreakNode, ast.ContinueNode, ast.NullNode:
		return stmt, nil
	}
	return nil, util.Internalf("unexpected statement %s", stmt.Type)
}

func (r *Resolver) resolveFor(stmt *ast.Node, d ast.ForNode, s scope) (*ast.Node, error) {
	var (
		init *ast.Node
		err  error
	)
	if d.Init != nil {
		if d.Init.Type == ast.VarDecl {
			init, err = r.resolveLocalVarDecl(d.Init, s)
		} else {
			init, err = r.resolveExpr(d.Init, s)
		}
		if err != nil {
			return nil, err
		}
	}
	cond, err := r.resolveOptionalExpr(d.Cond, s)
	if err != nil {
		return nil, err
	}
	post, err := r.resolveOptionalExpr(d.Post, s)
	if err != nil {
		return nil, err
	}
	body, err := r.resolveStmt(d.Body, s)
	if err != nil {
		return nil, err
	}
	return ast.NewFor(stmt.Tok, init, cond, post, body, d.Label), nil
}

func (r *Resolver) resolveOptionalExpr(expr *ast.Node, s scope) (*ast.Node, error) {
	if expr == nil {
		return nil, nil
	}
	return r.resolveExpr(expr, s)
}

func (r *Resolver) resolveExpr(expr *ast.Node, s scope) (*ast.Node, error) {
	switch d := expr.Data.(type) {
	case ast.NumberNode:
		return expr, nil
	case ast.IdentNode:
		e, ok := s[d.Name]
		if !ok {
			return nil, util.Errorf(util.ErrUndeclaredIdentifier, expr.Tok, "use of undeclared identifier '%s'", d.Name)
		}
		return ast.NewIdent(expr.Tok, e.name), nil
	case ast.AssignNode:
		if d.Lhs.Type != ast.Ident {
			return nil, util.Errorf(util.ErrInvalidLvalue, expr.Tok, "expression is not assignable")
		}
		lhs, err := r.resolveExpr(d.Lhs, s)
		if err != nil {
			return nil, err
		}
		rhs, err := r.resolveExpr(d.Rhs, s)
		if err != nil {
			return nil, err
		}
		return ast.NewAssign(expr.Tok, lhs, rhs), nil
	case ast.UnaryOpNode:
		operand, err := r.resolveExpr(d.Expr, s)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(expr.Tok, d.Op, operand), nil
	case ast.BinaryOpNode:
		left, err := r.resolveExpr(d.Left, s)
		if err != nil {
			return nil, err
		}
		right, err := r.resolveExpr(d.Right, s)
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryOp(expr.Tok, d.Op, left, right), nil
	case ast.TernaryNode:
		cond, err := r.resolveExpr(d.Cond, s)
		if err != nil {
			return nil, err
		}
		thenExpr, err := r.resolveExpr(d.ThenExpr, s)
		if err != nil {
			return nil, err
		}
		elseExpr, err := r.resolveExpr(d.ElseExpr, s)
		if err != nil {
			return nil, err
		}
		return ast.NewTernary(expr.Tok, cond, thenExpr, elseExpr), nil
	case ast.FuncCallNode:
		e, ok := s[d.Name]
		if !ok {
			return nil, util.Errorf(util.ErrUndeclaredIdentifier, expr.Tok, "call to undeclared function '%s'", d.Name)
		}
		args := make([]*ast.Node, 0, len(d.Args))
		for _, arg := range d.Args {
			a, err := r.resolveExpr(arg, s)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return ast.NewFuncCall(expr.Tok, e.name, args), nil
	}
	return nil, util.Internalf("unexpected expression %s", expr.Type)
}
