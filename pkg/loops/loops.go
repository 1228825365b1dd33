// Package loops tags every loop with a unique id and binds each break and
// continue to its innermost enclosing loop.
package loops

import (
	"github.com/rainierwolfcastle/nqcc/pkg/ast"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

type Labeler struct{ names *util.NameGen }

func NewLabeler(names *util.NameGen) *Labeler { return &Labeler{names: names} }

// Label returns a copy of prog with loop ids filled in.
func (l *Labeler) Label(prog *ast.Node) (*ast.Node, error) {
	decls := prog.Data.(ast.ProgramNode).Decls
	out := make([]*ast.Node, 0, len(decls))
	for _, decl := range decls {
		d, ok := decl.Data.(ast.FuncDeclNode)
		if !ok || d.Body == nil {
			out = append(out, decl)
			continue
		}
		body, err := l.labelStmt(d.Body, "")
		if err != nil {
			return nil, err
		}
		out = append(out, ast.NewFuncDecl(decl.Tok, d.Name, d.Params, body, d.Storage))
	}
	return ast.NewProgram(prog.Tok, out), nil
}

// labelStmt labels stmt inside the loop identified by current, or outside
// any loop when current is empty.
func (l *Labeler) labelStmt(stmt *ast.Node, current string) (*ast.Node, error) {
	switch d := stmt.Data.(type) {
	case ast.BreakNode:
		if current == "" {
			return nil, util.Errorf(util.ErrBreakOutsideLoop, stmt.Tok, "'break' statement not in loop")
		}
		return ast.NewBreak(stmt.Tok, current), nil
	case ast.ContinueNode:
		if current == "" {
			return nil, util.Errorf(util.ErrContinueOutsideLoop, stmt.Tok, "'continue' statement not in loop")
		}
		return ast.NewContinue(stmt.Tok, current), nil
	case ast.IfNode:
		thenBody, err := l.labelStmt(d.ThenBody, current)
		if err != nil {
			return nil, err
		}
		var elseBody *ast.Node
		if d.ElseBody != nil {
			if elseBody, err = l.labelStmt(d.ElseBody, current); err != nil {
				return nil, err
			}
		}
		return ast.NewIf(stmt.Tok, d.Cond, thenBody, elseBody), nil
	case ast.BlockNode:
		items := make([]*ast.Node, 0, len(d.Items))
		for _, item := range d.Items {
			if ast.IsDeclaration(item) {
				items = append(items, item)
				continue
			}
			labeled, err := l.labelStmt(item, current)
			if err != nil {
				return nil, err
			}
			items = append(items, labeled)
		}
		return ast.NewBlock(stmt.Tok, items), nil
	case ast.WhileNode:
		id := l.names.Label("while")
		body, err := l.labelStmt(d.Body, id)
		if err != nil {
			return nil, err
		}
		return ast.NewWhile(stmt.Tok, d.Cond, body, id), nil
	case ast.DoWhileNode:
		id := l.names.Label("dowhile")
		body, err := l.labelStmt(d.Body, id)
		if err != nil {
			return nil, err
		}
		return ast.NewDoWhile(stmt.Tok, body, d.Cond, id), nil
	case ast.ForNode:
		id := l.names.Label("for")
		body, err := l.labelStmt(d.Body, id)
		if err != nil {
			return nil, err
		}
		return ast.NewFor(stmt.Tok, d.Init, d.Cond, d.Post, body, id), nil
	}
	return stmt, nil
}
