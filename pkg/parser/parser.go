package parser

import (
	"errors"
	"strconv"

	"github.com/rainierwolfcastle/nqcc/pkg/ast"
	"github.com/rainierwolfcastle/nqcc/pkg/token"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
}

// syntaxError unwinds the recursive descent back to Parse.
type syntaxError struct{ err error }

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0]}
}

// Parse parses a whole translation unit.
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(syntaxError)
			if !ok {
				panic(r)
			}
			root, err = nil, se.err
		}
	}()

	tok := p.current
	var decls []*ast.Node
	for !p.check(token.EOF) {
		decls = append(decls, p.parseDeclaration())
	}
	return ast.NewProgram(tok, decls), nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type) token.Token {
	if p.check(tokType) {
		tok := p.current
		p.advance()
		return tok
	}
	p.fail(p.current, "expected %s but found %s", tokType, describe(p.current))
	return token.Token{}
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	panic(syntaxError{util.Errorf(util.ErrSyntax, tok, format, args...)})
}

func describe(tok token.Token) string {
	if tok.Value != "" {
		return "'" + tok.Value + "'"
	}
	return tok.Type.String()
}

// Declarations

func (p *Parser) parseSpecifiers() ast.StorageClass {
	first := p.current
	ints := 0
	storage := ast.StorageNone
	var storageTok token.Token
	for p.current.Type.IsSpecifier() {
		switch p.current.Type {
		case token.Int:
			ints++
		case token.Static, token.Extern:
			if storage != ast.StorageNone {
				p.fail(p.current, "multiple storage classes in declaration specifiers")
			}
			storage, storageTok = ast.StorageStatic, p.current
			if p.current.Type == token.Extern {
				storage = ast.StorageExtern
			}
		}
		p.advance()
	}
	switch {
	case ints == 0 && storage == ast.StorageNone:
		p.fail(first, "expected a declaration but found %s", describe(first))
	case ints == 0:
		p.fail(storageTok, "type specifier missing in declaration")
	case ints > 1:
		p.fail(first, "invalid type specifier")
	}
	return storage
}

func (p *Parser) parseDeclaration() *ast.Node {
	storage := p.parseSpecifiers()
	nameTok := p.expect(token.Ident)

	if p.match(token.LParen) {
		params := p.parseParamList()
		p.expect(token.RParen)
		var body *ast.Node
		if !p.match(token.Semi) {
			body = p.parseBlock()
		}
		return ast.NewFuncDecl(nameTok, nameTok.Value, params, body, storage)
	}

	var init *ast.Node
	if p.match(token.Eq) {
		init = p.parseExpr(0)
	}
	p.expect(token.Semi)
	return ast.NewVarDecl(nameTok, nameTok.Value, init, storage)
}

func (p *Parser) parseParamList() []*ast.Node {
	if p.match(token.Void) {
		return nil
	}
	var params []*ast.Node
	for {
		p.expect(token.Int)
		tok := p.expect(token.Ident)
		params = append(params, ast.NewIdent(tok, tok.Value))
		if !p.match(token.Comma) {
			return params
		}
	}
}

func (p *Parser) parseBlock() *ast.Node {
	tok := p.expect(token.LBrace)
	var items []*ast.Node
	for !p.check(token.RBrace) {
		if p.check(token.EOF) {
			p.fail(p.current, "expected '}' before end of file")
		}
		items = append(items, p.parseBlockItem())
	}
	p.advance()
	return ast.NewBlock(tok, items)
}

func (p *Parser) parseBlockItem() *ast.Node {
	if p.current.Type.IsSpecifier() {
		return p.parseDeclaration()
	}
	return p.parseStmt()
}

// Statements

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Return):
		expr := p.parseExpr(0)
		p.expect(token.Semi)
		return ast.NewReturn(tok, expr)
	case p.match(token.If):
		p.expect(token.LParen)
		cond := p.parseExpr(0)
		p.expect(token.RParen)
		thenBody := p.parseStmt()
		var elseBody *ast.Node
		if p.match(token.Else) {
			elseBody = p.parseStmt()
		}
		return ast.NewIf(tok, cond, thenBody, elseBody)
	case p.match(token.Semi):
		return ast.NewNull(tok)
	case p.check(token.LBrace):
		return p.parseBlock()
	case p.match(token.Break):
		p.expect(token.Semi)
		return ast.NewBreak(tok, "")
	case p.match(token.Continue):
		p.expect(token.Semi)
		return ast.NewContinue(tok, "")
	case p.match(token.While):
		p.expect(token.LParen)
		cond := p.parseExpr(0)
		p.expect(token.RParen)
		return ast.NewWhile(tok, cond, p.parseStmt(), "")
	case p.match(token.Do):
		body := p.parseStmt()
		p.expect(token.While)
		p.expect(token.LParen)
		cond := p.parseExpr(0)
		p.expect(token.RParen)
		p.expect(token.Semi)
		return ast.NewDoWhile(tok, body, cond, "")
	case p.match(token.For):
		p.expect(token.LParen)
		init := p.parseForInit()
		cond := p.parseOptionalExpr(token.Semi)
		post := p.parseOptionalExpr(token.RParen)
		return ast.NewFor(tok, init, cond, post, p.parseStmt(), "")
	}

	expr := p.parseExpr(0)
	p.expect(token.Semi)
	return ast.NewExprStmt(tok, expr)
}

func (p *Parser) parseForInit() *ast.Node {
	if p.current.Type.IsSpecifier() {
		decl := p.parseDeclaration()
		if decl.Type == ast.FuncDecl {
			p.fail(decl.Tok, "function declaration in for loop header")
		}
		return decl
	}
	return p.parseOptionalExpr(token.Semi)
}

// parseOptionalExpr parses an expression if one precedes delim, then consumes delim.
func (p *Parser) parseOptionalExpr(delim token.Type) *ast.Node {
	if p.match(delim) {
		return nil
	}
	expr := p.parseExpr(0)
	p.expect(delim)
	return expr
}

// Expression Parsing

func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash, token.Rem: return 50
	case token.Plus, token.Minus: return 45
	case token.Lt, token.Lte, token.Gt, token.Gte: return 35
	case token.EqEq, token.Neq: return 30
	case token.AndAnd: return 10
	case token.OrOr: return 5
	case token.Question: return 3
	case token.Eq: return 1
	default: return -1
	}
}

// parseExpr is a precedence climber. Assignment and the conditional operator
// are right associative, everything else associates to the left.
func (p *Parser) parseExpr(minPrec int) *ast.Node {
	left := p.parseFactor()
	for {
		tok := p.current
		prec := getBinaryOpPrecedence(tok.Type)
		if prec < 0 || prec < minPrec {
			return left
		}
		p.advance()
		switch tok.Type {
		case token.Eq:
			right := p.parseExpr(prec)
			left = ast.NewAssign(tok, left, right)
		case token.Question:
			middle := p.parseExpr(0)
			p.expect(token.Colon)
			right := p.parseExpr(prec)
			left = ast.NewTernary(tok, left, middle, right)
		default:
			right := p.parseExpr(prec + 1)
			left = ast.NewBinaryOp(tok, tok.Type, left, right)
		}
	}
}

func (p *Parser) parseFactor() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		val, err := strconv.ParseInt(tok.Value, 10, 32)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				p.fail(tok, "integer constant '%s' is too large for type int", tok.Value)
			}
			p.fail(tok, "invalid integer constant '%s'", tok.Value)
		}
		return ast.NewNumber(tok, val)
	case p.match(token.Ident):
		if !p.match(token.LParen) {
			return ast.NewIdent(tok, tok.Value)
		}
		var args []*ast.Node
		if !p.check(token.RParen) {
			for {
				args = append(args, p.parseExpr(0))
				if !p.match(token.Comma) {
					break
				}
			}
		}
		p.expect(token.RParen)
		return ast.NewFuncCall(tok, tok.Value, args)
	case p.match(token.Minus), p.match(token.Complement), p.match(token.Not):
		return ast.NewUnaryOp(tok, tok.Type, p.parseFactor())
	case p.match(token.LParen):
		expr := p.parseExpr(0)
		p.expect(token.RParen)
		return expr
	}
	p.fail(tok, "expected an expression but found %s", describe(tok))
	return nil
}
