// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import "github.com/rainierwolfcastle/nqcc/pkg/token"

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	Ident
	Assign
	BinaryOp
	UnaryOp
	Ternary
	FuncCall

	// Declarations
	FuncDecl
	VarDecl

	// Statements
	Return
	ExprStmt
	If
	Block
	Break
	Continue
	While
	DoWhile
	For
	Null

	Program
)

var nodeTypeNames = [...]string{
	Number: "Number", Ident: "Ident", Assign: "Assign", BinaryOp: "BinaryOp", UnaryOp: "UnaryOp",
	Ternary: "Ternary", FuncCall: "FuncCall", FuncDecl: "FuncDecl", VarDecl: "VarDecl",
	Return: "Return", ExprStmt: "ExprStmt", If: "If", Block: "Block", Break: "Break",
	Continue: "Continue", While: "While", DoWhile: "DoWhile", For: "For", Null: "Null",
	Program: "Program",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Node"
}

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

// StorageClass is the optional static/extern specifier of a declaration.
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageStatic
	StorageExtern
)

func (s StorageClass) String() string {
	switch s {
	case StorageStatic: return "static"
	case StorageExtern: return "extern"
	default: return ""
	}
}

// --- Node Data Structs ---
type NumberNode struct{ Value int64 }
type IdentNode struct{ Name string }
type AssignNode struct{ Lhs, Rhs *Node }
type BinaryOpNode struct{ Op token.Type; Left, Right *Node }
type UnaryOpNode struct{ Op token.Type; Expr *Node }
type TernaryNode struct{ Cond, ThenExpr, ElseExpr *Node }
type FuncCallNode struct{ Name string; Args []*Node }

// FuncDeclNode is a prototype when Body is nil. Params are Ident nodes.
type FuncDeclNode struct {
	Name    string
	Params  []*Node
	Body    *Node
	Storage StorageClass
}
type VarDeclNode struct {
	Name    string
	Init    *Node
	Storage StorageClass
}

type ReturnNode struct{ Expr *Node }
type ExprStmtNode struct{ Expr *Node }
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type BlockNode struct{ Items []*Node }

// Loops and break/continue carry the id of the enclosing loop. The parser
// leaves it empty and the loop labeler fills it in.
type BreakNode struct{ Label string }
type ContinueNode struct{ Label string }
type WhileNode struct{ Cond, Body *Node; Label string }
type DoWhileNode struct{ Body, Cond *Node; Label string }

// ForNode.Init is a VarDecl, an expression, or nil. Cond and Post may be nil.
type ForNode struct {
	Init, Cond, Post, Body *Node
	Label                  string
}
type NullNode struct{}
type ProgramNode struct{ Decls []*Node }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewNumber(tok token.Token, value int64) *Node {
	return newNode(tok, Number, NumberNode{Value: value})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewAssign(tok token.Token, lhs, rhs *Node) *Node {
	return newNode(tok, Assign, AssignNode{Lhs: lhs, Rhs: rhs})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}
func NewTernary(tok token.Token, cond, thenExpr, elseExpr *Node) *Node {
	return newNode(tok, Ternary, TernaryNode{Cond: cond, ThenExpr: thenExpr, ElseExpr: elseExpr})
}
func NewFuncCall(tok token.Token, name string, args []*Node) *Node {
	return newNode(tok, FuncCall, FuncCallNode{Name: name, Args: args})
}
func NewFuncDecl(tok token.Token, name string, params []*Node, body *Node, storage StorageClass) *Node {
	return newNode(tok, FuncDecl, FuncDeclNode{Name: name, Params: params, Body: body, Storage: storage})
}
func NewVarDecl(tok token.Token, name string, init *Node, storage StorageClass) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Name: name, Init: init, Storage: storage})
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr})
}
func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, ExprStmtNode{Expr: expr})
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody})
}
func NewBlock(tok token.Token, items []*Node) *Node {
	return newNode(tok, Block, BlockNode{Items: items})
}
func NewBreak(tok token.Token, label string) *Node {
	return newNode(tok, Break, BreakNode{Label: label})
}
func NewContinue(tok token.Token, label string) *Node {
	return newNode(tok, Continue, ContinueNode{Label: label})
}
func NewWhile(tok token.Token, cond, body *Node, label string) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body, Label: label})
}
func NewDoWhile(tok token.Token, body, cond *Node, label string) *Node {
	return newNode(tok, DoWhile, DoWhileNode{Body: body, Cond: cond, Label: label})
}
func NewFor(tok token.Token, init, cond, post, body *Node, label string) *Node {
	return newNode(tok, For, ForNode{Init: init, Cond: cond, Post: post, Body: body, Label: label})
}
func NewNull(tok token.Token) *Node {
	return newNode(tok, Null, NullNode{})
}
func NewProgram(tok token.Token, decls []*Node) *Node {
	return newNode(tok, Program, ProgramNode{Decls: decls})
}

// IsDeclaration reports whether n declares a function or a variable.
func IsDeclaration(n *Node) bool {
	return n != nil && (n.Type == FuncDecl || n.Type == VarDecl)
}
