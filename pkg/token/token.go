package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Ident
	Number
	Int
	Void
	Return
	If
	Else
	Do
	While
	For
	Break
	Continue
	Static
	Extern
	LParen
	RParen
	LBrace
	RBrace
	Semi
	Comma
	Question
	Colon
	Complement
	Not
	Minus
	Plus
	Star
	Slash
	Rem
	AndAnd
	OrOr
	Eq
	EqEq
	Neq
	Lt
	Lte
	Gt
	Gte
)

var KeywordMap = map[string]Type{
	"int":      Int,
	"void":     Void,
	"return":   Return,
	"if":       If,
	"else":     Else,
	"do":       Do,
	"while":    While,
	"for":      For,
	"break":    Break,
	"continue": Continue,
	"static":   Static,
	"extern":   Extern,
}

var punctStrings = map[Type]string{
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", Semi: ";", Comma: ",",
	Question: "?", Colon: ":", Complement: "~", Not: "!", Minus: "-", Plus: "+",
	Star: "*", Slash: "/", Rem: "%", AndAnd: "&&", OrOr: "||", Eq: "=",
	EqEq: "==", Neq: "!=", Lt: "<", Lte: "<=", Gt: ">", Gte: ">=",
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range punctStrings {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	switch t {
	case EOF: return "end of file"
	case Ident: return "identifier"
	case Number: return "constant"
	}
	if s, ok := TypeStrings[t]; ok {
		return "'" + s + "'"
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsSpecifier reports whether t may start a declaration.
func (t Type) IsSpecifier() bool { return t == Int || t == Static || t == Extern }

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
