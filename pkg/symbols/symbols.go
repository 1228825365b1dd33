// Package symbols holds the per-compilation symbol table shared by the type
// checker, IR lowering and storage assignment.
package symbols

import "fmt"

type Kind int

const (
	Int Kind = iota
	Function
)

// Type is int, or a function taking ParamCount ints and returning int.
type Type struct {
	Kind       Kind
	ParamCount int
}

var IntType = Type{Kind: Int}

func FunType(paramCount int) Type { return Type{Kind: Function, ParamCount: paramCount} }

func (t Type) String() string {
	if t.Kind == Function {
		return fmt.Sprintf("int(%d params)", t.ParamCount)
	}
	return "int"
}

type InitKind int

const (
	NoInitializer InitKind = iota
	Tentative
	Initial
)

// InitialValue is the initializer state of a variable with static storage.
// Value is meaningful only for Initial.
type InitialValue struct {
	Kind  InitKind
	Value int64
}

func InitialOf(v int64) InitialValue { return InitialValue{Kind: Initial, Value: v} }

// Attrs is one of FunAttr, StaticAttr or LocalAttr.
type Attrs interface{ isAttrs() }

type FunAttr struct{ Defined, Global bool }
type StaticAttr struct {
	Init   InitialValue
	Global bool
}
type LocalAttr struct{}

func (FunAttr) isAttrs()    {}
func (StaticAttr) isAttrs() {}
func (LocalAttr) isAttrs()  {}

type Symbol struct {
	Type  Type
	Attrs Attrs
}

// Table maps identifiers to symbols and remembers the order in which
// identifiers were first added.
type Table struct {
	entries map[string]Symbol
	order   []string
}

func NewTable() *Table { return &Table{entries: make(map[string]Symbol)} }

func (t *Table) Get(name string) (Symbol, bool) {
	sym, ok := t.entries[name]
	return sym, ok
}

// Set adds or replaces the entry for name. Replacing keeps the original position.
func (t *Table) Set(name string, sym Symbol) {
	if _, ok := t.entries[name]; !ok {
		t.order = append(t.order, name)
	}
	t.entries[name] = sym
}

func (t *Table) Len() int { return len(t.order) }

// Names returns every identifier in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// IsStatic reports whether name denotes a variable with static storage duration.
func (t *Table) IsStatic(name string) bool {
	sym, ok := t.entries[name]
	if !ok {
		return false
	}
	_, static := sym.Attrs.(StaticAttr)
	return static
}
